package vault

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveLoadRoundtrip(t *testing.T) {
	store, err := New(t.TempDir(), "test-secret")
	if err != nil {
		t.Fatal(err)
	}

	blob := []byte(`{"cookies":[{"name":"SID","value":"abc"}]}`)
	if err := store.Save("gmeet", blob); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load("gmeet")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, blob) {
		t.Errorf("roundtrip mismatch: %s", got)
	}
}

func TestBlobEncryptedAtRest(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, "test-secret")
	if err != nil {
		t.Fatal(err)
	}

	blob := []byte(`{"cookies":[{"name":"SID","value":"supersecretvalue"}]}`)
	if err := store.Save("gmeet", blob); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "cookies", "gmeet_cookies.json.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, []byte("supersecretvalue")) {
		t.Error("cookie value visible in the stored blob")
	}
}

func TestLoadMissing(t *testing.T) {
	store, err := New(t.TempDir(), "test-secret")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load("teams"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLoadExpired(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, "test-secret")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save("gmeet", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	// Rewrite the sidecar with a past expiry.
	meta := Metadata{
		Platform:  "gmeet",
		SavedAt:   time.Now().UTC().Add(-30 * 24 * time.Hour),
		ExpiresAt: time.Now().UTC().Add(-24 * time.Hour),
	}
	data, _ := json.Marshal(meta)
	metaPath := filepath.Join(dir, "cookies", "gmeet_metadata.json")
	if err := os.WriteFile(metaPath, data, 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Load("gmeet"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for expired cookies", err)
	}
	if st := store.Status("gmeet"); !st.Exists || !st.Expired {
		t.Errorf("status = %+v, want exists and expired", st)
	}
}

func TestWrongSecretFailsDecryption(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, "secret-a")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save("teams", []byte(`{"cookies":[]}`)); err != nil {
		t.Fatal(err)
	}

	other, err := New(dir, "secret-b")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Load("teams"); err == nil {
		t.Error("decryption with the wrong secret must fail")
	}
}

func TestStatusAbsent(t *testing.T) {
	store, err := New(t.TempDir(), "test-secret")
	if err != nil {
		t.Fatal(err)
	}
	st := store.Status("gmeet")
	if st.Exists || st.Expired || st.SavedAt != nil {
		t.Errorf("status for absent platform = %+v", st)
	}
}

func TestEstimateExpiryFromCookies(t *testing.T) {
	future := time.Now().Add(60 * 24 * time.Hour).Unix()
	blob, _ := json.Marshal(map[string]interface{}{
		"cookies": []map[string]interface{}{
			{"name": "a", "expires": float64(future)},
			{"name": "b", "expires": -1},
		},
	})
	got := estimateExpiry(blob)
	if got.Unix() != future {
		t.Errorf("expiry = %v, want unix %d", got, future)
	}

	// Session-only cookies fall back to the default window.
	fallback := estimateExpiry([]byte(`{"cookies":[{"name":"a","expires":-1}]}`))
	if d := time.Until(fallback); d < 6*24*time.Hour || d > 8*24*time.Hour {
		t.Errorf("fallback expiry %v not near seven days", fallback)
	}
}
