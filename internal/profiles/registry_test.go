package profiles

import (
	"os"
	"path/filepath"
	"testing"
)

func makeProfile(t *testing.T, root, name string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Preferences"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestListFindsProfiles(t *testing.T) {
	root := t.TempDir()
	makeProfile(t, root, "google_main")
	makeProfile(t, root, "google_alt")
	// A bare directory without profile markers is not a profile.
	if err := os.MkdirAll(filepath.Join(root, "scratch"), 0755); err != nil {
		t.Fatal(err)
	}

	r, err := NewRegistry(root, "google_main")
	if err != nil {
		t.Fatal(err)
	}
	names := r.List()
	if len(names) != 2 || names[0] != "google_alt" || names[1] != "google_main" {
		t.Errorf("List = %v", names)
	}
}

func TestAllocatePrefersDefault(t *testing.T) {
	root := t.TempDir()
	makeProfile(t, root, "google_main")
	makeProfile(t, root, "google_alt")

	r, err := NewRegistry(root, "google_main")
	if err != nil {
		t.Fatal(err)
	}

	got, err := r.Allocate("s1", "")
	if err != nil {
		t.Fatal(err)
	}
	if got != "google_main" {
		t.Errorf("allocated %q, want default", got)
	}

	// Second session cannot share the held profile.
	got2, err := r.Allocate("s2", "")
	if err != nil {
		t.Fatal(err)
	}
	if got2 != "google_alt" {
		t.Errorf("second allocation = %q", got2)
	}

	// Same session re-allocating gets its existing profile back.
	again, err := r.Allocate("s1", "")
	if err != nil {
		t.Fatal(err)
	}
	if again != "google_main" {
		t.Errorf("re-allocation = %q", again)
	}
}

func TestAllocateCreatesFreshWhenExhausted(t *testing.T) {
	root := t.TempDir()
	makeProfile(t, root, "google_main")

	r, err := NewRegistry(root, "google_main")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Allocate("s1", ""); err != nil {
		t.Fatal(err)
	}

	got, err := r.Allocate("s2", "")
	if err != nil {
		t.Fatal(err)
	}
	if got != "google_1" {
		t.Errorf("fresh profile = %q, want google_1", got)
	}
	if _, err := os.Stat(filepath.Join(root, "google_1")); err != nil {
		t.Error("fresh profile directory not created")
	}
}

func TestReleaseFreesProfile(t *testing.T) {
	root := t.TempDir()
	makeProfile(t, root, "google_main")

	r, err := NewRegistry(root, "google_main")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Allocate("s1", ""); err != nil {
		t.Fatal(err)
	}
	if st := r.Status("google_main"); st.Available || st.SessionID != "s1" {
		t.Errorf("held status = %+v", st)
	}

	r.Release("s1")
	r.Release("s1") // idempotent
	if st := r.Status("google_main"); !st.Available || st.SessionID != "" {
		t.Errorf("released status = %+v", st)
	}
}

func TestStatusLoginHeuristic(t *testing.T) {
	root := t.TempDir()
	makeProfile(t, root, "google_main")

	r, err := NewRegistry(root, "google_main")
	if err != nil {
		t.Fatal(err)
	}
	if st := r.Status("google_main"); st.LoggedIn {
		t.Error("profile without cookies reported logged in")
	}

	cookieDir := filepath.Join(root, "google_main", "Default")
	if err := os.MkdirAll(cookieDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cookieDir, "Cookies"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if st := r.Status("google_main"); !st.LoggedIn {
		t.Error("profile with cookie store reported logged out")
	}
}
