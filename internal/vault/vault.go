package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	kdfIterations = 100000
	kdfSalt       = "meetwatch_cookie_salt"
	keyLen        = 32

	defaultExpiry = 7 * 24 * time.Hour
)

// ErrNotFound is returned when no usable blob exists for a platform.
var ErrNotFound = errors.New("vault: no cookies stored")

// Metadata is the sidecar record written next to each encrypted blob.
type Metadata struct {
	Platform  string    `json:"platform"`
	SavedAt   time.Time `json:"saved_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Status describes a platform's stored cookies without decrypting them.
type Status struct {
	Platform  string     `json:"platform"`
	Exists    bool       `json:"exists"`
	Expired   bool       `json:"expired"`
	SavedAt   *time.Time `json:"saved_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Store keeps per-platform browser storage state encrypted at rest.
// Keys are derived from the configured secret; when no secret is set the
// data directory path seeds the key (dev mode).
type Store struct {
	dir string
	key []byte
}

// New creates a Store rooted at dir ("cookies" subdirectory is created).
func New(dataDir, secret string) (*Store, error) {
	dir := filepath.Join(dataDir, "cookies")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create cookie dir: %w", err)
	}
	material := secret
	if material == "" {
		material = dataDir
	}
	key := pbkdf2.Key([]byte(material), []byte(kdfSalt), kdfIterations, keyLen, sha256.New)
	return &Store{dir: dir, key: key}, nil
}

// Save encrypts and persists a platform's storage state blob.
func (s *Store) Save(platform string, blob []byte) error {
	sealed, err := s.encrypt(blob)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.blobPath(platform), sealed, 0600); err != nil {
		return fmt.Errorf("write cookies: %w", err)
	}

	meta := Metadata{
		Platform:  platform,
		SavedAt:   time.Now().UTC(),
		ExpiresAt: estimateExpiry(blob),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.metaPath(platform), data, 0600); err != nil {
		return fmt.Errorf("write cookie metadata: %w", err)
	}

	slog.Info("saved cookies", "platform", platform, "expires_at", meta.ExpiresAt)
	return nil
}

// Load decrypts a platform's storage state. Expired or missing blobs
// return ErrNotFound.
func (s *Store) Load(platform string) ([]byte, error) {
	sealed, err := os.ReadFile(s.blobPath(platform))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	if s.isExpired(platform) {
		slog.Warn("stored cookies appear expired", "platform", platform)
		return nil, ErrNotFound
	}
	blob, err := s.decrypt(sealed)
	if err != nil {
		return nil, fmt.Errorf("decrypt cookies: %w", err)
	}
	return blob, nil
}

// Status reports on a platform's stored cookies.
func (s *Store) Status(platform string) Status {
	st := Status{Platform: platform}
	if _, err := os.Stat(s.blobPath(platform)); err == nil {
		st.Exists = true
	}
	data, err := os.ReadFile(s.metaPath(platform))
	if err != nil {
		return st
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return st
	}
	st.SavedAt = &meta.SavedAt
	st.ExpiresAt = &meta.ExpiresAt
	st.Expired = s.isExpired(platform)
	return st
}

func (s *Store) blobPath(platform string) string {
	return filepath.Join(s.dir, platform+"_cookies.json.enc")
}

func (s *Store) metaPath(platform string) string {
	return filepath.Join(s.dir, platform+"_metadata.json")
}

func (s *Store) isExpired(platform string) bool {
	data, err := os.ReadFile(s.metaPath(platform))
	if err != nil {
		return false
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return false
	}
	if meta.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().UTC().After(meta.ExpiresAt)
}

func (s *Store) encrypt(plain []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func (s *Store) decrypt(sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("sealed blob too short")
	}
	nonce, ct := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ct, nil)
}

// estimateExpiry scans a browser storage-state blob for cookie expiry
// timestamps and returns the latest one, defaulting to seven days out.
func estimateExpiry(blob []byte) time.Time {
	now := time.Now().UTC()
	var state struct {
		Cookies []struct {
			Expires float64 `json:"expires"`
		} `json:"cookies"`
	}
	if err := json.Unmarshal(blob, &state); err != nil || len(state.Cookies) == 0 {
		return now.Add(defaultExpiry)
	}
	max := now
	for _, c := range state.Cookies {
		if c.Expires <= 0 {
			continue
		}
		t := time.Unix(int64(c.Expires), 0).UTC()
		if t.After(max) {
			max = t
		}
	}
	if max.Equal(now) {
		return now.Add(defaultExpiry)
	}
	return max
}
