package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/nextlevelbuilder/meetwatch/internal/browser"
)

// Status describes one profile.
type Status struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Exists    bool   `json:"exists"`
	LoggedIn  bool   `json:"logged_in"` // heuristic, advisory only
	Available bool   `json:"available"`
	SessionID string `json:"session_id,omitempty"` // holder, when allocated
}

// Registry allocates isolated browser profiles to sessions. A profile
// is held by at most one session at a time.
type Registry struct {
	root        string
	defaultName string

	mu      sync.Mutex
	holders map[string]string // session_id -> profile name
	watcher *fsnotify.Watcher
	known   map[string]struct{} // profiles seen on disk
}

func NewRegistry(root, defaultName string) (*Registry, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create profiles root: %w", err)
	}
	r := &Registry{
		root:        root,
		defaultName: defaultName,
		holders:     make(map[string]string),
		known:       make(map[string]struct{}),
	}
	r.refreshLocked()
	return r, nil
}

// Watch refreshes the on-disk profile set when the root changes.
// Runs until ctx is done.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(r.root); err != nil {
		watcher.Close()
		return err
	}
	r.watcher = watcher

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				r.mu.Lock()
				r.refreshLocked()
				r.mu.Unlock()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Debug("profile watcher error", "error", err)
			}
		}
	}()
	return nil
}

// refreshLocked rescans the root for directories that look like browser
// profiles. Caller holds r.mu.
func (r *Registry) refreshLocked() {
	r.known = make(map[string]struct{})
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(r.root, e.Name())
		if looksLikeProfile(dir) {
			r.known[e.Name()] = struct{}{}
		}
	}
}

func looksLikeProfile(dir string) bool {
	for _, marker := range []string{"Default", "Preferences", "Local State"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// List returns the sorted names of profiles present on disk.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshLocked()
	names := make([]string, 0, len(r.known))
	for name := range r.known {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Allocate reserves a profile for a session. Order: preferred if free,
// configured default if free, first free on-disk profile, else a fresh
// auto-numbered profile.
func (r *Registry) Allocate(sessionID, preferred string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.holders[sessionID]; ok {
		return existing, nil
	}
	r.refreshLocked()

	if preferred != "" && r.freeLocked(preferred) {
		return r.takeLocked(sessionID, preferred), nil
	}
	if r.defaultName != "" && r.freeLocked(r.defaultName) {
		return r.takeLocked(sessionID, r.defaultName), nil
	}

	names := make([]string, 0, len(r.known))
	for name := range r.known {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if r.freeLocked(name) {
			return r.takeLocked(sessionID, name), nil
		}
	}

	for i := 1; ; i++ {
		name := fmt.Sprintf("google_%d", i)
		if _, exists := r.known[name]; exists || !r.freeLocked(name) {
			continue
		}
		if err := os.MkdirAll(filepath.Join(r.root, name), 0755); err != nil {
			return "", fmt.Errorf("create profile %s: %w", name, err)
		}
		slog.Info("created new profile", "profile", name, "session_id", sessionID)
		return r.takeLocked(sessionID, name), nil
	}
}

func (r *Registry) freeLocked(name string) bool {
	for _, held := range r.holders {
		if held == name {
			return false
		}
	}
	return true
}

func (r *Registry) takeLocked(sessionID, name string) string {
	r.holders[sessionID] = name
	slog.Info("allocated profile", "profile", name, "session_id", sessionID)
	return name
}

// Release frees a session's profile. Safe to call twice.
func (r *Registry) Release(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name, ok := r.holders[sessionID]; ok {
		delete(r.holders, sessionID)
		slog.Info("released profile", "profile", name, "session_id", sessionID)
	}
}

// Status reports on one profile.
func (r *Registry) Status(name string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := filepath.Join(r.root, name)
	st := Status{Name: name, Path: path, Available: r.freeLocked(name)}
	for sid, held := range r.holders {
		if held == name {
			st.SessionID = sid
		}
	}
	if _, err := os.Stat(path); err != nil {
		return st
	}
	st.Exists = true
	st.LoggedIn = loggedInHeuristic(path)
	return st
}

// loggedInHeuristic guesses whether a profile carries platform
// authentication: cookie stores first, then account metadata in
// Local State.
func loggedInHeuristic(path string) bool {
	for _, p := range []string{
		filepath.Join(path, "Default", "Cookies"),
		filepath.Join(path, "Cookies"),
	} {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}

	data, err := os.ReadFile(filepath.Join(path, "Local State"))
	if err != nil {
		return false
	}
	var state struct {
		Profile struct {
			InfoCache map[string]json.RawMessage `json:"info_cache"`
			Name      string                     `json:"name"`
		} `json:"profile"`
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return false
	}
	return len(state.Profile.InfoCache) > 0 || state.Profile.Name != ""
}

// ValidateLogin probes the Google account page and classifies the
// profile as authenticated or not. Advisory; errors mean unknown.
func ValidateLogin(ctx context.Context, page browser.PageSurface) (bool, string) {
	if err := page.Navigate(ctx, "https://accounts.google.com/"); err != nil {
		return false, fmt.Sprintf("probe navigation failed: %v", err)
	}

	current := strings.ToLower(page.URL())
	if strings.Contains(current, "servicelogin") || strings.Contains(current, "signin") {
		return false, "redirected to sign-in page"
	}
	if strings.Contains(current, "myaccount.google.com") || strings.Contains(current, "accountchooser") {
		return true, ""
	}

	for _, sel := range []string{`a[href*="ServiceLogin"]`, `[aria-label*="Sign in"]`} {
		if has, _ := page.Has(ctx, sel); has {
			return false, "sign-in prompt visible"
		}
	}
	return true, ""
}
