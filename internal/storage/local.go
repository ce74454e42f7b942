package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactStore persists binary and JSON artifacts produced by sessions.
type ArtifactStore interface {
	// SaveAudio writes a chunk WAV under {meeting_id}/{session_id}/.
	SaveAudio(meetingID, sessionID, filename string, data []byte) (string, error)
	// SaveChunkMetadata writes the chunk record under
	// chunks/{meeting_id}/{session_id}/chunk_{NNN}.json.
	SaveChunkMetadata(meetingID, sessionID string, chunkNumber int, record interface{}) (string, error)
	// SaveSummary writes the terminal record to sessions/{session_id}.json.
	SaveSummary(sessionID string, summary interface{}) (string, error)
	// SaveSnapshot writes a failure screenshot under snapshots/.
	SaveSnapshot(sessionID, name string, png []byte) (string, error)
}

// Local is the authoritative filesystem store. Writes are atomic
// (temp file then rename) so readers never observe partial artifacts.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	for _, sub := range []string{"", "chunks", "sessions", "snapshots"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return &Local{root: root}, nil
}

// Root returns the store's base directory.
func (l *Local) Root() string { return l.root }

func (l *Local) SaveAudio(meetingID, sessionID, filename string, data []byte) (string, error) {
	dir := filepath.Join(l.root, sanitize(meetingID), sanitize(sessionID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, sanitize(filename))
	if err := atomicWrite(path, data, 0644); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	return path, nil
}

func (l *Local) SaveChunkMetadata(meetingID, sessionID string, chunkNumber int, record interface{}) (string, error) {
	dir := filepath.Join(l.root, "chunks", sanitize(meetingID), sanitize(sessionID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("chunk_%03d.json", chunkNumber))
	if err := writeJSON(path, record); err != nil {
		return "", fmt.Errorf("write chunk metadata: %w", err)
	}
	return path, nil
}

func (l *Local) SaveSummary(sessionID string, summary interface{}) (string, error) {
	path := filepath.Join(l.root, "sessions", sanitize(sessionID)+".json")
	if err := writeJSON(path, summary); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}

func (l *Local) SaveSnapshot(sessionID, name string, png []byte) (string, error) {
	dir := filepath.Join(l.root, "snapshots", sanitize(sessionID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, sanitize(name))
	if err := atomicWrite(path, png, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(path, data, 0644)
}

func atomicWrite(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// sanitize keeps artifact names filesystem-safe.
func sanitize(name string) string {
	r := strings.NewReplacer(":", "-", "/", "_", "\\", "_", "..", "_")
	return r.Replace(name)
}
