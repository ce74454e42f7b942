package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Hybrid writes locally first (authoritative), then mirrors artifacts
// to the remote blob store in the background. Remote failures never
// fail the caller.
type Hybrid struct {
	*Local
	remote *RemoteSink
}

func NewHybrid(local *Local, remote *RemoteSink) *Hybrid {
	return &Hybrid{Local: local, remote: remote}
}

func (h *Hybrid) SaveAudio(meetingID, sessionID, filename string, data []byte) (string, error) {
	path, err := h.Local.SaveAudio(meetingID, sessionID, filename, data)
	if err != nil {
		return "", err
	}
	h.mirror(path, data, "audio/wav")
	return path, nil
}

func (h *Hybrid) SaveSummary(sessionID string, summary interface{}) (string, error) {
	path, err := h.Local.SaveSummary(sessionID, summary)
	if err != nil {
		return "", err
	}
	if data, readErr := readBack(path); readErr == nil {
		h.mirror(path, data, "application/json")
	}
	return path, nil
}

func (h *Hybrid) mirror(localPath string, data []byte, contentType string) {
	if h.remote == nil || !h.remote.Enabled() {
		return
	}
	rel, err := filepath.Rel(h.Local.Root(), localPath)
	if err != nil {
		rel = filepath.Base(localPath)
	}
	rel = strings.ReplaceAll(rel, string(filepath.Separator), "/")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := h.remote.UploadBlob(ctx, rel, data, contentType); err != nil {
			slog.Warn("remote blob mirror failed", "path", rel, "error", err)
		}
	}()
}

func readBack(path string) ([]byte, error) {
	return os.ReadFile(path)
}
