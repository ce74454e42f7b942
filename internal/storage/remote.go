package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"

	"github.com/nextlevelbuilder/meetwatch/internal/bus"
)

const (
	blobUploadRetries = 3
	blobUploadTimeout = 30 * time.Second
	reconnectDelay    = 5 * time.Second
)

// RemoteSink streams events to a WebSocket endpoint and uploads blobs
// over HTTP. Both are best effort; failures are logged and the local
// store stays authoritative.
type RemoteSink struct {
	eventURL string
	blobURL  string
	client   *http.Client
}

func NewRemoteSink(eventURL, blobURL string) *RemoteSink {
	return &RemoteSink{
		eventURL: eventURL,
		blobURL:  blobURL,
		client:   &http.Client{Timeout: blobUploadTimeout},
	}
}

// Enabled reports whether any remote backend is configured.
func (r *RemoteSink) Enabled() bool {
	return r.eventURL != "" || r.blobURL != ""
}

// Run forwards bus events to the remote endpoint until ctx is done,
// redialing on connection loss.
func (r *RemoteSink) Run(ctx context.Context, pub bus.Publisher) {
	if r.eventURL == "" {
		return
	}
	ch := pub.Subscribe()
	defer pub.Unsubscribe(ch)

	var conn *websocket.Conn
	defer func() {
		if conn != nil {
			conn.Close(websocket.StatusNormalClosure, "shutdown")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			if conn == nil {
				conn = r.dial(ctx)
				if conn == nil {
					continue // event dropped, local copy is authoritative
				}
			}
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				slog.Warn("remote event write failed", "event", evt.Name, "error", err)
				conn.Close(websocket.StatusInternalError, "write failed")
				conn = nil
			}
		}
	}
}

func (r *RemoteSink) dial(ctx context.Context) *websocket.Conn {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, r.eventURL, nil)
	if err != nil {
		slog.Warn("remote event sink unreachable", "url", r.eventURL, "error", err)
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
		}
		return nil
	}
	slog.Info("connected to remote event sink", "url", r.eventURL)
	return conn
}

// UploadBlob PUTs an artifact to the remote blob store under its
// relative path, retrying transient failures.
func (r *RemoteSink) UploadBlob(ctx context.Context, relPath string, data []byte, contentType string) error {
	if r.blobURL == "" {
		return nil
	}
	target, err := url.JoinPath(r.blobURL, relPath)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= blobUploadRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := r.client.Do(req)
		if err == nil {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			if resp.StatusCode < 300 {
				return nil
			}
			lastErr = fmt.Errorf("blob store returned %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		select {
		case <-time.After(time.Duration(attempt) * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("upload %s: %w", relPath, lastErr)
}
