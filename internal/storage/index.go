package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/meetwatch/internal/bus"
	"github.com/nextlevelbuilder/meetwatch/pkg/protocol"
)

const indexSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	session_id   TEXT NOT NULL,
	chunk_number INTEGER NOT NULL,
	meeting_id   TEXT NOT NULL,
	audio_path   TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	PRIMARY KEY (session_id, chunk_number)
);
CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	subject    TEXT NOT NULL,
	timestamp  TEXT NOT NULL,
	payload    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_subject ON events(subject);
`

// Index is a sqlite database recording chunks and events for
// after-the-fact inspection. It is advisory; the filesystem artifacts
// are authoritative.
type Index struct {
	db *sql.DB
}

func OpenIndex(dataDir string) (*Index, error) {
	db, err := sql.Open("sqlite", filepath.Join(dataDir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply index schema: %w", err)
	}
	return &Index{db: db}, nil
}

func (ix *Index) RecordChunk(sessionID string, chunkNumber int, meetingID, audioPath string) error {
	_, err := ix.db.Exec(
		`INSERT OR REPLACE INTO chunks (session_id, chunk_number, meeting_id, audio_path, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, chunkNumber, meetingID, audioPath, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (ix *Index) RecordEvent(evt bus.Event) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		payload = []byte("{}")
	}
	_, err = ix.db.Exec(
		`INSERT INTO events (name, subject, timestamp, payload) VALUES (?, ?, ?, ?)`,
		evt.Name, evt.Subject, evt.Timestamp.UTC().Format(time.RFC3339), string(payload),
	)
	return err
}

// ChunkCount returns the number of indexed chunks for a session.
func (ix *Index) ChunkCount(sessionID string) (int, error) {
	var n int
	err := ix.db.QueryRow(`SELECT COUNT(*) FROM chunks WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// Run consumes bus events into the index until ctx is done.
func (ix *Index) Run(ctx context.Context, pub bus.Publisher) {
	ch := pub.Subscribe()
	defer pub.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := ix.RecordEvent(evt); err != nil {
				slog.Debug("event index write failed", "event", evt.Name, "error", err)
			}
			if chunk, ok := evt.Payload.(protocol.AudioChunkPayload); ok {
				if err := ix.RecordChunk(chunk.SessionID, chunk.ChunkNumber, chunk.MeetingID, chunk.AudioFilePath); err != nil {
					slog.Debug("chunk index write failed", "chunk", chunk.ChunkNumber, "error", err)
				}
			}
		}
	}
}

func (ix *Index) Close() error { return ix.db.Close() }
