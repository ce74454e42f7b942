package logbuf

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const defaultCapacity = 2000

// Entry is one captured log record.
type Entry struct {
	Timestamp time.Time         `json:"timestamp"`
	Level     string            `json:"level"`
	Message   string            `json:"message"`
	MeetingID string            `json:"meeting_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// Buffer is a bounded ring of recent log entries backing the /logs
// endpoint. Safe for concurrent use.
type Buffer struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

func NewBuffer() *Buffer {
	return &Buffer{entries: make([]Entry, defaultCapacity)}
}

func (b *Buffer) add(e Entry) {
	b.mu.Lock()
	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
	b.mu.Unlock()
}

// All returns up to limit most recent entries, oldest first.
func (b *Buffer) All(limit int) []Entry {
	return b.Filtered("", "", "", limit)
}

// Filtered returns entries matching the given fields. Empty values match
// everything.
func (b *Buffer) Filtered(meetingID, sessionID, level string, limit int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var ordered []Entry
	if b.full {
		ordered = append(ordered, b.entries[b.next:]...)
	}
	ordered = append(ordered, b.entries[:b.next]...)

	level = strings.ToUpper(level)
	var out []Entry
	for _, e := range ordered {
		if meetingID != "" && e.MeetingID != meetingID {
			continue
		}
		if sessionID != "" && e.SessionID != sessionID {
			continue
		}
		if level != "" && e.Level != level {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Clear drops all captured entries.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.entries = make([]Entry, defaultCapacity)
	b.next = 0
	b.full = false
	b.mu.Unlock()
}

// Handler tees slog records into a Buffer while delegating to another
// handler for normal output.
type Handler struct {
	inner slog.Handler
	buf   *Buffer
	attrs []slog.Attr
}

func NewHandler(inner slog.Handler, buf *Buffer) *Handler {
	return &Handler{inner: inner, buf: buf}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	e := Entry{
		Timestamp: r.Time.UTC(),
		Level:     r.Level.String(),
		Message:   r.Message,
		Attrs:     make(map[string]string),
	}
	collect := func(a slog.Attr) {
		switch a.Key {
		case "meeting_id":
			e.MeetingID = a.Value.String()
		case "session_id":
			e.SessionID = a.Value.String()
		default:
			e.Attrs[a.Key] = a.Value.String()
		}
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})
	if len(e.Attrs) == 0 {
		e.Attrs = nil
	}
	h.buf.add(e)
	return h.inner.Handle(ctx, r)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &Handler{inner: h.inner.WithAttrs(attrs), buf: h.buf, attrs: merged}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name), buf: h.buf, attrs: h.attrs}
}
