package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestUploadBlob(t *testing.T) {
	var gotPath, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sink := NewRemoteSink("", srv.URL)
	err := sink.UploadBlob(context.Background(), "m1/s1/chunk_000.wav", []byte("RIFF"), "audio/wav")
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/m1/s1/chunk_000.wav" {
		t.Errorf("path = %q", gotPath)
	}
	if gotType != "audio/wav" || string(gotBody) != "RIFF" {
		t.Errorf("upload = %q %q", gotType, gotBody)
	}
}

func TestUploadBlobRetriesTransientFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewRemoteSink("", srv.URL)
	if err := sink.UploadBlob(context.Background(), "x.json", []byte("{}"), "application/json"); err != nil {
		t.Fatalf("retry never succeeded: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("server saw %d calls, want 2", calls)
	}
}

func TestUploadBlobDisabled(t *testing.T) {
	sink := NewRemoteSink("", "")
	if sink.Enabled() {
		t.Error("empty sink reports enabled")
	}
	if err := sink.UploadBlob(context.Background(), "x", nil, ""); err != nil {
		t.Errorf("disabled upload errored: %v", err)
	}
}

func TestHybridMirrorsAudio(t *testing.T) {
	uploaded := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploaded <- r.URL.Path
	}))
	defer srv.Close()

	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h := NewHybrid(local, NewRemoteSink("", srv.URL))

	if _, err := h.SaveAudio("m1", "s1", "chunk_000.wav", []byte("RIFF")); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-uploaded:
		if path != "/m1/s1/chunk_000.wav" {
			t.Errorf("mirrored path = %q", path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("audio never mirrored to the blob store")
	}
}

func TestHybridLocalStaysAuthoritativeOnRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h := NewHybrid(local, NewRemoteSink("", srv.URL))

	path, err := h.SaveSummary("s1", map[string]string{"status": "ended"})
	if err != nil {
		t.Fatalf("local write failed because of the remote: %v", err)
	}
	if path == "" {
		t.Error("no local path returned")
	}
}
