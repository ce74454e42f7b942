package session

import (
	"testing"
	"time"

	"github.com/nextlevelbuilder/meetwatch/internal/bus"
	"github.com/nextlevelbuilder/meetwatch/internal/config"
	"github.com/nextlevelbuilder/meetwatch/internal/meeting"
	"github.com/nextlevelbuilder/meetwatch/internal/storage"
	"github.com/nextlevelbuilder/meetwatch/pkg/protocol"
)

type summaryStore struct {
	summaries map[string]interface{}
}

func (s *summaryStore) SaveAudio(meetingID, sessionID, filename string, data []byte) (string, error) {
	return filename, nil
}

func (s *summaryStore) SaveChunkMetadata(meetingID, sessionID string, chunkNumber int, record interface{}) (string, error) {
	return "", nil
}

func (s *summaryStore) SaveSummary(sessionID string, summary interface{}) (string, error) {
	if s.summaries == nil {
		s.summaries = map[string]interface{}{}
	}
	s.summaries[sessionID] = summary
	return "sessions/" + sessionID + ".json", nil
}

func (s *summaryStore) SaveSnapshot(sessionID, name string, png []byte) (string, error) {
	return name, nil
}

func TestFinishSessionCrossChecksIndex(t *testing.T) {
	index, err := storage.OpenIndex(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer index.Close()
	for i := 0; i < 2; i++ {
		if err := index.RecordChunk("s1", i, "standup", "path.wav"); err != nil {
			t.Fatal(err)
		}
	}

	store := &summaryStore{}
	broker := bus.NewBroker()
	events := broker.Subscribe()
	defer broker.Unsubscribe(events)

	svc := Services{
		Config: config.Default(),
		Bus:    broker,
		Store:  store,
		Index:  index,
	}
	sess := New("standup", meeting.PlatformGmeet, "https://meet.google.com/abc-defg-hij", "s1")
	sess.markJoining()
	sess.markInMeeting()
	sess.markEnded()

	// Recorder reports 3 chunks while the index only saw 2; the
	// mismatch is logged but must not block the summary.
	finishSession(svc, sess, 3)

	saved, ok := store.summaries["s1"].(protocol.MeetingSummary)
	if !ok {
		t.Fatalf("summary not saved: %+v", store.summaries)
	}
	if saved.AudioChunks != 3 {
		t.Errorf("summary chunks = %d, want 3", saved.AudioChunks)
	}
	if saved.Status != protocol.StatusEnded {
		t.Errorf("summary status = %q", saved.Status)
	}

	select {
	case ev := <-events:
		if ev.Name != protocol.EventMeetingSummary {
			t.Errorf("event = %q, want %q", ev.Name, protocol.EventMeetingSummary)
		}
		if ev.Subject != "standup" {
			t.Errorf("event subject = %q, want meeting id", ev.Subject)
		}
	case <-time.After(time.Second):
		t.Fatal("no meeting_summary event broadcast")
	}
}
