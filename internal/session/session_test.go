package session

import (
	"testing"
	"time"

	"github.com/nextlevelbuilder/meetwatch/internal/meeting"
	"github.com/nextlevelbuilder/meetwatch/pkg/protocol"
)

func TestObserveRosterPresence(t *testing.T) {
	s := New("m1", meeting.PlatformGmeet, "https://meet.google.com/abc", "s1")
	t0 := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	// Poll 1: Alice and the bot are present.
	s.ObserveRoster([]protocol.ParticipantSnapshot{
		{Name: "Alice", OriginalName: "Alice"},
		{Name: "Meeting Bot", OriginalName: "Meeting Bot (You)", IsBot: true},
	}, t0)

	rows := s.HistoryRows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	// Poll 2: Alice left.
	t1 := t0.Add(30 * time.Second)
	s.ObserveRoster([]protocol.ParticipantSnapshot{
		{Name: "Meeting Bot", OriginalName: "Meeting Bot (You)", IsBot: true},
	}, t1)

	alice := findRow(t, s, "Alice")
	if alice.LeftAt == nil || !alice.LeftAt.Equal(t1) {
		t.Errorf("Alice LeftAt = %v, want %v", alice.LeftAt, t1)
	}
	if !alice.FirstSeen.Equal(t0) {
		t.Errorf("Alice FirstSeen = %v, want %v", alice.FirstSeen, t0)
	}

	// Poll 3: Alice rejoined; the leave mark clears, first seen stays.
	t2 := t1.Add(30 * time.Second)
	s.ObserveRoster([]protocol.ParticipantSnapshot{
		{Name: "Alice", OriginalName: "Alice"},
		{Name: "Meeting Bot", OriginalName: "Meeting Bot (You)", IsBot: true},
	}, t2)

	alice = findRow(t, s, "Alice")
	if alice.LeftAt != nil {
		t.Errorf("rejoin should clear LeftAt, got %v", alice.LeftAt)
	}
	if !alice.FirstSeen.Equal(t0) {
		t.Errorf("rejoin must not reset FirstSeen, got %v", alice.FirstSeen)
	}
	if !alice.LastSeenPresentAt.Equal(t2) {
		t.Errorf("LastSeenPresentAt = %v, want %v", alice.LastSeenPresentAt, t2)
	}
}

func findRow(t *testing.T, s *Session, name string) HistoryRow {
	t.Helper()
	for _, row := range s.HistoryRows() {
		if row.Name == name {
			return row
		}
	}
	t.Fatalf("row %q not found", name)
	return HistoryRow{}
}

func TestAppendTranscriptDeduplicates(t *testing.T) {
	s := New("m1", meeting.PlatformGmeet, "https://meet.google.com/abc", "s1")

	s.AppendTranscript([]string{"hello everyone", "let's get started"})
	s.AppendTranscript([]string{"hello everyone", "first agenda item"})

	got := s.Transcript()
	want := []string{"hello everyone", "let's get started", "first agenda item"}
	if len(got) != len(want) {
		t.Fatalf("transcript = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transcript[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := New("m1", meeting.PlatformTeams, "https://teams.microsoft.com/x", "s1")

	if s.Status() != protocol.StatusCreated {
		t.Errorf("new session status = %q", s.Status())
	}
	s.markJoining()
	if info := s.Info(); info.Status != protocol.StatusJoining || info.StartedAt == nil {
		t.Errorf("after markJoining: %+v", info)
	}
	s.markInMeeting()
	if s.Terminal() {
		t.Error("in_meeting must not be terminal")
	}
	s.markEnded()
	if info := s.Info(); info.Status != protocol.StatusEnded || info.EndedAt == nil {
		t.Errorf("after markEnded: %+v", info)
	}
	if !s.Terminal() {
		t.Error("ended must be terminal")
	}
}
