package meeting

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nextlevelbuilder/meetwatch/internal/browser"
)

func TestGmeetJoinHappyPath(t *testing.T) {
	page := &browser.FakeSurface{
		BodyText: "Ready to join?\nJoin now\nTurn off microphone\nTurn off camera",
		EvalResults: map[string]json.RawMessage{
			`"join now"`: json.RawMessage("true"),
		},
	}

	flow := &GmeetFlow{MeetingID: "m1", SessionID: "s1"}
	err := flow.Join(context.Background(), page, "https://meet.google.com/abc-defg-hij")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if page.URL() != "https://meet.google.com/abc-defg-hij" {
		t.Errorf("unexpected final url %q", page.URL())
	}
}

func TestGmeetJoinNotAuthenticated(t *testing.T) {
	page := &browser.FakeSurface{
		BodyText: "Sign in\nUse your Google Account to continue",
	}

	flow := &GmeetFlow{MeetingID: "m1", SessionID: "s1"}
	err := flow.Join(context.Background(), page, "https://meet.google.com/abc-defg-hij")

	var je *JoinError
	if !errors.As(err, &je) {
		t.Fatalf("expected JoinError, got %v", err)
	}
	if je.Reason != ReasonNotAuthenticated {
		t.Errorf("reason = %v, want %v", je.Reason, ReasonNotAuthenticated)
	}
}

func TestGmeetJoinNoButton(t *testing.T) {
	page := &browser.FakeSurface{
		BodyText: "Ready to join?",
	}

	flow := &GmeetFlow{MeetingID: "m1", SessionID: "s1"}
	err := flow.Join(context.Background(), page, "https://meet.google.com/abc-defg-hij")

	var je *JoinError
	if !errors.As(err, &je) {
		t.Fatalf("expected JoinError, got %v", err)
	}
	if je.Reason != ReasonNoJoinButton {
		t.Errorf("reason = %v, want %v", je.Reason, ReasonNoJoinButton)
	}
}

func TestGmeetJoinMeetingInaccessible(t *testing.T) {
	page := &browser.FakeSurface{
		BodyText: "You can't join this video call",
		Texts: map[string][]string{
			`[role="alert"]`: {"This meeting hasn't started yet"},
		},
	}

	flow := &GmeetFlow{MeetingID: "m1", SessionID: "s1"}
	err := flow.Join(context.Background(), page, "https://meet.google.com/abc-defg-hij")

	var je *JoinError
	if !errors.As(err, &je) {
		t.Fatalf("expected JoinError, got %v", err)
	}
	if je.Reason != ReasonMeetingInaccessible {
		t.Errorf("reason = %v, want %v", je.Reason, ReasonMeetingInaccessible)
	}
}

func TestGmeetJoinNavigationFailed(t *testing.T) {
	page := &browser.FakeSurface{NavErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}

	flow := &GmeetFlow{MeetingID: "m1", SessionID: "s1"}
	err := flow.Join(context.Background(), page, "https://meet.google.com/abc-defg-hij")

	var je *JoinError
	if !errors.As(err, &je) || je.Reason != ReasonNavigationFailed {
		t.Fatalf("expected NavigationFailed, got %v", err)
	}
}

func TestGmeetEnded(t *testing.T) {
	tests := []struct {
		name string
		page *browser.FakeSurface
		want bool
	}{
		{
			"in meeting",
			&browser.FakeSurface{Location: "https://meet.google.com/abc", BodyText: "Alice\nBob\nLeave call"},
			false,
		},
		{
			"end phrase",
			&browser.FakeSurface{Location: "https://meet.google.com/abc", BodyText: "You left the meeting"},
			true,
		},
		{
			"off host",
			&browser.FakeSurface{Location: "https://workspace.google.com/", BodyText: ""},
			true,
		},
		{
			"end selector",
			&browser.FakeSurface{
				Location: "https://meet.google.com/abc",
				BodyText: "something",
				Texts:    map[string][]string{`[data-message="You left the meeting"]`: {"You left the meeting"}},
			},
			true,
		},
	}

	flow := &GmeetFlow{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flow.Ended(context.Background(), tt.page); got != tt.want {
				t.Errorf("Ended = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTeamsEnded(t *testing.T) {
	flow := &TeamsFlow{}
	inCall := &browser.FakeSurface{
		Location: "https://teams.microsoft.com/v2/call/abc",
		BodyText: "Alice\nBob",
	}
	if flow.Ended(context.Background(), inCall) {
		t.Error("in-call page misread as ended")
	}
	ended := &browser.FakeSurface{
		Location: "https://teams.microsoft.com/v2/call/abc",
		BodyText: "Call ended",
	}
	if !flow.Ended(context.Background(), ended) {
		t.Error("call-ended page not detected")
	}
	offCall := &browser.FakeSurface{Location: "https://teams.microsoft.com/v2/home"}
	if !flow.Ended(context.Background(), offCall) {
		t.Error("off-call URL not detected as ended")
	}
}
