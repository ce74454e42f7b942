package roster

import "testing"

func TestIsValidParticipantName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"simple name", "Alice Nguyen", true},
		{"single word", "Bob", true},
		{"unicode name", "José García", true},
		{"empty", "", false},
		{"whitespace", "   ", false},
		{"too short", "A", false},
		{"digits only", "12345", false},
		{"ui chrome backgrounds", "Backgrounds and effects", false},
		{"ui chrome mic off", "Your microphone is off.", false},
		{"ui chrome more options", "More options", false},
		{"ui chrome waiting", "Waiting for others", false},
		{"ui chrome contributors", "Contributors", false},
		{"your prefix", "Your camera is broken", false},
		{"you prefix", "You joined", false},
		{"cant phrase", "You can't unmute someone else", false},
		{"cannot phrase", "Participants cannot be removed here today", false},
		{"multi sentence", "The host has muted everyone. Use raise hand to speak.", false},
		{"name with dot short", "J. Smith", true},
		{"very long", string(make([]byte, 101)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidParticipantName(tt.input); got != tt.want {
				t.Errorf("IsValidParticipantName(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanParticipantName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Alice Nguyen (You)", "Alice Nguyen"},
		{"Alice Nguyen (you)", "Alice Nguyen"},
		{"  Bob Tran  ", "Bob Tran"},
		{"Your microphone is off", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CleanParticipantName(tt.input); got != tt.want {
			t.Errorf("CleanParticipantName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestYouSuffix(t *testing.T) {
	if !HasYouSuffix("Meeting Bot (You)") {
		t.Error("expected (You) suffix to be detected")
	}
	if HasYouSuffix("Meeting Bot") {
		t.Error("did not expect a suffix on plain name")
	}
	if got := StripYouSuffix("Meeting Bot (you)"); got != "Meeting Bot" {
		t.Errorf("StripYouSuffix = %q, want %q", got, "Meeting Bot")
	}
}

func TestIsPlaceholderName(t *testing.T) {
	if !IsPlaceholderName("Participant 3") {
		t.Error("expected placeholder to be detected")
	}
	if IsPlaceholderName("Participant") || IsPlaceholderName("Alice Participant 3x") {
		t.Error("non-placeholder names misdetected")
	}
}
