package meeting

import "testing"

func TestParsePlatform(t *testing.T) {
	if p, err := ParsePlatform("gmeet"); err != nil || p != PlatformGmeet {
		t.Errorf("ParsePlatform(gmeet) = %v, %v", p, err)
	}
	if p, err := ParsePlatform("teams"); err != nil || p != PlatformTeams {
		t.Errorf("ParsePlatform(teams) = %v, %v", p, err)
	}
	if _, err := ParsePlatform("zoom"); err == nil {
		t.Error("expected error for unknown platform")
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name     string
		platform Platform
		url      string
		wantErr  bool
	}{
		{"gmeet ok", PlatformGmeet, "https://meet.google.com/abc-defg-hij", false},
		{"gmeet uppercase host", PlatformGmeet, "HTTPS://MEET.GOOGLE.COM/abc-defg-hij", false},
		{"gmeet wrong host", PlatformGmeet, "https://meet.example.com/abc", true},
		{"gmeet plain http", PlatformGmeet, "http://meet.google.com/abc", true},
		{"gmeet empty", PlatformGmeet, "", true},
		{"teams ok", PlatformTeams, "https://teams.microsoft.com/l/meetup-join/xyz", false},
		{"teams wrong host", PlatformTeams, "https://teams.live.com/meet/xyz", true},
		{"teams gmeet url", PlatformTeams, "https://meet.google.com/abc-defg-hij", true},
		{"gmeet teams url", PlatformGmeet, "https://teams.microsoft.com/l/meetup-join/xyz", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.platform, tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%v, %q) err = %v, wantErr %v", tt.platform, tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestFlowFor(t *testing.T) {
	g, err := FlowFor(PlatformGmeet, "m1", "s1", nil)
	if err != nil || g.Platform() != PlatformGmeet {
		t.Errorf("FlowFor(gmeet) = %v, %v", g, err)
	}
	tm, err := FlowFor(PlatformTeams, "m1", "s1", nil)
	if err != nil || tm.Platform() != PlatformTeams {
		t.Errorf("FlowFor(teams) = %v, %v", tm, err)
	}
	if _, err := FlowFor("webex", "m1", "s1", nil); err == nil {
		t.Error("expected error for unknown platform")
	}
}
