package meeting

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/nextlevelbuilder/meetwatch/internal/browser"
)

// Platform identifies a supported meeting product.
type Platform string

const (
	PlatformTeams Platform = "teams"
	PlatformGmeet Platform = "gmeet"
)

var (
	teamsURLRe = regexp.MustCompile(`(?i)^https://teams\.microsoft\.com/.*`)
	gmeetURLRe = regexp.MustCompile(`(?i)^https://meet\.google\.com/.*`)
)

// ParsePlatform validates a platform string from the API.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformTeams, PlatformGmeet:
		return Platform(s), nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// ValidateURL checks a meeting URL against the platform's host pattern.
func ValidateURL(p Platform, meetingURL string) error {
	switch p {
	case PlatformTeams:
		if !teamsURLRe.MatchString(meetingURL) {
			return fmt.Errorf("invalid Teams meeting URL")
		}
	case PlatformGmeet:
		if !gmeetURLRe.MatchString(meetingURL) {
			return fmt.Errorf("invalid Google Meet URL")
		}
	default:
		return fmt.Errorf("unknown platform %q", p)
	}
	return nil
}

// SnapshotSaver persists failure screenshots. Satisfied by the local
// artifact store.
type SnapshotSaver interface {
	SaveSnapshot(sessionID, name string, png []byte) (string, error)
}

// Flow is the platform-specific page contract. Join returns once the
// page is in an admitted state: fully in the meeting, or parked in a
// waiting room pending host approval.
type Flow interface {
	Platform() Platform
	Join(ctx context.Context, page browser.PageSurface, meetingURL string) error
	EnableCaptions(ctx context.Context, page browser.PageSurface)
	CaptionLines(ctx context.Context, page browser.PageSurface) []string
	Ended(ctx context.Context, page browser.PageSurface) bool
	Leave(ctx context.Context, page browser.PageSurface)
}

// FlowFor builds the flow for a platform. Snapshots may be nil, in
// which case failure screenshots are skipped.
func FlowFor(p Platform, meetingID, sessionID string, snapshots SnapshotSaver) (Flow, error) {
	switch p {
	case PlatformGmeet:
		return &GmeetFlow{MeetingID: meetingID, SessionID: sessionID, Snapshots: snapshots}, nil
	case PlatformTeams:
		return &TeamsFlow{MeetingID: meetingID, SessionID: sessionID, Snapshots: snapshots}, nil
	}
	return nil, fmt.Errorf("unknown platform %q", p)
}

// clickByText clicks the first button-like element whose visible text
// or label contains want (and not avoid, when given). Used where no
// stable selector exists.
func clickByText(ctx context.Context, page browser.PageSurface, want, avoid string) bool {
	script := fmt.Sprintf(`(() => {
	const want = %q.toLowerCase();
	const avoid = %q.toLowerCase();
	const nodes = document.querySelectorAll('button, a, [role="button"]');
	for (const n of nodes) {
		const t = ((n.innerText || '') + ' ' + (n.getAttribute('aria-label') || '')).trim().toLowerCase();
		if (!t || !t.includes(want)) continue;
		if (avoid && t.includes(avoid)) continue;
		n.click();
		return true;
	}
	return false;
})()`, want, avoid)

	res, err := page.EvaluateScript(ctx, script)
	if err != nil {
		return false
	}
	return string(res) == "true"
}

// clickFirst tries selectors in order until one click lands.
func clickFirst(ctx context.Context, page browser.PageSurface, selectors []string) bool {
	for _, sel := range selectors {
		if err := page.Click(ctx, sel); err == nil {
			return true
		}
	}
	return false
}

func pageTextLower(ctx context.Context, page browser.PageSurface) string {
	text, err := page.Text(ctx)
	if err != nil {
		return ""
	}
	return strings.ToLower(text)
}
