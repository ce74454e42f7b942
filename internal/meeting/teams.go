package meeting

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nextlevelbuilder/meetwatch/internal/browser"
)

// TeamsFlow joins Microsoft Teams meetings through the web client,
// steering past the app-launch interstitial.
type TeamsFlow struct {
	MeetingID string
	SessionID string
	Snapshots SnapshotSaver
}

func (f *TeamsFlow) Platform() Platform { return PlatformTeams }

var teamsBrowserSelectors = []string{
	`[aria-label*="Continue on this browser" i]`,
	`[data-tid="joinOnWeb"]`,
}

var teamsMicSelectors = []string{
	`button[data-tid="prejoin-toggle-mute"]`,
	`[data-tid="toggle-mute"]`,
	`[aria-label*="Mute" i]`,
	`[aria-label*="Microphone" i]`,
}

var teamsCamSelectors = []string{
	`button[data-tid="prejoin-toggle-video"]`,
	`[data-tid="toggle-video"]`,
	`[aria-label*="Turn camera off" i]`,
	`[aria-label*="Camera" i]`,
}

var teamsJoinSelectors = []string{
	`[data-tid="prejoin-join-button"]`,
	`[aria-label*="Join now" i]`,
	`[aria-label*="Join meeting" i]`,
}

var teamsWaitingRoomIndicators = []string{
	"someone in the meeting should let you in",
	"waiting for others to join",
	"when the meeting starts, we'll let people know you're waiting",
}

var teamsEndIndicators = []string{
	"call ended",
	"meeting ended",
	"you left the meeting",
	"the call has ended",
	"everyone has left",
}

var teamsEndSelectors = []string{
	`[data-tid="call-ended"]`,
	`[aria-label*="call ended" i]`,
	`[class*="call-ended" i]`,
}

var teamsLeaveSelectors = []string{
	`[data-tid="call-hangup"]`,
	`[aria-label*="Leave" i]`,
	`[aria-label*="Hang up" i]`,
}

func (f *TeamsFlow) Join(ctx context.Context, page browser.PageSurface, meetingURL string) error {
	log := slog.With("meeting_id", f.MeetingID, "session_id", f.SessionID)

	if err := page.Navigate(ctx, meetingURL); err != nil {
		return f.fail(ctx, page, joinErr(ReasonNavigationFailed, "navigate: %v", err))
	}
	sleep(ctx, 3*time.Second)

	// Interstitial offering the desktop app. Stay in the browser.
	if clickByText(ctx, page, "continue on this browser", "") || clickFirst(ctx, page, teamsBrowserSelectors) {
		log.Info("continuing in browser")
		sleep(ctx, 3*time.Second)
	}

	if err := f.checkAccess(ctx, page); err != nil {
		return f.fail(ctx, page, err)
	}
	f.ensureDevicesOff(ctx, page)

	if !f.clickJoin(ctx, page, log) {
		return f.fail(ctx, page, joinErr(ReasonNoJoinButton, "no join button found"))
	}
	sleep(ctx, 3*time.Second)

	if err := f.validateAdmitted(ctx, page, log); err != nil {
		return f.fail(ctx, page, err)
	}
	log.Info("joined teams meeting", "url", page.URL())
	return nil
}

func (f *TeamsFlow) checkAccess(ctx context.Context, page browser.PageSurface) error {
	content := pageTextLower(ctx, page)
	if strings.Contains(content, "sign in to join") || strings.Contains(content, "sign in to continue") {
		return joinErr(ReasonNotAuthenticated, "meeting requires a signed-in account")
	}
	if strings.Contains(content, "meeting not found") || strings.Contains(content, "link is invalid") {
		return joinErr(ReasonMeetingInaccessible, "meeting link rejected")
	}
	return nil
}

func (f *TeamsFlow) ensureDevicesOff(ctx context.Context, page browser.PageSurface) {
	if clickFirst(ctx, page, teamsMicSelectors) {
		sleep(ctx, 500*time.Millisecond)
	}
	if clickFirst(ctx, page, teamsCamSelectors) {
		sleep(ctx, 500*time.Millisecond)
	}
}

func (f *TeamsFlow) clickJoin(ctx context.Context, page browser.PageSurface, log *slog.Logger) bool {
	if clickFirst(ctx, page, teamsJoinSelectors) {
		log.Info("clicked teams join button")
		return true
	}
	if clickByText(ctx, page, "join now", "leave") || clickByText(ctx, page, "join", "leave") {
		log.Info("clicked teams join button by text")
		return true
	}
	return false
}

// validateAdmitted accepts an in-call URL, in-call controls, or the
// Teams lobby.
func (f *TeamsFlow) validateAdmitted(ctx context.Context, page browser.PageSurface, log *slog.Logger) error {
	sleep(ctx, 2*time.Second)

	url := strings.ToLower(page.URL())
	if !strings.Contains(url, "teams.microsoft.com") {
		return joinErr(ReasonRedirected, "navigated away from Teams: %s", page.URL())
	}
	if strings.Contains(url, "/call/") {
		return nil
	}

	if has, _ := page.Has(ctx, `[data-tid="call-hangup"]`); has {
		return nil
	}
	content := pageTextLower(ctx, page)
	for _, indicator := range teamsWaitingRoomIndicators {
		if strings.Contains(content, indicator) {
			log.Info("in teams lobby, waiting for admission")
			return nil
		}
	}
	return nil
}

func (f *TeamsFlow) EnableCaptions(ctx context.Context, page browser.PageSurface) {
	// Teams web surfaces captions behind More actions; best effort only.
	if clickByText(ctx, page, "more", "") {
		sleep(ctx, time.Second)
		clickByText(ctx, page, "turn on live captions", "")
	}
}

func (f *TeamsFlow) CaptionLines(ctx context.Context, page browser.PageSurface) []string {
	return scrapeCaptions(ctx, page, teamsCaptionSelectors)
}

func (f *TeamsFlow) Ended(ctx context.Context, page browser.PageSurface) bool {
	url := strings.ToLower(page.URL())
	if !strings.Contains(url, "teams.microsoft.com") || !strings.Contains(url, "/call/") {
		return true
	}
	content := pageTextLower(ctx, page)
	for _, phrase := range teamsEndIndicators {
		if strings.Contains(content, phrase) {
			return true
		}
	}
	for _, sel := range teamsEndSelectors {
		if has, _ := page.Has(ctx, sel); has {
			return true
		}
	}
	return false
}

func (f *TeamsFlow) Leave(ctx context.Context, page browser.PageSurface) {
	if clickFirst(ctx, page, teamsLeaveSelectors) {
		sleep(ctx, 2*time.Second)
	}
}

func (f *TeamsFlow) fail(ctx context.Context, page browser.PageSurface, err error) error {
	je, ok := err.(*JoinError)
	if !ok {
		return err
	}
	je.SnapshotPath = saveFailureSnapshot(ctx, page, f.Snapshots, f.SessionID, string(je.Reason))
	return je
}
