package meeting

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nextlevelbuilder/meetwatch/internal/browser"
)

// GmeetFlow joins Google Meet meetings. It prefers "Join now", accepts
// "Ask to join" (waiting room), and fails with a classified JoinError
// plus a screenshot otherwise.
type GmeetFlow struct {
	MeetingID string
	SessionID string
	Snapshots SnapshotSaver
}

func (f *GmeetFlow) Platform() Platform { return PlatformGmeet }

var gmeetJoinNowSelectors = []string{
	`[aria-label*="Join now"]`,
	`[aria-label*="Join meeting"]`,
	`[jsname="Qx7uuf"]`,
	`button[data-tooltip*="Join now"]`,
}

var gmeetAskToJoinSelectors = []string{
	`[aria-label*="Ask to join"]`,
	`button[aria-label*="ask to join" i]`,
}

var gmeetMicOffSelectors = []string{
	`[aria-label*="Turn off microphone"]`,
	`button[data-is-muted="false"][aria-label*="microphone" i]`,
}

var gmeetCamOffSelectors = []string{
	`[aria-label*="Turn off camera"]`,
	`button[data-is-muted="false"][aria-label*="camera" i]`,
}

var gmeetInMeetingIndicators = []string{
	"turn off microphone",
	"turn off camera",
	"leave call",
	"present now",
}

var gmeetWaitingRoomIndicators = []string{
	"still trying to get in",
	"waiting for someone to let you in",
}

var gmeetEndIndicators = []string{
	"you left the meeting",
	"meeting ended",
	"the meeting has ended",
	"everyone has left",
	"call ended",
	"meeting was ended",
}

var gmeetEndSelectors = []string{
	`[data-message="You left the meeting"]`,
	`[aria-label*="meeting ended" i]`,
	`[class*="end-screen" i]`,
	`[class*="left-meeting" i]`,
}

var gmeetLeaveSelectors = []string{
	`[aria-label*="Leave call" i]`,
	`[aria-label*="Leave meeting" i]`,
	`button[jsname="CQylAd"]`,
	`[data-tooltip*="Leave" i]`,
}

func (f *GmeetFlow) Join(ctx context.Context, page browser.PageSurface, meetingURL string) error {
	log := slog.With("meeting_id", f.MeetingID, "session_id", f.SessionID)

	if err := page.Navigate(ctx, meetingURL); err != nil {
		return f.fail(ctx, page, joinErr(ReasonNavigationFailed, "navigate: %v", err))
	}
	sleep(ctx, 3*time.Second)

	if err := f.checkLoginState(ctx, page); err != nil {
		return f.fail(ctx, page, err)
	}
	f.handlePrejoinDialog(ctx, page)
	f.ensureDevicesOff(ctx, page)

	if err := f.clickJoin(ctx, page, log); err != nil {
		return f.fail(ctx, page, err)
	}
	sleep(ctx, 3*time.Second)

	if err := f.validateAdmitted(ctx, page, log); err != nil {
		return f.fail(ctx, page, err)
	}
	log.Info("joined google meet", "url", page.URL())
	return nil
}

// checkLoginState fails fast when the profile is signed out or the
// meeting surface says we cannot get in.
func (f *GmeetFlow) checkLoginState(ctx context.Context, page browser.PageSurface) error {
	url := strings.ToLower(page.URL())
	content := pageTextLower(ctx, page)

	if strings.Contains(url, "servicelogin") ||
		strings.Contains(url, "accounts.google.com/signin") ||
		(strings.Contains(content, "sign in") && strings.Contains(content, "google")) {
		return joinErr(ReasonNotAuthenticated, "profile requires Google sign-in")
	}

	if strings.Contains(content, "can't join") {
		detail := f.visibleError(ctx, page)
		if strings.Contains(strings.ToLower(detail), "sign in") {
			return joinErr(ReasonNotAuthenticated, "blocked: %s", detail)
		}
		return joinErr(ReasonMeetingInaccessible, "blocked: %s", detail)
	}
	return nil
}

// handlePrejoinDialog dismisses the mic/camera permission prompt,
// preferring the microphone-only grant.
func (f *GmeetFlow) handlePrejoinDialog(ctx context.Context, page browser.PageSurface) {
	content := pageTextLower(ctx, page)
	if !strings.Contains(content, "do you want people to hear you") {
		return
	}
	for _, label := range []string{"microphone allowed", "camera and microphone allowed", "allow"} {
		if clickByText(ctx, page, label, "") {
			sleep(ctx, 2*time.Second)
			return
		}
	}
	clickFirst(ctx, page, []string{`[aria-label="Close"]`, `[aria-label*="Dismiss"]`})
}

func (f *GmeetFlow) ensureDevicesOff(ctx context.Context, page browser.PageSurface) {
	if clickFirst(ctx, page, gmeetMicOffSelectors) {
		sleep(ctx, 500*time.Millisecond)
	}
	if clickFirst(ctx, page, gmeetCamOffSelectors) {
		sleep(ctx, 500*time.Millisecond)
	}
}

func (f *GmeetFlow) clickJoin(ctx context.Context, page browser.PageSurface, log *slog.Logger) error {
	if clickByText(ctx, page, "join now", "leave") || clickFirst(ctx, page, gmeetJoinNowSelectors) {
		log.Info("clicked join now")
		return nil
	}
	if clickByText(ctx, page, "ask to join", "") || clickFirst(ctx, page, gmeetAskToJoinSelectors) {
		log.Info("clicked ask to join, host approval required")
		return nil
	}
	// Any button mentioning join, as long as it is not a leave control.
	if clickByText(ctx, page, "join", "leave") {
		log.Info("clicked generic join button")
		return nil
	}
	return joinErr(ReasonNoJoinButton, "no join button found")
}

// validateAdmitted accepts two states: in-meeting UI visible, or the
// waiting room. Landing off the Meet host is a hard failure.
func (f *GmeetFlow) validateAdmitted(ctx context.Context, page browser.PageSurface, log *slog.Logger) error {
	sleep(ctx, 2*time.Second)

	if !strings.Contains(strings.ToLower(page.URL()), "meet.google.com") {
		return joinErr(ReasonRedirected, "navigated away from Google Meet: %s", page.URL())
	}

	content := pageTextLower(ctx, page)
	for _, indicator := range gmeetInMeetingIndicators {
		if strings.Contains(content, indicator) {
			return nil
		}
	}
	for _, indicator := range gmeetWaitingRoomIndicators {
		if strings.Contains(content, indicator) {
			log.Info("in waiting room, waiting for host to admit")
			return nil
		}
	}
	// On the meet page with an unclear state; the UI may still be
	// settling. The end detector takes over from here.
	return nil
}

func (f *GmeetFlow) visibleError(ctx context.Context, page browser.PageSurface) string {
	for _, sel := range []string{`[role="alert"]`, `[class*="error" i]`} {
		if text, err := page.InnerText(ctx, sel); err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	return "unknown error"
}

func (f *GmeetFlow) EnableCaptions(ctx context.Context, page browser.PageSurface) {
	enableGmeetCaptions(ctx, page)
}

func (f *GmeetFlow) CaptionLines(ctx context.Context, page browser.PageSurface) []string {
	return scrapeCaptions(ctx, page, gmeetCaptionSelectors)
}

func (f *GmeetFlow) Ended(ctx context.Context, page browser.PageSurface) bool {
	if !strings.Contains(strings.ToLower(page.URL()), "meet.google.com") {
		return true
	}
	content := pageTextLower(ctx, page)
	for _, phrase := range gmeetEndIndicators {
		if strings.Contains(content, phrase) {
			return true
		}
	}
	for _, sel := range gmeetEndSelectors {
		if has, _ := page.Has(ctx, sel); has {
			return true
		}
	}
	return false
}

func (f *GmeetFlow) Leave(ctx context.Context, page browser.PageSurface) {
	if clickFirst(ctx, page, gmeetLeaveSelectors) {
		sleep(ctx, 2*time.Second)
	}
}

// fail captures a screenshot and attaches its path to the error.
func (f *GmeetFlow) fail(ctx context.Context, page browser.PageSurface, err error) error {
	je, ok := err.(*JoinError)
	if !ok {
		return err
	}
	je.SnapshotPath = saveFailureSnapshot(ctx, page, f.Snapshots, f.SessionID, string(je.Reason))
	return je
}

func saveFailureSnapshot(ctx context.Context, page browser.PageSurface, snapshots SnapshotSaver, sessionID, name string) string {
	if snapshots == nil {
		return ""
	}
	png, err := page.Screenshot(ctx)
	if err != nil {
		return ""
	}
	path, err := snapshots.SaveSnapshot(sessionID, name, png)
	if err != nil {
		slog.Warn("could not save failure snapshot", "session_id", sessionID, "error", err)
		return ""
	}
	return path
}

// sleep waits without outliving the context.
func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
