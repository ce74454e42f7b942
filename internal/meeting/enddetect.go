package meeting

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nextlevelbuilder/meetwatch/internal/browser"
	"github.com/nextlevelbuilder/meetwatch/internal/roster"
)

// EndReason says why a meeting was considered over.
type EndReason string

const (
	EndMeetingOver  EndReason = "meeting_ended"
	EndDisconnected EndReason = "disconnected"
	EndEmpty        EndReason = "empty_meeting"
)

const (
	defaultPollInterval  = 5 * time.Second
	emptyChecksRequired  = 3
	emptyConfirmWait     = 15 * time.Second
	disconnectRecheckGap = 10 * time.Second
)

var disconnectIndicators = []string{
	"trying to reconnect",
	"connection lost",
	"disconnected",
	"reconnecting",
	"network error",
}

var emptyTextIndicators = []string{
	"you're the only one",
	"you are the only one",
	"waiting for others",
	"no one else is here",
}

// Detector watches a live meeting page and returns when the meeting is
// over: the platform shows an end surface, the connection is lost, or
// the bot is alone. The empty case is the fragile one and uses two
// tiers of hysteresis so a flaky roster read never ends a live call.
type Detector struct {
	Flow      Flow
	Extractor *roster.Extractor
	Resolver  *roster.Resolver
	Snapshots SnapshotSaver

	MeetingID string
	SessionID string

	// DetectedBotName returns the session's bound self-name, which may
	// be set after the detector starts.
	DetectedBotName func() string

	// PollInterval, ConfirmWait, and DisconnectWait override the
	// defaults, for tests.
	PollInterval   time.Duration
	ConfirmWait    time.Duration
	DisconnectWait time.Duration
}

// Wait blocks until the meeting ends or ctx is cancelled. Returns the
// reason, or "" on cancellation. On a detected end it attempts a clean
// leave via the platform's control.
func (d *Detector) Wait(ctx context.Context, page browser.PageSurface) EndReason {
	log := slog.With("meeting_id", d.MeetingID, "session_id", d.SessionID)
	interval := d.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	confirmWait := d.ConfirmWait
	if confirmWait <= 0 {
		confirmWait = emptyConfirmWait
	}
	disconnectWait := d.DisconnectWait
	if disconnectWait <= 0 {
		disconnectWait = disconnectRecheckGap
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	emptyStreak := 0
	for {
		select {
		case <-ctx.Done():
			return ""
		case <-ticker.C:
		}

		if d.Flow.Ended(ctx, page) {
			log.Info("meeting end surface detected")
			d.Flow.Leave(ctx, page)
			return EndMeetingOver
		}

		if d.disconnected(ctx, page) {
			log.Warn("disconnection indicator seen, rechecking", "wait", disconnectWait)
			sleep(ctx, disconnectWait)
			if ctx.Err() != nil {
				return ""
			}
			if d.disconnected(ctx, page) {
				d.snapshot(ctx, page, "disconnected")
				log.Warn("still disconnected, ending session")
				return EndDisconnected
			}
			log.Info("connection recovered")
			continue
		}

		if !d.empty(ctx, page) {
			emptyStreak = 0
			continue
		}
		emptyStreak++
		log.Debug("meeting appears empty", "streak", emptyStreak)
		if emptyStreak < emptyChecksRequired {
			continue
		}

		// Tier 2: sit out the confirmation window, then re-extract.
		log.Info("empty meeting suspected, confirming", "wait", confirmWait)
		sleep(ctx, confirmWait)
		if ctx.Err() != nil {
			return ""
		}
		if d.empty(ctx, page) {
			d.snapshot(ctx, page, "empty_meeting")
			log.Info("empty meeting confirmed, leaving")
			d.Flow.Leave(ctx, page)
			return EndEmpty
		}
		log.Info("empty meeting not confirmed, staying")
		emptyStreak = 0
	}
}

func (d *Detector) disconnected(ctx context.Context, page browser.PageSurface) bool {
	content := pageTextLower(ctx, page)
	for _, indicator := range disconnectIndicators {
		if strings.Contains(content, indicator) {
			return true
		}
	}
	return false
}

func (d *Detector) empty(ctx context.Context, page browser.PageSurface) bool {
	detected := ""
	if d.DetectedBotName != nil {
		detected = d.DetectedBotName()
	}
	return IsMeetingEmpty(ctx, page, d.Extractor, d.Resolver, detected)
}

func (d *Detector) snapshot(ctx context.Context, page browser.PageSurface, name string) {
	saveFailureSnapshot(ctx, page, d.Snapshots, d.SessionID, name)
}

// IsMeetingEmpty reports whether the bot is the only remaining
// participant. All conditions must hold: the badge hint shows at most
// one person, the roster scrape yields at most one row, no row is a
// real participant, and a lone surviving row is the bot itself.
func IsMeetingEmpty(ctx context.Context, page browser.PageSurface, x *roster.Extractor, r *roster.Resolver, detectedBotName string) bool {
	if badge := x.BadgeCount(ctx, page); badge > 1 {
		return false
	}
	entries := x.Extract(ctx, page)
	if len(entries) > 1 {
		return false
	}
	for _, e := range entries {
		if !r.IsBot(e, detectedBotName) {
			return false
		}
	}
	return true
}

// OnlyOneTextIndicator reports whether the page carries a textual
// "alone in the meeting" hint. Advisory; the roster conjunction above
// is what decides.
func OnlyOneTextIndicator(ctx context.Context, page browser.PageSurface) bool {
	content := pageTextLower(ctx, page)
	for _, indicator := range emptyTextIndicators {
		if strings.Contains(content, indicator) {
			return true
		}
	}
	return false
}
