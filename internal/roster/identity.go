package roster

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nextlevelbuilder/meetwatch/internal/browser"
)

// Resolver classifies roster entries as the bot's own row vs real users.
// Identifiers are lowercased process-level names the bot may appear as.
type Resolver struct {
	identifiers []string
}

func NewResolver(identifiers []string) *Resolver {
	lowered := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			lowered = append(lowered, id)
		}
	}
	return &Resolver{identifiers: lowered}
}

// Identifiers returns the resolver's identifier list.
func (r *Resolver) Identifiers() []string {
	return append([]string(nil), r.identifiers...)
}

// IsBot applies the classification rules in order, short-circuiting:
// extractor flag, "(you)" marker, session-detected self name, exact
// identifier match, then overlapping-substring identifier match.
func (r *Resolver) IsBot(e Entry, detectedBotName string) bool {
	if e.IsBot {
		return true
	}
	if HasYouSuffix(e.OriginalName) {
		return true
	}
	nameLower := strings.ToLower(strings.TrimSpace(e.Name))
	if detectedBotName != "" && nameLower == strings.ToLower(detectedBotName) {
		return true
	}
	for _, id := range r.identifiers {
		if nameLower == id {
			return true
		}
	}
	for _, id := range r.identifiers {
		if overlaps(nameLower, id) {
			return true
		}
	}
	return false
}

// overlaps reports a sufficiently strong substring match between a name
// and an identifier: one contains the other and the shorter is at least
// half the longer's length. Short identifiers are skipped.
func overlaps(name, id string) bool {
	if len(id) < 3 || name == "" {
		return false
	}
	if !strings.Contains(name, id) && !strings.Contains(id, name) {
		return false
	}
	shorter, longer := len(name), len(id)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	return shorter*2 >= longer
}

// DetectSelfName runs one extraction pass shortly after joining and
// returns the cleaned name of the entry carrying a positive self signal
// (extractor flag or "(you)" marker). Empty when no such row appears.
func (r *Resolver) DetectSelfName(ctx context.Context, x *Extractor, page browser.PageSurface, settle time.Duration) string {
	select {
	case <-time.After(settle):
	case <-ctx.Done():
		return ""
	}

	for _, e := range x.Extract(ctx, page) {
		if e.IsBot || HasYouSuffix(e.OriginalName) {
			slog.Info("detected bot self name", "name", e.Name)
			return e.Name
		}
	}
	slog.Debug("no self-marked roster entry found")
	return ""
}
