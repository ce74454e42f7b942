package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/nextlevelbuilder/meetwatch/internal/browser"
	"github.com/nextlevelbuilder/meetwatch/pkg/protocol"
)

// Entry is one extracted roster candidate.
type Entry struct {
	Name         string
	OriginalName string
	IsBot        bool
	Role         string
	IsSpeaking   bool
	Source       string
}

// Snapshot converts an entry to its wire form.
func (e Entry) Snapshot() protocol.ParticipantSnapshot {
	return protocol.ParticipantSnapshot{
		Name:         e.Name,
		OriginalName: e.OriginalName,
		IsBot:        e.IsBot,
		Role:         e.Role,
		IsSpeaking:   e.IsSpeaking,
	}
}

// Extractor reads the live participant roster from the meeting DOM.
// Layered fallbacks are unioned, deduplicated by cleaned name, and
// filtered through the name validator.
type Extractor struct{}

var digits = regexp.MustCompile(`\d+`)

// Extract returns all visible participants. When the badge hint reports
// N people but no name survives extraction, N anonymous placeholders are
// synthesized so the meeting is not misread as empty.
func (x *Extractor) Extract(ctx context.Context, page browser.PageSurface) []Entry {
	x.ensurePanelOpen(ctx, page)

	badge := x.BadgeCount(ctx, page)

	var all []Entry
	seen := make(map[string]struct{})
	add := func(entries []Entry) {
		for _, e := range entries {
			key := strings.ToLower(e.Name)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			if !e.IsBot && !IsValidParticipantName(e.Name) {
				continue
			}
			seen[key] = struct{}{}
			all = append(all, e)
		}
	}

	add(x.extractViaSelfNameAttr(ctx, page))
	add(x.extractViaPanelText(ctx, page))
	if len(all) == 0 || (badge > 0 && badge > len(all)) {
		add(x.extractViaScript(ctx, page))
	}

	if badge > 0 && len(all) == 0 {
		slog.Error("roster badge disagrees with extraction, synthesizing placeholders",
			"badge_count", badge)
		for i := 1; i <= badge; i++ {
			all = append(all, Entry{
				Name:         fmt.Sprintf("Participant %d", i),
				OriginalName: fmt.Sprintf("Participant %d", i),
				Role:         "guest",
				Source:       "badge_count_fallback",
			})
		}
	}

	slog.Debug("roster extracted", "count", len(all), "badge_count", badge)
	return all
}

// BadgeCount reads the numeric participant badge near the roster
// affordance. Zero means unknown.
func (x *Extractor) BadgeCount(ctx context.Context, page browser.PageSurface) int {
	res, err := page.EvaluateScript(ctx, badgeCountScript)
	if err == nil {
		var n int
		if json.Unmarshal(res, &n) == nil && n > 0 {
			return n
		}
	}

	// Selector fallback: scan button labels for a count.
	for _, sel := range []string{
		`button[aria-label*="People" i]`,
		`button[aria-label*="participant" i]`,
		`[data-participant-count]`,
	} {
		label, err := page.Attribute(ctx, sel, "aria-label")
		if err != nil {
			continue
		}
		text, _ := page.InnerText(ctx, sel)
		if m := digits.FindString(label + " " + text); m != "" {
			if n, err := strconv.Atoi(m); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

func (x *Extractor) ensurePanelOpen(ctx context.Context, page browser.PageSurface) {
	open, _ := page.Has(ctx, `[aria-label*="People" i][role="dialog"]`)
	if open {
		return
	}
	for _, sel := range []string{
		`[aria-label*="Show everyone" i]`,
		`button[aria-label*="People" i]`,
		`button[data-tooltip*="People" i]`,
	} {
		if err := page.Click(ctx, sel); err == nil {
			return
		}
	}
}

// extractViaScript is the primary path: one DOM walk collecting
// candidates from roster list items.
func (x *Extractor) extractViaScript(ctx context.Context, page browser.PageSurface) []Entry {
	res, err := page.EvaluateScript(ctx, rosterScrapeScript)
	if err != nil {
		slog.Debug("script extraction failed", "error", err)
		return nil
	}

	var raw []struct {
		Name         string `json:"name"`
		OriginalName string `json:"originalName"`
		IsBot        bool   `json:"isBot"`
		Source       string `json:"source"`
	}
	if err := json.Unmarshal(res, &raw); err != nil {
		slog.Debug("script extraction returned malformed result", "error", err)
		return nil
	}

	entries := make([]Entry, 0, len(raw))
	for _, r := range raw {
		entries = append(entries, Entry{
			Name:         r.Name,
			OriginalName: r.OriginalName,
			IsBot:        r.IsBot,
			Role:         "guest",
			Source:       r.Source,
		})
	}
	return entries
}

// extractViaSelfNameAttr enumerates nodes carrying the self-name data
// attribute directly.
func (x *Extractor) extractViaSelfNameAttr(ctx context.Context, page browser.PageSurface) []Entry {
	names, err := page.Attributes(ctx, `[role="listitem"] [data-self-name], [data-self-name]`, "data-self-name")
	if err != nil {
		return nil
	}
	var entries []Entry
	for _, raw := range names {
		e, ok := entryFromRaw(raw, "data-self-name")
		if ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// extractViaPanelText walks roster rows reading the first name-like
// line of each.
func (x *Extractor) extractViaPanelText(ctx context.Context, page browser.PageSurface) []Entry {
	texts, err := page.InnerTexts(ctx, `[role="listitem"]`)
	if err != nil {
		return nil
	}
	var entries []Entry
	for _, text := range texts {
		lines := strings.Split(text, "\n")
		var first string
		for _, l := range lines {
			if s := strings.TrimSpace(l); s != "" {
				first = s
				break
			}
		}
		if first == "" || len(first) >= 100 {
			continue
		}
		e, ok := entryFromRaw(first, "listitem-text")
		if ok {
			entries = append(entries, e)
		}
	}
	return entries
}

func entryFromRaw(raw, source string) (Entry, bool) {
	original := strings.TrimSpace(raw)
	if original == "" {
		return Entry{}, false
	}
	isBot := HasYouSuffix(original)
	name := StripYouSuffix(original)
	if len(name) < 2 {
		return Entry{}, false
	}
	return Entry{
		Name:         name,
		OriginalName: original,
		IsBot:        isBot,
		Role:         "guest",
		Source:       source,
	}, true
}
