package roster

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nextlevelbuilder/meetwatch/internal/browser"
)

func TestExtractFromPanelText(t *testing.T) {
	page := &browser.FakeSurface{
		Texts: map[string][]string{
			`[role="listitem"]`: {
				"Alice Nguyen\nHost",
				"Meeting Bot (You)\nGuest",
				"Your microphone is off.",
			},
		},
	}

	x := &Extractor{}
	entries := x.Extract(context.Background(), page)

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}
	byName := make(map[string]Entry)
	for _, e := range entries {
		byName[e.Name] = e
	}
	if _, ok := byName["Alice Nguyen"]; !ok {
		t.Error("expected Alice Nguyen in roster")
	}
	bot, ok := byName["Meeting Bot"]
	if !ok {
		t.Fatal("expected Meeting Bot in roster")
	}
	if !bot.IsBot {
		t.Error("(You) suffix should mark the entry as bot")
	}
	if bot.OriginalName != "Meeting Bot (You)" {
		t.Errorf("original name lost: %q", bot.OriginalName)
	}
}

func TestExtractScriptFallback(t *testing.T) {
	scraped, _ := json.Marshal([]map[string]interface{}{
		{"name": "Carol Dao", "originalName": "Carol Dao", "isBot": false, "source": "contributors-section"},
	})
	page := &browser.FakeSurface{
		EvalResults: map[string]json.RawMessage{
			"CONTRIBUTORS": scraped,
		},
	}

	x := &Extractor{}
	entries := x.Extract(context.Background(), page)

	if len(entries) != 1 || entries[0].Name != "Carol Dao" {
		t.Fatalf("expected script fallback to find Carol Dao, got %+v", entries)
	}
}

func TestExtractBadgePlaceholders(t *testing.T) {
	page := &browser.FakeSurface{
		EvalResults: map[string]json.RawMessage{
			"peopleButton": json.RawMessage("3"),
		},
	}

	x := &Extractor{}
	entries := x.Extract(context.Background(), page)

	if len(entries) != 3 {
		t.Fatalf("expected 3 placeholders, got %d", len(entries))
	}
	for i, e := range entries {
		if !IsPlaceholderName(e.Name) {
			t.Errorf("entry %d is not a placeholder: %q", i, e.Name)
		}
		if e.Source != "badge_count_fallback" {
			t.Errorf("entry %d source = %q", i, e.Source)
		}
	}
}

func TestBadgeCountSelectorFallback(t *testing.T) {
	page := &browser.FakeSurface{
		Attrs: map[string][]string{
			`button[aria-label*="People" i]` + "\x00" + "aria-label": {"People (4)"},
		},
		Texts: map[string][]string{
			`button[aria-label*="People" i]`: {""},
		},
	}

	x := &Extractor{}
	if got := x.BadgeCount(context.Background(), page); got != 4 {
		t.Errorf("BadgeCount = %d, want 4", got)
	}
}
