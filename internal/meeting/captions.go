package meeting

import (
	"context"
	"strings"
	"time"

	"github.com/nextlevelbuilder/meetwatch/internal/browser"
)

var gmeetCaptionSelectors = []string{
	`[class*="subtitle" i]`,
	`[class*="caption" i]`,
	`[id*="subtitle" i]`,
	`[id*="caption" i]`,
	`[data-caption-text]`,
	`div[role="log"]`,
}

var teamsCaptionSelectors = []string{
	`[class*="caption" i]`,
	`[class*="subtitle" i]`,
	`[data-tid*="caption" i]`,
	`[aria-label*="caption" i]`,
}

var gmeetCaptionButtonSelectors = []string{
	`[aria-label*="Turn on captions" i]`,
	`[data-tooltip="Turn on captions"]`,
	`button[data-tooltip*="captions" i]`,
	`button[aria-label*="CC" i]`,
	`[aria-label*="Captions" i]`,
}

// enableGmeetCaptions turns on closed captions in Google Meet. A
// control labelled "turn off" means captions are already on. Falls
// back to the Ctrl+Shift+C shortcut.
func enableGmeetCaptions(ctx context.Context, page browser.PageSurface) {
	if labels, err := page.Attributes(ctx, `[aria-label*="captions" i]`, "aria-label"); err == nil {
		for _, label := range labels {
			if strings.Contains(strings.ToLower(label), "turn off") {
				return // already enabled
			}
		}
	}
	if clickFirst(ctx, page, gmeetCaptionButtonSelectors) {
		sleep(ctx, time.Second)
		return
	}
	page.EvaluateScript(ctx, `document.dispatchEvent(new KeyboardEvent('keydown', {key: 'c', code: 'KeyC', ctrlKey: true, shiftKey: true, bubbles: true}))`)
}

// scrapeCaptions reads the currently visible caption text, returning
// trimmed, de-duplicated lines in display order.
func scrapeCaptions(ctx context.Context, page browser.PageSurface, selectors []string) []string {
	var lines []string
	seen := make(map[string]struct{})

	for _, sel := range selectors {
		texts, err := page.InnerTexts(ctx, sel)
		if err != nil {
			continue
		}
		for _, text := range texts {
			for _, line := range strings.Split(text, "\n") {
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if _, dup := seen[line]; dup {
					continue
				}
				seen[line] = struct{}{}
				lines = append(lines, line)
			}
		}
	}
	return lines
}
