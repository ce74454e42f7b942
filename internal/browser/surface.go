package browser

import (
	"context"
	"encoding/json"
)

// PageSurface is the narrow view of a browser page the meeting logic
// drives. The rod-backed implementation talks to a real page; tests use
// FakeSurface with scripted responses.
type PageSurface interface {
	// Navigate loads a URL and waits for the DOM to be ready.
	Navigate(ctx context.Context, url string) error
	// URL returns the page's current location.
	URL() string
	// Text returns the page's visible body text.
	Text(ctx context.Context) (string, error)
	// Has reports whether a visible element matches the selector.
	Has(ctx context.Context, selector string) (bool, error)
	// Count returns the number of elements matching the selector.
	Count(ctx context.Context, selector string) (int, error)
	// Click clicks the first visible element matching the selector.
	Click(ctx context.Context, selector string) error
	// InnerText returns the text of the first match.
	InnerText(ctx context.Context, selector string) (string, error)
	// InnerTexts returns the text of every match.
	InnerTexts(ctx context.Context, selector string) ([]string, error)
	// Attribute returns the named attribute of the first match.
	Attribute(ctx context.Context, selector, name string) (string, error)
	// Attributes returns the named attribute of every match that has it.
	Attributes(ctx context.Context, selector, name string) ([]string, error)
	// EvaluateScript runs a JS expression and returns its JSON result.
	EvaluateScript(ctx context.Context, js string) (json.RawMessage, error)
	// Screenshot captures a full-page PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}
