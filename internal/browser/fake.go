package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// FakeSurface is an in-memory PageSurface returning scripted responses.
// Zero value is usable; all fields are optional.
type FakeSurface struct {
	mu sync.Mutex

	// Location is returned by URL and updated by Navigate.
	Location string
	// BodyText is returned by Text.
	BodyText string
	// Texts maps selector to the inner texts of its matches.
	Texts map[string][]string
	// Attrs maps "selector\x00attr" to attribute values.
	Attrs map[string][]string
	// EvalResults maps a script substring to its JSON result. The first
	// key found as a substring of the script wins.
	EvalResults map[string]json.RawMessage
	// NavErr, when set, is returned by Navigate.
	NavErr error

	// Clicked records selectors passed to Click, in order.
	Clicked []string
}

func (f *FakeSurface) Navigate(_ context.Context, url string) error {
	if f.NavErr != nil {
		return f.NavErr
	}
	f.mu.Lock()
	f.Location = url
	f.mu.Unlock()
	return nil
}

func (f *FakeSurface) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Location
}

func (f *FakeSurface) Text(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.BodyText, nil
}

func (f *FakeSurface) Has(_ context.Context, selector string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Texts[selector]) > 0, nil
}

func (f *FakeSurface) Count(_ context.Context, selector string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Texts[selector]), nil
}

func (f *FakeSurface) Click(_ context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Texts[selector]) == 0 {
		return fmt.Errorf("fake: no element matches %q", selector)
	}
	f.Clicked = append(f.Clicked, selector)
	return nil
}

func (f *FakeSurface) InnerText(_ context.Context, selector string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if texts := f.Texts[selector]; len(texts) > 0 {
		return texts[0], nil
	}
	return "", fmt.Errorf("fake: no element matches %q", selector)
}

func (f *FakeSurface) InnerTexts(_ context.Context, selector string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Texts[selector]...), nil
}

func (f *FakeSurface) Attribute(_ context.Context, selector, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if vals := f.Attrs[selector+"\x00"+name]; len(vals) > 0 {
		return vals[0], nil
	}
	return "", fmt.Errorf("fake: no attribute %q on %q", name, selector)
}

func (f *FakeSurface) Attributes(_ context.Context, selector, name string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Attrs[selector+"\x00"+name]...), nil
}

func (f *FakeSurface) EvaluateScript(_ context.Context, js string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub, res := range f.EvalResults {
		if sub != "" && strings.Contains(js, sub) {
			return res, nil
		}
	}
	return json.RawMessage("null"), nil
}

func (f *FakeSurface) Screenshot(context.Context) ([]byte, error) {
	return []byte("\x89PNG\r\n\x1a\n"), nil
}
