package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const defaultOpTimeout = 10 * time.Second

// Page adapts a rod page to PageSurface.
type Page struct {
	page       *rod.Page
	navTimeout time.Duration
}

func newPage(p *rod.Page, navTimeout time.Duration) *Page {
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	return &Page{page: p, navTimeout: navTimeout}
}

// Rod exposes the underlying page for capture hooks.
func (p *Page) Rod() *rod.Page { return p.page }

func (p *Page) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx).Timeout(p.navTimeout)
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	return nil
}

func (p *Page) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *Page) Text(ctx context.Context) (string, error) {
	el, err := p.page.Context(ctx).Timeout(defaultOpTimeout).Element("body")
	if err != nil {
		return "", err
	}
	return el.Text()
}

func (p *Page) Has(ctx context.Context, selector string) (bool, error) {
	has, el, err := p.page.Context(ctx).Timeout(defaultOpTimeout).Has(selector)
	if err != nil || !has {
		return false, err
	}
	visible, err := el.Visible()
	if err != nil {
		return false, nil
	}
	return visible, nil
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	els, err := p.page.Context(ctx).Timeout(defaultOpTimeout).Elements(selector)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	pg := p.page.Context(ctx).Timeout(3 * time.Second)
	has, el, err := pg.Has(selector)
	if err != nil {
		return err
	}
	if !has {
		return fmt.Errorf("no element matches %q", selector)
	}
	if err := el.ScrollIntoView(); err == nil {
		// best effort; hidden elements still get the click attempt
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *Page) InnerText(ctx context.Context, selector string) (string, error) {
	el, err := p.page.Context(ctx).Timeout(defaultOpTimeout).Element(selector)
	if err != nil {
		return "", err
	}
	return el.Text()
}

func (p *Page) InnerTexts(ctx context.Context, selector string) ([]string, error) {
	els, err := p.page.Context(ctx).Timeout(defaultOpTimeout).Elements(selector)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(els))
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			continue
		}
		out = append(out, text)
	}
	return out, nil
}

func (p *Page) Attribute(ctx context.Context, selector, name string) (string, error) {
	el, err := p.page.Context(ctx).Timeout(defaultOpTimeout).Element(selector)
	if err != nil {
		return "", err
	}
	val, err := el.Attribute(name)
	if err != nil || val == nil {
		return "", fmt.Errorf("no attribute %q on %q", name, selector)
	}
	return *val, nil
}

func (p *Page) Attributes(ctx context.Context, selector, name string) ([]string, error) {
	els, err := p.page.Context(ctx).Timeout(defaultOpTimeout).Elements(selector)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, el := range els {
		val, err := el.Attribute(name)
		if err != nil || val == nil {
			continue
		}
		out = append(out, *val)
	}
	return out, nil
}

// EvaluateScript runs a JS function expression (e.g. "() => ...") and
// returns its JSON-encoded result.
func (p *Page) EvaluateScript(ctx context.Context, js string) (json.RawMessage, error) {
	res, err := p.page.Context(ctx).Timeout(defaultOpTimeout).Eval(js)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(res.Value)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Timeout(defaultOpTimeout).Screenshot(true, nil)
}

// Close closes the underlying browser page.
func (p *Page) Close() error {
	return p.page.Close()
}
