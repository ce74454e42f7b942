package browser

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/nextlevelbuilder/meetwatch/internal/config"
)

// Pool keeps one long-lived persistent browser per profile. Profiles are
// never held by two sessions at once (the registry guarantees that), so
// contexts need no internal locking beyond the pool map.
type Pool struct {
	mu           sync.Mutex
	cfg          config.BrowserConfig
	profilesRoot string

	browsers  map[string]*rod.Browser
	launchers map[string]*launcher.Launcher
	inUse     map[string]bool
}

func NewPool(cfg config.BrowserConfig, profilesRoot string) *Pool {
	return &Pool{
		cfg:          cfg,
		profilesRoot: profilesRoot,
		browsers:     make(map[string]*rod.Browser),
		launchers:    make(map[string]*launcher.Launcher),
		inUse:        make(map[string]bool),
	}
}

// PageForProfile yields a fresh stealth-prepared page on the profile's
// persistent context. The returned release func closes the page and
// marks the context free.
func (p *Pool) PageForProfile(ctx context.Context, profile string) (*Page, func(), error) {
	browser, err := p.browserFor(ctx, profile)
	if err != nil {
		return nil, nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, nil, fmt.Errorf("open page: %w", err)
	}

	_, err = proto.PageAddScriptToEvaluateOnNewDocument{Source: stealthScript}.Call(page)
	if err != nil {
		slog.Warn("stealth script injection failed", "profile", profile, "error", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  p.cfg.Width,
		Height: p.cfg.Height,
	}); err != nil {
		slog.Debug("viewport override failed", "error", err)
	}

	release := func() {
		if err := page.Close(); err != nil {
			slog.Debug("page close failed", "profile", profile, "error", err)
		}
		p.mu.Lock()
		p.inUse[profile] = false
		p.mu.Unlock()
	}

	p.mu.Lock()
	p.inUse[profile] = true
	p.mu.Unlock()

	return newPage(page, time.Duration(p.cfg.NavTimeoutSeconds)*time.Second), release, nil
}

func (p *Pool) browserFor(ctx context.Context, profile string) (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b, ok := p.browsers[profile]; ok {
		return b, nil
	}

	l := launcher.New().
		UserDataDir(filepath.Join(p.profilesRoot, profile)).
		Headless(p.cfg.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("use-fake-ui-for-media-stream").
		Set("autoplay-policy", "no-user-gesture-required").
		NoSandbox(true)
	if p.cfg.BinPath != "" {
		l = l.Bin(p.cfg.BinPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser for profile %s: %w", profile, err)
	}

	b := rod.New().Context(ctx).ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser for profile %s: %w", profile, err)
	}

	slog.Info("launched persistent browser context", "profile", profile, "headless", p.cfg.Headless)
	p.browsers[profile] = b
	p.launchers[profile] = l
	return b, nil
}

// Close tears down every context not currently in use, then the rest
// after logging. Called on process shutdown.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for profile, b := range p.browsers {
		if p.inUse[profile] {
			slog.Warn("closing browser context still in use", "profile", profile)
		}
		if err := b.Close(); err != nil {
			slog.Debug("browser close failed", "profile", profile, "error", err)
		}
		if l, ok := p.launchers[profile]; ok {
			l.Cleanup()
		}
		delete(p.browsers, profile)
		delete(p.launchers, profile)
	}
}
