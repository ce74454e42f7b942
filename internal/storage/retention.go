package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adhocore/gronx"
)

// Retention deletes audio and chunk artifacts older than the configured
// age on a cron schedule. Summaries are kept.
type Retention struct {
	root    string
	cron    string
	maxAge  time.Duration
	checker *gronx.Gronx
}

func NewRetention(root, cron string, retentionDays int) *Retention {
	return &Retention{
		root:    root,
		cron:    cron,
		maxAge:  time.Duration(retentionDays) * 24 * time.Hour,
		checker: gronx.New(),
	}
}

// Run ticks once a minute and sweeps when the cron expression is due.
// Disabled when no expression is configured.
func (r *Retention) Run(ctx context.Context) {
	if r.cron == "" || r.maxAge <= 0 {
		return
	}
	if !r.checker.IsValid(r.cron) {
		slog.Error("invalid retention cron expression, sweeps disabled", "cron", r.cron)
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			due, err := r.checker.IsDue(r.cron, now)
			if err != nil || !due {
				continue
			}
			removed := r.Sweep(now)
			slog.Info("retention sweep complete", "removed", removed)
		}
	}
}

// Sweep removes expired artifacts and returns the number deleted.
// Summaries under sessions/ and the cookie vault under cookies/ are
// never touched, whatever their age.
func (r *Retention) Sweep(now time.Time) int {
	cutoff := now.Add(-r.maxAge)
	removed := 0

	keep := map[string]bool{
		filepath.Join(r.root, "sessions"): true,
		filepath.Join(r.root, "cookies"):  true,
	}
	filepath.Walk(r.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if keep[path] {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case ".wav", ".json":
		default:
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
		return nil
	})
	return removed
}
