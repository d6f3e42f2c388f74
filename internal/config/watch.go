package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// DesksWatcher polls a desks file and hands every changed, valid
// version of it to a callback. The version present when the watcher is
// created counts as already applied.
type DesksWatcher struct {
	path     string
	interval time.Duration
	logger   *zerolog.Logger
	lastMod  time.Time
}

func NewDesksWatcher(path string, interval time.Duration, logger *zerolog.Logger) (*DesksWatcher, error) {
	if path == "" {
		path = "configs/desks.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	l := logger.With().Str("component", "desks_watcher").Str("path", path).Logger()
	return &DesksWatcher{path: path, interval: interval, logger: &l, lastMod: info.ModTime()}, nil
}

// Run polls until ctx is done. onUpdate runs on the calling goroutine.
func (w *DesksWatcher) Run(ctx context.Context, onUpdate func(*DesksConfig)) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if cfg := w.poll(); cfg != nil {
				onUpdate(cfg)
			}
		}
	}
}

// poll returns the new config when the file changed and parses.
func (w *DesksWatcher) poll() *DesksConfig {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Debug().Err(err).Msg("stat desks config")
		return nil
	}
	if !info.ModTime().After(w.lastMod) {
		return nil
	}
	w.lastMod = info.ModTime()

	cfg, err := LoadDesksConfig(w.path)
	if err != nil {
		w.logger.Warn().Err(err).Msg("changed desks config rejected")
		return nil
	}
	return cfg
}
