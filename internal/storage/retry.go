package storage

import (
	"context"
	"errors"
	"time"

	"deskplan/internal/models"

	"github.com/rs/zerolog"
)

// RetryConfig controls how failed saves are retried.
type RetryConfig struct {
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultRetryConfig retries three times with growing delays.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		RetryDelays: []time.Duration{
			100 * time.Millisecond,
			500 * time.Millisecond,
			2 * time.Second,
		},
	}
}

func (c RetryConfig) delay(attempt int) time.Duration {
	if len(c.RetryDelays) == 0 {
		return 0
	}
	if attempt >= len(c.RetryDelays) {
		return c.RetryDelays[len(c.RetryDelays)-1]
	}
	return c.RetryDelays[attempt]
}

// RetryingStore retries failed saves of the wrapped store. Loads are
// passed through unchanged.
type RetryingStore struct {
	Store
	cfg    RetryConfig
	logger *zerolog.Logger
}

func NewRetryingStore(inner Store, cfg RetryConfig, logger *zerolog.Logger) *RetryingStore {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &RetryingStore{Store: inner, cfg: cfg, logger: logger}
}

func (s *RetryingStore) Save(ctx context.Context, doc *models.Document) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = s.Store.Save(ctx, doc)
		if err == nil || !retryable(err) || attempt >= s.cfg.MaxRetries {
			return err
		}

		wait := s.cfg.delay(attempt)
		s.logger.Warn().Err(err).Int("attempt", attempt+1).Dur("retry_in", wait).Msg("Save failed, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}

// Ping forwards to the wrapped store when it supports it.
func (s *RetryingStore) Ping(ctx context.Context) error {
	if p, ok := s.Store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// SetAside forwards to the wrapped store when it supports it.
func (s *RetryingStore) SetAside(ctx context.Context) (string, error) {
	if a, ok := s.Store.(SetAsider); ok {
		return a.SetAside(ctx)
	}
	return "", errors.ErrUnsupported
}

func retryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
