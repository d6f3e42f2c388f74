package google

import (
	"context"
	"time"

	"deskplan/internal/events"
	"deskplan/internal/models"

	"github.com/rs/zerolog"
)

// DeskSource provides the desks to mirror.
type DeskSource interface {
	Desks() []models.Desk
}

// DeskSyncer is implemented by SheetsService.
type DeskSyncer interface {
	SyncDesks(ctx context.Context, desks []models.Desk) error
}

// Syncer coalesces change events and mirrors the room once things have
// been quiet for the debounce delay.
type Syncer struct {
	sheets  DeskSyncer
	source  DeskSource
	delay   time.Duration
	trigger chan struct{}
	logger  zerolog.Logger
}

func NewSyncer(sheets DeskSyncer, source DeskSource, delay time.Duration, logger *zerolog.Logger) *Syncer {
	return &Syncer{
		sheets:  sheets,
		source:  source,
		delay:   delay,
		trigger: make(chan struct{}, 1),
		logger:  logger.With().Str("component", "sheets_sync").Logger(),
	}
}

// Attach schedules a sync on every bus event.
func (s *Syncer) Attach(bus *events.EventBus) {
	bus.SubscribeAll(func(events.Event) error {
		s.Trigger()
		return nil
	})
}

// Trigger requests a sync without blocking.
func (s *Syncer) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run processes triggers until ctx is done.
func (s *Syncer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
		}

		timer := time.NewTimer(s.delay)
	wait:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-s.trigger:
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(s.delay)
			case <-timer.C:
				break wait
			}
		}

		syncCtx, cancel := context.WithTimeout(ctx, time.Minute)
		if err := s.sheets.SyncDesks(syncCtx, s.source.Desks()); err != nil {
			s.logger.Error().Err(err).Msg("Sheets sync failed")
		}
		cancel()
	}
}
