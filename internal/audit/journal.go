// Package audit keeps an append-only journal of persisted changes.
package audit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"deskplan/internal/events"

	"github.com/rs/zerolog"
)

// Journal writes one JSON line per domain event.
type Journal struct {
	logger zerolog.Logger
	closer io.Closer
}

// NewJournal writes entries to w.
func NewJournal(w io.Writer) *Journal {
	return &Journal{logger: zerolog.New(w)}
}

// OpenJournal appends to the file at path, creating it if needed.
func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	j := NewJournal(f)
	j.closer = f
	return j, nil
}

// Attach subscribes the journal to every event on bus.
func (j *Journal) Attach(bus *events.EventBus) {
	bus.SubscribeAll(j.Handle)
}

func (j *Journal) Handle(ev events.Event) error {
	entry := j.logger.Info()
	if ev.Type == events.PayloadDiscarded {
		entry = j.logger.Warn()
	}
	entry = entry.Time("at", ev.CreatedAt).Str("event", ev.Type)
	if ev.DeskID != "" {
		entry = entry.Str("desk", ev.DeskID)
	}
	if len(ev.Payload) > 0 {
		entry = entry.RawJSON("payload", ev.Payload)
	}
	entry.Msg(message(ev.Type))
	return nil
}

func message(eventType string) string {
	switch eventType {
	case events.BookingsCreated:
		return "bookings created"
	case events.BookingRemoved:
		return "booking removed"
	case events.OccupantChanged:
		return "occupant changed"
	case events.ProjectChanged:
		return "project changed"
	case events.DeskReconfigured:
		return "desk reconfigured"
	case events.PayloadDiscarded:
		return "payload discarded on type change"
	case events.DesksSeeded:
		return "desks seeded"
	}
	return eventType
}

func (j *Journal) Close() error {
	if j.closer == nil {
		return nil
	}
	return j.closer.Close()
}
