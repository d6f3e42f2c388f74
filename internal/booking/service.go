package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"deskplan/internal/events"
	"deskplan/internal/metrics"
	"deskplan/internal/models"
	"deskplan/internal/registry"
	"deskplan/internal/slots"
	"deskplan/internal/status"
	"deskplan/internal/storage"

	"github.com/rs/zerolog"
)

// errUnchanged aborts a commit without saving.
var errUnchanged = errors.New("unchanged")

// Service is the booking engine. Every mutation works on a copy of the
// current document, persists it and only then makes it current, so a
// failed save leaves the visible state untouched.
type Service struct {
	// mu serializes the load/modify/save cycle.
	mu sync.Mutex

	docMu sync.RWMutex
	doc   *models.Document

	store  storage.Store
	events events.Publisher
	logger *zerolog.Logger
	now    func() time.Time
}

func NewService(store storage.Store, publisher events.Publisher, logger *zerolog.Logger) *Service {
	l := logger.With().Str("component", "booking").Logger()
	return &Service{
		doc:    models.NewDocument(),
		store:  store,
		events: publisher,
		logger: &l,
		now:    time.Now,
	}
}

// Init loads the stored document and adds missing seed desks. A
// missing document starts empty. A document that cannot be loaded is
// first set aside by stores that support it; otherwise the empty
// fallback and its seed desks stay in memory until the next change.
func (s *Service) Init(ctx context.Context, seeds []*models.Desk) error {
	doc, err := s.store.Load(ctx)
	switch {
	case err == nil:
		s.logger.Info().Int("desks", len(doc.Desks)).Msg("Document loaded")
	case errors.Is(err, storage.ErrNotFound):
		s.logger.Info().Msg("No stored document, starting empty")
		doc = models.NewDocument()
	default:
		s.logger.Error().Err(err).Msg("Failed to load document, starting empty")
		if !s.setAside(ctx) {
			doc = models.NewDocument()
			added := registry.New(doc).Ensure(seeds)
			s.setCurrent(doc)
			s.logger.Warn().Strs("desks", added).Msg("Seed desks kept in memory, stored document left untouched")
			return nil
		}
		// the error may have been transient
		if doc, err = s.store.Load(ctx); err != nil {
			doc = models.NewDocument()
		}
	}
	s.setCurrent(doc)

	if len(seeds) == 0 {
		return nil
	}
	_, err = s.EnsureDesks(ctx, seeds)
	return err
}

func (s *Service) setAside(ctx context.Context) bool {
	a, ok := s.store.(storage.SetAsider)
	if !ok {
		return false
	}
	path, err := a.SetAside(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to set unreadable document aside")
		return false
	}
	s.logger.Warn().Str("copy", path).Msg("Unreadable document set aside")
	return true
}

func (s *Service) current() *models.Document {
	s.docMu.RLock()
	defer s.docMu.RUnlock()
	return s.doc
}

func (s *Service) setCurrent(doc *models.Document) {
	s.docMu.Lock()
	s.doc = doc
	s.docMu.Unlock()
}

// commit runs mutate on a copy of the current document and persists it.
func (s *Service) commit(ctx context.Context, op string, mutate func(*registry.Registry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.current().Clone()
	if err := mutate(registry.New(work)); err != nil {
		return err
	}

	start := time.Now()
	err := s.store.Save(ctx, work)
	metrics.ObserveSave(start, err)
	if err != nil {
		s.logger.Error().Err(err).Str("op", op).Msg("Save failed, changes discarded")
		return &PersistenceError{Op: op, Err: err}
	}

	s.setCurrent(work)
	metrics.IncDeskUpdate(op)
	return nil
}

func (s *Service) publish(eventType, deskID string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(eventType, deskID, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}

func lookup(reg *registry.Registry, id string) (*models.Desk, error) {
	d, err := reg.Get(id)
	if err != nil {
		return nil, &NotFoundError{Resource: "desk", ID: id}
	}
	return d, nil
}

func wrongType(d *models.Desk, want models.BookingType) error {
	return &ValidationError{
		Field:   "desk",
		Message: fmt.Sprintf("desk %s is a %s desk, not a %s desk", d.ID, d.Type, want),
	}
}

// AddBookingRequest books one person into several weekday/slot pairs.
type AddBookingRequest struct {
	Person string              `json:"person"`
	Slots  []slots.Ref         `json:"slots"`
	Mode   models.ComputerMode `json:"mode"`
	Notes  string              `json:"notes"`
}

// AddBooking creates one booking per requested slot on a timetable
// desk. Either all slots are booked or none.
func (s *Service) AddBooking(ctx context.Context, deskID string, req AddBookingRequest) ([]models.Booking, error) {
	person := strings.TrimSpace(req.Person)

	var created []models.Booking
	err := s.commit(ctx, "add_booking", func(reg *registry.Registry) error {
		desk, err := lookup(reg, deskID)
		if err != nil {
			return err
		}
		if err := validateRequest(person, req.Slots); err != nil {
			return err
		}
		sched := desk.Schedule()
		if sched == nil {
			return wrongType(desk, models.TypeSchedule)
		}

		mode, err := resolveMode(desk, req.Mode)
		if err != nil {
			return err
		}

		requested := make(map[slots.Ref]bool, len(req.Slots))
		for _, ref := range req.Slots {
			if _, taken := sched.Occupied(ref.Day, ref.Slot); taken || requested[ref] {
				return &ConflictError{DeskID: deskID, Day: ref.Day, Slot: ref.Slot}
			}
			requested[ref] = true
		}

		at := s.now()
		created = make([]models.Booking, 0, len(req.Slots))
		for _, ref := range req.Slots {
			id := models.BookingID(ref.Day, ref.Slot, at)
			for stamp := at; ; {
				if _, exists := sched.Bookings[id]; !exists {
					break
				}
				stamp = stamp.Add(time.Microsecond)
				id = models.BookingID(ref.Day, ref.Slot, stamp)
			}
			b := models.Booking{
				ID:        id,
				Person:    person,
				Day:       ref.Day,
				Slot:      ref.Slot,
				Mode:      mode,
				Notes:     strings.TrimSpace(req.Notes),
				CreatedAt: at.Truncate(time.Second),
			}
			sched.Bookings[id] = b
			created = append(created, b)
		}
		return nil
	})
	if err != nil {
		if IsConflict(err) {
			metrics.IncBookingConflict()
		}
		return nil, err
	}

	metrics.AddBookingsCreated(deskID, len(created))
	s.logger.Info().Str("desk", deskID).Str("person", person).Int("slots", len(created)).Msg("Bookings created")
	s.publish(events.BookingsCreated, deskID, created)
	return created, nil
}

func validateRequest(person string, refs []slots.Ref) error {
	if person == "" {
		return &ValidationError{Field: "person", Message: "person is required"}
	}
	if len(refs) == 0 {
		return &ValidationError{Field: "slots", Message: "at least one slot is required"}
	}
	for _, ref := range refs {
		if !ref.Day.Bookable() {
			return &ValidationError{Field: "slots", Message: fmt.Sprintf("%q is not a bookable weekday", ref.Day)}
		}
		if !slots.IsBookingSlot(ref.Slot) {
			return &ValidationError{Field: "slots", Message: fmt.Sprintf("%q is not a bookable slot", ref.Slot)}
		}
	}
	return nil
}

func resolveMode(desk *models.Desk, mode models.ComputerMode) (models.ComputerMode, error) {
	if !desk.Computer.Present {
		return models.ModeNoComputer, nil
	}
	if mode == "" {
		return models.ModeScreensOnly, nil
	}
	for _, m := range models.ComputerModes {
		if m == mode {
			return mode, nil
		}
	}
	return "", &ValidationError{Field: "mode", Message: fmt.Sprintf("%q is not a valid mode for a desk with a computer", mode)}
}

// RemoveBooking deletes a booking. Any operator may remove any booking.
func (s *Service) RemoveBooking(ctx context.Context, deskID, bookingID string) error {
	var removed models.Booking
	err := s.commit(ctx, "remove_booking", func(reg *registry.Registry) error {
		desk, err := lookup(reg, deskID)
		if err != nil {
			return err
		}
		sched := desk.Schedule()
		if sched == nil {
			return &NotFoundError{Resource: "booking", ID: bookingID}
		}
		b, ok := sched.Bookings[bookingID]
		if !ok {
			return &NotFoundError{Resource: "booking", ID: bookingID}
		}
		removed = b
		delete(sched.Bookings, bookingID)
		return nil
	})
	if err != nil {
		return err
	}

	metrics.IncBookingRemoved()
	s.logger.Info().Str("desk", deskID).Str("booking", bookingID).Msg("Booking removed")
	s.publish(events.BookingRemoved, deskID, removed)
	return nil
}

// SetOccupant assigns a full booking desk. An empty name frees it.
func (s *Service) SetOccupant(ctx context.Context, deskID, name string) error {
	name = strings.TrimSpace(name)
	err := s.commit(ctx, "set_occupant", func(reg *registry.Registry) error {
		desk, err := lookup(reg, deskID)
		if err != nil {
			return err
		}
		fb := desk.FullBooking()
		if fb == nil {
			return wrongType(desk, models.TypeFullBooking)
		}
		fb.Occupant = name
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(events.OccupantChanged, deskID, map[string]string{"occupant": name})
	return nil
}

// SetProject overwrites the project name and contact of a project desk.
func (s *Service) SetProject(ctx context.Context, deskID, project, contact string) error {
	project = strings.TrimSpace(project)
	contact = strings.TrimSpace(contact)
	err := s.commit(ctx, "set_project", func(reg *registry.Registry) error {
		desk, err := lookup(reg, deskID)
		if err != nil {
			return err
		}
		p := desk.Project()
		if p == nil {
			return wrongType(desk, models.TypeProject)
		}
		p.Project = project
		p.Contact = contact
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(events.ProjectChanged, deskID, map[string]string{"project": project, "contact": contact})
	return nil
}

// ConfigureDesk replaces the editable settings of a desk. Changing the
// booking type discards the data of the previous type.
func (s *Service) ConfigureDesk(ctx context.Context, deskID string, settings models.DeskSettings) (registry.Change, error) {
	var change registry.Change
	err := s.commit(ctx, "configure_desk", func(reg *registry.Registry) error {
		if _, err := lookup(reg, deskID); err != nil {
			return err
		}
		c, err := reg.Update(deskID, func(ds *models.DeskSettings) error {
			*ds = settings
			return nil
		})
		if err != nil {
			var se *registry.SettingsError
			if errors.As(err, &se) {
				return &ValidationError{Field: se.Field, Message: se.Message}
			}
			return err
		}
		change = c
		return nil
	})
	if err != nil {
		return registry.Change{}, err
	}

	s.publish(events.DeskReconfigured, deskID, settings)
	if change.TypeChanged {
		s.logger.Warn().
			Str("desk", deskID).
			Str("from", string(change.PreviousType)).
			Str("to", string(settings.Type)).
			Str("discarded", change.Discarded).
			Msg("Desk type changed")
		if change.Discarded != "" {
			s.publish(events.PayloadDiscarded, deskID, change)
		}
	}
	return change, nil
}

// EnsureDesks adds desks that are not in the document yet and returns
// their ids. Existing desks are never changed; seeds whose type differs
// from the stored desk are logged.
func (s *Service) EnsureDesks(ctx context.Context, desks []*models.Desk) ([]string, error) {
	var added []string
	err := s.commit(ctx, "ensure_desks", func(reg *registry.Registry) error {
		added = reg.Ensure(desks)
		if len(added) == 0 {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		err = nil
	}
	if err != nil {
		return nil, err
	}

	if ids := registry.New(s.current()).TypeMismatches(desks); len(ids) > 0 {
		s.logger.Warn().Strs("desks", ids).Msg("Seed type differs from stored desk, stored type kept")
	}
	if len(added) == 0 {
		return nil, nil
	}
	s.logger.Info().Strs("desks", added).Msg("Seed desks added")
	s.publish(events.DesksSeeded, "", added)
	return added, nil
}

func (s *Service) Desks() []models.Desk {
	doc := s.current()
	out := make([]models.Desk, 0, len(doc.Desks))
	for _, d := range registry.New(doc).List() {
		out = append(out, *d.Clone())
	}
	return out
}

// Desk returns a copy of one desk.
func (s *Service) Desk(id string) (models.Desk, error) {
	d, err := lookup(registry.New(s.current()), id)
	if err != nil {
		return models.Desk{}, err
	}
	return *d.Clone(), nil
}

// Bookings returns the bookings of a desk sorted by weekday and slot.
// Desks of other types have none.
func (s *Service) Bookings(id string) ([]models.Booking, error) {
	d, err := lookup(registry.New(s.current()), id)
	if err != nil {
		return nil, err
	}
	out := slots.ScheduleBookings(d.Schedule())
	if out == nil {
		out = []models.Booking{}
	}
	return out, nil
}

// Week lays the bookings of a desk out on the weekly grid.
func (s *Service) Week(id string) (slots.Week, error) {
	d, err := lookup(registry.New(s.current()), id)
	if err != nil {
		return slots.Week{}, err
	}
	return slots.BuildWeek(d.Schedule()), nil
}

func (s *Service) Status(id string) (status.Status, error) {
	d, err := lookup(registry.New(s.current()), id)
	if err != nil {
		return status.Status{}, err
	}
	return status.Of(d), nil
}

// DeskView pairs a desk with its projected status.
type DeskView struct {
	Desk   models.Desk
	Status status.Status
}

// Overview returns every desk with its status in numeric id order.
func (s *Service) Overview() []DeskView {
	doc := s.current()
	desks := registry.New(doc).List()
	out := make([]DeskView, 0, len(desks))
	for _, d := range desks {
		out = append(out, DeskView{Desk: *d.Clone(), Status: status.Of(d)})
	}
	return out
}

// Snapshot returns a copy of the whole current document.
func (s *Service) Snapshot() *models.Document {
	return s.current().Clone()
}
