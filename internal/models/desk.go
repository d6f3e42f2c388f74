package models

import (
	"fmt"
	"sort"
	"strconv"
)

// Computer describes the hardware at a desk.
type Computer struct {
	Present      bool         `json:"present"`
	Kind         ComputerKind `json:"kind"`
	Name         string       `json:"name"`
	Shutdownable bool         `json:"shutdownable"`
	Screens      int          `json:"screens"`
}

// Normalize clears computer attributes when no computer is present.
func (c Computer) Normalize() Computer {
	if !c.Present {
		c.Kind = ComputerNone
		c.Name = ""
		c.Shutdownable = false
	}
	if c.Kind == "" {
		c.Kind = ComputerNone
	}
	return c
}

func (c Computer) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("unknown computer type %q", c.Kind)
	}
	if c.Screens < 0 || c.Screens > MaxScreens {
		return fmt.Errorf("screens must be between 0 and %d, got %d", MaxScreens, c.Screens)
	}
	return nil
}

// Payload is the type specific reservation state of a desk. Exactly one
// of *Schedule, *FullBooking or *ProjectAssignment.
type Payload interface {
	BookingType() BookingType
	clone() Payload
}

// Schedule holds the recurring hourly bookings of a timetable desk.
type Schedule struct {
	Bookings map[string]Booking
}

func (*Schedule) BookingType() BookingType { return TypeSchedule }

func (s *Schedule) clone() Payload {
	out := &Schedule{Bookings: make(map[string]Booking, len(s.Bookings))}
	for id, b := range s.Bookings {
		out.Bookings[id] = b
	}
	return out
}

// Occupied reports the booking holding the given weekday and slot.
func (s *Schedule) Occupied(day Weekday, slot string) (Booking, bool) {
	for _, b := range s.Bookings {
		if b.Day == day && b.Slot == slot {
			return b, true
		}
	}
	return Booking{}, false
}

// FullBooking assigns the whole desk to one occupant. An empty occupant
// means the desk is free.
type FullBooking struct {
	Occupant string
}

func (*FullBooking) BookingType() BookingType { return TypeFullBooking }

func (f *FullBooking) clone() Payload {
	c := *f
	return &c
}

// ProjectAssignment dedicates the desk to a project.
type ProjectAssignment struct {
	Project string
	Contact string
}

func (*ProjectAssignment) BookingType() BookingType { return TypeProject }

func (p *ProjectAssignment) clone() Payload {
	c := *p
	return &c
}

// NewPayload returns the empty payload for a booking type.
func NewPayload(t BookingType) Payload {
	switch t {
	case TypeFullBooking:
		return &FullBooking{}
	case TypeProject:
		return &ProjectAssignment{}
	default:
		return &Schedule{Bookings: map[string]Booking{}}
	}
}

// Desk is a bookable workplace.
type Desk struct {
	ID       string
	Name     string
	Type     BookingType
	Computer Computer
	Payload  Payload
}

// NewDesk builds a desk with an empty payload for its type.
func NewDesk(id, name string, t BookingType, c Computer) *Desk {
	if name == "" {
		name = DefaultDeskName(id)
	}
	return &Desk{
		ID:       id,
		Name:     name,
		Type:     t,
		Computer: c.Normalize(),
		Payload:  NewPayload(t),
	}
}

// DefaultDeskName is the name given to desks configured without one.
func DefaultDeskName(id string) string {
	return "Desk " + id
}

func (d *Desk) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("desk id is required")
	}
	if !d.Type.Valid() {
		return fmt.Errorf("desk %s: unknown booking type %q", d.ID, d.Type)
	}
	if d.Payload == nil {
		return fmt.Errorf("desk %s: missing payload", d.ID)
	}
	if d.Payload.BookingType() != d.Type {
		return fmt.Errorf("desk %s: payload %s does not match type %s", d.ID, d.Payload.BookingType(), d.Type)
	}
	if err := d.Computer.Validate(); err != nil {
		return fmt.Errorf("desk %s: %w", d.ID, err)
	}
	return nil
}

// Clone returns a deep copy of the desk.
func (d *Desk) Clone() *Desk {
	c := *d
	if d.Payload != nil {
		c.Payload = d.Payload.clone()
	}
	return &c
}

// Schedule returns the timetable payload, or nil for other desk types.
func (d *Desk) Schedule() *Schedule {
	s, _ := d.Payload.(*Schedule)
	return s
}

func (d *Desk) FullBooking() *FullBooking {
	f, _ := d.Payload.(*FullBooking)
	return f
}

func (d *Desk) Project() *ProjectAssignment {
	p, _ := d.Payload.(*ProjectAssignment)
	return p
}

// BookingCount is the number of live timetable bookings.
func (d *Desk) BookingCount() int {
	if s := d.Schedule(); s != nil {
		return len(s.Bookings)
	}
	return 0
}

// DeskSettings are the operator editable attributes of a desk.
type DeskSettings struct {
	Name     string      `json:"name"`
	Type     BookingType `json:"type"`
	Computer Computer    `json:"computer"`
}

// Settings extracts the editable attributes.
func (d *Desk) Settings() DeskSettings {
	return DeskSettings{Name: d.Name, Type: d.Type, Computer: d.Computer}
}

// LessDeskID orders desk ids numerically. Non numeric ids sort after
// numeric ones, lexically among themselves.
func LessDeskID(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}

// SortDeskIDs sorts ids in place with LessDeskID.
func SortDeskIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return LessDeskID(ids[i], ids[j]) })
}
