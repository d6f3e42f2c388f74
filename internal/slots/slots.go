package slots

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"deskplan/internal/models"
)

// Hour ranges of the slot catalogues. Bookings are made between 08:00
// and 18:00, the weekly overview shows 08:00 to 20:00.
const (
	BookingStartHour = 8
	BookingEndHour   = 18
	DisplayStartHour = 8
	DisplayEndHour   = 20
)

var (
	bookingSlots = generate(BookingStartHour, BookingEndHour)
	displaySlots = generate(DisplayStartHour, DisplayEndHour)
)

func generate(from, to int) []string {
	out := make([]string, 0, to-from)
	for h := from; h < to; h++ {
		out = append(out, Label(h))
	}
	return out
}

// Label renders the one hour slot starting at hour h, e.g. "08:00-09:00".
func Label(h int) string {
	return fmt.Sprintf("%02d:00-%02d:00", h, h+1)
}

// BookingSlots returns the slots in which bookings can be created.
func BookingSlots() []string {
	return append([]string(nil), bookingSlots...)
}

// DisplaySlots returns the slots shown in the weekly overview.
func DisplaySlots() []string {
	return append([]string(nil), displaySlots...)
}

// IsBookingSlot reports whether slot is one of the bookable slots.
func IsBookingSlot(slot string) bool {
	for _, s := range bookingSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// Bookable reports whether a booking may be created for the pair.
func Bookable(day models.Weekday, slot string) bool {
	return day.Bookable() && IsBookingSlot(slot)
}

// StartHour parses the first hour of a slot label.
func StartHour(slot string) (int, error) {
	start, _, ok := strings.Cut(slot, "-")
	if !ok {
		return 0, fmt.Errorf("invalid slot %q", slot)
	}
	h, _, ok := strings.Cut(start, ":")
	if !ok {
		return 0, fmt.Errorf("invalid slot %q", slot)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("invalid slot %q: %w", slot, err)
	}
	return hour, nil
}

// Ref identifies a weekday/slot pair.
type Ref struct {
	Day  models.Weekday `json:"day"`
	Slot string         `json:"slot"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s %s", r.Day, r.Slot)
}

// Less orders refs by weekday index, then slot.
func (r Ref) Less(o Ref) bool {
	if r.Day != o.Day {
		return r.Day.Index() < o.Day.Index()
	}
	return r.Slot < o.Slot
}

// SortRefs sorts refs in place.
func SortRefs(refs []Ref) {
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
}

// SortBookings orders bookings by weekday index, then slot.
func SortBookings(bookings []models.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		a := Ref{Day: bookings[i].Day, Slot: bookings[i].Slot}
		b := Ref{Day: bookings[j].Day, Slot: bookings[j].Slot}
		if a == b {
			return bookings[i].ID < bookings[j].ID
		}
		return a.Less(b)
	})
}

// ScheduleBookings returns the bookings of a timetable payload sorted.
func ScheduleBookings(s *models.Schedule) []models.Booking {
	if s == nil {
		return nil
	}
	out := make([]models.Booking, 0, len(s.Bookings))
	for _, b := range s.Bookings {
		out = append(out, b)
	}
	SortBookings(out)
	return out
}
