package slots

import "deskplan/internal/models"

// Cell is one weekday/slot entry of the weekly overview.
type Cell struct {
	Day     models.Weekday  `json:"day"`
	Slot    string          `json:"slot"`
	Booking *models.Booking `json:"booking,omitempty"`
}

// Week is the 7 day by display slot overview of a timetable desk.
type Week struct {
	Days  []models.Weekday `json:"days"`
	Slots []string         `json:"slots"`
	// Cells is indexed [day][slot].
	Cells [][]Cell `json:"cells"`
}

// BuildWeek lays the bookings of s out on the weekly grid.
func BuildWeek(s *models.Schedule) Week {
	w := Week{
		Days:  append([]models.Weekday(nil), models.AllWeekdays...),
		Slots: DisplaySlots(),
	}

	index := make(map[Ref]models.Booking)
	if s != nil {
		for _, b := range s.Bookings {
			index[Ref{Day: b.Day, Slot: b.Slot}] = b
		}
	}

	w.Cells = make([][]Cell, len(w.Days))
	for i, day := range w.Days {
		row := make([]Cell, len(w.Slots))
		for j, slot := range w.Slots {
			row[j] = Cell{Day: day, Slot: slot}
			if b, ok := index[Ref{Day: day, Slot: slot}]; ok {
				b := b
				row[j].Booking = &b
			}
		}
		w.Cells[i] = row
	}
	return w
}

// Person returns the person booked in the cell, or "".
func (c Cell) Person() string {
	if c.Booking == nil {
		return ""
	}
	return c.Booking.Person
}
