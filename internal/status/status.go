package status

import (
	"fmt"

	"deskplan/internal/models"
)

// Indicator is the coarse occupancy state of a desk.
type Indicator string

const (
	Free            Indicator = "free"
	PartiallyBooked Indicator = "partially_booked"
	FullyBooked     Indicator = "fully_booked"
	Project         Indicator = "project"
)

// Color is the legend colour of the indicator in the room view.
func (i Indicator) Color() string {
	switch i {
	case PartiallyBooked:
		return "orange"
	case FullyBooked:
		return "red"
	case Project:
		return "blue"
	}
	return "green"
}

// Emoji is a compact marker used by chat surfaces.
func (i Indicator) Emoji() string {
	switch i {
	case PartiallyBooked:
		return "🟠"
	case FullyBooked:
		return "🔴"
	case Project:
		return "🔵"
	}
	return "🟢"
}

// Status is the projection of a desk for overview displays.
type Status struct {
	Indicator Indicator `json:"indicator"`
	Summary   string    `json:"summary"`
}

// Of projects a desk onto its status. The checks are ordered: project
// assignment, full booking with occupant, timetable bookings, free.
func Of(d *models.Desk) Status {
	switch p := d.Payload.(type) {
	case *models.ProjectAssignment:
		if p.Project == "" {
			return Status{Indicator: Project, Summary: "Project (unassigned)"}
		}
		summary := "Project: " + p.Project
		if p.Contact != "" {
			summary += "\nContact: " + p.Contact
		}
		return Status{Indicator: Project, Summary: summary}
	case *models.FullBooking:
		if p.Occupant != "" {
			return Status{Indicator: FullyBooked, Summary: "Booked: " + p.Occupant}
		}
	case *models.Schedule:
		if n := len(p.Bookings); n > 0 {
			return Status{Indicator: PartiallyBooked, Summary: fmt.Sprintf("%d Bookings", n)}
		}
	}
	return Status{Indicator: Free, Summary: "Free"}
}
