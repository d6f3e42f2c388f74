package status

import (
	"testing"

	"deskplan/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	withBookings := models.NewDesk("1", "", models.TypeSchedule, models.Computer{})
	withBookings.Schedule().Bookings["a"] = models.Booking{ID: "a"}
	withBookings.Schedule().Bookings["b"] = models.Booking{ID: "b"}

	occupied := models.NewDesk("2", "", models.TypeFullBooking, models.Computer{})
	occupied.FullBooking().Occupant = "Ana"

	project := models.NewDesk("3", "", models.TypeProject, models.Computer{})
	project.Project().Project = "X"
	project.Project().Contact = "bob@x"

	projectNoContact := models.NewDesk("4", "", models.TypeProject, models.Computer{})
	projectNoContact.Project().Project = "Apollo"

	tests := []struct {
		name    string
		desk    *models.Desk
		want    Indicator
		summary string
	}{
		{"empty schedule", models.NewDesk("0", "", models.TypeSchedule, models.Computer{}), Free, "Free"},
		{"schedule with bookings", withBookings, PartiallyBooked, "2 Bookings"},
		{"free full booking", models.NewDesk("5", "", models.TypeFullBooking, models.Computer{}), Free, "Free"},
		{"occupied full booking", occupied, FullyBooked, "Booked: Ana"},
		{"project with contact", project, Project, "Project: X\nContact: bob@x"},
		{"project without contact", projectNoContact, Project, "Project: Apollo"},
		{"unassigned project", models.NewDesk("6", "", models.TypeProject, models.Computer{}), Project, "Project (unassigned)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Of(tt.desk)
			assert.Equal(t, tt.want, got.Indicator)
			assert.Equal(t, tt.summary, got.Summary)
		})
	}
}

func TestIndicatorColor(t *testing.T) {
	assert.Equal(t, "green", Free.Color())
	assert.Equal(t, "orange", PartiallyBooked.Color())
	assert.Equal(t, "red", FullyBooked.Color())
	assert.Equal(t, "blue", Project.Color())
}
