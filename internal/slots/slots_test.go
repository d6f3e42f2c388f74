package slots

import (
	"testing"

	"deskplan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogues(t *testing.T) {
	booking := BookingSlots()
	require.Len(t, booking, 10)
	assert.Equal(t, "08:00-09:00", booking[0])
	assert.Equal(t, "17:00-18:00", booking[9])

	display := DisplaySlots()
	require.Len(t, display, 12)
	assert.Equal(t, "19:00-20:00", display[11])

	booking[0] = "mutated"
	assert.Equal(t, "08:00-09:00", BookingSlots()[0])
}

func TestBookable(t *testing.T) {
	tests := []struct {
		name string
		day  models.Weekday
		slot string
		want bool
	}{
		{"first slot monday", models.Monday, "08:00-09:00", true},
		{"last slot friday", models.Friday, "17:00-18:00", true},
		{"display only slot", models.Monday, "18:00-19:00", false},
		{"saturday", models.Saturday, "10:00-11:00", false},
		{"legacy day", models.Weekday("Montag"), "10:00-11:00", false},
		{"malformed slot", models.Monday, "8-9", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Bookable(tt.day, tt.slot))
		})
	}
}

func TestStartHour(t *testing.T) {
	h, err := StartHour("09:00-10:00")
	require.NoError(t, err)
	assert.Equal(t, 9, h)

	_, err = StartHour("nine")
	assert.Error(t, err)
}

func TestSortBookings(t *testing.T) {
	bookings := []models.Booking{
		{ID: "c", Day: models.Wednesday, Slot: "08:00-09:00"},
		{ID: "b", Day: models.Monday, Slot: "10:00-11:00"},
		{ID: "a", Day: models.Monday, Slot: "09:00-10:00"},
		{ID: "d", Day: models.Tuesday, Slot: "17:00-18:00"},
	}
	SortBookings(bookings)

	var ids []string
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"a", "b", "d", "c"}, ids)
}

func TestBuildWeek(t *testing.T) {
	s := &models.Schedule{Bookings: map[string]models.Booking{
		"x": {ID: "x", Person: "Ana", Day: models.Tuesday, Slot: "09:00-10:00"},
	}}

	w := BuildWeek(s)
	require.Len(t, w.Cells, 7)
	for _, row := range w.Cells {
		require.Len(t, row, 12)
	}
	assert.Equal(t, "Ana", w.Cells[1][1].Person())
	assert.Equal(t, "", w.Cells[0][1].Person())
	assert.Equal(t, models.Sunday, w.Cells[6][0].Day)

	empty := BuildWeek(nil)
	assert.Len(t, empty.Cells, 7)
}
