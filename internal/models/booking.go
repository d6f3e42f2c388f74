package models

import (
	"fmt"
	"time"
)

// CreatedAtLayout is the persisted format of booking creation times.
const CreatedAtLayout = "2006-01-02 15:04:05"

const bookingIDStamp = "20060102150405.000000"

// Booking is one recurring hourly reservation on a timetable desk.
type Booking struct {
	ID        string       `json:"id"`
	Person    string       `json:"person"`
	Day       Weekday      `json:"day"`
	Slot      string       `json:"slot"`
	Mode      ComputerMode `json:"mode"`
	Notes     string       `json:"notes"`
	CreatedAt time.Time    `json:"created_at"`
}

// BookingID derives the id of a booking from its weekday, slot and
// creation time, e.g. "Monday_08:00-09:00_20240102150405123456".
func BookingID(day Weekday, slot string, at time.Time) string {
	stamp := at.Format(bookingIDStamp)
	// drop the decimal point of the fractional seconds
	stamp = stamp[:14] + stamp[15:]
	return fmt.Sprintf("%s_%s_%s", day, slot, stamp)
}
