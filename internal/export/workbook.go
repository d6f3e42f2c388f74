package export

import (
	"fmt"
	"strings"

	"deskplan/internal/models"
	"deskplan/internal/slots"
	"deskplan/internal/status"
)

const (
	OverviewSheet = "Overview"
	BookingsSheet = "Bookings"
)

var (
	overviewColumns = []string{"ID", "Name", "Type", "Computer", "Screens", "Status", "Details"}
	bookingColumns  = []string{"Desk", "Day", "Slot", "Person", "Computer Mode", "Notes", "Created"}
)

// WriteWorkbook writes the room overview, a flat list of timetable
// bookings and one weekly grid per timetable desk. desks are expected in
// display order.
func WriteWorkbook(w ExcelWriter, desks []models.Desk) error {
	if err := w.AddSheet(OverviewSheet); err != nil {
		return err
	}
	if err := w.WriteHeader(overviewColumns); err != nil {
		return err
	}
	for i := range desks {
		if err := w.WriteRow(overviewRow(&desks[i])); err != nil {
			return fmt.Errorf("overview row %s: %w", desks[i].ID, err)
		}
	}

	if err := w.AddSheet(BookingsSheet); err != nil {
		return err
	}
	if err := w.WriteHeader(bookingColumns); err != nil {
		return err
	}
	for i := range desks {
		d := &desks[i]
		for _, b := range slots.ScheduleBookings(d.Schedule()) {
			row := []any{d.Name, string(b.Day), b.Slot, b.Person, string(b.Mode), b.Notes, b.CreatedAt.Format(models.CreatedAtLayout)}
			if err := w.WriteRow(row); err != nil {
				return fmt.Errorf("booking row %s: %w", b.ID, err)
			}
		}
	}

	for i := range desks {
		d := &desks[i]
		if d.Schedule() == nil {
			continue
		}
		if err := writeWeek(w, d); err != nil {
			return fmt.Errorf("week sheet %s: %w", d.ID, err)
		}
	}
	return nil
}

func overviewRow(d *models.Desk) []any {
	st := status.Of(d)
	computer := "-"
	if d.Computer.Present {
		computer = string(d.Computer.Kind)
		if d.Computer.Name != "" {
			computer += " " + d.Computer.Name
		}
	}
	return []any{
		d.ID,
		d.Name,
		d.Type.Label(),
		computer,
		d.Computer.Screens,
		string(st.Indicator),
		strings.ReplaceAll(st.Summary, "\n", ", "),
	}
}

func writeWeek(w ExcelWriter, d *models.Desk) error {
	if err := w.AddSheet(WeekSheetName(d)); err != nil {
		return err
	}

	week := slots.BuildWeek(d.Schedule())
	header := make([]string, 0, len(week.Days)+1)
	header = append(header, "Time")
	for _, day := range week.Days {
		header = append(header, string(day))
	}
	if err := w.WriteHeader(header); err != nil {
		return err
	}

	for j, slot := range week.Slots {
		row := make([]any, 0, len(week.Days)+1)
		row = append(row, slot)
		for i := range week.Days {
			row = append(row, week.Cells[i][j].Person())
		}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// WeekSheetName is the sheet holding the weekly grid of d.
func WeekSheetName(d *models.Desk) string {
	return SheetName(d.ID + " " + d.Name)
}
