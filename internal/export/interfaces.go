package export

import (
	"fmt"
	"io"
	"time"

	"deskplan/internal/models"
)

// ExcelWriter writes data to Excel format.
type ExcelWriter interface {
	// AddSheet adds a new sheet with the given name.
	AddSheet(name string) error

	// WriteHeader writes column headers to current sheet.
	WriteHeader(columns []string) error

	// WriteRow writes a data row to current sheet.
	WriteRow(row []any) error

	// Save writes the Excel file to the writer.
	Save(w io.Writer) error

	// Close releases resources.
	Close() error
}

// Source provides the desks to export.
type Source interface {
	Desks() []models.Desk
}

// GenerateFilename creates a filename like "desks_2024-W06.xlsx" for the
// ISO week containing t.
func GenerateFilename(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("desks_%d-W%02d.xlsx", year, week)
}
