package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"deskplan/internal/models"
	"deskplan/internal/slots"
	"deskplan/internal/status"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	oauthgoogle "golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ErrUnavailable is returned while the breaker rejects calls.
var ErrUnavailable = errors.New("sheets: service unavailable")

var (
	deskColumns    = []any{"ID", "Name", "Type", "Computer", "Screens", "Status", "Details"}
	bookingColumns = []any{"Desk", "Day", "Slot", "Person", "Computer Mode", "Notes", "Created"}
)

// ValuesClient is the part of the Sheets API the mirror uses.
type ValuesClient interface {
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error
}

type realValuesClient struct {
	srv *sheets.Service
}

func (c *realValuesClient) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := c.srv.Spreadsheets.Values.Clear(spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (c *realValuesClient) Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error {
	_, err := c.srv.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// SheetsService mirrors the room into a spreadsheet.
type SheetsService struct {
	client        ValuesClient
	spreadsheetID string
	sheetName     string
	cb            *gobreaker.CircuitBreaker
	logger        zerolog.Logger
}

// NewSheetsService authenticates with a service account key file.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, logger *zerolog.Logger) (*SheetsService, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := oauthgoogle.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return NewWithClient(&realValuesClient{srv: srv}, spreadsheetID, sheetName, logger), nil
}

// NewWithClient allows injecting a custom client (used in tests).
func NewWithClient(client ValuesClient, spreadsheetID, sheetName string, logger *zerolog.Logger) *SheetsService {
	l := logger.With().Str("component", "sheets").Logger()
	settings := gobreaker.Settings{
		Name:        "google-sheets",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			if counts.Requests >= 10 {
				return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn().Str("name", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	}
	return &SheetsService{
		client:        client,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		cb:            gobreaker.NewCircuitBreaker(settings),
		logger:        l,
	}
}

// State reports the breaker state.
func (s *SheetsService) State() gobreaker.State {
	return s.cb.State()
}

// SyncDesks replaces the sheet contents with the given desks and their
// timetable bookings.
func (s *SheetsService) SyncDesks(ctx context.Context, desks []models.Desk) error {
	values := buildValues(desks)
	rng := quoteSheet(s.sheetName)

	_, err := s.cb.Execute(func() (interface{}, error) {
		if err := s.client.Clear(ctx, s.spreadsheetID, rng); err != nil {
			return nil, fmt.Errorf("clear %s: %w", rng, err)
		}
		if err := s.client.Update(ctx, s.spreadsheetID, rng+"!A1", values); err != nil {
			return nil, fmt.Errorf("update %s: %w", rng, err)
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.logger.Warn().Msg("Sheets sync skipped, circuit breaker open")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return err
	}

	s.logger.Debug().Int("rows", len(values)).Msg("Sheets synced")
	return nil
}

func buildValues(desks []models.Desk) [][]any {
	values := [][]any{deskColumns}
	for i := range desks {
		values = append(values, deskRowValues(&desks[i]))
	}
	values = append(values, []any{}, bookingColumns)
	for i := range desks {
		d := &desks[i]
		for _, b := range slots.ScheduleBookings(d.Schedule()) {
			values = append(values, bookingRowValues(d, b))
		}
	}
	return values
}

func deskRowValues(d *models.Desk) []any {
	st := status.Of(d)
	computer := "-"
	if d.Computer.Present {
		computer = string(d.Computer.Kind)
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

func bookingRowValues(d *models.Desk, b models.Booking) []any {
	return []any{
		d.Name,
		string(b.Day),
		b.Slot,
		b.Person,
		string(b.Mode),
		b.Notes,
		b.CreatedAt.Format(models.CreatedAtLayout),
	}
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
