// Package api exposes the booking engine over HTTP/JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"deskplan/internal/booking"
	"deskplan/internal/models"
	"deskplan/internal/registry"
	"deskplan/internal/slots"
	"deskplan/internal/status"

	"github.com/rs/zerolog"
)

// DeskService is the booking engine as used by the API.
type DeskService interface {
	Overview() []booking.DeskView
	Desk(id string) (models.Desk, error)
	Status(id string) (status.Status, error)
	Bookings(id string) ([]models.Booking, error)
	Week(id string) (slots.Week, error)
	AddBooking(ctx context.Context, deskID string, req booking.AddBookingRequest) ([]models.Booking, error)
	RemoveBooking(ctx context.Context, deskID, bookingID string) error
	SetOccupant(ctx context.Context, deskID, name string) error
	SetProject(ctx context.Context, deskID, project, contact string) error
	ConfigureDesk(ctx context.Context, deskID string, settings models.DeskSettings) (registry.Change, error)
}

// Exporter renders the room as a workbook.
type Exporter interface {
	Write(w io.Writer) error
}

// Config for the HTTP server.
type Config struct {
	Port               int
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// HTTPServer serves the JSON API.
type HTTPServer struct {
	svc      DeskService
	exporter Exporter
	server   *http.Server
	logger   zerolog.Logger
}

func NewHTTPServer(cfg Config, svc DeskService, exporter Exporter, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		svc:      svc,
		exporter: exporter,
		logger:   logger.With().Str("component", "api").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/desks", s.handleDesks)
	mux.HandleFunc("GET /api/desks/{id}", s.handleDesk)
	mux.HandleFunc("PUT /api/desks/{id}", s.handleConfigureDesk)
	mux.HandleFunc("GET /api/desks/{id}/bookings", s.handleBookings)
	mux.HandleFunc("POST /api/desks/{id}/bookings", s.handleAddBooking)
	mux.HandleFunc("DELETE /api/desks/{id}/bookings/{bookingID}", s.handleRemoveBooking)
	mux.HandleFunc("GET /api/desks/{id}/week", s.handleWeek)
	mux.HandleFunc("PUT /api/desks/{id}/occupant", s.handleSetOccupant)
	mux.HandleFunc("PUT /api/desks/{id}/project", s.handleSetProject)
	mux.HandleFunc("GET /api/export.xlsx", s.handleExport)

	var handler http.Handler = mux
	handler = newRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst).middleware(handler)
	handler = s.requestLogger(handler)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

const codeRateLimited = "RATE_LIMITED"

var timeNow = time.Now

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeServiceError maps booking errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := booking.Code(err)
	status := http.StatusInternalServerError
	switch code {
	case booking.CodeValidation:
		status = http.StatusBadRequest
	case booking.CodeNotFound:
		status = http.StatusNotFound
	case booking.CodeConflict:
		status = http.StatusConflict
	case booking.CodePersistence:
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("code", code).Msg("Request failed")
	}
	writeError(w, status, code, err.Error())
}

func decodeBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return &booking.ValidationError{Field: "body", Message: "invalid JSON body"}
	}
	return nil
}
