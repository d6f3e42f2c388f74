package api

import (
	"bytes"
	"net/http"

	"deskplan/internal/booking"
	"deskplan/internal/export"
	"deskplan/internal/metrics"
	"deskplan/internal/models"
	"deskplan/internal/registry"
	"deskplan/internal/slots"
	"deskplan/internal/status"
)

// DeskResponse represents a desk in API responses.
type DeskResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Computer models.Computer `json:"computer"`
	Status   status.Status   `json:"status"`
	Occupant string          `json:"occupant,omitempty"`
	Project  string          `json:"project,omitempty"`
	Contact  string          `json:"contact,omitempty"`
	Bookings int             `json:"bookings"`
}

// BookingResponse represents a timetable booking in API responses.
type BookingResponse struct {
	ID        string `json:"id"`
	Person    string `json:"person"`
	Day       string `json:"day"`
	Slot      string `json:"slot"`
	Mode      string `json:"mode"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at"`
}

// OccupantRequest is the body of PUT /api/desks/{id}/occupant.
type OccupantRequest struct {
	Occupant string `json:"occupant"`
}

// ProjectRequest is the body of PUT /api/desks/{id}/project.
type ProjectRequest struct {
	Project string `json:"project"`
	Contact string `json:"contact"`
}

// ConfigureResponse reports the outcome of a configuration change.
type ConfigureResponse struct {
	Desk   DeskResponse    `json:"desk"`
	Change registry.Change `json:"change"`
}

func deskResponse(d *models.Desk, st status.Status) DeskResponse {
	resp := DeskResponse{
		ID:       d.ID,
		Name:     d.Name,
		Type:     string(d.Type),
		Computer: d.Computer,
		Status:   st,
		Bookings: d.BookingCount(),
	}
	if fb := d.FullBooking(); fb != nil {
		resp.Occupant = fb.Occupant
	}
	if p := d.Project(); p != nil {
		resp.Project = p.Project
		resp.Contact = p.Contact
	}
	return resp
}

func bookingResponses(bookings []models.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, BookingResponse{
			ID:        b.ID,
			Person:    b.Person,
			Day:       string(b.Day),
			Slot:      b.Slot,
			Mode:      string(b.Mode),
			Notes:     b.Notes,
			CreatedAt: b.CreatedAt.Format(models.CreatedAtLayout),
		})
	}
	return out
}

// handleDesks returns the room overview.
// GET /api/desks
func (s *HTTPServer) handleDesks(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("desks")

	views := s.svc.Overview()
	out := make([]DeskResponse, 0, len(views))
	for i := range views {
		out = append(out, deskResponse(&views[i].Desk, views[i].Status))
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/desks/{id}
func (s *HTTPServer) handleDesk(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("desk")

	s.writeDesk(w, r)
}

func (s *HTTPServer) writeDesk(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, err := s.svc.Desk(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	st, err := s.svc.Status(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deskResponse(&d, st))
}

// PUT /api/desks/{id}
func (s *HTTPServer) handleConfigureDesk(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("configure_desk")

	var req models.DeskSettings
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	id := r.PathValue("id")
	change, err := s.svc.ConfigureDesk(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	d, err := s.svc.Desk(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ConfigureResponse{Desk: deskResponse(&d, status.Of(&d)), Change: change})
}

// GET /api/desks/{id}/bookings
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings")

	bookings, err := s.svc.Bookings(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingResponses(bookings))
}

// POST /api/desks/{id}/bookings
func (s *HTTPServer) handleAddBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("add_booking")

	var req booking.AddBookingRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	created, err := s.svc.AddBooking(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bookingResponses(created))
}

// DELETE /api/desks/{id}/bookings/{bookingID}
func (s *HTTPServer) handleRemoveBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("remove_booking")

	if err := s.svc.RemoveBooking(r.Context(), r.PathValue("id"), r.PathValue("bookingID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/desks/{id}/week
func (s *HTTPServer) handleWeek(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("week")

	week, err := s.svc.Week(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, weekResponse(week))
}

// WeekResponse is the weekly grid keyed by day, then slot.
type WeekResponse struct {
	Days  []string                     `json:"days"`
	Slots []string                     `json:"slots"`
	Cells map[string]map[string]string `json:"cells"`
}

func weekResponse(week slots.Week) WeekResponse {
	resp := WeekResponse{
		Slots: week.Slots,
		Cells: make(map[string]map[string]string, len(week.Days)),
	}
	for i, day := range week.Days {
		resp.Days = append(resp.Days, string(day))
		row := make(map[string]string)
		for _, c := range week.Cells[i] {
			if p := c.Person(); p != "" {
				row[c.Slot] = p
			}
		}
		resp.Cells[string(day)] = row
	}
	return resp
}

// PUT /api/desks/{id}/occupant
func (s *HTTPServer) handleSetOccupant(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("set_occupant")

	var req OccupantRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.svc.SetOccupant(r.Context(), r.PathValue("id"), req.Occupant); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.writeDesk(w, r)
}

// PUT /api/desks/{id}/project
func (s *HTTPServer) handleSetProject(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("set_project")

	var req ProjectRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.svc.SetProject(r.Context(), r.PathValue("id"), req.Project, req.Contact); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.writeDesk(w, r)
}

// GET /api/export.xlsx
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export")

	if s.exporter == nil {
		writeError(w, http.StatusNotFound, booking.CodeNotFound, "export not configured")
		return
	}

	var buf bytes.Buffer
	if err := s.exporter.Write(&buf); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.GenerateFilename(timeNow())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
