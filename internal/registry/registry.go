// Package registry provides ordered lookup and configuration of the
// desks held in a document.
package registry

import (
	"fmt"
	"strings"

	"deskplan/internal/models"
)

// ErrDeskNotFound is wrapped by lookups of unknown desk ids.
type ErrDeskNotFound struct {
	ID string
}

func (e *ErrDeskNotFound) Error() string {
	return fmt.Sprintf("desk %s not found", e.ID)
}

// Registry operates on a checked-out document. It is not safe for
// concurrent use; callers serialize access.
type Registry struct {
	doc *models.Document
}

func New(doc *models.Document) *Registry {
	return &Registry{doc: doc}
}

// List returns the desks in ascending numeric id order.
func (r *Registry) List() []*models.Desk {
	ids := r.doc.DeskIDs()
	out := make([]*models.Desk, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.doc.Desks[id])
	}
	return out
}

func (r *Registry) Get(id string) (*models.Desk, error) {
	d, ok := r.doc.Desks[id]
	if !ok {
		return nil, &ErrDeskNotFound{ID: id}
	}
	return d, nil
}

// Change describes the outcome of Update.
type Change struct {
	DeskID       string             `json:"desk_id"`
	TypeChanged  bool               `json:"type_changed"`
	PreviousType models.BookingType `json:"previous_type,omitempty"`
	// Discarded summarizes payload data dropped by a type change.
	Discarded string `json:"discarded,omitempty"`
}

// Update applies mutate to the editable settings of a desk. A change of
// booking type replaces the payload with the empty payload of the new
// type; the previous payload is described in the returned Change.
func (r *Registry) Update(id string, mutate func(*models.DeskSettings) error) (Change, error) {
	d, err := r.Get(id)
	if err != nil {
		return Change{}, err
	}

	settings := d.Settings()
	if err := mutate(&settings); err != nil {
		return Change{}, err
	}
	if err := validateSettings(settings); err != nil {
		return Change{}, err
	}

	change := Change{DeskID: id, PreviousType: d.Type}
	name := strings.TrimSpace(settings.Name)
	if name == "" {
		name = models.DefaultDeskName(id)
	}
	d.Name = name
	d.Computer = settings.Computer.Normalize()

	if settings.Type != d.Type {
		change.TypeChanged = true
		change.Discarded = describePayload(d.Payload)
		d.Type = settings.Type
		d.Payload = models.NewPayload(settings.Type)
	}
	return change, nil
}

// Ensure adds the given desks when their id is not present yet.
// Existing desks are left unchanged. It returns the ids that were added.
func (r *Registry) Ensure(desks []*models.Desk) []string {
	var added []string
	for _, d := range desks {
		if _, ok := r.doc.Desks[d.ID]; ok {
			continue
		}
		r.doc.Desks[d.ID] = d.Clone()
		added = append(added, d.ID)
	}
	models.SortDeskIDs(added)
	return added
}

// TypeMismatches returns the ids of desks that exist with another
// booking type than the given one.
func (r *Registry) TypeMismatches(desks []*models.Desk) []string {
	var ids []string
	for _, d := range desks {
		if cur, ok := r.doc.Desks[d.ID]; ok && cur.Type != d.Type {
			ids = append(ids, d.ID)
		}
	}
	models.SortDeskIDs(ids)
	return ids
}

// SettingsError reports invalid desk settings.
type SettingsError struct {
	Field   string
	Message string
}

func (e *SettingsError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validateSettings(s models.DeskSettings) error {
	if !s.Type.Valid() {
		return &SettingsError{Field: "type", Message: fmt.Sprintf("unknown booking type %q", s.Type)}
	}
	c := s.Computer.Normalize()
	if !c.Kind.Valid() {
		return &SettingsError{Field: "computer.kind", Message: fmt.Sprintf("unknown computer type %q", c.Kind)}
	}
	if c.Screens < 0 || c.Screens > models.MaxScreens {
		return &SettingsError{Field: "computer.screens", Message: fmt.Sprintf("must be between 0 and %d", models.MaxScreens)}
	}
	return nil
}

func describePayload(p models.Payload) string {
	switch v := p.(type) {
	case *models.Schedule:
		if len(v.Bookings) == 0 {
			return ""
		}
		return fmt.Sprintf("%d bookings", len(v.Bookings))
	case *models.FullBooking:
		if v.Occupant == "" {
			return ""
		}
		return "occupant " + v.Occupant
	case *models.ProjectAssignment:
		if v.Project == "" && v.Contact == "" {
			return ""
		}
		return fmt.Sprintf("project %q contact %q", v.Project, v.Contact)
	}
	return ""
}
