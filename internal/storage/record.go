package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"deskplan/internal/models"

	"github.com/rs/zerolog"
)

// CurrentSchemaVersion is written with every saved document. Documents
// with a lower version are migrated on load.
const CurrentSchemaVersion = 2

// DocumentRecord is the persisted shape of the booking document.
type DocumentRecord struct {
	SchemaVersion int                   `json:"schema_version,omitempty"`
	Desks         map[string]DeskRecord `json:"tische"`
}

// DeskRecord is the persisted shape of one desk. Which of Bookings,
// Occupant and Project are written depends on Type.
type DeskRecord struct {
	Name     string                   `json:"name"`
	Type     string                   `json:"typ"`
	Computer ComputerRecord           `json:"rechner"`
	Bookings map[string]BookingRecord `json:"buchungen,omitempty"`
	Occupant string                   `json:"gebucht_von,omitempty"`
	Project  string                   `json:"projekt_name,omitempty"`
}

type ComputerRecord struct {
	Present      bool   `json:"vorhanden"`
	Kind         string `json:"typ"`
	Name         string `json:"name"`
	Shutdownable bool   `json:"abschaltbar"`
	Screens      int    `json:"bildschirme"`
}

type BookingRecord struct {
	Person    string `json:"person"`
	Day       string `json:"tag"`
	Slot      string `json:"zeitslot"`
	Mode      string `json:"rechner_modus"`
	Notes     string `json:"notizen"`
	CreatedAt string `json:"erstellt_am"`
}

type deskBase struct {
	Name     string         `json:"name"`
	Type     string         `json:"typ"`
	Computer ComputerRecord `json:"rechner"`
}

type scheduleDeskRecord struct {
	deskBase
	Bookings map[string]BookingRecord `json:"buchungen"`
}

type fullBookingDeskRecord struct {
	deskBase
	Occupant string `json:"gebucht_von"`
}

type projectDeskRecord struct {
	deskBase
	Project  string `json:"projekt_name"`
	Occupant string `json:"gebucht_von"`
}

// MarshalJSON writes exactly the fields belonging to the desk type.
func (r DeskRecord) MarshalJSON() ([]byte, error) {
	base := deskBase{Name: r.Name, Type: r.Type, Computer: r.Computer}
	switch models.BookingType(r.Type) {
	case models.TypeSchedule:
		bookings := r.Bookings
		if bookings == nil {
			bookings = map[string]BookingRecord{}
		}
		return json.Marshal(scheduleDeskRecord{deskBase: base, Bookings: bookings})
	case models.TypeFullBooking:
		return json.Marshal(fullBookingDeskRecord{deskBase: base, Occupant: r.Occupant})
	case models.TypeProject:
		return json.Marshal(projectDeskRecord{deskBase: base, Project: r.Project, Occupant: r.Occupant})
	}
	type plain DeskRecord
	return json.Marshal(plain(r))
}

// Encode converts a document into its persisted shape.
func Encode(doc *models.Document) DocumentRecord {
	rec := DocumentRecord{
		SchemaVersion: CurrentSchemaVersion,
		Desks:         make(map[string]DeskRecord, len(doc.Desks)),
	}
	for id, d := range doc.Desks {
		c := d.Computer.Normalize()
		dr := DeskRecord{
			Name: d.Name,
			Type: string(d.Type),
			Computer: ComputerRecord{
				Present:      c.Present,
				Kind:         string(c.Kind),
				Name:         c.Name,
				Shutdownable: c.Shutdownable,
				Screens:      c.Screens,
			},
		}
		switch p := d.Payload.(type) {
		case *models.Schedule:
			dr.Bookings = make(map[string]BookingRecord, len(p.Bookings))
			for bid, b := range p.Bookings {
				dr.Bookings[bid] = BookingRecord{
					Person:    b.Person,
					Day:       string(b.Day),
					Slot:      b.Slot,
					Mode:      string(b.Mode),
					Notes:     b.Notes,
					CreatedAt: b.CreatedAt.Format(models.CreatedAtLayout),
				}
			}
		case *models.FullBooking:
			dr.Occupant = p.Occupant
		case *models.ProjectAssignment:
			dr.Project = p.Project
			dr.Occupant = p.Contact
		}
		rec.Desks[id] = dr
	}
	return rec
}

// Repair describes a stored entry that Decode could not take over as
// is. Booking is empty for desk level repairs.
type Repair struct {
	Desk    string
	Booking string
	Reason  string
}

// LogRepairs writes one warning per repair.
func LogRepairs(logger *zerolog.Logger, source string, repairs []Repair) {
	for _, r := range repairs {
		ev := logger.Warn().Str("source", source).Str("desk", r.Desk)
		if r.Booking != "" {
			ev = ev.Str("booking", r.Booking)
		}
		ev.Msg("Stored document repaired: " + r.Reason)
	}
}

// Decode converts a migrated record into a document. Desks with an
// unknown booking type are read as timetable desks. Entries that cannot
// be represented are clamped or dropped one by one and reported as
// repairs; the rest of the document is kept.
func Decode(rec DocumentRecord) (*models.Document, []Repair) {
	doc := models.NewDocument()
	var repairs []Repair
	for id, dr := range rec.Desks {
		t := models.BookingType(dr.Type)
		if !t.Valid() {
			t = models.TypeSchedule
		}
		kind := models.ComputerKind(dr.Computer.Kind)
		if !kind.Valid() {
			kind = models.ComputerNone
		}
		name := dr.Name
		if name == "" {
			name = models.DefaultDeskName(id)
		}
		screens := dr.Computer.Screens
		if screens < 0 || screens > models.MaxScreens {
			clamped := min(max(screens, 0), models.MaxScreens)
			repairs = append(repairs, Repair{Desk: id, Reason: fmt.Sprintf("screens %d clamped to %d", screens, clamped)})
			screens = clamped
		}
		desk := &models.Desk{
			ID:   id,
			Name: name,
			Type: t,
			Computer: models.Computer{
				Present:      dr.Computer.Present,
				Kind:         kind,
				Name:         dr.Computer.Name,
				Shutdownable: dr.Computer.Shutdownable,
				Screens:      screens,
			}.Normalize(),
			Payload: models.NewPayload(t),
		}
		switch p := desk.Payload.(type) {
		case *models.Schedule:
			for bid, br := range dr.Bookings {
				b, repair := decodeBooking(bid, br)
				if repair != "" {
					repairs = append(repairs, Repair{Desk: id, Booking: bid, Reason: repair})
				}
				if b != nil {
					p.Bookings[bid] = *b
				}
			}
		case *models.FullBooking:
			p.Occupant = dr.Occupant
		case *models.ProjectAssignment:
			p.Project = dr.Project
			p.Contact = dr.Occupant
		}
		if t != models.TypeSchedule && len(dr.Bookings) > 0 {
			repairs = append(repairs, Repair{Desk: id, Reason: fmt.Sprintf("dropped %d bookings of %s desk", len(dr.Bookings), t)})
		}
		if err := desk.Validate(); err != nil {
			repairs = append(repairs, Repair{Desk: id, Reason: "desk dropped: " + err.Error()})
			continue
		}
		doc.Desks[id] = desk
	}
	return doc, repairs
}

// decodeBooking returns nil when the booking has to be dropped. A
// non-empty reason describes what was dropped or cleared.
func decodeBooking(id string, br BookingRecord) (*models.Booking, string) {
	b := models.Booking{
		ID:     id,
		Person: br.Person,
		Day:    models.Weekday(br.Day),
		Slot:   br.Slot,
		Mode:   models.ComputerMode(br.Mode),
		Notes:  br.Notes,
	}
	if !b.Day.Valid() {
		return nil, fmt.Sprintf("booking dropped: unknown weekday %q", br.Day)
	}
	if br.CreatedAt == "" {
		return &b, ""
	}
	at, err := time.ParseInLocation(models.CreatedAtLayout, br.CreatedAt, time.Local)
	if err != nil {
		return &b, fmt.Sprintf("unreadable creation time %q cleared", br.CreatedAt)
	}
	b.CreatedAt = at
	return &b, ""
}

// Marshal renders a document as indented JSON.
func Marshal(doc *models.Document) ([]byte, error) {
	return marshalRecord(Encode(doc))
}

func marshalRecord(rec DocumentRecord) ([]byte, error) {
	if rec.Desks == nil {
		rec.Desks = map[string]DeskRecord{}
	}
	return json.MarshalIndent(rec, "", "  ")
}

// Unmarshal parses persisted JSON, migrates legacy values and decodes
// it. Only malformed JSON is an error.
func Unmarshal(data []byte) (*models.Document, []Repair, error) {
	var rec DocumentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil, fmt.Errorf("parse document: %w", err)
	}
	if rec.SchemaVersion < CurrentSchemaVersion {
		rec = Migrate(rec)
	}
	doc, repairs := Decode(rec)
	return doc, repairs, nil
}
