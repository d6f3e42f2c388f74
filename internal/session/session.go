// Package session keeps per-operator UI state: the selected mode, the
// desk handed over from the room overview and pending slot selections.
package session

import (
	"time"

	"deskplan/internal/slots"
)

// Mode is the operator view.
type Mode string

const (
	ModePlanning      Mode = "planning"
	ModeRoomOverview  Mode = "room_overview"
	ModeConfiguration Mode = "desk_configuration"
)

func (m Mode) Valid() bool {
	switch m {
	case ModePlanning, ModeRoomOverview, ModeConfiguration:
		return true
	}
	return false
}

func (m Mode) Label() string {
	switch m {
	case ModePlanning:
		return "Planning"
	case ModeRoomOverview:
		return "Room Overview"
	case ModeConfiguration:
		return "Desk Configuration"
	}
	return string(m)
}

// Step is the input a chat surface waits for.
type Step string

const (
	StepNone     Step = ""
	StepPerson   Step = "person"
	StepNotes    Step = "notes"
	StepOccupant Step = "occupant"
	StepProject  Step = "project"
	StepContact  Step = "contact"
	StepDeskName Step = "desk_name"
)

// Session is the state of one operator.
type Session struct {
	OperatorID int64 `json:"operator_id"`
	Mode       Mode  `json:"mode"`
	// PendingDesk is set when a desk was picked in the room overview and
	// is consumed by the next entry into planning.
	PendingDesk string            `json:"pending_desk,omitempty"`
	Desk        string            `json:"desk,omitempty"`
	Selected    []slots.Ref       `json:"selected,omitempty"`
	Step        Step              `json:"step,omitempty"`
	Draft       map[string]string `json:"draft,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func New(operatorID int64) *Session {
	return &Session{OperatorID: operatorID, Mode: ModePlanning}
}

// BookFromRoom hands a desk from the room overview to planning.
func (s *Session) BookFromRoom(deskID string) {
	s.Mode = ModePlanning
	s.PendingDesk = deskID
	s.resetInput()
}

// SwitchMode is a manual mode change. It drops any pending handoff.
func (s *Session) SwitchMode(m Mode) {
	s.Mode = m
	s.PendingDesk = ""
	s.resetInput()
}

// PlanningDesk returns the desk planning should show: the pending
// handoff if there is one, otherwise fallback. The handoff is cleared,
// and so are selections made for a different desk.
func (s *Session) PlanningDesk(fallback string) string {
	if s.PendingDesk != "" {
		id := s.PendingDesk
		s.PendingDesk = ""
		if id != s.Desk {
			s.Selected = nil
		}
		s.Desk = id
		return id
	}
	if fallback != "" {
		s.Desk = fallback
	}
	return s.Desk
}

// SelectDesk picks the desk to work on and clears selections made for
// another desk.
func (s *Session) SelectDesk(deskID string) {
	if s.Desk != deskID {
		s.Selected = nil
	}
	s.Desk = deskID
	s.Step = StepNone
}

// ToggleSlot adds or removes a slot from the selection and reports
// whether it is selected afterwards.
func (s *Session) ToggleSlot(ref slots.Ref) bool {
	for i, r := range s.Selected {
		if r == ref {
			s.Selected = append(s.Selected[:i], s.Selected[i+1:]...)
			return false
		}
	}
	s.Selected = append(s.Selected, ref)
	slots.SortRefs(s.Selected)
	return true
}

func (s *Session) IsSelected(ref slots.Ref) bool {
	for _, r := range s.Selected {
		if r == ref {
			return true
		}
	}
	return false
}

// ResetSlots clears the selection and any draft input.
func (s *Session) ResetSlots() {
	s.Selected = nil
	s.resetInput()
}

// Await records the input the surface waits for next.
func (s *Session) Await(step Step) {
	s.Step = step
}

// SetDraft stores a value collected by a multi-step form.
func (s *Session) SetDraft(key, value string) {
	if s.Draft == nil {
		s.Draft = make(map[string]string)
	}
	s.Draft[key] = value
}

func (s *Session) DraftValue(key string) string {
	return s.Draft[key]
}

func (s *Session) resetInput() {
	s.Step = StepNone
	s.Draft = nil
}

func (s *Session) clone() *Session {
	c := *s
	c.Selected = append([]slots.Ref(nil), s.Selected...)
	if s.Draft != nil {
		c.Draft = make(map[string]string, len(s.Draft))
		for k, v := range s.Draft {
			c.Draft[k] = v
		}
	}
	return &c
}
