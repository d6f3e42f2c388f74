package models

// Document is the whole persisted booking state: every desk keyed by id.
type Document struct {
	Desks map[string]*Desk
}

func NewDocument() *Document {
	return &Document{Desks: make(map[string]*Desk)}
}

// Clone returns a deep copy that can be mutated without affecting d.
func (d *Document) Clone() *Document {
	out := &Document{Desks: make(map[string]*Desk, len(d.Desks))}
	for id, desk := range d.Desks {
		out.Desks[id] = desk.Clone()
	}
	return out
}

// DeskIDs returns the desk ids in numeric order.
func (d *Document) DeskIDs() []string {
	ids := make([]string, 0, len(d.Desks))
	for id := range d.Desks {
		ids = append(ids, id)
	}
	SortDeskIDs(ids)
	return ids
}

func (d *Document) Validate() error {
	for _, desk := range d.Desks {
		if err := desk.Validate(); err != nil {
			return err
		}
	}
	return nil
}
