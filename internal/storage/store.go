package storage

import (
	"context"
	"errors"
	"sync"

	"deskplan/internal/models"
)

// ErrNotFound is returned by Load when no document has been saved yet.
var ErrNotFound = errors.New("document not found")

// Store loads and saves the whole booking document.
type Store interface {
	Load(ctx context.Context) (*models.Document, error)
	Save(ctx context.Context, doc *models.Document) error
}

// SetAsider is implemented by stores that can copy an unreadable
// document out of the way before it is replaced.
type SetAsider interface {
	SetAside(ctx context.Context) (string, error)
}

const setAsideLayout = "20060102T150405"

// Pinger is implemented by stores that can report backend readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MemoryStore keeps the document in process. It is used for tests and
// ephemeral runs.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, ErrNotFound
	}
	// only documents written by Save are held, so nothing needs repair
	doc, _, err := Unmarshal(s.data)
	return doc, err
}

func (s *MemoryStore) Save(ctx context.Context, doc *models.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// Bytes returns the last saved JSON.
func (s *MemoryStore) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}
