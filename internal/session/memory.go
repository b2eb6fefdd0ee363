package session

import (
	"context"
	"sync"
	"time"

	"github.com/sakif/fileblog/internal/model"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps sessions in a map. Expired entries are dropped lazily on
// Get and swept on every Save, so the map never grows past the number of
// sessions live since the last login.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	now      func() time.Time
}

// NewMemoryStore returns an empty store using time.Now.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock returns an empty store using the given clock.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]model.Session),
		now:      now,
	}
}

func (m *MemoryStore) Save(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, existing := range m.sessions {
		if existing.Expired(now) {
			delete(m.sessions, id)
		}
	}

	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Expired(m.now()) {
		delete(m.sessions, id)
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
