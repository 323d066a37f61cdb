package selection

import (
	"context"
	"sync"
)

// Store loads and saves the current selection. Implementations encode the
// set as a route path.
type Store interface {
	Load(ctx context.Context) (Set, error)
	Save(ctx context.Context, s Set) error
}

// MemoryStore keeps the route in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	path  string
	limit int
}

// NewMemoryStore returns a store starting at the root route.
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{path: "/", limit: limit}
}

func (m *MemoryStore) Load(_ context.Context) (Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ParsePath(m.path, m.limit), nil
}

func (m *MemoryStore) Save(_ context.Context, s Set) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.path = Path(s)
	return nil
}

// Route returns the last saved path.
func (m *MemoryStore) Route() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}
