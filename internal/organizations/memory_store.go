package organizations

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory organization store for demo/development mode.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*Organization
	byHash map[string]*Organization
}

// NewMemoryStore creates a new in-memory organization store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*Organization),
		byHash: make(map[string]*Organization),
	}
}

func (m *MemoryStore) Create(ctx context.Context, org *Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *org
	m.byID[org.ID] = &cp
	m.byHash[org.APIKeyHash] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	org, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (m *MemoryStore) GetByKeyHash(ctx context.Context, hash string) (*Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	org, ok := m.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context, limit int) ([]*Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Organization, 0, len(m.byID))
	for _, org := range m.byID {
		cp := *org
		result = append(result, &cp)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}
