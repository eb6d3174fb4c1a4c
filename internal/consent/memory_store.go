package consent

import (
	"context"
	"sort"
	"sync"
)

type recordKey struct {
	orgID       string
	user        string
	consentType Type
}

// MemoryStore is an in-memory consent store for demo/development mode.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]*Record
}

// NewMemoryStore creates a new in-memory consent store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[recordKey]*Record)}
}

func (m *MemoryStore) Upsert(ctx context.Context, record *Record) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey{record.OrganizationID, record.UserIdentifier, record.ConsentType}
	existing, ok := m.records[key]
	if !ok {
		cp := *record
		m.records[key] = &cp
		out := cp
		return &out, nil
	}

	existing.Status = record.Status
	existing.Metadata = record.Metadata
	existing.IPAddress = record.IPAddress
	existing.UserAgent = record.UserAgent
	existing.UpdatedAt = record.UpdatedAt

	out := *existing
	return &out, nil
}

func (m *MemoryStore) Get(ctx context.Context, orgID, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, record := range m.records {
		if record.OrganizationID == orgID && record.ID == id {
			cp := *record
			return &cp, nil
		}
	}
	return nil, ErrConsentNotFound
}

func (m *MemoryStore) List(ctx context.Context, orgID, userIdentifier string, consentType Type) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Record
	for key, record := range m.records {
		if key.orgID != orgID || key.user != userIdentifier {
			continue
		}
		if consentType != "" && key.consentType != consentType {
			continue
		}
		cp := *record
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MemoryStore) DeleteUser(ctx context.Context, orgID, userIdentifier string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.records {
		if key.orgID == orgID && key.user == userIdentifier {
			delete(m.records, key)
		}
	}
	return nil
}
