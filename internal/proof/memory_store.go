package proof

import (
	"context"
	"sort"
	"sync"
	"time"
)

type hashKey struct {
	orgID string
	hash  string
}

// MemoryStore is an in-memory proof store for demo/development mode.
type MemoryStore struct {
	mu     sync.RWMutex
	byHash map[hashKey]*Proof
}

// NewMemoryStore creates a new in-memory proof store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byHash: make(map[hashKey]*Proof)}
}

func (m *MemoryStore) Upsert(ctx context.Context, proof *Proof) (*Proof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := hashKey{proof.OrganizationID, proof.ProofHash}
	existing, ok := m.byHash[key]
	if !ok {
		cp := *proof
		m.byHash[key] = &cp
		out := cp
		return &out, nil
	}

	existing.ProofData = proof.ProofData
	existing.Status = StatusPending
	existing.VerifiedAt = nil
	existing.UpdatedAt = proof.UpdatedAt

	out := *existing
	return &out, nil
}

func (m *MemoryStore) GetByHash(ctx context.Context, orgID, hash string) (*Proof, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	proof, ok := m.byHash[hashKey{orgID, hash}]
	if !ok {
		return nil, ErrProofNotFound
	}
	cp := *proof
	return &cp, nil
}

func (m *MemoryStore) ListByConsent(ctx context.Context, orgID, consentID string) ([]*Proof, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Proof
	for key, proof := range m.byHash {
		if key.orgID != orgID || proof.ConsentID != consentID {
			continue
		}
		cp := *proof
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, orgID, id string, status Status, verifiedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, proof := range m.byHash {
		if key.orgID != orgID || proof.ID != id {
			continue
		}
		proof.Status = status
		proof.VerifiedAt = verifiedAt
		proof.UpdatedAt = time.Now()
		return nil
	}
	return ErrProofNotFound
}
