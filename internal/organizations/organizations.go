// Package organizations resolves API keys to tenant organizations.
//
// Every consent, bot-detection, and proof operation is scoped to exactly one
// organization. The request layer resolves the caller's API key up front and
// nothing downstream runs without a resolved organization. Raw keys are shown
// once at creation and stored only as SHA-256 hashes.
package organizations

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/consentry/consentry/internal/idgen"
)

// Errors
var (
	ErrNoAPIKey      = errors.New("API key required")
	ErrInvalidAPIKey = errors.New("invalid API key")
	ErrNotFound      = errors.New("organization not found")
)

// Organization is a tenant of the service.
type Organization struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	APIKeyHash string         `json:"-"` // SHA256 hash of the raw key (stored)
	Settings   map[string]any `json:"settings"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// Store persists organizations.
type Store interface {
	Create(ctx context.Context, org *Organization) error
	Get(ctx context.Context, id string) (*Organization, error)
	GetByKeyHash(ctx context.Context, hash string) (*Organization, error)
	List(ctx context.Context, limit int) ([]*Organization, error)
}

// Manager handles organization provisioning and API key resolution.
type Manager struct {
	store Store
}

// NewManager creates a new organization manager.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Create provisions a new organization and returns the raw API key.
// The raw key is shown once; only its hash is stored.
func (m *Manager) Create(ctx context.Context, name string) (rawKey string, org *Organization, err error) {
	rawKey = "ck_" + idgen.Hex(32)

	now := time.Now()
	org = &Organization{
		ID:         idgen.WithPrefix("org_"),
		Name:       name,
		APIKeyHash: hashKey(rawKey),
		Settings:   map[string]any{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := m.store.Create(ctx, org); err != nil {
		return "", nil, err
	}

	return rawKey, org, nil
}

// Validate resolves a raw API key to its organization.
// Returns ErrNoAPIKey for empty input and ErrInvalidAPIKey when no
// organization matches.
func (m *Manager) Validate(ctx context.Context, rawKey string) (*Organization, error) {
	if rawKey == "" {
		return nil, ErrNoAPIKey
	}

	rawKey = strings.TrimPrefix(rawKey, "Bearer ")
	rawKey = strings.TrimSpace(rawKey)

	if !strings.HasPrefix(rawKey, "ck_") {
		return nil, ErrInvalidAPIKey
	}

	org, err := m.store.GetByKeyHash(ctx, hashKey(rawKey))
	if err != nil {
		return nil, ErrInvalidAPIKey
	}
	return org, nil
}

// List returns provisioned organizations.
func (m *Manager) List(ctx context.Context, limit int) ([]*Organization, error) {
	return m.store.List(ctx, limit)
}

func hashKey(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
