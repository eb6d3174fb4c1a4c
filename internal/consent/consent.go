// Package consent manages per-user consent records. A consent record is
// the authoritative statement of whether a user granted or denied a given
// consent type; the proof ledger verifies its hashes against these records.
//
// At most one record exists per (organization, user, consent type); setting
// consent again updates that record in place.
package consent

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrConsentNotFound = errors.New("consent record not found")
	ErrInvalidInput    = errors.New("invalid input")
)

// Type is a consent category.
type Type string

const (
	TypeMarketing       Type = "marketing"
	TypeAnalytics       Type = "analytics"
	TypeFunctional      Type = "functional"
	TypePersonalization Type = "personalization"
)

// KnownType reports whether t is a recognized consent type.
func KnownType(t Type) bool {
	switch t {
	case TypeMarketing, TypeAnalytics, TypeFunctional, TypePersonalization:
		return true
	}
	return false
}

// Status is a consent decision state.
type Status string

const (
	StatusGranted Status = "granted"
	StatusDenied  Status = "denied"
	StatusPending Status = "pending"
)

// KnownStatus reports whether s is a recognized consent status.
func KnownStatus(s Status) bool {
	switch s {
	case StatusGranted, StatusDenied, StatusPending:
		return true
	}
	return false
}

// Record is one user's decision for one consent type.
type Record struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organizationId"`
	UserIdentifier string         `json:"userIdentifier"`
	ConsentType    Type           `json:"consentType"`
	Status         Status         `json:"status"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	IPAddress      string         `json:"ipAddress,omitempty"`
	UserAgent      string         `json:"userAgent,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Store persists consent records.
type Store interface {
	// Upsert creates the record or updates the existing one keyed by
	// (organizationID, userIdentifier, consentType). The original ID and
	// CreatedAt survive an update.
	Upsert(ctx context.Context, record *Record) (*Record, error)
	Get(ctx context.Context, orgID, id string) (*Record, error)
	// List returns a user's records, newest first. consentType "" matches all.
	List(ctx context.Context, orgID, userIdentifier string, consentType Type) ([]*Record, error)
	DeleteUser(ctx context.Context, orgID, userIdentifier string) error
}
