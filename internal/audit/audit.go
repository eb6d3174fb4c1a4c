// Package audit records a best-effort trail of consent and verdict activity.
//
// Writes are asynchronous and must never block or fail a caller's request.
// A failed audit write is logged and counted, not surfaced.
package audit

import (
	"context"
	"time"
)

// Actions recorded in the audit trail.
const (
	ActionConsentUpdated  = "consent.updated"
	ActionConsentRevoked  = "consent.revoked"
	ActionConsentExported = "consent.exported"
	ActionConsentDeleted  = "consent.deleted"
	ActionProofCreated    = "proof.created"
	ActionProofVerified   = "proof.verified"
	ActionVerdictResolved = "verdict.resolved"
	ActionOrgCreated      = "organization.created"
)

// Entry is a single audit record.
type Entry struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organizationId"`
	Action         string         `json:"action"`
	ResourceType   string         `json:"resourceType"`
	ResourceID     string         `json:"resourceId,omitempty"`
	UserIdentifier string         `json:"userIdentifier,omitempty"`
	Changes        map[string]any `json:"changes,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Store persists audit entries.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, orgID string, limit int) ([]*Entry, error)
}
