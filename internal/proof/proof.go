// Package proof implements the tamper-evident consent proof ledger.
//
// A proof is the SHA-256 of a consent decision's canonical JSON payload.
// Verification rehashes the payload rebuilt from the live consent record,
// so any later mutation of the record makes the stored hash diverge. The
// proof is a checksum against the authoritative record, not a cached
// boolean.
package proof

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrProofNotFound = errors.New("proof not found")
	ErrInvalidInput  = errors.New("invalid input")
)

// Status is a proof lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusFailed   Status = "failed"
	StatusExpired  Status = "expired"
)

// Payload is the hashed snapshot of a consent decision. Field names are
// part of the hash input and must stay stable.
type Payload struct {
	ConsentID      string         `json:"consent_id"`
	UserIdentifier string         `json:"user_identifier"`
	ConsentType    string         `json:"consent_type"`
	Status         string         `json:"status"`
	Timestamp      string         `json:"timestamp"`
	IPAddress      string         `json:"ip_address,omitempty"`
	UserAgent      string         `json:"user_agent,omitempty"`
	Metadata       map[string]any `json:"metadata"`
}

// Proof binds a consent decision to its content hash.
type Proof struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organizationId"`
	ConsentID      string     `json:"consentId"`
	ProofHash      string     `json:"proofHash"`
	ProofData      Payload    `json:"proofData"`
	Status         Status     `json:"status"`
	BlockchainTxID string     `json:"blockchainTxId,omitempty"`
	VerifiedAt     *time.Time `json:"verifiedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Certificate is a display-ready projection of a proof and its
// verification outcome.
type Certificate struct {
	ProofHash        string    `json:"proofHash"`
	ConsentType      string    `json:"consentType"`
	ConsentStatus    string    `json:"consentStatus"`
	UserIdentifier   string    `json:"userIdentifier"`
	Timestamp        time.Time `json:"timestamp"`
	Verified         bool      `json:"verified"`
	VerificationDate time.Time `json:"verificationDate"`
	BlockchainTxID   string    `json:"blockchainTxId,omitempty"`
	CertificateURL   string    `json:"certificateUrl"`
}

// BatchResult is one entry of a batch verification.
type BatchResult struct {
	ProofHash string `json:"proofHash"`
	Verified  bool   `json:"verified"`
}

// Store persists proofs.
type Store interface {
	// Upsert creates the proof or, when the same hash already exists,
	// refreshes its payload and resets its status to pending. The
	// original ID and CreatedAt survive a refresh.
	Upsert(ctx context.Context, proof *Proof) (*Proof, error)
	GetByHash(ctx context.Context, orgID, hash string) (*Proof, error)
	ListByConsent(ctx context.Context, orgID, consentID string) ([]*Proof, error)
	UpdateStatus(ctx context.Context, orgID, id string, status Status, verifiedAt *time.Time) error
}
