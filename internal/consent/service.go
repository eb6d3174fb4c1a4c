package consent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/consentry/consentry/internal/audit"
	"github.com/consentry/consentry/internal/idgen"
)

// Auditor records audit trail entries. Implementations must not block.
type Auditor interface {
	Record(orgID, action, resourceType, resourceID, userIdentifier string, changes map[string]any)
}

// SetInput is the client-supplied portion of a consent decision.
type SetInput struct {
	UserIdentifier string
	ConsentType    Type
	Status         Status
	Metadata       map[string]any
	IPAddress      string
	UserAgent      string
}

// Decision is one entry in a batch consent update.
type Decision struct {
	ConsentType Type   `json:"type"`
	Status      Status `json:"status"`
}

// Export is a GDPR data export for one user.
type Export struct {
	UserIdentifier string          `json:"userIdentifier"`
	ExportDate     time.Time       `json:"exportDate"`
	Consents       []ExportedEntry `json:"consents"`
}

// ExportedEntry is one consent decision inside an export.
type ExportedEntry struct {
	Type      Type           `json:"type"`
	Status    Status         `json:"status"`
	GrantedAt time.Time      `json:"grantedAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Service manages the consent lifecycle.
type Service struct {
	store   Store
	auditor Auditor
	logger  *slog.Logger
}

// NewService creates a new consent service. auditor may be nil.
func NewService(store Store, auditor Auditor, logger *slog.Logger) *Service {
	return &Service{store: store, auditor: auditor, logger: logger}
}

// Set records a consent decision, replacing any prior decision for the
// same (user, type).
func (s *Service) Set(ctx context.Context, orgID string, in SetInput) (*Record, error) {
	if in.UserIdentifier == "" {
		return nil, fmt.Errorf("%w: userIdentifier is required", ErrInvalidInput)
	}
	if !KnownType(in.ConsentType) {
		return nil, fmt.Errorf("%w: unknown consent type %q", ErrInvalidInput, in.ConsentType)
	}
	if !KnownStatus(in.Status) {
		return nil, fmt.Errorf("%w: unknown consent status %q", ErrInvalidInput, in.Status)
	}

	metadata := in.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	now := time.Now()
	record, err := s.store.Upsert(ctx, &Record{
		ID:             idgen.WithPrefix("cr_"),
		OrganizationID: orgID,
		UserIdentifier: in.UserIdentifier,
		ConsentType:    in.ConsentType,
		Status:         in.Status,
		Metadata:       metadata,
		IPAddress:      in.IPAddress,
		UserAgent:      in.UserAgent,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.Record(orgID, audit.ActionConsentUpdated, "consent_record", record.ID, in.UserIdentifier, map[string]any{
			"consentType": string(in.ConsentType),
			"status":      string(in.Status),
		})
	}

	s.logger.Info("consent recorded",
		"organization_id", orgID,
		"consent_type", in.ConsentType,
		"status", in.Status)

	return record, nil
}

// Check returns the user's current decision for one consent type.
func (s *Service) Check(ctx context.Context, orgID, userIdentifier string, consentType Type) (*Record, error) {
	if userIdentifier == "" {
		return nil, fmt.Errorf("%w: userIdentifier is required", ErrInvalidInput)
	}
	if !KnownType(consentType) {
		return nil, fmt.Errorf("%w: unknown consent type %q", ErrInvalidInput, consentType)
	}

	records, err := s.store.List(ctx, orgID, userIdentifier, consentType)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrConsentNotFound
	}
	return records[0], nil
}

// Get returns a consent record by ID.
func (s *Service) Get(ctx context.Context, orgID, id string) (*Record, error) {
	return s.store.Get(ctx, orgID, id)
}

// List returns all of a user's consent records, newest first.
func (s *Service) List(ctx context.Context, orgID, userIdentifier string) ([]*Record, error) {
	if userIdentifier == "" {
		return nil, fmt.Errorf("%w: userIdentifier is required", ErrInvalidInput)
	}
	return s.store.List(ctx, orgID, userIdentifier, "")
}

// Revoke flips a consent decision to denied and stamps the revocation
// time into the record's metadata.
func (s *Service) Revoke(ctx context.Context, orgID, userIdentifier string, consentType Type, ipAddress string) (*Record, error) {
	record, err := s.Set(ctx, orgID, SetInput{
		UserIdentifier: userIdentifier,
		ConsentType:    consentType,
		Status:         StatusDenied,
		Metadata:       map[string]any{"revoked_at": time.Now().UTC().Format(time.RFC3339)},
		IPAddress:      ipAddress,
	})
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.Record(orgID, audit.ActionConsentRevoked, "consent_record", record.ID, userIdentifier, map[string]any{
			"consentType": string(consentType),
		})
	}
	return record, nil
}

// BatchSet applies several consent decisions for one user in one call.
// Decisions apply independently; the first failure aborts the rest.
func (s *Service) BatchSet(ctx context.Context, orgID, userIdentifier string, decisions []Decision, metadata map[string]any, ipAddress, userAgent string) ([]*Record, error) {
	if len(decisions) == 0 {
		return nil, fmt.Errorf("%w: at least one consent decision is required", ErrInvalidInput)
	}

	records := make([]*Record, 0, len(decisions))
	for _, d := range decisions {
		record, err := s.Set(ctx, orgID, SetInput{
			UserIdentifier: userIdentifier,
			ConsentType:    d.ConsentType,
			Status:         d.Status,
			Metadata:       metadata,
			IPAddress:      ipAddress,
			UserAgent:      userAgent,
		})
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// ExportUser assembles a GDPR export of the user's consent state.
func (s *Service) ExportUser(ctx context.Context, orgID, userIdentifier string) (*Export, error) {
	records, err := s.List(ctx, orgID, userIdentifier)
	if err != nil {
		return nil, err
	}

	export := &Export{
		UserIdentifier: userIdentifier,
		ExportDate:     time.Now().UTC(),
		Consents:       make([]ExportedEntry, 0, len(records)),
	}
	for _, r := range records {
		export.Consents = append(export.Consents, ExportedEntry{
			Type:      r.ConsentType,
			Status:    r.Status,
			GrantedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			Metadata:  r.Metadata,
		})
	}

	if s.auditor != nil {
		s.auditor.Record(orgID, audit.ActionConsentExported, "consent_record", "", userIdentifier, nil)
	}
	return export, nil
}

// DeleteUser removes every consent record for a user (GDPR erasure).
func (s *Service) DeleteUser(ctx context.Context, orgID, userIdentifier, ipAddress string) error {
	if userIdentifier == "" {
		return fmt.Errorf("%w: userIdentifier is required", ErrInvalidInput)
	}
	if err := s.store.DeleteUser(ctx, orgID, userIdentifier); err != nil {
		return err
	}

	if s.auditor != nil {
		s.auditor.Record(orgID, audit.ActionConsentDeleted, "consent_record", "", userIdentifier, map[string]any{
			"ip": ipAddress,
		})
	}
	return nil
}
