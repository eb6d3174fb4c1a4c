package proof

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/consentry/consentry/internal/audit"
	"github.com/consentry/consentry/internal/consent"
	"github.com/consentry/consentry/internal/idgen"
	"github.com/consentry/consentry/internal/metrics"
	"github.com/consentry/consentry/internal/syncutil"
	"github.com/consentry/consentry/internal/traces"
)

// ConsentSource resolves consent records. The ledger verifies hashes
// against this, never against its own stored snapshots.
type ConsentSource interface {
	Get(ctx context.Context, orgID, id string) (*consent.Record, error)
}

// Auditor records audit trail entries. Implementations must not block.
type Auditor interface {
	Record(orgID, action, resourceType, resourceID, userIdentifier string, changes map[string]any)
}

// Feed publishes realtime events to connected clients.
type Feed interface {
	Publish(orgID, eventType string, data any)
}

// Ledger creates and verifies consent proofs.
type Ledger struct {
	store    Store
	consents ConsentSource
	auditor  Auditor
	feed     Feed
	baseURL  string
	logger   *slog.Logger

	// Serializes verifications of the same hash so concurrent callers
	// cannot interleave the rehash-then-update-status sequence.
	verifyLocks *syncutil.ContextShardedMutex
}

// NewLedger creates a new proof ledger. auditor and feed may be nil.
// baseURL is the public prefix for certificate links.
func NewLedger(store Store, consents ConsentSource, auditor Auditor, feed Feed, baseURL string, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:       store,
		consents:    consents,
		auditor:     auditor,
		feed:        feed,
		baseURL:     baseURL,
		logger:      logger,
		verifyLocks: syncutil.NewContextShardedMutex(),
	}
}

// Create hashes the consent record's current state and stores the proof.
// Submitting the same payload twice refreshes the existing proof back to
// pending instead of duplicating it.
func (l *Ledger) Create(ctx context.Context, orgID, consentID string) (*Proof, error) {
	if consentID == "" {
		return nil, fmt.Errorf("%w: consentId is required", ErrInvalidInput)
	}

	ctx, span := traces.StartSpan(ctx, "proof.Create", traces.OrgID(orgID))
	defer span.End()

	record, err := l.consents.Get(ctx, orgID, consentID)
	if err != nil {
		return nil, err
	}

	payload := PayloadFromRecord(record)
	hash, err := HashPayload(payload)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	proof, err := l.store.Upsert(ctx, &Proof{
		ID:             idgen.WithPrefix("cp_"),
		OrganizationID: orgID,
		ConsentID:      consentID,
		ProofHash:      hash,
		ProofData:      payload,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, err
	}

	metrics.ProofsCreatedTotal.Inc()

	if l.auditor != nil {
		l.auditor.Record(orgID, audit.ActionProofCreated, "consent_proof", proof.ID, record.UserIdentifier, map[string]any{
			"proofHash": hash,
		})
	}
	if l.feed != nil {
		l.feed.Publish(orgID, "proof.created", proof)
	}

	l.logger.Info("proof created",
		"organization_id", orgID,
		"consent_id", consentID,
		"proof_hash", hash)

	return proof, nil
}

// Verify rehashes the live consent record behind the proof and compares
// the result to the stored hash. A missing proof or consent record means
// false, not an error; only storage failures surface.
func (l *Ledger) Verify(ctx context.Context, orgID, hash string) (bool, error) {
	ctx, span := traces.StartSpan(ctx, "proof.Verify",
		traces.OrgID(orgID), traces.ProofHash(hash))
	defer span.End()

	unlock, err := l.verifyLocks.LockContext(ctx, orgID+":"+hash)
	if err != nil {
		return false, err
	}
	defer unlock()

	proof, err := l.store.GetByHash(ctx, orgID, hash)
	if errors.Is(err, ErrProofNotFound) {
		metrics.ProofVerificationsTotal.WithLabelValues("invalid").Inc()
		return false, nil
	}
	if err != nil {
		return false, err
	}

	record, err := l.consents.Get(ctx, orgID, proof.ConsentID)
	if errors.Is(err, consent.ErrConsentNotFound) {
		l.markVerified(ctx, orgID, proof.ID, false)
		metrics.ProofVerificationsTotal.WithLabelValues("invalid").Inc()
		return false, nil
	}
	if err != nil {
		return false, err
	}

	rehash, err := HashPayload(PayloadFromRecord(record))
	if err != nil {
		return false, err
	}
	valid := rehash == proof.ProofHash

	l.markVerified(ctx, orgID, proof.ID, valid)

	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	metrics.ProofVerificationsTotal.WithLabelValues(outcome).Inc()

	if l.auditor != nil {
		l.auditor.Record(orgID, audit.ActionProofVerified, "consent_proof", proof.ID, record.UserIdentifier, map[string]any{
			"proofHash": hash,
			"verified":  valid,
		})
	}
	if l.feed != nil {
		l.feed.Publish(orgID, "proof.verified", map[string]any{
			"proofHash": hash,
			"verified":  valid,
		})
	}

	return valid, nil
}

// markVerified updates the proof's lifecycle status. Best effort; the
// verification result does not depend on it.
func (l *Ledger) markVerified(ctx context.Context, orgID, id string, valid bool) {
	status := StatusFailed
	if valid {
		status = StatusVerified
	}
	now := time.Now()
	if err := l.store.UpdateStatus(ctx, orgID, id, status, &now); err != nil {
		l.logger.Warn("proof status update failed", "proof_id", id, "error", err)
	}
}

// Certificate returns a display-ready verification bundle for a proof.
func (l *Ledger) Certificate(ctx context.Context, orgID, hash string) (*Certificate, error) {
	proof, err := l.store.GetByHash(ctx, orgID, hash)
	if err != nil {
		return nil, err
	}

	valid, err := l.Verify(ctx, orgID, hash)
	if err != nil {
		return nil, err
	}

	cert := &Certificate{
		ProofHash:        hash,
		ConsentType:      proof.ProofData.ConsentType,
		UserIdentifier:   proof.ProofData.UserIdentifier,
		Timestamp:        proof.CreatedAt,
		Verified:         valid,
		VerificationDate: time.Now().UTC(),
		BlockchainTxID:   proof.BlockchainTxID,
		CertificateURL:   fmt.Sprintf("%s/proof/%s", l.baseURL, hash),
	}
	if record, err := l.consents.Get(ctx, orgID, proof.ConsentID); err == nil {
		cert.ConsentStatus = string(record.Status)
	}
	return cert, nil
}

// BatchVerify verifies many hashes in order. One bad hash does not abort
// the batch; storage failures count as unverified for that entry.
func (l *Ledger) BatchVerify(ctx context.Context, orgID string, hashes []string) []BatchResult {
	results := make([]BatchResult, 0, len(hashes))
	for _, hash := range hashes {
		valid, err := l.Verify(ctx, orgID, hash)
		if err != nil {
			l.logger.Warn("batch verify entry failed", "proof_hash", hash, "error", err)
			valid = false
		}
		results = append(results, BatchResult{ProofHash: hash, Verified: valid})
	}
	return results
}

// ListByConsent returns all proofs issued for one consent record.
func (l *Ledger) ListByConsent(ctx context.Context, orgID, consentID string) ([]*Proof, error) {
	return l.store.ListByConsent(ctx, orgID, consentID)
}
