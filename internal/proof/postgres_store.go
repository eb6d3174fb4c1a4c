package proof

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// PostgresStore persists proofs in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed proof store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the consent_proofs table if it does not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS consent_proofs (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			consent_id TEXT NOT NULL,
			proof_hash TEXT NOT NULL UNIQUE,
			proof_data JSONB NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			blockchain_tx_id TEXT NOT NULL DEFAULT '',
			verified_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_consent_proofs_consent
			ON consent_proofs (organization_id, consent_id)`)
	return err
}

func (p *PostgresStore) Upsert(ctx context.Context, proof *Proof) (*Proof, error) {
	data, err := json.Marshal(proof.ProofData)
	if err != nil {
		return nil, err
	}

	row := p.db.QueryRowContext(ctx, `
		INSERT INTO consent_proofs
			(id, organization_id, consent_id, proof_hash, proof_data, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (proof_hash) DO UPDATE SET
			proof_data  = EXCLUDED.proof_data,
			status      = 'pending',
			verified_at = NULL,
			updated_at  = EXCLUDED.updated_at
		RETURNING id, organization_id, consent_id, proof_hash, proof_data, status, blockchain_tx_id, verified_at, created_at, updated_at`,
		proof.ID, proof.OrganizationID, proof.ConsentID, proof.ProofHash,
		data, string(proof.Status), proof.CreatedAt, proof.UpdatedAt,
	)
	return scanProof(row)
}

func (p *PostgresStore) GetByHash(ctx context.Context, orgID, hash string) (*Proof, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, organization_id, consent_id, proof_hash, proof_data, status, blockchain_tx_id, verified_at, created_at, updated_at
		FROM consent_proofs
		WHERE organization_id = $1 AND proof_hash = $2`, orgID, hash)
	return scanProof(row)
}

func (p *PostgresStore) ListByConsent(ctx context.Context, orgID, consentID string) ([]*Proof, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, organization_id, consent_id, proof_hash, proof_data, status, blockchain_tx_id, verified_at, created_at, updated_at
		FROM consent_proofs
		WHERE organization_id = $1 AND consent_id = $2
		ORDER BY created_at DESC`, orgID, consentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Proof
	for rows.Next() {
		proof, err := scanProof(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, proof)
	}
	return result, rows.Err()
}

func (p *PostgresStore) UpdateStatus(ctx context.Context, orgID, id string, status Status, verifiedAt *time.Time) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE consent_proofs
		SET status = $1, verified_at = $2, updated_at = now()
		WHERE organization_id = $3 AND id = $4`,
		string(status), verifiedAt, orgID, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProofNotFound
	}
	return nil
}

type proofScanner interface {
	Scan(dest ...any) error
}

func scanProof(row proofScanner) (*Proof, error) {
	var pr Proof
	var data []byte
	var status string
	var verifiedAt sql.NullTime
	err := row.Scan(&pr.ID, &pr.OrganizationID, &pr.ConsentID, &pr.ProofHash,
		&data, &status, &pr.BlockchainTxID, &verifiedAt, &pr.CreatedAt, &pr.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrProofNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &pr.ProofData); err != nil {
		return nil, err
	}
	pr.Status = Status(status)
	if verifiedAt.Valid {
		at := verifiedAt.Time
		pr.VerifiedAt = &at
	}
	return &pr, nil
}
