package consent

import (
	"context"
	"database/sql"
	"encoding/json"
)

// PostgresStore persists consent records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed consent store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the consent_records table if it does not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS consent_records (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			user_identifier TEXT NOT NULL,
			consent_type TEXT NOT NULL,
			status TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (organization_id, user_identifier, consent_type)
		)`)
	return err
}

func (p *PostgresStore) Upsert(ctx context.Context, record *Record) (*Record, error) {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return nil, err
	}

	row := p.db.QueryRowContext(ctx, `
		INSERT INTO consent_records
			(id, organization_id, user_identifier, consent_type, status, metadata, ip_address, user_agent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (organization_id, user_identifier, consent_type) DO UPDATE SET
			status     = EXCLUDED.status,
			metadata   = EXCLUDED.metadata,
			ip_address = EXCLUDED.ip_address,
			user_agent = EXCLUDED.user_agent,
			updated_at = EXCLUDED.updated_at
		RETURNING id, organization_id, user_identifier, consent_type, status, metadata, ip_address, user_agent, created_at, updated_at`,
		record.ID, record.OrganizationID, record.UserIdentifier, string(record.ConsentType),
		string(record.Status), metadata, record.IPAddress, record.UserAgent,
		record.CreatedAt, record.UpdatedAt,
	)
	return scanRecord(row)
}

func (p *PostgresStore) Get(ctx context.Context, orgID, id string) (*Record, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, organization_id, user_identifier, consent_type, status, metadata, ip_address, user_agent, created_at, updated_at
		FROM consent_records
		WHERE organization_id = $1 AND id = $2`, orgID, id)
	return scanRecord(row)
}

func (p *PostgresStore) List(ctx context.Context, orgID, userIdentifier string, consentType Type) ([]*Record, error) {
	query := `
		SELECT id, organization_id, user_identifier, consent_type, status, metadata, ip_address, user_agent, created_at, updated_at
		FROM consent_records
		WHERE organization_id = $1 AND user_identifier = $2`
	args := []any{orgID, userIdentifier}
	if consentType != "" {
		query += ` AND consent_type = $3`
		args = append(args, string(consentType))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}

func (p *PostgresStore) DeleteUser(ctx context.Context, orgID, userIdentifier string) error {
	_, err := p.db.ExecContext(ctx, `
		DELETE FROM consent_records
		WHERE organization_id = $1 AND user_identifier = $2`, orgID, userIdentifier)
	return err
}

type recordScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row recordScanner) (*Record, error) {
	var r Record
	var consentType, status string
	var metadata []byte
	err := row.Scan(&r.ID, &r.OrganizationID, &r.UserIdentifier, &consentType, &status,
		&metadata, &r.IPAddress, &r.UserAgent, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrConsentNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &r.Metadata); err != nil {
			return nil, err
		}
	}
	r.ConsentType = Type(consentType)
	r.Status = Status(status)
	return &r, nil
}
