package organizations

import (
	"context"
	"database/sql"
	"encoding/json"
)

// PostgresStore persists organizations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed organization store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the organizations table if it does not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS organizations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			api_key_hash TEXT NOT NULL UNIQUE,
			settings JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

func (p *PostgresStore) Create(ctx context.Context, org *Organization) error {
	settings, err := json.Marshal(org.Settings)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, api_key_hash, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		org.ID, org.Name, org.APIKeyHash, settings, org.CreatedAt, org.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Organization, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, name, api_key_hash, settings, created_at, updated_at
		FROM organizations WHERE id = $1`, id)
	return scanOrganization(row)
}

func (p *PostgresStore) GetByKeyHash(ctx context.Context, hash string) (*Organization, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, name, api_key_hash, settings, created_at, updated_at
		FROM organizations WHERE api_key_hash = $1`, hash)
	return scanOrganization(row)
}

func (p *PostgresStore) List(ctx context.Context, limit int) ([]*Organization, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, api_key_hash, settings, created_at, updated_at
		FROM organizations
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, org)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (*Organization, error) {
	var org Organization
	var settings []byte
	err := row.Scan(&org.ID, &org.Name, &org.APIKeyHash, &settings, &org.CreatedAt, &org.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &org.Settings); err != nil {
			return nil, err
		}
	}
	return &org, nil
}
