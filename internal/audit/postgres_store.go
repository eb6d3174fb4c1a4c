package audit

import (
	"context"
	"database/sql"
	"encoding/json"
)

// PostgresStore persists audit entries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the audit_logs table if it does not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			action TEXT NOT NULL,
			resource_type TEXT NOT NULL DEFAULT '',
			resource_id TEXT NOT NULL DEFAULT '',
			user_identifier TEXT NOT NULL DEFAULT '',
			changes JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_org_created
			ON audit_logs (organization_id, created_at DESC)`)
	return err
}

func (p *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	var changes []byte
	if entry.Changes != nil {
		var err error
		changes, err = json.Marshal(entry.Changes)
		if err != nil {
			return err
		}
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, organization_id, action, resource_type, resource_id, user_identifier, changes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.OrganizationID, entry.Action, entry.ResourceType,
		entry.ResourceID, entry.UserIdentifier, changes, entry.CreatedAt,
	)
	return err
}

func (p *PostgresStore) List(ctx context.Context, orgID string, limit int) ([]*Entry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, organization_id, action, resource_type, resource_id, user_identifier, changes, created_at
		FROM audit_logs
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Entry
	for rows.Next() {
		var e Entry
		var changes []byte
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.Action, &e.ResourceType,
			&e.ResourceID, &e.UserIdentifier, &changes, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &e.Changes); err != nil {
				return nil, err
			}
		}
		result = append(result, &e)
	}
	return result, rows.Err()
}
