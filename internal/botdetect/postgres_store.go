package botdetect

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/consentry/consentry/internal/pagination"
)

// PostgresStore persists sessions and events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed session store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the bot detection tables if they do not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS bot_sessions (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			user_identifier TEXT NOT NULL DEFAULT '',
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			signals JSONB NOT NULL DEFAULT '{}',
			verdict TEXT NOT NULL DEFAULT 'unknown',
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			overridden BOOLEAN NOT NULL DEFAULT FALSE,
			analyzed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (organization_id, session_id)
		);
		CREATE TABLE IF NOT EXISTS bot_events (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			event_data JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_bot_events_org_session
			ON bot_events (organization_id, session_id, created_at)`)
	return err
}

func (p *PostgresStore) UpsertSession(ctx context.Context, session *Session) (*Session, error) {
	signals, err := json.Marshal(session.Signals)
	if err != nil {
		return nil, err
	}

	row := p.db.QueryRowContext(ctx, `
		INSERT INTO bot_sessions
			(id, organization_id, session_id, user_identifier, ip_address, user_agent, signals, verdict, confidence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (organization_id, session_id) DO UPDATE SET
			user_identifier = COALESCE(NULLIF(EXCLUDED.user_identifier, ''), bot_sessions.user_identifier),
			ip_address      = COALESCE(NULLIF(EXCLUDED.ip_address, ''), bot_sessions.ip_address),
			user_agent      = COALESCE(NULLIF(EXCLUDED.user_agent, ''), bot_sessions.user_agent),
			-- Top-level keys overlay; the nested extra object merges per-key
			-- to match the field-wise contract of the store interface.
			signals         = (bot_sessions.signals || EXCLUDED.signals) || CASE
				WHEN bot_sessions.signals ? 'extra' AND EXCLUDED.signals ? 'extra'
				THEN jsonb_build_object('extra', (bot_sessions.signals->'extra') || (EXCLUDED.signals->'extra'))
				ELSE '{}'::jsonb
			END,
			updated_at      = EXCLUDED.updated_at
		RETURNING id, organization_id, session_id, user_identifier, ip_address, user_agent, signals, verdict, confidence, overridden, analyzed_at, created_at, updated_at`,
		session.ID, session.OrganizationID, session.SessionID,
		session.UserIdentifier, session.IPAddress, session.UserAgent,
		signals, string(session.Verdict), session.Confidence,
		session.CreatedAt, session.UpdatedAt,
	)
	return scanSession(row)
}

func (p *PostgresStore) GetSession(ctx context.Context, orgID, sessionID string) (*Session, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, organization_id, session_id, user_identifier, ip_address, user_agent, signals, verdict, confidence, overridden, analyzed_at, created_at, updated_at
		FROM bot_sessions
		WHERE organization_id = $1 AND session_id = $2`, orgID, sessionID)
	return scanSession(row)
}

func (p *PostgresStore) ListSessions(ctx context.Context, orgID string, limit int, cursor *pagination.Cursor) ([]*Session, error) {
	query := `
		SELECT id, organization_id, session_id, user_identifier, ip_address, user_agent, signals, verdict, confidence, overridden, analyzed_at, created_at, updated_at
		FROM bot_sessions
		WHERE organization_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	args := []any{orgID, limit}
	if cursor != nil {
		query = `
		SELECT id, organization_id, session_id, user_identifier, ip_address, user_agent, signals, verdict, confidence, overridden, analyzed_at, created_at, updated_at
		FROM bot_sessions
		WHERE organization_id = $1 AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`
		args = []any{orgID, cursor.CreatedAt, cursor.ID, limit}
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, session)
	}
	return result, rows.Err()
}

func (p *PostgresStore) SaveVerdict(ctx context.Context, orgID, sessionID string, verdict Verdict, confidence float64, overridden bool, signals Signals, analyzedAt time.Time) error {
	raw, err := json.Marshal(signals)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE bot_sessions
		SET verdict = $1, confidence = $2, overridden = $3, signals = $4, analyzed_at = $5, updated_at = $5
		WHERE organization_id = $6 AND session_id = $7`,
		string(verdict), confidence, overridden, raw, analyzedAt, orgID, sessionID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (p *PostgresStore) AppendEvent(ctx context.Context, orgID string, event *Event) error {
	var data []byte
	if event.Data != nil {
		var err error
		data, err = json.Marshal(event.Data)
		if err != nil {
			return err
		}
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bot_events (id, organization_id, session_id, event_type, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, orgID, event.SessionID, event.Type, data, event.Timestamp,
	)
	return err
}

func (p *PostgresStore) ListEvents(ctx context.Context, orgID, sessionID string) ([]*Event, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, session_id, event_type, event_data, created_at
		FROM bot_events
		WHERE organization_id = $1 AND session_id = $2
		ORDER BY created_at ASC`, orgID, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Event
	for rows.Next() {
		var ev Event
		var data []byte
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Type, &data, &ev.Timestamp); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &ev.Data); err != nil {
				return nil, err
			}
		}
		result = append(result, &ev)
	}
	return result, rows.Err()
}

type sessionScanner interface {
	Scan(dest ...any) error
}

func scanSession(row sessionScanner) (*Session, error) {
	var s Session
	var signals []byte
	var verdict string
	var analyzedAt sql.NullTime
	err := row.Scan(&s.ID, &s.OrganizationID, &s.SessionID, &s.UserIdentifier,
		&s.IPAddress, &s.UserAgent, &signals, &verdict, &s.Confidence,
		&s.Overridden, &analyzedAt, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(signals) > 0 {
		if err := json.Unmarshal(signals, &s.Signals); err != nil {
			return nil, err
		}
	}
	s.Verdict = Verdict(verdict)
	if analyzedAt.Valid {
		at := analyzedAt.Time
		s.AnalyzedAt = &at
	}
	return &s, nil
}
