package botdetect

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/consentry/consentry/internal/pagination"
)

type sessionKey struct {
	orgID     string
	sessionID string
}

// MemoryStore is an in-memory session store for demo/development mode.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[sessionKey]*Session
	events   map[sessionKey][]*Event
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[sessionKey]*Session),
		events:   make(map[sessionKey][]*Event),
	}
}

func (m *MemoryStore) UpsertSession(ctx context.Context, session *Session) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey{session.OrganizationID, session.SessionID}
	existing, ok := m.sessions[key]
	if !ok {
		cp := *session
		m.sessions[key] = &cp
		out := cp
		return &out, nil
	}

	if session.UserIdentifier != "" {
		existing.UserIdentifier = session.UserIdentifier
	}
	if session.IPAddress != "" {
		existing.IPAddress = session.IPAddress
	}
	if session.UserAgent != "" {
		existing.UserAgent = session.UserAgent
	}
	existing.Signals.Merge(session.Signals)
	existing.UpdatedAt = session.UpdatedAt

	out := *existing
	return &out, nil
}

func (m *MemoryStore) GetSession(ctx context.Context, orgID, sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[sessionKey{orgID, sessionID}]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *session
	return &cp, nil
}

func (m *MemoryStore) ListSessions(ctx context.Context, orgID string, limit int, cursor *pagination.Cursor) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Session
	for key, session := range m.sessions {
		if key.orgID != orgID {
			continue
		}
		if cursor != nil && !beforeCursor(session, cursor) {
			continue
		}
		cp := *session
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// beforeCursor reports whether the session sorts strictly after the cursor
// position in (created_at DESC, id DESC) order.
func beforeCursor(s *Session, cursor *pagination.Cursor) bool {
	if !s.CreatedAt.Equal(cursor.CreatedAt) {
		return s.CreatedAt.Before(cursor.CreatedAt)
	}
	return s.ID < cursor.ID
}

func (m *MemoryStore) SaveVerdict(ctx context.Context, orgID, sessionID string, verdict Verdict, confidence float64, overridden bool, signals Signals, analyzedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionKey{orgID, sessionID}]
	if !ok {
		return ErrSessionNotFound
	}
	session.Verdict = verdict
	session.Confidence = confidence
	session.Overridden = overridden
	session.Signals = signals
	at := analyzedAt
	session.AnalyzedAt = &at
	session.UpdatedAt = analyzedAt
	return nil
}

func (m *MemoryStore) AppendEvent(ctx context.Context, orgID string, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey{orgID, event.SessionID}
	cp := *event
	m.events[key] = append(m.events[key], &cp)
	return nil
}

func (m *MemoryStore) ListEvents(ctx context.Context, orgID, sessionID string) ([]*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.events[sessionKey{orgID, sessionID}]
	result := make([]*Event, 0, len(stored))
	for _, ev := range stored {
		cp := *ev
		result = append(result, &cp)
	}
	return result, nil
}
