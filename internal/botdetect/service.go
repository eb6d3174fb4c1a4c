package botdetect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/consentry/consentry/internal/audit"
	"github.com/consentry/consentry/internal/idgen"
	"github.com/consentry/consentry/internal/metrics"
	"github.com/consentry/consentry/internal/pagination"
	"github.com/consentry/consentry/internal/traces"
)

// Auditor records audit trail entries. Implementations must not block.
type Auditor interface {
	Record(orgID, action, resourceType, resourceID, userIdentifier string, changes map[string]any)
}

// Feed publishes realtime events to connected clients.
type Feed interface {
	Publish(orgID, eventType string, data any)
}

// SessionInput is the client-supplied portion of a session.
type SessionInput struct {
	SessionID      string
	UserIdentifier string
	IPAddress      string
	UserAgent      string
	Signals        Signals
}

// Service orchestrates session tracking, event ingestion, and analysis.
type Service struct {
	store      Store
	classifier Classifier
	auditor    Auditor
	feed       Feed
	logger     *slog.Logger
}

// NewService creates a new bot detection service. classifier, auditor,
// and feed may be nil.
func NewService(store Store, classifier Classifier, auditor Auditor, feed Feed, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		classifier: classifier,
		auditor:    auditor,
		feed:       feed,
		logger:     logger,
	}
}

// CreateOrTouch registers a session or merges new identity fields and
// signals into an existing one.
func (s *Service) CreateOrTouch(ctx context.Context, orgID string, in SessionInput) (*Session, error) {
	if in.SessionID == "" {
		return nil, fmt.Errorf("%w: sessionId is required", ErrInvalidInput)
	}

	now := time.Now()
	session := &Session{
		ID:             idgen.WithPrefix("bs_"),
		OrganizationID: orgID,
		SessionID:      in.SessionID,
		UserIdentifier: in.UserIdentifier,
		IPAddress:      in.IPAddress,
		UserAgent:      in.UserAgent,
		Signals:        in.Signals,
		Verdict:        VerdictUnknown,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return s.store.UpsertSession(ctx, session)
}

// RecordEvent appends a behavioral event to an existing session. The
// event timestamp is assigned here, not taken from the client.
func (s *Service) RecordEvent(ctx context.Context, orgID, sessionID, eventType string, data map[string]any) (*Event, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionId is required", ErrInvalidInput)
	}
	if !KnownEventType(eventType) {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, eventType)
	}

	if _, err := s.store.GetSession(ctx, orgID, sessionID); err != nil {
		return nil, err
	}

	event := &Event{
		ID:        idgen.WithPrefix("be_"),
		SessionID: sessionID,
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}
	if err := s.store.AppendEvent(ctx, orgID, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Analyze scores a session and persists the verdict. Client-supplied
// signals merge over stored ones; counts derived from ingested events
// take precedence over both. Re-analysis overwrites the prior verdict.
func (s *Service) Analyze(ctx context.Context, orgID, sessionID string, clientSignals Signals) (*Session, error) {
	ctx, span := traces.StartSpan(ctx, "botdetect.Analyze",
		traces.OrgID(orgID), traces.SessionID(sessionID))
	defer span.End()

	session, err := s.store.GetSession(ctx, orgID, sessionID)
	if err != nil {
		return nil, err
	}

	events, err := s.store.ListEvents(ctx, orgID, sessionID)
	if err != nil {
		return nil, err
	}

	merged := session.Signals
	merged.Merge(clientSignals)
	merged.Merge(Aggregate(events))

	local := Score(merged)
	remote := s.consultClassifier(ctx, sessionID, events, merged)
	res := Resolve(local, remote)

	analyzedAt := time.Now()
	if err := s.store.SaveVerdict(ctx, orgID, sessionID, res.Verdict, res.Confidence, res.Overridden, merged, analyzedAt); err != nil {
		return nil, err
	}

	metrics.VerdictsTotal.WithLabelValues(string(res.Verdict)).Inc()
	if res.Overridden {
		metrics.VerdictOverridesTotal.Inc()
	}

	s.logger.Info("session analyzed",
		"organization_id", orgID,
		"session_id", sessionID,
		"verdict", res.Verdict,
		"confidence", res.Confidence,
		"overridden", res.Overridden,
		"events", len(events))

	if s.auditor != nil {
		s.auditor.Record(orgID, audit.ActionVerdictResolved, "bot_session", sessionID, session.UserIdentifier, map[string]any{
			"verdict":    string(res.Verdict),
			"confidence": res.Confidence,
			"overridden": res.Overridden,
			"signals":    merged,
		})
	}

	session.Signals = merged
	session.Verdict = res.Verdict
	session.Confidence = res.Confidence
	session.Overridden = res.Overridden
	session.AnalyzedAt = &analyzedAt
	session.UpdatedAt = analyzedAt

	if s.feed != nil {
		s.feed.Publish(orgID, "verdict.updated", session)
	}

	return session, nil
}

// consultClassifier asks the external classifier for a second opinion.
// Failures degrade to the heuristic verdict; they never fail the analysis.
func (s *Service) consultClassifier(ctx context.Context, sessionID string, events []*Event, signals Signals) *RemoteVerdict {
	if s.classifier == nil {
		return nil
	}

	trace := BuildTrace(events, signals)
	if len(trace.MouseTrace) <= MinTracePoints {
		metrics.ClassifierCallsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	remote, err := s.classifier.Classify(ctx, trace)
	if err != nil {
		metrics.ClassifierCallsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("classifier unavailable, using heuristic verdict",
			"session_id", sessionID,
			"error", err)
		return nil
	}
	if remote != nil {
		metrics.ClassifierCallsTotal.WithLabelValues("ok").Inc()
	}
	return remote
}

// GetSession returns a session with its latest verdict.
func (s *Service) GetSession(ctx context.Context, orgID, sessionID string) (*Session, error) {
	return s.store.GetSession(ctx, orgID, sessionID)
}

// ListSessions returns a page of the organization's sessions, newest first,
// along with an opaque cursor for the next page ("" on the last page).
func (s *Service) ListSessions(ctx context.Context, orgID string, limit int, cursorStr string) ([]*Session, string, error) {
	cursor, err := pagination.Decode(cursorStr)
	if err != nil {
		return nil, "", fmt.Errorf("%w: invalid cursor", ErrInvalidInput)
	}

	// Fetch one extra row to detect whether another page exists.
	sessions, err := s.store.ListSessions(ctx, orgID, limit+1, cursor)
	if err != nil {
		return nil, "", err
	}
	page, next, _ := pagination.ComputePage(sessions, limit, func(sess *Session) (time.Time, string) {
		return sess.CreatedAt, sess.ID
	})
	return page, next, nil
}
