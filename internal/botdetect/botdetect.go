// Package botdetect classifies browser sessions as human or bot.
//
// Behavioral events stream in per session, get aggregated into signal
// counts, scored against heuristic tiers, optionally cross-checked with
// an external classifier, and resolved into a verdict with a confidence
// in [0,1]. Sessions and their verdicts persist across analyses; a
// re-analysis overwrites the previous verdict.
package botdetect

import (
	"context"
	"errors"
	"time"

	"github.com/consentry/consentry/internal/pagination"
)

// Errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidInput    = errors.New("invalid input")
)

// Verdict is the classification outcome for a session.
type Verdict string

const (
	VerdictHuman      Verdict = "human"
	VerdictSuspicious Verdict = "suspicious"
	VerdictBot        Verdict = "bot"
	VerdictUnknown    Verdict = "unknown"
)

// Behavioral event types accepted by the ingestion endpoint.
const (
	EventMouseMove  = "mousemove"
	EventClick      = "click"
	EventKeyPress   = "keypress"
	EventScroll     = "scroll"
	EventTouchStart = "touchstart"
	EventPageView   = "pageview"
)

// KnownEventType reports whether t is a recognized behavioral event type.
func KnownEventType(t string) bool {
	switch t {
	case EventMouseMove, EventClick, EventKeyPress, EventScroll, EventTouchStart, EventPageView:
		return true
	}
	return false
}

// Event is a single behavioral observation within a session.
// Timestamp is assigned server-side at ingestion.
type Event struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Signals are the aggregated inputs to scoring. A nil field means the
// signal was never observed and contributes nothing to the score ceiling.
type Signals struct {
	MouseMovements    *int     `json:"mouseMovements,omitempty"`
	Clicks            *int     `json:"clicks,omitempty"`
	Keystrokes        *int     `json:"keystrokes,omitempty"`
	ScrollEvents      *int     `json:"scrollEvents,omitempty"`
	TouchEvents       *int     `json:"touchEvents,omitempty"`
	PageViews         *int     `json:"pageViews,omitempty"`
	SessionDurationMs *int64   `json:"sessionDurationMs,omitempty"`
	BehaviorScore     *float64 `json:"behaviorScore,omitempty"`
	FingerprintScore  *float64 `json:"fingerprintScore,omitempty"`
	IPReputation      *float64 `json:"ipReputation,omitempty"`
	// BotdScore is the client-side detector's own score, forwarded to the
	// external classifier; local scoring ignores it.
	BotdScore *float64 `json:"botdScore,omitempty"`

	// Extra carries client-reported signals that scoring does not use.
	Extra map[string]any `json:"extra,omitempty"`
}

// Merge overlays other onto s. Fields present in other win; fields absent
// in other keep their current value. Extra keys merge per-key.
func (s *Signals) Merge(other Signals) {
	if other.MouseMovements != nil {
		s.MouseMovements = other.MouseMovements
	}
	if other.Clicks != nil {
		s.Clicks = other.Clicks
	}
	if other.Keystrokes != nil {
		s.Keystrokes = other.Keystrokes
	}
	if other.ScrollEvents != nil {
		s.ScrollEvents = other.ScrollEvents
	}
	if other.TouchEvents != nil {
		s.TouchEvents = other.TouchEvents
	}
	if other.PageViews != nil {
		s.PageViews = other.PageViews
	}
	if other.SessionDurationMs != nil {
		s.SessionDurationMs = other.SessionDurationMs
	}
	if other.BehaviorScore != nil {
		s.BehaviorScore = other.BehaviorScore
	}
	if other.FingerprintScore != nil {
		s.FingerprintScore = other.FingerprintScore
	}
	if other.IPReputation != nil {
		s.IPReputation = other.IPReputation
	}
	if other.BotdScore != nil {
		s.BotdScore = other.BotdScore
	}
	for k, v := range other.Extra {
		if s.Extra == nil {
			s.Extra = make(map[string]any)
		}
		s.Extra[k] = v
	}
}

// IsZero reports whether no signal has been observed.
func (s Signals) IsZero() bool {
	return s.MouseMovements == nil && s.Clicks == nil && s.Keystrokes == nil &&
		s.ScrollEvents == nil && s.TouchEvents == nil && s.PageViews == nil &&
		s.SessionDurationMs == nil && s.BehaviorScore == nil &&
		s.FingerprintScore == nil && s.IPReputation == nil &&
		s.BotdScore == nil && len(s.Extra) == 0
}

// Session is a tracked browser session and its latest verdict.
type Session struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organizationId"`
	SessionID      string     `json:"sessionId"`
	UserIdentifier string     `json:"userIdentifier,omitempty"`
	IPAddress      string     `json:"ipAddress,omitempty"`
	UserAgent      string     `json:"userAgent,omitempty"`
	Signals        Signals    `json:"signals"`
	Verdict        Verdict    `json:"verdict"`
	Confidence     float64    `json:"confidence"`
	Overridden     bool       `json:"overridden,omitempty"`
	AnalyzedAt     *time.Time `json:"analyzedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Store persists sessions and their events.
type Store interface {
	// UpsertSession creates the session or merges the given fields into
	// an existing one keyed by (organizationID, sessionID). Empty identity
	// fields never overwrite populated ones; signals merge field-wise.
	UpsertSession(ctx context.Context, session *Session) (*Session, error)
	GetSession(ctx context.Context, orgID, sessionID string) (*Session, error)
	// ListSessions returns up to limit sessions ordered by creation time
	// descending, starting after the cursor position when cursor is non-nil.
	ListSessions(ctx context.Context, orgID string, limit int, cursor *pagination.Cursor) ([]*Session, error)
	SaveVerdict(ctx context.Context, orgID, sessionID string, verdict Verdict, confidence float64, overridden bool, signals Signals, analyzedAt time.Time) error

	AppendEvent(ctx context.Context, orgID string, event *Event) error
	ListEvents(ctx context.Context, orgID, sessionID string) ([]*Event, error)
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
