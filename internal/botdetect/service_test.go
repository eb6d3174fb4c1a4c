package botdetect

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureAuditor struct {
	mu      sync.Mutex
	actions []string
	changes []map[string]any
}

func (a *captureAuditor) Record(orgID, action, resourceType, resourceID, userIdentifier string, changes map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
	a.changes = append(a.changes, changes)
}

type captureFeed struct {
	mu     sync.Mutex
	events []string
}

func (f *captureFeed) Publish(orgID, eventType string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
}

type fakeClassifier struct {
	verdict  *RemoteVerdict
	err      error
	called   bool
	gotTrace Trace
}

func (f *fakeClassifier) Classify(ctx context.Context, trace Trace) (*RemoteVerdict, error) {
	f.called = true
	f.gotTrace = trace
	return f.verdict, f.err
}

func newTestService(classifier Classifier) (*Service, *captureAuditor, *captureFeed) {
	auditor := &captureAuditor{}
	feed := &captureFeed{}
	svc := NewService(NewMemoryStore(), classifier, auditor, feed, slog.Default())
	return svc, auditor, feed
}

func TestAnalyzeHumanSessionFromClientSignals(t *testing.T) {
	svc, auditor, feed := newTestService(nil)
	ctx := context.Background()

	_, err := svc.CreateOrTouch(ctx, "org_1", SessionInput{
		SessionID: "sess-human",
		Signals: Signals{
			MouseMovements:    Int(60),
			Clicks:            Int(3),
			Keystrokes:        Int(12),
			SessionDurationMs: Int64(45000),
		},
	})
	require.NoError(t, err)

	session, err := svc.Analyze(ctx, "org_1", "sess-human", Signals{})
	require.NoError(t, err)

	assert.Equal(t, VerdictHuman, session.Verdict)
	assert.InDelta(t, 0.892, session.Confidence, 0.001)
	assert.False(t, session.Overridden)
	assert.NotNil(t, session.AnalyzedAt)

	assert.Contains(t, auditor.actions, "verdict.resolved")
	assert.Contains(t, feed.events, "verdict.updated")
}

func TestAnalyzeAuditCarriesSignalSnapshot(t *testing.T) {
	svc, auditor, _ := newTestService(nil)
	ctx := context.Background()

	_, err := svc.CreateOrTouch(ctx, "org_1", SessionInput{
		SessionID: "sess-audited",
		Signals:   Signals{MouseMovements: Int(25), Clicks: Int(2)},
	})
	require.NoError(t, err)

	session, err := svc.Analyze(ctx, "org_1", "sess-audited", Signals{Keystrokes: Int(7)})
	require.NoError(t, err)

	require.Len(t, auditor.changes, 1)
	changes := auditor.changes[0]
	assert.Equal(t, string(session.Verdict), changes["verdict"])
	assert.Equal(t, session.Confidence, changes["confidence"])

	snapshot, ok := changes["signals"].(Signals)
	require.True(t, ok, "audit changes must carry the merged signal snapshot")
	require.NotNil(t, snapshot.MouseMovements)
	assert.Equal(t, 25, *snapshot.MouseMovements)
	require.NotNil(t, snapshot.Keystrokes)
	assert.Equal(t, 7, *snapshot.Keystrokes)
}

func TestAnalyzeForwardsClientBotdScore(t *testing.T) {
	classifier := &fakeClassifier{verdict: &RemoteVerdict{IsBot: false, Confidence: 0.5}}
	svc, _, _ := newTestService(classifier)
	ctx := context.Background()

	_, err := svc.CreateOrTouch(ctx, "org_1", SessionInput{
		SessionID: "sess-scored",
		Signals:   Signals{BotdScore: Float(0.66)},
	})
	require.NoError(t, err)

	for i := 0; i < MinTracePoints+2; i++ {
		_, err := svc.RecordEvent(ctx, "org_1", "sess-scored", EventMouseMove,
			map[string]any{"x": float64(i), "y": float64(i)})
		require.NoError(t, err)
	}

	_, err = svc.Analyze(ctx, "org_1", "sess-scored", Signals{})
	require.NoError(t, err)

	require.True(t, classifier.called)
	assert.Equal(t, 0.66, classifier.gotTrace.BotdScore)
}

func TestAnalyzeNoActivityIsUnknown(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()

	_, err := svc.CreateOrTouch(ctx, "org_1", SessionInput{SessionID: "sess-empty"})
	require.NoError(t, err)

	session, err := svc.Analyze(ctx, "org_1", "sess-empty", Signals{})
	require.NoError(t, err)

	assert.Equal(t, VerdictUnknown, session.Verdict)
	assert.Equal(t, 0.0, session.Confidence)
}

func TestAnalyzeUnknownSessionFails(t *testing.T) {
	svc, _, _ := newTestService(nil)

	_, err := svc.Analyze(context.Background(), "org_1", "sess-nope", Signals{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestIngestedEventsOverrideClaimedCounts(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()

	// Client claims heavy mouse activity but only one click was ingested.
	_, err := svc.CreateOrTouch(ctx, "org_1", SessionInput{
		SessionID: "sess-liar",
		Signals:   Signals{MouseMovements: Int(500)},
	})
	require.NoError(t, err)

	_, err = svc.RecordEvent(ctx, "org_1", "sess-liar", EventClick, nil)
	require.NoError(t, err)

	session, err := svc.Analyze(ctx, "org_1", "sess-liar", Signals{})
	require.NoError(t, err)

	require.NotNil(t, session.Signals.MouseMovements)
	assert.Equal(t, 0, *session.Signals.MouseMovements)
	assert.NotEqual(t, VerdictHuman, session.Verdict)
}

func TestRecordEventRequiresSession(t *testing.T) {
	svc, _, _ := newTestService(nil)

	_, err := svc.RecordEvent(context.Background(), "org_1", "sess-new", EventPageView, nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRecordEventRejectsUnknownType(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()

	_, err := svc.CreateOrTouch(ctx, "org_1", SessionInput{SessionID: "sess-1"})
	require.NoError(t, err)

	_, err = svc.RecordEvent(ctx, "org_1", "sess-1", "teleport", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnalyzeClassifierOverride(t *testing.T) {
	classifier := &fakeClassifier{verdict: &RemoteVerdict{IsBot: true, Confidence: 0.97}}
	svc, _, _ := newTestService(classifier)
	ctx := context.Background()

	_, err := svc.CreateOrTouch(ctx, "org_1", SessionInput{SessionID: "sess-bot"})
	require.NoError(t, err)

	// Enough mouse events to clear the classifier's trace minimum.
	for i := 0; i < MinTracePoints+2; i++ {
		_, err := svc.RecordEvent(ctx, "org_1", "sess-bot", EventMouseMove,
			map[string]any{"x": float64(i), "y": float64(i)})
		require.NoError(t, err)
	}

	session, err := svc.Analyze(ctx, "org_1", "sess-bot", Signals{})
	require.NoError(t, err)

	assert.True(t, classifier.called)
	assert.Equal(t, VerdictBot, session.Verdict)
	assert.Equal(t, 0.97, session.Confidence)
	assert.True(t, session.Overridden)
}

func TestAnalyzeClassifierSkippedForShortTraces(t *testing.T) {
	classifier := &fakeClassifier{verdict: &RemoteVerdict{IsBot: true, Confidence: 0.99}}
	svc, _, _ := newTestService(classifier)
	ctx := context.Background()

	_, err := svc.CreateOrTouch(ctx, "org_1", SessionInput{SessionID: "sess-short"})
	require.NoError(t, err)

	_, err = svc.RecordEvent(ctx, "org_1", "sess-short", EventMouseMove,
		map[string]any{"x": 1.0, "y": 1.0})
	require.NoError(t, err)

	session, err := svc.Analyze(ctx, "org_1", "sess-short", Signals{})
	require.NoError(t, err)

	assert.False(t, classifier.called)
	assert.False(t, session.Overridden)
}

func TestAnalyzeClassifierFailureDegrades(t *testing.T) {
	classifier := &fakeClassifier{err: assert.AnError}
	svc, _, _ := newTestService(classifier)
	ctx := context.Background()

	_, err := svc.CreateOrTouch(ctx, "org_1", SessionInput{SessionID: "sess-degraded"})
	require.NoError(t, err)

	for i := 0; i < MinTracePoints+2; i++ {
		_, err := svc.RecordEvent(ctx, "org_1", "sess-degraded", EventMouseMove,
			map[string]any{"x": float64(i), "y": float64(i)})
		require.NoError(t, err)
	}

	session, err := svc.Analyze(ctx, "org_1", "sess-degraded", Signals{})
	require.NoError(t, err)
	assert.False(t, session.Overridden)
}

func TestReanalysisOverwritesVerdict(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()

	_, err := svc.CreateOrTouch(ctx, "org_1", SessionInput{
		SessionID: "sess-evolving",
		Signals:   Signals{BehaviorScore: Float(0.3)},
	})
	require.NoError(t, err)

	first, err := svc.Analyze(ctx, "org_1", "sess-evolving", Signals{})
	require.NoError(t, err)
	assert.Equal(t, VerdictBot, first.Verdict)

	second, err := svc.Analyze(ctx, "org_1", "sess-evolving", Signals{BehaviorScore: Float(0.95)})
	require.NoError(t, err)
	assert.Equal(t, VerdictHuman, second.Verdict)

	stored, err := svc.GetSession(ctx, "org_1", "sess-evolving")
	require.NoError(t, err)
	assert.Equal(t, VerdictHuman, stored.Verdict)
}

func TestUpsertMergesIdentityAndSignals(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()

	first, err := svc.CreateOrTouch(ctx, "org_1", SessionInput{
		SessionID:      "sess-merge",
		UserIdentifier: "user-1",
		Signals:        Signals{MouseMovements: Int(10)},
	})
	require.NoError(t, err)

	second, err := svc.CreateOrTouch(ctx, "org_1", SessionInput{
		SessionID: "sess-merge",
		Signals:   Signals{Keystrokes: Int(4)},
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "user-1", second.UserIdentifier)
	require.NotNil(t, second.Signals.MouseMovements)
	assert.Equal(t, 10, *second.Signals.MouseMovements)
	require.NotNil(t, second.Signals.Keystrokes)
	assert.Equal(t, 4, *second.Signals.Keystrokes)
}

func TestSessionsAreOrgScoped(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()

	_, err := svc.CreateOrTouch(ctx, "org_a", SessionInput{SessionID: "shared-id"})
	require.NoError(t, err)

	_, err = svc.GetSession(ctx, "org_b", "shared-id")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	sessions, _, err := svc.ListSessions(ctx, "org_b", 10, "")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestListSessionsPaginates(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()

	for _, id := range []string{"p-1", "p-2", "p-3", "p-4", "p-5"} {
		_, err := svc.CreateOrTouch(ctx, "org_a", SessionInput{SessionID: id})
		require.NoError(t, err)
	}

	page1, cursor, err := svc.ListSessions(ctx, "org_a", 2, "")
	require.NoError(t, err)
	assert.Len(t, page1, 2)
	require.NotEmpty(t, cursor)

	page2, cursor, err := svc.ListSessions(ctx, "org_a", 2, cursor)
	require.NoError(t, err)
	assert.Len(t, page2, 2)
	require.NotEmpty(t, cursor)

	page3, cursor, err := svc.ListSessions(ctx, "org_a", 2, cursor)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
	assert.Empty(t, cursor)

	// No session appears on two pages.
	seen := map[string]bool{}
	for _, s := range append(append(page1, page2...), page3...) {
		assert.False(t, seen[s.SessionID], "session %s returned twice", s.SessionID)
		seen[s.SessionID] = true
	}

	_, _, err = svc.ListSessions(ctx, "org_a", 2, "not-a-cursor!!!")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
