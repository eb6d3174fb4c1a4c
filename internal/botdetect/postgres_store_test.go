package botdetect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consentry/consentry/internal/idgen"
	"github.com/consentry/consentry/internal/testutil"
)

func TestPostgresUpsertMergesIdentity(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now()

	first, err := store.UpsertSession(ctx, &Session{
		ID:             idgen.WithPrefix("bs_"),
		OrganizationID: "org_pg",
		SessionID:      "sess-1",
		UserIdentifier: "user-1",
		Signals:        Signals{MouseMovements: Int(10)},
		Verdict:        VerdictUnknown,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	require.NoError(t, err)

	// Second upsert omits the identity; the stored one must survive.
	second, err := store.UpsertSession(ctx, &Session{
		ID:             idgen.WithPrefix("bs_"),
		OrganizationID: "org_pg",
		SessionID:      "sess-1",
		Signals:        Signals{Keystrokes: Int(4)},
		Verdict:        VerdictUnknown,
		CreatedAt:      now.Add(time.Second),
		UpdatedAt:      now.Add(time.Second),
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "user-1", second.UserIdentifier)
	require.NotNil(t, second.Signals.MouseMovements)
	assert.Equal(t, 10, *second.Signals.MouseMovements)
	require.NotNil(t, second.Signals.Keystrokes)
	assert.Equal(t, 4, *second.Signals.Keystrokes)
}

func TestPostgresUpsertMergesExtraPerKey(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now()

	_, err := store.UpsertSession(ctx, &Session{
		ID:             idgen.WithPrefix("bs_"),
		OrganizationID: "org_pg",
		SessionID:      "sess-extra",
		Signals: Signals{Extra: map[string]any{
			"webglVendor": "Mesa",
			"timezone":    "UTC",
		}},
		Verdict:   VerdictUnknown,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)

	// A later upsert with a partial extra map must merge per-key, not
	// replace the stored object.
	second, err := store.UpsertSession(ctx, &Session{
		ID:             idgen.WithPrefix("bs_"),
		OrganizationID: "org_pg",
		SessionID:      "sess-extra",
		Signals: Signals{Extra: map[string]any{
			"timezone": "Europe/Berlin",
			"language": "de-DE",
		}},
		Verdict:   VerdictUnknown,
		CreatedAt: now.Add(time.Second),
		UpdatedAt: now.Add(time.Second),
	})
	require.NoError(t, err)

	assert.Equal(t, "Mesa", second.Signals.Extra["webglVendor"])
	assert.Equal(t, "Europe/Berlin", second.Signals.Extra["timezone"])
	assert.Equal(t, "de-DE", second.Signals.Extra["language"])
}

func TestPostgresSaveVerdictAndEvents(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now()

	_, err := store.UpsertSession(ctx, &Session{
		ID:             idgen.WithPrefix("bs_"),
		OrganizationID: "org_pg",
		SessionID:      "sess-2",
		Verdict:        VerdictUnknown,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		err := store.AppendEvent(ctx, "org_pg", &Event{
			ID:        idgen.WithPrefix("be_"),
			SessionID: "sess-2",
			Type:      EventClick,
			Timestamp: now.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	events, err := store.ListEvents(ctx, "org_pg", "sess-2")
	require.NoError(t, err)
	assert.Len(t, events, 3)

	err = store.SaveVerdict(ctx, "org_pg", "sess-2", VerdictSuspicious, 0.55, false,
		Signals{Clicks: Int(3)}, time.Now())
	require.NoError(t, err)

	session, err := store.GetSession(ctx, "org_pg", "sess-2")
	require.NoError(t, err)
	assert.Equal(t, VerdictSuspicious, session.Verdict)
	assert.InDelta(t, 0.55, session.Confidence, 0.0001)
	assert.NotNil(t, session.AnalyzedAt)

	err = store.SaveVerdict(ctx, "org_pg", "sess-missing", VerdictBot, 0.3, false, Signals{}, time.Now())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
