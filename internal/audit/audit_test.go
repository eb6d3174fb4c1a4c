package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderWritesAsync(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, slog.Default())

	rec.Record("org_1", ActionConsentUpdated, "consent_record", "cr_1", "user-1", map[string]any{"consentType": "marketing"})
	rec.Record("org_1", ActionProofCreated, "consent_proof", "abc", "", nil)
	rec.Record("org_2", ActionVerdictResolved, "bot_session", "sess-9", "", nil)
	rec.Close()

	entries, err := store.List(context.Background(), "org_1", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "org_1", e.OrganizationID)
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.CreatedAt.IsZero())
	}
}

type flakyStore struct {
	mu       sync.Mutex
	failures int
	entries  []*Entry
}

func (f *flakyStore) Append(ctx context.Context, entry *Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("transient")
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *flakyStore) List(ctx context.Context, orgID string, limit int) ([]*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Entry(nil), f.entries...), nil
}

func TestRecorderRetriesTransientFailures(t *testing.T) {
	store := &flakyStore{failures: 2}
	rec := NewRecorder(store, slog.Default())

	rec.Record("org_1", ActionConsentRevoked, "consent_record", "cr_1", "user-1", nil)
	rec.Close()

	entries, err := store.List(context.Background(), "org_1", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMemoryStoreListNewestFirstAndScoped(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, e := range []*Entry{
		{ID: "aud_1", OrganizationID: "org_a", Action: ActionConsentUpdated},
		{ID: "aud_2", OrganizationID: "org_b", Action: ActionConsentUpdated},
		{ID: "aud_3", OrganizationID: "org_a", Action: ActionConsentRevoked},
	} {
		require.NoError(t, store.Append(ctx, e))
	}

	entries, err := store.List(ctx, "org_a", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "aud_3", entries[0].ID)
	assert.Equal(t, "aud_1", entries[1].ID)
}
