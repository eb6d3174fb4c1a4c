package consent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consentry/consentry/internal/idgen"
	"github.com/consentry/consentry/internal/testutil"
)

func TestPostgresUpsertKeepsIdentity(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now()

	first, err := store.Upsert(ctx, &Record{
		ID:             idgen.WithPrefix("cr_"),
		OrganizationID: "org_pg",
		UserIdentifier: "user-1",
		ConsentType:    TypeMarketing,
		Status:         StatusGranted,
		Metadata:       map[string]any{"source": "banner"},
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	require.NoError(t, err)

	second, err := store.Upsert(ctx, &Record{
		ID:             idgen.WithPrefix("cr_"),
		OrganizationID: "org_pg",
		UserIdentifier: "user-1",
		ConsentType:    TypeMarketing,
		Status:         StatusDenied,
		Metadata:       map[string]any{},
		CreatedAt:      now.Add(time.Minute),
		UpdatedAt:      now.Add(time.Minute),
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, StatusDenied, second.Status)
	assert.WithinDuration(t, first.CreatedAt, second.CreatedAt, time.Second)

	records, err := store.List(ctx, "org_pg", "user-1", "")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestPostgresDeleteUser(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now()

	for _, ct := range []Type{TypeMarketing, TypeAnalytics} {
		_, err := store.Upsert(ctx, &Record{
			ID:             idgen.WithPrefix("cr_"),
			OrganizationID: "org_pg",
			UserIdentifier: "user-2",
			ConsentType:    ct,
			Status:         StatusGranted,
			Metadata:       map[string]any{},
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		require.NoError(t, err)
	}

	require.NoError(t, store.DeleteUser(ctx, "org_pg", "user-2"))

	records, err := store.List(ctx, "org_pg", "user-2", "")
	require.NoError(t, err)
	assert.Empty(t, records)
}
