package proof

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consentry/consentry/internal/consent"
)

func TestHashPayloadDeterministic(t *testing.T) {
	p := Payload{
		ConsentID:      "cr_1",
		UserIdentifier: "user-1",
		ConsentType:    "marketing",
		Status:         "granted",
		Timestamp:      "2026-08-01T12:00:00Z",
		Metadata:       map[string]any{"source": "banner"},
	}

	first, err := HashPayload(p)
	require.NoError(t, err)
	second, err := HashPayload(p)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestHashIgnoresMapInsertionOrder(t *testing.T) {
	a := map[string]any{}
	a["zeta"] = 1
	a["alpha"] = 2
	a["nested"] = map[string]any{"y": true, "x": false}

	b := map[string]any{}
	b["nested"] = map[string]any{"x": false, "y": true}
	b["alpha"] = 2
	b["zeta"] = 1

	p1 := Payload{ConsentID: "cr_1", UserIdentifier: "u", ConsentType: "analytics", Status: "granted", Timestamp: "2026-08-01T12:00:00Z", Metadata: a}
	p2 := Payload{ConsentID: "cr_1", UserIdentifier: "u", ConsentType: "analytics", Status: "granted", Timestamp: "2026-08-01T12:00:00Z", Metadata: b}

	h1, err := HashPayload(p1)
	require.NoError(t, err)
	h2, err := HashPayload(p2)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestHashChangesWithAnyField(t *testing.T) {
	base := Payload{ConsentID: "cr_1", UserIdentifier: "u", ConsentType: "marketing", Status: "granted", Timestamp: "2026-08-01T12:00:00Z", Metadata: map[string]any{}}
	baseHash, err := HashPayload(base)
	require.NoError(t, err)

	mutated := base
	mutated.Status = "denied"
	mutatedHash, err := HashPayload(mutated)
	require.NoError(t, err)
	assert.NotEqual(t, baseHash, mutatedHash)

	mutated = base
	mutated.Metadata = map[string]any{"revoked_at": "2026-08-02T00:00:00Z"}
	mutatedHash, err = HashPayload(mutated)
	require.NoError(t, err)
	assert.NotEqual(t, baseHash, mutatedHash)
}

func TestPayloadFromRecordIsStable(t *testing.T) {
	created := time.Date(2026, 8, 1, 12, 0, 0, 123456789, time.UTC)
	record := &consent.Record{
		ID:             "cr_1",
		OrganizationID: "org_1",
		UserIdentifier: "user-1",
		ConsentType:    consent.TypeMarketing,
		Status:         consent.StatusGranted,
		CreatedAt:      created,
		UpdatedAt:      created,
	}

	p1 := PayloadFromRecord(record)
	p2 := PayloadFromRecord(record)
	assert.Equal(t, p1, p2)
	assert.Equal(t, "cr_1", p1.ConsentID)
	assert.NotNil(t, p1.Metadata)

	h1, err := HashPayload(p1)
	require.NoError(t, err)
	h2, err := HashPayload(p2)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}
