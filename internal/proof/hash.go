package proof

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/consentry/consentry/internal/consent"
)

// HashPayload computes the canonical SHA-256 of a payload. Two payloads
// that are deeply equal hash identically regardless of how their maps
// were built.
func HashPayload(p Payload) (string, error) {
	canonical, err := canonicalJSON(p)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalJSON serializes v with all object keys sorted, at every
// nesting level. Round-tripping through map[string]any leans on
// encoding/json emitting map keys in sorted order.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// PayloadFromRecord builds the hash payload for a consent record. Create
// and verify both go through here, so a record mutated after proof
// creation produces a diverging hash.
func PayloadFromRecord(r *consent.Record) Payload {
	metadata := r.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Payload{
		ConsentID:      r.ID,
		UserIdentifier: r.UserIdentifier,
		ConsentType:    string(r.ConsentType),
		Status:         string(r.Status),
		Timestamp:      r.CreatedAt.UTC().Format(time.RFC3339Nano),
		IPAddress:      r.IPAddress,
		UserAgent:      r.UserAgent,
		Metadata:       metadata,
	}
}
