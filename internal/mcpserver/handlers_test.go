package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test helpers ---

func newTestSetup(handler http.Handler) (*Handlers, func()) {
	ts := httptest.NewServer(handler)
	cfg := Config{
		APIURL: ts.URL,
		APIKey: "ck_test_key",
	}
	client := NewConsentryClient(cfg)
	h := NewHandlers(client)
	return h, ts.Close
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	if args == nil {
		args = map[string]any{}
	}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content block")
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

// ============================================================
// Client tests
// ============================================================

func TestClient_DoRequest_AuthHeader(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	client := NewConsentryClient(Config{APIURL: ts.URL, APIKey: "ck_secret123"})
	_, err := client.CheckConsent(context.Background(), "user-1", "marketing")
	require.NoError(t, err)
	assert.Equal(t, "Bearer ck_secret123", gotAuth)
}

func TestClient_DoRequest_HTTPError_WithAPIMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "unauthorized",
			"message": "Invalid API key",
		})
	}))
	defer ts.Close()

	client := NewConsentryClient(Config{APIURL: ts.URL, APIKey: "bad"})
	_, err := client.CheckConsent(context.Background(), "user-1", "marketing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestClient_DoRequest_HTTPError_NonJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream timeout"))
	}))
	defer ts.Close()

	client := NewConsentryClient(Config{APIURL: ts.URL, APIKey: "k"})
	_, err := client.VerifyProof(context.Background(), "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream timeout")
}

func TestClient_DoRequest_ConnectionRefused(t *testing.T) {
	client := NewConsentryClient(Config{APIURL: "http://127.0.0.1:1", APIKey: "k"})
	_, err := client.CheckConsent(context.Background(), "u", "marketing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

// ============================================================
// Handler tests
// ============================================================

func TestHandleCheckConsent_Granted(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/consent/check", r.URL.Path)
		assert.Equal(t, "alice@example.com", r.URL.Query().Get("userIdentifier"))
		assert.Equal(t, "marketing", r.URL.Query().Get("consentType"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hasConsent": true,
			"status":     "granted",
			"updatedAt":  "2026-08-30T10:00:00Z",
		})
	}))
	defer cleanup()

	result, err := h.HandleCheckConsent(context.Background(), makeRequest(map[string]any{
		"user_identifier": "alice@example.com",
		"consent_type":    "marketing",
	}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "HAS granted marketing consent")
	assert.Contains(t, text, "2026-08-30T10:00:00Z")
}

func TestHandleCheckConsent_Unknown(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hasConsent": false,
			"status":     "unknown",
		})
	}))
	defer cleanup()

	result, err := h.HandleCheckConsent(context.Background(), makeRequest(map[string]any{
		"user_identifier": "bob",
		"consent_type":    "analytics",
	}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "NOT granted")
	assert.Contains(t, text, "unknown")
}

func TestHandleCheckConsent_MissingArgs(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("API should not be called")
	}))
	defer cleanup()

	result, err := h.HandleCheckConsent(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleRecordConsent(t *testing.T) {
	var gotBody map[string]any
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/consent", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "cr_123",
			"status": "granted",
		})
	}))
	defer cleanup()

	result, err := h.HandleRecordConsent(context.Background(), makeRequest(map[string]any{
		"user_identifier": "alice@example.com",
		"consent_type":    "analytics",
		"status":          "granted",
		"metadata":        map[string]any{"source": "chat"},
	}))
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", gotBody["userIdentifier"])
	assert.Equal(t, "analytics", gotBody["consentType"])
	assert.Equal(t, "granted", gotBody["status"])
	assert.Equal(t, map[string]any{"source": "chat"}, gotBody["metadata"])

	text := resultText(t, result)
	assert.Contains(t, text, "Recorded analytics consent")
	assert.Contains(t, text, "cr_123")
}

func TestHandleAnalyzeSession(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/bot-detection/analyze", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sessionId":  "sess-1",
			"verdict":    "human",
			"confidence": 0.89,
			"overridden": false,
		})
	}))
	defer cleanup()

	result, err := h.HandleAnalyzeSession(context.Background(), makeRequest(map[string]any{
		"session_id": "sess-1",
	}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "human")
	assert.Contains(t, text, "0.89")
}

func TestHandleGetSessionVerdict_Overridden(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/bot-detection/result/sess-2", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sessionId":  "sess-2",
			"verdict":    "bot",
			"confidence": 0.95,
			"overridden": true,
		})
	}))
	defer cleanup()

	result, err := h.HandleGetSessionVerdict(context.Background(), makeRequest(map[string]any{
		"session_id": "sess-2",
	}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "bot")
	assert.Contains(t, text, "classifier overrode")
}

func TestHandleVerifyProof_Valid(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/proof/verify", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"proofHash": "abc123",
			"verified":  true,
		})
	}))
	defer cleanup()

	result, err := h.HandleVerifyProof(context.Background(), makeRequest(map[string]any{
		"proof_hash": "abc123",
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "VALID")
}

func TestHandleVerifyProof_Failed(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"proofHash": "abc123",
			"verified":  false,
		})
	}))
	defer cleanup()

	result, err := h.HandleVerifyProof(context.Background(), makeRequest(map[string]any{
		"proof_hash": "abc123",
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "FAILED")
}

func TestHandleGetCertificate(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/proof/certificate/deadbeef", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"proofHash":        "deadbeef",
			"consentType":      "marketing",
			"consentStatus":    "granted",
			"userIdentifier":   "alice@example.com",
			"timestamp":        "2026-08-30T10:00:00Z",
			"verified":         true,
			"verificationDate": "2026-08-31T09:00:00Z",
			"certificateUrl":   "https://consentry.example/proof/deadbeef",
		})
	}))
	defer cleanup()

	result, err := h.HandleGetCertificate(context.Background(), makeRequest(map[string]any{
		"proof_hash": "deadbeef",
	}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "marketing (granted)")
	assert.Contains(t, text, "PASSED")
	assert.Contains(t, text, "https://consentry.example/proof/deadbeef")
}

func TestHandleGetCertificate_NotFound(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "not_found",
			"message": "proof not found",
		})
	}))
	defer cleanup()

	result, err := h.HandleGetCertificate(context.Background(), makeRequest(map[string]any{
		"proof_hash": "deadbeef",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "proof not found")
}
