package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Config holds the configuration for connecting to the Consentry API.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
	APIKey string // Organization API key, e.g. "ck_..."
}

// ConsentryClient is a pure HTTP client for the Consentry API.
type ConsentryClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewConsentryClient creates a new client for the Consentry API.
func NewConsentryClient(cfg Config) *ConsentryClient {
	return &ConsentryClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *ConsentryClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// CheckConsent returns the current consent status for a user and consent type.
func (c *ConsentryClient) CheckConsent(ctx context.Context, userIdentifier, consentType string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("userIdentifier", userIdentifier)
	q.Set("consentType", consentType)
	return c.doRequest(ctx, http.MethodGet, "/v1/consent/check", q, nil)
}

// RecordConsent records or updates a consent decision for a user.
func (c *ConsentryClient) RecordConsent(ctx context.Context, userIdentifier, consentType, status string, metadata map[string]any) (json.RawMessage, error) {
	body := map[string]any{
		"userIdentifier": userIdentifier,
		"consentType":    consentType,
		"status":         status,
	}
	if metadata != nil {
		body["metadata"] = metadata
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/consent", nil, body)
}

// AnalyzeSession runs bot analysis on a tracked session.
func (c *ConsentryClient) AnalyzeSession(ctx context.Context, sessionID string) (json.RawMessage, error) {
	body := map[string]any{"sessionId": sessionID}
	return c.doRequest(ctx, http.MethodPost, "/v1/bot-detection/analyze", nil, body)
}

// GetSessionVerdict returns the stored verdict for a session.
func (c *ConsentryClient) GetSessionVerdict(ctx context.Context, sessionID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/bot-detection/result/"+sessionID, nil, nil)
}

// VerifyProof checks a consent proof hash against the live consent record.
func (c *ConsentryClient) VerifyProof(ctx context.Context, proofHash string) (json.RawMessage, error) {
	body := map[string]any{"proofHash": proofHash}
	return c.doRequest(ctx, http.MethodPost, "/v1/proof/verify", nil, body)
}

// GetCertificate returns the verification certificate for a proof hash.
func (c *ConsentryClient) GetCertificate(ctx context.Context, proofHash string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/proof/certificate/"+proofHash, nil, nil)
}
