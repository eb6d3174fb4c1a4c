package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *ConsentryClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *ConsentryClient) *Handlers {
	return &Handlers{client: client}
}

// HandleCheckConsent checks a user's consent status.
func (h *Handlers) HandleCheckConsent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user := req.GetString("user_identifier", "")
	if user == "" {
		return mcp.NewToolResultError("user_identifier is required"), nil
	}
	consentType := req.GetString("consent_type", "")
	if consentType == "" {
		return mcp.NewToolResultError("consent_type is required"), nil
	}

	raw, err := h.client.CheckConsent(ctx, user, consentType)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to check consent: %v", err)), nil
	}

	text, err := formatConsentCheck(raw, user, consentType)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse consent status: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleRecordConsent records a consent decision.
func (h *Handlers) HandleRecordConsent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user := req.GetString("user_identifier", "")
	if user == "" {
		return mcp.NewToolResultError("user_identifier is required"), nil
	}
	consentType := req.GetString("consent_type", "")
	if consentType == "" {
		return mcp.NewToolResultError("consent_type is required"), nil
	}
	status := req.GetString("status", "")
	if status == "" {
		return mcp.NewToolResultError("status is required"), nil
	}

	var metadata map[string]any
	if raw := req.GetArguments()["metadata"]; raw != nil {
		if m, ok := raw.(map[string]any); ok {
			metadata = m
		}
	}

	raw, err := h.client.RecordConsent(ctx, user, consentType, status, metadata)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to record consent: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recorded %s consent as %q for %s.\n\n", consentType, status, user)
	sb.WriteString(formatJSON(raw))
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleAnalyzeSession runs bot analysis on a session.
func (h *Handlers) HandleAnalyzeSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	raw, err := h.client.AnalyzeSession(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to analyze session: %v", err)), nil
	}

	text, err := formatVerdict(raw, sessionID, true)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse analysis result: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetSessionVerdict returns the stored verdict for a session.
func (h *Handlers) HandleGetSessionVerdict(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	raw, err := h.client.GetSessionVerdict(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get session verdict: %v", err)), nil
	}

	text, err := formatVerdict(raw, sessionID, false)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse verdict: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleVerifyProof verifies a consent proof hash.
func (h *Handlers) HandleVerifyProof(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hash := req.GetString("proof_hash", "")
	if hash == "" {
		return mcp.NewToolResultError("proof_hash is required"), nil
	}

	raw, err := h.client.VerifyProof(ctx, hash)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to verify proof: %v", err)), nil
	}

	var result struct {
		ProofHash string `json:"proofHash"`
		Verified  bool   `json:"verified"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse verification result: %v", err)), nil
	}

	if result.Verified {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Proof %s is VALID: the consent record is unchanged since the proof was created.", hash)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Proof %s FAILED verification: the consent record was modified, revoked, or deleted "+
			"after the proof was created.", hash)), nil
}

// HandleGetCertificate returns a verification certificate for a proof.
func (h *Handlers) HandleGetCertificate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hash := req.GetString("proof_hash", "")
	if hash == "" {
		return mcp.NewToolResultError("proof_hash is required"), nil
	}

	raw, err := h.client.GetCertificate(ctx, hash)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get certificate: %v", err)), nil
	}

	text, err := formatCertificate(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse certificate: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// --- Formatting helpers ---

func formatConsentCheck(raw json.RawMessage, user, consentType string) (string, error) {
	var result struct {
		HasConsent bool   `json:"hasConsent"`
		Status     string `json:"status"`
		UpdatedAt  string `json:"updatedAt"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", err
	}

	var sb strings.Builder
	if result.HasConsent {
		fmt.Fprintf(&sb, "User %s HAS granted %s consent.\n", user, consentType)
	} else {
		fmt.Fprintf(&sb, "User %s has NOT granted %s consent (status: %s).\n", user, consentType, result.Status)
	}
	if result.UpdatedAt != "" {
		fmt.Fprintf(&sb, "Last updated: %s\n", result.UpdatedAt)
	}
	return sb.String(), nil
}

func formatVerdict(raw json.RawMessage, sessionID string, analyzed bool) (string, error) {
	var result struct {
		Verdict    string `json:"verdict"`
		Confidence float64 `json:"confidence"`
		Overridden bool   `json:"overridden"`
		AnalyzedAt string `json:"analyzedAt"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", err
	}

	var sb strings.Builder
	if analyzed {
		fmt.Fprintf(&sb, "Analyzed session %s.\n", sessionID)
	} else {
		fmt.Fprintf(&sb, "Session %s:\n", sessionID)
	}
	fmt.Fprintf(&sb, "Verdict: %s (confidence %.2f)\n", result.Verdict, result.Confidence)
	if result.Overridden {
		sb.WriteString("The external classifier overrode the heuristic verdict.\n")
	}
	if result.Verdict == "unknown" {
		sb.WriteString("No behavioral signals were available to score this session.\n")
	}
	return sb.String(), nil
}

func formatCertificate(raw json.RawMessage) (string, error) {
	var cert struct {
		ProofHash        string `json:"proofHash"`
		ConsentType      string `json:"consentType"`
		ConsentStatus    string `json:"consentStatus"`
		UserIdentifier   string `json:"userIdentifier"`
		Timestamp        string `json:"timestamp"`
		Verified         bool   `json:"verified"`
		VerificationDate string `json:"verificationDate"`
		CertificateURL   string `json:"certificateUrl"`
	}
	if err := json.Unmarshal(raw, &cert); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Consent Proof Certificate\n")
	fmt.Fprintf(&sb, "Proof hash: %s\n", cert.ProofHash)
	fmt.Fprintf(&sb, "User: %s\n", cert.UserIdentifier)
	fmt.Fprintf(&sb, "Consent: %s (%s)\n", cert.ConsentType, cert.ConsentStatus)
	fmt.Fprintf(&sb, "Recorded at: %s\n", cert.Timestamp)
	if cert.Verified {
		fmt.Fprintf(&sb, "Verification: PASSED at %s\n", cert.VerificationDate)
	} else {
		sb.WriteString("Verification: FAILED (record changed since proof creation)\n")
	}
	if cert.CertificateURL != "" {
		fmt.Fprintf(&sb, "Certificate URL: %s\n", cert.CertificateURL)
	}
	return sb.String(), nil
}

func formatJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
