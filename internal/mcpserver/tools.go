package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the Consentry MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolCheckConsent = mcp.NewTool("check_consent",
	mcp.WithDescription(
		"Check whether a user has granted consent of a given type. "+
			"Returns the current status (granted/denied/pending) or 'unknown' if the user "+
			"never made a decision. Use this before processing any user data."),
	mcp.WithString("user_identifier",
		mcp.Required(),
		mcp.Description("The user's identifier (email, user ID, or anonymous ID)")),
	mcp.WithString("consent_type",
		mcp.Required(),
		mcp.Description("The consent category to check"),
		mcp.Enum("marketing", "analytics", "functional", "personalization")),
)

var ToolRecordConsent = mcp.NewTool("record_consent",
	mcp.WithDescription(
		"Record or update a user's consent decision. "+
			"Upserts per (user, consent type): recording the same type again replaces the "+
			"previous status. Returns the stored consent record."),
	mcp.WithString("user_identifier",
		mcp.Required(),
		mcp.Description("The user's identifier (email, user ID, or anonymous ID)")),
	mcp.WithString("consent_type",
		mcp.Required(),
		mcp.Description("The consent category to record"),
		mcp.Enum("marketing", "analytics", "functional", "personalization")),
	mcp.WithString("status",
		mcp.Required(),
		mcp.Description("The consent decision"),
		mcp.Enum("granted", "denied", "pending")),
	mcp.WithObject("metadata",
		mcp.Description("Optional context to store with the decision (e.g. {\"source\": \"chat\"})")),
)

var ToolAnalyzeSession = mcp.NewTool("analyze_session",
	mcp.WithDescription(
		"Run bot analysis on a tracked browser session. "+
			"Scores the session's behavioral signals (mouse movement, clicks, keystrokes, "+
			"scrolling, dwell time) and returns a verdict: human, suspicious, bot, or unknown."),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("The session identifier assigned by the tracking snippet")),
)

var ToolGetSessionVerdict = mcp.NewTool("get_session_verdict",
	mcp.WithDescription(
		"Get the stored verdict for a previously analyzed session without re-scoring it. "+
			"Returns the verdict, confidence, and the signals that produced it."),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("The session identifier assigned by the tracking snippet")),
)

var ToolVerifyProof = mcp.NewTool("verify_proof",
	mcp.WithDescription(
		"Verify a consent proof hash against the live consent record. "+
			"Recomputes the hash from current data; a mismatch means the consent record "+
			"changed after the proof was created."),
	mcp.WithString("proof_hash",
		mcp.Required(),
		mcp.Description("The 64-character hex SHA-256 proof hash")),
)

var ToolGetCertificate = mcp.NewTool("get_certificate",
	mcp.WithDescription(
		"Get a human-readable verification certificate for a consent proof. "+
			"Includes the consent type, status, user, verification result, and a shareable URL."),
	mcp.WithString("proof_hash",
		mcp.Required(),
		mcp.Description("The 64-character hex SHA-256 proof hash")),
)
