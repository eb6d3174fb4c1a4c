package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all Consentry tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("consentry", "1.0.0")
	client := NewConsentryClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolCheckConsent, h.HandleCheckConsent)
	s.AddTool(ToolRecordConsent, h.HandleRecordConsent)
	s.AddTool(ToolAnalyzeSession, h.HandleAnalyzeSession)
	s.AddTool(ToolGetSessionVerdict, h.HandleGetSessionVerdict)
	s.AddTool(ToolVerifyProof, h.HandleVerifyProof)
	s.AddTool(ToolGetCertificate, h.HandleGetCertificate)

	return s
}
