package botdetect

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/consentry/consentry/internal/organizations"
	"github.com/consentry/consentry/internal/validation"
)

// Handler exposes bot detection over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates a new bot detection handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers bot detection routes. The group must already
// carry organization auth.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	bd := r.Group("/bot-detection")
	{
		bd.POST("/session", h.createSession)
		bd.POST("/event", h.recordEvent)
		bd.POST("/analyze", h.analyzeSession)
		bd.GET("/result/:sessionId", h.getResult)
		bd.GET("/sessions", h.listSessions)
	}
}

type sessionRequest struct {
	SessionID      string  `json:"sessionId"`
	UserIdentifier string  `json:"userIdentifier"`
	Signals        Signals `json:"signals"`
}

func (h *Handler) createSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if errs := validation.Validate(
		validation.Required("sessionId", req.SessionID),
		validation.ValidSessionID("sessionId", req.SessionID),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": errs.Error()})
		return
	}

	session, err := h.service.CreateOrTouch(c.Request.Context(), organizations.OrgID(c), SessionInput{
		SessionID:      req.SessionID,
		UserIdentifier: validation.SanitizeString(req.UserIdentifier, 255),
		IPAddress:      c.ClientIP(),
		UserAgent:      validation.SanitizeString(c.Request.UserAgent(), 512),
		Signals:        req.Signals,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type eventRequest struct {
	SessionID string         `json:"sessionId"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
}

func (h *Handler) recordEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if errs := validation.Validate(
		validation.Required("sessionId", req.SessionID),
		validation.ValidSessionID("sessionId", req.SessionID),
		validation.Required("type", req.Type),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": errs.Error()})
		return
	}

	event, err := h.service.RecordEvent(c.Request.Context(), organizations.OrgID(c), req.SessionID, req.Type, req.Data)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": event.ID, "recorded": true})
}

type analyzeRequest struct {
	SessionID string  `json:"sessionId"`
	Signals   Signals `json:"signals"`
}

func (h *Handler) analyzeSession(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if errs := validation.Validate(
		validation.Required("sessionId", req.SessionID),
		validation.ValidSessionID("sessionId", req.SessionID),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": errs.Error()})
		return
	}

	session, err := h.service.Analyze(c.Request.Context(), organizations.OrgID(c), req.SessionID, req.Signals)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessionId":  session.SessionID,
		"verdict":    session.Verdict,
		"confidence": session.Confidence,
		"overridden": session.Overridden,
		"analyzedAt": session.AnalyzedAt,
		"signals":    session.Signals,
	})
}

func (h *Handler) getResult(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if !validation.IsValidSessionID(sessionID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": "invalid session id"})
		return
	}

	session, err := h.service.GetSession(c.Request.Context(), organizations.OrgID(c), sessionID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) listSessions(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	sessions, nextCursor, err := h.service.ListSessions(c.Request.Context(), organizations.OrgID(c), limit, c.Query("cursor"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := gin.H{"sessions": sessions, "count": len(sessions), "hasMore": nextCursor != ""}
	if nextCursor != "" {
		resp["nextCursor"] = nextCursor
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "session not found"})
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "request failed"})
	}
}
