package consent

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/consentry/consentry/internal/organizations"
	"github.com/consentry/consentry/internal/validation"
)

// Handler exposes consent management over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates a new consent handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers consent routes. The group must already carry
// organization auth.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	cs := r.Group("/consent")
	{
		cs.POST("", h.setConsent)
		cs.GET("", h.listConsents)
		cs.GET("/check", h.checkConsent)
		cs.POST("/revoke", h.revokeConsent)
		cs.POST("/batch", h.batchSetConsents)
		cs.GET("/export", h.exportConsents)
		cs.DELETE("", h.deleteUserConsents)
	}
}

type setConsentRequest struct {
	UserIdentifier string         `json:"userIdentifier"`
	ConsentType    string         `json:"consentType"`
	Status         string         `json:"status"`
	Metadata       map[string]any `json:"metadata"`
}

func (h *Handler) setConsent(c *gin.Context) {
	var req setConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if errs := validation.Validate(
		validation.Required("userIdentifier", req.UserIdentifier),
		validation.Required("consentType", req.ConsentType),
		validation.Required("status", req.Status),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": errs.Error()})
		return
	}

	record, err := h.service.Set(c.Request.Context(), organizations.OrgID(c), SetInput{
		UserIdentifier: validation.SanitizeString(req.UserIdentifier, 255),
		ConsentType:    Type(req.ConsentType),
		Status:         Status(req.Status),
		Metadata:       req.Metadata,
		IPAddress:      c.ClientIP(),
		UserAgent:      validation.SanitizeString(c.Request.UserAgent(), 512),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) checkConsent(c *gin.Context) {
	user := c.Query("userIdentifier")
	consentType := c.Query("consentType")
	if errs := validation.Validate(
		validation.Required("userIdentifier", user),
		validation.Required("consentType", consentType),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": errs.Error()})
		return
	}

	record, err := h.service.Check(c.Request.Context(), organizations.OrgID(c), user, Type(consentType))
	if errors.Is(err, ErrConsentNotFound) {
		c.JSON(http.StatusOK, gin.H{"hasConsent": false, "status": "unknown"})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"hasConsent": record.Status == StatusGranted,
		"status":     record.Status,
		"updatedAt":  record.UpdatedAt,
	})
}

func (h *Handler) listConsents(c *gin.Context) {
	user := c.Query("userIdentifier")
	if errs := validation.Validate(validation.Required("userIdentifier", user)); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": errs.Error()})
		return
	}

	records, err := h.service.List(c.Request.Context(), organizations.OrgID(c), user)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consents": records, "count": len(records)})
}

type revokeConsentRequest struct {
	UserIdentifier string `json:"userIdentifier"`
	ConsentType    string `json:"consentType"`
}

func (h *Handler) revokeConsent(c *gin.Context) {
	var req revokeConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if errs := validation.Validate(
		validation.Required("userIdentifier", req.UserIdentifier),
		validation.Required("consentType", req.ConsentType),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": errs.Error()})
		return
	}

	record, err := h.service.Revoke(c.Request.Context(), organizations.OrgID(c), req.UserIdentifier, Type(req.ConsentType), c.ClientIP())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

type batchConsentRequest struct {
	UserIdentifier string         `json:"userIdentifier"`
	Consents       []Decision     `json:"consents"`
	Metadata       map[string]any `json:"metadata"`
}

func (h *Handler) batchSetConsents(c *gin.Context) {
	var req batchConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if errs := validation.Validate(validation.Required("userIdentifier", req.UserIdentifier)); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": errs.Error()})
		return
	}

	records, err := h.service.BatchSet(c.Request.Context(), organizations.OrgID(c),
		req.UserIdentifier, req.Consents, req.Metadata, c.ClientIP(),
		validation.SanitizeString(c.Request.UserAgent(), 512))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consents": records, "count": len(records)})
}

func (h *Handler) exportConsents(c *gin.Context) {
	user := c.Query("userIdentifier")
	if errs := validation.Validate(validation.Required("userIdentifier", user)); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": errs.Error()})
		return
	}

	export, err := h.service.ExportUser(c.Request.Context(), organizations.OrgID(c), user)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, export)
}

func (h *Handler) deleteUserConsents(c *gin.Context) {
	user := c.Query("userIdentifier")
	if errs := validation.Validate(validation.Required("userIdentifier", user)); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": errs.Error()})
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), organizations.OrgID(c), user, c.ClientIP()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrConsentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "consent record not found"})
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "request failed"})
	}
}
