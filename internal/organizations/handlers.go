package organizations

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/consentry/consentry/internal/validation"
)

// Handler exposes admin endpoints for provisioning organizations.
type Handler struct {
	manager     *Manager
	adminSecret string
}

// NewHandler creates a new organizations admin handler.
func NewHandler(manager *Manager, adminSecret string) *Handler {
	return &Handler{manager: manager, adminSecret: adminSecret}
}

// RegisterRoutes registers admin organization routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	orgs := r.Group("/organizations")
	orgs.Use(h.requireAdmin())
	{
		orgs.POST("", h.createOrganization)
		orgs.GET("", h.listOrganizations)
	}
}

func (h *Handler) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.GetHeader("X-Admin-Secret")
		if h.adminSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.adminSecret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "valid X-Admin-Secret header required",
			})
			return
		}
		c.Next()
	}
}

type createOrganizationRequest struct {
	Name string `json:"name"`
}

func (h *Handler) createOrganization(c *gin.Context) {
	var req createOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	req.Name = validation.SanitizeString(req.Name, 200)
	if errs := validation.Validate(validation.Required("name", req.Name)); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": errs.Error()})
		return
	}

	rawKey, org, err := h.manager.Create(c.Request.Context(), req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to create organization"})
		return
	}

	// Raw key is returned exactly once.
	c.JSON(http.StatusCreated, gin.H{
		"organization": org,
		"apiKey":       rawKey,
	})
}

func (h *Handler) listOrganizations(c *gin.Context) {
	orgs, err := h.manager.List(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list organizations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"organizations": orgs, "count": len(orgs)})
}
