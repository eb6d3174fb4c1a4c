package organizations

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyOrganization is the gin context key for the resolved organization
	ContextKeyOrganization = "organization"
	// ContextKeyOrgID is the gin context key for the resolved organization ID
	ContextKeyOrgID = "organizationId"
)

// Middleware extracts and resolves the API key from the request.
// Sets the organization in context if valid; does not reject.
func Middleware(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("Authorization")
		if apiKey == "" {
			apiKey = c.GetHeader("X-API-Key")
		}

		if apiKey != "" {
			org, err := m.Validate(c.Request.Context(), apiKey)
			if err == nil {
				c.Set(ContextKeyOrganization, org)
				c.Set(ContextKeyOrgID, org.ID)
			}
		}

		c.Next()
	}
}

// RequireOrganization rejects requests without a resolved organization.
func RequireOrganization() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ContextKeyOrganization); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "API key required. Include 'Authorization: Bearer ck_...' or 'X-API-Key' header.",
			})
			return
		}
		c.Next()
	}
}

// FromContext returns the resolved organization from the gin context.
func FromContext(c *gin.Context) (*Organization, bool) {
	v, exists := c.Get(ContextKeyOrganization)
	if !exists {
		return nil, false
	}
	org, ok := v.(*Organization)
	return org, ok
}

// OrgID returns the resolved organization ID, or "" if unresolved.
func OrgID(c *gin.Context) string {
	return c.GetString(ContextKeyOrgID)
}
