// Package validation provides input validation helpers and middleware.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20

// MaxStringLength is the maximum length for free-form string fields
const MaxStringLength = 10000

// MaxSessionIDLength bounds caller-supplied session identifiers
const MaxSessionIDLength = 128

var (
	// proofHashRegex validates SHA-256 hex digests
	proofHashRegex = regexp.MustCompile(`^[a-f0-9]{64}$`)
	// sessionIDRegex validates caller-supplied session identifiers
	sessionIDRegex = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidProofHash checks if a string is a 64-char lowercase hex SHA-256 digest
func IsValidProofHash(s string) bool {
	return proofHashRegex.MatchString(s)
}

// IsValidSessionID checks if a caller-supplied session ID is well-formed
func IsValidSessionID(s string) bool {
	return sessionIDRegex.MatchString(s)
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	s = strings.ReplaceAll(s, "\x00", "")
	return s
}

// ValidationError represents a single field validation failure
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Field + ": " + e.Message
	}
	return strings.Join(parts, "; ")
}

// Validate collects the non-nil results of a set of field checks
func Validate(checks ...*ValidationError) ValidationErrors {
	var errs ValidationErrors
	for _, c := range checks {
		if c != nil {
			errs = append(errs, *c)
		}
	}
	return errs
}

// Required checks that a field is non-empty
func Required(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// ValidSessionID checks a caller-supplied session identifier
func ValidSessionID(field, value string) *ValidationError {
	if !IsValidSessionID(value) {
		return &ValidationError{Field: field, Message: "must be 1-128 chars of [A-Za-z0-9._:-]"}
	}
	return nil
}

// ValidProofHash checks a SHA-256 hex digest
func ValidProofHash(field, value string) *ValidationError {
	if !IsValidProofHash(value) {
		return &ValidationError{Field: field, Message: "must be a 64-char lowercase hex SHA-256 digest"}
	}
	return nil
}
