package proof

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/consentry/consentry/internal/consent"
	"github.com/consentry/consentry/internal/organizations"
	"github.com/consentry/consentry/internal/validation"
)

const maxBatchSize = 100

// Handler exposes the proof ledger over HTTP.
type Handler struct {
	ledger *Ledger
}

// NewHandler creates a new proof handler.
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// RegisterRoutes registers proof routes. The group must already carry
// organization auth.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	pr := r.Group("/proof")
	{
		pr.POST("/create", h.createProof)
		pr.POST("/verify", h.verifyProof)
		pr.GET("/certificate/:hash", h.getCertificate)
		pr.POST("/batch-verify", h.batchVerify)
	}
}

type createProofRequest struct {
	ConsentID string `json:"consentId"`
}

func (h *Handler) createProof(c *gin.Context) {
	var req createProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if errs := validation.Validate(validation.Required("consentId", req.ConsentID)); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": errs.Error()})
		return
	}

	proof, err := h.ledger.Create(c.Request.Context(), organizations.OrgID(c), req.ConsentID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, proof)
}

type verifyProofRequest struct {
	ProofHash string `json:"proofHash"`
}

func (h *Handler) verifyProof(c *gin.Context) {
	var req verifyProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if errs := validation.Validate(validation.ValidProofHash("proofHash", req.ProofHash)); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": errs.Error()})
		return
	}

	verified, err := h.ledger.Verify(c.Request.Context(), organizations.OrgID(c), req.ProofHash)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proofHash": req.ProofHash, "verified": verified})
}

func (h *Handler) getCertificate(c *gin.Context) {
	hash := c.Param("hash")
	if !validation.IsValidProofHash(hash) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": "invalid proof hash"})
		return
	}

	cert, err := h.ledger.Certificate(c.Request.Context(), organizations.OrgID(c), hash)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cert)
}

type batchVerifyRequest struct {
	ProofHashes []string `json:"proofHashes"`
}

func (h *Handler) batchVerify(c *gin.Context) {
	var req batchVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if len(req.ProofHashes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": "proofHashes is required"})
		return
	}
	if len(req.ProofHashes) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": "too many hashes in one batch"})
		return
	}

	results := h.ledger.BatchVerify(c.Request.Context(), organizations.OrgID(c), req.ProofHashes)
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrProofNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "proof not found"})
	case errors.Is(err, consent.ErrConsentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "consent record not found"})
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "request failed"})
	}
}
