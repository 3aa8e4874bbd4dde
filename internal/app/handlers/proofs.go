package handlers

import (
	"net/http"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/disclosure"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/verifier"
	"github.com/gin-gonic/gin"
)

type verifyIn struct {
	Proof              *disclosure.Proof    `json:"proof"`
	VerifierDid        string               `json:"verifierDid"`
	ExpectedChallenge  string               `json:"expectedChallenge,omitempty"`
	RequiredAttributes []string             `json:"requiredAttributes,omitempty"`
	RequiredClaims     []claims.Requirement `json:"requiredClaims,omitempty"`
}

// GenerateProof proves a request against the stored credential subject.
// POST /v1/proofs/generate
func (h *Handler) GenerateProof(c *gin.Context) {
	var req disclosure.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	subject, err := h.loadSubject(c, req.CredentialId)
	if err != nil {
		h.fail(c, err)
		return
	}

	proof, err := h.generator.Generate(c.Request.Context(), req, subject)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.logger.Infof("Generated %s proof %s for %s", proof.ProofType, proof.ProofId, req.VerifierDID)
	c.JSON(http.StatusOK, gin.H{"success": true, "proof": proof})
}

// VerifyProof checks a presented proof and spends its nullifier.
// POST /v1/proofs/verify
func (h *Handler) VerifyProof(c *gin.Context) {
	var in verifyIn
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}

	result := h.verifier.Verify(c.Request.Context(), in.Proof, in.VerifierDid, verifier.Options{
		ExpectedChallenge:    in.ExpectedChallenge,
		RequiredAttributes:   in.RequiredAttributes,
		ExpectedRequirements: in.RequiredClaims,
	})

	out := gin.H{"success": result.IsValid, "verification": result}
	status := http.StatusOK
	if result.Err != nil {
		status = statusFor(result.Err.Code)
		out["error"] = result.Error
	}
	c.JSON(status, out)
}
