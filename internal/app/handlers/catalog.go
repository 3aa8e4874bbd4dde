package handlers

import (
	"net/http"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/disclosure"
	reasoncodes "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/reason_codes"
	"github.com/gin-gonic/gin"
)

// GET /v1/circuits
func (h *Handler) ListCircuits(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Descriptors())
}

// VerificationKey serves the groth16 verification key of one circuit.
// GET /v1/artifacts/:circuit/vk
func (h *Handler) VerificationKey(c *gin.Context) {
	circuit, err := h.catalog.SelectCircuit(c.Param("circuit"))
	if err != nil {
		h.fail(c, err)
		return
	}

	vk, err := h.backend.VerificationKey(circuit)
	if err != nil {
		h.fail(c, disclosure.Wrap(reasoncodes.ErrProvingBackend, err, ""))
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", vk)
}

// PUT /v1/credentials/:id
func (h *Handler) PutCredential(c *gin.Context) {
	var subject claims.Subject
	if err := c.ShouldBindJSON(&subject); err != nil || subject == nil {
		h.badRequest(c, err)
		return
	}

	if err := h.credentials.Put(c.Request.Context(), c.Param("id"), subject); err != nil {
		h.fail(c, disclosure.Wrap(reasoncodes.ErrLedger, err, "credential store unavailable"))
		return
	}
	c.Status(http.StatusNoContent)
}
