package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/disclosure"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/privacy"
	reasoncodes "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/reason_codes"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const nonceBytes = 32

type createRequestIn struct {
	CredentialId   string               `json:"credentialId"`
	Purpose        string               `json:"purpose,omitempty"`
	RequiredClaims []claims.Requirement `json:"requiredClaims"`
	Context        string               `json:"context"`
	VerifierDID    string               `json:"verifierDID"`
	TtlSeconds     int                  `json:"ttlSeconds,omitempty"`
}

type createRequestOut struct {
	Request     disclosure.Request `json:"request"`
	Privacy     privacy.Assessment `json:"privacy"`
	QRPngBase64 string             `json:"qrPngBase64"`
}

type privacyScoreIn struct {
	RequiredClaims []claims.Requirement `json:"requiredClaims"`
}

func newNonce() (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func qrBase64(data []byte) (string, error) {
	png, err := qrcode.Encode(string(data), qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

// CreateRequest builds a disclosure request with a fresh challenge nonce and
// renders it as a QR code for the holder's wallet.
// POST /v1/requests
func (h *Handler) CreateRequest(c *gin.Context) {
	var in createRequestIn
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	if in.VerifierDID == "" {
		h.fail(c, disclosure.NewError(reasoncodes.ErrValidation, "verifierDID is required"))
		return
	}
	if err := claims.ValidateAll(in.RequiredClaims); err != nil {
		h.fail(c, disclosure.Wrap(reasoncodes.ErrValidation, err, "invalid required claims"))
		return
	}

	nonce, err := newNonce()
	if err != nil {
		h.fail(c, disclosure.Wrap(reasoncodes.ErrProvingBackend, err, "nonce generation failed"))
		return
	}

	ttl := h.requestTTL
	if in.TtlSeconds > 0 {
		ttl = time.Duration(in.TtlSeconds) * time.Second
	}

	req := disclosure.Request{
		CredentialId:   in.CredentialId,
		RequestId:      uuid.NewString(),
		Purpose:        in.Purpose,
		RequiredClaims: in.RequiredClaims,
		Context:        in.Context,
		ChallengeNonce: nonce,
		VerifierDID:    in.VerifierDID,
		ExpiresAt:      h.now().UTC().Add(ttl),
	}

	payload, err := json.Marshal(req)
	if err != nil {
		h.fail(c, disclosure.Wrap(reasoncodes.ErrValidation, err, "request is not serializable"))
		return
	}
	qr, err := qrBase64(payload)
	if err != nil {
		h.fail(c, disclosure.Wrap(reasoncodes.ErrValidation, err, "request too large for a QR code"))
		return
	}

	h.logger.Infof("Created disclosure request %s for %s", req.RequestId, req.VerifierDID)
	c.JSON(http.StatusCreated, createRequestOut{
		Request:     req,
		Privacy:     privacy.Assess(req.RequiredClaims),
		QRPngBase64: qr,
	})
}

// PrivacyScore rates how much a claim set would reveal.
// POST /v1/privacy/score
func (h *Handler) PrivacyScore(c *gin.Context) {
	var in privacyScoreIn
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, privacy.Assess(in.RequiredClaims))
}
