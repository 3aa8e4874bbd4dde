package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/backend"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/catalog"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/credentials"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/disclosure"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/generator"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/verifier"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	reasoncodes "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/reason_codes"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/rest"
	"github.com/gin-gonic/gin"
)

const (
	apiGroup          = "v1"
	DefaultRequestTTL = 5 * time.Minute
)

type Config struct {
	Generator   *generator.Generator
	Verifier    *verifier.Verifier
	Catalog     *catalog.Catalog
	Backend     backend.ProvingBackend
	Credentials credentials.Store
	RequestTTL  time.Duration
	Logger      *logger.Logger
	Now         func() time.Time
}

type Handler struct {
	generator   *generator.Generator
	verifier    *verifier.Verifier
	catalog     *catalog.Catalog
	backend     backend.ProvingBackend
	credentials credentials.Store
	requestTTL  time.Duration
	logger      *logger.Logger
	now         func() time.Time
}

func NewHandler(cfg Config) *Handler {
	h := &Handler{
		generator:   cfg.Generator,
		verifier:    cfg.Verifier,
		catalog:     cfg.Catalog,
		backend:     cfg.Backend,
		credentials: cfg.Credentials,
		requestTTL:  cfg.RequestTTL,
		logger:      logger.OrDefault(cfg.Logger).WithComponent("http"),
		now:         cfg.Now,
	}
	if h.requestTTL <= 0 {
		h.requestTTL = DefaultRequestTTL
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

func (h *Handler) Routes() []rest.Route {
	return []rest.Route{
		rest.NewRoute(rest.POST, apiGroup, "proofs/generate", h.GenerateProof),
		rest.NewRoute(rest.POST, apiGroup, "proofs/verify", h.VerifyProof),
		rest.NewRoute(rest.POST, apiGroup, "requests", h.CreateRequest),
		rest.NewRoute(rest.POST, apiGroup, "privacy/score", h.PrivacyScore),
		rest.NewRoute(rest.GET, apiGroup, "circuits", h.ListCircuits),
		rest.NewRoute(rest.GET, apiGroup, "artifacts/:circuit/vk", h.VerificationKey),
		rest.NewRoute(rest.PUT, apiGroup, "credentials/:id", h.PutCredential),
	}
}

func statusFor(code reasoncodes.ReasonCode) int {
	switch code {
	case reasoncodes.ErrValidation,
		reasoncodes.ErrMissingAttribute,
		reasoncodes.ErrTypeMismatch,
		reasoncodes.ErrUnsupportedPurpose,
		reasoncodes.ErrInvalidStructure,
		reasoncodes.ErrUnmarshal:
		return http.StatusBadRequest
	case reasoncodes.ErrUnknownCircuit, reasoncodes.ErrCredentialNotFound:
		return http.StatusNotFound
	case reasoncodes.ErrProofReplayed:
		return http.StatusConflict
	case reasoncodes.ErrProvingBackend, reasoncodes.ErrLedger:
		return http.StatusServiceUnavailable
	case reasoncodes.ErrProvingBackendTimeout:
		return http.StatusGatewayTimeout
	case reasoncodes.ErrCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusUnprocessableEntity
	}
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.logger.Debugf("Rejected malformed body on %s: %v", c.FullPath(), err)
	de := disclosure.NewError(reasoncodes.ErrUnmarshal, "malformed request body")
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": de.Body()})
}

func (h *Handler) fail(c *gin.Context, err error) {
	de := disclosure.AsError(err, reasoncodes.ErrProvingBackend)
	status := statusFor(de.Code)
	if status >= http.StatusInternalServerError {
		h.logger.Errorf(de, "%s %s failed", c.Request.Method, c.FullPath())
	}
	c.JSON(status, gin.H{"success": false, "error": de.Body()})
}

func (h *Handler) loadSubject(c *gin.Context, credentialID string) (claims.Subject, error) {
	subject, err := h.credentials.GetCredentialSubject(c.Request.Context(), credentialID)
	if errors.Is(err, credentials.ErrNotFound) {
		return nil, disclosure.NewError(reasoncodes.ErrCredentialNotFound, "credential %s not found", credentialID)
	}
	if err != nil {
		return nil, disclosure.Wrap(reasoncodes.ErrLedger, err, "credential store unavailable")
	}
	return subject, nil
}
