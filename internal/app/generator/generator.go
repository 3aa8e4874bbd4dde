package generator

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/backend"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/catalog"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/disclosure"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/privacy"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/proofcache"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/witness"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	reasoncodes "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/reason_codes"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities"
	"github.com/google/uuid"
)

const DefaultProvingTimeout = 30 * time.Second

const nullifierSaltSize = 32

type Config struct {
	Catalog  *catalog.Catalog
	Witness  *witness.Registry
	Backend  backend.ProvingBackend
	Cache    *proofcache.Cache
	CacheTTL time.Duration

	ProvingTimeout time.Duration
	// DevelopmentFallback answers witness failures with a labeled,
	// non-cryptographic placeholder proof. Verifiers always reject those.
	DevelopmentFallback bool

	Logger *logger.Logger
	Now    func() time.Time
	Random io.Reader
}

// Generator turns a disclosure request and a credential subject into a proof.
// It keeps no state besides the optional cache.
type Generator struct {
	catalog  *catalog.Catalog
	witness  *witness.Registry
	backend  backend.ProvingBackend
	cache    *proofcache.Cache
	cacheTTL time.Duration
	timeout  time.Duration
	fallback bool
	logger   *logger.Logger
	now      func() time.Time
	random   io.Reader
}

func New(cfg Config) *Generator {
	g := &Generator{
		catalog:  cfg.Catalog,
		witness:  cfg.Witness,
		backend:  cfg.Backend,
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		timeout:  cfg.ProvingTimeout,
		fallback: cfg.DevelopmentFallback,
		logger:   logger.OrDefault(cfg.Logger).WithComponent("proof-generator"),
		now:      cfg.Now,
		random:   cfg.Random,
	}
	if g.timeout <= 0 {
		g.timeout = DefaultProvingTimeout
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.random == nil {
		g.random = rand.Reader
	}
	if g.witness == nil {
		g.witness = witness.NewRegistry(cfg.Catalog)
	}
	if g.fallback {
		g.logger.Warn("Development placeholder proofs are enabled, never expose this generator to real verifiers")
	}
	return g
}

// Generate validates req, builds the witness, proves it and packages the
// result. Every failure is a *disclosure.Error.
func (g *Generator) Generate(ctx context.Context, req disclosure.Request, subject claims.Subject) (*disclosure.Proof, error) {
	now := g.now().UTC()

	if err := validateRequest(req, now); err != nil {
		return nil, err
	}

	purpose := req.Purpose
	if purpose == "" {
		purpose = catalog.InferPurpose(req.RequiredClaims)
	}
	circuit, err := g.catalog.SelectCircuit(purpose)
	if err != nil {
		return nil, err
	}
	if err := validateForCircuit(req.RequiredClaims, circuit); err != nil {
		return nil, err
	}

	cacheKey := g.cacheKey(circuit, req, subject)
	if cached, ok := g.cached(cacheKey, now); ok {
		g.logger.Debugf("Serving cached %s proof %s", circuit.Name, cached.ProofId)
		return cached, nil
	}

	if req.RequestId == "" {
		req.RequestId = uuid.NewString()
	}

	if circuit.Generic() {
		if unmet := unmetEssentials(req.RequiredClaims, subject); len(unmet) > 0 {
			return nil, disclosure.NewError(reasoncodes.ErrEssentialClaimUnsatisfied, "essential claims are not satisfied").WithDetails(unmet...)
		}
	}

	reqDigest, err := disclosure.RequirementsDigest(req.RequiredClaims)
	if err != nil {
		return nil, disclosure.Wrap(reasoncodes.ErrValidation, err, "requirements cannot be encoded")
	}

	salt := make([]byte, nullifierSaltSize)
	if _, err := io.ReadFull(g.random, salt); err != nil {
		return nil, disclosure.Wrap(reasoncodes.ErrProvingBackend, err, "draw nullifier salt")
	}
	commitment := disclosure.CommitmentHash(req.CredentialId, req.RequestId, circuit.Name)
	nullifier := disclosure.NullifierHash(req.CredentialId, req.VerifierDID, circuit.Name, hex.EncodeToString(salt))

	proof := &disclosure.Proof{
		ProofId:        uuid.NewString(),
		ProofType:      circuit.Name,
		CircuitName:    circuit.Name,
		CommitmentHash: commitment,
		NullifierHash:  nullifier,
		Metadata:       g.metadata(req, circuit, reqDigest, now),
	}
	// proven bits are not part of the claims digest, so the labels can be bound before proving
	binding := disclosure.Binding(disclosure.BindingInput{
		Challenge:          proof.Metadata.Challenge,
		NullifierHash:      nullifier,
		CommitmentHash:     commitment,
		VerifierDid:        proof.Metadata.VerifierDid,
		ExpiresAt:          proof.Metadata.ExpiresAt,
		ClaimsDigest:       disclosure.ClaimsDigest(pendingClaims(req.RequiredClaims)),
		RequirementsDigest: reqDigest,
	})

	w, err := g.witness.Build(circuit.Name, subject, witness.Constraints{
		Requirements: req.RequiredClaims,
		Now:          now,
		Binding:      binding,
	})
	if err != nil {
		if errors.Is(err, disclosure.ErrMissingAttribute) && anyEssential(req.RequiredClaims) {
			return nil, disclosure.Wrap(reasoncodes.ErrEssentialClaimUnsatisfied, err, "essential claim cannot be evaluated").
				WithDetails(disclosure.AsError(err, reasoncodes.ErrMissingAttribute).Details...)
		}
		if g.fallback {
			g.logger.Warnf("Witness for %s failed (%v), issuing development placeholder", circuit.Name, err)
			g.placeholder(proof, req.RequiredClaims, subject)
			return proof, nil
		}
		return nil, disclosure.AsError(err, reasoncodes.ErrValidation)
	}

	// unmet essentials are rejected natively before proving
	_, evaluation, err := circuit.Schema.Complete(w.Inputs)
	if err != nil {
		return nil, disclosure.Wrap(reasoncodes.ErrTypeMismatch, err, "witness does not satisfy circuit constraints")
	}
	if !evaluation.Outcome {
		var unmet []string
		for i, r := range req.RequiredClaims {
			if r.Essential && !evaluation.Results[catalog.ProvenField(i)] {
				unmet = append(unmet, r.Label())
			}
		}
		return nil, disclosure.NewError(reasoncodes.ErrEssentialClaimUnsatisfied, "essential claims are not satisfied").WithDetails(unmet...)
	}

	out, err := g.prove(ctx, circuit, w)
	if err != nil {
		return nil, err
	}

	proven, err := provenClaims(circuit, req.RequiredClaims, out.PublicSignals)
	if err != nil {
		g.logger.Error(err, "Proving backend returned unexpected public signals")
		return nil, disclosure.Wrap(reasoncodes.ErrProvingBackend, err, "")
	}
	if unmet := unprovenEssentials(proven); len(unmet) > 0 {
		return nil, disclosure.NewError(reasoncodes.ErrEssentialClaimUnsatisfied, "essential claims are not satisfied").WithDetails(unmet...)
	}

	proof.Claims = proven
	proof.ProofData = out.Proof
	proof.PublicSignals = out.PublicSignals

	g.store(cacheKey, proof, now)
	g.logger.Infof("Generated %s proof %s for verifier %s", circuit.Name, proof.ProofId, req.VerifierDID)
	return proof, nil
}

type proveResult struct {
	out *backend.Output
	err error
}

// prove runs the backend on its own goroutine so a slow proof can be
// abandoned at the timeout.
func (g *Generator) prove(ctx context.Context, circuit *catalog.Circuit, w *witness.Witness) (*backend.Output, error) {
	proveCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan proveResult, 1)
	go func() {
		out, err := g.backend.FullProve(proveCtx, circuit, w)
		done <- proveResult{out: out, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil {
			return r.out, nil
		}
		if errors.Is(r.err, context.DeadlineExceeded) {
			return nil, disclosure.Wrap(reasoncodes.ErrProvingBackendTimeout, r.err, "")
		}
		if errors.Is(r.err, context.Canceled) {
			return nil, disclosure.Wrap(reasoncodes.ErrCanceled, r.err, "proof generation canceled")
		}
		g.logger.Errorf(r.err, "Proving backend failed for circuit %s", circuit.Name)
		return nil, disclosure.Wrap(reasoncodes.ErrProvingBackend, r.err, "")
	case <-proveCtx.Done():
		if ctx.Err() != nil {
			return nil, disclosure.Wrap(reasoncodes.ErrCanceled, ctx.Err(), "proof generation canceled")
		}
		g.logger.Warnf("Proving %s exceeded %s", circuit.Name, g.timeout)
		return nil, disclosure.Wrap(reasoncodes.ErrProvingBackendTimeout, proveCtx.Err(), "")
	}
}

func (g *Generator) metadata(req disclosure.Request, circuit *catalog.Circuit, reqDigest string, now time.Time) disclosure.Metadata {
	assessment := privacy.Assess(req.RequiredClaims)
	return disclosure.Metadata{
		PrivacyLevel:       assessment.Level,
		PrivacyScore:       assessment.Score,
		Scheme:             disclosure.SchemeGroth16,
		Challenge:          req.ChallengeNonce,
		VerifierDid:        req.VerifierDID,
		Purpose:            circuit.Name,
		RequestId:          req.RequestId,
		RequirementsDigest: reqDigest,
		Context:            req.Context,
		CreatedAt:          now,
		ExpiresAt:          req.ExpiresAt.UTC(),
	}
}

// placeholder fills proof with deterministic stand-in data. The claims are
// evaluated natively and prove nothing.
func (g *Generator) placeholder(proof *disclosure.Proof, reqs []claims.Requirement, subject claims.Subject) {
	proof.Metadata.Scheme = disclosure.SchemePlaceholder
	proof.Claims = pendingClaims(reqs)
	for i, r := range reqs {
		proof.Claims[i].Proven = r.Holds(subject)
	}
	sum := sha256.Sum256([]byte(disclosure.SchemePlaceholder + proof.CommitmentHash + proof.NullifierHash))
	proof.ProofData = sum[:]
}

// cacheParams keys cached proofs. The subject is part of the key so an
// updated credential never serves a proof made from its old values.
type cacheParams struct {
	Request disclosure.Request `json:"request"`
	Subject claims.Subject     `json:"subject"`
}

func (g *Generator) cacheKey(circuit *catalog.Circuit, req disclosure.Request, subject claims.Subject) string {
	if g.cache == nil || !proofcache.Cacheable(circuit.Name) {
		return ""
	}
	key, err := proofcache.Key(circuit.Name, cacheParams{Request: req, Subject: subject})
	if err != nil {
		g.logger.Debugf("Request not cacheable: %v", err)
		return ""
	}
	return key
}

func (g *Generator) cached(key string, now time.Time) (*disclosure.Proof, bool) {
	if key == "" {
		return nil, false
	}
	proof, ok := g.cache.Get(key)
	if !ok || !proof.Metadata.ExpiresAt.After(now) {
		return nil, false
	}
	return proof, true
}

func (g *Generator) store(key string, proof *disclosure.Proof, now time.Time) {
	if key == "" {
		return
	}
	ttl := g.cacheTTL
	if remaining := proof.Metadata.ExpiresAt.Sub(now); ttl <= 0 || remaining < ttl {
		ttl = remaining
	}
	if err := g.cache.Put(key, proof, ttl); err != nil {
		g.logger.Debugf("Proof %s not cached: %v", proof.ProofId, err)
	}
}

func validateRequest(req disclosure.Request, now time.Time) error {
	if req.CredentialId == "" {
		return disclosure.NewError(reasoncodes.ErrValidation, "credentialId is required")
	}
	if req.VerifierDID == "" {
		return disclosure.NewError(reasoncodes.ErrValidation, "verifierDID is required")
	}
	if !req.ExpiresAt.After(now) {
		return disclosure.NewError(reasoncodes.ErrValidation, "request expired at %s", req.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if err := claims.ValidateAll(req.RequiredClaims); err != nil {
		var ve *claims.ValidationError
		if errors.As(err, &ve) {
			return disclosure.Wrap(reasoncodes.ErrValidation, err, "").WithDetails(ve.Attribute)
		}
		return disclosure.Wrap(reasoncodes.ErrValidation, err, "")
	}
	return nil
}

func validateForCircuit(reqs []claims.Requirement, circuit *catalog.Circuit) error {
	if len(reqs) > circuit.MaxClaims {
		return disclosure.NewError(reasoncodes.ErrValidation, "circuit %s proves at most %d claims, got %d", circuit.Name, circuit.MaxClaims, len(reqs))
	}
	for _, r := range reqs {
		if !circuit.Supports(r.Attribute) {
			return disclosure.NewError(reasoncodes.ErrValidation, "circuit %s does not support attribute '%s'", circuit.Name, r.Attribute).WithDetails(r.Attribute)
		}
	}
	return nil
}

func unmetEssentials(reqs []claims.Requirement, subject claims.Subject) []string {
	var unmet []string
	for _, r := range reqs {
		if r.Essential && !r.Holds(subject) {
			unmet = append(unmet, r.Label())
		}
	}
	return unmet
}

func anyEssential(reqs []claims.Requirement) bool {
	for _, r := range reqs {
		if r.Essential {
			return true
		}
	}
	return false
}

// pendingClaims lists the claims of reqs with nothing proven yet.
func pendingClaims(reqs []claims.Requirement) []disclosure.ProvenClaim {
	return utilities.Map(reqs, func(r claims.Requirement) disclosure.ProvenClaim {
		return disclosure.ProvenClaim{
			Attribute:   r.Attribute,
			Description: r.Label(),
			Essential:   r.Essential,
		}
	})
}

// provenClaims reads the per-claim bits out of the public signals.
func provenClaims(circuit *catalog.Circuit, reqs []claims.Requirement, signals []string) ([]disclosure.ProvenClaim, error) {
	out := pendingClaims(reqs)
	for i := range reqs {
		idx, ok := circuit.SignalIndex(catalog.ProvenField(i))
		if !ok || idx >= len(signals) {
			return nil, fmt.Errorf("circuit %s has no signal for claim %d", circuit.Name, i)
		}
		out[i].Proven = signals[idx] == "1"
	}
	return out, nil
}

func unprovenEssentials(proven []disclosure.ProvenClaim) []string {
	var unmet []string
	for _, c := range proven {
		if c.Essential && !c.Proven {
			unmet = append(unmet, c.Description)
		}
	}
	return unmet
}
