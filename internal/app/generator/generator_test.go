package generator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/backend"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/backend/backendtest"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/catalog"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/disclosure"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/generator"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/privacy"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/proofcache"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenarioNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newGenerator(t *testing.T, b backend.ProvingBackend, mutate ...func(*generator.Config)) *generator.Generator {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)

	cfg := generator.Config{
		Catalog: c,
		Backend: b,
		Logger:  logger.Nop(),
		Now:     func() time.Time { return scenarioNow },
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return generator.New(cfg)
}

func ageRequest(minimumAge float64, essential bool) disclosure.Request {
	return disclosure.Request{
		CredentialId:   "cred-1",
		RequestId:      "req-1",
		Purpose:        catalog.PurposeAgeVerification,
		RequiredClaims: []claims.Requirement{{Attribute: "age", Operation: claims.OpGreaterThan, Value: minimumAge, Essential: essential, Description: "age"}},
		ChallengeNonce: "nonce-1",
		VerifierDID:    "did:example:verifier",
		ExpiresAt:      scenarioNow.Add(time.Hour),
	}
}

var alice = claims.Subject{"birthDate": "1990-05-15", "address": map[string]any{"country": "DE"}, "salary": 75000}

func TestGenerateAgeScenarioA(t *testing.T) {
	g := newGenerator(t, backend.NewGnarkBackend(backend.GnarkOptions{AllowEphemeralSetup: true}, logger.Nop()))

	proof, err := g.Generate(context.Background(), ageRequest(18, true), alice)
	require.NoError(t, err)

	assert.NotEmpty(t, proof.ProofId)
	assert.Equal(t, catalog.PurposeAgeVerification, proof.ProofType)
	assert.Equal(t, disclosure.SchemeGroth16, proof.Metadata.Scheme)
	assert.Equal(t, "nonce-1", proof.Metadata.Challenge)
	assert.Equal(t, disclosure.CommitmentHash("cred-1", "req-1", catalog.PurposeAgeVerification), proof.CommitmentHash)
	assert.Len(t, proof.NullifierHash, 64)
	assert.Equal(t, "1", proof.PublicSignals[0])
	assert.Equal(t, disclosure.ProofBinding(proof).String(), proof.PublicSignals[1])
	assert.NotEmpty(t, proof.Metadata.RequirementsDigest)
	require.Len(t, proof.Claims, 1)
	assert.True(t, proof.Claims[0].Proven)
	assert.Equal(t, privacy.LevelFor(proof.Metadata.PrivacyScore), proof.Metadata.PrivacyLevel)
	assert.NotEmpty(t, proof.ProofData)
}

func TestGenerateAgeScenarioB(t *testing.T) {
	g := newGenerator(t, backendtest.NativeBackend{})

	proof, err := g.Generate(context.Background(), ageRequest(40, false), alice)
	require.NoError(t, err)
	require.Len(t, proof.Claims, 1)
	assert.False(t, proof.Claims[0].Proven)
	assert.Equal(t, "0", proof.PublicSignals[2])

	_, err = g.Generate(context.Background(), ageRequest(40, true), alice)
	assert.True(t, errors.Is(err, disclosure.ErrEssentialClaimUnsatisfied))
}

func TestGenerateScenarioC(t *testing.T) {
	g := newGenerator(t, backendtest.FailingBackend{Err: errors.New("must not be called")})

	req := ageRequest(18, true)
	req.Purpose = ""
	req.RequiredClaims = []claims.Requirement{
		{Attribute: "salary", Operation: claims.OpGreaterThan, Value: 50000.0},
		{Attribute: "employer", Operation: claims.OpEquals, Value: "ACME", Essential: true},
	}

	proof, err := g.Generate(context.Background(), req, alice)
	assert.Nil(t, proof)
	assert.True(t, errors.Is(err, disclosure.ErrEssentialClaimUnsatisfied))
	assert.Contains(t, disclosure.AsError(err, "").Details, "employer")
}

func TestGenerateRejectsExpiredRequestBeforeWitness(t *testing.T) {
	g := newGenerator(t, backendtest.FailingBackend{Err: errors.New("must not be called")})

	req := ageRequest(18, true)
	req.ExpiresAt = scenarioNow.Add(-time.Second)
	_, err := g.Generate(context.Background(), req, claims.Subject{})
	assert.True(t, errors.Is(err, disclosure.ErrValidation))

	req.ExpiresAt = scenarioNow
	_, err = g.Generate(context.Background(), req, claims.Subject{})
	assert.True(t, errors.Is(err, disclosure.ErrValidation))
}

func TestGenerateValidation(t *testing.T) {
	g := newGenerator(t, backendtest.NativeBackend{})

	tests := []struct {
		name   string
		mutate func(r *disclosure.Request)
		want   error
	}{
		{name: "no claims", mutate: func(r *disclosure.Request) { r.RequiredClaims = nil }, want: disclosure.ErrValidation},
		{name: "invalid range", mutate: func(r *disclosure.Request) {
			r.Purpose = catalog.PurposeRange
			r.RequiredClaims = []claims.Requirement{{Attribute: "salary", Operation: claims.OpRange, MinValue: 10.0, MaxValue: 1.0}}
		}, want: disclosure.ErrValidation},
		{name: "unknown purpose", mutate: func(r *disclosure.Request) { r.Purpose = "key-ownership" }, want: disclosure.ErrUnknownCircuit},
		{name: "unsupported attribute", mutate: func(r *disclosure.Request) {
			r.RequiredClaims[0].Attribute = "salary"
		}, want: disclosure.ErrValidation},
		{name: "too many claims", mutate: func(r *disclosure.Request) {
			r.RequiredClaims = append(r.RequiredClaims, r.RequiredClaims[0])
		}, want: disclosure.ErrValidation},
		{name: "missing verifier", mutate: func(r *disclosure.Request) { r.VerifierDID = "" }, want: disclosure.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ageRequest(18, true)
			tt.mutate(&req)
			_, err := g.Generate(context.Background(), req, alice)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestGenerateMissingEssentialAttribute(t *testing.T) {
	g := newGenerator(t, backendtest.NativeBackend{})

	_, err := g.Generate(context.Background(), ageRequest(18, true), claims.Subject{"name": "Bob"})
	assert.True(t, errors.Is(err, disclosure.ErrEssentialClaimUnsatisfied))

	_, err = g.Generate(context.Background(), ageRequest(18, false), claims.Subject{"name": "Bob"})
	assert.True(t, errors.Is(err, disclosure.ErrMissingAttribute))
}

func TestGenerateDevelopmentFallback(t *testing.T) {
	g := newGenerator(t, backendtest.NativeBackend{}, func(c *generator.Config) { c.DevelopmentFallback = true })

	proof, err := g.Generate(context.Background(), ageRequest(18, false), claims.Subject{"birthDate": "yesterday-ish"})
	require.NoError(t, err)
	assert.True(t, proof.Placeholder())
	assert.Equal(t, disclosure.SchemePlaceholder, proof.Metadata.Scheme)
	assert.Empty(t, proof.PublicSignals)
	assert.NotEmpty(t, proof.ProofData)
}

func TestGenerateProvingTimeout(t *testing.T) {
	g := newGenerator(t, backendtest.BlockingBackend{}, func(c *generator.Config) { c.ProvingTimeout = 20 * time.Millisecond })

	_, err := g.Generate(context.Background(), ageRequest(18, true), alice)
	require.True(t, errors.Is(err, disclosure.ErrProvingBackendTimeout))
	assert.True(t, disclosure.AsError(err, "").Retryable())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Generate(ctx, ageRequest(18, true), alice)
	assert.True(t, errors.Is(err, disclosure.ErrCanceled))
}

func TestGenerateBackendFailureIsGeneric(t *testing.T) {
	g := newGenerator(t, backendtest.FailingBackend{Err: errors.New("gpu on fire")})

	_, err := g.Generate(context.Background(), ageRequest(18, true), alice)
	require.True(t, errors.Is(err, disclosure.ErrProvingBackend))
	assert.NotContains(t, disclosure.AsError(err, "").Public(), "gpu")
}

func TestGenerateSelectiveDisclosure(t *testing.T) {
	g := newGenerator(t, backendtest.NativeBackend{})

	req := ageRequest(18, true)
	req.Purpose = catalog.PurposeSelectiveDisclosure
	req.RequiredClaims = []claims.Requirement{
		{Attribute: "salary", Operation: claims.OpRange, MinValue: 50000.0, MaxValue: 150000.0, Essential: true},
		{Attribute: "address.country", Operation: claims.OpEquals, Value: "FR"},
	}

	proof, err := g.Generate(context.Background(), req, alice)
	require.NoError(t, err)
	require.Len(t, proof.Claims, 2)
	assert.True(t, proof.Claims[0].Proven)
	assert.False(t, proof.Claims[1].Proven)
	assert.Equal(t, "1", proof.PublicSignals[0])
}

func TestGenerateUsesCache(t *testing.T) {
	cache := proofcache.New(proofcache.Options{})
	g := newGenerator(t, backendtest.NativeBackend{}, func(c *generator.Config) { c.Cache = cache })

	first, err := g.Generate(context.Background(), ageRequest(18, true), alice)
	require.NoError(t, err)
	second, err := g.Generate(context.Background(), ageRequest(18, true), alice)
	require.NoError(t, err)
	assert.Equal(t, first.ProofId, second.ProofId)
	assert.Equal(t, 1, cache.Len())

	other := ageRequest(21, true)
	third, err := g.Generate(context.Background(), other, alice)
	require.NoError(t, err)
	assert.NotEqual(t, first.ProofId, third.ProofId)
}

func TestGenerateCacheFollowsCredentialChanges(t *testing.T) {
	cache := proofcache.New(proofcache.Options{})
	g := newGenerator(t, backendtest.NativeBackend{}, func(c *generator.Config) { c.Cache = cache })

	adult, err := g.Generate(context.Background(), ageRequest(18, false), claims.Subject{"birthDate": "1990-05-15"})
	require.NoError(t, err)
	require.True(t, adult.Claims[0].Proven)

	minor, err := g.Generate(context.Background(), ageRequest(18, false), claims.Subject{"birthDate": "2015-05-15"})
	require.NoError(t, err)
	assert.NotEqual(t, adult.ProofId, minor.ProofId)
	assert.False(t, minor.Claims[0].Proven)
	assert.Equal(t, 2, cache.Len())
}
