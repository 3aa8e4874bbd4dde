package witness_test

import (
	"bytes"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/catalog"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/disclosure"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/witness"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/zkp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newRegistry(t *testing.T, opts ...witness.Option) (*witness.Registry, *catalog.Catalog) {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return witness.NewRegistry(c, opts...), c
}

func constraints(reqs ...claims.Requirement) witness.Constraints {
	return witness.Constraints{Requirements: reqs, Now: fixedNow, Binding: big.NewInt(42)}
}

// evaluate runs the circuit's predicates natively over a built witness.
func evaluate(t *testing.T, c *catalog.Catalog, w *witness.Witness) *zkp.Evaluation {
	t.Helper()
	circuit, err := c.SelectCircuit(w.Purpose)
	require.NoError(t, err)
	_, evaluation, err := circuit.Schema.Complete(w.Inputs)
	require.NoError(t, err)
	return evaluation
}

func TestAgeVerificationWitness(t *testing.T) {
	registry, c := newRegistry(t)
	adult := claims.Requirement{Attribute: "age", Operation: claims.OpGreaterThan, Value: 18.0, Essential: true}

	w, err := registry.Build(catalog.PurposeAgeVerification, claims.Subject{"birthDate": "1990-01-01"}, constraints(adult))
	require.NoError(t, err)

	assert.Equal(t, catalog.PurposeAgeVerification, w.Purpose)
	assert.Equal(t, zkp.EncodeTimestamp(fixedNow), w.Inputs["current_time"])
	assert.Equal(t, int64(18*witness.SecondsPerYear), w.Inputs["min_age_seconds"])
	assert.Equal(t, zkp.EncodeTimestamp(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)), w.Inputs["birth_time"])
	assert.Equal(t, true, w.Inputs[catalog.EssentialField(0)])
	assert.True(t, evaluate(t, c, w).Outcome)

	minor, err := registry.Build(catalog.PurposeAgeVerification, claims.Subject{"dateOfBirth": "2015-03-04"}, constraints(adult))
	require.NoError(t, err)
	evaluation := evaluate(t, c, minor)
	assert.False(t, evaluation.Outcome)
	assert.False(t, evaluation.Results[catalog.ProvenField(0)])
}

func TestAgeVerificationErrors(t *testing.T) {
	registry, _ := newRegistry(t)
	adult := claims.Requirement{Attribute: "age", Operation: claims.OpGreaterThan, Value: 18.0, Essential: true}

	_, err := registry.Build(catalog.PurposeAgeVerification, claims.Subject{"name": "Alice"}, constraints(adult))
	assert.True(t, errors.Is(err, disclosure.ErrMissingAttribute))

	_, err = registry.Build(catalog.PurposeAgeVerification, claims.Subject{"birthDate": "not a date"}, constraints(adult))
	assert.True(t, errors.Is(err, disclosure.ErrTypeMismatch))

	_, err = registry.Build(catalog.PurposeAgeVerification, claims.Subject{"birthDate": "1990-01-01"}, witness.Constraints{
		Requirements: []claims.Requirement{adult},
		Now:          fixedNow,
	})
	assert.True(t, errors.Is(err, disclosure.ErrValidation))
}

func TestJurisdictionWitness(t *testing.T) {
	registry, c := newRegistry(t)
	eu := claims.Requirement{Attribute: "country", Operation: claims.OpEquals, Value: []any{"DE", "FR", "NL"}, Essential: true}

	w, err := registry.Build(catalog.PurposeJurisdiction, claims.Subject{"address": map[string]any{"country": "fr"}}, constraints(eu))
	require.NoError(t, err)
	assert.True(t, evaluate(t, c, w).Outcome)
	assert.Equal(t, w.Inputs["allowed_0"], w.Inputs["allowed_7"])

	w, err = registry.Build(catalog.PurposeJurisdiction, claims.Subject{"country": "US"}, constraints(eu))
	require.NoError(t, err)
	assert.False(t, evaluate(t, c, w).Outcome)

	tooMany := eu
	tooMany.Value = []any{"A", "B", "C", "D", "E", "F", "G", "H", "I"}
	_, err = registry.Build(catalog.PurposeJurisdiction, claims.Subject{"country": "A"}, constraints(tooMany))
	assert.True(t, errors.Is(err, disclosure.ErrTypeMismatch))
}

func TestAccreditedInvestorWitness(t *testing.T) {
	registry, c := newRegistry(t)
	req := claims.Requirement{Attribute: "income", Operation: claims.OpGreaterThan, Value: 150000.0, Essential: true}

	w, err := registry.Build(catalog.PurposeAccreditedInvestor, claims.Subject{"income": 160000}, constraints(req))
	require.NoError(t, err)
	assert.Equal(t, int64(150000), w.Inputs["income_threshold"])
	assert.Equal(t, int64(witness.DefaultNetWorthThreshold), w.Inputs["net_worth_threshold"])
	assert.True(t, evaluate(t, c, w).Outcome)

	w, err = registry.Build(catalog.PurposeAccreditedInvestor, claims.Subject{"income": 10, "netWorth": 2_000_000}, constraints(req))
	require.NoError(t, err)
	assert.True(t, evaluate(t, c, w).Outcome)

	_, err = registry.Build(catalog.PurposeAccreditedInvestor, claims.Subject{"name": "Bob"}, constraints(req))
	assert.True(t, errors.Is(err, disclosure.ErrMissingAttribute))

	_, err = registry.Build(catalog.PurposeAccreditedInvestor, claims.Subject{"income": "lots"}, constraints(req))
	assert.True(t, errors.Is(err, disclosure.ErrTypeMismatch))
}

func TestAntiSybilWitness(t *testing.T) {
	registry, c := newRegistry(t)
	req := claims.Requirement{Attribute: "personhood", Operation: claims.OpExists, Essential: true}

	w, err := registry.Build(catalog.PurposeAntiSybil, claims.Subject{"personhoodId": "did:example:123", "verificationLevel": 2}, constraints(req))
	require.NoError(t, err)
	assert.Equal(t, int64(witness.DefaultMinimumLevel), w.Inputs["min_level"])
	assert.True(t, evaluate(t, c, w).Outcome)

	_, err = registry.Build(catalog.PurposeAntiSybil, claims.Subject{"personhoodId": "did:example:123", "verificationLevel": 2.5}, constraints(req))
	assert.True(t, errors.Is(err, disclosure.ErrTypeMismatch))

	_, err = registry.Build(catalog.PurposeAntiSybil, claims.Subject{"verificationLevel": 2}, constraints(req))
	assert.True(t, errors.Is(err, disclosure.ErrMissingAttribute))
}

func TestFreshSaltPerBuild(t *testing.T) {
	registry, _ := newRegistry(t)
	adult := claims.Requirement{Attribute: "age", Operation: claims.OpGreaterThan, Value: 18.0}
	subject := claims.Subject{"birthDate": "1990-01-01"}

	first, err := registry.Build(catalog.PurposeAgeVerification, subject, constraints(adult))
	require.NoError(t, err)
	second, err := registry.Build(catalog.PurposeAgeVerification, subject, constraints(adult))
	require.NoError(t, err)

	assert.NotEqual(t, first.Inputs[catalog.SaltField], second.Inputs[catalog.SaltField])
	assert.NotEqual(t, first.Inputs[catalog.CommitmentField], second.Inputs[catalog.CommitmentField])
	assert.Equal(t, first.Inputs["birth_time"], second.Inputs["birth_time"])

	seeded, _ := newRegistry(t, witness.WithRandom(bytes.NewReader(make([]byte, 64))))
	w, err := seeded.Build(catalog.PurposeAgeVerification, subject, constraints(adult))
	require.NoError(t, err)
	assert.Equal(t, 0, w.Inputs[catalog.SaltField].(*big.Int).Sign())

	_, err = seeded.Build(catalog.PurposeAgeVerification, subject, constraints(adult))
	require.NoError(t, err)
	_, err = seeded.Build(catalog.PurposeAgeVerification, subject, constraints(adult))
	assert.Error(t, err)
}

func TestUnsupportedPurpose(t *testing.T) {
	registry, _ := newRegistry(t)
	req := claims.Requirement{Attribute: "key", Operation: claims.OpExists}

	_, err := registry.Build("key-ownership", claims.Subject{"key": "abc"}, constraints(req))
	assert.True(t, errors.Is(err, disclosure.ErrUnsupportedPurpose))
}

func TestClaimSlotWitness(t *testing.T) {
	registry, c := newRegistry(t)
	subject := claims.Subject{
		"salary":   75000,
		"roles":    []any{"admin", "auditor"},
		"verified": true,
	}

	reqs := []claims.Requirement{
		{Attribute: "salary", Operation: claims.OpRange, MinValue: 50000.0, MaxValue: 150000.0, Essential: true},
		{Attribute: "roles", Operation: claims.OpContains, Value: "auditor"},
		{Attribute: "verified", Operation: claims.OpEquals, Value: true},
		{Attribute: "nickname", Operation: claims.OpExists},
	}

	w, err := registry.Build(catalog.PurposeSelectiveDisclosure, subject, constraints(reqs...))
	require.NoError(t, err)

	evaluation := evaluate(t, c, w)
	assert.True(t, evaluation.Outcome)
	assert.True(t, evaluation.Results[catalog.ProvenField(0)])
	assert.True(t, evaluation.Results[catalog.ProvenField(1)])
	assert.True(t, evaluation.Results[catalog.ProvenField(2)])
	assert.False(t, evaluation.Results[catalog.ProvenField(3)])
	assert.Equal(t, false, w.Inputs[catalog.SlotActiveField(3)])

	reqs[0].MinValue = 80000.0
	w, err = registry.Build(catalog.PurposeSelectiveDisclosure, subject, constraints(reqs...))
	require.NoError(t, err)
	evaluation = evaluate(t, c, w)
	assert.False(t, evaluation.Outcome)
	assert.False(t, evaluation.Results[catalog.ProvenField(0)])
}

func TestClaimSlotUnusedSlots(t *testing.T) {
	registry, c := newRegistry(t)
	req := claims.Requirement{Attribute: "joined", Operation: claims.OpLessThan, Value: "2020-01-01", Essential: true}

	w, err := registry.Build(catalog.PurposeSelectiveDisclosure, claims.Subject{"joined": "2018-05-05"}, constraints(req))
	require.NoError(t, err)
	assert.True(t, evaluate(t, c, w).Outcome)

	for i := 1; i < 4; i++ {
		assert.Equal(t, zkp.SlotOpNone, w.Inputs[catalog.SlotOpField(i)])
		assert.Equal(t, false, w.Inputs[catalog.SlotActiveField(i)])
	}
}

func TestClaimSlotErrors(t *testing.T) {
	registry, _ := newRegistry(t)

	missing := claims.Requirement{Attribute: "salary", Operation: claims.OpGreaterThan, Value: 1.0, Essential: true}
	_, err := registry.Build(catalog.PurposeRange, claims.Subject{}, constraints(missing))
	assert.True(t, errors.Is(err, disclosure.ErrMissingAttribute))

	mismatch := claims.Requirement{Attribute: "salary", Operation: claims.OpGreaterThan, Value: 1.0, Essential: true}
	_, err = registry.Build(catalog.PurposeRange, claims.Subject{"salary": "plenty"}, constraints(mismatch))
	assert.True(t, errors.Is(err, disclosure.ErrTypeMismatch))

	two := []claims.Requirement{missing, missing}
	_, err = registry.Build(catalog.PurposeRange, claims.Subject{"salary": 2}, constraints(two...))
	assert.True(t, errors.Is(err, disclosure.ErrTypeMismatch))
}
