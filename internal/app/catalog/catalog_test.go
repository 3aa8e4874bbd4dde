package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/catalog"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/disclosure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	names := []string{}
	for _, d := range c.Descriptors() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{
		catalog.PurposeAccreditedInvestor,
		catalog.PurposeAgeVerification,
		catalog.PurposeAntiSybil,
		catalog.PurposeJurisdiction,
		catalog.PurposeMembership,
		catalog.PurposeRange,
		catalog.PurposeSelectiveDisclosure,
	}, names)

	for _, circuit := range c.Circuits() {
		t.Run(circuit.Name, func(t *testing.T) {
			idx, ok := circuit.SignalIndex(catalog.OutcomeField)
			require.True(t, ok)
			assert.Equal(t, 0, idx)

			idx, ok = circuit.SignalIndex(catalog.BindingField)
			require.True(t, ok)
			assert.Equal(t, 1, idx)

			for i := 0; i < circuit.MaxClaims; i++ {
				idx, ok = circuit.SignalIndex(catalog.ProvenField(i))
				require.True(t, ok)
				assert.Equal(t, 2+2*i, idx)
			}
		})
	}
}

func TestSelectCircuit(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	circuit, err := c.SelectCircuit(" Age-Verification ")
	require.NoError(t, err)
	assert.Equal(t, catalog.PurposeAgeVerification, circuit.Name)
	assert.True(t, circuit.Supports("birthDate"))
	assert.False(t, circuit.Supports("salary"))

	generic, err := c.SelectCircuit(catalog.PurposeSelectiveDisclosure)
	require.NoError(t, err)
	assert.True(t, generic.Generic())
	assert.True(t, generic.Supports("anything.at.all"))
	assert.Equal(t, 4, generic.MaxClaims)

	_, err = c.SelectCircuit("key-ownership")
	assert.True(t, errors.Is(err, disclosure.ErrUnknownCircuit))
}

func TestInferPurpose(t *testing.T) {
	tests := []struct {
		name string
		reqs []claims.Requirement
		want string
	}{
		{name: "age", reqs: []claims.Requirement{{Attribute: "age", Operation: claims.OpGreaterThan, Value: 18.0}}, want: catalog.PurposeAgeVerification},
		{name: "country", reqs: []claims.Requirement{{Attribute: "country", Operation: claims.OpEquals, Value: "DE"}}, want: catalog.PurposeJurisdiction},
		{name: "income", reqs: []claims.Requirement{{Attribute: "income", Operation: claims.OpGreaterThan, Value: 1.0}}, want: catalog.PurposeAccreditedInvestor},
		{name: "personhood", reqs: []claims.Requirement{{Attribute: "personhood", Operation: claims.OpExists}}, want: catalog.PurposeAntiSybil},
		{name: "range", reqs: []claims.Requirement{{Attribute: "salary", Operation: claims.OpRange, MinValue: 1.0, MaxValue: 2.0}}, want: catalog.PurposeRange},
		{name: "contains", reqs: []claims.Requirement{{Attribute: "roles", Operation: claims.OpContains, Value: "x"}}, want: catalog.PurposeMembership},
		{name: "many", reqs: []claims.Requirement{
			{Attribute: "age", Operation: claims.OpGreaterThan, Value: 18.0},
			{Attribute: "country", Operation: claims.OpEquals, Value: "DE"},
		}, want: catalog.PurposeSelectiveDisclosure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.InferPurpose(tt.reqs))
		})
	}
}

func TestLoadCatalogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	content := `{"circuits": [
		{"name": "age-verification", "provingKeyPath": "/keys/age.pk", "verificationKeyPath": "/keys/age.vk"},
		{"name": "employment", "description": "Employment claims", "slots": 2}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := catalog.Load(path)
	require.NoError(t, err)

	age, err := c.SelectCircuit(catalog.PurposeAgeVerification)
	require.NoError(t, err)
	assert.Equal(t, "/keys/age.vk", age.VerificationKeyPath)
	assert.NotNil(t, age.Schema)

	employment, err := c.SelectCircuit("employment")
	require.NoError(t, err)
	assert.Equal(t, 2, employment.MaxClaims)
	assert.True(t, employment.Generic())
	assert.Equal(t, []string{catalog.AnyClaim}, employment.SupportedClaims)

	_, err = catalog.Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
