package claims_test

import (
	"errors"
	"testing"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequirementValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     claims.Requirement
		wantErr bool
	}{
		{name: "range ok", req: claims.Requirement{Attribute: "salary", Operation: claims.OpRange, MinValue: 50000.0, MaxValue: 150000.0}},
		{name: "range equal bounds", req: claims.Requirement{Attribute: "salary", Operation: claims.OpRange, MinValue: 5.0, MaxValue: 5.0}},
		{name: "range missing max", req: claims.Requirement{Attribute: "salary", Operation: claims.OpRange, MinValue: 1.0}, wantErr: true},
		{name: "range inverted", req: claims.Requirement{Attribute: "salary", Operation: claims.OpRange, MinValue: 10.0, MaxValue: 1.0}, wantErr: true},
		{name: "range date bounds", req: claims.Requirement{Attribute: "issued", Operation: claims.OpRange, MinValue: "2020-01-01", MaxValue: "2021-01-01"}},
		{name: "range mixed bounds", req: claims.Requirement{Attribute: "issued", Operation: claims.OpRange, MinValue: "2020-01-01", MaxValue: 3.0}, wantErr: true},
		{name: "equals needs value", req: claims.Requirement{Attribute: "country", Operation: claims.OpEquals}, wantErr: true},
		{name: "contains ok", req: claims.Requirement{Attribute: "roles", Operation: claims.OpContains, Value: "admin"}},
		{name: "greater than ok", req: claims.Requirement{Attribute: "age", Operation: claims.OpGreaterThan, Value: 18.0}},
		{name: "greater than text", req: claims.Requirement{Attribute: "age", Operation: claims.OpGreaterThan, Value: "old"}, wantErr: true},
		{name: "exists ok", req: claims.Requirement{Attribute: "email", Operation: claims.OpExists}},
		{name: "exists with value", req: claims.Requirement{Attribute: "email", Operation: claims.OpExists, Value: "x"}, wantErr: true},
		{name: "no attribute", req: claims.Requirement{Operation: claims.OpExists}, wantErr: true},
		{name: "unknown operation", req: claims.Requirement{Attribute: "a", Operation: "near"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var validationErr *claims.ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.req.Attribute, validationErr.Attribute)
		})
	}
}

func TestRangeBoundaries(t *testing.T) {
	req := claims.Requirement{Attribute: "salary", Operation: claims.OpRange, MinValue: 50000.0, MaxValue: 150000.0}

	assert.False(t, req.Evaluate(claims.Number(49999)))
	assert.True(t, req.Evaluate(claims.Number(50000)))
	assert.True(t, req.Evaluate(claims.Number(100000)))
	assert.True(t, req.Evaluate(claims.Number(150000)))
	assert.False(t, req.Evaluate(claims.Number(150001)))
	assert.False(t, req.Evaluate(claims.Missing()))
	assert.True(t, req.Evaluate(claims.Text("75000")))
}

func TestEvaluateOperations(t *testing.T) {
	subject := claims.Subject{
		"birthDate": "1990-05-15",
		"country":   " DE ",
		"roles":     []any{"member", "admin"},
		"bio":       "works at acme corp",
		"verified":  true,
		"email":     "",
		"employment": map[string]any{
			"salary": 82000.0,
		},
	}

	tests := []struct {
		name string
		req  claims.Requirement
		want bool
	}{
		{name: "equals trimmed", req: claims.Requirement{Attribute: "country", Operation: claims.OpEquals, Value: "DE"}, want: true},
		{name: "equals case sensitive", req: claims.Requirement{Attribute: "country", Operation: claims.OpEquals, Value: "de"}, want: false},
		{name: "equals one of", req: claims.Requirement{Attribute: "country", Operation: claims.OpEquals, Value: []any{"FR", "DE"}}, want: true},
		{name: "equals boolean", req: claims.Requirement{Attribute: "verified", Operation: claims.OpEquals, Value: "true"}, want: true},
		{name: "nested greater", req: claims.Requirement{Attribute: "employment.salary", Operation: claims.OpGreaterThan, Value: 80000.0}, want: true},
		{name: "greater than boundary", req: claims.Requirement{Attribute: "employment.salary", Operation: claims.OpGreaterThan, Value: 82000.0}, want: false},
		{name: "less than boundary", req: claims.Requirement{Attribute: "employment.salary", Operation: claims.OpLessThan, Value: 82000.0}, want: false},
		{name: "nested less", req: claims.Requirement{Attribute: "employment.salary", Operation: claims.OpLessThan, Value: 80000.0}, want: false},
		{name: "date before", req: claims.Requirement{Attribute: "birthDate", Operation: claims.OpLessThan, Value: "2000-01-01"}, want: true},
		{name: "list contains", req: claims.Requirement{Attribute: "roles", Operation: claims.OpContains, Value: "admin"}, want: true},
		{name: "list lacks", req: claims.Requirement{Attribute: "roles", Operation: claims.OpContains, Value: "owner"}, want: false},
		{name: "substring", req: claims.Requirement{Attribute: "bio", Operation: claims.OpContains, Value: "acme"}, want: true},
		{name: "exists", req: claims.Requirement{Attribute: "roles", Operation: claims.OpExists}, want: true},
		{name: "exists blank", req: claims.Requirement{Attribute: "email", Operation: claims.OpExists}, want: false},
		{name: "exists absent", req: claims.Requirement{Attribute: "phone", Operation: claims.OpExists}, want: false},
		{name: "incomparable", req: claims.Requirement{Attribute: "bio", Operation: claims.OpGreaterThan, Value: 3.0}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.Holds(subject))
		})
	}
}

func TestSubjectLookupAny(t *testing.T) {
	subject := claims.Subject{
		"dob":     "",
		"address": claims.Subject{"country": "PL"},
	}

	_, _, ok := subject.LookupAny("birthDate", "dob")
	assert.False(t, ok)

	v, alias, ok := subject.LookupAny("country", "address.country")
	require.True(t, ok)
	assert.Equal(t, "address.country", alias)
	assert.Equal(t, "PL", v.Canonical())
}

func TestValidateAll(t *testing.T) {
	assert.Error(t, claims.ValidateAll(nil))
	assert.NoError(t, claims.ValidateAll([]claims.Requirement{{Attribute: "a", Operation: claims.OpExists}}))
}
