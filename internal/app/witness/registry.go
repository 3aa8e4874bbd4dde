package witness

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/catalog"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/disclosure"
	reasoncodes "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/reason_codes"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/zkp"
)

const saltSize = 32

// Constraints carries everything besides the subject that shapes a witness.
type Constraints struct {
	Requirements []claims.Requirement
	Now          time.Time
	Binding      *big.Int
}

// Witness is the complete circuit assignment for one proof attempt.
type Witness struct {
	Purpose string
	Inputs  map[string]interface{}
}

type buildContext struct {
	subject     claims.Subject
	constraints Constraints
	salt        *big.Int
	inputs      map[string]interface{}
}

func (bc *buildContext) set(name string, value interface{}) {
	bc.inputs[name] = value
}

// BuilderFunc fills the circuit inputs for one purpose.
type BuilderFunc func(bc *buildContext, circuit *catalog.Circuit) error

type Registry struct {
	catalog  *catalog.Catalog
	builders map[string]BuilderFunc
	random   io.Reader
}

type Option func(r *Registry)

// WithRandom replaces the salt source; it must be cryptographically secure outside tests.
func WithRandom(reader io.Reader) Option {
	return func(r *Registry) { r.random = reader }
}

func NewRegistry(c *catalog.Catalog, opts ...Option) *Registry {
	r := &Registry{
		catalog: c,
		builders: map[string]BuilderFunc{
			catalog.PurposeAgeVerification:    buildAgeVerification,
			catalog.PurposeJurisdiction:       buildJurisdiction,
			catalog.PurposeAccreditedInvestor: buildAccreditedInvestor,
			catalog.PurposeAntiSybil:          buildAntiSybil,
		},
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Build converts subject data and requirements into circuit inputs. No partial
// witness is ever returned.
func (r *Registry) Build(purpose string, subject claims.Subject, constraints Constraints) (*Witness, error) {
	circuit, err := r.catalog.SelectCircuit(purpose)
	if err != nil {
		return nil, disclosure.NewError(reasoncodes.ErrUnsupportedPurpose, "no witness builder for purpose '%s'", purpose)
	}

	build, ok := r.builders[circuit.Name]
	if !ok {
		if !circuit.Generic() {
			return nil, disclosure.NewError(reasoncodes.ErrUnsupportedPurpose, "no witness builder for purpose '%s'", purpose)
		}
		build = buildClaimSlots
	}

	if constraints.Binding == nil || constraints.Binding.Sign() == 0 {
		return nil, disclosure.NewError(reasoncodes.ErrValidation, "witness requires a non-zero binding")
	}
	if len(constraints.Requirements) == 0 {
		return nil, disclosure.NewError(reasoncodes.ErrValidation, "witness requires at least one requirement")
	}
	if len(constraints.Requirements) > circuit.MaxClaims {
		return nil, disclosure.NewError(reasoncodes.ErrTypeMismatch, "circuit %s accepts at most %d claims", circuit.Name, circuit.MaxClaims)
	}
	if constraints.Now.IsZero() {
		constraints.Now = time.Now()
	}

	salt, err := r.freshSalt()
	if err != nil {
		return nil, err
	}

	bc := &buildContext{
		subject:     subject,
		constraints: constraints,
		salt:        salt,
		inputs:      map[string]interface{}{},
	}
	bc.set(catalog.BindingField, constraints.Binding)
	bc.set(catalog.SaltField, salt)

	if err := build(bc, circuit); err != nil {
		return nil, err
	}

	return &Witness{Purpose: circuit.Name, Inputs: bc.inputs}, nil
}

// freshSalt draws a new salt per witness; salts are never reused.
func (r *Registry) freshSalt() (*big.Int, error) {
	buf := make([]byte, saltSize)
	if _, err := io.ReadFull(r.random, buf); err != nil {
		return nil, fmt.Errorf("draw witness salt: %w", err)
	}
	salt := new(big.Int).SetBytes(buf)
	return salt.Mod(salt, zkp.Field()), nil
}

func missingAttribute(attribute string) error {
	return disclosure.NewError(reasoncodes.ErrMissingAttribute, "credential has no '%s' attribute", attribute).WithDetails(attribute)
}

func typeMismatch(attribute, format string, args ...any) error {
	return disclosure.NewError(reasoncodes.ErrTypeMismatch, "'%s': %s", attribute, fmt.Sprintf(format, args...)).WithDetails(attribute)
}

// lookup prefers the requirement's own attribute before the purpose aliases.
func lookup(subject claims.Subject, attribute string, aliases ...string) (claims.Value, string, bool) {
	return subject.LookupAny(append([]string{attribute}, aliases...)...)
}
