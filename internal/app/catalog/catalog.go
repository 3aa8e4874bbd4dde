package catalog

import (
	"embed"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/disclosure"
	reasoncodes "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/reason_codes"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/zkp"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	PurposeAgeVerification     = "age-verification"
	PurposeJurisdiction        = "jurisdiction-proof"
	PurposeAccreditedInvestor  = "accredited-investor"
	PurposeAntiSybil           = "anti-sybil"
	PurposeSelectiveDisclosure = "selective-disclosure"
	PurposeMembership          = "membership"
	PurposeRange               = "range"
)

// AnyClaim in SupportedClaims accepts every attribute.
const AnyClaim = "*"

var (
	AgeClaims          = []string{"age", "birthDate", "dateOfBirth", "birthdate", "dob", "birth_date"}
	JurisdictionClaims = []string{"region", "country", "jurisdiction", "countryOfResidence", "address.country"}
	AccreditedClaims   = []string{"accredited", "accreditedInvestor", "income", "annualIncome", "financial.income", "netWorth", "financial.netWorth"}
	PersonhoodClaims   = []string{"personhood", "uniqueHuman", "verificationLevel", "personhood.level"}
)

type Circuit struct {
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	SupportedClaims     []string `json:"supportedClaims"`
	MaxClaims           int      `json:"maxClaims"`
	Slots               int      `json:"slots,omitempty"`
	ArtifactPath        string   `json:"artifactPath,omitempty"`
	ProvingKeyPath      string   `json:"provingKeyPath,omitempty"`
	VerificationKeyPath string   `json:"verificationKeyPath,omitempty"`

	Schema *zkp.SchemaDefinition `json:"-"`
}

// Generic circuits encode each requirement into a claim slot.
func (c *Circuit) Generic() bool { return c.Slots > 0 }

func (c *Circuit) Supports(attribute string) bool {
	return slices.Contains(c.SupportedClaims, AnyClaim) || slices.Contains(c.SupportedClaims, attribute)
}

// SignalIndex returns the position of a public field in the circuit's public signals.
func (c *Circuit) SignalIndex(field string) (int, bool) {
	return c.Schema.PublicIndex(field)
}

type Descriptor struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	SupportedClaims []string `json:"supportedClaims"`
	MaxClaims       int      `json:"maxClaims"`
}

// Catalog is read-only after construction.
type Catalog struct {
	circuits map[string]*Circuit
}

func New(circuits ...*Circuit) (*Catalog, error) {
	c := &Catalog{circuits: make(map[string]*Circuit, len(circuits))}
	for _, circuit := range circuits {
		if circuit == nil || circuit.Name == "" {
			return nil, fmt.Errorf("circuit name cannot be empty")
		}
		if circuit.Schema == nil {
			return nil, fmt.Errorf("circuit '%s' has no schema", circuit.Name)
		}
		if _, exists := c.circuits[circuit.Name]; exists {
			return nil, fmt.Errorf("duplicate circuit '%s'", circuit.Name)
		}
		if circuit.MaxClaims <= 0 {
			circuit.MaxClaims = max(1, circuit.Slots)
		}
		c.circuits[circuit.Name] = circuit
	}
	return c, nil
}

func Default() (*Catalog, error) {
	circuits, err := defaultCircuits()
	if err != nil {
		return nil, err
	}
	return New(circuits...)
}

func defaultCircuits() ([]*Circuit, error) {
	circuits := []*Circuit{
		{
			Name:            PurposeAgeVerification,
			Description:     "Proves the holder reached a minimum age without revealing the birth date",
			SupportedClaims: AgeClaims,
			MaxClaims:       1,
		},
		{
			Name:            PurposeJurisdiction,
			Description:     "Proves residence in one of up to eight allowed regions",
			SupportedClaims: JurisdictionClaims,
			MaxClaims:       1,
		},
		{
			Name:            PurposeAccreditedInvestor,
			Description:     "Proves income or net worth above accreditation thresholds",
			SupportedClaims: AccreditedClaims,
			MaxClaims:       1,
		},
		{
			Name:            PurposeAntiSybil,
			Description:     "Proves a unique, sufficiently verified person behind a committed identity",
			SupportedClaims: PersonhoodClaims,
			MaxClaims:       1,
		},
	}

	for _, circuit := range circuits {
		data, err := schemaFS.ReadFile("schemas/" + circuit.Name + ".json")
		if err != nil {
			return nil, fmt.Errorf("read embedded schema %s: %w", circuit.Name, err)
		}
		if circuit.Schema, err = zkp.ParseSchema(data); err != nil {
			return nil, fmt.Errorf("parse embedded schema %s: %w", circuit.Name, err)
		}
	}

	generic := []struct {
		name        string
		description string
		slots       int
	}{
		{PurposeSelectiveDisclosure, "Proves up to four arbitrary claim requirements", 4},
		{PurposeMembership, "Proves a credential attribute contains or equals a value", 1},
		{PurposeRange, "Proves a credential attribute lies within inclusive bounds", 1},
	}
	for _, g := range generic {
		schema, err := SlotSchema(g.name, g.slots)
		if err != nil {
			return nil, err
		}
		circuits = append(circuits, &Circuit{
			Name:            g.name,
			Description:     g.description,
			SupportedClaims: []string{AnyClaim},
			MaxClaims:       g.slots,
			Slots:           g.slots,
			Schema:          schema,
		})
	}

	return circuits, nil
}

// Load reads circuit entries from a JSON file on top of the defaults.
// Entries naming a default circuit override its metadata and key paths;
// new entries need an artifactPath pointing at a schema file or a slot count.
func Load(path string) (*Catalog, error) {
	entries, err := readCatalogFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	circuits, err := defaultCircuits()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*Circuit, len(circuits))
	for _, c := range circuits {
		byName[c.Name] = c
	}

	for _, entry := range entries {
		circuit, exists := byName[entry.Name]
		if !exists {
			circuit = &Circuit{Name: entry.Name}
			circuits = append(circuits, circuit)
			byName[entry.Name] = circuit
		}
		if err := mergeEntry(circuit, entry); err != nil {
			return nil, err
		}
	}

	return New(circuits...)
}

func mergeEntry(circuit *Circuit, entry Circuit) error {
	if entry.Description != "" {
		circuit.Description = entry.Description
	}
	if len(entry.SupportedClaims) > 0 {
		circuit.SupportedClaims = entry.SupportedClaims
	}
	if entry.MaxClaims > 0 {
		circuit.MaxClaims = entry.MaxClaims
	}
	circuit.ProvingKeyPath = entry.ProvingKeyPath
	circuit.VerificationKeyPath = entry.VerificationKeyPath

	switch {
	case entry.ArtifactPath != "":
		data, err := os.ReadFile(entry.ArtifactPath)
		if err != nil {
			return fmt.Errorf("read schema for %s: %w", entry.Name, err)
		}
		schema, err := zkp.ParseSchema(data)
		if err != nil {
			return fmt.Errorf("parse schema for %s: %w", entry.Name, err)
		}
		circuit.ArtifactPath = entry.ArtifactPath
		circuit.Schema = schema
		circuit.Slots = entry.Slots
	case entry.Slots > 0:
		schema, err := SlotSchema(entry.Name, entry.Slots)
		if err != nil {
			return err
		}
		circuit.Schema = schema
		circuit.Slots = entry.Slots
		if len(circuit.SupportedClaims) == 0 {
			circuit.SupportedClaims = []string{AnyClaim}
		}
	}
	return nil
}

func (c *Catalog) SelectCircuit(purpose string) (*Circuit, error) {
	circuit, ok := c.circuits[normalizePurpose(purpose)]
	if !ok {
		return nil, disclosure.NewError(reasoncodes.ErrUnknownCircuit, "no circuit registered for purpose '%s'", purpose)
	}
	return circuit, nil
}

func (c *Catalog) Circuits() []*Circuit {
	out := make([]*Circuit, 0, len(c.circuits))
	for _, circuit := range c.circuits {
		out = append(out, circuit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Catalog) Descriptors() []Descriptor {
	circuits := c.Circuits()
	out := make([]Descriptor, len(circuits))
	for i, circuit := range circuits {
		out[i] = Descriptor{
			Name:            circuit.Name,
			Description:     circuit.Description,
			SupportedClaims: circuit.SupportedClaims,
			MaxClaims:       circuit.MaxClaims,
		}
	}
	return out
}

// InferPurpose picks a circuit for requests that do not declare one.
func InferPurpose(requirements []claims.Requirement) string {
	if len(requirements) != 1 {
		return PurposeSelectiveDisclosure
	}

	r := requirements[0]
	switch {
	case slices.Contains(AgeClaims, r.Attribute) && r.Operation == claims.OpGreaterThan:
		return PurposeAgeVerification
	case slices.Contains(JurisdictionClaims, r.Attribute) && r.Operation == claims.OpEquals:
		return PurposeJurisdiction
	case slices.Contains(AccreditedClaims, r.Attribute) && r.Operation != claims.OpLessThan && r.Operation != claims.OpRange:
		return PurposeAccreditedInvestor
	case slices.Contains(PersonhoodClaims, r.Attribute) && r.Operation != claims.OpLessThan && r.Operation != claims.OpRange:
		return PurposeAntiSybil
	case r.Operation == claims.OpRange:
		return PurposeRange
	case r.Operation == claims.OpContains:
		return PurposeMembership
	}
	return PurposeSelectiveDisclosure
}

func normalizePurpose(purpose string) string {
	return strings.ToLower(strings.TrimSpace(purpose))
}
