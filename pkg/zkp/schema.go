package zkp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type FieldType string

const (
	FieldTypeInteger FieldType = "integer"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeString  FieldType = "string"
	FieldTypeDate    FieldType = "date"
	// FieldTypeField carries a value that is already a scalar field element.
	FieldTypeField FieldType = "field"
)

type ConstraintType string

const (
	ConstraintRange      ConstraintType = "range_check"
	ConstraintComparison ConstraintType = "comparison"
	ConstraintAge        ConstraintType = "age_verification"
	ConstraintMembership ConstraintType = "membership"
	ConstraintCommitment ConstraintType = "commitment"
	ConstraintClaimSlot  ConstraintType = "claim_slot"
)

// SchemaDefinition describes a circuit: its inputs and the predicates over them.
//
// A constraint with a Result writes its predicate bit into that public field;
// constraints sharing a Result are OR-combined. A constraint without a Result
// must hold for a proof to exist at all. Outcome, when set, names the public
// field holding the AND of every result whose Essential flag is set.
type SchemaDefinition struct {
	SchemaID    string                 `json:"schema_id"`
	Version     string                 `json:"version"`
	Outcome     string                 `json:"outcome"`
	Binding     string                 `json:"binding"`
	Fields      []FieldDefinition      `json:"fields"`
	Constraints []ConstraintDefinition `json:"constraints"`

	fieldIndex map[string]FieldDefinition
}

type FieldDefinition struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Secret      bool      `json:"secret"`
	Public      bool      `json:"public"`
	Description string    `json:"description"`
}

type ConstraintDefinition struct {
	Type         ConstraintType  `json:"type"`
	Fields       []string        `json:"fields"`
	Operator     string          `json:"operator"`
	Value        json.RawMessage `json:"value"`
	Result       string          `json:"result"`
	Essential    string          `json:"essential"`
	ErrorMessage string          `json:"error_message"`
}

// Claim slot field positions.
const (
	SlotOp = iota
	SlotValue
	SlotLow
	SlotHigh
	SlotActive
	slotArity
)

// Claim slot operation codes.
const (
	SlotOpNone        int64 = 0
	SlotOpEquals      int64 = 1
	SlotOpGreaterThan int64 = 2
	SlotOpLessThan    int64 = 3
	SlotOpRange       int64 = 4
	SlotOpContains    int64 = 5
	SlotOpExists      int64 = 6
)

func ParseSchema(data []byte) (*SchemaDefinition, error) {
	var schema SchemaDefinition
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	if err := schema.prepare(); err != nil {
		return nil, err
	}

	return &schema, nil
}

func (s *SchemaDefinition) prepare() error {
	if len(s.Fields) == 0 {
		return errors.New("schema must declare at least one field")
	}

	s.fieldIndex = make(map[string]FieldDefinition, len(s.Fields))
	for idx, field := range s.Fields {
		if field.Name == "" {
			return errors.New("schema field name cannot be empty")
		}
		if _, exists := s.fieldIndex[field.Name]; exists {
			return fmt.Errorf("duplicate field '%s' in schema", field.Name)
		}

		// secret unless explicitly public
		if field.Public {
			field.Secret = false
		} else if !field.Secret {
			field.Secret = true
		}

		if field.Type == "" {
			field.Type = FieldTypeString
		}

		s.fieldIndex[field.Name] = field
		s.Fields[idx] = field
	}

	for _, name := range []string{s.Outcome, s.Binding} {
		if name == "" {
			continue
		}
		if err := s.requirePublic(name); err != nil {
			return err
		}
	}

	for _, constraint := range s.Constraints {
		if err := s.validateConstraint(constraint); err != nil {
			return err
		}
	}

	return nil
}

func (s *SchemaDefinition) validateConstraint(constraint ConstraintDefinition) error {
	if constraint.Type == "" {
		return fmt.Errorf("constraint must declare type")
	}
	if len(constraint.Fields) == 0 {
		return fmt.Errorf("constraint '%s' must reference at least one field", constraint.Type)
	}
	for _, fieldName := range constraint.Fields {
		if _, ok := s.fieldIndex[fieldName]; !ok {
			return fmt.Errorf("constraint references unknown field '%s'", fieldName)
		}
	}
	if constraint.Result != "" {
		if err := s.requirePublic(constraint.Result); err != nil {
			return err
		}
	}
	if constraint.Essential != "" {
		if constraint.Result == "" {
			return fmt.Errorf("constraint '%s' declares essential flag without result", constraint.Type)
		}
		if err := s.requirePublic(constraint.Essential); err != nil {
			return err
		}
	}

	n := len(constraint.Fields)
	switch constraint.Type {
	case ConstraintRange:
		if n != 1 && n != 3 {
			return fmt.Errorf("range constraint expects 1 field with bounds or 3 fields, got %d", n)
		}
	case ConstraintComparison:
		if n > 2 {
			return fmt.Errorf("comparison constraint expects 1 or 2 fields, got %d", n)
		}
		if _, err := comparisonOperator(constraint.Operator); err != nil {
			return err
		}
	case ConstraintAge:
		if n != 3 {
			return fmt.Errorf("age constraint expects birth, current and minimum age fields, got %d", n)
		}
	case ConstraintMembership:
		if n < 2 {
			return fmt.Errorf("membership constraint expects a value and at least one member")
		}
	case ConstraintCommitment:
		if n < 2 {
			return fmt.Errorf("commitment constraint expects a commitment and at least one input")
		}
		if constraint.Result != "" {
			return fmt.Errorf("commitment constraint cannot declare a result")
		}
	case ConstraintClaimSlot:
		if n != slotArity {
			return fmt.Errorf("claim slot expects %d fields, got %d", slotArity, n)
		}
	default:
		return fmt.Errorf("unsupported constraint type '%s'", constraint.Type)
	}

	return nil
}

func (s *SchemaDefinition) requirePublic(name string) error {
	field, ok := s.fieldIndex[name]
	if !ok {
		return fmt.Errorf("schema references unknown field '%s'", name)
	}
	if !field.Public {
		return fmt.Errorf("field '%s' must be public", name)
	}
	return nil
}

func (s *SchemaDefinition) field(name string) (FieldDefinition, bool) {
	fd, ok := s.fieldIndex[name]
	return fd, ok
}

func (s *SchemaDefinition) SecretFieldOrder() []string {
	order := make([]string, 0, len(s.Fields))
	for _, field := range s.Fields {
		if field.Public {
			continue
		}
		order = append(order, field.Name)
	}
	return order
}

func (s *SchemaDefinition) PublicFieldOrder() []string {
	order := make([]string, 0, len(s.Fields))
	for _, field := range s.Fields {
		if !field.Public {
			continue
		}
		order = append(order, field.Name)
	}
	return order
}

// PublicIndex returns the position of a public field within the public signals.
func (s *SchemaDefinition) PublicIndex(name string) (int, bool) {
	for i, fieldName := range s.PublicFieldOrder() {
		if fieldName == name {
			return i, true
		}
	}
	return -1, false
}

// DerivedFields lists the public fields computed from the other inputs.
func (s *SchemaDefinition) DerivedFields() []string {
	seen := map[string]struct{}{}
	var derived []string
	if s.Outcome != "" {
		derived = append(derived, s.Outcome)
		seen[s.Outcome] = struct{}{}
	}
	for _, constraint := range s.Constraints {
		if constraint.Result == "" {
			continue
		}
		if _, ok := seen[constraint.Result]; ok {
			continue
		}
		seen[constraint.Result] = struct{}{}
		derived = append(derived, constraint.Result)
	}
	return derived
}

func (c ConstraintDefinition) ValueAsInt() (int64, error) {
	if len(c.Value) == 0 {
		return 0, errors.New("constraint missing value")
	}

	var number json.Number
	if err := json.Unmarshal(c.Value, &number); err == nil {
		if v, err := number.Int64(); err == nil {
			return v, nil
		}
		if f, err := number.Float64(); err == nil {
			return int64(f), nil
		}
	}

	var s string
	if err := json.Unmarshal(c.Value, &s); err == nil {
		return parseStringInt(s)
	}

	return 0, fmt.Errorf("constraint value is not numeric: %s", string(c.Value))
}

func (c ConstraintDefinition) ValueAsNumberSlice() ([]float64, error) {
	if len(c.Value) == 0 {
		return nil, errors.New("constraint missing value array")
	}
	var values []float64
	if err := json.Unmarshal(c.Value, &values); err != nil {
		return nil, fmt.Errorf("constraint expects numeric array value: %w", err)
	}
	return values, nil
}

func parseStringInt(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("empty numeric string")
	}
	number := json.Number(value)
	if v, err := number.Int64(); err == nil {
		return v, nil
	}
	if f, err := number.Float64(); err == nil {
		return int64(f), nil
	}
	return 0, fmt.Errorf("invalid numeric value '%s'", value)
}

func (s *SchemaDefinition) FieldDefinition(name string) (FieldDefinition, error) {
	field, ok := s.field(name)
	if !ok {
		return FieldDefinition{}, fmt.Errorf("unknown field '%s'", name)
	}
	return field, nil
}

type comparisonOp int

const (
	opGreaterEqual comparisonOp = iota
	opGreater
	opLessEqual
	opLess
	opEqual
	opNotEqual
)

func comparisonOperator(operator string) (comparisonOp, error) {
	switch operator {
	case "greater_equal", "ge":
		return opGreaterEqual, nil
	case "greater_than", "gt":
		return opGreater, nil
	case "less_equal", "le":
		return opLessEqual, nil
	case "less_than", "lt":
		return opLess, nil
	case "equal", "eq":
		return opEqual, nil
	case "not_equal", "ne":
		return opNotEqual, nil
	default:
		return 0, fmt.Errorf("unsupported comparison operator '%s'", operator)
	}
}
