package zkp

import (
	"fmt"
	"math"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

type DynamicCircuit struct {
	SecretValues []frontend.Variable `gnark:",secret"`
	PublicValues []frontend.Variable `gnark:",public"`

	Schema        *SchemaDefinition          `gnark:"-"`
	secretOrder   []string                   `gnark:"-"`
	publicOrder   []string                   `gnark:"-"`
	secretIndex   map[string]int             `gnark:"-"`
	publicIndex   map[string]int             `gnark:"-"`
	fieldMetadata map[string]FieldDefinition `gnark:"-"`
}

func NewDynamicCircuit(schema *SchemaDefinition) (*DynamicCircuit, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema cannot be nil")
	}

	secretOrder := schema.SecretFieldOrder()
	publicOrder := schema.PublicFieldOrder()

	circuit := &DynamicCircuit{
		SecretValues:  make([]frontend.Variable, len(secretOrder)),
		PublicValues:  make([]frontend.Variable, len(publicOrder)),
		Schema:        schema,
		secretOrder:   append([]string(nil), secretOrder...),
		publicOrder:   append([]string(nil), publicOrder...),
		secretIndex:   make(map[string]int, len(secretOrder)),
		publicIndex:   make(map[string]int, len(publicOrder)),
		fieldMetadata: make(map[string]FieldDefinition, len(schema.Fields)),
	}

	for i, name := range secretOrder {
		circuit.secretIndex[name] = i
	}
	for i, name := range publicOrder {
		circuit.publicIndex[name] = i
	}
	for _, field := range schema.Fields {
		circuit.fieldMetadata[field.Name] = field
	}

	return circuit, nil
}

func (dc *DynamicCircuit) Clone() *DynamicCircuit {
	return &DynamicCircuit{
		SecretValues:  make([]frontend.Variable, len(dc.SecretValues)),
		PublicValues:  make([]frontend.Variable, len(dc.PublicValues)),
		Schema:        dc.Schema,
		secretOrder:   append([]string(nil), dc.secretOrder...),
		publicOrder:   append([]string(nil), dc.publicOrder...),
		secretIndex:   dc.secretIndex,
		publicIndex:   dc.publicIndex,
		fieldMetadata: dc.fieldMetadata,
	}
}

// AssignValues sets every input; fields left unassigned default to zero unless required.
func (dc *DynamicCircuit) AssignValues(values map[string]interface{}) error {
	assigned := make(map[string]struct{}, len(values))

	for name, rawValue := range values {
		field, ok := dc.fieldMetadata[name]
		if !ok {
			return fmt.Errorf("assignment references unknown field '%s'", name)
		}

		variable, err := convertToVariable(field, rawValue)
		if err != nil {
			return fmt.Errorf("invalid value for field '%s': %w", name, err)
		}

		if idx, ok := dc.secretIndex[name]; ok {
			dc.SecretValues[idx] = variable
		} else if idx, ok := dc.publicIndex[name]; ok {
			dc.PublicValues[idx] = variable
		} else {
			return fmt.Errorf("field '%s' does not map to a circuit input", name)
		}

		assigned[name] = struct{}{}
	}

	for _, field := range dc.Schema.Fields {
		if _, ok := assigned[field.Name]; ok {
			continue
		}
		if field.Required {
			return fmt.Errorf("required field '%s' missing from assignments", field.Name)
		}
		dc.setZero(field.Name)
	}

	return nil
}

func (dc *DynamicCircuit) setZero(name string) {
	if idx, ok := dc.secretIndex[name]; ok {
		dc.SecretValues[idx] = 0
	} else if idx, ok := dc.publicIndex[name]; ok {
		dc.PublicValues[idx] = 0
	}
}

func (dc *DynamicCircuit) Define(api frontend.API) error {
	results := map[string]frontend.Variable{}
	essentials := map[string]string{}
	var resultOrder []string

	for _, constraint := range dc.Schema.Constraints {
		bit, err := dc.applyConstraint(api, constraint)
		if err != nil {
			return err
		}
		if bit == nil {
			continue
		}

		if constraint.Result == "" {
			api.AssertIsEqual(bit, 1)
			continue
		}

		if prev, ok := results[constraint.Result]; ok {
			results[constraint.Result] = api.Or(prev, bit)
		} else {
			results[constraint.Result] = bit
			resultOrder = append(resultOrder, constraint.Result)
		}
		if constraint.Essential != "" {
			essentials[constraint.Result] = constraint.Essential
		}
	}

	outcome := frontend.Variable(1)
	for _, name := range resultOrder {
		resultVar, err := dc.fieldVariable(name)
		if err != nil {
			return err
		}
		api.AssertIsEqual(resultVar, results[name])

		essential := frontend.Variable(1)
		if flag, ok := essentials[name]; ok {
			essential, err = dc.fieldVariable(flag)
			if err != nil {
				return err
			}
			api.AssertIsBoolean(essential)
		}
		outcome = api.And(outcome, api.Or(results[name], api.Sub(1, essential)))
	}

	if dc.Schema.Outcome != "" {
		outcomeVar, err := dc.fieldVariable(dc.Schema.Outcome)
		if err != nil {
			return err
		}
		api.AssertIsEqual(outcomeVar, outcome)
	}

	if dc.Schema.Binding != "" {
		bindingVar, err := dc.fieldVariable(dc.Schema.Binding)
		if err != nil {
			return err
		}
		api.AssertIsDifferent(bindingVar, 0)
	}

	return nil
}

// applyConstraint returns the predicate bit, or nil for constraints asserted directly.
func (dc *DynamicCircuit) applyConstraint(api frontend.API, constraint ConstraintDefinition) (frontend.Variable, error) {
	switch constraint.Type {
	case ConstraintRange:
		return dc.applyRangeConstraint(api, constraint)
	case ConstraintComparison:
		return dc.applyComparisonConstraint(api, constraint)
	case ConstraintAge:
		return dc.applyAgeConstraint(api, constraint)
	case ConstraintMembership:
		return dc.applyMembershipConstraint(api, constraint)
	case ConstraintCommitment:
		return nil, dc.applyCommitmentConstraint(api, constraint)
	case ConstraintClaimSlot:
		return dc.applyClaimSlot(api, constraint)
	default:
		return nil, fmt.Errorf("unsupported constraint type '%s'", constraint.Type)
	}
}

func (dc *DynamicCircuit) applyRangeConstraint(api frontend.API, constraint ConstraintDefinition) (frontend.Variable, error) {
	vars, err := dc.fieldVariables(constraint.Fields)
	if err != nil {
		return nil, err
	}

	value := vars[0]
	var minBound, maxBound frontend.Variable
	if len(vars) == 3 {
		minBound, maxBound = vars[1], vars[2]
	} else {
		lo, hi, err := rangeBounds(constraint)
		if err != nil {
			return nil, err
		}
		minBound, maxBound = lo, hi
	}

	aboveMin := not(api, isLess(api, value, minBound))
	belowMax := not(api, isGreater(api, value, maxBound))
	return api.And(aboveMin, belowMax), nil
}

func (dc *DynamicCircuit) applyComparisonConstraint(api frontend.API, constraint ConstraintDefinition) (frontend.Variable, error) {
	left, err := dc.fieldVariable(constraint.Fields[0])
	if err != nil {
		return nil, err
	}

	var right frontend.Variable
	if len(constraint.Fields) > 1 {
		right, err = dc.fieldVariable(constraint.Fields[1])
		if err != nil {
			return nil, err
		}
	} else {
		number, err := constraint.ValueAsInt()
		if err != nil {
			return nil, err
		}
		right = number
	}

	op, err := comparisonOperator(constraint.Operator)
	if err != nil {
		return nil, err
	}

	switch op {
	case opGreaterEqual:
		return not(api, isLess(api, left, right)), nil
	case opGreater:
		return isGreater(api, left, right), nil
	case opLessEqual:
		return not(api, isGreater(api, left, right)), nil
	case opLess:
		return isLess(api, left, right), nil
	case opEqual:
		return isEqual(api, left, right), nil
	default:
		return not(api, isEqual(api, left, right)), nil
	}
}

// applyAgeConstraint holds when birth + minimumAge <= current, all in seconds.
func (dc *DynamicCircuit) applyAgeConstraint(api frontend.API, constraint ConstraintDefinition) (frontend.Variable, error) {
	vars, err := dc.fieldVariables(constraint.Fields)
	if err != nil {
		return nil, err
	}
	birth, current, minimumAge := vars[0], vars[1], vars[2]

	threshold := api.Add(birth, minimumAge)
	return not(api, isGreater(api, threshold, current)), nil
}

func (dc *DynamicCircuit) applyMembershipConstraint(api frontend.API, constraint ConstraintDefinition) (frontend.Variable, error) {
	vars, err := dc.fieldVariables(constraint.Fields)
	if err != nil {
		return nil, err
	}

	needle := vars[0]
	product := api.Sub(needle, vars[1])
	for _, member := range vars[2:] {
		product = api.Mul(product, api.Sub(needle, member))
	}
	return api.IsZero(product), nil
}

func (dc *DynamicCircuit) applyCommitmentConstraint(api frontend.API, constraint ConstraintDefinition) error {
	vars, err := dc.fieldVariables(constraint.Fields)
	if err != nil {
		return err
	}

	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return fmt.Errorf("init mimc: %w", err)
	}
	hasher.Write(vars[1:]...)
	api.AssertIsEqual(hasher.Sum(), vars[0])
	return nil
}

func (dc *DynamicCircuit) applyClaimSlot(api frontend.API, constraint ConstraintDefinition) (frontend.Variable, error) {
	vars, err := dc.fieldVariables(constraint.Fields)
	if err != nil {
		return nil, err
	}
	op, value, low, high, active := vars[SlotOp], vars[SlotValue], vars[SlotLow], vars[SlotHigh], vars[SlotActive]
	api.AssertIsBoolean(active)

	cmpLow := api.Cmp(value, low)
	below := api.IsZero(api.Add(cmpLow, 1))
	above := api.IsZero(api.Sub(cmpLow, 1))
	equal := isEqual(api, value, low)
	withinHigh := not(api, isGreater(api, value, high))
	inRange := api.Mul(not(api, below), withinHigh)
	present := not(api, api.IsZero(value))

	predicates := []struct {
		code int64
		bit  frontend.Variable
	}{
		{SlotOpEquals, equal},
		{SlotOpGreaterThan, above},
		{SlotOpLessThan, below},
		{SlotOpRange, inRange},
		{SlotOpContains, equal},
		{SlotOpExists, present},
	}

	selected := frontend.Variable(0)
	for _, p := range predicates {
		selected = api.Add(selected, api.Mul(isEqual(api, op, p.code), p.bit))
	}
	return api.Mul(active, selected), nil
}

func isLess(api frontend.API, a, b frontend.Variable) frontend.Variable {
	return api.IsZero(api.Add(api.Cmp(a, b), 1))
}

func isGreater(api frontend.API, a, b frontend.Variable) frontend.Variable {
	return api.IsZero(api.Sub(api.Cmp(a, b), 1))
}

func isEqual(api frontend.API, a, b frontend.Variable) frontend.Variable {
	return api.IsZero(api.Sub(a, b))
}

func not(api frontend.API, bit frontend.Variable) frontend.Variable {
	return api.Sub(1, bit)
}

func rangeBounds(constraint ConstraintDefinition) (int64, int64, error) {
	bounds, err := constraint.ValueAsNumberSlice()
	if err != nil {
		return 0, 0, err
	}
	if len(bounds) != 2 {
		return 0, 0, fmt.Errorf("range constraint requires two bounds")
	}

	minBound, err := toIntBound(bounds[0])
	if err != nil {
		return 0, 0, err
	}
	maxBound, err := toIntBound(bounds[1])
	if err != nil {
		return 0, 0, err
	}
	return minBound, maxBound, nil
}

func toIntBound(bound float64) (int64, error) {
	if math.Trunc(bound) != bound {
		return 0, fmt.Errorf("range constraint bound must be whole number, got %v", bound)
	}
	return int64(bound), nil
}

func (dc *DynamicCircuit) fieldVariables(names []string) ([]frontend.Variable, error) {
	vars := make([]frontend.Variable, len(names))
	for i, name := range names {
		v, err := dc.fieldVariable(name)
		if err != nil {
			return nil, err
		}
		vars[i] = v
	}
	return vars, nil
}

func (dc *DynamicCircuit) fieldVariable(name string) (frontend.Variable, error) {
	if idx, ok := dc.secretIndex[name]; ok {
		return dc.SecretValues[idx], nil
	}
	if idx, ok := dc.publicIndex[name]; ok {
		return dc.PublicValues[idx], nil
	}
	return nil, fmt.Errorf("unknown circuit field '%s'", name)
}
