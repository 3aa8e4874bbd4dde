package zkp

import (
	"fmt"
	"math/big"
)

// Evaluation is the native result of running a schema's predicates.
type Evaluation struct {
	Results map[string]bool
	Outcome bool
}

// Complete evaluates the schema over inputs and returns the assignments with
// every derived public field (results and outcome) filled in.
func (s *SchemaDefinition) Complete(inputs map[string]interface{}) (map[string]interface{}, *Evaluation, error) {
	derived := map[string]struct{}{}
	for _, name := range s.DerivedFields() {
		derived[name] = struct{}{}
	}

	values := make(map[string]*big.Int, len(s.Fields))
	for _, field := range s.Fields {
		if _, ok := derived[field.Name]; ok {
			continue
		}
		raw, ok := inputs[field.Name]
		if !ok {
			if field.Required {
				return nil, nil, fmt.Errorf("required field '%s' missing from assignments", field.Name)
			}
			values[field.Name] = new(big.Int)
			continue
		}
		v, err := convertToVariable(field, raw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid value for field '%s': %w", field.Name, err)
		}
		values[field.Name] = v
	}

	evaluation, err := s.evaluate(values)
	if err != nil {
		return nil, nil, err
	}

	completed := make(map[string]interface{}, len(s.Fields))
	for name, v := range values {
		completed[name] = v
	}
	for name, holds := range evaluation.Results {
		completed[name] = boolToInt(holds)
	}
	if s.Outcome != "" {
		completed[s.Outcome] = boolToInt(evaluation.Outcome)
	}

	return completed, evaluation, nil
}

func (s *SchemaDefinition) evaluate(values map[string]*big.Int) (*Evaluation, error) {
	evaluation := &Evaluation{Results: map[string]bool{}, Outcome: true}
	essentials := map[string]string{}
	var resultOrder []string

	for _, constraint := range s.Constraints {
		holds, asserted, err := s.evaluateConstraint(constraint, values)
		if err != nil {
			return nil, err
		}
		if asserted {
			continue
		}
		if constraint.Result == "" {
			if !holds {
				return nil, constraintError(constraint)
			}
			continue
		}

		if prev, ok := evaluation.Results[constraint.Result]; ok {
			evaluation.Results[constraint.Result] = prev || holds
		} else {
			evaluation.Results[constraint.Result] = holds
			resultOrder = append(resultOrder, constraint.Result)
		}
		if constraint.Essential != "" {
			essentials[constraint.Result] = constraint.Essential
		}
	}

	for _, name := range resultOrder {
		essential := true
		if flag, ok := essentials[name]; ok {
			v := values[flag]
			if v.Sign() != 0 && v.Cmp(big.NewInt(1)) != 0 {
				return nil, fmt.Errorf("essential flag '%s' must be boolean", flag)
			}
			essential = v.Sign() != 0
		}
		if essential && !evaluation.Results[name] {
			evaluation.Outcome = false
		}
	}

	if s.Binding != "" && values[s.Binding].Sign() == 0 {
		return nil, fmt.Errorf("binding field '%s' must be non-zero", s.Binding)
	}

	return evaluation, nil
}

// evaluateConstraint reports whether the predicate holds; asserted is true for
// constraints that are checked directly instead of producing a bit.
func (s *SchemaDefinition) evaluateConstraint(constraint ConstraintDefinition, values map[string]*big.Int) (bool, bool, error) {
	vars := make([]*big.Int, len(constraint.Fields))
	for i, name := range constraint.Fields {
		vars[i] = values[name]
		if vars[i] == nil {
			return false, false, fmt.Errorf("constraint '%s' references derived field '%s'", constraint.Type, name)
		}
	}

	switch constraint.Type {
	case ConstraintRange:
		var lo, hi *big.Int
		if len(vars) == 3 {
			lo, hi = vars[1], vars[2]
		} else {
			minBound, maxBound, err := rangeBounds(constraint)
			if err != nil {
				return false, false, err
			}
			lo, hi = reduce(big.NewInt(minBound)), reduce(big.NewInt(maxBound))
		}
		return vars[0].Cmp(lo) >= 0 && vars[0].Cmp(hi) <= 0, false, nil

	case ConstraintComparison:
		var right *big.Int
		if len(vars) > 1 {
			right = vars[1]
		} else {
			number, err := constraint.ValueAsInt()
			if err != nil {
				return false, false, err
			}
			right = reduce(big.NewInt(number))
		}
		op, err := comparisonOperator(constraint.Operator)
		if err != nil {
			return false, false, err
		}
		cmp := vars[0].Cmp(right)
		switch op {
		case opGreaterEqual:
			return cmp >= 0, false, nil
		case opGreater:
			return cmp > 0, false, nil
		case opLessEqual:
			return cmp <= 0, false, nil
		case opLess:
			return cmp < 0, false, nil
		case opEqual:
			return cmp == 0, false, nil
		default:
			return cmp != 0, false, nil
		}

	case ConstraintAge:
		threshold := reduce(new(big.Int).Add(vars[0], vars[2]))
		return threshold.Cmp(vars[1]) <= 0, false, nil

	case ConstraintMembership:
		for _, member := range vars[1:] {
			if vars[0].Cmp(member) == 0 {
				return true, false, nil
			}
		}
		return false, false, nil

	case ConstraintCommitment:
		if Commit(vars[1:]...).Cmp(vars[0]) != 0 {
			return false, true, constraintError(constraint)
		}
		return true, true, nil

	case ConstraintClaimSlot:
		return evaluateSlot(vars), false, nil

	default:
		return false, false, fmt.Errorf("unsupported constraint type '%s'", constraint.Type)
	}
}

func evaluateSlot(vars []*big.Int) bool {
	active := vars[SlotActive]
	if active.Sign() == 0 {
		return false
	}

	value, low, high := vars[SlotValue], vars[SlotLow], vars[SlotHigh]
	if !vars[SlotOp].IsInt64() {
		return false
	}

	switch vars[SlotOp].Int64() {
	case SlotOpEquals, SlotOpContains:
		return value.Cmp(low) == 0
	case SlotOpGreaterThan:
		return value.Cmp(low) > 0
	case SlotOpLessThan:
		return value.Cmp(low) < 0
	case SlotOpRange:
		return value.Cmp(low) >= 0 && value.Cmp(high) <= 0
	case SlotOpExists:
		return value.Sign() != 0
	default:
		return false
	}
}

func constraintError(constraint ConstraintDefinition) error {
	if constraint.ErrorMessage != "" {
		return fmt.Errorf("%s", constraint.ErrorMessage)
	}
	return fmt.Errorf("%s constraint over %v not satisfied", constraint.Type, constraint.Fields)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
