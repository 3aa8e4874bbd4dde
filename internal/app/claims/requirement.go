package claims

import (
	"fmt"
	"strings"
)

type Operation string

const (
	OpEquals      Operation = "equals"
	OpGreaterThan Operation = "greaterThan"
	OpLessThan    Operation = "lessThan"
	OpRange       Operation = "range"
	OpContains    Operation = "contains"
	OpExists      Operation = "exists"
)

func (o Operation) Known() bool {
	switch o {
	case OpEquals, OpGreaterThan, OpLessThan, OpRange, OpContains, OpExists:
		return true
	}
	return false
}

// Requirement is one assertion to prove about a single credential attribute.
type Requirement struct {
	Attribute   string    `json:"attribute"`
	Operation   Operation `json:"operation"`
	Value       any       `json:"value,omitempty"`
	MinValue    any       `json:"minValue,omitempty"`
	MaxValue    any       `json:"maxValue,omitempty"`
	Description string    `json:"description,omitempty"`
	Essential   bool      `json:"essential"`
}

type ValidationError struct {
	Attribute string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.Attribute == "" {
		return e.Reason
	}
	return fmt.Sprintf("claim '%s': %s", e.Attribute, e.Reason)
}

func (r Requirement) invalid(reason string, args ...any) error {
	return &ValidationError{Attribute: r.Attribute, Reason: fmt.Sprintf(reason, args...)}
}

// Label is the name a proven claim is reported under.
func (r Requirement) Label() string {
	if d := strings.TrimSpace(r.Description); d != "" {
		return d
	}
	return r.Attribute
}

func (r Requirement) Validate() error {
	if strings.TrimSpace(r.Attribute) == "" {
		return r.invalid("attribute is required")
	}
	if !r.Operation.Known() {
		return r.invalid("unknown operation '%s'", r.Operation)
	}

	value, minValue, maxValue := ValueOf(r.Value), ValueOf(r.MinValue), ValueOf(r.MaxValue)

	switch r.Operation {
	case OpRange:
		if minValue.IsMissing() || maxValue.IsMissing() {
			return r.invalid("range requires minValue and maxValue")
		}
		c, ok := Compare(minValue, maxValue)
		if !ok {
			return r.invalid("range bounds must both be numbers or dates")
		}
		if c > 0 {
			return r.invalid("minValue must not exceed maxValue")
		}
	case OpEquals, OpContains:
		if value.IsMissing() {
			return r.invalid("%s requires value", r.Operation)
		}
	case OpGreaterThan, OpLessThan:
		if value.IsMissing() {
			return r.invalid("%s requires value", r.Operation)
		}
		if _, ok := value.AsNumber(); !ok {
			if _, ok := value.AsDate(); !ok {
				return r.invalid("%s requires a numeric or date value", r.Operation)
			}
		}
	case OpExists:
		if !value.IsMissing() || !minValue.IsMissing() || !maxValue.IsMissing() {
			return r.invalid("exists does not take value, minValue or maxValue")
		}
	}

	return nil
}

// Evaluate reports whether subject satisfies the requirement. A missing value
// never satisfies. greaterThan and lessThan are strict, as in the generic slot
// circuits. The purpose circuits (age, income, net worth, verification level)
// treat greaterThan as an inclusive minimum instead, so Evaluate is not their
// reference at the threshold itself.
func (r Requirement) Evaluate(subject Value) bool {
	if subject.IsMissing() {
		return false
	}

	switch r.Operation {
	case OpEquals:
		want := ValueOf(r.Value)
		if want.Kind() == KindList {
			for _, option := range want.Items() {
				if Equal(subject, option) {
					return true
				}
			}
			return false
		}
		return Equal(subject, want)

	case OpGreaterThan:
		c, ok := Compare(subject, ValueOf(r.Value))
		return ok && c > 0

	case OpLessThan:
		c, ok := Compare(subject, ValueOf(r.Value))
		return ok && c < 0

	case OpRange:
		lo, okLo := Compare(subject, ValueOf(r.MinValue))
		hi, okHi := Compare(subject, ValueOf(r.MaxValue))
		return okLo && okHi && lo >= 0 && hi <= 0

	case OpContains:
		want := ValueOf(r.Value)
		if subject.Kind() == KindList {
			for _, item := range subject.Items() {
				if Equal(item, want) {
					return true
				}
			}
			return false
		}
		text, ok := subject.AsText()
		return ok && strings.Contains(text, want.Canonical())

	case OpExists:
		return !subject.IsEmpty()
	}

	return false
}

// Holds evaluates the requirement against the attribute it names in subject.
func (r Requirement) Holds(subject Subject) bool {
	return r.Evaluate(subject.Value(r.Attribute))
}

func ValidateAll(requirements []Requirement) error {
	if len(requirements) == 0 {
		return &ValidationError{Reason: "at least one claim requirement is needed"}
	}
	for _, r := range requirements {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}
