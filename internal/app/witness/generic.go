package witness

import (
	"math"
	"math/big"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/catalog"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/zkp"
)

// SlotOffset keeps negative numbers and pre-1970 dates ordered in the field.
var SlotOffset = new(big.Int).Lsh(big.NewInt(1), 62)

// fixedPointScale keeps two decimal places of numeric claims.
const fixedPointScale = 100

var slotOpCodes = map[claims.Operation]int64{
	claims.OpEquals:      zkp.SlotOpEquals,
	claims.OpGreaterThan: zkp.SlotOpGreaterThan,
	claims.OpLessThan:    zkp.SlotOpLessThan,
	claims.OpRange:       zkp.SlotOpRange,
	claims.OpContains:    zkp.SlotOpContains,
	claims.OpExists:      zkp.SlotOpExists,
}

type slot struct {
	op        int64
	value     *big.Int
	low       *big.Int
	high      *big.Int
	active    bool
	essential bool
}

func inactiveSlot() slot {
	return slot{op: zkp.SlotOpNone, value: new(big.Int), low: new(big.Int), high: new(big.Int)}
}

func buildClaimSlots(bc *buildContext, circuit *catalog.Circuit) error {
	committed := make([]*big.Int, 0, circuit.Slots+1)

	for i := 0; i < circuit.Slots; i++ {
		s := inactiveSlot()
		if i < len(bc.constraints.Requirements) {
			var err error
			if s, err = encodeRequirement(bc.subject, bc.constraints.Requirements[i]); err != nil {
				return err
			}
		}

		bc.set(catalog.SlotOpField(i), s.op)
		bc.set(catalog.SlotValueField(i), s.value)
		bc.set(catalog.SlotLowField(i), s.low)
		bc.set(catalog.SlotHighField(i), s.high)
		bc.set(catalog.SlotActiveField(i), s.active)
		bc.set(catalog.EssentialField(i), s.essential)
		committed = append(committed, s.value)
	}

	committed = append(committed, bc.salt)
	bc.set(catalog.CommitmentField, zkp.Commit(committed...))
	return nil
}

// encodeRequirement maps one requirement and its subject value onto a claim slot.
// A missing non-essential attribute yields an inactive slot that proves false.
func encodeRequirement(subject claims.Subject, req claims.Requirement) (slot, error) {
	s := inactiveSlot()
	s.op = slotOpCodes[req.Operation]
	s.essential = req.Essential

	value := subject.Value(req.Attribute)
	if value.IsMissing() {
		if req.Essential {
			return slot{}, missingAttribute(req.Attribute)
		}
		return s, nil
	}
	s.active = true

	var err error
	switch req.Operation {
	case claims.OpEquals:
		target := claims.ValueOf(req.Value)
		if target.Kind() == claims.KindList {
			options := target.Items()
			if len(options) == 0 {
				return slot{}, typeMismatch(req.Attribute, "equals needs at least one option")
			}
			target = options[0]
			for _, option := range options {
				if claims.Equal(value, option) {
					target = option
					break
				}
			}
		}
		s.value, s.low, err = encodeEquality(req.Attribute, value, target)

	case claims.OpGreaterThan, claims.OpLessThan:
		s.value, s.low, err = encodeOrdered(req.Attribute, value, claims.ValueOf(req.Value))

	case claims.OpRange:
		if s.value, s.low, err = encodeOrdered(req.Attribute, value, claims.ValueOf(req.MinValue)); err == nil {
			_, s.high, err = encodeOrdered(req.Attribute, value, claims.ValueOf(req.MaxValue))
		}

	case claims.OpContains:
		target := claims.ValueOf(req.Value)
		s.low = hashValue(target)
		s.value = s.low
		if !req.Evaluate(value) {
			s.value = hashValue(value)
		}

	case claims.OpExists:
		if !value.IsEmpty() {
			s.value = big.NewInt(1)
		}
	}
	if err != nil {
		return slot{}, err
	}

	return s, nil
}

func encodeEquality(attribute string, value, target claims.Value) (*big.Int, *big.Int, error) {
	if _, ok := claims.Compare(value, target); ok {
		return encodeOrdered(attribute, value, target)
	}
	if a, ok := value.AsBool(); ok {
		if b, ok := target.AsBool(); ok {
			return hashValue(claims.Boolean(a)), hashValue(claims.Boolean(b)), nil
		}
	}
	return hashValue(value), hashValue(target), nil
}

// encodeOrdered encodes two comparable values so field order matches value order.
func encodeOrdered(attribute string, value, bound claims.Value) (*big.Int, *big.Int, error) {
	if a, ok := value.AsNumber(); ok {
		if b, ok := bound.AsNumber(); ok {
			x, err := encodeNumber(attribute, a)
			if err != nil {
				return nil, nil, err
			}
			y, err := encodeNumber(attribute, b)
			if err != nil {
				return nil, nil, err
			}
			return x, y, nil
		}
	}
	if a, ok := value.AsDate(); ok {
		if b, ok := bound.AsDate(); ok {
			return encodeDate(a.Unix()), encodeDate(b.Unix()), nil
		}
	}
	return nil, nil, typeMismatch(attribute, "cannot compare %s with %s", value.Kind(), bound.Kind())
}

func encodeNumber(attribute string, n float64) (*big.Int, error) {
	scaled := math.Round(n * fixedPointScale)
	if math.Abs(scaled) >= 1<<61 {
		return nil, typeMismatch(attribute, "number %v out of range", n)
	}
	return new(big.Int).Add(SlotOffset, big.NewInt(int64(scaled))), nil
}

func encodeDate(seconds int64) *big.Int {
	return new(big.Int).Add(SlotOffset, big.NewInt(seconds))
}

func hashValue(v claims.Value) *big.Int {
	return zkp.HashToField([]byte(v.Kind().String() + ":" + v.Canonical()))
}
