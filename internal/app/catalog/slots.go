package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/zkp"
)

// Public fields shared by every circuit. The outcome is always signal 0 and
// the binding signal 1; per-claim bits follow as proven_i, essential_i.
const (
	OutcomeField    = "claim_holds"
	BindingField    = "binding"
	CommitmentField = "commitment"
	SaltField       = "salt"
)

func ProvenField(i int) string { return fmt.Sprintf("proven_%d", i) }
func EssentialField(i int) string { return fmt.Sprintf("essential_%d", i) }

// Claim slot field names.
func SlotOpField(i int) string { return fmt.Sprintf("op_%d", i) }
func SlotValueField(i int) string { return fmt.Sprintf("value_%d", i) }
func SlotLowField(i int) string { return fmt.Sprintf("low_%d", i) }
func SlotHighField(i int) string { return fmt.Sprintf("high_%d", i) }
func SlotActiveField(i int) string { return fmt.Sprintf("active_%d", i) }

// SlotSchema builds a generic circuit proving up to slots claim requirements,
// with the secret slot values bound by a MiMC commitment.
func SlotSchema(id string, slots int) (*zkp.SchemaDefinition, error) {
	if slots <= 0 {
		return nil, fmt.Errorf("slot schema %s needs at least one slot", id)
	}

	schema := zkp.SchemaDefinition{
		SchemaID: id,
		Version:  "1.0.0",
		Outcome:  OutcomeField,
		Binding:  BindingField,
	}
	public := func(name string, t zkp.FieldType, required bool) {
		schema.Fields = append(schema.Fields, zkp.FieldDefinition{Name: name, Type: t, Public: true, Required: required})
	}
	secret := func(name string, t zkp.FieldType) {
		schema.Fields = append(schema.Fields, zkp.FieldDefinition{Name: name, Type: t, Secret: true, Required: true})
	}

	public(OutcomeField, zkp.FieldTypeBoolean, false)
	public(BindingField, zkp.FieldTypeField, true)
	for i := 0; i < slots; i++ {
		public(ProvenField(i), zkp.FieldTypeBoolean, false)
		public(EssentialField(i), zkp.FieldTypeBoolean, true)
	}
	for i := 0; i < slots; i++ {
		public(SlotOpField(i), zkp.FieldTypeInteger, true)
		public(SlotLowField(i), zkp.FieldTypeField, true)
		public(SlotHighField(i), zkp.FieldTypeField, true)
		public(SlotActiveField(i), zkp.FieldTypeBoolean, true)
	}
	public(CommitmentField, zkp.FieldTypeField, true)

	committed := []string{CommitmentField}
	for i := 0; i < slots; i++ {
		secret(SlotValueField(i), zkp.FieldTypeField)
		committed = append(committed, SlotValueField(i))
	}
	secret(SaltField, zkp.FieldTypeField)
	committed = append(committed, SaltField)

	for i := 0; i < slots; i++ {
		schema.Constraints = append(schema.Constraints, zkp.ConstraintDefinition{
			Type:      zkp.ConstraintClaimSlot,
			Fields:    []string{SlotOpField(i), SlotValueField(i), SlotLowField(i), SlotHighField(i), SlotActiveField(i)},
			Result:    ProvenField(i),
			Essential: EssentialField(i),
		})
	}
	schema.Constraints = append(schema.Constraints, zkp.ConstraintDefinition{
		Type:         zkp.ConstraintCommitment,
		Fields:       committed,
		ErrorMessage: "claim value commitment does not open",
	})

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode slot schema %s: %w", id, err)
	}
	return zkp.ParseSchema(data)
}
