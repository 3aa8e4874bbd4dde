package zkp

import (
	"fmt"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// CompiledCircuit is a schema compiled to R1CS along with its prototype circuit.
type CompiledCircuit struct {
	Schema    *SchemaDefinition
	Prototype *DynamicCircuit
	CCS       constraint.ConstraintSystem
}

func CompileSchema(schema *SchemaDefinition) (*CompiledCircuit, error) {
	circuit, err := NewDynamicCircuit(schema)
	if err != nil {
		return nil, fmt.Errorf("new dynamic circuit: %w", err)
	}

	ccs, err := frontend.Compile(
		Field(),
		r1cs.NewBuilder,
		circuit,
		frontend.IgnoreUnconstrainedInputs(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile circuit %s: %w", schema.SchemaID, err)
	}

	return &CompiledCircuit{Schema: schema, Prototype: circuit, CCS: ccs}, nil
}

// ProveDynamic fills the derived fields, builds the witness and proves it with pk.
func (cc *CompiledCircuit) ProveDynamic(pk groth16.ProvingKey, inputs map[string]interface{}) (*ZkpResult, *Evaluation, error) {
	assignments, evaluation, err := cc.Schema.Complete(inputs)
	if err != nil {
		return nil, nil, fmt.Errorf("evaluate inputs: %w", err)
	}

	witnessCircuit := cc.Prototype.Clone()
	if err := witnessCircuit.AssignValues(assignments); err != nil {
		return nil, nil, fmt.Errorf("assign values: %w", err)
	}

	fullWitness, err := frontend.NewWitness(witnessCircuit, Field())
	if err != nil {
		return nil, nil, fmt.Errorf("new witness: %w", err)
	}

	publicWitness, err := fullWitness.Public()
	if err != nil {
		return nil, nil, fmt.Errorf("public witness: %w", err)
	}

	proof, err := groth16.Prove(cc.CCS, pk, fullWitness)
	if err != nil {
		return nil, nil, fmt.Errorf("groth16 prove: %w", err)
	}

	return &ZkpResult{
		Proof:         proof,
		PublicWitness: publicWitness,
	}, evaluation, nil
}

func VerifyDynamic(vk groth16.VerifyingKey, result *ZkpResult) error {
	return groth16.Verify(result.Proof, vk, result.PublicWitness)
}
