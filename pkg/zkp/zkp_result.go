package zkp

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/near/borsh-go"
)

// ZkpResult is a groth16 proof together with the public witness it was proven against.
type ZkpResult struct {
	Proof         groth16.Proof
	PublicWitness witness.Witness
}

type intermediateSerializationStep struct {
	Proof         []byte `borsh:"proof"`
	PublicWitness []byte `borsh:"public_witness"`
}

func (zr *ZkpResult) SerializeBorsh() ([]byte, error) {
	var proofBuf bytes.Buffer
	if _, err := zr.Proof.WriteTo(&proofBuf); err != nil {
		return nil, fmt.Errorf("write proof: %w", err)
	}

	var witnessBuf bytes.Buffer
	if _, err := zr.PublicWitness.WriteTo(&witnessBuf); err != nil {
		return nil, fmt.Errorf("write public witness: %w", err)
	}

	return borsh.Serialize(intermediateSerializationStep{
		Proof:         proofBuf.Bytes(),
		PublicWitness: witnessBuf.Bytes(),
	})
}

// PublicSignals renders the public witness as decimal strings, in schema public field order.
func (zr *ZkpResult) PublicSignals() ([]string, error) {
	vector, ok := zr.PublicWitness.Vector().(fr.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected public witness vector type %T", zr.PublicWitness.Vector())
	}

	signals := make([]string, len(vector))
	for i := range vector {
		signals[i] = vector[i].BigInt(new(big.Int)).String()
	}
	return signals, nil
}

func ReconstructZkpResult(serializedZkp []byte) (*ZkpResult, error) {
	var deserialized intermediateSerializationStep
	if err := borsh.Deserialize(&deserialized, serializedZkp); err != nil {
		return nil, fmt.Errorf("decode proof package: %w", err)
	}

	proof := groth16.NewProof(ElipticalCurveID)
	if _, err := proof.ReadFrom(bytes.NewReader(deserialized.Proof)); err != nil {
		return nil, fmt.Errorf("read proof: %w", err)
	}

	publicWitness, err := witness.New(Field())
	if err != nil {
		return nil, fmt.Errorf("new witness: %w", err)
	}
	if _, err := publicWitness.ReadFrom(bytes.NewReader(deserialized.PublicWitness)); err != nil {
		return nil, fmt.Errorf("read public witness: %w", err)
	}

	return &ZkpResult{
		Proof:         proof,
		PublicWitness: publicWitness,
	}, nil
}
