// Package backendtest provides proving backends for tests that need circuit
// semantics without running groth16.
package backendtest

import (
	"context"
	"crypto/sha256"
	"fmt"
	"slices"
	"strings"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/backend"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/catalog"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/witness"
)

// NativeBackend evaluates circuits natively. Its "proof" is a digest of the
// public signals, so any change to the signals fails verification.
type NativeBackend struct{}

func (NativeBackend) FullProve(ctx context.Context, circuit *catalog.Circuit, w *witness.Witness) (*backend.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	completed, _, err := circuit.Schema.Complete(w.Inputs)
	if err != nil {
		return nil, err
	}

	order := circuit.Schema.PublicFieldOrder()
	signals := make([]string, len(order))
	for i, name := range order {
		signals[i] = fmt.Sprint(completed[name])
	}
	return &backend.Output{Proof: digest(circuit.Name, signals), PublicSignals: signals}, nil
}

func (NativeBackend) Verify(_ context.Context, circuit *catalog.Circuit, publicSignals []string, proof []byte) (bool, error) {
	return slices.Equal(proof, digest(circuit.Name, publicSignals)), nil
}

func (NativeBackend) VerificationKey(circuit *catalog.Circuit) ([]byte, error) {
	return []byte("native:" + circuit.Name), nil
}

func digest(name string, signals []string) []byte {
	sum := sha256.Sum256([]byte(name + "|" + strings.Join(signals, ",")))
	return sum[:]
}

// BlockingBackend never finishes a proof on its own; it returns when ctx ends.
type BlockingBackend struct {
	NativeBackend
}

func (BlockingBackend) FullProve(ctx context.Context, _ *catalog.Circuit, _ *witness.Witness) (*backend.Output, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// FailingBackend reports an infrastructure error for every call.
type FailingBackend struct {
	Err error
}

func (f FailingBackend) FullProve(context.Context, *catalog.Circuit, *witness.Witness) (*backend.Output, error) {
	return nil, f.Err
}

func (f FailingBackend) Verify(context.Context, *catalog.Circuit, []string, []byte) (bool, error) {
	return false, f.Err
}

func (f FailingBackend) VerificationKey(*catalog.Circuit) ([]byte, error) {
	return nil, f.Err
}
