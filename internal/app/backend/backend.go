package backend

import (
	"context"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/catalog"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/witness"
)

// Output is a serialized proof and the public signals it commits to.
type Output struct {
	Proof         []byte
	PublicSignals []string
}

// ProvingBackend runs the proving system for catalog circuits.
type ProvingBackend interface {
	FullProve(ctx context.Context, circuit *catalog.Circuit, w *witness.Witness) (*Output, error)
	// Verify reports false for proofs that do not check out; errors are
	// reserved for failures of the backend itself.
	Verify(ctx context.Context, circuit *catalog.Circuit, publicSignals []string, proof []byte) (bool, error)
	VerificationKey(circuit *catalog.Circuit) ([]byte, error)
}
