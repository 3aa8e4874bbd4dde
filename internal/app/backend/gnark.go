package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/catalog"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/witness"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/zkp"
	"github.com/consensys/gnark/backend/groth16"
	gnarklogger "github.com/consensys/gnark/logger"
)

var ErrKeysUnavailable = errors.New("circuit keys unavailable")

type GnarkOptions struct {
	// AllowEphemeralSetup runs a local groth16 setup when a circuit has no key
	// files. Keys from such a setup only verify proofs made by this process.
	AllowEphemeralSetup bool
	// PersistKeys writes ephemeral keys to the circuit's key paths.
	PersistKeys bool
}

type circuitKeys struct {
	mu       sync.Mutex
	ready    bool
	compiled *zkp.CompiledCircuit
	pk       groth16.ProvingKey
	vk       groth16.VerifyingKey
	err      error
}

// GnarkBackend proves catalog circuits with groth16 over BN254. Circuits are
// compiled and their keys loaded once, on first use. Missing key files are
// looked up again on the next use.
type GnarkBackend struct {
	opts   GnarkOptions
	logger *logger.Logger

	mu   sync.Mutex
	keys map[string]*circuitKeys
}

func NewGnarkBackend(opts GnarkOptions, l *logger.Logger) *GnarkBackend {
	l = logger.OrDefault(l).WithComponent("gnark-backend")
	gnarklogger.Set(l.Zerolog())

	return &GnarkBackend{
		opts:   opts,
		logger: l,
		keys:   map[string]*circuitKeys{},
	}
}

func (g *GnarkBackend) prepare(circuit *catalog.Circuit) (*circuitKeys, error) {
	if circuit.Schema == nil {
		return nil, fmt.Errorf("circuit %s has no schema", circuit.Name)
	}

	g.mu.Lock()
	entry, ok := g.keys[circuit.Name]
	if !ok {
		entry = &circuitKeys{}
		g.keys[circuit.Name] = entry
	}
	g.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.ready {
		return entry, entry.err
	}

	if entry.compiled == nil {
		compiled, err := zkp.CompileSchema(circuit.Schema)
		if err != nil {
			entry.ready, entry.err = true, err
			return entry, err
		}
		g.logger.Infof("compiled circuit %s: %d constraints", circuit.Name, compiled.CCS.GetNbConstraints())
		entry.compiled = compiled
	}

	pk, vk, err := g.loadKeys(circuit, entry.compiled)
	if errors.Is(err, ErrKeysUnavailable) {
		return nil, err
	}
	entry.pk, entry.vk, entry.err = pk, vk, err
	entry.ready = true
	return entry, entry.err
}

func (g *GnarkBackend) loadKeys(circuit *catalog.Circuit, compiled *zkp.CompiledCircuit) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pk := groth16.NewProvingKey(zkp.ElipticalCurveID)
	vk := groth16.NewVerifyingKey(zkp.ElipticalCurveID)

	pkErr := readKey(circuit.ProvingKeyPath, pk)
	vkErr := readKey(circuit.VerificationKeyPath, vk)
	if pkErr == nil && vkErr == nil {
		g.logger.Infof("loaded keys for circuit %s", circuit.Name)
		return pk, vk, nil
	}

	if !g.opts.AllowEphemeralSetup {
		return nil, nil, fmt.Errorf("%w for circuit %s: %v", ErrKeysUnavailable, circuit.Name, errors.Join(pkErr, vkErr))
	}

	g.logger.Warnf("no key files for circuit %s, running ephemeral groth16 setup", circuit.Name)
	pk, vk, err := groth16.Setup(compiled.CCS)
	if err != nil {
		return nil, nil, fmt.Errorf("groth16 setup for %s: %w", circuit.Name, err)
	}

	if g.opts.PersistKeys {
		if err := writeKey(circuit.ProvingKeyPath, pk); err != nil {
			g.logger.Errorf(err, "could not persist proving key for %s", circuit.Name)
		}
		if err := writeKey(circuit.VerificationKeyPath, vk); err != nil {
			g.logger.Errorf(err, "could not persist verification key for %s", circuit.Name)
		}
	}

	return pk, vk, nil
}

func (g *GnarkBackend) FullProve(ctx context.Context, circuit *catalog.Circuit, w *witness.Witness) (*Output, error) {
	keys, err := g.prepare(circuit)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, _, err := keys.compiled.ProveDynamic(keys.pk, w.Inputs)
	if err != nil {
		return nil, fmt.Errorf("prove %s: %w", circuit.Name, err)
	}

	proof, err := result.SerializeBorsh()
	if err != nil {
		return nil, fmt.Errorf("serialize proof: %w", err)
	}
	signals, err := result.PublicSignals()
	if err != nil {
		return nil, err
	}

	return &Output{Proof: proof, PublicSignals: signals}, nil
}

func (g *GnarkBackend) Verify(ctx context.Context, circuit *catalog.Circuit, publicSignals []string, proof []byte) (bool, error) {
	keys, err := g.prepare(circuit)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	result, err := zkp.ReconstructZkpResult(proof)
	if err != nil {
		g.logger.Debugf("undecodable proof for %s: %v", circuit.Name, err)
		return false, nil
	}

	// the public witness inside the proof must be the one being claimed
	embedded, err := result.PublicSignals()
	if err != nil || !slices.Equal(embedded, publicSignals) {
		return false, nil
	}

	if err := zkp.VerifyDynamic(keys.vk, result); err != nil {
		g.logger.Debugf("groth16 verification failed for %s: %v", circuit.Name, err)
		return false, nil
	}
	return true, nil
}

func (g *GnarkBackend) VerificationKey(circuit *catalog.Circuit) ([]byte, error) {
	keys, err := g.prepare(circuit)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := keys.vk.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write verification key: %w", err)
	}
	return buf.Bytes(), nil
}

type keyReader interface {
	ReadFrom(r io.Reader) (int64, error)
}

type keyWriter interface {
	WriteTo(w io.Writer) (int64, error)
}

func readKey(path string, key keyReader) error {
	if path == "" {
		return errors.New("no key path configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := key.ReadFrom(f); err != nil {
		return fmt.Errorf("read key %s: %w", path, err)
	}
	return nil
}

func writeKey(path string, key keyWriter) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = key.WriteTo(f)
	return err
}
