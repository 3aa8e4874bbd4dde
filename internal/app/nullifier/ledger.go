package nullifier

import (
	"context"
	"sync"
)

// Ledger records spent nullifiers per verifier. InsertIfAbsent is atomic:
// among concurrent inserts of the same pair exactly one returns true.
type Ledger interface {
	Contains(ctx context.Context, nullifierHash, verifierDID string) (bool, error)
	InsertIfAbsent(ctx context.Context, nullifierHash, verifierDID, proofID string) (bool, error)
}

type ledgerKey struct {
	nullifier string
	verifier  string
}

type MemoryLedger struct {
	mu      sync.Mutex
	entries map[ledgerKey]string
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: map[ledgerKey]string{}}
}

func (m *MemoryLedger) Contains(_ context.Context, nullifierHash, verifierDID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.entries[ledgerKey{nullifierHash, verifierDID}]
	return ok, nil
}

func (m *MemoryLedger) InsertIfAbsent(_ context.Context, nullifierHash, verifierDID, proofID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := ledgerKey{nullifierHash, verifierDID}
	if _, ok := m.entries[key]; ok {
		return false, nil
	}
	m.entries[key] = proofID
	return true, nil
}
