package nullifier_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/database"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/nullifier"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgers(t *testing.T) map[string]nullifier.Ledger {
	t.Helper()
	out := map[string]nullifier.Ledger{
		"memory": nullifier.NewMemoryLedger(),
		"gorm":   nullifier.NewGormLedger(database.SetupTestDB(t)),
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := nullifier.NewRedisClient(nullifier.RedisConfig{Addr: addr})
		t.Cleanup(func() { _ = client.Close() })
		out["redis"] = nullifier.NewRedisLedger(client)
	}
	return out
}

func TestLedgerInsertIfAbsent(t *testing.T) {
	for name, ledger := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			hash := uuid.NewString()

			found, err := ledger.Contains(ctx, hash, "did:example:verifier")
			require.NoError(t, err)
			assert.False(t, found)

			inserted, err := ledger.InsertIfAbsent(ctx, hash, "did:example:verifier", "proof-1")
			require.NoError(t, err)
			assert.True(t, inserted)

			inserted, err = ledger.InsertIfAbsent(ctx, hash, "did:example:verifier", "proof-2")
			require.NoError(t, err)
			assert.False(t, inserted)

			found, err = ledger.Contains(ctx, hash, "did:example:verifier")
			require.NoError(t, err)
			assert.True(t, found)

			// a different verifier has its own namespace
			inserted, err = ledger.InsertIfAbsent(ctx, hash, "did:example:other", "proof-1")
			require.NoError(t, err)
			assert.True(t, inserted)
		})
	}
}

func TestLedgerConcurrentInsertHasOneWinner(t *testing.T) {
	for name, ledger := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			hash := uuid.NewString()
			var wins atomic.Int32
			var wg sync.WaitGroup

			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					inserted, err := ledger.InsertIfAbsent(context.Background(), hash, "did:example:verifier", fmt.Sprintf("proof-%d", i))
					if err == nil && inserted {
						wins.Add(1)
					}
				}(i)
			}
			wg.Wait()

			assert.Equal(t, int32(1), wins.Load())
		})
	}
}
