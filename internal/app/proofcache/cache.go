package proofcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/disclosure"
	"github.com/bluele/gcache"
)

// KeyOwnershipProofType is never cached: a stale ownership proof would
// survive a key rotation.
const KeyOwnershipProofType = "key-ownership"

const (
	DefaultTTL  = 5 * time.Minute
	DefaultSize = 1024
)

var ErrNotCacheable = errors.New("proof type is not cacheable")

type Options struct {
	Size       int
	DefaultTTL time.Duration
	Clock      gcache.Clock
}

// Cache is a TTL map of generated proofs. Expired entries are dropped when
// read and by Sweep.
type Cache struct {
	store      gcache.Cache
	defaultTTL time.Duration
}

func New(opts Options) *Cache {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}

	builder := gcache.New(opts.Size).LRU()
	if opts.Clock != nil {
		builder = builder.Clock(opts.Clock)
	}

	return &Cache{store: builder.Build(), defaultTTL: opts.DefaultTTL}
}

// Key hashes the proof type with the canonical JSON form of params, so maps
// with equal contents give equal keys regardless of insertion order.
func Key(proofType string, params any) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode cache parameters: %w", err)
	}

	// decoding into any sorts object keys on re-encoding
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("decode cache parameters: %w", err)
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("encode cache parameters: %w", err)
	}

	sum := sha256.Sum256(append([]byte(proofType+"\x00"), canonical...))
	return hex.EncodeToString(sum[:]), nil
}

func Cacheable(proofType string) bool {
	return !strings.EqualFold(strings.TrimSpace(proofType), KeyOwnershipProofType)
}

func (c *Cache) Get(key string) (*disclosure.Proof, bool) {
	value, err := c.store.Get(key)
	if err != nil {
		return nil, false
	}
	proof, ok := value.(*disclosure.Proof)
	return proof, ok
}

// Put stores proof under key; a non-positive ttl uses the cache default.
func (c *Cache) Put(key string, proof *disclosure.Proof, ttl time.Duration) error {
	if proof == nil {
		return errors.New("nil proof")
	}
	if !Cacheable(proof.ProofType) {
		return fmt.Errorf("%w: %s", ErrNotCacheable, proof.ProofType)
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	return c.store.SetWithExpire(key, proof, ttl)
}

// Sweep drops every expired entry and returns how many remain.
func (c *Cache) Sweep() int {
	for _, key := range c.store.Keys(false) {
		// reading an expired entry evicts it
		_, _ = c.store.GetIFPresent(key)
	}
	return c.store.Len(true)
}

func (c *Cache) Len() int {
	return c.store.Len(true)
}
