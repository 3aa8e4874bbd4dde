package nullifier

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "nullifier:"

type RedisConfigJson struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (rcj RedisConfigJson) ConvertToDomain() RedisConfig {
	return RedisConfig{Addr: rcj.Addr, Password: rcj.Password, DB: rcj.DB}
}

func (rc RedisConfig) Enabled() bool {
	return rc.Addr != ""
}

func NewRedisClient(config RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
}

// RedisLedger stores one key per (verifier, nullifier) pair with no expiry.
type RedisLedger struct {
	client redis.Cmdable
}

func NewRedisLedger(client redis.Cmdable) *RedisLedger {
	return &RedisLedger{client: client}
}

func redisKey(nullifierHash, verifierDID string) string {
	return redisKeyPrefix + verifierDID + ":" + nullifierHash
}

func (r *RedisLedger) Contains(ctx context.Context, nullifierHash, verifierDID string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKey(nullifierHash, verifierDID)).Result()
	if err != nil {
		return false, fmt.Errorf("lookup nullifier: %w", err)
	}
	return n > 0, nil
}

func (r *RedisLedger) InsertIfAbsent(ctx context.Context, nullifierHash, verifierDID, proofID string) (bool, error) {
	inserted, err := r.client.SetNX(ctx, redisKey(nullifierHash, verifierDID), proofID, 0).Result()
	if err != nil {
		return false, fmt.Errorf("insert nullifier: %w", err)
	}
	return inserted, nil
}
