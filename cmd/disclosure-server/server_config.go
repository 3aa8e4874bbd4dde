package main

import (
	"time"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/database"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/nullifier"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/rabbitmq"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities"
)

const (
	LedgerMemory   = "memory"
	LedgerDatabase = "database"
	LedgerRedis    = "redis"
)

type ServerConfigJson struct {
	LoggerConf   logger.LoggerConfigJson     `json:"logger"`
	RabbitmqConf rabbitmq.RabbimqConfigJson  `json:"rabbitmq"`
	RestConf     ServerRestConfigJson        `json:"rest"`
	DatabaseConf database.DatabaseConfigJson `json:"database"`
	RedisConf    nullifier.RedisConfigJson   `json:"redis"`
	EngineConf   EngineConfigJson            `json:"engine"`
}

func (scj ServerConfigJson) ConvertToDomain() ServerConfig {
	databaseConf := scj.DatabaseConf.ConvertToDomain()
	databaseConf.ConnectionString = utilities.EnvOr("DB_CONNECTION_STRING", databaseConf.ConnectionString)

	return ServerConfig{
		LoggerConf:   scj.LoggerConf.ConvertToDomain(),
		RabbitmqConf: scj.RabbitmqConf.ConvertToDomain(),
		RestConf:     scj.RestConf.ConvertToDomain(),
		DatabaseConf: databaseConf,
		RedisConf:    scj.RedisConf.ConvertToDomain(),
		EngineConf:   scj.EngineConf.ConvertToDomain(),
	}
}

type ServerConfig struct {
	LoggerConf   logger.LoggerConfig
	RabbitmqConf rabbitmq.RabbitmqConfig
	RestConf     ServerRestConfig
	DatabaseConf database.DatabaseConfig
	RedisConf    nullifier.RedisConfig
	EngineConf   EngineConfig
}

func (sc ServerConfig) GetLoggerConfig() logger.LoggerConfig {
	return sc.LoggerConf
}

func (sc ServerConfig) GetRabbitmqConfig() rabbitmq.RabbitmqConfig {
	return sc.RabbitmqConf
}

func (sc ServerConfig) GetRestApiPort() uint16 {
	return sc.RestConf.Port
}

type ServerRestConfigJson struct {
	Port uint16 `json:"port"`
}

type ServerRestConfig struct {
	Port uint16
}

func (srcj ServerRestConfigJson) ConvertToDomain() ServerRestConfig {
	return ServerRestConfig{
		Port: utilities.Ternary(srcj.Port == 0, uint16(9000), srcj.Port),
	}
}

type EngineConfigJson struct {
	CatalogPath         string `json:"catalog_path"`
	ProvingTimeoutMs    int    `json:"proving_timeout_ms"`
	DevelopmentFallback bool   `json:"development_fallback"`
	AllowEphemeralSetup bool   `json:"allow_ephemeral_setup"`
	PersistKeys         bool   `json:"persist_keys"`
	CacheTtlSeconds     int    `json:"cache_ttl_seconds"`
	CacheSize           int    `json:"cache_size"`
	CacheSweepSchedule  string `json:"cache_sweep_schedule"`
	RequestTtlSeconds   int    `json:"request_ttl_seconds"`
	Ledger              string `json:"ledger"`
}

type EngineConfig struct {
	CatalogPath         string
	ProvingTimeout      time.Duration
	DevelopmentFallback bool
	AllowEphemeralSetup bool
	PersistKeys         bool
	CacheTTL            time.Duration
	CacheSize           int
	CacheSweepSchedule  string
	RequestTTL          time.Duration
	// Ledger is one of memory, database or redis; empty picks the first
	// configured store.
	Ledger string
}

func (ecj EngineConfigJson) ConvertToDomain() EngineConfig {
	return EngineConfig{
		CatalogPath:         ecj.CatalogPath,
		ProvingTimeout:      time.Duration(ecj.ProvingTimeoutMs) * time.Millisecond,
		DevelopmentFallback: ecj.DevelopmentFallback,
		AllowEphemeralSetup: ecj.AllowEphemeralSetup,
		PersistKeys:         ecj.PersistKeys,
		CacheTTL:            time.Duration(ecj.CacheTtlSeconds) * time.Second,
		CacheSize:           ecj.CacheSize,
		CacheSweepSchedule:  ecj.CacheSweepSchedule,
		RequestTTL:          time.Duration(ecj.RequestTtlSeconds) * time.Second,
		Ledger:              ecj.Ledger,
	}
}
