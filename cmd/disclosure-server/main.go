package main

import (
	"fmt"
	"strings"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/backend"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/catalog"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/credentials"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/database"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/generator"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/handlers"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/nullifier"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/proofcache"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/verifier"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/workers"
	appbuilder "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/app_builder"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/rabbitmq"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/rest"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities"
	"gorm.io/gorm"
)

const (
	serviceName                = "disclosure-server"
	logPublisherAlias          = "LogPublisher"
	verificationPublisherAlias = "VerificationEventsPublisher"
	defaultConfigPath          = "config.json"
)

type builder = appbuilder.AppBuilder[ServerConfigJson, ServerConfig]

func main() {
	appbuilder.New[ServerConfigJson, ServerConfig]().
		InitLogger(logger.GlobalLoggerConfig{
			Args: []logger.LoggerArg{{Key: "service", Value: serviceName}},
		}).
		ResolveEnvironment().
		LoadConfig(utilities.EnvOr("CONFIG_PATH", defaultConfigPath)).
		InitRabbitmqConnection().
		InitRabbitmqRegistries().
		WithOption(func(a *builder) {
			// ----- RABBITMQ LOGGING SINK -----
			if logPublisher := a.Publishers.GetPublisher(logPublisherAlias); logPublisher != nil {
				logger.AddSinkToLoggerInstance(a.Logger, rabbitmq.CreateRabbitmqLoggerSink(serviceName, logPublisher))
			}
		}).
		WithOption(func(a *builder) {
			engine := a.Config.EngineConf

			// ----- STORAGE -----
			db := openDatabase(a)
			ledger := selectLedger(a, db)
			var store credentials.Store = credentials.NewMemoryStore()
			if db != nil {
				store = credentials.NewGormStore(db)
			}

			// ----- ENGINE -----
			circuits, err := loadCatalog(engine.CatalogPath)
			if err != nil {
				a.Logger.Panic(err, "Could not load circuit catalog")
			}
			a.Logger.Infof("Loaded %d circuits", len(circuits.Circuits()))

			prover := backend.NewGnarkBackend(backend.GnarkOptions{
				AllowEphemeralSetup: engine.AllowEphemeralSetup,
				PersistKeys:         engine.PersistKeys,
			}, a.Logger)

			cache := proofcache.New(proofcache.Options{Size: engine.CacheSize, DefaultTTL: engine.CacheTTL})
			sweepWorker := proofcache.NewSweepWorker(cache, engine.CacheSweepSchedule, a.Logger)

			gen := generator.New(generator.Config{
				Catalog:             circuits,
				Backend:             prover,
				Cache:               cache,
				CacheTTL:            engine.CacheTTL,
				ProvingTimeout:      engine.ProvingTimeout,
				DevelopmentFallback: engine.DevelopmentFallback,
				Logger:              a.Logger,
			})
			if engine.DevelopmentFallback {
				a.Logger.Warn("Development fallback enabled, placeholder proofs may be issued")
			}

			v := verifier.New(verifier.Config{
				Catalog:   circuits,
				Backend:   prover,
				Ledger:    ledger,
				Publisher: a.Publishers.GetPublisher(verificationPublisherAlias),
				Logger:    a.Logger,
			})

			// ----- WORKERS -----
			verifyWorker := workers.NewVerifyWorker(
				v,
				a.Consumers.GetConsumer(workers.VerifyRequestsConsumerAlias),
				a.Publishers.GetPublisher(workers.VerifyFailuresPublisherAlias),
				a.Logger,
			)
			a.AddWorkerServices(sweepWorker, verifyWorker)

			// ----- ROUTES -----
			h := handlers.NewHandler(handlers.Config{
				Generator:   gen,
				Verifier:    v,
				Catalog:     circuits,
				Backend:     prover,
				Credentials: store,
				RequestTTL:  engine.RequestTTL,
				Logger:      a.Logger,
			})
			a.AddGinRoutes(h.Routes()...)
		}).
		AddGinMiddleware(
			rest.NewMiddleware(rest.GlobalGroup, rest.CORSMiddleware()),
			rest.NewMiddleware(rest.GlobalGroup, rest.RequestLogger(nil)),
		).
		InitGinRouter().
		Build().
		Start()
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

func openDatabase(a *builder) *gorm.DB {
	config := a.Config.DatabaseConf
	if !config.Enabled() {
		a.Logger.Warn("Database not configured, using in-memory stores")
		return nil
	}

	db, err := database.Open(config, a.Logger)
	if err != nil {
		a.Logger.Panic(err, "Could not connect to database")
	}
	a.OnClose(func() error { return database.Close(db) })
	return db
}

func selectLedger(a *builder, db *gorm.DB) nullifier.Ledger {
	kind := strings.ToLower(a.Config.EngineConf.Ledger)
	if kind == "" {
		switch {
		case db != nil:
			kind = LedgerDatabase
		case a.Config.RedisConf.Enabled():
			kind = LedgerRedis
		default:
			kind = LedgerMemory
		}
	}

	switch kind {
	case LedgerDatabase:
		if db == nil {
			a.Logger.Panic(fmt.Errorf("ledger %q requires a database", kind), "Invalid engine config")
		}
		a.Logger.Info("Using database nullifier ledger")
		return nullifier.NewGormLedger(db)
	case LedgerRedis:
		client := nullifier.NewRedisClient(a.Config.RedisConf)
		a.OnClose(client.Close)
		a.Logger.Infof("Using redis nullifier ledger at %s", a.Config.RedisConf.Addr)
		return nullifier.NewRedisLedger(client)
	case LedgerMemory:
		a.Logger.Warn("Using in-memory nullifier ledger, replay protection resets on restart")
		return nullifier.NewMemoryLedger()
	default:
		a.Logger.Panic(fmt.Errorf("unknown ledger %q", kind), "Invalid engine config")
		return nil
	}
}
