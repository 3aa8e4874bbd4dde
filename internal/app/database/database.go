package database

import (
	"fmt"
	"strings"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/model"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
)

type DatabaseConfigJson struct {
	Driver           string `json:"driver"`
	ConnectionString string `json:"connection_string"`
	RunMigrations    bool   `json:"run_migrations"`
}

type DatabaseConfig struct {
	Driver           string
	ConnectionString string
	RunMigrations    bool
}

func (dcj DatabaseConfigJson) ConvertToDomain() DatabaseConfig {
	driver := strings.ToLower(strings.TrimSpace(dcj.Driver))
	if driver == "" {
		driver = DriverPostgres
	}
	return DatabaseConfig{
		Driver:           driver,
		ConnectionString: dcj.ConnectionString,
		RunMigrations:    dcj.RunMigrations,
	}
}

func (dc DatabaseConfig) Enabled() bool {
	return dc.ConnectionString != ""
}

func dialector(config DatabaseConfig) (gorm.Dialector, error) {
	switch config.Driver {
	case DriverPostgres:
		return postgres.Open(config.ConnectionString), nil
	case DriverSqlite:
		return sqlite.Open(config.ConnectionString), nil
	default:
		return nil, fmt.Errorf("unsupported database driver '%s'", config.Driver)
	}
}

// Open connects to the configured database and runs migrations when asked to.
func Open(config DatabaseConfig, l *logger.Logger) (*gorm.DB, error) {
	l = logger.OrDefault(l)

	d, err := dialector(config)
	if err != nil {
		return nil, err
	}

	l.Infof("Establishing connection to %s database...", config.Driver)
	db, err := gorm.Open(d, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", config.Driver, err)
	}

	if config.Driver == DriverSqlite {
		// sqlite allows a single writer
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if config.RunMigrations {
		l.Info("Running migrations for tables...")
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		l.Info("All tables created (or already exist).")
	}

	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.NullifierRecord{},
		&model.CredentialRecord{},
	)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
