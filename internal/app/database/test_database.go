package database

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SetupTestDB returns a migrated database for a test. It uses postgres when
// TEST_DB_CONNECTION_STRING is set and a private in-memory sqlite otherwise.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	config := DatabaseConfig{
		Driver:           DriverSqlite,
		ConnectionString: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		RunMigrations:    true,
	}
	if conn := os.Getenv("TEST_DB_CONNECTION_STRING"); conn != "" {
		config.Driver = DriverPostgres
		config.ConnectionString = conn
	}

	db, err := Open(config, nil)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if config.Driver == DriverPostgres {
		if err := db.Exec("DELETE FROM nullifier_records").Error; err != nil {
			t.Fatalf("Failed to clean nullifier_records: %v", err)
		}
		if err := db.Exec("DELETE FROM credential_records").Error; err != nil {
			t.Fatalf("Failed to clean credential_records: %v", err)
		}
	}

	t.Cleanup(func() {
		if err := Close(db); err != nil {
			t.Errorf("Failed to close database connection: %v", err)
		}
	})
	return db
}
