package database

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/yourusername/fop-engine/internal/config"
)

// TestDatabaseEnv names the variable that enables integration tests. Its
// value is the database host; the other settings follow the FOP_ENGINE_TEST_DB_* variables.
const TestDatabaseEnv = "FOP_ENGINE_TEST_DB_HOST"

// SetupTestDB connects to the integration database with a fresh schema, or
// skips the test when none is configured.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()
	host := os.Getenv(TestDatabaseEnv)
	if host == "" {
		t.Skipf("integration test: set %s to run", TestDatabaseEnv)
	}

	port, _ := strconv.Atoi(envOr("FOP_ENGINE_TEST_DB_PORT", "5432"))
	cfg := &config.DatabaseConfig{
		Driver:   "postgres",
		Host:     host,
		Port:     port,
		Name:     envOr("FOP_ENGINE_TEST_DB_NAME", "fop_engine_test"),
		User:     envOr("FOP_ENGINE_TEST_DB_USER", "postgres"),
		Password: os.Getenv("FOP_ENGINE_TEST_DB_PASSWORD"),
		SSLMode:  "disable",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := NewDB(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE athletes, groups, categories"); err != nil {
		db.Close()
		t.Fatalf("failed to truncate test tables: %v", err)
	}

	t.Cleanup(db.Close)
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
