// Package testdb provides helpers for Postgres-backed store tests. It depends
// only on database/sql and goose, never on specific store implementations,
// and every helper skips the test when no test database is configured.
package testdb

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds individual test database operations.
const TestTimeout = 5 * time.Second

// envVars are checked in order for the test database URL.
var envVars = []string{"DATABASE_URL", "FORGE_TEST_DB_URL"}

// URL returns the configured test database URL, or an empty string when
// integration tests cannot run.
func URL() string {
	for _, name := range envVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// MustOpen opens the test database and applies migrations, skipping the test
// when no database is configured. The connection is closed on test cleanup.
func MustOpen(t *testing.T) *sql.DB {
	t.Helper()

	url := URL()
	if url == "" {
		t.Skip("no test database configured, set DATABASE_URL or FORGE_TEST_DB_URL")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Ping(), "failed to ping test database")
	migrate(t, db)
	return db
}

// migrate applies all goose migrations to the test database.
func migrate(t *testing.T, db *sql.DB) {
	t.Helper()

	root, err := findProjectRoot()
	require.NoError(t, err, "failed to find project root")

	migrationsDir := filepath.Join(root, "internal", "platform", "postgres", "migrations")
	require.DirExists(t, migrationsDir, "migrations directory does not exist: %s", migrationsDir)

	goose.SetLogger(&testGooseLogger{t: t})
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, migrationsDir), "failed to run migrations")
}

// WithTx runs the test function inside a transaction that is always rolled
// back, so tests never leak rows into each other.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "failed to begin transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Errorf("failed to roll back test transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// findProjectRoot walks up from the working directory until it finds go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// testGooseLogger routes goose output through the test log.
type testGooseLogger struct {
	t *testing.T
}

func (l *testGooseLogger) Fatalf(format string, v ...interface{}) { l.t.Fatalf(format, v...) }
func (l *testGooseLogger) Printf(format string, v ...interface{}) { l.t.Logf(format, v...) }
