// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"onehandcoder/db"
	"onehandcoder/internal/config"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// SetupTestDatabase opens a schema-initialized SQLite database in a temp dir.
func SetupTestDatabase(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	testDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=10000&_foreign_keys=on")
	require.NoError(t, err)
	require.NoError(t, db.InitializeSchema(testDB))

	t.Cleanup(func() { testDB.Close() })
	return testDB
}

// SetupTestUserRepository returns a SQLite-backed user repository.
func SetupTestUserRepository(t *testing.T) db.UserRepository {
	t.Helper()
	factory := db.NewRepositoryFactory(SetupTestDatabase(t), nil, "onehandcoder_test")
	return factory.NewUserRepository()
}

// SetupTestDBManager returns a manager stopped at test cleanup.
func SetupTestDBManager(t *testing.T) *db.DBManager {
	t.Helper()
	manager := db.NewDBManager()
	t.Cleanup(manager.Stop)
	return manager
}

func GetTestConfig() *config.Config {
	return &config.Config{
		JwtKey:       []byte("test_jwt_secret_key_for_testing_only"),
		TokenTTL:     6 * time.Hour,
		DatabaseType: config.SQLite,
		SQLitePath:   ":memory:",
		DatabaseName: "onehandcoder_test",
		Port:         "0",
		FrontendURL:  "*",
		LogFormat:    "text",
	}
}
