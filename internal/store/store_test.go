// ABOUTME: Tests for SQLite store initialization and schema migrations.
// ABOUTME: Verifies database setup, table creation and idempotent reopening.

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "xylen.db"), nil)
	require.NoError(t, err, "create test database")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore_CreatesTables(t *testing.T) {
	s := setupTestDB(t)

	for _, table := range []string{"schema_migrations", "request_logs", "api_calls"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s not found", table)
	}

	version, err := s.SchemaVersion(t.Context())
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
	assert.NoError(t, s.Ping(t.Context()))
}

func TestNewStore_ReopenSkipsAppliedMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xylen.db")

	s, err := New(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.LogRequest(t.Context(), &RequestLog{Method: "GET", Path: "/", StatusCode: 200}))
	require.NoError(t, s.Close())

	s, err = New(path, nil)
	require.NoError(t, err)
	defer s.Close()

	var applied int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, len(migrations), applied)

	logs, err := s.GetRequestLogs(t.Context(), &RequestLogQuery{})
	require.NoError(t, err)
	assert.Len(t, logs, 1, "data survives reopen")
}

func TestNewStore_BadPath(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "dir", "xylen.db"), nil)
	assert.Error(t, err)
}
