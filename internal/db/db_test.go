// internal/db/db_test.go
package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB(t *testing.T) {
	path := t.TempDir() + "/test.db"
	database, err := New(path)
	if err != nil {
		t.Fatalf("failed to create db: %v", err)
	}
	defer database.Close()

	// Verify WAL mode is enabled
	var journalMode string
	err = database.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected journal_mode=wal, got %s", journalMode)
	}
}

func TestDSNAppendsPragmas(t *testing.T) {
	assert.Equal(t,
		"data.db?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		dsn("data.db"))
	assert.Contains(t, dsn("file:data.db?mode=rwc"), "mode=rwc&_pragma=journal_mode(WAL)")
}

func setupTestDB(t *testing.T) (*DB, func()) {
	path := t.TempDir() + "/test.db"
	database, err := New(path)
	if err != nil {
		t.Fatalf("failed to create db: %v", err)
	}
	err = database.RunMigrations()
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return database, func() { database.Close() }
}

func TestLinkTablesExist(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	for _, table := range []string{"auth_users", "auth_sessions", "token_requests", "token_storage"} {
		var n int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "%s table should exist", table)
	}

	// token_storage rows must point at an existing user
	_, err := db.Exec(`INSERT INTO token_storage (id, user_id, account_id, access_token, created_at, updated_at)
		VALUES ('link-1', 'missing-user', 'g-1', 'tok', datetime('now'), datetime('now'))`)
	assert.Error(t, err) // FK constraint
}

func TestTokenStorageAccountIDUnique(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := db.Exec(`INSERT INTO auth_users (id, username, encrypted_password) VALUES ('u1', 'name-1', 'x'), ('u2', 'name-2', 'x')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO token_storage (id, user_id, account_id, access_token, created_at, updated_at)
		VALUES ('l1', 'u1', 'g-1', 'tok', datetime('now'), datetime('now'))`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO token_storage (id, user_id, account_id, access_token, created_at, updated_at)
		VALUES ('l2', 'u2', 'g-1', 'tok', datetime('now'), datetime('now'))`)
	assert.Error(t, err)
}

func TestPrivilegedHandle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	h := db.Privileged()
	ctx := context.Background()

	_, err := h.ExecContext(ctx, "INSERT INTO token_requests (id, created_at) VALUES (?, datetime('now'))", "req-1")
	require.NoError(t, err)

	var id string
	require.NoError(t, h.QueryRowContext(ctx, "SELECT id FROM token_requests WHERE id = ?", "req-1").Scan(&id))
	assert.Equal(t, "req-1", id)

	rows, err := h.QueryContext(ctx, "SELECT id FROM token_requests")
	require.NoError(t, err)
	defer rows.Close()
	assert.True(t, rows.Next())
}
