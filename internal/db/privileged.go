package db

import (
	"context"
	"database/sql"
)

// PrivilegedHandle is the capability required to touch the owner-only
// tables (auth_users, token_requests, token_storage). Only the account
// store receives one; route handlers never do.
type PrivilegedHandle struct {
	db *DB
}

// Privileged returns the elevated handle for this database.
func (db *DB) Privileged() *PrivilegedHandle {
	return &PrivilegedHandle{db: db}
}

// ExecContext runs a statement with owner privilege.
func (h *PrivilegedHandle) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return h.db.ExecContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query with owner privilege.
func (h *PrivilegedHandle) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return h.db.QueryRowContext(ctx, query, args...)
}

// QueryContext runs a query with owner privilege.
func (h *PrivilegedHandle) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return h.db.QueryContext(ctx, query, args...)
}
