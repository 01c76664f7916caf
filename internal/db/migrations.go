// internal/db/migrations.go
package db

import "fmt"

const authSchema = `
CREATE TABLE IF NOT EXISTS auth_users (
    id                    TEXT PRIMARY KEY,
    username              TEXT UNIQUE NOT NULL,
    encrypted_password    TEXT NOT NULL,
    email                 TEXT,
    first_name            TEXT,
    last_name             TEXT,
    account_type          TEXT,
    acl                   TEXT DEFAULT '{}' CHECK (json_valid(acl)),
    last_sign_in_at       TEXT,
    created_at            TEXT DEFAULT (datetime('now')),
    updated_at            TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS auth_sessions (
    id            TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL REFERENCES auth_users(id) ON DELETE CASCADE,
    created_at    TEXT DEFAULT (datetime('now')),
    aal           TEXT DEFAULT 'aal1'
);

CREATE INDEX IF NOT EXISTS idx_auth_sessions_user_id ON auth_sessions(user_id);
`

// linkSchema holds the owner-only collections of the Google login flow.
// The UNIQUE constraint on token_storage.account_id is what keeps a single
// link per external account when two first-time logins race.
const linkSchema = `
CREATE TABLE IF NOT EXISTS token_requests (
    id          TEXT PRIMARY KEY,
    acl         TEXT DEFAULT '{}' CHECK (json_valid(acl)),
    created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_token_requests_created_at ON token_requests(created_at);

CREATE TABLE IF NOT EXISTS token_storage (
    id            TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL REFERENCES auth_users(id) ON DELETE CASCADE,
    account_id    TEXT NOT NULL UNIQUE,
    access_token  TEXT NOT NULL,
    acl           TEXT DEFAULT '{}' CHECK (json_valid(acl)),
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_token_storage_user_id ON token_storage(user_id);
`

func (db *DB) RunMigrations() error {
	_, err := db.Exec(authSchema)
	if err != nil {
		return fmt.Errorf("failed to run auth migrations: %w", err)
	}

	_, err = db.Exec(linkSchema)
	if err != nil {
		return fmt.Errorf("failed to run link migrations: %w", err)
	}

	return nil
}
