// internal/db/db.go
package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// busyTimeoutMS is how long a writer waits on a locked database before
// SQLite reports SQLITE_BUSY. Concurrent first-time logins write to the
// same tables, so writers must queue rather than fail.
const busyTimeoutMS = 5000

type DB struct {
	*sql.DB
}

// New opens (or creates) the SQLite database at path. Pragmas go through the
// DSN so every pooled connection gets them, not just the first one.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{db}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)",
		path, sep, busyTimeoutMS)
}
