// Package state provides the SQLite-backed sync-state database: per-document
// checksums for delta detection and external-record identifier bindings.
package state

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	path           TEXT PRIMARY KEY,
	checksum       TEXT NOT NULL DEFAULT '',
	external_id    TEXT NOT NULL DEFAULT '',
	last_synced_at DATETIME
);
`

// DB wraps a sql.DB with sync-state operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("state: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("state: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("state: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database.
func (db *DB) Close() error {
	return db.conn.Close()
}
