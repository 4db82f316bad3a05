package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Row is one document's sync-state record.
type Row struct {
	Path         string
	Checksum     string
	ExternalID   string
	LastSyncedAt time.Time
}

// Checksums returns every recorded path→checksum pair. An empty map on a
// fresh database is what makes the change-set resolver fall back to a
// full-corpus pass.
func (db *DB) Checksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("state: checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Binding returns the bound external id for path, or "" when the document
// has never been created remotely.
func (db *DB) Binding(path string) (string, error) {
	var id string
	err := db.conn.QueryRow(`SELECT external_id FROM documents WHERE path = ?`, path).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("state: binding %s: %w", path, err)
	}
	return id, nil
}

// RecordSync upserts a document's checksum and binding after a successful
// create or update.
func (db *DB) RecordSync(path, cs, externalID string, at time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO documents (path, checksum, external_id, last_synced_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum       = excluded.checksum,
			external_id    = excluded.external_id,
			last_synced_at = excluded.last_synced_at
	`, path, cs, externalID, at)
	if err != nil {
		return fmt.Errorf("state: record sync %s: %w", path, err)
	}
	return nil
}

// Forget removes a document's state row. Called when the source file
// disappears from the corpus; the remote record is left alone.
func (db *DB) Forget(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("state: forget %s: %w", path, err)
	}
	return nil
}

// All returns every state row ordered by path.
func (db *DB) All() ([]Row, error) {
	rows, err := db.conn.Query(`
		SELECT path, checksum, external_id, last_synced_at
		FROM documents ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("state: all: %w", err)
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var r Row
		var at sql.NullTime
		if err := rows.Scan(&r.Path, &r.Checksum, &r.ExternalID, &at); err != nil {
			return nil, err
		}
		if at.Valid {
			r.LastSyncedAt = at.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
