package state

import "time"

// Store defines the interface for sync-state operations. Consumers should
// depend on this interface rather than the concrete *DB type to facilitate
// testing with fakes.
type Store interface {
	Checksums() (map[string]string, error)
	Binding(path string) (string, error)
	RecordSync(path, checksum, externalID string, at time.Time) error
	Forget(path string) error
	All() ([]Row, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
