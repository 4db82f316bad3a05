// Package storage defines the corpus file-system abstraction.
package storage

import "time"

// DocumentInfo is the lightweight per-file record returned by List.
type DocumentInfo struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the interface for corpus file operations.
type Provider interface {
	// List returns info for every .md file under the corpus root,
	// in lexicographic path order.
	List() ([]DocumentInfo, error)
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the root).
	// Used by identifier write-back after a create.
	Write(path string, content []byte) error
}
