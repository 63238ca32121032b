// Package storage gives path-confined access to the catalog directory,
// where seed documents are read and exports are written.
package storage

import "time"

// FileInfo describes a stored file.
type FileInfo struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the interface for catalog file operations. Paths are
// relative to the provider root.
type Provider interface {
	// Root returns the absolute directory backing the provider.
	Root() string
	// Stat returns the checksum and modification time of path.
	Stat(path string) (FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path.
	Write(path string, content []byte) error
}
