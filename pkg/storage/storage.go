// Package storage is the document datastore behind every repository: a flat
// key/value namespace of small documents addressed by slash separated paths.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested path does not exist in storage.
var ErrNotFound = errors.New("not found")

// ErrInvalidPath is returned for paths that escape the storage root.
var ErrInvalidPath = errors.New("invalid path")

// ErrConflict is returned by WriteIfVersion when the document changed since
// the version was read.
var ErrConflict = errors.New("version conflict")

// Storage provides an abstraction over key-value style document storage.
type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	// ReadVersion is Read plus an opaque token identifying the revision read.
	ReadVersion(ctx context.Context, path string) ([]byte, string, error)
	Write(ctx context.Context, path string, data []byte) error
	// WriteIfVersion replaces an existing document only if it is still at
	// version, and fails with ErrConflict otherwise.
	WriteIfVersion(ctx context.Context, path string, data []byte, version string) error
	Delete(ctx context.Context, path string) error
	// List returns the document paths directly under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, path string) (bool, error)
}
