// Package backend selects and opens the transaction store.
package backend

import (
	"context"

	"dompet/internal/ports"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result is an opened store plus the function that closes it.
type Result struct {
	Store ports.Store
	// Pinger is set when the store has a liveness check.
	Pinger  Pinger
	Cleanup CleanupFunc
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
