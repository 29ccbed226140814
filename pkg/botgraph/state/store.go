// Package state persists small per-node string blobs across restarts.
//
// Nodes opt in by implementing the OnLoad/OnExit hooks; the engine hands them
// the configured Store together with their registered name. A blob is opaque
// to the store.
package state

import (
	"errors"
	"fmt"
	"time"
)

// Store persists node state.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores the blob for a node, replacing any previous value.
	Save(name, blob string) error

	// Load retrieves a node's blob.
	// Returns ErrNotFound if nothing was saved for name.
	Load(name string) (string, error)

	// List returns metadata for every stored blob, ordered by name.
	List() ([]Info, error)

	// Delete removes a node's blob. Returns nil if it doesn't exist.
	Delete(name string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info describes a stored blob without loading it.
type Info struct {
	Name      string
	UpdatedAt time.Time
	Size      int64
}

// Sentinel errors for state operations.
var (
	// ErrNotFound indicates no blob exists for the node.
	ErrNotFound = errors.New("state not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("state store closed")

	// ErrInvalidName indicates a node name that cannot be used as a key.
	ErrInvalidName = errors.New("invalid state name")

	// ErrUnknownDriver indicates Open was given an unsupported driver.
	ErrUnknownDriver = errors.New("unknown state driver")
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open builds a store from a driver name and a driver-specific location:
// a directory for "file", a database path for "sqlite", a DSN for "postgres".
// "memory" ignores location.
func Open(driver, location string) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile:
		return NewFileStore(location)
	case DriverSQLite:
		return NewSQLiteStore(location)
	case DriverPostgres:
		return NewPostgresStore(location)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	return nil
}
