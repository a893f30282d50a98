package ports

import (
	"context"
)

// KeyValueStore defines the interface for the persisted blocklist storage.
// Values are string sets; order is not preserved.
type KeyValueStore interface {
	// Get returns the values stored under key, or an empty slice when the
	// key is absent
	Get(ctx context.Context, key string) ([]string, error)

	// Set replaces the values stored under key
	Set(ctx context.Context, key string, values []string) error

	// Close releases the underlying connection
	Close() error
}
