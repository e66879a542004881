// Package blob defines the key-value store that persists savedeck state as
// whole JSON documents.
package blob

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned when a key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// Store persists opaque JSON documents under string keys. Every write replaces
// the whole document; there are no partial updates.
type Store interface {
	// Get returns the document stored under key. Returns ErrKeyNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the document stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}
