// Package store provides the expiring key-value store backing the peer directory.
package store

import (
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a key is absent or its TTL has elapsed.
var ErrKeyNotFound = errors.New("key not found")

// Store is an expiring key-value store.
// Backend failures are returned wrapped in errors.ErrBackendUnavailable rather than panicking.
type Store interface {
	// Set writes value under key, replacing any existing value.
	// A ttl <= 0 stores the value without expiry.
	Set(key string, value []byte, ttl time.Duration) error

	// Replace writes value under key only when the key currently exists, otherwise ErrKeyNotFound is returned.
	Replace(key string, value []byte, ttl time.Duration) error

	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(key string) ([]byte, error)

	// Delete removes key, deleting a missing key is not an error.
	Delete(key string) error

	// Keys returns the sorted live keys starting with prefix, e.g. "peer:".
	// Everything after the prefix is opaque, so keys may contain any byte.
	Keys(prefix string) ([]string, error)

	// Close releases the store's resources.
	Close() error
}
