package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the requested key has no stored entry.
	ErrNotFound = errors.New("cache entry not found")
)

// Store is the backing-store port for serialized cache entries.
// The Manager owns serialization and expiry; a Store only moves bytes.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the stored bytes for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores data under key, replacing any previous value.
	// Stores with native expiration may use ttl as a hint; others
	// ignore it (the Manager checks expiry from the entry itself).
	Put(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes the entry for key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// Keys lists all currently stored keys.
	Keys(ctx context.Context) ([]string, error)

	// Clear removes all entries. Never fails on an empty store.
	Clear(ctx context.Context) error
}
