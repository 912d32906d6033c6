package cache

import (
	"context"
	"time"
)

// Cache is the public contract of a sharded byte cache.
// All methods are safe for concurrent use by multiple goroutines.
//
// Keys and values are opaque byte slices. The cache copies them on the way
// in and out, so callers may reuse their buffers after a call returns.
// A miss is never an error: reads report presence with a bool and only
// return an error when the owning shard is broken or the cache is closed.
type Cache interface {
	// Set inserts or overwrites key→value. A zero expiry never expires.
	Set(key, value []byte, expiry time.Time) error

	// Update overwrites key→value unconditionally; it is an alias for Set.
	Update(key, value []byte, expiry time.Time) error

	// SetWithTTL inserts or overwrites key→value with a relative expiry.
	// A non-positive ttl disables expiration for this entry.
	SetWithTTL(key, value []byte, ttl time.Duration) error

	// Get returns the value for key if present and not expired.
	// Expired entries read as a miss (and are removed with RemoveExpiredOnRead).
	Get(key []byte) ([]byte, bool, error)

	// GetUnchecked returns the stored value ignoring expiry.
	GetUnchecked(key []byte) ([]byte, bool, error)

	// GetKeyValue is Get that also returns an owned copy of the key.
	GetKeyValue(key []byte) (k, v []byte, ok bool, err error)

	// GetKeyValueUnchecked is GetUnchecked that also returns an owned copy of the key.
	GetKeyValueUnchecked(key []byte) (k, v []byte, ok bool, err error)

	// Remove deletes key if present and returns true on success.
	Remove(key []byte) (bool, error)

	// Evict removes all expired entries and returns how many were removed.
	Evict() (int, error)

	// EvictContext is Evict with shards swept in parallel; cancelling ctx
	// stops scheduling further shards.
	EvictContext(ctx context.Context) (int, error)

	// GetOrLoad returns the value for key, loading it via Options.Loader on miss.
	// Concurrent loads for the same key are coalesced (singleflight).
	// If no Loader was configured, returns ErrNoLoader.
	GetOrLoad(ctx context.Context, key []byte) ([]byte, error)

	// Len returns the number of resident entries across all shards.
	Len() int

	// Close stops background workers (if any) and marks the cache closed.
	Close() error
}
