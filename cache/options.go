package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultShards is the shard count used when Options.Shards is not set.
const DefaultShards = 128

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictTTL - expired entry discovered and dropped by a read (lazy removal).
	EvictTTL EvictReason = iota
	// EvictSweep - expired entry reclaimed by Evict / the background sweeper.
	EvictSweep
)

// String returns a stable label for the reason.
func (r EvictReason) String() string {
	switch r {
	case EvictTTL:
		return "ttl"
	case EvictSweep:
		return "sweep"
	default:
		return "unknown"
	}
}

// HashStrategy selects the function that routes keys to shards.
// It is fixed at construction; changing it would silently move keys
// to other shards.
type HashStrategy int

const (
	// HashResistant routes with SipHash-2-4 under a random per-store key.
	// Safe for untrusted keys: an attacker cannot pile keys into one shard.
	HashResistant HashStrategy = iota
	// HashFast routes with xxHash64. Use only for trusted input.
	HashFast
)

// String implements fmt.Stringer.
func (h HashStrategy) String() string {
	switch h {
	case HashResistant:
		return "resistant"
	case HashFast:
		return "fast"
	default:
		return fmt.Sprintf("HashStrategy(%d)", int(h))
	}
}

// ParseHashStrategy parses "resistant" (or "sip") and "fast" (or "xxhash").
func ParseHashStrategy(s string) (HashStrategy, error) {
	switch s {
	case "resistant", "sip", "siphash":
		return HashResistant, nil
	case "fast", "xxhash":
		return HashFast, nil
	}
	return 0, fmt.Errorf("cache: unknown hash strategy %q (use resistant or fast)", s)
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
// Evict is called under the shard lock; keep implementations cheap.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int, bytes int64)
	ShardFailed(shard int)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Loader fetches a value on cache miss. A zero expiry stores the value
// without expiration.
type Loader func(ctx context.Context, key []byte) (value []byte, expiry time.Time, err error)

// Options configures the store. Zero values are safe;
// defaults are applied in New():
//   - Shards <= 0        => DefaultShards (128)
//   - Hash zero value    => HashResistant
//   - nil Metrics        => NoopMetrics
//   - nil Logger         => discard
//   - EvictWorkers <= 0  => GOMAXPROCS
type Options struct {
	// Shards is the number of independently locked partitions.
	// Any positive count works; powers of two route with a mask.
	Shards int

	// Hash picks the routing hash. See HashStrategy.
	Hash HashStrategy

	// RemoveExpiredOnRead makes Get delete an expired entry it finds, in the
	// same critical section. Off by default: Get then takes only a read lock,
	// hides expired entries, and leaves them to Evict (and GetUnchecked).
	RemoveExpiredOnRead bool

	// SweepInterval > 0 starts a background goroutine that calls Evict
	// at this period until Close.
	SweepInterval time.Duration

	// EvictWorkers bounds the number of shards swept concurrently by EvictContext.
	EvictWorkers int

	// Loader is used by GetOrLoad on miss.
	Loader Loader

	// OnEvict is called for every expiry-driven removal, under the shard lock,
	// with copies of the key and value. Explicit Remove does not trigger it.
	//
	// The shard lock is not reentrant: calling back into the store for any
	// key on the same shard (Get, Set, Remove, Evict) from OnEvict deadlocks.
	// Keep the callback short and hand work off to another goroutine if it
	// needs the store. A panic in OnEvict breaks the shard.
	OnEvict func(key, value []byte, reason EvictReason)

	// Observability.
	Metrics Metrics
	Logger  *slog.Logger

	// Clock allows overriding the time source (tests). Nil => time.Now().
	Clock Clock
}
