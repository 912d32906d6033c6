// Package cache provides a thread-safe, sharded, in-memory key/value store
// for raw byte keys and values with optional per-entry expiry, tuned for
// read-heavy workloads.
//
// Design
//
//   - Concurrency: the keyspace is split into a fixed number of shards
//     (128 by default), each with its own lock and map. An operation locks
//     exactly one shard; Evict walks shards one lock at a time, so there is
//     no global critical section and no lock ordering to get wrong.
//
//   - Routing: a key is hashed once and masked (or reduced modulo) to a shard
//     index. HashResistant (default) uses SipHash with a random per-store key,
//     which keeps untrusted keys from piling into one shard. HashFast uses
//     xxHash and is meant for trusted input. The strategy is fixed for the
//     store's lifetime.
//
//   - Expiry: entries carry an absolute deadline (UnixNano, 0 = never).
//     Get treats an entry as absent from its deadline on; with
//     Options.RemoveExpiredOnRead it also deletes it under the same lock.
//     GetUnchecked returns whatever is stored.
//     Evict / EvictContext reclaim everything that expired using a single time
//     snapshot. Options.SweepInterval runs Evict in the background.
//
//   - Ownership: values are copied on Set and on every read, so no buffer is
//     ever shared between the caller and the store.
//
//   - Failures: a panic inside a shard critical section (for example from an
//     OnEvict callback) breaks that shard. Later operations on it return a
//     *ShardError wrapping ErrLockUnavailable; other shards keep working.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size/ShardFailed signals.
//     By default NoopMetrics is used; metrics/prom exports them to Prometheus.
//
// Basic usage
//
//	s := cache.New(cache.Options{})
//	defer s.Close()
//
//	_ = s.Set([]byte("greeting"), []byte("hello"), time.Time{})
//	v, ok, err := s.Get([]byte("greeting")) // "hello", true, nil
//
// With expiry
//
//	_ = s.SetWithTTL([]byte("tmp"), []byte("v"), 200*time.Millisecond)
//	time.Sleep(300 * time.Millisecond)
//	_, ok, _ = s.Get([]byte("tmp"))          // ok == false
//	_, ok, _ = s.GetUnchecked([]byte("tmp")) // ok == true until evicted
//	n, _ := s.Evict()                        // n == 1
//
// With GetOrLoad (singleflight)
//
//	s := cache.New(cache.Options{
//	    Loader: func(ctx context.Context, k []byte) ([]byte, time.Time, error) {
//	        // e.g. fetch from DB
//	        return append([]byte("v:"), k...), time.Now().Add(time.Minute), nil
//	    },
//	})
//	v, err := s.GetOrLoad(ctx, []byte("key"))
package cache
