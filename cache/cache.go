package cache

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store is a sharded in-memory byte cache with per-entry expiry.
// All methods are safe for concurrent use by multiple goroutines.
// Every operation locks at most one shard at a time.
type Store struct {
	shards []*shard
	router router
	closed atomic.Bool

	opt Options
	log *slog.Logger

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group

	// background sweeper
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ Cache = (*Store)(nil)

// New constructs a Store with the provided Options.
// Defaults:
//   - Shards <= 0  -> DefaultShards (128)
//   - nil Metrics  -> NoopMetrics
//   - nil Logger   -> discard
//
// New panics on an unknown HashStrategy.
func New(opt Options) *Store {
	if opt.Shards <= 0 {
		opt.Shards = DefaultShards
	}
	if opt.Hash != HashResistant && opt.Hash != HashFast {
		panic(fmt.Sprintf("cache: unknown hash strategy %v", opt.Hash))
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.DiscardHandler)
	}
	if opt.EvictWorkers <= 0 {
		opt.EvictWorkers = runtime.GOMAXPROCS(0)
	}

	c := &Store{
		router: newRouter(opt.Hash, opt.Shards),
		opt:    opt,
		log:    opt.Logger.With("component", "cache"),
		stop:   make(chan struct{}),
	}
	// shards are created eagerly and never change
	c.shards = make([]*shard, opt.Shards)
	for i := range c.shards {
		c.shards[i] = newShard(i, &c.opt, c.log)
	}

	if opt.SweepInterval > 0 {
		c.wg.Add(1)
		go c.sweepLoop(opt.SweepInterval)
	}
	return c
}

// ---- writes ----

// Set stores a copy of value under a copy of key, overwriting any previous
// entry. A zero expiry means the entry never expires; an expiry in the past
// is accepted and the entry is immediately invisible to Get.
func (c *Store) Set(key, value []byte, expiry time.Time) error {
	return c.set(key, value, deadline(expiry))
}

// SetWithTTL is Set with an expiry relative to the store clock.
// A non-positive ttl disables expiration for this entry.
func (c *Store) SetWithTTL(key, value []byte, ttl time.Duration) error {
	var exp int64
	if ttl > 0 {
		now := c.now()
		if now > 0 && int64(ttl) > math.MaxInt64-now {
			exp = math.MaxInt64
		} else {
			exp = now + int64(ttl)
		}
	}
	return c.set(key, value, exp)
}

// Update is an alias for Set: overwrites are unconditional.
func (c *Store) Update(key, value []byte, expiry time.Time) error {
	return c.Set(key, value, expiry)
}

func (c *Store) set(key, value []byte, exp int64) error {
	if c.closed.Load() {
		return ErrClosed
	}
	s := c.getShard(key)
	// copy outside the lock to keep the critical section short
	return s.set(string(key), bytes.Clone(value), exp)
}

// Remove deletes key if present and reports whether an entry existed.
// Expired-but-resident entries count as existing.
func (c *Store) Remove(key []byte) (bool, error) {
	if c.closed.Load() {
		return false, ErrClosed
	}
	return c.getShard(key).remove(key)
}

// ---- reads ----

// Get returns a copy of the value for key if it exists and has not expired.
// A miss is (nil, false, nil); only shard failures produce an error.
func (c *Store) Get(key []byte) ([]byte, bool, error) {
	if c.closed.Load() {
		return nil, false, ErrClosed
	}
	s := c.getShard(key)
	v, ok, err := s.get(key, c.now())
	if err != nil {
		return nil, false, err
	}
	if ok {
		s.hits.Add(1)
		c.opt.Metrics.Hit()
	} else {
		s.misses.Add(1)
		c.opt.Metrics.Miss()
	}
	return v, ok, nil
}

// GetUnchecked returns a copy of the stored value even if it has expired.
// It neither compares time nor removes anything.
func (c *Store) GetUnchecked(key []byte) ([]byte, bool, error) {
	if c.closed.Load() {
		return nil, false, ErrClosed
	}
	return c.getShard(key).peek(key)
}

// GetKeyValue is Get returning an owned copy of the key as well.
func (c *Store) GetKeyValue(key []byte) (k, v []byte, ok bool, err error) {
	v, ok, err = c.Get(key)
	if !ok || err != nil {
		return nil, nil, ok, err
	}
	return bytes.Clone(key), v, true, nil
}

// GetKeyValueUnchecked is GetUnchecked returning an owned copy of the key as well.
func (c *Store) GetKeyValueUnchecked(key []byte) (k, v []byte, ok bool, err error) {
	v, ok, err = c.GetUnchecked(key)
	if !ok || err != nil {
		return nil, nil, ok, err
	}
	return bytes.Clone(key), v, true, nil
}

// GetOrLoad returns the value for key; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight).
// Cancelling ctx unblocks only this caller; the running load is not cancelled
// unless this caller started it.
func (c *Store) GetOrLoad(ctx context.Context, key []byte) ([]byte, error) {
	// fast path
	v, ok, err := c.Get(key)
	if err != nil || ok {
		return v, err
	}
	if c.opt.Loader == nil {
		return nil, ErrNoLoader
	}

	k := string(key)
	ch := c.sf.DoChan(k, func() (any, error) {
		kb := []byte(k)
		// double-check after flight join
		if v, ok, err := c.Get(kb); err != nil || ok {
			return v, err
		}
		v, exp, err := c.opt.Loader(ctx, kb)
		if err != nil {
			return nil, err
		}
		if err := c.Set(kb, v, exp); err != nil {
			return nil, err
		}
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// the result is shared between callers
		v, _ := res.Val.([]byte)
		return bytes.Clone(v), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ---- introspection ----

// Len returns the number of physically resident entries, including expired
// entries not yet reclaimed. It takes no locks.
func (c *Store) Len() int {
	total := int64(0)
	for _, s := range c.shards {
		total += s.entries.Load()
	}
	return int(total)
}

// Stats sums the per-shard counters and refreshes the Size metric.
func (c *Store) Stats() Stats {
	var st Stats
	for _, s := range c.shards {
		st.Hits += s.hits.Load()
		st.Misses += s.misses.Load()
		st.Expired += s.expired.Load()
		st.Entries += s.entries.Load()
		st.Bytes += s.bytes.Load()
	}
	c.opt.Metrics.Size(int(st.Entries), st.Bytes)
	return st
}

// ShardFor returns the index of the shard owning key. It is constant for a
// given key over the store's lifetime.
func (c *Store) ShardFor(key []byte) int {
	return c.router.route(key)
}

// Shards returns the fixed shard count.
func (c *Store) Shards() int { return len(c.shards) }

// Close stops the background sweeper (if any) and marks the store closed.
// Later operations return ErrClosed. Close is idempotent.
func (c *Store) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stop)
		c.wg.Wait()
	})
	return nil
}

// ---- helpers ----

func (c *Store) getShard(key []byte) *shard {
	return c.shards[c.router.route(key)]
}

func (c *Store) now() int64 {
	if c.opt.Clock != nil {
		return c.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// UnixNano is only defined between these instants; deadlines saturate to them.
var (
	minDeadline = time.Unix(0, 1)
	maxDeadline = time.Unix(0, math.MaxInt64)
)

// deadline converts an absolute expiry into UnixNano. Zero time means no
// expiration. Instants before the epoch clamp to 1 (already past) and
// instants beyond 2262 clamp to MaxInt64.
func deadline(t time.Time) int64 {
	switch {
	case t.IsZero():
		return 0
	case t.Before(minDeadline):
		return 1
	case t.After(maxDeadline):
		return math.MaxInt64
	}
	return t.UnixNano()
}
