package cache

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/IvanBrykalov/shardstore/internal/util"
)

// shard is an independent partition of the keyspace with its own lock and map.
// No shard ever touches another shard's state.
type shard struct {
	idx int

	// ---- guarded by mu ----
	mu sync.RWMutex
	m  map[string]entry

	// broken is set when a panic escaped a critical section. It is only
	// written with mu held exclusively, but read lock-free on the fast path.
	broken atomic.Bool

	opt *Options
	log *slog.Logger

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_       util.CacheLinePad
	hits    util.PaddedAtomicUint64
	misses  util.PaddedAtomicUint64
	expired util.PaddedAtomicUint64
	entries util.PaddedAtomicInt64
	bytes   util.PaddedAtomicInt64
}

func newShard(idx int, opt *Options, log *slog.Logger) *shard {
	return &shard{
		idx: idx,
		m:   make(map[string]entry),
		opt: opt,
		log: log,
	}
}

// -------------------- locking --------------------

func (s *shard) errBroken() error {
	return &ShardError{Shard: s.idx, Err: ErrLockUnavailable}
}

// lock acquires the exclusive lock, or fails if the shard is broken.
func (s *shard) lock() error {
	s.mu.Lock()
	if s.broken.Load() {
		s.mu.Unlock()
		return s.errBroken()
	}
	return nil
}

// unlock must be deferred directly after a successful lock: a panic inside
// the critical section marks the shard broken before propagating.
func (s *shard) unlock() {
	if r := recover(); r != nil {
		s.broken.Store(true)
		s.mu.Unlock()
		s.log.Error("shard poisoned by panic in critical section", "shard", s.idx, "panic", r)
		s.opt.Metrics.ShardFailed(s.idx)
		panic(r)
	}
	s.mu.Unlock()
}

// rlock acquires the shared lock. Shared sections never call user code,
// so they can't poison the shard and are released with a plain RUnlock.
func (s *shard) rlock() error {
	s.mu.RLock()
	if s.broken.Load() {
		s.mu.RUnlock()
		return s.errBroken()
	}
	return nil
}

// -------------------- operations --------------------

// set stores a pre-copied key/value. The caller owns neither after the call.
func (s *shard) set(key string, val []byte, exp int64) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()

	s.insertOrReplaceLocked(key, entry{val: val, exp: exp})
	return nil
}

// get returns a copy of the live value for key. An expired entry reads as a
// miss and, with RemoveExpiredOnRead, is removed in the same critical section.
func (s *shard) get(key []byte, now int64) ([]byte, bool, error) {
	if !s.opt.RemoveExpiredOnRead {
		if err := s.rlock(); err != nil {
			return nil, false, err
		}
		defer s.mu.RUnlock()

		e, ok := s.lookupLocked(key)
		if !ok || e.expired(now) {
			return nil, false, nil
		}
		return bytes.Clone(e.val), true, nil
	}

	if err := s.lock(); err != nil {
		return nil, false, err
	}
	defer s.unlock()

	e, ok := s.lookupLocked(key)
	if !ok {
		return nil, false, nil
	}
	if e.expired(now) {
		s.removeIfExpiredLocked(key, now)
		return nil, false, nil
	}
	return bytes.Clone(e.val), true, nil
}

// peek returns a copy of the stored value regardless of expiry.
func (s *shard) peek(key []byte) ([]byte, bool, error) {
	if err := s.rlock(); err != nil {
		return nil, false, err
	}
	defer s.mu.RUnlock()

	e, ok := s.lookupLocked(key)
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(e.val), true, nil
}

// remove deletes key if present. Returns true if an entry (live or expired) existed.
func (s *shard) remove(key []byte) (bool, error) {
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.unlock()

	return s.removeLocked(key), nil
}

// sweep removes every entry expired at now and returns how many went.
func (s *shard) sweep(now int64) (int, error) {
	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.unlock()

	return s.sweepExpiredLocked(now), nil
}

// safeSweep is sweep for callers that must survive a panicking OnEvict.
// The shard is poisoned by unlock as usual; the panic comes back as a
// *ShardError wrapping ErrLockUnavailable instead of unwinding the caller.
func (s *shard) safeSweep(now int64) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, &ShardError{Shard: s.idx, Err: fmt.Errorf("%w: panic during sweep: %v", ErrLockUnavailable, r)}
		}
	}()
	return s.sweep(now)
}

// -------------------- internals (mu held) --------------------

func (s *shard) lookupLocked(key []byte) (entry, bool) {
	e, ok := s.m[string(key)]
	return e, ok
}

func (s *shard) insertOrReplaceLocked(key string, e entry) {
	if old, ok := s.m[key]; ok {
		s.bytes.Add(e.size(key) - old.size(key))
	} else {
		s.entries.Add(1)
		s.bytes.Add(e.size(key))
	}
	s.m[key] = e
}

func (s *shard) removeLocked(key []byte) bool {
	e, ok := s.m[string(key)]
	if !ok {
		return false
	}
	s.dropLocked(string(key), e)
	return true
}

// removeIfExpiredLocked removes key only if it is present and expired at now.
func (s *shard) removeIfExpiredLocked(key []byte, now int64) bool {
	e, ok := s.m[string(key)]
	if !ok || !e.expired(now) {
		return false
	}
	s.expireLocked(string(key), e, EvictTTL)
	return true
}

// sweepExpiredLocked removes all entries with exp <= now.
// Deleting from a map during range is safe in Go.
func (s *shard) sweepExpiredLocked(now int64) int {
	n := 0
	for k, e := range s.m {
		if e.expired(now) {
			s.expireLocked(k, e, EvictSweep)
			n++
		}
	}
	return n
}

func (s *shard) dropLocked(key string, e entry) {
	delete(s.m, key)
	s.entries.Add(-1)
	s.bytes.Add(-e.size(key))
}

// expireLocked drops an expired entry and fires metrics and OnEvict.
func (s *shard) expireLocked(key string, e entry, reason EvictReason) {
	s.dropLocked(key, e)
	s.expired.Add(1)
	s.opt.Metrics.Evict(reason)
	if cb := s.opt.OnEvict; cb != nil {
		cb([]byte(key), bytes.Clone(e.val), reason)
	}
}
