package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Evict removes every expired entry from every shard and returns how many
// were removed. Shards are swept one at a time in index order, each under its
// own lock. The current time is read once, so all shards are judged against
// the same instant.
//
// A broken shard does not stop the sweep: healthy shards are still swept and
// the returned error joins one *ShardError per broken shard. A panic in
// OnEvict breaks the shard it happened on and is reported the same way.
func (c *Store) Evict() (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	now := c.now()

	total := 0
	var errs []error
	for _, s := range c.shards {
		n, err := s.safeSweep(now)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	c.reportSize()
	return total, errors.Join(errs...)
}

// EvictContext is Evict with up to Options.EvictWorkers shards swept in
// parallel. Cancelling ctx stops scheduling new shards; shards already
// swept stay swept and are included in the count.
func (c *Store) EvictContext(ctx context.Context) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	now := c.now()

	var (
		total atomic.Int64
		mu    sync.Mutex
		errs  []error
		g     errgroup.Group
	)
	g.SetLimit(c.opt.EvictWorkers)
	for _, s := range c.shards {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := s.safeSweep(now)
			total.Add(int64(n))
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	c.reportSize()
	return int(total.Load()), errors.Join(append([]error{err}, errs...)...)
}

// sweepLoop runs Evict every interval until Close.
func (c *Store) sweepLoop(interval time.Duration) {
	defer c.wg.Done()

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			if c.sweepOnce() {
				return
			}
		}
	}
}

// sweepOnce runs one background pass and reports whether the store is closed.
// Nothing raised during the pass may escape the sweeper goroutine.
func (c *Store) sweepOnce() (closed bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("background sweep panicked", "panic", r)
		}
	}()

	start := time.Now()
	n, err := c.Evict()
	switch {
	case errors.Is(err, ErrClosed):
		return true
	case err != nil:
		c.log.Warn("background sweep incomplete", "removed", n, "err", err)
	case n > 0:
		c.log.Debug("background sweep", "removed", n, "took", time.Since(start))
	}
	return false
}

func (c *Store) reportSize() {
	var entries, size int64
	for _, s := range c.shards {
		entries += s.entries.Load()
		size += s.bytes.Load()
	}
	c.opt.Metrics.Size(int(entries), size)
}
