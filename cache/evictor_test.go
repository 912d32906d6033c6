package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var zeroTime time.Time

func TestStore_EvictContext(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	s := newTestStore(t, Options{Clock: clk, EvictWorkers: 4})

	for i := 0; i < 1000; i++ {
		exp := zeroTime
		if i%2 == 0 {
			exp = clk.time()
		}
		require.NoError(t, s.Set([]byte("k:"+strconv.Itoa(i)), []byte("v"), exp))
	}

	n, err := s.EvictContext(context.Background())
	require.NoError(t, err)
	require.Equal(t, 500, n)
	require.Equal(t, 500, s.Len())

	n, err = s.EvictContext(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestStore_EvictContext_Cancelled(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	s := newTestStore(t, Options{Clock: clk})
	require.NoError(t, s.Set([]byte("a"), []byte("v"), clk.time()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := s.EvictContext(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, n)
	require.Equal(t, 1, s.Len())
}

// Evict judges every shard against one instant: entries that expire after
// the snapshot survive even if the clock moves during the sweep.
func TestStore_EvictSingleSnapshot(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	s := newTestStore(t, Options{
		Shards: 4,
		Clock:  clk,
		OnEvict: func([]byte, []byte, EvictReason) {
			clk.add(time.Hour) // time moves while the sweep is running
		},
	})

	for i := 0; i < 100; i++ {
		require.NoError(t, s.Set([]byte("now:"+strconv.Itoa(i)), nil, clk.time()))
		require.NoError(t, s.Set([]byte("later:"+strconv.Itoa(i)), nil, clk.time().Add(time.Minute)))
	}

	n, err := s.Evict()
	require.NoError(t, err)
	require.Equal(t, 100, n)
	require.Equal(t, 100, s.Len())
}

func TestStore_BackgroundSweeper(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{SweepInterval: 5 * time.Millisecond})
	for i := 0; i < 50; i++ {
		require.NoError(t, s.Set([]byte("k:"+strconv.Itoa(i)), []byte("v"), time.Now().Add(-time.Second)))
	}
	require.NoError(t, s.Set([]byte("keep"), []byte("v"), zeroTime))

	require.Eventually(t, func() bool { return s.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Close())
	_, ok, err := s.GetUnchecked([]byte("keep"))
	require.ErrorIs(t, err, ErrClosed)
	require.False(t, ok)
}

// A panicking OnEvict breaks one shard but never escapes the sweeper goroutine.
func TestStore_BackgroundSweeperSurvivesPanic(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{
		SweepInterval: 5 * time.Millisecond,
		OnEvict: func(k, _ []byte, _ EvictReason) {
			if string(k) == "bomb" {
				panic("callback failure")
			}
		},
	})
	bomb := []byte("bomb")
	other := keyInOtherShard(t, s, s.ShardFor(bomb))

	require.NoError(t, s.Set(bomb, []byte("v"), time.Now().Add(-time.Second)))
	require.NoError(t, s.Set(other, []byte("ok"), zeroTime))

	require.Eventually(t, func() bool {
		_, _, err := s.Get(bomb)
		return errors.Is(err, ErrLockUnavailable)
	}, 2*time.Second, 5*time.Millisecond)

	v, ok, err := s.Get(other)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("ok"), v)
	require.NoError(t, s.Close())
}

func TestStore_EvictContext_PanickingCallback(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{
		Shards:       8,
		EvictWorkers: 4,
		OnEvict: func(k, _ []byte, _ EvictReason) {
			if string(k) == "bomb" {
				panic("callback failure")
			}
		},
	})
	bomb := []byte("bomb")
	idx := s.ShardFor(bomb)
	other := keyInOtherShard(t, s, idx)

	past := time.Now().Add(-time.Second)
	require.NoError(t, s.Set(bomb, []byte("v"), past))
	require.NoError(t, s.Set(other, []byte("v"), past))

	var (
		n   int
		err error
	)
	require.NotPanics(t, func() { n, err = s.EvictContext(context.Background()) })
	require.Equal(t, 1, n)
	require.ErrorIs(t, err, ErrLockUnavailable)
	var se *ShardError
	require.ErrorAs(t, err, &se)
	require.Equal(t, idx, se.Shard)

	_, _, err = s.Get(bomb)
	require.ErrorIs(t, err, ErrLockUnavailable)
}
