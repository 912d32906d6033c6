package prom

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/shardstore/cache"
)

type fakeClock struct{ t int64 }

func (f *fakeClock) NowUnixNano() int64 { return f.t }

// Drives a real store and checks the exported series on a private registry.
func TestAdapter_WiredIntoStore(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg, "shardstore", "test", nil)

	clk := &fakeClock{t: int64(time.Hour)}
	s := cache.New(cache.Options{Metrics: m, Clock: clk, RemoveExpiredOnRead: true})
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Set([]byte("a"), []byte("1"), time.Time{}))
	require.NoError(t, s.Set([]byte("b"), []byte("22"), time.Unix(0, 1)))
	require.NoError(t, s.Set([]byte("c"), []byte("333"), time.Unix(0, 1)))

	_, ok, err := s.Get([]byte("a")) // hit
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = s.Get([]byte("b")) // miss + lazy ttl expiration
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = s.Get([]byte("zzz")) // miss
	require.NoError(t, err)
	require.False(t, ok)

	n, err := s.Evict() // sweeps "c"
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.Equal(t, 1.0, testutil.ToFloat64(m.hits))
	require.Equal(t, 2.0, testutil.ToFloat64(m.misses))
	require.Equal(t, 1.0, testutil.ToFloat64(m.evicts.WithLabelValues("ttl")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.evicts.WithLabelValues("sweep")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.sizeEnt))
	require.Equal(t, 2.0, testutil.ToFloat64(m.sizeBytes))
}

func TestAdapter_ShardFailed(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg, "", "", prometheus.Labels{"app": "test"})

	m.ShardFailed(7)
	m.ShardFailed(7)
	require.Equal(t, 2.0, testutil.ToFloat64(m.failures.WithLabelValues("7")))
	require.Equal(t, 1, testutil.CollectAndCount(m.failures))
}
