package cache

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouter_StableAndInRange(t *testing.T) {
	t.Parallel()

	for _, h := range []HashStrategy{HashResistant, HashFast} {
		for _, n := range []int{1, 7, 128} {
			r := newRouter(h, n)
			for i := 0; i < 2000; i++ {
				k := []byte("k:" + strconv.Itoa(i))
				idx := r.route(k)
				require.GreaterOrEqual(t, idx, 0)
				require.Less(t, idx, n)
				require.Equal(t, idx, r.route(k), "route must be pure")
			}
		}
	}
}

// Keys should spread roughly evenly: no shard gets more than 3x its share.
func TestRouter_Distribution(t *testing.T) {
	t.Parallel()

	const shards, keys = 128, 128 * 200
	for _, h := range []HashStrategy{HashResistant, HashFast} {
		r := newRouter(h, shards)
		counts := make([]int, shards)
		for i := 0; i < keys; i++ {
			counts[r.route([]byte("user:"+strconv.Itoa(i)))]++
		}
		for idx, c := range counts {
			require.Greater(t, c, 0, "%v: shard %d empty", h, idx)
			require.Less(t, c, 3*keys/shards, "%v: shard %d hot", h, idx)
		}
	}
}

// Resistant routing is keyed per store, fast routing is not.
func TestRouter_Keying(t *testing.T) {
	t.Parallel()

	a, b := newRouter(HashFast, 128), newRouter(HashFast, 128)
	ra, rb := newRouter(HashResistant, 1<<20), newRouter(HashResistant, 1<<20)

	differs := false
	for i := 0; i < 64; i++ {
		k := []byte(strconv.Itoa(i))
		require.Equal(t, a.route(k), b.route(k))
		if ra.route(k) != rb.route(k) {
			differs = true
		}
	}
	require.True(t, differs, "independent stores should use independent SipHash keys")
}

func TestStore_ShardForMatchesPlacement(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Options{Hash: HashFast})
	k := []byte("greeting")
	require.NoError(t, s.Set(k, []byte("hello"), zeroTime))

	idx := s.ShardFor(k)
	for i := 0; i < 10; i++ {
		require.Equal(t, idx, s.ShardFor(k))
	}
	_, ok := s.shards[idx].lookupLocked(k)
	require.True(t, ok)
}
