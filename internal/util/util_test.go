package util

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShardIndex_Range(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 7, 64, 128, 100} {
		for h := uint64(0); h < 1000; h++ {
			idx := ShardIndex(h*0x9e3779b97f4a7c15, n)
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, n)
		}
	}
	require.Equal(t, 0, ShardIndex(12345, 0))
}

func TestShardIndex_MaskMatchesModulo(t *testing.T) {
	t.Parallel()

	for h := uint64(0); h < 4096; h++ {
		require.Equal(t, int(h%128), ShardIndex(h, 128))
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	t.Parallel()

	require.False(t, IsPowerOfTwo(0))
	require.True(t, IsPowerOfTwo(1))
	require.True(t, IsPowerOfTwo(128))
	require.False(t, IsPowerOfTwo(100))
}

func TestSip64_KeyDependent(t *testing.T) {
	t.Parallel()

	b := []byte("greeting")
	k1 := SipKey{K0: 1, K1: 2}
	k2 := SipKey{K0: 3, K1: 4}

	require.Equal(t, Sip64(k1, b), Sip64(k1, bytes.Clone(b)), "must be deterministic under one key")
	require.NotEqual(t, Sip64(k1, b), Sip64(k2, b), "different keys should permute the output")
}

func TestNewSipKey_Random(t *testing.T) {
	t.Parallel()

	require.NotEqual(t, NewSipKey(), NewSipKey())
}

func TestXXH64_Deterministic(t *testing.T) {
	t.Parallel()

	require.Equal(t, XXH64([]byte("k:1")), XXH64([]byte("k:1")))
	require.NotEqual(t, XXH64([]byte("k:1")), XXH64([]byte("k:2")))
	// Known xxHash64 vector for the empty input (seed 0).
	require.Equal(t, uint64(0xef46db3751d8e999), XXH64(nil))
}
