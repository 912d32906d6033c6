// Package util contains internal helpers (hashing, sharding, padding).
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/dchest/siphash"
)

// SipKey is a 128-bit SipHash key split into two little-endian halves.
type SipKey struct{ K0, K1 uint64 }

// NewSipKey draws a fresh random key. Keys are per-store so that an attacker
// who learns one process's layout learns nothing about another.
func NewSipKey() SipKey {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms.
		panic("util.NewSipKey: " + err.Error())
	}
	return SipKey{
		K0: binary.LittleEndian.Uint64(b[:8]),
		K1: binary.LittleEndian.Uint64(b[8:]),
	}
}

// Sip64 hashes b with SipHash-2-4 under key k.
// Safe under adversarially chosen input as long as k stays secret.
func Sip64(k SipKey, b []byte) uint64 {
	return siphash.Hash(k.K0, k.K1, b)
}

// XXH64 hashes b with xxHash64. Much faster than Sip64 but trivially
// attackable: use only for trusted keys.
func XXH64(b []byte) uint64 {
	return xxhash.Sum64(b)
}
