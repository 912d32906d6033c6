package cache

// entry is a stored value plus its absolute expiration deadline.
// The key lives only in the shard map (as a string) so it is stored once.
type entry struct {
	val []byte

	// Absolute expiration deadline in UnixNano.
	// Zero means "never expires".
	exp int64
}

// expired reports whether the entry is logically absent at now.
// An entry is expired from its deadline onwards (now >= exp).
func (e entry) expired(now int64) bool {
	return e.exp != 0 && now >= e.exp
}

// size is the number of bytes the entry accounts for, key included.
func (e entry) size(key string) int64 {
	return int64(len(key) + len(e.val))
}
