package cache

import "github.com/IvanBrykalov/shardstore/internal/util"

// router maps a key to a shard index. It is immutable after construction,
// so it needs no locking and route is a pure function for the store's lifetime.
type router struct {
	strategy HashStrategy
	key      util.SipKey // used by HashResistant only
	n        int
}

func newRouter(strategy HashStrategy, shards int) router {
	r := router{strategy: strategy, n: shards}
	if strategy == HashResistant {
		r.key = util.NewSipKey()
	}
	return r
}

func (r router) hash(key []byte) uint64 {
	switch r.strategy {
	case HashFast:
		return util.XXH64(key)
	default:
		return util.Sip64(r.key, key)
	}
}

// route returns the owning shard index in [0, n).
func (r router) route(key []byte) int {
	return util.ShardIndex(r.hash(key), r.n)
}
