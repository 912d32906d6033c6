package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrLockUnavailable is returned for every operation on a shard whose
	// critical section was aborted by a panic. The shard stays broken;
	// retrying will fail identically. Other shards are unaffected.
	ErrLockUnavailable = errors.New("cache: shard lock unavailable")

	// ErrClosed is returned by operations on a closed Store.
	ErrClosed = errors.New("cache: store is closed")

	// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
	ErrNoLoader = errors.New("cache: no Loader provided")
)

// ShardError attributes a failure to a specific shard.
// Use errors.Is(err, ErrLockUnavailable) to test for the kind.
type ShardError struct {
	Shard int
	Err   error
}

func (e *ShardError) Error() string {
	return fmt.Sprintf("cache: shard %d: %v", e.Shard, e.Err)
}

func (e *ShardError) Unwrap() error { return e.Err }
