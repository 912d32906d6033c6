package cache

// NoopMetrics is a drop-in Metrics implementation that does nothing.
// It is safe for concurrent use and intended as the default when
// no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) Hit()                          {}
func (NoopMetrics) Miss()                         {}
func (NoopMetrics) Evict(EvictReason)             {}
func (NoopMetrics) Size(entries int, bytes int64) {}
func (NoopMetrics) ShardFailed(int)               {}

var _ Metrics = NoopMetrics{}

// Stats is a point-in-time snapshot of store counters.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Expired uint64 // lazily removed on read + reclaimed by sweeps
	Entries int64  // physically resident, including expired-not-yet-swept
	Bytes   int64  // sum of len(key)+len(value) over resident entries
}
