package hotcache

import "sync/atomic"

// counter is a thread-safe monotonic counter used for hit/miss bookkeeping.
type counter struct {
	v atomic.Int64
}

func (c *counter) inc() int64    { return c.v.Add(1) }
func (c *counter) get() int64    { return c.v.Load() }
