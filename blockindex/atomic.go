package blockindex

import "sync/atomic"

// boolCell is a single-word atomic cell, the Go equivalent of a
// persistent-term flag published by one writer and read lock-free by many.
type boolCell struct {
	v atomic.Bool
}

func (c *boolCell) set(v bool) { c.v.Store(v) }
func (c *boolCell) get() bool  { return c.v.Load() }
