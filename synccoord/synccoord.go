// Package synccoord implements the sync coordinator: a single
// process-wide slot electing one foreground synchronizer, with a throttled
// path for anything running in the background.
package synccoord

import (
	"sync"
	"time"

	"github.com/chainforge/chainmgr/eventbus"
	"github.com/chainforge/chainmgr/log"
)

// DefaultThrottleDelay is how long a background synchronizer sleeps before
// ThrottleSync returns, unless overridden with WithThrottleDelay.
const DefaultThrottleDelay = 30 * time.Second

// GCFunc garbage-collects sync metadata below peakNumber. What "sync
// metadata" means belongs entirely to the caller; the coordinator just
// schedules it asynchronously after releasing the slot.
type GCFunc func(peakNumber uint64) error

// Coordinator holds the single active-sync slot for a process.
type Coordinator struct {
	bus           *eventbus.Bus
	log           log.Logger
	throttleDelay time.Duration

	mu     sync.Mutex
	active bool
	holder string
}

// Option configures a Coordinator at construction time.
type Option func(*Coordinator)

// WithThrottleDelay overrides DefaultThrottleDelay.
func WithThrottleDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.throttleDelay = d }
}

// New returns an empty Coordinator publishing syncing transitions on bus.
func New(bus *eventbus.Bus, opts ...Option) *Coordinator {
	c := &Coordinator{bus: bus, log: log.Root(), throttleDelay: DefaultThrottleDelay}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsActiveSync reports whether caller is (or, with register, becomes) the
// elected foreground synchronizer. If the slot is empty and register is
// true, caller claims it and a {syncing, true} event is published. If the
// slot is already held by caller, it returns true without any side effect.
// Otherwise it returns false.
func (c *Coordinator) IsActiveSync(caller string, register bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		if !register {
			return false
		}
		c.active = true
		c.holder = caller
		c.bus.PublishSyncing(true)
		return true
	}
	return c.holder == caller
}

// ThrottleSync proceeds immediately if caller holds (or, with register,
// claims) the active-sync slot; otherwise it logs as a background
// synchronizer and sleeps the configured throttle delay before returning.
func (c *Coordinator) ThrottleSync(caller string, register bool, msg string) {
	if c.IsActiveSync(caller, register) {
		c.log.Info(msg, "sync", "foreground", "caller", caller)
		return
	}
	c.log.Info(msg, "sync", "background", "caller", caller)
	time.Sleep(c.throttleDelay)
}

// FinishSync releases the active-sync slot, publishes {syncing, false}, and
// asynchronously runs gc (if non-nil) against peakNumber.
func (c *Coordinator) FinishSync(gc GCFunc, peakNumber uint64) {
	c.mu.Lock()
	c.active = false
	c.holder = ""
	c.mu.Unlock()

	c.bus.PublishSyncing(false)
	if gc == nil {
		return
	}
	go func() {
		if err := gc(peakNumber); err != nil {
			c.log.Warn("sync metadata gc failed", "err", err)
		}
	}()
}
