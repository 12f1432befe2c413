// Package eventbus wraps event.Feed/event.Subscription into the two
// typed topics the chain manager publishes on: peak changes and
// active-sync transitions.
package eventbus

import (
	"github.com/chainforge/chainmgr/event"
	"github.com/chainforge/chainmgr/types"
)

// PeakEvent is published whenever B becomes the new peak.
type PeakEvent struct {
	Block *types.Block
}

// SyncingEvent is published when the active-sync slot is claimed or
// released.
type SyncingEvent struct {
	Active bool
}

// Bus holds the two feeds the chain manager and sync coordinator publish
// to. The zero value is ready to use, like the event.Feed it holds; New
// returns one.
type Bus struct {
	peakFeed    event.Feed
	syncingFeed event.Feed
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{}
}

// PublishPeak sends a PeakEvent to every current subscriber.
func (b *Bus) PublishPeak(block *types.Block) int {
	return b.peakFeed.Send(PeakEvent{Block: block})
}

// SubscribePeak registers channel to receive PeakEvents.
func (b *Bus) SubscribePeak(channel chan PeakEvent) event.Subscription {
	return b.peakFeed.Subscribe(channel)
}

// PublishSyncing sends a SyncingEvent to every current subscriber.
func (b *Bus) PublishSyncing(active bool) int {
	return b.syncingFeed.Send(SyncingEvent{Active: active})
}

// SubscribeSyncing registers channel to receive SyncingEvents.
func (b *Bus) SubscribeSyncing(channel chan SyncingEvent) event.Subscription {
	return b.syncingFeed.Subscribe(channel)
}
