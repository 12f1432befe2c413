package synccoord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chainforge/chainmgr/eventbus"
)

func TestIsActiveSyncClaimsEmptySlot(t *testing.T) {
	c := New(eventbus.New())
	require.True(t, c.IsActiveSync("a", true))
	require.True(t, c.IsActiveSync("a", false))
	require.False(t, c.IsActiveSync("b", false))
	require.False(t, c.IsActiveSync("b", true))
}

func TestThrottleSyncUsesConfiguredDelay(t *testing.T) {
	c := New(eventbus.New(), WithThrottleDelay(10*time.Millisecond))
	require.True(t, c.IsActiveSync("a", true))

	start := time.Now()
	c.ThrottleSync("b", false, "background sync attempt")
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestFinishSyncReleasesSlotAndPublishes(t *testing.T) {
	bus := eventbus.New()
	ch := make(chan eventbus.SyncingEvent, 4)
	sub := bus.SubscribeSyncing(ch)
	defer sub.Unsubscribe()

	c := New(bus)
	require.True(t, c.IsActiveSync("a", true))

	gcCalled := make(chan uint64, 1)
	c.FinishSync(func(peak uint64) error {
		gcCalled <- peak
		return nil
	}, 7)

	require.True(t, c.IsActiveSync("b", true))

	select {
	case ev := <-ch:
		require.True(t, ev.Active)
	case <-time.After(time.Second):
		t.Fatal("missing claim event")
	}
	select {
	case ev := <-ch:
		require.False(t, ev.Active)
	case <-time.After(time.Second):
		t.Fatal("missing release event")
	}
	select {
	case n := <-gcCalled:
		require.Equal(t, uint64(7), n)
	case <-time.After(time.Second):
		t.Fatal("gc never ran")
	}
}
