package blockindex

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainforge/chainmgr/types"
)

func TestPutFullAndLookup(t *testing.T) {
	idx := New()
	b := types.NewBlock(types.Header{Number: 1, TotalDifficulty: 2, HasState: true}, nil, nil)
	h := b.Hash()

	idx.PutFull(h, b)
	idx.PutNumber(1, h)

	e, ok := idx.Lookup(h)
	require.True(t, ok)
	require.True(t, e.IsFull())
	require.Equal(t, b, e.Block)

	got, ok := idx.LookupNumber(1)
	require.True(t, ok)
	require.Equal(t, h, got)
}

func TestEvictNumberDemotesToPlaceholder(t *testing.T) {
	idx := New()
	b := types.NewBlock(types.Header{Number: 1, TotalDifficulty: 2, HasState: true}, nil, nil)
	h := b.Hash()

	idx.PutFull(h, b)
	idx.PutNumber(1, h)
	idx.EvictNumber(1)

	e, ok := idx.Lookup(h)
	require.True(t, ok)
	require.False(t, e.IsFull())
	require.True(t, e.Placeholder)

	// the number-keyed entry survives eviction.
	got, ok := idx.LookupNumber(1)
	require.True(t, ok)
	require.Equal(t, h, got)
}

func TestFullEntryCountRespectsWindow(t *testing.T) {
	idx := New()
	for n := uint64(1); n <= 5; n++ {
		b := types.NewBlock(types.Header{Number: n, TotalDifficulty: n + 1, HasState: true}, nil, nil)
		idx.PutFull(b.Hash(), b)
		idx.PutNumber(n, b.Hash())
	}
	require.Equal(t, 5, idx.FullEntryCount())

	idx.EvictNumber(1)
	idx.EvictNumber(2)
	require.Equal(t, 3, idx.FullEntryCount())
}

func TestClearAll(t *testing.T) {
	idx := New()
	b := types.NewBlock(types.Header{Number: 1, HasState: true}, nil, nil)
	idx.PutFull(b.Hash(), b)
	idx.PutNumber(1, b.Hash())
	idx.SetPlaceholderComplete(true)

	idx.ClearAll()

	_, ok := idx.Lookup(b.Hash())
	require.False(t, ok)
	_, ok = idx.LookupNumber(1)
	require.False(t, ok)
	require.True(t, idx.PlaceholderComplete())
}
