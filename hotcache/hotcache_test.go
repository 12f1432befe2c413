package hotcache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainforge/chainmgr/types"
)

func block(n uint64) *types.Block {
	return types.NewBlock(types.Header{Number: n, TotalDifficulty: n, HasState: true}, nil, nil)
}

func TestTaskCacheLoadsOnMissAndCachesOnHit(t *testing.T) {
	c := NewTaskCache()
	b := block(1)
	calls := 0
	loader := func() (*types.Block, error) {
		calls++
		return b, nil
	}

	got, err := c.Get(b.Hash(), loader)
	require.NoError(t, err)
	require.Equal(t, b, got)
	require.Equal(t, 1, calls)

	got, err = c.Get(b.Hash(), loader)
	require.NoError(t, err)
	require.Equal(t, b, got)
	require.Equal(t, 1, calls, "second Get should hit cache, not call loader again")
}

func TestTaskCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewTaskCache()
	blocks := make([]*types.Block, TaskMRUSize+1)
	for i := range blocks {
		blocks[i] = block(uint64(i))
		_, err := c.Get(blocks[i].Hash(), func() (*types.Block, error) { return blocks[i], nil })
		require.NoError(t, err)
	}
	// the first block inserted should have been evicted once capacity was
	// exceeded.
	_, ok := c.Peek(blocks[0].Hash())
	require.False(t, ok)
	_, ok = c.Peek(blocks[len(blocks)-1].Hash())
	require.True(t, ok)
}

func TestTaskCachePropagatesLoaderError(t *testing.T) {
	c := NewTaskCache()
	wantErr := errors.New("store unavailable")
	_, err := c.Get(types.Hash{}, func() (*types.Block, error) { return nil, wantErr })
	require.ErrorIs(t, err, wantErr)
}

func TestProcessCacheHitRatio(t *testing.T) {
	c := NewProcessCache()
	b := block(1)
	loader := func() (*types.Block, error) { return b, nil }

	_, err := c.Get(b.Hash(), loader) // miss
	require.NoError(t, err)
	_, err = c.Get(b.Hash(), loader) // hit
	require.NoError(t, err)
	_, err = c.Get(b.Hash(), loader) // hit
	require.NoError(t, err)

	require.InDelta(t, 2.0/3.0, c.HitRatio(), 0.001)
}
