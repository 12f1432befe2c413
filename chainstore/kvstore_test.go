package chainstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainforge/chainmgr/types"
)

func mkBlock(n uint64, parent types.Hash, td uint64) *types.Block {
	return mkBlockMiner(n, parent, td, types.ZeroHash)
}

func mkBlockMiner(n uint64, parent types.Hash, td uint64, miner types.Hash) *types.Block {
	return types.NewBlock(types.Header{
		ParentHash:      parent,
		Number:          n,
		TotalDifficulty: td,
		HasState:        true,
		Miner:           miner,
	}, []*types.Transaction{{Hash: types.BytesToHash([]byte{byte(n)})}}, nil)
}

func TestPutBlockAndLookups(t *testing.T) {
	s := NewMemory()
	defer s.Close()

	genesis := mkBlock(0, types.ZeroHash, 1)
	require.NoError(t, s.PutBlock(genesis))

	b1 := mkBlock(1, genesis.Hash(), 2)
	require.NoError(t, s.PutBlock(b1))

	got, err := s.Block(1)
	require.NoError(t, err)
	require.Equal(t, b1.Hash(), got.Hash())

	byHash, err := s.BlockByHash(b1.Hash())
	require.NoError(t, err)
	require.Equal(t, b1.Hash(), byHash.Hash())

	byTx, err := s.BlockByTxHash(b1.Transactions()[0].Hash)
	require.NoError(t, err)
	require.Equal(t, b1.Hash(), byTx.Hash())
}

func TestPutPeakRewritesLinkageToCommonAncestor(t *testing.T) {
	s := NewMemory()
	defer s.Close()

	g := mkBlock(0, types.ZeroHash, 1)
	require.NoError(t, s.PutBlock(g))
	b1 := mkBlock(1, g.Hash(), 2)
	require.NoError(t, s.PutBlock(b1))
	require.NoError(t, s.PutPeak(b1))

	// store an inferior alt branch, then reorg onto it.
	b1Alt := mkBlockMiner(1, g.Hash(), 2, types.BytesToHash([]byte("alt-miner")))
	require.NotEqual(t, b1.Hash(), b1Alt.Hash())
	require.NoError(t, s.PutNewBlock(b1Alt))

	b2Alt := mkBlock(2, b1Alt.Hash(), 3)
	require.NoError(t, s.PutNewBlock(b2Alt))
	require.NoError(t, s.PutPeak(b2Alt))

	peak, err := s.PeakBlock()
	require.NoError(t, err)
	require.Equal(t, b2Alt.Hash(), peak.Hash())

	atOne, err := s.Block(1)
	require.NoError(t, err)
	require.Equal(t, b1Alt.Hash(), atOne.Hash())
}

func TestClearAltBlocks(t *testing.T) {
	s := NewMemory()
	defer s.Close()

	g := mkBlock(0, types.ZeroHash, 1)
	require.NoError(t, s.PutBlock(g))
	alt := mkBlock(1, g.Hash(), 2)
	require.NoError(t, s.PutNewBlock(alt))

	require.NoError(t, s.ClearAltBlocks())

	b, err := s.BlockByHash(alt.Hash())
	require.NoError(t, err)
	require.Nil(t, b)
}

func TestTruncateBlocks(t *testing.T) {
	s := NewMemory()
	defer s.Close()

	g := mkBlock(0, types.ZeroHash, 1)
	require.NoError(t, s.PutBlock(g))
	require.NoError(t, s.PutPeak(g))

	require.NoError(t, s.TruncateBlocks())

	peak, err := s.PeakBlock()
	require.NoError(t, err)
	require.Nil(t, peak)
}
