package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainforge/chainmgr/chainstore"
	"github.com/chainforge/chainmgr/eventbus"
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
	}, nil, nil)
}

type mempoolSpy struct {
	removed [][]types.Hash
}

func (s *mempoolSpy) RemoveTxs(txHashes []types.Hash) {
	s.removed = append(s.removed, txHashes)
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *types.Block) {
	t.Helper()
	store := chainstore.NewMemory()
	t.Cleanup(func() { store.Close() })

	genesis := mkBlock(0, types.ZeroHash, 1)
	m := NewManager(store, NoopValidator{}, NoopRelaySink{}, &mempoolSpy{}, NoopMinerSignal{}, NoopTicketNotifier{}, eventbus.New(), types.ZeroHash, opts...)
	require.NoError(t, m.Start(genesis))
	t.Cleanup(m.Close)
	return m, genesis
}

func ctx() context.Context {
	return context.Background()
}

func TestAddBlockLinearExtension(t *testing.T) {
	m, genesis := newTestManager(t)

	b1 := mkBlock(1, genesis.Hash(), 2)
	res, err := m.AddBlock(ctx(), b1, false, false)
	require.NoError(t, err)
	require.Equal(t, Added, res)

	peak, err := m.PeakBlock(ctx())
	require.NoError(t, err)
	require.Equal(t, b1.Hash(), peak.Hash())
}

func TestAddBlockDuplicateReturnsAdded(t *testing.T) {
	m, genesis := newTestManager(t)

	b1 := mkBlock(1, genesis.Hash(), 2)
	_, err := m.AddBlock(ctx(), b1, false, false)
	require.NoError(t, err)

	res, err := m.AddBlock(ctx(), b1, false, false)
	require.NoError(t, err)
	require.Equal(t, Added, res)

	peak, err := m.PeakBlock(ctx())
	require.NoError(t, err)
	require.Equal(t, b1.Hash(), peak.Hash())
}

func TestAddBlockInferiorAltBranchIsStoredNotPeak(t *testing.T) {
	m, genesis := newTestManager(t)

	b1 := mkBlock(1, genesis.Hash(), 2)
	_, err := m.AddBlock(ctx(), b1, false, false)
	require.NoError(t, err)

	alt := mkBlockMiner(1, genesis.Hash(), 2, types.BytesToHash([]byte("rival")))
	require.NotEqual(t, b1.Hash(), alt.Hash())

	res, err := m.AddBlock(ctx(), alt, false, false)
	require.NoError(t, err)
	require.Equal(t, Stored, res)

	peak, err := m.PeakBlock(ctx())
	require.NoError(t, err)
	require.Equal(t, b1.Hash(), peak.Hash())
}

func TestAddBlockReorgSwitchesPeakOnHigherTotalDifficulty(t *testing.T) {
	m, genesis := newTestManager(t)

	b1 := mkBlock(1, genesis.Hash(), 2)
	_, err := m.AddBlock(ctx(), b1, false, false)
	require.NoError(t, err)

	alt1 := mkBlockMiner(1, genesis.Hash(), 2, types.BytesToHash([]byte("rival")))
	_, err = m.AddBlock(ctx(), alt1, false, false)
	require.NoError(t, err)

	alt2 := mkBlockMiner(2, alt1.Hash(), 5, types.BytesToHash([]byte("rival")))
	res, err := m.AddBlock(ctx(), alt2, false, false)
	require.NoError(t, err)
	require.Equal(t, Added, res)

	peak, err := m.PeakBlock(ctx())
	require.NoError(t, err)
	require.Equal(t, alt2.Hash(), peak.Hash())

	// The index must have rewritten height 1 to point at the new branch.
	state, err := m.PeakState(ctx())
	require.NoError(t, err)
	require.Equal(t, alt1.Hash(), state.ByHash[alt1.Hash()].Hash())
}

func TestAddBlockEqualTotalDifficultyNeverDisplacesIncumbent(t *testing.T) {
	m, genesis := newTestManager(t)

	b1 := mkBlock(1, genesis.Hash(), 2)
	_, err := m.AddBlock(ctx(), b1, false, false)
	require.NoError(t, err)

	rival := mkBlockMiner(1, genesis.Hash(), 2, types.BytesToHash([]byte("rival")))
	res, err := m.AddBlock(ctx(), rival, false, false)
	require.NoError(t, err)
	require.Equal(t, Stored, res)

	peak, err := m.PeakBlock(ctx())
	require.NoError(t, err)
	require.Equal(t, b1.Hash(), peak.Hash())
}

func TestAddBlockRejectsMissingState(t *testing.T) {
	m, genesis := newTestManager(t)

	b1 := types.NewBlock(types.Header{ParentHash: genesis.Hash(), Number: 1, HasState: false}, nil, nil)
	res, err := m.AddBlock(ctx(), b1, false, false)
	require.ErrorIs(t, err, types.ErrMissingState)
	require.Equal(t, Rejected, res)
}

func TestWindowEvictionDemotesOldEntriesToPlaceholder(t *testing.T) {
	m, genesis := newTestManager(t, WithWindow(2))

	prev := genesis
	for n := uint64(1); n <= 4; n++ {
		b := mkBlock(n, prev.Hash(), n+1)
		res, err := m.AddBlock(ctx(), b, false, false)
		require.NoError(t, err)
		require.Equal(t, Added, res)
		prev = b
	}

	state, err := m.PeakState(ctx())
	require.NoError(t, err)

	// window=2: heights 1 and 2 should have been demoted to placeholders
	// (no longer present as full entries), 3 and 4 remain full.
	require.Equal(t, 2, len(state.ByHash))
}

func TestAddBlockAsyncReturnsUnknownButStillApplies(t *testing.T) {
	m, genesis := newTestManager(t)

	b1 := mkBlock(1, genesis.Hash(), 2)
	res, err := m.AddBlock(ctx(), b1, false, true)
	require.NoError(t, err)
	require.Equal(t, Unknown, res)

	require.NoError(t, m.Sync(ctx()))

	peak, err := m.PeakBlock(ctx())
	require.NoError(t, err)
	require.Equal(t, b1.Hash(), peak.Hash())
}

func TestSetPeakForcesReorgEvenAtEqualDifficulty(t *testing.T) {
	m, genesis := newTestManager(t)

	b1 := mkBlock(1, genesis.Hash(), 2)
	_, err := m.AddBlock(ctx(), b1, false, false)
	require.NoError(t, err)

	rival := mkBlockMiner(1, genesis.Hash(), 2, types.BytesToHash([]byte("rival")))
	_, err = m.AddBlock(ctx(), rival, false, false)
	require.NoError(t, err)

	require.NoError(t, m.SetPeak(ctx(), rival))

	peak, err := m.PeakBlock(ctx())
	require.NoError(t, err)
	require.Equal(t, rival.Hash(), peak.Hash())
}

func TestResetStateClearsEverything(t *testing.T) {
	m, genesis := newTestManager(t)

	b1 := mkBlock(1, genesis.Hash(), 2)
	_, err := m.AddBlock(ctx(), b1, false, false)
	require.NoError(t, err)

	require.NoError(t, m.ResetState(ctx()))

	peak, err := m.PeakBlock(ctx())
	require.NoError(t, err)
	require.Nil(t, peak)
}

func TestSetStateRewritesStoreToMatchSeed(t *testing.T) {
	m, genesis := newTestManager(t)

	b1 := mkBlock(1, genesis.Hash(), 2)
	require.NoError(t, m.SetState(ctx(), ChainState{Peak: b1}))

	peak, err := m.PeakBlock(ctx())
	require.NoError(t, err)
	require.Equal(t, b1.Hash(), peak.Hash())
}
