package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainforge/chainmgr/chain"
	"github.com/chainforge/chainmgr/chainstore"
	"github.com/chainforge/chainmgr/eventbus"
	"github.com/chainforge/chainmgr/synccoord"
	"github.com/chainforge/chainmgr/types"
)

func mkBlock(n uint64, parent types.Hash, td uint64) *types.Block {
	return types.NewBlock(types.Header{
		ParentHash:      parent,
		Number:          n,
		TotalDifficulty: td,
		HasState:        true,
	}, nil, nil)
}

func newTestManager(t *testing.T, validator chain.Validator) (*chain.Manager, *types.Block) {
	t.Helper()
	store := chainstore.NewMemory()
	t.Cleanup(func() { store.Close() })
	genesis := mkBlock(0, types.ZeroHash, 1)
	m := chain.NewManager(store, validator, chain.NoopRelaySink{}, chain.NoopMempoolSink{}, chain.NoopMinerSignal{}, chain.NoopTicketNotifier{}, eventbus.New(), types.ZeroHash)
	require.NoError(t, m.Start(genesis))
	t.Cleanup(m.Close)
	return m, genesis
}

func TestImportBlocksSkipsKnownAndInstallsRemainder(t *testing.T) {
	m, genesis := newTestManager(t, chain.NoopValidator{})
	coord := synccoord.New(eventbus.New())

	b1 := mkBlock(1, genesis.Hash(), 2)
	_, err := m.AddBlock(context.Background(), b1, false, false)
	require.NoError(t, err)

	b2 := mkBlock(2, b1.Hash(), 3)

	im := New(m, coord)
	result, err := im.ImportBlocks(context.Background(), NewSliceSource([]*types.Block{genesis, b1, b2}))
	require.NoError(t, err)
	require.Equal(t, 1, result.Imported)
	require.Equal(t, b2.Hash(), result.Final.Hash())

	peak, err := m.PeakBlock(context.Background())
	require.NoError(t, err)
	require.Equal(t, b2.Hash(), peak.Hash())

	require.True(t, coord.IsActiveSync("next-caller", true), "sync slot should be released once import completes")
}

type rejectingValidator struct{}

func (rejectingValidator) Validate(next, prev *types.Block) (*types.Block, error) {
	if next.Number() == 2 {
		return nil, errors.New("bad transaction")
	}
	return next, nil
}

func TestImportBlocksHaltsOnValidationFailure(t *testing.T) {
	m, genesis := newTestManager(t, rejectingValidator{})
	coord := synccoord.New(eventbus.New())

	b1 := mkBlock(1, genesis.Hash(), 2)
	b2 := mkBlock(2, b1.Hash(), 3)

	im := New(m, coord)
	result, err := im.ImportBlocks(context.Background(), NewSliceSource([]*types.Block{genesis, b1, b2}))
	require.ErrorIs(t, err, types.ErrValidationFailure)
	require.Equal(t, 1, result.Imported)
	require.Equal(t, b1.Hash(), result.Final.Hash())

	peak, err := m.PeakBlock(context.Background())
	require.NoError(t, err)
	require.Equal(t, b1.Hash(), peak.Hash())

	require.True(t, coord.IsActiveSync("next-caller", true),
		"sync slot must be released even when import halts on a validation failure")
}

func TestImportBlocksRefusesConcurrentSync(t *testing.T) {
	m, genesis := newTestManager(t, chain.NoopValidator{})
	coord := synccoord.New(eventbus.New())
	require.True(t, coord.IsActiveSync("other-caller", true))

	im := New(m, coord)
	result, err := im.ImportBlocks(context.Background(), NewSliceSource([]*types.Block{genesis}))
	require.ErrorIs(t, err, ErrSyncInProgress)
	require.Equal(t, 0, result.Imported)
	require.True(t, coord.IsActiveSync("other-caller", false), "losing caller must not release a slot it never held")
}
