package exporter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainforge/chainmgr/chain"
	"github.com/chainforge/chainmgr/chainstore"
	"github.com/chainforge/chainmgr/ethdb/memorydb"
	"github.com/chainforge/chainmgr/eventbus"
	"github.com/chainforge/chainmgr/importer"
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

func TestExportThenImportRoundTripsPeak(t *testing.T) {
	store := chainstore.NewMemory()
	defer store.Close()

	genesis := mkBlock(0, types.ZeroHash, 1)
	require.NoError(t, store.PutBlock(genesis))
	require.NoError(t, store.PutPeak(genesis))
	b1 := mkBlock(1, genesis.Hash(), 2)
	require.NoError(t, store.PutBlock(b1))
	require.NoError(t, store.PutPeak(b1))
	b2 := mkBlock(2, b1.Hash(), 3)
	require.NoError(t, store.PutBlock(b2))
	require.NoError(t, store.PutPeak(b2))

	archive := NewArchive(memorydb.New())
	defer archive.Close()

	written, err := New(store, archive).Export()
	require.NoError(t, err)
	require.Equal(t, 3, written)

	blocks, err := archive.ReadAll()
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	freshStore := chainstore.NewMemory()
	defer freshStore.Close()
	mgr := chain.NewManager(freshStore, chain.NoopValidator{}, chain.NoopRelaySink{}, chain.NoopMempoolSink{}, chain.NoopMinerSignal{}, chain.NoopTicketNotifier{}, eventbus.New(), types.ZeroHash)
	require.NoError(t, mgr.Start(blocks[0]))
	defer mgr.Close()

	coord := synccoord.New(eventbus.New())
	im := importer.New(mgr, coord)
	result, err := im.ImportBlocks(context.Background(), importer.NewSliceSource(blocks))
	require.NoError(t, err)
	require.Equal(t, b2.Hash(), result.Final.Hash())

	peak, err := mgr.PeakBlock(context.Background())
	require.NoError(t, err)
	require.Equal(t, b2.Hash(), peak.Hash())
}

func TestExportResumesFromArchiveHighWaterMark(t *testing.T) {
	store := chainstore.NewMemory()
	defer store.Close()

	genesis := mkBlock(0, types.ZeroHash, 1)
	require.NoError(t, store.PutBlock(genesis))
	require.NoError(t, store.PutPeak(genesis))
	b1 := mkBlock(1, genesis.Hash(), 2)
	require.NoError(t, store.PutBlock(b1))
	require.NoError(t, store.PutPeak(b1))

	archive := NewArchive(memorydb.New())
	defer archive.Close()

	written, err := New(store, archive).Export()
	require.NoError(t, err)
	require.Equal(t, 2, written)

	b2 := mkBlock(2, b1.Hash(), 3)
	require.NoError(t, store.PutBlock(b2))
	require.NoError(t, store.PutPeak(b2))

	written, err = New(store, archive).Export()
	require.NoError(t, err)
	require.Equal(t, 1, written)

	highest, ok, err := archive.HighestNumber()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(2), highest)
}

func TestExportAbortsOnReorgMidWalk(t *testing.T) {
	store := chainstore.NewMemory()
	defer store.Close()

	genesis := mkBlock(0, types.ZeroHash, 1)
	require.NoError(t, store.PutBlock(genesis))
	require.NoError(t, store.PutPeak(genesis))
	b1 := mkBlock(1, genesis.Hash(), 2)
	require.NoError(t, store.PutBlock(b1))
	require.NoError(t, store.PutPeak(b1))
	b2 := mkBlock(2, b1.Hash(), 3)
	require.NoError(t, store.PutBlock(b2))
	require.NoError(t, store.PutPeak(b2))

	archive := NewArchive(memorydb.New())
	defer archive.Close()
	e := New(store, archive)

	// Simulate a reorg mid-walk by poisoning the in-memory record of
	// height 1 with a block whose hash doesn't match what height 2
	// declares as its parent, without going through PutPeak's own
	// consistency machinery.
	forged := mkBlock(1, genesis.Hash(), 99)
	require.NoError(t, store.PutBlock(forged))

	_, err := e.Export()
	require.ErrorIs(t, err, ErrReorgDuringExport)
}
