// Package chainstore implements the chain store contract: the
// persistent, queryable view of the block DAG that the chain actor
// consults and mutates. It is built on top of the ethdb key-value
// abstraction so the same logic runs against an in-memory store (tests) or
// a leveldb-backed store (production) without change.
package chainstore

import (
	"github.com/chainforge/chainmgr/types"
)

// HashNumber pairs a known block's hash and height, the element type
// AllBlockHashes iterates over.
type HashNumber struct {
	Hash   types.Hash
	Number uint64
}

// Store is the persistent block store every read and write in the chain
// manager eventually goes through.
type Store interface {
	// PeakBlock returns the current persisted peak, or nil if the store is
	// empty.
	PeakBlock() (*types.Block, error)

	// PutPeak atomically installs b as peak and marks every block on b's
	// branch, back to the first already-main ancestor, as main.
	PutPeak(b *types.Block) error

	// PutBlock inserts or overwrites b as a main-chain block.
	PutBlock(b *types.Block) error

	// PutNewBlock inserts b as an alt (non-main) block.
	PutNewBlock(b *types.Block) error

	// Block returns the main-chain block at height n, or nil if none.
	Block(n uint64) (*types.Block, error)

	// BlockByHash returns any known block with hash h, main or alt, or nil.
	BlockByHash(h types.Hash) (*types.Block, error)

	// BlockByTxHash returns the main-chain block containing tx, or nil.
	BlockByTxHash(tx types.Hash) (*types.Block, error)

	// BlocksByHash returns a descending list of up to limit main-chain
	// blocks starting at h.
	BlocksByHash(h types.Hash, limit int) ([]*types.Block, error)

	// TopBlocks returns the top k main-chain blocks by number, descending.
	TopBlocks(k int) ([]*types.Block, error)

	// AllBlockHashes returns (hash, number) for every known block.
	AllBlockHashes() ([]HashNumber, error)

	// ClearAltBlocks drops every alt-branch row.
	ClearAltBlocks() error

	// TruncateBlocks deletes everything.
	TruncateBlocks() error

	// Close releases the underlying storage handle.
	Close() error
}
