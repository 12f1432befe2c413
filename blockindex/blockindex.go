// Package blockindex implements the in-memory hash- and number-keyed tables
// that sit in front of the chain store. It supports many concurrent
// readers; all writes come from the chain actor, which serializes them, so
// the index itself only needs to guarantee that a reader sees either the
// pre- or the post-write state, never a torn one.
package blockindex

import (
	"sync"

	"github.com/chainforge/chainmgr/types"
)

// Entry is what a hash maps to: either the full block or a placeholder
// recording that the hash is known without holding the block in memory.
type Entry struct {
	Block       *types.Block // nil when Placeholder
	Placeholder bool
}

// IsFull reports whether e carries a full block.
func (e Entry) IsFull() bool { return !e.Placeholder && e.Block != nil }

// Index is the in-memory block index: two logical tables, hash->Entry and
// number->hash, held in a single struct behind one RWMutex.
type Index struct {
	mu     sync.RWMutex
	byHash map[types.Hash]Entry
	byNum  map[uint64]types.Hash

	// placeholderComplete is set once prefetch has finished populating
	// placeholders for every known block; until then hash misses are
	// inconclusive and callers must fall back to the chain store.
	placeholderComplete boolCell
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		byHash: make(map[types.Hash]Entry),
		byNum:  make(map[uint64]types.Hash),
	}
}

// PutFull installs hash as a FullBlock entry and is the only way a
// FullBlock entry is created.
func (idx *Index) PutFull(hash types.Hash, block *types.Block) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byHash[hash] = Entry{Block: block}
}

// PutPlaceholder installs hash as a Placeholder entry, recording "known"
// without retaining the block.
func (idx *Index) PutPlaceholder(hash types.Hash) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byHash[hash] = Entry{Placeholder: true}
}

// PutNumber records that hash is the main-chain block at height n.
func (idx *Index) PutNumber(n uint64, hash types.Hash) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byNum[n] = hash
}

// Lookup returns the entry for key, if any.
func (idx *Index) Lookup(key types.Hash) (Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.byHash[key]
	return e, ok
}

// LookupNumber returns the main-chain hash at height n, if any.
func (idx *Index) LookupNumber(n uint64) (types.Hash, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	h, ok := idx.byNum[n]
	return h, ok
}

// EvictNumber demotes the FullBlock entry at height n to a Placeholder, if
// one exists. The number-keyed entry itself is never removed: invariant 1
// requires every known number to keep mapping to a hash.
func (idx *Index) EvictNumber(n uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	h, ok := idx.byNum[n]
	if !ok {
		return
	}
	if e, ok := idx.byHash[h]; ok && e.IsFull() {
		idx.byHash[h] = Entry{Placeholder: true}
	}
}

// ClearAll empties both tables. Used when the importer or set_state
// rebuilds the index from scratch.
func (idx *Index) ClearAll() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byHash = make(map[types.Hash]Entry)
	idx.byNum = make(map[uint64]types.Hash)
}

// FullEntryCount returns the number of hash entries currently holding a
// full block. Exposed for the chain_block_index_full_entries gauge and for
// tests asserting the window invariant.
func (idx *Index) FullEntryCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	n := 0
	for _, e := range idx.byHash {
		if e.IsFull() {
			n++
		}
	}
	return n
}

// FullEntries returns a snapshot copy of every FullBlock entry currently
// held, keyed by hash. Used by peak_state to materialize the resident main
// chain for callers that want it.
func (idx *Index) FullEntries() map[types.Hash]*types.Block {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make(map[types.Hash]*types.Block)
	for h, e := range idx.byHash {
		if e.IsFull() {
			out[h] = e.Block
		}
	}
	return out
}

// SetPlaceholderComplete marks that prefetch has finished populating the
// index from the store. Written once by the prefetch routine, read
// lock-free by many.
func (idx *Index) SetPlaceholderComplete(v bool) {
	idx.placeholderComplete.set(v)
}

// PlaceholderComplete reports whether prefetch has finished.
func (idx *Index) PlaceholderComplete() bool {
	return idx.placeholderComplete.get()
}
