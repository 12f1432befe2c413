package chainstore

import (
	"encoding/binary"

	"github.com/chainforge/chainmgr/ethdb"
	"github.com/chainforge/chainmgr/types"
)

// Key prefixes. All keys live in a single flat keyspace, the same layout
// pattern a certificate/height-indexed block store uses: a one-byte tag
// followed by the natural key.
const (
	prefixBlock  = 'b' // blockKey(hash) -> exported block bytes
	prefixNumber = 'n' // numberKey(n)   -> hash, main chain only
	prefixTx     = 't' // txKey(txHash)  -> hash, main chain only
	prefixAlt    = 'a' // altKey(hash)   -> hash, alt-branch marker
)

var peakKey = []byte("peak")

func blockKey(h types.Hash) []byte {
	k := make([]byte, 1+len(h))
	k[0] = prefixBlock
	copy(k[1:], h[:])
	return k
}

func numberKey(n uint64) []byte {
	k := make([]byte, 9)
	k[0] = prefixNumber
	binary.BigEndian.PutUint64(k[1:], n)
	return k
}

func txKey(h types.Hash) []byte {
	k := make([]byte, 1+len(h))
	k[0] = prefixTx
	copy(k[1:], h[:])
	return k
}

func altKey(h types.Hash) []byte {
	k := make([]byte, 1+len(h))
	k[0] = prefixAlt
	copy(k[1:], h[:])
	return k
}

// kvStore implements Store on top of any ethdb.KeyValueStore.
type kvStore struct {
	db ethdb.KeyValueStore
}

// newKVStore wraps db as a Store.
func newKVStore(db ethdb.KeyValueStore) *kvStore {
	return &kvStore{db: db}
}

func (s *kvStore) Close() error { return s.db.Close() }

func (s *kvStore) PeakBlock() (*types.Block, error) {
	has, err := s.db.Has(peakKey)
	if err != nil {
		return nil, types.WrapStoreError("peak_block", err)
	}
	if !has {
		return nil, nil
	}
	raw, err := s.db.Get(peakKey)
	if err != nil {
		return nil, types.WrapStoreError("peak_block", err)
	}
	return s.BlockByHash(types.BytesToHash(raw))
}

func (s *kvStore) BlockByHash(h types.Hash) (*types.Block, error) {
	has, err := s.db.Has(blockKey(h))
	if err != nil {
		return nil, types.WrapStoreError("block_by_hash", err)
	}
	if !has {
		return nil, nil
	}
	raw, err := s.db.Get(blockKey(h))
	if err != nil {
		return nil, types.WrapStoreError("block_by_hash", err)
	}
	b, err := types.DecodeBlock(raw)
	if err != nil {
		return nil, types.WrapStoreError("block_by_hash", err)
	}
	return b, nil
}

func (s *kvStore) Block(n uint64) (*types.Block, error) {
	has, err := s.db.Has(numberKey(n))
	if err != nil {
		return nil, types.WrapStoreError("block", err)
	}
	if !has {
		return nil, nil
	}
	raw, err := s.db.Get(numberKey(n))
	if err != nil {
		return nil, types.WrapStoreError("block", err)
	}
	return s.BlockByHash(types.BytesToHash(raw))
}

func (s *kvStore) BlockByTxHash(tx types.Hash) (*types.Block, error) {
	has, err := s.db.Has(txKey(tx))
	if err != nil {
		return nil, types.WrapStoreError("block_by_txhash", err)
	}
	if !has {
		return nil, nil
	}
	raw, err := s.db.Get(txKey(tx))
	if err != nil {
		return nil, types.WrapStoreError("block_by_txhash", err)
	}
	return s.BlockByHash(types.BytesToHash(raw))
}

func (s *kvStore) PutBlock(b *types.Block) error {
	batch := s.db.NewBatch()
	if err := s.writeMainBlock(batch, b); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return types.WrapStoreError("put_block", err)
	}
	return nil
}

// writeMainBlock queues the writes that install b as a main-chain block:
// the block body, its number entry, its transaction index entries, and
// removal of any stale alt marker. Shared by PutBlock and PutPeak so both
// go through the same batch per head update.
func (s *kvStore) writeMainBlock(batch ethdb.Batch, b *types.Block) error {
	h := b.Hash()
	if err := batch.Put(blockKey(h), b.Export()); err != nil {
		return types.WrapStoreError("put_block", err)
	}
	if err := batch.Put(numberKey(b.Number()), h[:]); err != nil {
		return types.WrapStoreError("put_block", err)
	}
	for _, tx := range b.Transactions() {
		if err := batch.Put(txKey(tx.Hash), h[:]); err != nil {
			return types.WrapStoreError("put_block", err)
		}
	}
	if err := batch.Delete(altKey(h)); err != nil {
		return types.WrapStoreError("put_block", err)
	}
	return nil
}

func (s *kvStore) PutNewBlock(b *types.Block) error {
	h := b.Hash()
	batch := s.db.NewBatch()
	if err := batch.Put(blockKey(h), b.Export()); err != nil {
		return types.WrapStoreError("put_new_block", err)
	}
	if err := batch.Put(altKey(h), h[:]); err != nil {
		return types.WrapStoreError("put_new_block", err)
	}
	if err := batch.Write(); err != nil {
		return types.WrapStoreError("put_new_block", err)
	}
	return nil
}

// PutPeak atomically installs b as peak. It walks back from b along parent
// pointers, queuing a main-chain rewrite for every ancestor whose number
// entry does not already point at it, stopping the first time it finds
// agreement — the same termination condition the index refetch in chain/
// uses during a reorg. Every queued write lands in a single batch so the
// head update is atomic.
func (s *kvStore) PutPeak(b *types.Block) error {
	batch := s.db.NewBatch()

	cur := b
	for cur != nil {
		h := cur.Hash()
		existing, err := s.db.Get(numberKey(cur.Number()))
		if err == nil && types.BytesToHash(existing) == h {
			break // already agrees; common ancestor reached
		}
		if err := s.writeMainBlock(batch, cur); err != nil {
			return err
		}
		if cur.ParentHash().IsZero() {
			break
		}
		parent, perr := s.BlockByHash(cur.ParentHash())
		if perr != nil {
			return perr
		}
		if parent == nil {
			break // parent not in store; nothing further to rewrite
		}
		cur = parent
	}

	h := b.Hash()
	if err := batch.Put(peakKey, h[:]); err != nil {
		return types.WrapStoreError("put_peak", err)
	}
	if err := batch.Write(); err != nil {
		return types.WrapStoreError("put_peak", err)
	}
	return nil
}

func (s *kvStore) BlocksByHash(h types.Hash, limit int) ([]*types.Block, error) {
	out := make([]*types.Block, 0, limit)
	cur := h
	for len(out) < limit {
		b, err := s.BlockByHash(cur)
		if err != nil {
			return nil, err
		}
		if b == nil {
			break
		}
		out = append(out, b)
		if b.ParentHash().IsZero() {
			break
		}
		cur = b.ParentHash()
	}
	return out, nil
}

func (s *kvStore) TopBlocks(k int) ([]*types.Block, error) {
	peak, err := s.PeakBlock()
	if err != nil || peak == nil {
		return nil, err
	}
	out := make([]*types.Block, 0, k)
	for n := peak.Number(); len(out) < k; {
		b, err := s.Block(n)
		if err != nil {
			return nil, err
		}
		if b != nil {
			out = append(out, b)
		}
		if n == 0 {
			break
		}
		n--
	}
	return out, nil
}

func (s *kvStore) AllBlockHashes() ([]HashNumber, error) {
	it := s.db.NewIterator([]byte{prefixBlock}, nil)
	defer it.Release()

	var out []HashNumber
	for it.Next() {
		raw, err := types.DecodeBlock(it.Value())
		if err != nil {
			return nil, types.WrapStoreError("all_block_hashes", err)
		}
		out = append(out, HashNumber{Hash: raw.Hash(), Number: raw.Number()})
	}
	if err := it.Error(); err != nil {
		return nil, types.WrapStoreError("all_block_hashes", err)
	}
	return out, nil
}

func (s *kvStore) ClearAltBlocks() error {
	it := s.db.NewIterator([]byte{prefixAlt}, nil)
	defer it.Release()

	batch := s.db.NewBatch()
	for it.Next() {
		h := types.BytesToHash(it.Value())
		key := make([]byte, len(it.Key()))
		copy(key, it.Key())
		if err := batch.Delete(key); err != nil {
			return types.WrapStoreError("clear_alt_blocks", err)
		}
		if err := batch.Delete(blockKey(h)); err != nil {
			return types.WrapStoreError("clear_alt_blocks", err)
		}
	}
	if err := it.Error(); err != nil {
		return types.WrapStoreError("clear_alt_blocks", err)
	}
	if err := batch.Write(); err != nil {
		return types.WrapStoreError("clear_alt_blocks", err)
	}
	return nil
}

func (s *kvStore) TruncateBlocks() error {
	it := s.db.NewIterator(nil, nil)
	defer it.Release()

	batch := s.db.NewBatch()
	for it.Next() {
		key := make([]byte, len(it.Key()))
		copy(key, it.Key())
		if err := batch.Delete(key); err != nil {
			return types.WrapStoreError("truncate_blocks", err)
		}
	}
	if err := it.Error(); err != nil {
		return types.WrapStoreError("truncate_blocks", err)
	}
	if err := batch.Write(); err != nil {
		return types.WrapStoreError("truncate_blocks", err)
	}
	return nil
}
