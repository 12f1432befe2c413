package exporter

import (
	"encoding/binary"

	"github.com/chainforge/chainmgr/ethdb"
	"github.com/chainforge/chainmgr/types"
)

const archivePrefix = 'r'

var highestKey = []byte("highest")

func recordKey(n uint64) []byte {
	k := make([]byte, 9)
	k[0] = archivePrefix
	binary.BigEndian.PutUint64(k[1:], n)
	return k
}

// Record is one row of the secondary store: a main-chain block number and
// its exported bytes.
type Record struct {
	Number uint64
	Data   []byte
}

// Archive is the secondary store export targets: rows of (number, data)
// with no auxiliary row identifier, backed by the same ethdb key-value
// abstraction the primary chain store uses.
type Archive struct {
	db ethdb.KeyValueStore
}

// NewArchive wraps db as an Archive.
func NewArchive(db ethdb.KeyValueStore) *Archive {
	return &Archive{db: db}
}

// HighestNumber returns the highest block number recorded so far, or
// ok=false if the archive is empty.
func (a *Archive) HighestNumber() (uint64, bool, error) {
	has, err := a.db.Has(highestKey)
	if err != nil {
		return 0, false, types.WrapStoreError("archive_highest", err)
	}
	if !has {
		return 0, false, nil
	}
	raw, err := a.db.Get(highestKey)
	if err != nil {
		return 0, false, types.WrapStoreError("archive_highest", err)
	}
	return binary.BigEndian.Uint64(raw), true, nil
}

// PutChunk writes records and advances the highest-number marker in a
// single batch, so a chunk is visible all-or-nothing.
func (a *Archive) PutChunk(records []Record) error {
	if len(records) == 0 {
		return nil
	}
	batch := a.db.NewBatch()
	highest, ok, err := a.HighestNumber()
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := batch.Put(recordKey(r.Number), r.Data); err != nil {
			return types.WrapStoreError("archive_put_chunk", err)
		}
		if !ok || r.Number > highest {
			highest = r.Number
			ok = true
		}
	}
	var hb [8]byte
	binary.BigEndian.PutUint64(hb[:], highest)
	if err := batch.Put(highestKey, hb[:]); err != nil {
		return types.WrapStoreError("archive_put_chunk", err)
	}
	if err := batch.Write(); err != nil {
		return types.WrapStoreError("archive_put_chunk", err)
	}
	return nil
}

// ReadAll decodes every recorded block in ascending number order. It is a
// convenience for round-tripping an archive back through the importer, not
// part of the streaming export/import contract itself.
func (a *Archive) ReadAll() ([]*types.Block, error) {
	highest, ok, err := a.HighestNumber()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var out []*types.Block
	for n := uint64(0); n <= highest; n++ {
		has, err := a.db.Has(recordKey(n))
		if err != nil {
			return nil, types.WrapStoreError("archive_read_all", err)
		}
		if !has {
			continue
		}
		raw, err := a.db.Get(recordKey(n))
		if err != nil {
			return nil, types.WrapStoreError("archive_read_all", err)
		}
		b, err := types.DecodeBlock(raw)
		if err != nil {
			return nil, types.WrapStoreError("archive_read_all", err)
		}
		out = append(out, b)
	}
	return out, nil
}

// Close releases the underlying storage handle.
func (a *Archive) Close() error {
	return a.db.Close()
}
