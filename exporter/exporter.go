// Package exporter implements a chunked,
// resumable, transactional bulk dump of the main chain into a secondary
// store.
package exporter

import (
	"errors"

	"github.com/chainforge/chainmgr/chainstore"
	"github.com/chainforge/chainmgr/log"
	"github.com/chainforge/chainmgr/types"
)

// ChunkSize is the number of blocks written per archive transaction.
const ChunkSize = 100

// ErrReorgDuringExport is returned when two consecutively exported blocks
// no longer form a parent/child pair, meaning the main chain reorganized
// while the export was in progress.
var ErrReorgDuringExport = errors.New("exporter: reorg detected mid-export")

// Exporter streams main-chain blocks from store into archive.
type Exporter struct {
	store   chainstore.Store
	archive *Archive
	log     log.Logger
}

// New returns an Exporter reading from store and writing into archive.
func New(store chainstore.Store, archive *Archive) *Exporter {
	return &Exporter{store: store, archive: archive, log: log.Root()}
}

// Export walks the main chain in descending order from the current peak,
// resuming from just above the archive's highest recorded number, and
// returns the count of newly written blocks. It aborts with
// ErrReorgDuringExport if it detects the main chain changed underneath it
// mid-walk. On that abort, and on a store read error, the blocks read so
// far, including the partly filled current chunk, are flushed to the
// archive and stay there.
func (e *Exporter) Export() (int, error) {
	peak, err := e.store.PeakBlock()
	if err != nil {
		return 0, err
	}
	if peak == nil {
		return 0, nil
	}

	var stopAt uint64
	highest, ok, err := e.archive.HighestNumber()
	if err != nil {
		return 0, err
	}
	if ok {
		if highest >= peak.Number() {
			return 0, nil
		}
		stopAt = highest + 1
	}

	var (
		written int
		chunk   []Record
		prev    *types.Block
	)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := e.archive.PutChunk(chunk); err != nil {
			return err
		}
		written += len(chunk)
		chunk = chunk[:0]
		return nil
	}

	for n := peak.Number(); ; n-- {
		b, err := e.store.Block(n)
		if err != nil {
			_ = flush()
			return written, err
		}
		if b == nil {
			break
		}
		if prev != nil && prev.ParentHash() != b.Hash() {
			_ = flush()
			return written, ErrReorgDuringExport
		}

		chunk = append(chunk, Record{Number: n, Data: b.Export()})
		prev = b

		if len(chunk) >= ChunkSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
		if n == stopAt || n == 0 {
			break
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}
