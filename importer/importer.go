// Package importer implements streaming replay of an
// externally supplied block range, skipping blocks already known and
// halting on the first validation failure.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chainforge/chainmgr/chain"
	"github.com/chainforge/chainmgr/hotcache"
	"github.com/chainforge/chainmgr/log"
	"github.com/chainforge/chainmgr/synccoord"
	"github.com/chainforge/chainmgr/types"
)

// syncCaller identifies the importer to the sync coordinator's active-sync
// slot.
const syncCaller = "importer"

// ErrSyncInProgress is returned when another caller already holds the
// active-sync slot.
var ErrSyncInProgress = errors.New("importer: sync already in progress")

// Source yields blocks in order, returning io.EOF once exhausted.
type Source interface {
	Next() (*types.Block, error)
}

// SliceSource adapts an in-memory slice to Source, for tests and small
// imports that don't need to stream from a file or a peer connection.
type SliceSource struct {
	blocks []*types.Block
	i      int
}

// NewSliceSource returns a Source that yields blocks in order.
func NewSliceSource(blocks []*types.Block) *SliceSource {
	return &SliceSource{blocks: blocks}
}

func (s *SliceSource) Next() (*types.Block, error) {
	if s.i >= len(s.blocks) {
		return nil, io.EOF
	}
	b := s.blocks[s.i]
	s.i++
	return b, nil
}

// Result summarizes one ImportBlocks call.
type Result struct {
	// Imported is the number of blocks newly installed (known blocks that
	// were skipped do not count).
	Imported int
	// Final is the last block reached, known or newly installed.
	Final *types.Block
}

// Importer drives block replay through a chain.Manager.
type Importer struct {
	mgr   *chain.Manager
	coord *synccoord.Coordinator
	log   log.Logger
}

// New returns an Importer submitting blocks to mgr and releasing the
// active-sync slot on coord when it finishes.
func New(mgr *chain.Manager, coord *synccoord.Coordinator) *Importer {
	return &Importer{mgr: mgr, coord: coord, log: log.Root()}
}

// ImportBlocks replays source in order: blocks already known by hash are
// skipped and adopted as the parent reference; the first unknown block is
// validated against that reference and, on success, submitted to the
// actor synchronously with relay disabled. It halts on the first
// validation failure, leaving every already-installed block in place.
func (im *Importer) ImportBlocks(ctx context.Context, source Source) (*Result, error) {
	task := hotcache.NewTaskCache()
	result := &Result{}

	if !im.coord.IsActiveSync(syncCaller, true) {
		return result, ErrSyncInProgress
	}
	defer func() { im.coord.FinishSync(nil, finalNumber(result.Final)) }()

	var prev *types.Block
	for {
		cur, err := source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, err
		}

		known, err := im.mgr.ReadBlockByHash(task, cur.Hash())
		if err != nil {
			return result, err
		}
		if known != nil {
			prev = known
			result.Final = known
			continue
		}

		if prev == nil {
			p, err := im.mgr.ReadBlockByHash(task, cur.ParentHash())
			if err != nil {
				return result, err
			}
			prev = p
		}

		validated, verr := im.mgr.Validator().Validate(cur, prev)
		if verr != nil {
			return result, fmt.Errorf("%w: %v", types.ErrValidationFailure, verr)
		}

		if _, aerr := im.mgr.AddBlock(ctx, validated, false, false); aerr != nil {
			return result, aerr
		}
		task.Get(validated.Hash(), func() (*types.Block, error) { return validated, nil })

		prev = validated
		result.Final = validated
		result.Imported++
	}

	return result, nil
}

func finalNumber(b *types.Block) uint64 {
	if b == nil {
		return 0
	}
	return b.Number()
}
