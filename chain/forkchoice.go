package chain

import "github.com/chainforge/chainmgr/types"

// handleAddBlock implements the four fork-choice cases: the block is
// already known (duplicate), extends a branch that isn't the peak
// (alt-extension), extends the peak directly (main-extension), or beats the
// peak's total difficulty from off the main chain (reorg).
func (m *Manager) handleAddBlock(cmd addBlockCmd) (interface{}, error) {
	block := cmd.block

	if e, ok := m.index.Lookup(block.Hash()); ok && e.IsFull() {
		return Added, nil
	}

	peak := m.state.Peak
	if peak == nil {
		if err := m.installMainBlock(block); err != nil {
			return nil, err
		}
		m.onPeakChanged(block, cmd.relay, false)
		return Added, nil
	}

	if peak.Hash() == block.ParentHash() {
		if err := m.installMainBlock(block); err != nil {
			return nil, err
		}
		if block.Number() >= m.window {
			m.index.EvictNumber(block.Number() - m.window)
		}
		m.onPeakChanged(block, cmd.relay, false)
		return Added, nil
	}

	if block.TotalDifficulty() <= peak.TotalDifficulty() {
		if err := m.store.PutNewBlock(block); err != nil {
			return nil, err
		}
		m.index.PutPlaceholder(block.Hash())
		return Stored, nil
	}

	if err := m.store.PutPeak(block); err != nil {
		return nil, err
	}
	if err := m.refetchIndex(block); err != nil {
		return nil, err
	}
	m.onPeakChanged(block, cmd.relay, true)
	return Added, nil
}

// handleSetPeak forces block to become peak unconditionally, the
// administrative equivalent of the reorg branch of handleAddBlock.
func (m *Manager) handleSetPeak(cmd setPeakCmd) (interface{}, error) {
	block := cmd.block
	if err := m.store.PutPeak(block); err != nil {
		return nil, err
	}
	if err := m.refetchIndex(block); err != nil {
		return nil, err
	}
	m.onPeakChanged(block, false, true)
	return nil, nil
}

func (m *Manager) handlePeakBlock(_ peakBlockCmd) (interface{}, error) {
	return m.state.Peak, nil
}

func (m *Manager) handleFinalBlock(_ finalBlockCmd) (interface{}, error) {
	if m.state.Peak == nil {
		return nil, nil
	}
	n := m.state.Peak.Number()
	var finalNum uint64
	if n > defaultFinalityDepth {
		finalNum = n - defaultFinalityDepth
	}
	return m.store.Block(finalNum)
}

func (m *Manager) handlePeakState(_ peakStateCmd) (interface{}, error) {
	return &PeakState{
		Peak:   m.state.Peak,
		ByHash: m.index.FullEntries(),
	}, nil
}

func (m *Manager) handleSync(_ syncCmd) (interface{}, error) {
	return nil, nil
}

// handleSetState replaces the entire actor state with cmd.state and
// rewrites the store to match it, then rebuilds the index. It is
// deliberately conservative: the rewrite happens synchronously, inside the
// same actor turn, so no concurrent read can observe a store that disagrees
// with the new state.
func (m *Manager) handleSetState(cmd setStateCmd) (interface{}, error) {
	if err := m.store.TruncateBlocks(); err != nil {
		return nil, err
	}
	m.state = cmd.state
	if m.state.Peak != nil {
		if err := m.store.PutBlock(m.state.Peak); err != nil {
			return nil, err
		}
		if err := m.store.PutPeak(m.state.Peak); err != nil {
			return nil, err
		}
	}
	if err := m.prefetch(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (m *Manager) handleResetState(_ resetStateCmd) (interface{}, error) {
	if err := m.store.TruncateBlocks(); err != nil {
		return nil, err
	}
	m.state = ChainState{}
	m.index.ClearAll()
	m.index.SetPlaceholderComplete(true)
	return nil, nil
}

func (m *Manager) installMainBlock(block *types.Block) error {
	if err := m.store.PutBlock(block); err != nil {
		return err
	}
	m.index.PutFull(block.Hash(), block)
	m.index.PutNumber(block.Number(), block.Hash())
	return nil
}

// refetchIndex walks back from block along parent pointers, installing each
// ancestor as a FullBlock and number entry, stopping as soon as the index
// already agrees with the new main chain at that height (the same
// termination rule chainstore's PutPeak uses for the persistent store), at
// the zero parent hash, or at a missing parent.
func (m *Manager) refetchIndex(block *types.Block) error {
	cur := block
	for cur != nil {
		h := cur.Hash()
		if existing, ok := m.index.LookupNumber(cur.Number()); ok && existing == h {
			break
		}
		m.index.PutFull(h, cur)
		m.index.PutNumber(cur.Number(), h)

		if cur.ParentHash().IsZero() {
			break
		}
		parent, err := m.blockByHashLocked(cur.ParentHash())
		if err != nil {
			return err
		}
		if parent == nil {
			break
		}
		cur = parent
	}
	return nil
}

// blockByHashLocked looks up a block by hash, preferring the in-memory
// index over the store. Only called from the actor goroutine.
func (m *Manager) blockByHashLocked(h types.Hash) (*types.Block, error) {
	if e, ok := m.index.Lookup(h); ok && e.IsFull() {
		return e.Block, nil
	}
	return m.store.BlockByHash(h)
}

// onPeakChanged runs every post-processing step a new peak triggers:
// caching, mempool pruning, event publication, ticket debounce, relay
// decision, miner notification, and metrics.
func (m *Manager) onPeakChanged(block *types.Block, relay, reorg bool) {
	m.state.Peak = block
	m.cache.Add(block.Hash(), block)

	if len(block.Transactions()) > 0 {
		hashes := make([]types.Hash, len(block.Transactions()))
		for i, tx := range block.Transactions() {
			hashes[i] = tx.Hash
		}
		m.mempool.RemoveTxs(hashes)
	}

	m.bus.PublishPeak(block)
	m.ticket.Debounce(block)

	if relay {
		data := block.Export()
		if block.Miner() == m.minerID {
			_ = m.relay.Broadcast(data)
		} else {
			_ = m.relay.Relay(data)
		}
	}
	m.minerSignal.NotifyNewPeak(block)

	if m.metrics != nil {
		m.metrics.PeakHeight.Set(float64(block.Number()))
		m.metrics.PeakTotalDifficulty.Set(float64(block.TotalDifficulty()))
		m.metrics.BlockIndexFullEntries.Set(float64(m.index.FullEntryCount()))
		m.metrics.HotcacheHitRatio.Set(m.cache.HitRatio())
		if reorg {
			m.metrics.ReorgsTotal.Inc()
		}
	}
}
