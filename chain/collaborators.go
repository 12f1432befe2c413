package chain

import "github.com/chainforge/chainmgr/types"

// Validator verifies a candidate block against its would-be parent and
// returns the authoritative, validated instance to install. Transaction
// validation and EVM execution live entirely on the other side of this
// interface; the chain manager only ever sees their verdict.
type Validator interface {
	Validate(next, prev *types.Block) (*types.Block, error)
}

// RelaySink is the peer-to-peer propagation boundary. The manager decides
// whether to Broadcast (this node mined the block) or Relay (it arrived
// from elsewhere) based on miner identity.
type RelaySink interface {
	Broadcast(data []byte) error
	Relay(data []byte) error
}

// MempoolSink lets the manager prune transactions that just landed in a new
// peak block.
type MempoolSink interface {
	RemoveTxs(txHashes []types.Hash)
}

// MinerSignal notifies the mining worker that the peak changed, so it can
// retarget its in-progress candidate.
type MinerSignal interface {
	NotifyNewPeak(b *types.Block)
}

// TicketNotifier is the debounced notification path to an external ticket
// subsystem that cares about peak changes but not about every one of them.
type TicketNotifier interface {
	Debounce(b *types.Block)
}
