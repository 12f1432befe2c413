package chain

import "github.com/chainforge/chainmgr/types"

// NoopValidator accepts every candidate unchanged. Real transaction
// validation and EVM execution are an external collaborator's job; this is
// the test double cmd/chaind falls back to until one is wired in.
type NoopValidator struct{}

func (NoopValidator) Validate(next, _ *types.Block) (*types.Block, error) { return next, nil }

// NoopRelaySink drops every broadcast/relay. Peer-to-peer propagation is
// out of scope for this module.
type NoopRelaySink struct{}

func (NoopRelaySink) Broadcast(data []byte) error { return nil }
func (NoopRelaySink) Relay(data []byte) error     { return nil }

// NoopMempoolSink does nothing. The transaction pool is out of scope.
type NoopMempoolSink struct{}

func (NoopMempoolSink) RemoveTxs(txHashes []types.Hash) {}

// NoopMinerSignal does nothing. The mining worker is out of scope.
type NoopMinerSignal struct{}

func (NoopMinerSignal) NotifyNewPeak(b *types.Block) {}

// NoopTicketNotifier does nothing. The ticket subsystem is out of scope.
type NoopTicketNotifier struct{}

func (NoopTicketNotifier) Debounce(b *types.Block) {}
