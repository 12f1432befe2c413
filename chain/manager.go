// Package chain implements the chain actor (single-writer fork-choice
// engine) that owns the canonical peak and everything that follows from a
// change to it: index maintenance, event publication, mempool pruning,
// relay decisions, and the miner/ticket notification paths.
package chain

import (
	"context"
	"errors"
	"time"

	"github.com/chainforge/chainmgr/blockindex"
	"github.com/chainforge/chainmgr/chainactor"
	"github.com/chainforge/chainmgr/chainstore"
	"github.com/chainforge/chainmgr/eventbus"
	"github.com/chainforge/chainmgr/hotcache"
	"github.com/chainforge/chainmgr/log"
	"github.com/chainforge/chainmgr/metrics"
	"github.com/chainforge/chainmgr/types"
)

const (
	// DefaultWindow is the number of trailing blocks the in-memory index
	// keeps as full entries.
	DefaultWindow = 1000

	// DefaultCallTimeout bounds every synchronous actor call except
	// set_peak and the other administrative operations, which wait
	// unboundedly on the caller's own context.
	DefaultCallTimeout = 25 * time.Second

	// defaultFinalityDepth is how far behind the peak final_block looks.
	// Nothing else in this module tracks a second consensus signal for
	// finality, so a fixed confirmation depth stands in for one.
	defaultFinalityDepth = 12

	mailboxCapacity = 64
)

// Manager is the chain actor: the single goroutine, reached only
// through chainactor.Actor, that owns ChainState and is the sole writer of
// both the chain store and the block index.
type Manager struct {
	store chainstore.Store
	index *blockindex.Index
	cache *hotcache.ProcessCache
	actor *chainactor.Actor

	validator   Validator
	relay       RelaySink
	mempool     MempoolSink
	minerSignal MinerSignal
	ticket      TicketNotifier
	bus         *eventbus.Bus
	metrics     *metrics.Chain

	minerID     types.Hash
	window      uint64
	callTimeout time.Duration

	log log.Logger

	// state is owned exclusively by the actor goroutine once Start has
	// returned; every other field above is read-only after construction
	// or safe for concurrent use on its own terms (store, index, cache).
	state ChainState
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithWindow overrides DefaultWindow.
func WithWindow(w uint64) Option {
	return func(m *Manager) { m.window = w }
}

// WithCallTimeout overrides DefaultCallTimeout.
func WithCallTimeout(d time.Duration) Option {
	return func(m *Manager) { m.callTimeout = d }
}

// WithMetrics wires a Chain collector. Without this option metrics updates
// are skipped.
func WithMetrics(c *metrics.Chain) Option {
	return func(m *Manager) { m.metrics = c }
}

// WithLogger overrides the manager's logger. Without this option it uses
// log.Root().
func WithLogger(l log.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager builds a Manager around store and the five external
// collaborators. minerID identifies blocks this process itself produced,
// which get Broadcast instead of Relay on a peak change.
func NewManager(
	store chainstore.Store,
	validator Validator,
	relay RelaySink,
	mempool MempoolSink,
	minerSignal MinerSignal,
	ticket TicketNotifier,
	bus *eventbus.Bus,
	minerID types.Hash,
	opts ...Option,
) *Manager {
	m := &Manager{
		store:       store,
		index:       blockindex.New(),
		cache:       hotcache.NewProcessCache(),
		validator:   validator,
		relay:       relay,
		mempool:     mempool,
		minerSignal: minerSignal,
		ticket:      ticket,
		bus:         bus,
		minerID:     minerID,
		window:      DefaultWindow,
		callTimeout: DefaultCallTimeout,
		log:         log.Root(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start seeds the store with genesis if it is empty, otherwise adopts the
// persisted peak, then rebuilds the in-memory index from the store and
// launches the actor goroutine. It must be called exactly once before any
// other Manager method.
func (m *Manager) Start(genesis *types.Block) error {
	peak, err := m.store.PeakBlock()
	if err != nil {
		return err
	}
	seeded := peak == nil
	if peak == nil {
		if err := m.store.TruncateBlocks(); err != nil {
			return err
		}
		if err := m.store.PutBlock(genesis); err != nil {
			return err
		}
		if err := m.store.PutPeak(genesis); err != nil {
			return err
		}
		peak = genesis
	}
	m.state.Peak = peak

	if err := m.prefetch(); err != nil {
		return err
	}
	if seeded {
		// Genesis's declared parent is a sentinel, not a real block;
		// record it in the index as known. This runs after prefetch,
		// which clears the index.
		m.index.PutPlaceholder(genesis.ParentHash())
	}
	m.actor = chainactor.New(m.handle, mailboxCapacity)
	return nil
}

// Validator returns the block validator the manager was constructed with,
// for the importer to call ahead of submitting a block.
func (m *Manager) Validator() Validator { return m.validator }

// Close stops the actor, waiting for its mailbox to drain.
func (m *Manager) Close() {
	if m.actor != nil {
		m.actor.Close()
	}
}

// ReadBlockByHash is the general read path: per-task MRU, then the
// in-memory index, then the process-wide LRU, falling through to the store
// on a full miss. It never touches the actor and never blocks on anything
// but store I/O. task may be nil for a one-off lookup with no task-local
// cache to populate.
func (m *Manager) ReadBlockByHash(task *hotcache.TaskCache, h types.Hash) (*types.Block, error) {
	if task != nil {
		if b, ok := task.Peek(h); ok {
			return b, nil
		}
	}
	if e, ok := m.index.Lookup(h); ok && e.IsFull() {
		if task != nil {
			task.Get(h, func() (*types.Block, error) { return e.Block, nil })
		}
		return e.Block, nil
	}
	b, err := m.cache.Get(h, func() (*types.Block, error) {
		return m.store.BlockByHash(h)
	})
	if err != nil {
		return nil, err
	}
	if task != nil && b != nil {
		task.Get(h, func() (*types.Block, error) { return b, nil })
	}
	return b, nil
}

// prefetch rebuilds the index from the store: every known hash becomes a
// Placeholder, and the trailing window of main-chain blocks below the peak
// becomes FullBlock entries. It is the authoritative repair path for the
// index, also used by set_state.
func (m *Manager) prefetch() error {
	m.index.ClearAll()
	m.index.SetPlaceholderComplete(false)

	hashes, err := m.store.AllBlockHashes()
	if err != nil {
		return err
	}
	for _, hn := range hashes {
		m.index.PutPlaceholder(hn.Hash)
	}

	if m.state.Peak != nil {
		top, err := m.store.TopBlocks(int(m.window))
		if err != nil {
			return err
		}
		for _, b := range top {
			m.index.PutFull(b.Hash(), b)
			m.index.PutNumber(b.Number(), b.Hash())
		}
	}
	m.index.SetPlaceholderComplete(true)
	return nil
}

// handle is the actor's single entry point, dispatching on command type.
// Every branch runs on the actor goroutine and may read/write m.state and
// m.index freely without additional locking.
func (m *Manager) handle(cmd chainactor.Command) (interface{}, error) {
	switch c := cmd.(type) {
	case addBlockCmd:
		return m.handleAddBlock(c)
	case setPeakCmd:
		return m.handleSetPeak(c)
	case peakBlockCmd:
		return m.handlePeakBlock(c)
	case finalBlockCmd:
		return m.handleFinalBlock(c)
	case peakStateCmd:
		return m.handlePeakState(c)
	case syncCmd:
		return m.handleSync(c)
	case setStateCmd:
		return m.handleSetState(c)
	case resetStateCmd:
		return m.handleResetState(c)
	default:
		return nil, errors.New("chain: unknown command")
	}
}

// AddBlock submits block to the actor. When async is true it is a
// fire-and-forget Tell and the returned result is always Unknown; otherwise
// it blocks (bounded by DefaultCallTimeout unless ctx is shorter) for the
// actor's verdict.
func (m *Manager) AddBlock(ctx context.Context, block *types.Block, relay, async bool) (AddResult, error) {
	if !block.HasState() {
		return Rejected, types.ErrMissingState
	}
	if block.Number() < 1 {
		return Rejected, types.ErrInvalidGenesis
	}
	if e, ok := m.index.Lookup(block.Hash()); ok && e.IsFull() {
		return Added, nil
	}

	cmd := addBlockCmd{block: block, relay: relay}
	if async {
		return Unknown, m.actor.Tell(cmd)
	}

	ctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	v, err := m.actor.Ask(ctx, cmd)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Rejected, types.ErrActorTimeout
		}
		return Rejected, err
	}
	return v.(AddResult), nil
}

// Bus returns the event bus the manager publishes peak changes to. Callers
// may subscribe to it for observability; the manager itself never reads
// back from it.
func (m *Manager) Bus() *eventbus.Bus {
	return m.bus
}

// SetPeak forces block to become peak, administratively. It waits
// unboundedly on ctx rather than imposing DefaultCallTimeout.
func (m *Manager) SetPeak(ctx context.Context, block *types.Block) error {
	_, err := m.actor.Ask(ctx, setPeakCmd{block: block})
	return err
}

// PeakBlock returns the current peak, or nil if the chain is empty.
func (m *Manager) PeakBlock(ctx context.Context) (*types.Block, error) {
	ctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	v, err := m.actor.Ask(ctx, peakBlockCmd{})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*types.Block), nil
}

// FinalBlock returns the block the manager currently considers finalized.
func (m *Manager) FinalBlock(ctx context.Context) (*types.Block, error) {
	ctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	v, err := m.actor.Ask(ctx, finalBlockCmd{})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*types.Block), nil
}

// PeakState returns a snapshot of the current ChainState plus the
// hash-keyed view of the main chain's currently in-memory window.
func (m *Manager) PeakState(ctx context.Context) (*PeakState, error) {
	ctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	v, err := m.actor.Ask(ctx, peakStateCmd{})
	if err != nil {
		return nil, err
	}
	return v.(*PeakState), nil
}

// Sync is a fence: it returns once every command enqueued before it has
// been processed, without itself changing any state.
func (m *Manager) Sync(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	_, err := m.actor.Ask(ctx, syncCmd{})
	return err
}

// SetState replaces the manager's entire state with seed and rewrites the
// persistent store to match. It is for tests and administrative recovery
// only and waits unboundedly on ctx.
func (m *Manager) SetState(ctx context.Context, seed ChainState) error {
	_, err := m.actor.Ask(ctx, setStateCmd{state: seed})
	return err
}

// ResetState clears the manager back to an empty chain: no peak, an empty
// store, and an empty index. It waits unboundedly on ctx.
func (m *Manager) ResetState(ctx context.Context) error {
	_, err := m.actor.Ask(ctx, resetStateCmd{})
	return err
}

// PeakState is the materialized view peak_state returns: the current peak
// plus every full block currently held in the in-memory index, keyed by
// hash, for callers that want the whole resident main chain with state.
type PeakState struct {
	Peak   *types.Block
	ByHash map[types.Hash]*types.Block
}
