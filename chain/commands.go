package chain

import "github.com/chainforge/chainmgr/types"

// AddResult is the outcome add_block reports to its caller.
type AddResult int

const (
	// Added means the block is now (or remains) on the main chain.
	Added AddResult = iota
	// Stored means the block was persisted as an alt branch; the peak did
	// not change.
	Stored
	// Rejected means the block failed a precondition and was never
	// enqueued to the actor. It is also returned, with a non-nil error,
	// when a synchronous actor call fails or times out.
	Rejected
	// Unknown is returned by the async variant of add_block, which does
	// not wait for a result.
	Unknown
)

func (r AddResult) String() string {
	switch r {
	case Added:
		return "added"
	case Stored:
		return "stored"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

type addBlockCmd struct {
	block *types.Block
	relay bool
}

type setPeakCmd struct {
	block *types.Block
}

type peakBlockCmd struct{}

type finalBlockCmd struct{}

type peakStateCmd struct{}

type syncCmd struct{}

type setStateCmd struct {
	state ChainState
}

type resetStateCmd struct{}
