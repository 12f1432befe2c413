package chain

import "github.com/chainforge/chainmgr/types"

// ChainState is the actor's entire owned state: just the current peak. It is
// deliberately thin; everything else (index, caches, store) is rebuilt from
// or alongside it rather than carried in the struct.
type ChainState struct {
	Peak *types.Block
}
