package chainstore

import "github.com/chainforge/chainmgr/ethdb/memorydb"

// NewMemory returns a Store backed by an in-memory map. Used by tests and
// by the dev config's "memory" store kind.
func NewMemory() Store {
	return newKVStore(memorydb.New())
}
