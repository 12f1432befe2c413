//go:build !js
// +build !js

package chainstore

import "github.com/chainforge/chainmgr/ethdb/leveldb"

// NewLevelDB returns a Store backed by a leveldb database at path. cache and
// handles size the database's internal caches and file-handle budget; see
// ethdb/leveldb for their meaning.
func NewLevelDB(path string, cache, handles int) (Store, error) {
	db, err := leveldb.New(path, cache, handles, "chainstore/", false)
	if err != nil {
		return nil, err
	}
	return newKVStore(db), nil
}
