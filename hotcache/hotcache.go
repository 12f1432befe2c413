// Package hotcache implements the two caches interposed between readers
// and the chain store: a task-local MRU for the lifetime of a single read
// (and its callees), and a process-wide LRU shared by every reader that
// amortizes store misses.
package hotcache

import (
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/chainforge/chainmgr/types"
)

// TaskMRUSize is the fixed capacity of a per-task cache.
const TaskMRUSize = 10

// ProcessLRUSize is the fixed capacity of the shared process cache.
const ProcessLRUSize = 1000

// Loader fetches a block on a cache miss, typically by falling through to
// the block index or the chain store.
type Loader func() (*types.Block, error)

// TaskCache is a bounded most-recently-used cache of full blocks, scoped to
// a single read operation and its callees. It is not safe for concurrent
// use: each task (goroutine, request) must own its own instance.
type TaskCache struct {
	capacity int
	order    []types.Hash // order[0] is least-recently-used
	entries  map[types.Hash]*types.Block
}

// NewTaskCache returns an empty TaskCache with capacity TaskMRUSize.
func NewTaskCache() *TaskCache {
	return &TaskCache{
		capacity: TaskMRUSize,
		entries:  make(map[types.Hash]*types.Block, TaskMRUSize),
	}
}

// Get returns the cached block for hash, calling loader on a miss and
// caching the result (unless loader returns an error).
func (c *TaskCache) Get(hash types.Hash, loader Loader) (*types.Block, error) {
	if b, ok := c.entries[hash]; ok {
		c.touch(hash)
		return b, nil
	}
	b, err := loader()
	if err != nil {
		return nil, err
	}
	c.put(hash, b)
	return b, nil
}

// Peek returns the cached block for hash without calling a loader.
func (c *TaskCache) Peek(hash types.Hash) (*types.Block, bool) {
	b, ok := c.entries[hash]
	return b, ok
}

func (c *TaskCache) put(hash types.Hash, b *types.Block) {
	if _, exists := c.entries[hash]; exists {
		c.entries[hash] = b
		c.touch(hash)
		return
	}
	if len(c.order) >= c.capacity {
		evict := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, evict)
	}
	c.entries[hash] = b
	c.order = append(c.order, hash)
}

func (c *TaskCache) touch(hash types.Hash) {
	for i, h := range c.order {
		if h == hash {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, hash)
}

// ProcessCache is the process-wide LRU shared by all readers, backed by
// hashicorp/golang-lru. It tracks hits and misses for the
// chain_hotcache_hit_ratio gauge.
type ProcessCache struct {
	lru   *lru.Cache
	group singleflight.Group

	hits   counter
	misses counter
}

// NewProcessCache returns a ProcessCache with capacity ProcessLRUSize.
func NewProcessCache() *ProcessCache {
	c, err := lru.New(ProcessLRUSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// ProcessLRUSize never is.
		panic(err)
	}
	return &ProcessCache{lru: c}
}

// Get returns the cached block for hash, calling loader and populating the
// cache on a miss. Concurrent misses for the same hash are coalesced into a
// single loader call via singleflight, so a thundering herd of readers
// chasing the same store miss only pays for it once.
func (c *ProcessCache) Get(hash types.Hash, loader Loader) (*types.Block, error) {
	if v, ok := c.lru.Get(hash); ok {
		c.hits.inc()
		return v.(*types.Block), nil
	}
	c.misses.inc()

	v, err, _ := c.group.Do(hash.String(), func() (interface{}, error) {
		b, err := loader()
		if err != nil {
			return nil, err
		}
		c.lru.Add(hash, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Block), nil
}

// Add inserts or overwrites the cached block for hash.
func (c *ProcessCache) Add(hash types.Hash, b *types.Block) {
	c.lru.Add(hash, b)
}

// Remove evicts hash from the cache, if present.
func (c *ProcessCache) Remove(hash types.Hash) {
	c.lru.Remove(hash)
}

// HitRatio returns the fraction of Get calls answered from cache since the
// cache was created, or 0 if there have been no calls yet.
func (c *ProcessCache) HitRatio() float64 {
	h, m := c.hits.get(), c.misses.get()
	if h+m == 0 {
		return 0
	}
	return float64(h) / float64(h+m)
}
