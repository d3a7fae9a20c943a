package composer

import (
	"sync"

	"multiblock/internal/domain/models/canvas"
)

// ContextCache memoises composed contexts per block. Entries are sharded by
// board so boards never contend with each other. Every invalidation bumps a
// version; Store refuses results computed against an older version.
type ContextCache struct {
	mu     sync.RWMutex
	boards map[string]*boardShard
}

type boardShard struct {
	mu       sync.Mutex
	entries  map[string]*canvas.ComposedContext
	versions map[string]uint64
	epoch    uint64 // bumped by InvalidateBoard
}

// NewContextCache creates an empty cache
func NewContextCache() *ContextCache {
	return &ContextCache{boards: make(map[string]*boardShard)}
}

func (c *ContextCache) shard(boardID string) *boardShard {
	c.mu.RLock()
	s, ok := c.boards[boardID]
	c.mu.RUnlock()
	if ok {
		return s
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok = c.boards[boardID]; !ok {
		s = &boardShard{
			entries:  make(map[string]*canvas.ComposedContext),
			versions: make(map[string]uint64),
		}
		c.boards[boardID] = s
	}
	return s
}

// Version is the stamp of a block's entry; pass it back to Store.
type Version struct {
	epoch uint64
	block uint64
}

// Get returns the cached context and the current version of the block.
func (c *ContextCache) Get(boardID, blockID string) (*canvas.ComposedContext, Version) {
	s := c.shard(boardID)
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.entries[blockID], Version{epoch: s.epoch, block: s.versions[blockID]}
}

// Store saves a result if the block was not invalidated since v was read.
func (c *ContextCache) Store(boardID, blockID string, v Version, composed *canvas.ComposedContext) bool {
	s := c.shard(boardID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != v.epoch || s.versions[blockID] != v.block {
		return false
	}
	s.entries[blockID] = composed
	return true
}

// Invalidate drops one block's entry
func (c *ContextCache) Invalidate(boardID, blockID string) {
	s := c.shard(boardID)
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, blockID)
	s.versions[blockID]++
}

// InvalidateBoard drops every entry of a board
func (c *ContextCache) InvalidateBoard(boardID string) int {
	s := c.shard(boardID)
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	clear(s.entries)
	s.epoch++
	return n
}

// Len returns the number of cached entries of a board
func (c *ContextCache) Len(boardID string) int {
	s := c.shard(boardID)
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}
