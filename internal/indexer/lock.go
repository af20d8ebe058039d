package indexer

import (
	"sync"
	"sync/atomic"
)

// IndexLock provides non-blocking lock semantics using atomic operations.
type IndexLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock. Only the holder may call it.
func (l *IndexLock) Release() {
	l.state.Store(0)
}

// collectionLocks hands out one IndexLock per collection so that two bulk
// indexing runs never interleave writes into the same collection.
type collectionLocks struct {
	mu    sync.Mutex
	locks map[string]*IndexLock
}

func (c *collectionLocks) get(name string) *IndexLock {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks == nil {
		c.locks = make(map[string]*IndexLock)
	}
	l, ok := c.locks[name]
	if !ok {
		l = &IndexLock{}
		c.locks[name] = l
	}
	return l
}
