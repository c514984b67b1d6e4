package engine

import (
	"sync"
)

// Controller is the single point of entry every caller outside this package
// goes through. It is what makes Engine's single-writer assumption safe
// under concurrent access: reads take the read lock, mutations take the
// write lock, and a mutation that pushes the memtable over capacity (checked
// while the write lock is held) spawns its flush in the background once that
// lock is released — the caller who tripped the threshold does not wait on
// the flush themselves.
//
// Per §9, the engine never writes concurrently with itself and a read never
// observes a torn write; nothing here promises multi-writer fairness or
// deadline-based flush scheduling beyond that.
type Controller struct {
	mu     sync.RWMutex
	engine *Engine

	flushWg  sync.WaitGroup
	flushErr func(error)

	shutdownOnce sync.Once
	shutdown     bool
}

// NewController wraps engine. onFlushErr, if non-nil, is called with any
// error a background flush returns; a nil onFlushErr drops them.
func NewController(engine *Engine, onFlushErr func(error)) *Controller {
	return &Controller{engine: engine, flushErr: onFlushErr}
}

// Get takes the read lock and resolves key.
func (c *Controller) Get(key string) (Value, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine.Get(key)
}

// Set installs key's value. If the write pushes the memtable over its
// capacity threshold, a flush is spawned in the background before Set
// returns; the write lock is held for the duration of the memtable update
// but not for the flush itself.
func (c *Controller) Set(key string, v Value) error {
	c.mu.Lock()
	over := c.engine.Set(key, v)
	c.mu.Unlock()

	if over {
		c.spawnFlush()
	}
	return nil
}

// Delete installs a tombstone for key, with the same background-flush
// behavior as Set.
func (c *Controller) Delete(key string) error {
	c.mu.Lock()
	over := c.engine.Delete(key)
	c.mu.Unlock()

	if over {
		c.spawnFlush()
	}
	return nil
}

// Flush forces a synchronous flush regardless of memtable size, under the
// write lock.
func (c *Controller) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Flush()
}

// Compact forces a synchronous full compaction under the write lock. A
// compaction that raced with a background flush simply sees whatever table
// set that flush left behind — the lock serializes them, it does not queue
// them.
func (c *Controller) Compact() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Compact()
}

// Stats reports a point-in-time snapshot for status/monitoring commands.
type Stats struct {
	MemtableSize int64
	TableCount   int
}

func (c *Controller) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{MemtableSize: c.engine.MemtableSize(), TableCount: c.engine.TableCount()}
}

func (c *Controller) spawnFlush() {
	c.flushWg.Add(1)
	go func() {
		defer c.flushWg.Done()
		c.mu.Lock()
		err := c.engine.Flush()
		c.mu.Unlock()
		if err != nil && c.flushErr != nil {
			c.flushErr(err)
		}
	}()
}

// Shutdown blocks until every in-flight background flush has completed and
// forces one last flush of whatever remains in the memtable. Idempotent:
// calling it more than once after the first has no further effect.
func (c *Controller) Shutdown() error {
	var err error
	c.shutdownOnce.Do(func() {
		c.flushWg.Wait()
		c.mu.Lock()
		c.shutdown = true
		err = c.engine.Flush()
		c.mu.Unlock()
	})
	return err
}
