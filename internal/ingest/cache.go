package ingest

import (
	"context"
	"sync"
)

// SnapshotBuilder produces a fresh snapshot. *Pipeline implements it.
type SnapshotBuilder interface {
	Build(ctx context.Context) (*Snapshot, error)
}

// Cache holds the current snapshot and regenerates it wholesale on demand:
// on first use, after Invalidate, or on Refresh. It never rebuilds in the
// background.
type Cache struct {
	builder SnapshotBuilder

	mu      sync.Mutex
	current *Snapshot
	stale   bool
}

// NewCache creates an empty cache; the first Snapshot call builds.
func NewCache(b SnapshotBuilder) *Cache {
	return &Cache{builder: b}
}

// Snapshot returns the current snapshot, rebuilding it first if there is
// none yet or it has been invalidated. When a rebuild fails the previous
// snapshot is returned and stays stale, so the next call retries; an error
// is returned only if no snapshot has ever been built.
func (c *Cache) Snapshot(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && !c.stale {
		return c.current, nil
	}
	snap, err := c.rebuildLocked(ctx)
	if err != nil && c.current != nil {
		return c.current, nil
	}
	return snap, err
}

// Refresh rebuilds unconditionally. Unlike Snapshot it reports a failed
// rebuild; the previous snapshot is kept but marked stale.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebuildLocked(ctx)
}

// Invalidate marks the current snapshot stale so the next Snapshot call
// rebuilds it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
}

// Current returns the last built snapshot without rebuilding, or nil if
// none has been built yet.
func (c *Cache) Current() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Stale reports whether the next Snapshot call will rebuild.
func (c *Cache) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == nil || c.stale
}

func (c *Cache) rebuildLocked(ctx context.Context) (*Snapshot, error) {
	snap, err := c.builder.Build(ctx)
	if err != nil {
		c.stale = true
		return nil, err
	}
	c.current = snap
	c.stale = false
	return snap, nil
}
