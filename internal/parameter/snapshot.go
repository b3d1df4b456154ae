package parameter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
)

// SnapshotCache bundles the reads of a snapshot into a single bulk get.
//
// The first Begin call owns the snapshot and fetches all values below the
// requested subtree; nested Begin calls reuse that bundle. Parameters not
// contained in the bundle fall back to a normal get.
type SnapshotCache struct {
	tree     toolkit.NodeTree
	isModule bool

	mu      sync.Mutex
	running bool
	values  map[string]any
	start   time.Time
}

func NewSnapshotCache(tree toolkit.NodeTree, isModule bool) *SnapshotCache {
	return &SnapshotCache{
		tree:     tree,
		isModule: isModule,
		values:   make(map[string]any),
	}
}

// Begin starts a snapshot of the subtree name (relative to the tree
// prefix, empty for the whole tree). The returned function ends it; it is
// a no-op for nested snapshots.
func (c *SnapshotCache) Begin(ctx context.Context, name string) (func(), error) {
	c.mu.Lock()
	if c.tree == nil || c.running {
		c.mu.Unlock()
		return func() {}, nil
	}
	c.running = true
	c.mu.Unlock()

	opts := toolkit.GetAllOptions{}
	if !c.isModule {
		opts = toolkit.GetAllOptions{ExcludeStreaming: true, ExcludeVectors: true}
	}
	values, err := c.tree.GetAll(ctx, c.subtree(name), opts)
	if err != nil {
		c.stop()
		return func() {}, fmt.Errorf("snapshot bulk get failed: %w", err)
	}

	lowered := make(map[string]any, len(values))
	for k, v := range values {
		lowered[strings.ToLower(k)] = v
	}

	c.mu.Lock()
	c.values = lowered
	c.start = time.Now()
	c.mu.Unlock()

	return c.stop, nil
}

func (c *SnapshotCache) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.values = make(map[string]any)
}

// Running reports whether a snapshot is in progress.
func (c *SnapshotCache) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Get returns the bundled value for the parameter or calls fallback.
func (c *SnapshotCache) Get(ctx context.Context, p *Parameter, fallback func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	raw, ok := c.values[strings.ToLower(p.Path())]
	start := c.start
	c.mu.Unlock()

	if !ok || raw == nil {
		return fallback(ctx)
	}
	value := p.parse(fromRaw(p.info, raw))
	p.updateLatest(value, start)
	return value, nil
}

func (c *SnapshotCache) subtree(name string) string {
	prefix := strings.ToLower(c.tree.Prefix())
	name = strings.Trim(strings.ToLower(name), "/")
	if prefix != "" {
		name = strings.Trim(strings.TrimPrefix(name, prefix), "/")
		if name == "" {
			return "/" + prefix
		}
		return "/" + prefix + "/" + name
	}
	return "/" + name
}
