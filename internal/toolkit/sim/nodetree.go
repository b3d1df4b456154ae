// Package sim is an in-memory toolkit backend. Devices are built from
// descriptors; node values live in memory and sequencer compilation,
// waveform memory and modules are simulated.
package sim

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
)

// eventSink receives values of subscribed nodes for the next poll.
type eventSink interface {
	push(path string, value any)
}

// NodeTree is an in-memory node tree.
type NodeTree struct {
	prefix string
	events eventSink

	mu     sync.RWMutex
	order  []*Node
	byPath map[string]*Node
}

func newNodeTree(prefix string, events eventSink) *NodeTree {
	return &NodeTree{
		prefix: strings.ToLower(prefix),
		events: events,
		byPath: make(map[string]*Node),
	}
}

// add registers a node. The path must be absolute and start with the
// tree prefix.
func (t *NodeTree) add(info types.NodeInfo, value any) *Node {
	info.Path = strings.ToLower(info.Path)
	n := &Node{
		tree:  t,
		info:  info,
		value: normalizeValue(info, value),
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.byPath[info.Path]; ok {
		return existing
	}
	t.byPath[info.Path] = n
	t.order = append(t.order, n)
	return n
}

func (t *NodeTree) Prefix() string { return t.prefix }

func (t *NodeTree) Nodes() []toolkit.Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]toolkit.Node, 0, len(t.order))
	for _, n := range t.order {
		out = append(out, n)
	}
	return out
}

func (t *NodeTree) Node(path string) (toolkit.Node, error) {
	n, err := t.lookup(path)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (t *NodeTree) lookup(path string) (*Node, error) {
	key := t.absolute(path)
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.byPath[key]
	if !ok {
		return nil, fmt.Errorf("%w: node %s", types.ErrNotFound, path)
	}
	return n, nil
}

// absolute turns a path with or without the prefix into the lower case
// absolute path.
func (t *NodeTree) absolute(path string) string {
	p := strings.Trim(strings.ToLower(path), "/")
	if t.prefix == "" || p == t.prefix || strings.HasPrefix(p, t.prefix+"/") {
		return "/" + p
	}
	return "/" + t.prefix + "/" + p
}

func (t *NodeTree) GetAll(ctx context.Context, path string, opts toolkit.GetAllOptions) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root := t.absolute(path)
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]any)
	for _, n := range t.order {
		p := n.info.Path
		if p != root && !strings.HasPrefix(p, root+"/") {
			continue
		}
		if !n.info.Readable() {
			continue
		}
		if opts.ExcludeStreaming && n.info.IsStreaming() {
			continue
		}
		if opts.ExcludeVectors && n.info.IsVector() {
			continue
		}
		if opts.SettingsOnly && !n.info.HasProperty(types.PropertySetting) {
			continue
		}
		out[p] = n.value
	}
	return out, nil
}

// setValue writes a node from inside the backend, bypassing access checks.
func (t *NodeTree) setValue(path string, value any) bool {
	n, err := t.lookup(path)
	if err != nil {
		return false
	}
	n.store(value)
	return true
}

// Node is a single in-memory node.
type Node struct {
	tree *NodeTree
	info types.NodeInfo

	// guarded by tree.mu
	value      any
	subscribed bool
	onSet      func(value any) error
}

func (n *Node) Info() types.NodeInfo { return n.info }

func (n *Node) RawTree() []string {
	p := strings.Trim(n.info.Path, "/")
	if n.tree.prefix != "" {
		p = strings.Trim(strings.TrimPrefix(p, n.tree.prefix), "/")
	}
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func (n *Node) Get(ctx context.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !n.info.Readable() {
		return nil, fmt.Errorf("%w: node %s is not readable", types.ErrInvalidOperation, n.info.Path)
	}
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return n.value, nil
}

func (n *Node) Set(ctx context.Context, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !n.info.Writable() {
		return fmt.Errorf("%w: node %s is read-only", types.ErrInvalidOperation, n.info.Path)
	}
	n.tree.mu.RLock()
	hook := n.onSet
	n.tree.mu.RUnlock()
	if hook != nil {
		if err := hook(value); err != nil {
			return err
		}
	}
	n.store(value)
	return nil
}

func (n *Node) store(value any) {
	value = normalizeValue(n.info, value)
	n.tree.mu.Lock()
	n.value = value
	subscribed := n.subscribed
	n.tree.mu.Unlock()
	if subscribed && n.tree.events != nil {
		n.tree.events.push(n.info.Path, value)
	}
}

func (n *Node) Subscribe() error {
	n.tree.mu.Lock()
	defer n.tree.mu.Unlock()
	n.subscribed = true
	return nil
}

func (n *Node) Unsubscribe() error {
	n.tree.mu.Lock()
	defer n.tree.mu.Unlock()
	n.subscribed = false
	return nil
}

func (n *Node) GetAsEvent() error {
	n.tree.mu.RLock()
	value := n.value
	n.tree.mu.RUnlock()
	if n.tree.events != nil {
		n.tree.events.push(n.info.Path, value)
	}
	return nil
}

func (n *Node) WaitForStateChange(ctx context.Context, value any, opts toolkit.WaitOptions) error {
	want := normalizeValue(n.info, value)
	deadline := time.Now().Add(opts.Timeout)
	for {
		n.tree.mu.RLock()
		current := n.value
		n.tree.mu.RUnlock()
		if reflect.DeepEqual(current, want) != opts.Invert {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s did not change to %v within %s", types.ErrTimeout, n.info.Path, value, opts.Timeout)
		}
		if err := sleep(ctx, opts.SleepTime); err != nil {
			return err
		}
	}
}

// normalizeValue converts descriptor and set values to the types the
// backend stores: int64, float64, complex128, string or vectors.
func normalizeValue(info types.NodeInfo, value any) any {
	switch info.Type {
	case types.NodeTypeInteger, types.NodeTypeEnumerated:
		switch v := value.(type) {
		case nil:
			return int64(0)
		case int:
			return int64(v)
		case int32:
			return int64(v)
		case uint32:
			return int64(v)
		case float64:
			return int64(v)
		case string:
			if opt, ok := info.OptionValue(v); ok {
				return opt
			}
		}
	case types.NodeTypeDouble:
		switch v := value.(type) {
		case nil:
			return float64(0)
		case int:
			return float64(v)
		case int64:
			return float64(v)
		case float32:
			return float64(v)
		}
	case types.NodeTypeComplex:
		switch v := value.(type) {
		case nil:
			return complex128(0)
		case float64:
			return complex(v, 0)
		case int:
			return complex(float64(v), 0)
		}
	case types.NodeTypeString:
		if value == nil {
			return ""
		}
	}
	return value
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		d = time.Millisecond
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
