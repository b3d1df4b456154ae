// Package instrument models instruments as trees of parameters, channel
// nodes and channel lists, mirroring the node tree of a toolkit object.
package instrument

import (
	"context"
	"fmt"
	"io"

	"github.com/KevinKickass/OpenInstrumentCore/internal/parameter"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
)

// Submodule is anything that can be attached below an instrument.
type Submodule interface {
	Name() string
	Snapshot(ctx context.Context, update bool) (map[string]any, error)
	PrintReadableSnapshot(ctx context.Context, w io.Writer, update bool, maxChars int) error
}

// Container is a submodule that can hold parameters and submodules.
// Types embedding *Node satisfy it.
type Container interface {
	Submodule
	AsNode() *Node
}

// Node is a named grouping of parameters and nested submodules for one
// hardware sub-block.
type Node struct {
	name   string
	ziNode string
	cache  *parameter.SnapshotCache

	paramOrder []string
	params     map[string]*parameter.Parameter
	subOrder   []string
	subs       map[string]Submodule
}

// NewNode creates an empty node. ziNode is the node tree path the node
// corresponds to and scopes snapshots started on it.
func NewNode(name, ziNode string, cache *parameter.SnapshotCache) *Node {
	return &Node{
		name:   name,
		ziNode: ziNode,
		cache:  cache,
		params: make(map[string]*parameter.Parameter),
		subs:   make(map[string]Submodule),
	}
}

func (n *Node) Name() string { return n.name }

// ZINode returns the node tree path of the node.
func (n *Node) ZINode() string { return n.ziNode }

func (n *Node) AsNode() *Node { return n }

func (n *Node) SnapshotCache() *parameter.SnapshotCache { return n.cache }

func (n *Node) AddParameter(p *parameter.Parameter) error {
	if _, exists := n.params[p.Name()]; exists {
		return fmt.Errorf("%w: parameter %s already exists on %s", types.ErrDuplicateName, p.Name(), n.name)
	}
	if _, exists := n.subs[p.Name()]; exists {
		return fmt.Errorf("%w: %s is already a submodule of %s", types.ErrDuplicateName, p.Name(), n.name)
	}
	n.params[p.Name()] = p
	n.paramOrder = append(n.paramOrder, p.Name())
	return nil
}

func (n *Node) Parameter(name string) (*parameter.Parameter, bool) {
	p, ok := n.params[name]
	return p, ok
}

// Parameters returns the parameters in the order they were added.
func (n *Node) Parameters() []*parameter.Parameter {
	out := make([]*parameter.Parameter, 0, len(n.paramOrder))
	for _, name := range n.paramOrder {
		out = append(out, n.params[name])
	}
	return out
}

func (n *Node) AddSubmodule(name string, sub Submodule) error {
	if _, exists := n.subs[name]; exists {
		return fmt.Errorf("%w: submodule %s already exists on %s", types.ErrDuplicateName, name, n.name)
	}
	if _, exists := n.params[name]; exists {
		return fmt.Errorf("%w: %s is already a parameter of %s", types.ErrDuplicateName, name, n.name)
	}
	n.subs[name] = sub
	n.subOrder = append(n.subOrder, name)
	return nil
}

func (n *Node) Submodule(name string) (Submodule, bool) {
	s, ok := n.subs[name]
	return s, ok
}

// Submodules returns the submodules in the order they were added.
func (n *Node) Submodules() []Submodule {
	out := make([]Submodule, 0, len(n.subOrder))
	for _, name := range n.subOrder {
		out = append(out, n.subs[name])
	}
	return out
}

// Snapshot returns the state of the node and everything below it. The
// reads are bundled through the snapshot cache.
func (n *Node) Snapshot(ctx context.Context, update bool) (map[string]any, error) {
	end, err := n.beginSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer end()
	return n.snapshotBase(ctx, update)
}

func (n *Node) PrintReadableSnapshot(ctx context.Context, w io.Writer, update bool, maxChars int) error {
	end, err := n.beginSnapshot(ctx)
	if err != nil {
		return err
	}
	defer end()
	snap, err := n.snapshotBase(ctx, update)
	if err != nil {
		return err
	}
	return printReadable(w, snap, maxChars)
}

func (n *Node) beginSnapshot(ctx context.Context) (func(), error) {
	if n.cache == nil {
		return func() {}, nil
	}
	return n.cache.Begin(ctx, n.ziNode)
}

func (n *Node) snapshotBase(ctx context.Context, update bool) (map[string]any, error) {
	params := make(map[string]any, len(n.params))
	for _, p := range n.Parameters() {
		snap, err := p.Snapshot(ctx, update)
		if err != nil {
			return nil, err
		}
		params[p.Name()] = snap
	}
	subs := make(map[string]any, len(n.subs))
	for _, name := range n.subOrder {
		snap, err := n.subs[name].Snapshot(ctx, update)
		if err != nil {
			return nil, err
		}
		subs[name] = snap
	}
	return map[string]any{
		"name":       n.name,
		"zi_node":    n.ziNode,
		"parameters": params,
		"submodules": subs,
	}, nil
}
