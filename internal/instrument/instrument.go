package instrument

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/KevinKickass/OpenInstrumentCore/internal/parameter"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kinds of registered instruments.
const (
	KindDevice = "device"
	KindModule = "module"
)

// Instrument is the root of a parameter tree. It owns the snapshot cache
// of its node tree and an index of all parameters by node path.
type Instrument struct {
	*Node
	id     uuid.UUID
	kind   string
	tree   toolkit.NodeTree
	params map[string]*parameter.Parameter
}

// New creates an empty instrument rooted at the given node tree.
func New(kind, name string, tree toolkit.NodeTree) *Instrument {
	cache := parameter.NewSnapshotCache(tree, kind == KindModule)
	return &Instrument{
		Node:   NewNode(name, "", cache),
		id:     uuid.New(),
		kind:   kind,
		tree:   tree,
		params: make(map[string]*parameter.Parameter),
	}
}

func (i *Instrument) ID() uuid.UUID { return i.id }

func (i *Instrument) Kind() string { return i.kind }

func (i *Instrument) NodeTree() toolkit.NodeTree { return i.tree }

// Populate mirrors the instrument's node tree into parameters. Submodules
// added before the call (device specific channel lists) are reused.
func (i *Instrument) Populate(blacklist []string, logger *zap.Logger) {
	built := BuildTree(i.Node, i.tree, TreeOptions{
		Blacklist: blacklist,
		Cache:     i.SnapshotCache(),
		Logger:    logger,
	})
	for path, p := range built {
		i.params[path] = p
	}
}

// ParameterByPath returns the parameter bound to a node path. The path may
// omit the hidden tree prefix.
func (i *Instrument) ParameterByPath(path string) (*parameter.Parameter, bool) {
	key := strings.ToLower(path)
	if !strings.HasPrefix(key, "/") {
		key = "/" + key
	}
	if p, ok := i.params[key]; ok {
		return p, true
	}
	if prefix := strings.ToLower(i.tree.Prefix()); prefix != "" {
		p, ok := i.params["/"+prefix+key]
		return p, ok
	}
	return nil, false
}

// ParameterPaths returns all mirrored node paths in sorted order.
func (i *Instrument) ParameterPaths() []string {
	paths := make([]string, 0, len(i.params))
	for p := range i.params {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (i *Instrument) Snapshot(ctx context.Context, update bool) (map[string]any, error) {
	snap, err := i.Node.Snapshot(ctx, update)
	if err != nil {
		return nil, err
	}
	snap["id"] = i.id.String()
	snap["kind"] = i.kind
	return snap, nil
}

func (i *Instrument) PrintReadableSnapshot(ctx context.Context, w io.Writer, update bool, maxChars int) error {
	return i.Node.PrintReadableSnapshot(ctx, w, update, maxChars)
}
