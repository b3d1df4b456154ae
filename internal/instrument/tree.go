package instrument

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/KevinKickass/OpenInstrumentCore/internal/parameter"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"go.uber.org/zap"
)

var (
	// Segments that end with a digit but are not indexed blocks.
	unindexedSegments = []string{"tamp0", "tamp1"}

	// Nodes below these segments are never part of a snapshot.
	snapshotBlacklist = []string{"fwlog", "values"}

	complexNode = regexp.MustCompile(`demods/./sample`)
)

// segment is one level of the parameter tree together with the node tree
// path it covers.
type segment struct {
	name string
	path string
}

// TreeOptions controls BuildTree.
type TreeOptions struct {
	// Blacklist holds node paths (any case) that are skipped.
	Blacklist []string
	Cache     *parameter.SnapshotCache
	Logger    *zap.Logger
}

// BuildTree mirrors the node tree below root. The descriptors are first
// collected into a mapping keyed by lower case path, then one parameter is
// created per entry and attached to the nested node derived from its
// path. Indexed segments ("demods/0") become channel lists. Nodes that
// cannot be attached are logged and skipped.
//
// The returned map holds the created parameters keyed by lower case path.
func BuildTree(root *Node, tree toolkit.NodeTree, opts TreeOptions) map[string]*parameter.Parameter {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	blacklist := make(map[string]struct{}, len(opts.Blacklist))
	for _, b := range opts.Blacklist {
		blacklist[strings.ToLower(b)] = struct{}{}
	}

	byPath := make(map[string]toolkit.Node)
	order := make([]string, 0)
	for _, n := range tree.Nodes() {
		path := strings.ToLower(n.Info().Path)
		if _, skip := blacklist[path]; skip {
			continue
		}
		if _, dup := byPath[path]; dup {
			continue
		}
		byPath[path] = n
		order = append(order, path)
	}

	params := make(map[string]*parameter.Parameter, len(order))
	for _, path := range order {
		n := byPath[path]
		p, err := attachParameter(root, n, opts.Cache)
		if err != nil {
			logger.Warn("Node could not be added as parameter",
				zap.String("node", n.Info().Path),
				zap.Error(err))
			continue
		}
		params[path] = p
	}

	logger.Debug("Node tree mirrored",
		zap.String("root", root.Name()),
		zap.Int("nodes", len(order)),
		zap.Int("parameters", len(params)))

	return params
}

func attachParameter(root *Node, n toolkit.Node, cache *parameter.SnapshotCache) (*parameter.Parameter, error) {
	raw := n.RawTree()
	parents, name := splitRawTree(raw)
	if name == "" {
		return nil, fmt.Errorf("node has an empty path")
	}
	parent, err := submoduleFor(root, parents, cache)
	if err != nil {
		return nil, err
	}

	info := n.Info()
	doSnapshot := !info.IsStreaming() &&
		!info.IsVector() &&
		info.Readable() &&
		!slices.ContainsFunc(raw, func(s string) bool { return slices.Contains(snapshotBlacklist, s) })

	opts := []parameter.Option{
		parameter.WithName(name),
		parameter.WithSnapshot(doSnapshot, doSnapshot),
		parameter.WithSnapshotCache(cache),
	}
	if complexNode.MatchString(strings.ToLower(info.Path)) {
		opts = append(opts, parameter.WithValidator(parameter.ComplexNumbers{}))
	}

	p := parameter.New(n, opts...)
	if err := parent.AddParameter(p); err != nil {
		return nil, err
	}
	return p, nil
}

// splitRawTree converts raw path segments into parameter tree levels and
// the parameter name. Index segments are merged into their predecessor
// ("demods", "0" -> "demods0"); a trailing index yields the name "value";
// names starting with a digit get a leading underscore.
func splitRawTree(raw []string) ([]segment, string) {
	if len(raw) == 0 {
		return nil, ""
	}
	var parentsRaw []string
	var name string
	last := raw[len(raw)-1]
	if isDigits(last) {
		parentsRaw = raw
		name = "value"
	} else {
		parentsRaw = raw[:len(raw)-1]
		name = last
		if name[0] >= '0' && name[0] <= '9' {
			name = "_" + name
		}
	}

	parents := make([]segment, 0, len(parentsRaw))
	for i, s := range parentsRaw {
		path := strings.Join(parentsRaw[:i+1], "/")
		if isDigits(s) && len(parents) > 0 {
			prev := &parents[len(parents)-1]
			prev.name += s
			prev.path = path
			continue
		}
		parents = append(parents, segment{name: s, path: path})
	}
	return parents, name
}

// submoduleFor walks (and creates) the nested nodes for the given levels
// and returns the direct parent.
func submoduleFor(root *Node, parents []segment, cache *parameter.SnapshotCache) (*Node, error) {
	current := root
	for _, seg := range parents {
		base, index, indexed := splitIndex(seg.name)
		if indexed && !slices.Contains(unindexedSegments, seg.name) {
			listPath := strings.TrimSuffix(seg.path, "/"+strconv.Itoa(index))
			list, err := channelListFor(current, base, listPath, cache)
			if err != nil {
				return nil, err
			}
			for list.Len() <= index {
				i := list.Len()
				item := NewNode(base+strconv.Itoa(i), listPath+"/"+strconv.Itoa(i), cache)
				if err := list.Append(item); err != nil {
					return nil, err
				}
			}
			item, err := list.At(index)
			if err != nil {
				return nil, err
			}
			current = item.AsNode()
			continue
		}

		sub, exists := current.Submodule(seg.name)
		if !exists {
			node := NewNode(seg.name, seg.path, cache)
			if err := current.AddSubmodule(seg.name, node); err != nil {
				return nil, err
			}
			current = node
			continue
		}
		c, ok := sub.(Container)
		if !ok {
			return nil, fmt.Errorf("submodule %s of %s is not a node", seg.name, current.Name())
		}
		current = c.AsNode()
	}
	return current, nil
}

func channelListFor(parent *Node, name, path string, cache *parameter.SnapshotCache) (*ChannelList, error) {
	sub, exists := parent.Submodule(name)
	if !exists {
		list := NewChannelList(name, path, cache)
		if err := parent.AddSubmodule(name, list); err != nil {
			return nil, err
		}
		return list, nil
	}
	list, ok := sub.(*ChannelList)
	if !ok {
		return nil, fmt.Errorf("submodule %s of %s is not a channel list", name, parent.Name())
	}
	return list, nil
}

// splitIndex splits "demods12" into "demods" and 12.
func splitIndex(name string) (string, int, bool) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) || i == 0 {
		return name, 0, false
	}
	index, err := strconv.Atoi(name[i:])
	if err != nil {
		return name, 0, false
	}
	return name[:i], index, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
