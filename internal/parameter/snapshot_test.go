package parameter_test

import (
	"context"
	"testing"

	"github.com/KevinKickass/OpenInstrumentCore/internal/parameter"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bulkTree records bulk gets and serves them from a fixed map.
type bulkTree struct {
	values map[string]any
	paths  []string
	opts   []toolkit.GetAllOptions
}

func (b *bulkTree) Prefix() string                         { return "dev2000" }
func (b *bulkTree) Nodes() []toolkit.Node                  { return nil }
func (b *bulkTree) Node(path string) (toolkit.Node, error) { return nil, types.ErrNotFound }
func (b *bulkTree) GetAll(ctx context.Context, path string, opts toolkit.GetAllOptions) (map[string]any, error) {
	b.paths = append(b.paths, path)
	b.opts = append(b.opts, opts)
	return b.values, nil
}

func TestSnapshotCacheBundlesReads(t *testing.T) {
	ctx := context.Background()
	tree := &bulkTree{values: map[string]any{"/DEV2000/OSCS/0/FREQ": 5.0}}
	cache := parameter.NewSnapshotCache(tree, false)

	inBundle := node("/dev2000/oscs/0/freq", types.NodeTypeDouble, rw)
	missing := node("/dev2000/oscs/1/freq", types.NodeTypeDouble, rw)
	missing.On("Get", ctx).Return(7.0, nil).Once()

	p1 := parameter.New(inBundle, parameter.WithSnapshotCache(cache))
	p2 := parameter.New(missing, parameter.WithSnapshotCache(cache))

	end, err := cache.Begin(ctx, "/dev2000/oscs")
	require.NoError(t, err)
	assert.True(t, cache.Running())

	nestedEnd, err := cache.Begin(ctx, "oscs/0")
	require.NoError(t, err)
	nestedEnd()
	assert.True(t, cache.Running())

	snap, err := p1.Snapshot(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 5.0, snap["value"])

	snap, err = p2.Snapshot(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 7.0, snap["value"])

	end()
	assert.False(t, cache.Running())

	assert.Equal(t, []string{"/dev2000/oscs"}, tree.paths)
	assert.Equal(t, toolkit.GetAllOptions{ExcludeStreaming: true, ExcludeVectors: true}, tree.opts[0])
	inBundle.AssertNotCalled(t, "Get")
	missing.AssertExpectations(t)
}

func TestModuleSnapshotCacheIncludesEverything(t *testing.T) {
	tree := &bulkTree{values: map[string]any{}}
	cache := parameter.NewSnapshotCache(tree, true)

	end, err := cache.Begin(context.Background(), "")
	require.NoError(t, err)
	end()

	assert.Equal(t, []string{"/dev2000"}, tree.paths)
	assert.Equal(t, toolkit.GetAllOptions{}, tree.opts[0])
}
