package instrument

import (
	"context"
	"fmt"
	"io"

	"github.com/KevinKickass/OpenInstrumentCore/internal/parameter"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
)

// ChannelList is an ordered list of same-kind channel nodes. The index of
// an element equals the hardware channel number.
type ChannelList struct {
	name   string
	ziNode string
	cache  *parameter.SnapshotCache
	items  []Container
	locked bool
}

func NewChannelList(name, ziNode string, cache *parameter.SnapshotCache) *ChannelList {
	return &ChannelList{
		name:   name,
		ziNode: ziNode,
		cache:  cache,
	}
}

func (l *ChannelList) Name() string { return l.name }

func (l *ChannelList) ZINode() string { return l.ziNode }

// Append adds a channel to the end of the list.
func (l *ChannelList) Append(c Container) error {
	if l.locked {
		return fmt.Errorf("%w: cannot append to locked channel list %s", types.ErrInvalidOperation, l.name)
	}
	l.items = append(l.items, c)
	return nil
}

// Lock freezes the list. Further appends fail.
func (l *ChannelList) Lock() { l.locked = true }

func (l *ChannelList) Locked() bool { return l.locked }

func (l *ChannelList) Len() int { return len(l.items) }

// At returns the channel at index i.
func (l *ChannelList) At(i int) (Container, error) {
	if i < 0 || i >= len(l.items) {
		return nil, fmt.Errorf("%w: %s[%d] (length %d)", types.ErrIndexOutOfRange, l.name, i, len(l.items))
	}
	return l.items[i], nil
}

// All returns the channels in append order.
func (l *ChannelList) All() []Container {
	out := make([]Container, len(l.items))
	copy(out, l.items)
	return out
}

func (l *ChannelList) Snapshot(ctx context.Context, update bool) (map[string]any, error) {
	end, err := l.beginSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer end()

	channels := make([]any, 0, len(l.items))
	for _, item := range l.items {
		snap, err := item.Snapshot(ctx, update)
		if err != nil {
			return nil, err
		}
		channels = append(channels, snap)
	}
	return map[string]any{
		"name":     l.name,
		"zi_node":  l.ziNode,
		"channels": channels,
	}, nil
}

func (l *ChannelList) PrintReadableSnapshot(ctx context.Context, w io.Writer, update bool, maxChars int) error {
	end, err := l.beginSnapshot(ctx)
	if err != nil {
		return err
	}
	defer end()

	for _, item := range l.items {
		if err := item.PrintReadableSnapshot(ctx, w, update, maxChars); err != nil {
			return err
		}
	}
	return nil
}

func (l *ChannelList) beginSnapshot(ctx context.Context) (func(), error) {
	if l.cache == nil {
		return func() {}, nil
	}
	return l.cache.Begin(ctx, l.ziNode)
}
