// Package devices wraps toolkit devices as instruments.
package devices

import (
	"context"
	"fmt"
	"strings"

	"github.com/KevinKickass/OpenInstrumentCore/internal/instrument"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"go.uber.org/zap"
)

// Device is the common surface of all device wrappers.
type Device interface {
	Name() string
	Serial() string
	DeviceType() string
	// Root returns the instrument holding the parameter tree.
	Root() *instrument.Instrument
	Toolkit() toolkit.Device
}

// Options controls how a device tree is built.
type Options struct {
	// Blacklist holds node paths that are not mirrored.
	Blacklist []string
	Logger    *zap.Logger
}

// Base is the generic device wrapper. It mirrors the node tree of the
// toolkit device and is embedded by the device specific wrappers.
type Base struct {
	*instrument.Instrument
	tk     toolkit.Device
	logger *zap.Logger
	lists  []*instrument.ChannelList
}

func newBase(tk toolkit.Device, opts Options) *Base {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name := fmt.Sprintf("zi_%s_%s", strings.ToUpper(tk.DeviceType()), strings.ToLower(tk.Serial()))
	return &Base{
		Instrument: instrument.New(instrument.KindDevice, name, tk.NodeTree()),
		tk:         tk,
		logger:     logger.With(zap.String("device", tk.Serial())),
	}
}

// NewBase creates a generic wrapper for devices without special blocks.
func NewBase(tk toolkit.Device, opts Options) *Base {
	b := newBase(tk, opts)
	b.populate(opts.Blacklist)
	return b
}

func (b *Base) Serial() string { return strings.ToLower(b.tk.Serial()) }

func (b *Base) DeviceType() string { return b.tk.DeviceType() }

func (b *Base) Root() *instrument.Instrument { return b.Instrument }

func (b *Base) Toolkit() toolkit.Device { return b.tk }

// addChannelList attaches a device block as a channel list. The list is
// locked once the node tree has been mirrored.
func (b *Base) addChannelList(name, path string, items []instrument.Container) error {
	list := instrument.NewChannelList(name, path, b.SnapshotCache())
	for _, item := range items {
		if err := list.Append(item); err != nil {
			return err
		}
	}
	if err := b.AddSubmodule(name, list); err != nil {
		return err
	}
	b.lists = append(b.lists, list)
	return nil
}

func (b *Base) populate(blacklist []string) {
	b.Populate(blacklist, b.logger)
	for _, list := range b.lists {
		list.Lock()
	}
	b.logger.Info("Device tree built",
		zap.String("name", b.Name()),
		zap.Int("parameters", len(b.ParameterPaths())))
}

// channel returns the item at index of a device block list.
func (b *Base) channel(list string, index int) (instrument.Container, error) {
	sub, ok := b.Submodule(list)
	if !ok {
		return nil, fmt.Errorf("device %s has no %s", b.Serial(), list)
	}
	cl, ok := sub.(*instrument.ChannelList)
	if !ok {
		return nil, fmt.Errorf("%s of device %s is not a channel list", list, b.Serial())
	}
	return cl.At(index)
}

// New wraps a toolkit device with the wrapper matching its type.
func New(tk toolkit.Device, opts Options) (Device, error) {
	switch strings.ToUpper(tk.DeviceType()) {
	case "UHFQA":
		return NewUHFQA(tk, opts)
	case "HDAWG":
		return NewHDAWG(tk, opts)
	default:
		return NewBase(tk, opts), nil
	}
}

// enableQCCSMode is shared by the devices that can join a QCCS setup.
func enableQCCSMode(ctx context.Context, tk toolkit.Device) error {
	return tk.EnableQCCSMode(ctx)
}
