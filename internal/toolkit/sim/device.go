package sim

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
)

const defaultDelayWindow = 1021

// Device is a simulated device built from a descriptor.
type Device struct {
	serial     string
	deviceType string
	iface      string
	tree       *NodeTree
	qas        []*QAChannel
	awgs       []*AWGCore
	qccs       atomic.Bool
}

func newDevice(desc *types.DeviceDescriptor, iface string, events eventSink, validator *Validator) *Device {
	d := &Device{
		serial:     strings.ToLower(desc.Serial),
		deviceType: strings.ToUpper(desc.DeviceType),
		iface:      iface,
		tree:       newNodeTree(desc.Serial, events),
	}
	for _, n := range desc.Nodes {
		d.tree.add(n.NodeInfo, n.Value)
	}

	window := desc.DelayWindow
	if window <= 0 {
		window = defaultDelayWindow
	}
	for i := 0; i < desc.QAChannels; i++ {
		d.qas = append(d.qas, newQAChannel(d, i, window, desc.DefaultDelay))
	}
	for i, a := range desc.AWGs {
		d.awgs = append(d.awgs, newAWGCore(d, i, a, validator))
	}
	return d
}

func (d *Device) Serial() string { return d.serial }

func (d *Device) DeviceType() string { return d.deviceType }

func (d *Device) Interface() string { return d.iface }

func (d *Device) NodeTree() toolkit.NodeTree { return d.tree }

// EnableQCCSMode switches the reference clock to the external ZSync/DIO
// source.
func (d *Device) EnableQCCSMode(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.tree.setValue("system/extclk", int64(1))
	d.tree.setValue("system/clocks/referenceclock/source", int64(1))
	d.qccs.Store(true)
	return nil
}

// QCCSMode reports whether EnableQCCSMode was called.
func (d *Device) QCCSMode() bool { return d.qccs.Load() }

func (d *Device) QAChannels() []toolkit.QAChannel {
	if len(d.qas) == 0 {
		return nil
	}
	out := make([]toolkit.QAChannel, 0, len(d.qas))
	for _, q := range d.qas {
		out = append(out, q)
	}
	return out
}

func (d *Device) QAChannelsPath() string { return fmt.Sprintf("/%s/qas", d.serial) }

func (d *Device) AWGs() []toolkit.AWGCore {
	if len(d.awgs) == 0 {
		return nil
	}
	out := make([]toolkit.AWGCore, 0, len(d.awgs))
	for _, a := range d.awgs {
		out = append(out, a)
	}
	return out
}

func (d *Device) AWGsPath() string { return fmt.Sprintf("/%s/awgs", d.serial) }

// AWGCore returns the simulated core with the given index.
func (d *Device) AWGCore(index int) (*AWGCore, bool) {
	if index < 0 || index >= len(d.awgs) {
		return nil, false
	}
	return d.awgs[index], true
}
