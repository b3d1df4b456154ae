package devices

import (
	"context"
	"fmt"

	"github.com/KevinKickass/OpenInstrumentCore/internal/instrument"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
)

// HDAWG wraps an HDAWG with its AWG cores.
type HDAWG struct {
	*Base
	awgs []*AWG
}

func NewHDAWG(tk toolkit.Device, opts Options) (*HDAWG, error) {
	d := &HDAWG{Base: newBase(tk, opts)}
	awgs, err := d.initAWGs()
	if err != nil {
		return nil, fmt.Errorf("init awgs of %s: %w", d.Serial(), err)
	}
	d.awgs = awgs
	d.populate(opts.Blacklist)
	return d, nil
}

func (d *HDAWG) AWG(index int) (*AWG, error) { return awgAt(d.Base, index) }

func (d *HDAWG) AWGs() []*AWG { return d.awgs }

func (d *HDAWG) EnableQCCSMode(ctx context.Context) error {
	return enableQCCSMode(ctx, d.tk)
}

func (b *Base) initAWGs() ([]*AWG, error) {
	cores := b.tk.AWGs()
	awgs := make([]*AWG, 0, len(cores))
	items := make([]instrument.Container, 0, len(cores))
	for i, core := range cores {
		a, err := newAWG(core, i, b.SnapshotCache())
		if err != nil {
			return nil, err
		}
		awgs = append(awgs, a)
		items = append(items, a)
	}
	if err := b.addChannelList("awgs", b.tk.AWGsPath(), items); err != nil {
		return nil, err
	}
	return awgs, nil
}

func awgAt(b *Base, index int) (*AWG, error) {
	c, err := b.channel("awgs", index)
	if err != nil {
		return nil, err
	}
	a, ok := c.(*AWG)
	if !ok {
		return nil, fmt.Errorf("awgs %d of %s has no AWG core", index, b.Serial())
	}
	return a, nil
}

// AWGDevice is implemented by devices with AWG cores.
type AWGDevice interface {
	Device
	AWG(index int) (*AWG, error)
}

// QCCSDevice is implemented by devices that can join a QCCS setup.
type QCCSDevice interface {
	Device
	EnableQCCSMode(ctx context.Context) error
}
