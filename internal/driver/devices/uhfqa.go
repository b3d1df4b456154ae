package devices

import (
	"context"
	"fmt"

	"github.com/KevinKickass/OpenInstrumentCore/internal/instrument"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
)

// UHFQA wraps a UHFQA with its analyzer channels and AWG core.
type UHFQA struct {
	*Base
	qas  []*QAS
	awgs []*AWG
}

func NewUHFQA(tk toolkit.Device, opts Options) (*UHFQA, error) {
	d := &UHFQA{Base: newBase(tk, opts)}
	if err := d.initQAS(); err != nil {
		return nil, fmt.Errorf("init qas of %s: %w", d.Serial(), err)
	}
	awgs, err := d.initAWGs()
	if err != nil {
		return nil, fmt.Errorf("init awgs of %s: %w", d.Serial(), err)
	}
	d.awgs = awgs
	d.populate(opts.Blacklist)
	return d, nil
}

func (d *UHFQA) initQAS() error {
	channels := d.tk.QAChannels()
	items := make([]instrument.Container, 0, len(channels))
	for i, ch := range channels {
		q := newQAS(ch, i, d.SnapshotCache())
		d.qas = append(d.qas, q)
		items = append(items, q)
	}
	return d.addChannelList("qas", d.tk.QAChannelsPath(), items)
}

// QAS returns the analyzer channel with the given index.
func (d *UHFQA) QAS(index int) (*QAS, error) {
	c, err := d.channel("qas", index)
	if err != nil {
		return nil, err
	}
	q, ok := c.(*QAS)
	if !ok {
		return nil, fmt.Errorf("qas %d of %s has no analyzer channel", index, d.Serial())
	}
	return q, nil
}

func (d *UHFQA) AWG(index int) (*AWG, error) { return awgAt(d.Base, index) }

func (d *UHFQA) AWGs() []*AWG { return d.awgs }

func (d *UHFQA) EnableQCCSMode(ctx context.Context) error {
	return enableQCCSMode(ctx, d.tk)
}
