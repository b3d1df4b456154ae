package devices

import (
	"context"
	"fmt"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/instrument"
	"github.com/KevinKickass/OpenInstrumentCore/internal/parameter"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
)

// AWG is one AWG core of a device.
type AWG struct {
	*instrument.Node
	tk           toolkit.AWGCore
	index        int
	commandTable *CommandTableNode
}

func newAWG(tk toolkit.AWGCore, index int, cache *parameter.SnapshotCache) (*AWG, error) {
	a := &AWG{
		Node:  instrument.NewNode(fmt.Sprintf("awg_%d", index), tk.Path(), cache),
		tk:    tk,
		index: index,
	}
	if ct := tk.CommandTable(); ct != nil {
		a.commandTable = newCommandTableNode(ct, cache)
		if err := a.AddSubmodule("commandtable", a.commandTable); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *AWG) Index() int { return a.index }

// CommandTable returns the command table node, false if the core has none.
func (a *AWG) CommandTable() (*CommandTableNode, bool) {
	return a.commandTable, a.commandTable != nil
}

// EnableSequencer starts the sequencer. With single set it stops after
// one run, otherwise it runs until disabled.
func (a *AWG) EnableSequencer(ctx context.Context, single bool) error {
	return a.tk.EnableSequencer(ctx, single)
}

// WaitDone blocks until the sequencer finished or timeout elapsed.
func (a *AWG) WaitDone(ctx context.Context, timeout, sleepTime time.Duration) error {
	return a.tk.WaitDone(ctx, timeout, sleepTime)
}

// LoadSequencerProgram compiles and uploads a sequencer program.
func (a *AWG) LoadSequencerProgram(ctx context.Context, program string, timeout time.Duration) error {
	return a.tk.LoadSequencerProgram(ctx, program, timeout)
}

// WriteToWaveformMemory uploads the waveforms. indexes restricts the
// upload to a subset; nil uploads all.
func (a *AWG) WriteToWaveformMemory(ctx context.Context, waveforms *types.Waveforms, indexes []int) error {
	return a.tk.WriteToWaveformMemory(ctx, waveforms, indexes)
}

// ReadFromWaveformMemory downloads waveforms. nil reads all slots.
func (a *AWG) ReadFromWaveformMemory(ctx context.Context, indexes []int) (*types.Waveforms, error) {
	return a.tk.ReadFromWaveformMemory(ctx, indexes)
}
