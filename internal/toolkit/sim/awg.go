package sim

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
)

// AWGCore is a simulated AWG core. A sequencer run lasts RunTime after
// being enabled; compilation takes CompileTime.
type AWGCore struct {
	device       *Device
	index        int
	slots        int
	placeholders []int
	commandTable *CommandTable

	mu          sync.Mutex
	runTime     time.Duration
	compileTime time.Duration
	program     string
	enabled     bool
	single      bool
	startedAt   time.Time
	memory      map[int]types.Wave
}

func newAWGCore(d *Device, index int, desc types.AWGDescriptor, validator *Validator) *AWGCore {
	a := &AWGCore{
		device:       d,
		index:        index,
		slots:        desc.WaveformSlots,
		placeholders: append([]int(nil), desc.Placeholders...),
		runTime:      desc.RunTime,
		compileTime:  desc.CompileTime,
		memory:       make(map[int]types.Wave),
	}
	if desc.CommandTable {
		a.commandTable = newCommandTable(a.Path()+"/commandtable", validator)
	}
	return a
}

func (a *AWGCore) Path() string {
	return fmt.Sprintf("/%s/awgs/%d", a.device.serial, a.index)
}

func (a *AWGCore) CommandTable() toolkit.CommandTable {
	if a.commandTable == nil {
		return nil
	}
	return a.commandTable
}

// SimCommandTable returns the concrete command table for test control.
func (a *AWGCore) SimCommandTable() *CommandTable { return a.commandTable }

// SetRunTime changes how long a sequencer run lasts. A negative value
// makes runs never finish.
func (a *AWGCore) SetRunTime(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runTime = d
}

// SetCompileTime changes how long a compilation takes.
func (a *AWGCore) SetCompileTime(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.compileTime = d
}

// Program returns the last compiled sequencer program.
func (a *AWGCore) Program() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.program
}

func (a *AWGCore) EnableSequencer(ctx context.Context, single bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	a.enabled = true
	a.single = single
	a.startedAt = time.Now()
	a.mu.Unlock()

	singleValue := int64(0)
	if single {
		singleValue = 1
	}
	a.device.tree.setValue(fmt.Sprintf("awgs/%d/single", a.index), singleValue)
	a.device.tree.setValue(fmt.Sprintf("awgs/%d/enable", a.index), int64(1))
	return nil
}

// running reports whether the sequencer still runs and disables it once
// a single run has finished. Caller holds a.mu.
func (a *AWGCore) running(now time.Time) bool {
	if !a.enabled {
		return false
	}
	if !a.single || a.runTime < 0 {
		return true
	}
	if now.Sub(a.startedAt) >= a.runTime {
		a.enabled = false
		a.device.tree.setValue(fmt.Sprintf("awgs/%d/enable", a.index), int64(0))
		return false
	}
	return true
}

// WaitDone waits for a single mode run to finish. It fails whenever the
// core is not in single mode, enabled or not.
func (a *AWGCore) WaitDone(ctx context.Context, timeout, sleepTime time.Duration) error {
	a.mu.Lock()
	single := a.single
	a.mu.Unlock()
	if !single {
		return fmt.Errorf("%w: AWG %d of %s is not in single mode", types.ErrRuntime, a.index, a.device.serial)
	}

	deadline := time.Now().Add(timeout)
	for {
		a.mu.Lock()
		busy := a.running(time.Now())
		a.mu.Unlock()
		if !busy {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: AWG %d of %s did not finish within %s", types.ErrTimeout, a.index, a.device.serial, timeout)
		}
		if err := sleep(ctx, sleepTime); err != nil {
			return err
		}
	}
}

func (a *AWGCore) LoadSequencerProgram(ctx context.Context, program string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(program) == "" {
		return fmt.Errorf("%w: compilation failed: empty sequencer program", types.ErrRuntime)
	}
	a.mu.Lock()
	compileTime := a.compileTime
	a.mu.Unlock()
	if compileTime > timeout {
		return fmt.Errorf("%w: compilation of AWG %d of %s exceeded %s", types.ErrTimeout, a.index, a.device.serial, timeout)
	}
	if compileTime > 0 {
		if err := sleep(ctx, compileTime); err != nil {
			return err
		}
	}
	a.mu.Lock()
	a.program = program
	a.mu.Unlock()
	a.device.tree.setValue(fmt.Sprintf("awgs/%d/ready", a.index), int64(1))
	return nil
}

func (a *AWGCore) WriteToWaveformMemory(ctx context.Context, waveforms *types.Waveforms, indexes []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if waveforms == nil {
		return fmt.Errorf("%w: no waveforms given", types.ErrValidation)
	}
	if indexes == nil {
		indexes = waveforms.Indexes()
	}
	for _, i := range indexes {
		if err := a.checkSlot(i); err != nil {
			return err
		}
		if _, ok := waveforms.Get(i); !ok {
			return fmt.Errorf("%w: no waveform assigned to index %d", types.ErrNotFound, i)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, i := range indexes {
		wave, _ := waveforms.Get(i)
		a.memory[i] = cloneWave(wave)
	}
	return nil
}

func (a *AWGCore) ReadFromWaveformMemory(ctx context.Context, indexes []int) (*types.Waveforms, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if indexes == nil {
		for i := range a.memory {
			indexes = append(indexes, i)
		}
		slices.Sort(indexes)
	}
	out := types.NewWaveforms()
	for _, i := range indexes {
		if i < 0 || i >= a.slots {
			return nil, fmt.Errorf("%w: waveform index %d (slots %d)", types.ErrIndexOutOfRange, i, a.slots)
		}
		out.Assign(i, cloneWave(a.memory[i]))
	}
	return out, nil
}

func (a *AWGCore) checkSlot(i int) error {
	if i < 0 || i >= a.slots {
		return fmt.Errorf("%w: waveform index %d (slots %d)", types.ErrIndexOutOfRange, i, a.slots)
	}
	if slices.Contains(a.placeholders, i) {
		return fmt.Errorf("%w: waveform %d is a placeholder and cannot be written", types.ErrRuntime, i)
	}
	return nil
}

func cloneWave(w types.Wave) types.Wave {
	return types.Wave{
		Wave1:   append([]float64(nil), w.Wave1...),
		Wave2:   append([]float64(nil), w.Wave2...),
		Markers: append([]uint16(nil), w.Markers...),
	}
}
