// Package modules wraps toolkit modules (sweeper, DAQ, ...) as instruments.
package modules

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/driver/devices"
	"github.com/KevinKickass/OpenInstrumentCore/internal/instrument"
	"github.com/KevinKickass/OpenInstrumentCore/internal/parameter"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"go.uber.org/zap"
)

var serialPattern = regexp.MustCompile(`^dev\d+$`)

// DeviceLookup returns the live device wrapper for a serial.
type DeviceLookup func(serial string) (devices.Device, error)

type Options struct {
	Blacklist []string
	Logger    *zap.Logger
	// Lookup resolves the values of the module's device node. Without it
	// the raw serial is returned.
	Lookup DeviceLookup
}

// Module is the wrapper of a toolkit module.
type Module struct {
	*instrument.Instrument
	tk     toolkit.Module
	lookup DeviceLookup
	logger *zap.Logger
}

// Name returns the instrument name of the n-th live module of a type.
func Name(moduleType string, n int) string {
	return fmt.Sprintf("zi_%s_%d", strings.ToLower(moduleType), n)
}

func New(tk toolkit.Module, name string, opts Options) *Module {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Module{
		Instrument: instrument.New(instrument.KindModule, name, tk.NodeTree()),
		tk:         tk,
		lookup:     opts.Lookup,
		logger:     logger.With(zap.String("module", name)),
	}
	m.Populate(opts.Blacklist, m.logger)
	if p, ok := m.ParameterByPath("device"); ok {
		p.AddGetParser(m.resolveDevice)
	}
	return m
}

func (m *Module) ModuleType() string { return m.tk.ModuleType() }

// Root returns the instrument holding the parameter tree.
func (m *Module) Root() *instrument.Instrument { return m.Instrument }

func (m *Module) Toolkit() toolkit.Module { return m.tk }

// Execute starts the module.
func (m *Module) Execute(ctx context.Context) error {
	return m.tk.Execute(ctx)
}

// WaitDone blocks until the module finished or timeout elapsed.
func (m *Module) WaitDone(ctx context.Context, timeout, sleepTime time.Duration) error {
	return m.tk.WaitDone(ctx, timeout, sleepTime)
}

// Subscribe adds a device node to the module's recorded signals.
func (m *Module) Subscribe(ref parameter.NodeRef) error {
	path, err := parameter.ResolvePath(ref)
	if err != nil {
		return err
	}
	return m.tk.Subscribe(path)
}

func (m *Module) Unsubscribe(ref parameter.NodeRef) error {
	path, err := parameter.ResolvePath(ref)
	if err != nil {
		return err
	}
	return m.tk.Unsubscribe(path)
}

// NodeParameter returns the device parameter bound to path if the
// device is connected and mirrors the node, otherwise the raw path.
func (m *Module) NodeParameter(path string) parameter.NodeRef {
	if m.lookup == nil {
		return parameter.Path(path)
	}
	segments := strings.Split(strings.Trim(strings.ToLower(path), "/"), "/")
	if len(segments) < 2 {
		return parameter.Path(path)
	}
	d, err := m.lookup(segments[0])
	if err != nil {
		return parameter.Path(path)
	}
	if p, ok := d.Root().ParameterByPath(path); ok {
		return p
	}
	return parameter.Path(path)
}

// Close releases the toolkit module.
func (m *Module) Close() error {
	return m.tk.Close()
}

// resolveDevice turns the serial read from the device node into the
// device wrapper. Unknown serials are returned unchanged.
func (m *Module) resolveDevice(value any) any {
	serial, ok := value.(string)
	if !ok || serial == "" || m.lookup == nil {
		return value
	}
	d, err := m.lookup(serial)
	if err == nil {
		return d
	}
	if serialPattern.MatchString(strings.ToLower(serial)) {
		m.logger.Warn("Device node holds a serial that is not connected",
			zap.String("serial", serial),
			zap.Error(err))
	}
	return value
}
