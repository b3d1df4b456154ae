// Package session owns the connected device and module wrappers of one
// toolkit session and the registry they are listed in.
package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/driver/devices"
	"github.com/KevinKickass/OpenInstrumentCore/internal/driver/modules"
	"github.com/KevinKickass/OpenInstrumentCore/internal/instrument"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Options struct {
	// Blacklist holds node paths that are not mirrored on any wrapper.
	Blacklist []string
	Logger    *zap.Logger
}

type Session struct {
	tk        toolkit.Session
	registry  *instrument.Registry
	blacklist []string
	logger    *zap.Logger

	mu      sync.RWMutex
	devices map[string]devices.Device
	modules map[string]*modules.Module
	closed  bool
}

func New(tk toolkit.Session, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		tk:        tk,
		registry:  instrument.NewRegistry(),
		blacklist: opts.Blacklist,
		logger:    logger,
		devices:   make(map[string]devices.Device),
		modules:   make(map[string]*modules.Module),
	}
}

func (s *Session) Registry() *instrument.Registry { return s.registry }

// ConnectDevice connects a device and wraps it. Connecting a device that
// is already connected returns the existing wrapper.
func (s *Session) ConnectDevice(ctx context.Context, serial, iface string) (devices.Device, error) {
	serial = strings.ToLower(serial)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("%w: session is closed", types.ErrInvalidOperation)
	}
	if d, ok := s.devices[serial]; ok {
		return d, nil
	}

	tk, err := s.tk.ConnectDevice(ctx, serial, iface)
	if err != nil {
		return nil, err
	}
	// The toolkit keeps the device connected when wrapping fails.
	d, err := devices.New(tk, devices.Options{Blacklist: s.blacklist, Logger: s.logger})
	if err != nil {
		s.logger.Error("Device connected but could not be wrapped",
			zap.String("serial", serial), zap.Error(err))
		return nil, fmt.Errorf("failed to wrap %s: %w", serial, err)
	}
	if err := s.registry.Register(d.Root()); err != nil {
		s.logger.Error("Device connected but could not be registered",
			zap.String("serial", serial), zap.Error(err))
		return nil, err
	}
	s.devices[serial] = d

	s.logger.Info("Device registered",
		zap.String("serial", serial),
		zap.String("name", d.Name()))
	return d, nil
}

// Device returns the wrapper of a connected device. It is the lookup
// modules use to resolve their device node.
func (s *Session) Device(serial string) (devices.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[strings.ToLower(serial)]
	if !ok {
		return nil, fmt.Errorf("%w: device %s is not connected", types.ErrNotFound, serial)
	}
	return d, nil
}

// Devices returns all connected devices sorted by name.
func (s *Session) Devices() []devices.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]devices.Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// CreateModule creates a module named zi_<type>_<n> where n is the number
// of live modules of that type.
func (s *Session) CreateModule(ctx context.Context, moduleType string) (*modules.Module, error) {
	moduleType = strings.ToLower(moduleType)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("%w: session is closed", types.ErrInvalidOperation)
	}

	tk, err := s.tk.CreateModule(ctx, moduleType)
	if err != nil {
		return nil, err
	}

	live := 0
	for _, m := range s.modules {
		if m.ModuleType() == moduleType {
			live++
		}
	}
	name := modules.Name(moduleType, live)
	// a closed module may have left a gap below a still live name
	for n := live + 1; s.modules[name] != nil; n++ {
		name = modules.Name(moduleType, n)
	}

	m := modules.New(tk, name, modules.Options{
		Blacklist: s.blacklist,
		Logger:    s.logger,
		Lookup:    s.Device,
	})
	if err := s.registry.Register(m.Root()); err != nil {
		return nil, multierr.Append(err, tk.Close())
	}
	s.modules[name] = m

	s.logger.Info("Module created",
		zap.String("type", moduleType),
		zap.String("name", name))
	return m, nil
}

func (s *Session) Module(name string) (*modules.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.modules[name]
	if !ok {
		return nil, fmt.Errorf("%w: module %s", types.ErrNotFound, name)
	}
	return m, nil
}

// Modules returns all live modules sorted by name.
func (s *Session) Modules() []*modules.Module {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*modules.Module, 0, len(s.modules))
	for _, m := range s.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// CloseModule closes a module and removes it from the registry.
func (s *Session) CloseModule(name string) error {
	s.mu.Lock()
	m, ok := s.modules[name]
	if ok {
		delete(s.modules, name)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: module %s", types.ErrNotFound, name)
	}
	s.registry.Remove(m.Root())
	return m.Close()
}

// Instrument returns a registered device or module by instrument name.
func (s *Session) Instrument(name string) (*instrument.Instrument, error) {
	inst, ok := s.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: instrument %s", types.ErrNotFound, name)
	}
	return inst, nil
}

// Poll returns the values of subscribed nodes that changed since the
// last poll.
func (s *Session) Poll(ctx context.Context, recording time.Duration) (map[string]any, error) {
	return s.tk.Poll(ctx, recording)
}

// Close closes all modules and the toolkit session and clears the
// registry. Errors of the individual steps are combined.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	for name, m := range s.modules {
		if cerr := m.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close module %s: %w", name, cerr))
		}
	}
	err = multierr.Append(err, s.tk.Close())

	s.modules = make(map[string]*modules.Module)
	s.devices = make(map[string]devices.Device)
	s.registry.Clear()

	s.logger.Info("Session closed")
	return err
}
