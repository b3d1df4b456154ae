package sim

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
	"go.uber.org/zap"
)

// Session is a simulated data server connection.
type Session struct {
	source    DescriptorSource
	validator *Validator
	logger    *zap.Logger

	mu      sync.Mutex
	devices map[string]*Device
	modules []*Module
	pending map[string]any
	closed  bool
}

func NewSession(source DescriptorSource, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}
	return &Session{
		source:    source,
		validator: validator,
		logger:    logger,
		devices:   make(map[string]*Device),
		pending:   make(map[string]any),
	}, nil
}

// ConnectDevice returns the device with the given serial. Connecting
// twice returns the same device.
func (s *Session) ConnectDevice(ctx context.Context, serial string, iface string) (toolkit.Device, error) {
	d, err := s.connect(ctx, serial, iface)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Session) connect(ctx context.Context, serial, iface string) (*Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	serial = strings.ToLower(serial)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("%w: session is closed", types.ErrInvalidOperation)
	}
	if d, ok := s.devices[serial]; ok {
		return d, nil
	}

	desc, err := s.source.Load(serial)
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", serial, err)
	}
	if iface == "" {
		iface = desc.Interface
	}
	d := newDevice(desc, iface, s, s.validator)
	s.devices[serial] = d

	s.logger.Info("Device connected",
		zap.String("serial", serial),
		zap.String("type", d.DeviceType()),
		zap.String("interface", iface))
	return d, nil
}

// Device returns a connected simulated device.
func (s *Session) Device(serial string) (*Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[strings.ToLower(serial)]
	return d, ok
}

func (s *Session) CreateModule(ctx context.Context, moduleType string) (toolkit.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(moduleType) == "" {
		return nil, fmt.Errorf("%w: empty module type", types.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("%w: session is closed", types.ErrInvalidOperation)
	}
	m := newModule(moduleType, s)
	s.modules = append(s.modules, m)
	return m, nil
}

// Poll waits for the recording time and returns the values that arrived
// for subscribed nodes in the meantime.
func (s *Session) Poll(ctx context.Context, recording time.Duration) (map[string]any, error) {
	if recording > 0 {
		if err := sleep(ctx, recording); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = make(map[string]any)
	return out, nil
}

func (s *Session) push(path string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[path] = value
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	for _, m := range s.modules {
		_ = m.Close()
	}
	s.closed = true
	s.devices = make(map[string]*Device)
	s.logger.Info("Session closed")
	return nil
}
