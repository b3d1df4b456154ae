package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/KevinKickass/OpenInstrumentCore/internal/instrument"
	"github.com/KevinKickass/OpenInstrumentCore/internal/session"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit/mocks"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit/sim"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var rw = []string{types.PropertyRead, types.PropertyWrite}

func simSession(t *testing.T) *sim.Session {
	t.Helper()
	tk, err := sim.NewSession(sim.Descriptors{
		"dev3000": {
			Serial:     "dev3000",
			DeviceType: "MFLI",
			Nodes: []types.NodeDescriptor{
				{NodeInfo: types.NodeInfo{Path: "oscs/0/freq", Type: types.NodeTypeDouble, Properties: rw}},
			},
		},
		"dev8000": {
			Serial:     "dev8000",
			DeviceType: "HDAWG",
			AWGs:       []types.AWGDescriptor{{WaveformSlots: 4}},
		},
	}, nil)
	require.NoError(t, err)
	return tk
}

func TestConnectDevice(t *testing.T) {
	ctx := context.Background()
	s := session.New(simSession(t), session.Options{})
	defer s.Close()

	d, err := s.ConnectDevice(ctx, "DEV3000", "1GbE")
	require.NoError(t, err)
	assert.Equal(t, "zi_MFLI_dev3000", d.Name())

	again, err := s.ConnectDevice(ctx, "dev3000", "1GbE")
	require.NoError(t, err)
	assert.Same(t, d, again)

	_, err = s.ConnectDevice(ctx, "dev8000", "")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Registry().Count(instrument.KindDevice))

	names := []string{}
	for _, dev := range s.Devices() {
		names = append(names, dev.Name())
	}
	assert.Equal(t, []string{"zi_HDAWG_dev8000", "zi_MFLI_dev3000"}, names)

	found, err := s.Device("dev3000")
	require.NoError(t, err)
	assert.Same(t, d, found)
	_, err = s.Device("dev1")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = s.ConnectDevice(ctx, "dev4242", "")
	assert.ErrorIs(t, err, types.ErrNotFound)

	inst, err := s.Instrument("zi_MFLI_dev3000")
	require.NoError(t, err)
	assert.Same(t, d.Root(), inst)
}

func TestConnectDeviceLogsRegistrationFailure(t *testing.T) {
	ctx := context.Background()
	tk := simSession(t)
	core, logs := observer.New(zap.ErrorLevel)
	s := session.New(tk, session.Options{Logger: zap.New(core)})
	defer s.Close()

	raw, err := tk.ConnectDevice(ctx, "dev3000", "")
	require.NoError(t, err)
	taken := instrument.New(instrument.KindDevice, "zi_MFLI_dev3000", raw.NodeTree())
	require.NoError(t, s.Registry().Register(taken))

	_, err = s.ConnectDevice(ctx, "dev3000", "")
	assert.ErrorIs(t, err, types.ErrDuplicateName)
	assert.Empty(t, s.Devices())

	entries := logs.FilterMessage("Device connected but could not be registered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "dev3000", entries[0].ContextMap()["serial"])
}

func TestModuleNaming(t *testing.T) {
	ctx := context.Background()
	s := session.New(simSession(t), session.Options{})
	defer s.Close()

	first, err := s.CreateModule(ctx, "sweeper")
	require.NoError(t, err)
	second, err := s.CreateModule(ctx, "Sweeper")
	require.NoError(t, err)
	daq, err := s.CreateModule(ctx, "daq")
	require.NoError(t, err)

	assert.Equal(t, "zi_sweeper_0", first.Name())
	assert.Equal(t, "zi_sweeper_1", second.Name())
	assert.Equal(t, "zi_daq_0", daq.Name())
	assert.Equal(t, 3, s.Registry().Count(instrument.KindModule))

	require.NoError(t, s.CloseModule("zi_sweeper_0"))
	_, err = s.Module("zi_sweeper_0")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, s.CloseModule("zi_sweeper_0"), types.ErrNotFound)

	third, err := s.CreateModule(ctx, "sweeper")
	require.NoError(t, err)
	assert.Equal(t, "zi_sweeper_2", third.Name())

	names := []string{}
	for _, m := range s.Modules() {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"zi_daq_0", "zi_sweeper_1", "zi_sweeper_2"}, names)
}

func TestPollForwardsSubscribedValues(t *testing.T) {
	ctx := context.Background()
	s := session.New(simSession(t), session.Options{})
	defer s.Close()

	d, err := s.ConnectDevice(ctx, "dev3000", "")
	require.NoError(t, err)
	freq, ok := d.Root().ParameterByPath("oscs/0/freq")
	require.True(t, ok)
	require.NoError(t, freq.Subscribe())
	require.NoError(t, freq.Set(ctx, 42.0))

	events, err := s.Poll(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"/dev3000/oscs/0/freq": 42.0}, events)
}

// closeFailing wraps a toolkit session whose close and modules fail.
type closeFailing struct {
	*sim.Session
	module *mocks.Module
}

func (c *closeFailing) CreateModule(ctx context.Context, moduleType string) (toolkit.Module, error) {
	return c.module, nil
}

func (c *closeFailing) Close() error {
	_ = c.Session.Close()
	return errors.New("data server gone")
}

func TestCloseCombinesErrors(t *testing.T) {
	ctx := context.Background()
	inner := simSession(t)
	tkModule, err := inner.CreateModule(ctx, "daq")
	require.NoError(t, err)

	module := &mocks.Module{Type: "daq", Tree: tkModule.NodeTree()}
	module.On("Close").Return(errors.New("module stuck")).Once()

	s := session.New(&closeFailing{Session: inner, module: module}, session.Options{})
	_, err = s.ConnectDevice(ctx, "dev3000", "")
	require.NoError(t, err)
	_, err = s.CreateModule(ctx, "daq")
	require.NoError(t, err)

	err = s.Close()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Contains(t, err.Error(), "module stuck")
	assert.Contains(t, err.Error(), "data server gone")
	assert.Empty(t, s.Registry().List())

	require.NoError(t, s.Close())
	_, err = s.ConnectDevice(ctx, "dev3000", "")
	assert.ErrorIs(t, err, types.ErrInvalidOperation)
	module.AssertExpectations(t)
}
