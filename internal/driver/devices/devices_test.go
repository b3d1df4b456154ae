package devices_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/driver/devices"
	"github.com/KevinKickass/OpenInstrumentCore/internal/instrument"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit/sim"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	rw       = []string{types.PropertyRead, types.PropertyWrite, types.PropertySetting}
	readOnly = []string{types.PropertyRead}
)

func descriptors() sim.Descriptors {
	return sim.Descriptors{
		"dev2000": {
			Serial:      "dev2000",
			DeviceType:  "UHFQA",
			QAChannels:  2,
			DelayWindow: 1020,
			AWGs:        []types.AWGDescriptor{{WaveformSlots: 8, RunTime: time.Hour}},
			Nodes: []types.NodeDescriptor{
				{NodeInfo: types.NodeInfo{Path: "qas/0/delay", Type: types.NodeTypeInteger, Properties: rw}},
				{NodeInfo: types.NodeInfo{Path: "qas/1/delay", Type: types.NodeTypeInteger, Properties: rw}},
				{NodeInfo: types.NodeInfo{Path: "awgs/0/enable", Type: types.NodeTypeInteger, Properties: rw}},
				{NodeInfo: types.NodeInfo{Path: "sigouts/0/range", Type: types.NodeTypeDouble, Properties: rw, Unit: "V"}, Value: 1.5},
				{NodeInfo: types.NodeInfo{Path: "system/extclk", Type: types.NodeTypeInteger, Properties: rw}},
				{NodeInfo: types.NodeInfo{Path: "system/fwlog", Type: types.NodeTypeString, Properties: readOnly}},
			},
		},
		"dev8000": {
			Serial:     "dev8000",
			DeviceType: "HDAWG",
			AWGs: []types.AWGDescriptor{
				{WaveformSlots: 16, CommandTable: true},
				{WaveformSlots: 16, CommandTable: true},
			},
			Nodes: []types.NodeDescriptor{
				{NodeInfo: types.NodeInfo{Path: "awgs/0/enable", Type: types.NodeTypeInteger, Properties: rw}},
				{NodeInfo: types.NodeInfo{Path: "awgs/1/enable", Type: types.NodeTypeInteger, Properties: rw}},
				{NodeInfo: types.NodeInfo{Path: "system/clocks/referenceclock/source", Type: types.NodeTypeEnumerated, Properties: rw,
					Options: map[int64]string{0: "internal", 1: "external"}}},
			},
		},
		"dev3000": {
			Serial:     "dev3000",
			DeviceType: "MFLI",
			Nodes: []types.NodeDescriptor{
				{NodeInfo: types.NodeInfo{Path: "demods/0/rate", Type: types.NodeTypeDouble, Properties: rw}, Value: 1674.0},
				{NodeInfo: types.NodeInfo{Path: "demods/1/rate", Type: types.NodeTypeDouble, Properties: rw}, Value: 1674.0},
			},
		},
	}
}

func connect(t *testing.T, serial string) (devices.Device, *sim.Session) {
	t.Helper()
	s, err := sim.NewSession(descriptors(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	tk, err := s.ConnectDevice(context.Background(), serial, "")
	require.NoError(t, err)
	d, err := devices.New(tk, devices.Options{})
	require.NoError(t, err)
	return d, s
}

func uhfqa(t *testing.T) *devices.UHFQA {
	t.Helper()
	d, _ := connect(t, "dev2000")
	u, ok := d.(*devices.UHFQA)
	require.True(t, ok)
	return u
}

func hdawg(t *testing.T) (*devices.HDAWG, *sim.Session) {
	t.Helper()
	d, s := connect(t, "dev8000")
	h, ok := d.(*devices.HDAWG)
	require.True(t, ok)
	return h, s
}

func TestNewSelectsWrapper(t *testing.T) {
	d, _ := connect(t, "dev3000")
	_, isBase := d.(*devices.Base)
	assert.True(t, isBase)
	assert.Equal(t, "zi_MFLI_dev3000", d.Name())
	assert.Equal(t, "dev3000", d.Serial())

	demods, ok := d.Root().Submodule("demods")
	require.True(t, ok)
	list, ok := demods.(*instrument.ChannelList)
	require.True(t, ok)
	assert.Equal(t, 2, list.Len())
}

func TestUHFQABlocksBeforeTree(t *testing.T) {
	d := uhfqa(t)
	assert.Equal(t, "zi_UHFQA_dev2000", d.Name())

	sub, ok := d.Submodule("qas")
	require.True(t, ok)
	list := sub.(*instrument.ChannelList)
	assert.Equal(t, 2, list.Len())
	assert.True(t, list.Locked())
	assert.ErrorIs(t, list.Append(instrument.NewNode("extra", "", nil)), types.ErrInvalidOperation)

	q, err := d.QAS(1)
	require.NoError(t, err)
	assert.Equal(t, "qas_1", q.Name())
	assert.Equal(t, 1, q.Index())

	delay, ok := q.Parameter("delay")
	require.True(t, ok)
	assert.Equal(t, "/dev2000/qas/1/delay", delay.Path())

	_, err = d.QAS(2)
	assert.ErrorIs(t, err, types.ErrIndexOutOfRange)

	a, err := d.AWG(0)
	require.NoError(t, err)
	_, hasTable := a.CommandTable()
	assert.False(t, hasTable)
	_, ok = a.Parameter("enable")
	assert.True(t, ok)
}

func TestQASCrosstalkAndDelay(t *testing.T) {
	ctx := context.Background()
	q, err := uhfqa(t).QAS(0)
	require.NoError(t, err)

	require.NoError(t, q.SetCrosstalkMatrix(ctx, [][]float64{{1, 0.2}, {0.2, 1}}))
	m, err := q.CrosstalkMatrix(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.2, m[1][0])

	big := make([][]float64, 11)
	for i := range big {
		big[i] = make([]float64, 11)
	}
	assert.ErrorIs(t, q.SetCrosstalkMatrix(ctx, big), types.ErrValidation)

	applied, err := q.SetAdjustedDelay(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, 500, applied)
	got, err := q.AdjustedDelay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 500, got)

	_, err = q.SetAdjustedDelay(ctx, 5000)
	assert.ErrorIs(t, err, types.ErrOutOfRange)
}

func TestParameterRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := uhfqa(t)

	p, ok := d.ParameterByPath("sigouts/0/range")
	require.True(t, ok)
	assert.Equal(t, "V", p.Unit())

	require.NoError(t, p.Set(ctx, 0.75))
	v, err := p.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.75, v)
}

func TestAWGWaitDoneTimeout(t *testing.T) {
	ctx := context.Background()
	a, err := uhfqa(t).AWG(0)
	require.NoError(t, err)

	require.NoError(t, a.LoadSequencerProgram(ctx, "while(true) { waitWave(); }", time.Second))
	require.NoError(t, a.EnableSequencer(ctx, true))
	assert.ErrorIs(t, a.WaitDone(ctx, 20*time.Millisecond, time.Millisecond), types.ErrTimeout)
}

func TestCommandTableValidation(t *testing.T) {
	ctx := context.Background()
	h, s := hdawg(t)

	a, err := h.AWG(1)
	require.NoError(t, err)
	ct, ok := a.CommandTable()
	require.True(t, ok)
	assert.Equal(t, "/dev8000/awgs/1/commandtable", ct.ZINode())

	invalid := types.RawCommandTable(`{"header": {"version": "1.2"}, "table": [{"index": 0, "bogus": 1}]}`)
	assert.ErrorIs(t, ct.UploadToDevice(ctx, invalid, true), types.ErrValidation)
	require.NoError(t, ct.UploadToDevice(ctx, invalid, false))

	index := 3
	table := &types.CommandTable{
		Header: types.CommandTableHeader{Version: "1.2"},
		Table: []types.CommandTableEntry{
			{Index: 0, Waveform: &types.CommandTableWaveform{Index: &index}, Amplitude0: &types.CommandTableValue{Value: 0.5}},
		},
	}
	require.NoError(t, ct.UploadToDevice(ctx, table, true))

	status, err := ct.CheckStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status)

	loaded, err := ct.LoadFromDevice(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Table, 1)
	assert.Equal(t, 3, *loaded.Table[0].Waveform.Index)

	schema, err := ct.LoadValidationSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AWG Command Table Schema", schema["title"])

	simDev, ok := s.Device("dev8000")
	require.True(t, ok)
	core, ok := simDev.AWGCore(1)
	require.True(t, ok)
	core.SimCommandTable().SetFailUploads(true)
	assert.ErrorIs(t, ct.UploadToDevice(ctx, table, false), types.ErrRuntime)
	_, err = ct.CheckStatus(ctx)
	assert.ErrorIs(t, err, types.ErrRuntime)

	core.SimCommandTable().SetFailUploads(false)
	require.NoError(t, ct.UploadToDevice(ctx, table, false))
	status, err = ct.CheckStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status)
}

func TestAWGWaveformMemory(t *testing.T) {
	ctx := context.Background()
	h, _ := hdawg(t)
	a, err := h.AWG(0)
	require.NoError(t, err)

	waves := types.NewWaveforms()
	waves.Assign(0, types.Wave{Wave1: []float64{0, 1, 0}})
	waves.Assign(16, types.Wave{Wave1: []float64{1}})
	assert.ErrorIs(t, a.WriteToWaveformMemory(ctx, waves, nil), types.ErrIndexOutOfRange)

	require.NoError(t, a.WriteToWaveformMemory(ctx, waves, []int{0}))
	got, err := a.ReadFromWaveformMemory(ctx, []int{0})
	require.NoError(t, err)
	w, ok := got.Get(0)
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1, 0}, w.Wave1)
}

func TestEnableQCCSMode(t *testing.T) {
	ctx := context.Background()
	h, s := hdawg(t)

	var qccs devices.QCCSDevice = h
	require.NoError(t, qccs.EnableQCCSMode(ctx))

	simDev, _ := s.Device("dev8000")
	assert.True(t, simDev.QCCSMode())

	p, ok := h.ParameterByPath("/dev8000/system/clocks/referenceclock/source")
	require.True(t, ok)
	v, err := p.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestDeviceSnapshot(t *testing.T) {
	ctx := context.Background()
	d := uhfqa(t)

	snap, err := d.Snapshot(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "zi_UHFQA_dev2000", snap["name"])
	assert.Equal(t, "device", snap["kind"])

	subs := snap["submodules"].(map[string]any)
	qas := subs["qas"].(map[string]any)
	channels := qas["channels"].([]any)
	require.Len(t, channels, 2)
	first := channels[0].(map[string]any)
	assert.Equal(t, "qas_0", first["name"])

	system := subs["system"].(map[string]any)
	fwlog := system["parameters"].(map[string]any)["fwlog"].(map[string]any)
	assert.NotContains(t, fwlog, "value")

	var buf bytes.Buffer
	require.NoError(t, d.PrintReadableSnapshot(ctx, &buf, true, 80))
	assert.Contains(t, buf.String(), "sigouts0:")
	assert.Contains(t, buf.String(), "1.5 (V)")
}

func TestBlacklist(t *testing.T) {
	s, err := sim.NewSession(descriptors(), nil)
	require.NoError(t, err)
	defer s.Close()

	tk, err := s.ConnectDevice(context.Background(), "dev2000", "")
	require.NoError(t, err)
	d, err := devices.New(tk, devices.Options{Blacklist: []string{"/DEV2000/SYSTEM/FWLOG"}})
	require.NoError(t, err)

	_, ok := d.Root().ParameterByPath("system/fwlog")
	assert.False(t, ok)
	_, ok = d.Root().ParameterByPath("system/extclk")
	assert.True(t, ok)
}

var _ toolkit.Device = (*sim.Device)(nil)
