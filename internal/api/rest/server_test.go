package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/api/rest"
	"github.com/KevinKickass/OpenInstrumentCore/internal/api/websocket"
	"github.com/KevinKickass/OpenInstrumentCore/internal/config"
	"github.com/KevinKickass/OpenInstrumentCore/internal/interfaces"
	"github.com/KevinKickass/OpenInstrumentCore/internal/session"
	"github.com/KevinKickass/OpenInstrumentCore/internal/storage"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit/sim"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
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
			AWGs:        []types.AWGDescriptor{{WaveformSlots: 4}},
			Nodes: []types.NodeDescriptor{
				{NodeInfo: types.NodeInfo{Path: "sigouts/0/range", Type: types.NodeTypeDouble, Properties: rw, Unit: "V"}, Value: 1.5},
				{NodeInfo: types.NodeInfo{Path: "sigouts/0/on", Type: types.NodeTypeInteger, Properties: rw}},
				{NodeInfo: types.NodeInfo{Path: "stats/physical/fpga/temp", Type: types.NodeTypeDouble, Properties: readOnly}, Value: 40.0},
			},
		},
		"dev8000": {
			Serial:     "dev8000",
			DeviceType: "HDAWG",
			AWGs: []types.AWGDescriptor{
				{WaveformSlots: 8, CommandTable: true},
			},
			Nodes: []types.NodeDescriptor{
				{NodeInfo: types.NodeInfo{Path: "awgs/0/enable", Type: types.NodeTypeInteger, Properties: rw}},
			},
		},
		"dev3000": {
			Serial:     "dev3000",
			DeviceType: "MFLI",
			Nodes: []types.NodeDescriptor{
				{NodeInfo: types.NodeInfo{Path: "oscs/0/freq", Type: types.NodeTypeDouble, Properties: rw}},
			},
		},
	}
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveSnapshot(ctx context.Context, rec *storage.SnapshotRecord) (uuid.UUID, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockStore) GetSnapshot(ctx context.Context, id uuid.UUID) (*storage.SnapshotRecord, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*storage.SnapshotRecord)
	return rec, args.Error(1)
}

func (m *mockStore) ListSnapshots(ctx context.Context, name string, limit int) ([]storage.SnapshotRecord, error) {
	args := m.Called(ctx, name, limit)
	return args.Get(0).([]storage.SnapshotRecord), args.Error(1)
}

func (m *mockStore) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type fakeLifecycle struct {
	cfg   *config.Config
	sess  *session.Session
	store storage.SnapshotStore
}

func (f *fakeLifecycle) Config() *config.Config { return f.cfg }

func (f *fakeLifecycle) Session() *session.Session { return f.sess }

func (f *fakeLifecycle) Snapshots() storage.SnapshotStore { return f.store }

func (f *fakeLifecycle) GetCurrentStatus() interfaces.SystemStatus {
	return interfaces.SystemStatus{State: "RUNNING", DeviceCount: len(f.sess.Devices())}
}

func (f *fakeLifecycle) Shutdown(ctx context.Context) error { return nil }

type fixture struct {
	handler http.Handler
	lm      *fakeLifecycle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tk, err := sim.NewSession(descriptors(), nil)
	require.NoError(t, err)
	sess := session.New(tk, session.Options{})
	t.Cleanup(func() { sess.Close() })

	ctx := context.Background()
	for _, serial := range []string{"dev2000", "dev8000", "dev3000"} {
		_, err := sess.ConnectDevice(ctx, serial, "1GbE")
		require.NoError(t, err)
	}

	cfg := &config.Config{
		Timeouts: config.TimeoutsConfig{
			Compile:   time.Second,
			WaitDone:  time.Second,
			SleepTime: time.Millisecond,
		},
	}
	lm := &fakeLifecycle{cfg: cfg, sess: sess}
	logger := zaptest.NewLogger(t)
	srv := rest.NewServer(cfg, lm, logger, websocket.NewHub(logger))
	return &fixture{handler: srv.Handler(), lm: lm}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, w)
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, w.Body.String())
	return e["code"].(string)
}

func TestHealthAndStatus(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = f.do(t, http.MethodGet, "/api/v1/system/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, decode(t, w)["device_count"])
}

func TestListInstrumentsAndDevices(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/instruments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, decode(t, w)["count"])

	w = f.do(t, http.MethodGet, "/api/v1/devices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	devs := body["devices"].([]any)
	require.Len(t, devs, 3)
	names := make([]string, 0, len(devs))
	for _, d := range devs {
		names = append(names, d.(map[string]any)["name"].(string))
	}
	assert.Equal(t, []string{"zi_HDAWG_dev8000", "zi_MFLI_dev3000", "zi_UHFQA_dev2000"}, names)
}

func TestConnectDevice(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/devices", map[string]string{"serial": "DEV3000"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "zi_MFLI_dev3000", decode(t, w)["name"])

	w = f.do(t, http.MethodPost, "/api/v1/devices", map[string]string{"serial": "dev9999"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/devices", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", errorCode(t, w))
}

func TestParameterGetSet(t *testing.T) {
	f := newFixture(t)
	base := "/api/v1/instruments/zi_UHFQA_dev2000/parameters"

	w := f.do(t, http.MethodGet, base+"/sigouts/0/range", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, 1.5, body["value"])
	assert.Equal(t, "V", body["unit"])
	assert.Equal(t, "range", body["name"])

	w = f.do(t, http.MethodPut, base+"/sigouts/0/range", map[string]any{"value": 2.5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, base+"/SIGOUTS/0/RANGE", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.5, decode(t, w)["value"])

	w = f.do(t, http.MethodPut, base+"/sigouts/0/on", map[string]any{"value": 1.5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))

	w = f.do(t, http.MethodPut, base+"/stats/physical/fpga/temp", map[string]any{"value": 1})
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "ACCESS_DENIED", errorCode(t, w))

	w = f.do(t, http.MethodPut, base+"/sigouts/0/range", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, base+"/sigouts/7/range", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))

	w = f.do(t, http.MethodGet, "/api/v1/instruments/zi_UHFQA_dev9999/parameters/sigouts/0/range", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParameterPaths(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/instruments/zi_MFLI_dev3000/paths", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"/dev3000/oscs/0/freq"}, decode(t, w)["paths"])
}

func TestSubscribeAndWait(t *testing.T) {
	f := newFixture(t)
	inst := "/api/v1/instruments/zi_UHFQA_dev2000"

	w := f.do(t, http.MethodPost, inst+"/subscriptions", map[string]string{"path": "sigouts/0/on"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPut, inst+"/parameters/sigouts/0/on", map[string]any{"value": 1})
	require.Equal(t, http.StatusOK, w.Code)

	values, err := f.lm.sess.Poll(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), values["/dev2000/sigouts/0/on"])

	w = f.do(t, http.MethodPost, inst+"/wait", map[string]any{"path": "sigouts/0/on", "value": 1})
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, inst+"/wait", map[string]any{
		"path": "sigouts/0/on", "value": 0, "timeout": "20ms",
	})
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "TIMEOUT", errorCode(t, w))

	w = f.do(t, http.MethodDelete, inst+"/subscriptions/sigouts/0/on", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t)
	path := "/api/v1/instruments/zi_UHFQA_dev2000/snapshot?update=true"

	w := f.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "zi_UHFQA_dev2000", body["instrument_name"])
	snap := body["snapshot"].(map[string]any)
	assert.Equal(t, "zi_UHFQA_dev2000", snap["name"])

	w = f.do(t, http.MethodGet, path+"&format=yaml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "instrument_name: zi_UHFQA_dev2000")

	w = f.do(t, http.MethodGet, path+"&format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, path+"&persist=true", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_OPERATION", errorCode(t, w))

	w = f.do(t, http.MethodGet, "/api/v1/instruments/zi_UHFQA_dev2000/readable?update=true&max_chars=-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sigouts0:")
	assert.Contains(t, w.Body.String(), "1.5 (V)")
}

func TestSnapshotPersistence(t *testing.T) {
	f := newFixture(t)
	store := &mockStore{}
	f.lm.store = store

	id := uuid.New()
	store.On("SaveSnapshot", mock.Anything, mock.MatchedBy(func(rec *storage.SnapshotRecord) bool {
		return rec.InstrumentName == "zi_MFLI_dev3000" && rec.Kind == "device"
	})).Return(id, nil).Run(func(args mock.Arguments) {
		args.Get(1).(*storage.SnapshotRecord).ID = id
	})

	w := f.do(t, http.MethodGet, "/api/v1/instruments/zi_MFLI_dev3000/snapshot?persist=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, id.String(), decode(t, w)["id"])

	missing := uuid.New()
	store.On("GetSnapshot", mock.Anything, missing).Return(nil, types.ErrNotFound)
	w = f.do(t, http.MethodGet, "/api/v1/snapshots/"+missing.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	store.On("ListSnapshots", mock.Anything, "zi_MFLI_dev3000", 5).
		Return([]storage.SnapshotRecord{{ID: id, InstrumentName: "zi_MFLI_dev3000"}}, nil)
	w = f.do(t, http.MethodGet, "/api/v1/snapshots?instrument=zi_MFLI_dev3000&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = f.do(t, http.MethodGet, "/api/v1/snapshots/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	store.AssertExpectations(t)
}

func TestQAS(t *testing.T) {
	f := newFixture(t)
	qas := "/api/v1/devices/dev2000/qas/1"

	w := f.do(t, http.MethodGet, qas+"/crosstalk", nil)
	require.Equal(t, http.StatusOK, w.Code)
	matrix := decode(t, w)["matrix"].([]any)
	assert.Len(t, matrix, 10)

	w = f.do(t, http.MethodPut, qas+"/crosstalk", map[string]any{"matrix": [][]float64{{0.5, 0.1}, {0.1, 0.5}}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, qas+"/crosstalk", nil)
	require.Equal(t, http.StatusOK, w.Code)
	first := decode(t, w)["matrix"].([]any)[0].([]any)
	assert.Equal(t, 0.5, first[0])
	assert.Equal(t, 0.1, first[1])

	w = f.do(t, http.MethodPut, qas+"/crosstalk", map[string]any{"matrix": make([][]float64, 11)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))

	w = f.do(t, http.MethodPut, qas+"/delay", map[string]any{"delay": 200})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, qas+"/delay", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 200, decode(t, w)["delay"])

	w = f.do(t, http.MethodPut, qas+"/delay", map[string]any{"delay": 2000})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "OUT_OF_RANGE", errorCode(t, w))

	w = f.do(t, http.MethodGet, "/api/v1/devices/dev2000/qas/5/delay", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INDEX_OUT_OF_RANGE", errorCode(t, w))

	w = f.do(t, http.MethodGet, "/api/v1/devices/dev8000/qas/0/delay", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestQCCSMode(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/devices/dev8000/qccs", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/devices/dev3000/qccs", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_OPERATION", errorCode(t, w))
}

func TestSequencer(t *testing.T) {
	f := newFixture(t)
	awg := "/api/v1/devices/dev8000/awgs/0"

	w := f.do(t, http.MethodPost, awg+"/sequencer", map[string]any{"program": "playWave(w0);"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, awg+"/sequencer", map[string]any{"program": "   "})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "RUNTIME_ERROR", errorCode(t, w))

	w = f.do(t, http.MethodPost, awg+"/enable", map[string]any{"single": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, awg+"/wait", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, awg+"/enable", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodPost, awg+"/wait", map[string]any{"timeout": "10ms"})
	assert.Equal(t, "RUNTIME_ERROR", errorCode(t, w))

	w = f.do(t, http.MethodPost, "/api/v1/devices/dev8000/awgs/3/enable", nil)
	assert.Equal(t, "INDEX_OUT_OF_RANGE", errorCode(t, w))

	w = f.do(t, http.MethodPost, "/api/v1/devices/dev3000/awgs/0/enable", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestWaveforms(t *testing.T) {
	f := newFixture(t)
	awg := "/api/v1/devices/dev8000/awgs/0/waveforms"

	w := f.do(t, http.MethodPut, awg, map[string]any{
		"waveforms": map[string]any{
			"0": map[string]any{"wave1": []float64{0, 0.5, 1}},
			"2": map[string]any{"wave1": []float64{1, 1}, "wave2": []float64{-1, -1}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, awg+"?indexes=2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	waves := decode(t, w)["waveforms"].(map[string]any)
	require.Contains(t, waves, "2")
	assert.Equal(t, []any{-1.0, -1.0}, waves["2"].(map[string]any)["wave2"])

	w = f.do(t, http.MethodPut, awg, map[string]any{
		"waveforms": map[string]any{"9": map[string]any{"wave1": []float64{0}}},
	})
	assert.Equal(t, "INDEX_OUT_OF_RANGE", errorCode(t, w))

	w = f.do(t, http.MethodGet, awg+"?indexes=a", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommandTable(t *testing.T) {
	f := newFixture(t)
	ct := "/api/v1/devices/dev8000/awgs/0/commandtable"

	w := f.do(t, http.MethodGet, ct+"/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["loaded"])

	w = f.do(t, http.MethodGet, ct, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, ct+"/schema", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "AWG Command Table Schema", decode(t, w)["title"])

	table := `{"header":{"version":"1.0"},"table":[{"index":0,"amplitude0":{"value":0.5}}]}`
	w = f.do(t, http.MethodPut, ct, table)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, ct+"/status", nil)
	assert.Equal(t, true, decode(t, w)["loaded"])

	w = f.do(t, http.MethodGet, ct, nil)
	require.Equal(t, http.StatusOK, w.Code)
	loaded := decode(t, w)
	assert.Equal(t, "1.0", loaded["header"].(map[string]any)["version"])

	invalid := `{"header":{"version":"9.9"},"table":[]}`
	w = f.do(t, http.MethodPut, ct, invalid)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))

	w = f.do(t, http.MethodPut, ct+"?validate=false", invalid)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPut, ct, "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/devices/dev2000/awgs/0/commandtable/status", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestModules(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/modules", map[string]string{"type": "daq"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "zi_daq_0", decode(t, w)["name"])

	w = f.do(t, http.MethodPost, "/api/v1/modules/zi_daq_0/subscriptions",
		map[string]string{"path": "/dev2000/sigouts/0/range"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["parameter"])
	assert.Equal(t, "/dev2000/sigouts/0/range", body["path"])

	w = f.do(t, http.MethodPost, "/api/v1/modules/zi_daq_0/subscriptions",
		map[string]string{"path": "/dev5555/demods/0/sample"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["parameter"])

	w = f.do(t, http.MethodPost, "/api/v1/modules/zi_daq_0/execute", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/modules/zi_daq_0/wait", map[string]string{"timeout": "1s"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodDelete, "/api/v1/modules/zi_daq_0/subscriptions/dev2000/sigouts/0/range", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/v1/modules", nil)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = f.do(t, http.MethodDelete, "/api/v1/modules/zi_daq_0", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/modules/zi_daq_0/execute", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/modules", map[string]string{"type": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodOptions, "/api/v1/devices", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "PUT"))
}
