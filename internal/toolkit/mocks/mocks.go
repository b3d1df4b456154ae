// Package mocks holds testify mocks of the toolkit interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
	"github.com/stretchr/testify/mock"
)

// ---------------------------------------------------------------------------
// Node
// ---------------------------------------------------------------------------

// Node is a mock toolkit.Node. Info and RawTree are fixed fields, all
// other methods go through the mock.
type Node struct {
	mock.Mock
	NodeInfo types.NodeInfo
	Raw      []string
}

func (n *Node) Info() types.NodeInfo { return n.NodeInfo }
func (n *Node) RawTree() []string    { return n.Raw }

func (n *Node) Get(ctx context.Context) (any, error) {
	ret := n.Called(ctx)
	return ret.Get(0), ret.Error(1)
}
func (n *Node) Set(ctx context.Context, value any) error { return n.Called(ctx, value).Error(0) }
func (n *Node) Subscribe() error                         { return n.Called().Error(0) }
func (n *Node) Unsubscribe() error                       { return n.Called().Error(0) }
func (n *Node) GetAsEvent() error                        { return n.Called().Error(0) }
func (n *Node) WaitForStateChange(ctx context.Context, value any, opts toolkit.WaitOptions) error {
	return n.Called(ctx, value, opts).Error(0)
}

// ---------------------------------------------------------------------------
// QAChannel
// ---------------------------------------------------------------------------

type QAChannel struct {
	mock.Mock
	NodePath string
}

func (q *QAChannel) Path() string { return q.NodePath }

func (q *QAChannel) CrosstalkMatrix(ctx context.Context) ([][]float64, error) {
	ret := q.Called(ctx)
	var m [][]float64
	if ret.Get(0) != nil {
		m = ret.Get(0).([][]float64)
	}
	return m, ret.Error(1)
}
func (q *QAChannel) SetCrosstalkMatrix(ctx context.Context, matrix [][]float64) error {
	return q.Called(ctx, matrix).Error(0)
}
func (q *QAChannel) AdjustedDelay(ctx context.Context) (int, error) {
	ret := q.Called(ctx)
	return ret.Int(0), ret.Error(1)
}
func (q *QAChannel) SetAdjustedDelay(ctx context.Context, value int) (int, error) {
	ret := q.Called(ctx, value)
	return ret.Int(0), ret.Error(1)
}

// ---------------------------------------------------------------------------
// AWGCore
// ---------------------------------------------------------------------------

type AWGCore struct {
	mock.Mock
	NodePath string
	Table    toolkit.CommandTable
}

func (a *AWGCore) Path() string                       { return a.NodePath }
func (a *AWGCore) CommandTable() toolkit.CommandTable { return a.Table }

func (a *AWGCore) EnableSequencer(ctx context.Context, single bool) error {
	return a.Called(ctx, single).Error(0)
}
func (a *AWGCore) WaitDone(ctx context.Context, timeout, sleepTime time.Duration) error {
	return a.Called(ctx, timeout, sleepTime).Error(0)
}
func (a *AWGCore) LoadSequencerProgram(ctx context.Context, program string, timeout time.Duration) error {
	return a.Called(ctx, program, timeout).Error(0)
}
func (a *AWGCore) WriteToWaveformMemory(ctx context.Context, waveforms *types.Waveforms, indexes []int) error {
	return a.Called(ctx, waveforms, indexes).Error(0)
}
func (a *AWGCore) ReadFromWaveformMemory(ctx context.Context, indexes []int) (*types.Waveforms, error) {
	ret := a.Called(ctx, indexes)
	var w *types.Waveforms
	if ret.Get(0) != nil {
		w = ret.Get(0).(*types.Waveforms)
	}
	return w, ret.Error(1)
}

// ---------------------------------------------------------------------------
// CommandTable
// ---------------------------------------------------------------------------

type CommandTable struct {
	mock.Mock
	NodePath string
}

func (c *CommandTable) Path() string { return c.NodePath }

func (c *CommandTable) CheckStatus(ctx context.Context) (bool, error) {
	ret := c.Called(ctx)
	return ret.Bool(0), ret.Error(1)
}
func (c *CommandTable) LoadValidationSchema(ctx context.Context) (map[string]any, error) {
	ret := c.Called(ctx)
	var m map[string]any
	if ret.Get(0) != nil {
		m = ret.Get(0).(map[string]any)
	}
	return m, ret.Error(1)
}
func (c *CommandTable) UploadToDevice(ctx context.Context, ct types.CommandTableSource, validate bool) error {
	return c.Called(ctx, ct, validate).Error(0)
}
func (c *CommandTable) LoadFromDevice(ctx context.Context) (*types.CommandTable, error) {
	ret := c.Called(ctx)
	var ct *types.CommandTable
	if ret.Get(0) != nil {
		ct = ret.Get(0).(*types.CommandTable)
	}
	return ct, ret.Error(1)
}

// ---------------------------------------------------------------------------
// Module
// ---------------------------------------------------------------------------

type Module struct {
	mock.Mock
	Type string
	Tree toolkit.NodeTree
}

func (m *Module) ModuleType() string         { return m.Type }
func (m *Module) NodeTree() toolkit.NodeTree { return m.Tree }
func (m *Module) Execute(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
func (m *Module) WaitDone(ctx context.Context, timeout, sleepTime time.Duration) error {
	return m.Called(ctx, timeout, sleepTime).Error(0)
}
func (m *Module) Subscribe(path string) error   { return m.Called(path).Error(0) }
func (m *Module) Unsubscribe(path string) error { return m.Called(path).Error(0) }
func (m *Module) Close() error                  { return m.Called().Error(0) }
