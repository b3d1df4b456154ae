// Package toolkit declares the boundary to the wrapped instrument toolkit.
//
// Everything behind these interfaces (data server connection, node tree
// discovery, sequencer compilation, waveform encoding) belongs to the
// toolkit. The adapter packages only call through them and relay their
// errors unchanged.
package toolkit

import (
	"context"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
)

// Node is a single leaf node of a node tree.
type Node interface {
	Info() types.NodeInfo
	// RawTree returns the path segments below the hidden tree prefix.
	RawTree() []string
	Get(ctx context.Context) (any, error)
	Set(ctx context.Context, value any) error
	Subscribe() error
	Unsubscribe() error
	GetAsEvent() error
	WaitForStateChange(ctx context.Context, value any, opts WaitOptions) error
}

// WaitOptions controls WaitForStateChange.
type WaitOptions struct {
	Invert    bool
	Timeout   time.Duration
	SleepTime time.Duration
}

// GetAllOptions controls a bulk get used by snapshots.
type GetAllOptions struct {
	ExcludeStreaming bool
	ExcludeVectors   bool
	SettingsOnly     bool
}

// NodeTree is the node tree of a device or module.
type NodeTree interface {
	// Prefix is the hidden first path segment (device serial or module name).
	Prefix() string
	// Nodes returns all leaf nodes in discovery order.
	Nodes() []Node
	// Node resolves a path with or without the hidden prefix.
	Node(path string) (Node, error)
	// GetAll reads every node below path in one request. Keys are lower
	// case absolute node paths.
	GetAll(ctx context.Context, path string, opts GetAllOptions) (map[string]any, error)
}

// Session is a connection to a data server.
type Session interface {
	ConnectDevice(ctx context.Context, serial string, iface string) (Device, error)
	CreateModule(ctx context.Context, moduleType string) (Module, error)
	// Poll returns the values of subscribed nodes that changed since the
	// last poll, keyed by absolute node path.
	Poll(ctx context.Context, recording time.Duration) (map[string]any, error)
	Close() error
}

// Device is a connected instrument.
type Device interface {
	Serial() string
	DeviceType() string
	NodeTree() NodeTree
	EnableQCCSMode(ctx context.Context) error
	// QAChannels returns the quantum analyzer channels, nil if the device
	// has none.
	QAChannels() []QAChannel
	QAChannelsPath() string
	// AWGs returns the AWG cores, nil if the device has none.
	AWGs() []AWGCore
	AWGsPath() string
}

// QAChannel is one quantum analyzer channel.
type QAChannel interface {
	Path() string
	CrosstalkMatrix(ctx context.Context) ([][]float64, error)
	SetCrosstalkMatrix(ctx context.Context, matrix [][]float64) error
	AdjustedDelay(ctx context.Context) (int, error)
	SetAdjustedDelay(ctx context.Context, value int) (int, error)
}

// AWGCore is one arbitrary waveform generator core.
type AWGCore interface {
	Path() string
	// CommandTable returns nil if the core has no command table.
	CommandTable() CommandTable
	EnableSequencer(ctx context.Context, single bool) error
	WaitDone(ctx context.Context, timeout, sleepTime time.Duration) error
	LoadSequencerProgram(ctx context.Context, program string, timeout time.Duration) error
	WriteToWaveformMemory(ctx context.Context, waveforms *types.Waveforms, indexes []int) error
	ReadFromWaveformMemory(ctx context.Context, indexes []int) (*types.Waveforms, error)
}

// CommandTable is the command table node of an AWG core.
type CommandTable interface {
	Path() string
	CheckStatus(ctx context.Context) (bool, error)
	LoadValidationSchema(ctx context.Context) (map[string]any, error)
	UploadToDevice(ctx context.Context, ct types.CommandTableSource, validate bool) error
	LoadFromDevice(ctx context.Context) (*types.CommandTable, error)
}

// Module is a long running data server module (sweeper, DAQ, ...).
type Module interface {
	ModuleType() string
	NodeTree() NodeTree
	Execute(ctx context.Context) error
	WaitDone(ctx context.Context, timeout, sleepTime time.Duration) error
	Subscribe(path string) error
	Unsubscribe(path string) error
	Close() error
}
