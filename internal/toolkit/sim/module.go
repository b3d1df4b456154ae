package sim

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
)

var (
	rw       = []string{types.PropertyRead, types.PropertyWrite}
	readOnly = []string{types.PropertyRead}
)

// moduleNodes lists the nodes every simulated module exposes plus the
// ones specific to a module type.
func moduleNodes(moduleType string) []types.NodeDescriptor {
	nodes := []types.NodeDescriptor{
		{NodeInfo: types.NodeInfo{Path: "device", Type: types.NodeTypeString, Properties: rw, Description: "Device serial the module works on."}},
		{NodeInfo: types.NodeInfo{Path: "progress", Type: types.NodeTypeDouble, Properties: readOnly, Unit: "%", Description: "Reports the progress of the measurement."}},
		{NodeInfo: types.NodeInfo{Path: "clearhistory", Type: types.NodeTypeInteger, Properties: rw, Description: "Remove all records from the history list."}},
	}
	switch moduleType {
	case "sweeper":
		nodes = append(nodes,
			types.NodeDescriptor{NodeInfo: types.NodeInfo{Path: "gridnode", Type: types.NodeTypeString, Properties: rw, Description: "Device parameter that is swept."}},
			types.NodeDescriptor{NodeInfo: types.NodeInfo{Path: "start", Type: types.NodeTypeDouble, Properties: rw}, Value: 1e6},
			types.NodeDescriptor{NodeInfo: types.NodeInfo{Path: "stop", Type: types.NodeTypeDouble, Properties: rw}, Value: 1e7},
			types.NodeDescriptor{NodeInfo: types.NodeInfo{Path: "samplecount", Type: types.NodeTypeInteger, Properties: rw}, Value: 100},
			types.NodeDescriptor{NodeInfo: types.NodeInfo{Path: "xmapping", Type: types.NodeTypeEnumerated, Properties: rw, Options: map[int64]string{0: "linear", 1: "log"}}},
		)
	case "daq":
		nodes = append(nodes,
			types.NodeDescriptor{NodeInfo: types.NodeInfo{Path: "type", Type: types.NodeTypeInteger, Properties: rw}},
			types.NodeDescriptor{NodeInfo: types.NodeInfo{Path: "duration", Type: types.NodeTypeDouble, Properties: rw, Unit: "s"}, Value: 0.1},
			types.NodeDescriptor{NodeInfo: types.NodeInfo{Path: "count", Type: types.NodeTypeInteger, Properties: rw}, Value: 1},
			types.NodeDescriptor{NodeInfo: types.NodeInfo{Path: "triggernode", Type: types.NodeTypeString, Properties: rw}},
		)
	case "scope":
		nodes = append(nodes,
			types.NodeDescriptor{NodeInfo: types.NodeInfo{Path: "averager/weight", Type: types.NodeTypeInteger, Properties: rw}, Value: 1},
			types.NodeDescriptor{NodeInfo: types.NodeInfo{Path: "mode", Type: types.NodeTypeInteger, Properties: rw}, Value: 1},
		)
	}
	return nodes
}

// Module is a simulated data server module. A run lasts RunTime after
// Execute; a negative run time never finishes.
type Module struct {
	moduleType string
	tree       *NodeTree

	mu            sync.Mutex
	runTime       time.Duration
	running       bool
	startedAt     time.Time
	subscriptions map[string]struct{}
	closed        bool
}

func newModule(moduleType string, events eventSink) *Module {
	moduleType = strings.ToLower(moduleType)
	m := &Module{
		moduleType:    moduleType,
		tree:          newNodeTree(moduleType, events),
		subscriptions: make(map[string]struct{}),
	}
	for _, n := range moduleNodes(moduleType) {
		info := n.NodeInfo
		info.Path = "/" + moduleType + "/" + info.Path
		m.tree.add(info, n.Value)
	}
	return m
}

func (m *Module) ModuleType() string { return m.moduleType }

func (m *Module) NodeTree() toolkit.NodeTree { return m.tree }

func (m *Module) SetRunTime(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runTime = d
}

func (m *Module) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("%w: module %s is closed", types.ErrInvalidOperation, m.moduleType)
	}
	m.running = true
	m.startedAt = time.Now()
	m.mu.Unlock()
	m.tree.setValue("progress", float64(0))
	return nil
}

// finished reports whether the current run is over. Caller holds m.mu.
func (m *Module) finished(now time.Time) bool {
	if !m.running {
		return true
	}
	if m.runTime < 0 || now.Sub(m.startedAt) < m.runTime {
		return false
	}
	m.running = false
	return true
}

func (m *Module) WaitDone(ctx context.Context, timeout, sleepTime time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		m.mu.Lock()
		done := m.finished(time.Now())
		m.mu.Unlock()
		if done {
			m.tree.setValue("progress", float64(1))
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: module %s did not finish within %s", types.ErrTimeout, m.moduleType, timeout)
		}
		if err := sleep(ctx, sleepTime); err != nil {
			return err
		}
	}
}

// Subscribe records a device node the module collects data from.
func (m *Module) Subscribe(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running && !m.finished(time.Now()) {
		return fmt.Errorf("%w: cannot subscribe to %s while module %s is running", types.ErrRuntime, path, m.moduleType)
	}
	m.subscriptions[strings.ToLower(path)] = struct{}{}
	return nil
}

func (m *Module) Unsubscribe(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running && !m.finished(time.Now()) {
		return fmt.Errorf("%w: cannot unsubscribe from %s while module %s is running", types.ErrRuntime, path, m.moduleType)
	}
	delete(m.subscriptions, strings.ToLower(path))
	return nil
}

// Subscriptions returns the subscribed node paths.
func (m *Module) Subscriptions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.subscriptions))
	for p := range m.subscriptions {
		out = append(out, p)
	}
	return out
}

func (m *Module) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.running = false
	return nil
}
