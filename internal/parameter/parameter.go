// Package parameter turns toolkit nodes into gettable/settable parameters.
package parameter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
)

// Validator checks a value before it is sent to the node.
type Validator interface {
	Validate(value any) error
}

// ComplexNumbers accepts complex values, real numbers and strings that
// parse as complex numbers.
type ComplexNumbers struct{}

func (ComplexNumbers) Validate(value any) error {
	switch v := value.(type) {
	case complex64, complex128:
		return nil
	case string:
		if _, err := strconv.ParseComplex(strings.TrimSpace(v), 128); err != nil {
			return fmt.Errorf("%w: %q is not a complex number", types.ErrValidation, v)
		}
		return nil
	default:
		if _, ok := toFloat64(v); ok {
			return nil
		}
		return fmt.Errorf("%w: %T is not a complex number", types.ErrValidation, value)
	}
}

// GetParser post-processes a value after it has been read from the node.
type GetParser func(value any) any

// Parameter is the framework facing proxy for exactly one node.
type Parameter struct {
	name      string
	label     string
	docstring string
	unit      string
	node      toolkit.Node
	info      types.NodeInfo
	vals      Validator
	parsers   []GetParser
	cache     *SnapshotCache

	snapshotValue bool
	snapshotGet   bool

	mu        sync.RWMutex
	latest    any
	latestAt  time.Time
	hasLatest bool
}

type Option func(*Parameter)

func WithName(name string) Option { return func(p *Parameter) { p.name = name } }

func WithLabel(label string) Option { return func(p *Parameter) { p.label = label } }

func WithUnit(unit string) Option { return func(p *Parameter) { p.unit = unit } }

func WithDocstring(doc string) Option { return func(p *Parameter) { p.docstring = doc } }

func WithValidator(v Validator) Option { return func(p *Parameter) { p.vals = v } }

func WithSnapshotCache(c *SnapshotCache) Option { return func(p *Parameter) { p.cache = c } }

// WithSnapshot controls whether the value is part of snapshots and
// whether a snapshot update reads it from the device.
func WithSnapshot(value, get bool) Option {
	return func(p *Parameter) {
		p.snapshotValue = value
		p.snapshotGet = get
	}
}

func WithGetParser(fn GetParser) Option {
	return func(p *Parameter) { p.parsers = append(p.parsers, fn) }
}

// New creates a parameter for the node. Name, label and unit default to
// the last path segment and the node's declared unit.
func New(node toolkit.Node, opts ...Option) *Parameter {
	info := node.Info()
	p := &Parameter{
		node:          node,
		info:          info,
		unit:          info.DisplayUnit(),
		docstring:     info.Description,
		snapshotValue: true,
		snapshotGet:   true,
	}
	if raw := node.RawTree(); len(raw) > 0 {
		p.name = raw[len(raw)-1]
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.label == "" {
		p.label = p.name
	}
	return p
}

func (p *Parameter) Name() string      { return p.name }
func (p *Parameter) Label() string     { return p.label }
func (p *Parameter) Unit() string      { return p.unit }
func (p *Parameter) Docstring() string { return p.docstring }

// Path returns the absolute node path the parameter is bound to.
func (p *Parameter) Path() string { return p.info.Path }

func (p *Parameter) Node() toolkit.Node { return p.node }

func (p *Parameter) Info() types.NodeInfo { return p.info }

func (p *Parameter) Gettable() bool { return p.info.Readable() }

func (p *Parameter) Settable() bool { return p.info.Writable() }

// AddGetParser appends a parser applied to every value read.
func (p *Parameter) AddGetParser(fn GetParser) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parsers = append(p.parsers, fn)
}

// Get reads the node. Errors from the node are returned unchanged.
func (p *Parameter) Get(ctx context.Context) (any, error) {
	if !p.Gettable() {
		return nil, fmt.Errorf("%w: %s", types.ErrNotGettable, p.info.Path)
	}
	raw, err := p.node.Get(ctx)
	if err != nil {
		return nil, err
	}
	value := p.parse(fromRaw(p.info, raw))
	p.updateLatest(value, time.Now())
	return value, nil
}

// Set writes the node after converting the value to the node's type.
func (p *Parameter) Set(ctx context.Context, value any) error {
	if !p.Settable() {
		return fmt.Errorf("%w: %s", types.ErrNotSettable, p.info.Path)
	}
	if p.vals != nil {
		if err := p.vals.Validate(value); err != nil {
			return err
		}
	}
	raw, err := toRaw(p.info, value)
	if err != nil {
		return err
	}
	if err := p.node.Set(ctx, raw); err != nil {
		return err
	}
	p.updateLatest(fromRaw(p.info, raw), time.Now())
	return nil
}

// Cached returns the last value read or written.
func (p *Parameter) Cached() (any, time.Time, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.latestAt, p.hasLatest
}

func (p *Parameter) Subscribe() error { return p.node.Subscribe() }

func (p *Parameter) Unsubscribe() error { return p.node.Unsubscribe() }

func (p *Parameter) GetAsEvent() error { return p.node.GetAsEvent() }

// WaitForStateChange blocks until the node holds value (or, inverted,
// anything else) or the timeout elapses.
func (p *Parameter) WaitForStateChange(ctx context.Context, value any, opts toolkit.WaitOptions) error {
	return p.node.WaitForStateChange(ctx, value, opts)
}

// Snapshot returns the JSON compatible state of the parameter. With
// update set the value is read, through the snapshot cache when one is
// running.
func (p *Parameter) Snapshot(ctx context.Context, update bool) (map[string]any, error) {
	snap := map[string]any{
		"name":    p.name,
		"label":   p.label,
		"unit":    p.unit,
		"zi_node": p.info.Path,
	}
	if !p.snapshotValue {
		return snap, nil
	}
	if update && p.snapshotGet && p.Gettable() {
		var (
			value any
			err   error
		)
		if p.cache != nil {
			value, err = p.cache.Get(ctx, p, p.Get)
		} else {
			value, err = p.Get(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("snapshot of %s failed: %w", p.info.Path, err)
		}
		snap["value"] = snapshotValue(value)
		snap["ts"] = time.Now().Format(time.RFC3339Nano)
		return snap, nil
	}
	if value, ts, ok := p.Cached(); ok {
		snap["value"] = snapshotValue(value)
		snap["ts"] = ts.Format(time.RFC3339Nano)
	}
	return snap, nil
}

func (p *Parameter) parse(value any) any {
	p.mu.RLock()
	parsers := p.parsers
	p.mu.RUnlock()
	for _, fn := range parsers {
		value = fn(value)
	}
	return value
}

func (p *Parameter) updateLatest(value any, ts time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = value
	p.latestAt = ts
	p.hasLatest = true
}
