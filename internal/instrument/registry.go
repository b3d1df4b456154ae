package instrument

import (
	"fmt"
	"sort"
	"sync"

	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
)

// Registry tracks the live instruments of a session. Names are unique per
// kind. A registry is owned by exactly one session and cleared when the
// session closes.
type Registry struct {
	mu     sync.RWMutex
	byKind map[string]map[string]*Instrument
}

func NewRegistry() *Registry {
	return &Registry{
		byKind: make(map[string]map[string]*Instrument),
	}
}

// Register adds an instrument. It fails if a live instrument of the same
// kind already uses the name.
func (r *Registry) Register(inst *Instrument) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	named, ok := r.byKind[inst.Kind()]
	if !ok {
		named = make(map[string]*Instrument)
		r.byKind[inst.Kind()] = named
	}
	if _, exists := named[inst.Name()]; exists {
		return fmt.Errorf("%w: %s %s", types.ErrDuplicateName, inst.Kind(), inst.Name())
	}
	named[inst.Name()] = inst
	return nil
}

// Remove drops an instrument. Removing an unknown instrument is a no-op.
func (r *Registry) Remove(inst *Instrument) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if named, ok := r.byKind[inst.Kind()]; ok {
		if current, exists := named[inst.Name()]; exists && current == inst {
			delete(named, inst.Name())
		}
	}
}

// Get returns a live instrument by name, searching all kinds.
func (r *Registry) Get(name string) (*Instrument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, named := range r.byKind {
		if inst, ok := named[name]; ok {
			return inst, true
		}
	}
	return nil, false
}

// Count returns the number of live instruments of a kind.
func (r *Registry) Count(kind string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKind[kind])
}

// List returns all live instruments sorted by name.
func (r *Registry) List() []*Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Instrument, 0)
	for _, named := range r.byKind {
		for _, inst := range named {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Clear removes every instrument.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKind = make(map[string]map[string]*Instrument)
}
