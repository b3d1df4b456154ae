package types

import "sort"

// Wave holds the data of one waveform memory slot.
type Wave struct {
	Wave1   []float64 `json:"wave1"`
	Wave2   []float64 `json:"wave2,omitempty"`
	Markers []uint16  `json:"markers,omitempty"`
}

// Waveforms is a mapping of waveform memory index to waveform data.
// Iteration through Indexes is ordered by index.
type Waveforms struct {
	slots map[int]Wave
}

func NewWaveforms() *Waveforms {
	return &Waveforms{slots: make(map[int]Wave)}
}

// Assign stores a waveform at the given index, replacing any previous one.
func (w *Waveforms) Assign(index int, wave Wave) {
	if w.slots == nil {
		w.slots = make(map[int]Wave)
	}
	w.slots[index] = wave
}

func (w *Waveforms) Get(index int) (Wave, bool) {
	wave, ok := w.slots[index]
	return wave, ok
}

func (w *Waveforms) Delete(index int) {
	delete(w.slots, index)
}

func (w *Waveforms) Len() int {
	return len(w.slots)
}

// Indexes returns the assigned indexes in ascending order.
func (w *Waveforms) Indexes() []int {
	keys := make([]int, 0, len(w.slots))
	for k := range w.slots {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
