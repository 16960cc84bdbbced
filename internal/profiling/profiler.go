package profiling

import (
	"slices"
	"sync"
	"time"

	"mhtsim/domain/sim"
)

type phase struct {
	block int
	row   sim.TimingRow
}

// Recorder collects phase timings from concurrently running blocks. It
// implements ports.PhaseTimer.
type Recorder struct {
	mu     sync.Mutex
	phases []phase
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordPhase stores one measurement
func (r *Recorder) RecordPhase(block sim.Block, component sim.Component, method sim.Method, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, phase{
		block: block.Index,
		row:   sim.NewTimingRow(block, component, method, elapsed),
	})
}

// Rows returns the timing table sorted by block enumeration, then phase, then
// method order, independent of the order in which workers reported.
func (r *Recorder) Rows() []sim.TimingRow {
	r.mu.Lock()
	phases := slices.Clone(r.phases)
	r.mu.Unlock()

	slices.SortStableFunc(phases, func(a, b phase) int {
		if a.block != b.block {
			return a.block - b.block
		}
		if ca, cb := a.row.Component.Order(), b.row.Component.Order(); ca != cb {
			return ca - cb
		}
		return a.row.Method.Order() - b.row.Method.Order()
	})

	rows := make([]sim.TimingRow, len(phases))
	for i, p := range phases {
		rows[i] = p.row
	}
	return rows
}

// Len returns the number of recorded phases
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.phases)
}

// Reset discards all measurements
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = nil
}
