package ports

import (
	"time"

	"mhtsim/domain/sim"
)

// PhaseTimer receives the elapsed time of each computational phase of a block.
// Implementations must be safe for concurrent use; they observe results but
// never change them.
type PhaseTimer interface {
	RecordPhase(block sim.Block, component sim.Component, method sim.Method, elapsed time.Duration)
}

// NoopTimer discards every measurement
type NoopTimer struct{}

func (NoopTimer) RecordPhase(sim.Block, sim.Component, sim.Method, time.Duration) {}
