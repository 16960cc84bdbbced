package ports

import (
	"context"

	"mhtsim/domain/run"
	"mhtsim/domain/sim"
)

// ResultSink persists the tables of a finished run. timings may be empty
// when the run was not profiled.
type ResultSink interface {
	Name() string
	Write(ctx context.Context, manifest *run.Manifest, results []sim.ResultRow, timings []sim.TimingRow) error
}
