package ports

import (
	"context"

	"mhtsim/domain/sim"
)

// SimulationRunner executes a whole plan and returns the ordered result table.
// The block scheduler and the scalar baseline both satisfy it.
type SimulationRunner interface {
	Run(ctx context.Context, plan sim.Plan) ([]sim.ResultRow, error)
}
