package baseline

import (
	"context"
	"time"

	"mhtsim/domain/sim"
	"mhtsim/internal"
	"mhtsim/internal/correction"
	"mhtsim/internal/dgp"
	"mhtsim/internal/metrics"
	"mhtsim/ports"
)

// Runner is the scalar reference path: one replicate at a time, one method at
// a time, no shared batch. The vectorised scheduler must agree with it
// statistically.
type Runner struct {
	rng       ports.RNGPort
	generator *dgp.Generator
	logger    *internal.Logger
}

// NewRunner creates a baseline runner; nil arguments select the defaults.
func NewRunner(rng ports.RNGPort, logger *internal.Logger) *Runner {
	if rng == nil {
		rng = dgp.NewPCGStreams()
	}
	return &Runner{
		rng:       rng,
		generator: dgp.NewGenerator(rng),
		logger:    internal.OrDefault(logger).With("baseline"),
	}
}

// Run walks the blocks sequentially. Each block's stream draws one sub-seed
// per replicate, so the baseline is reproducible but not bit-identical to the
// vectorised path.
func (r *Runner) Run(ctx context.Context, plan sim.Plan) ([]sim.ResultRow, error) {
	plan = plan.WithDefaults()
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	blocks := plan.Blocks(r.rng.BlockSeed)
	r.logger.Info("running %d blocks one replicate at a time", len(blocks))

	var rows []sim.ResultRow
	for _, block := range blocks {
		blockRows, err := r.RunBlock(ctx, plan, block)
		if err != nil {
			return nil, err
		}
		rows = append(rows, blockRows...)
	}

	r.logger.Info("baseline finished in %s", time.Since(started).Round(time.Millisecond))
	return rows, nil
}

// RunBlock simulates a single block
func (r *Runner) RunBlock(ctx context.Context, plan sim.Plan, block sim.Block) ([]sim.ResultRow, error) {
	cfg := block.Config
	stream := r.rng.SeededStream(block.Seed)
	outcomes := make(map[sim.Method][]metrics.Outcome, len(plan.Methods))

	for rep := 0; rep < plan.Replicates; rep++ {
		if rep%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		pvals, truth, err := r.generator.GenerateReplicate(cfg.M, cfg.Pi0, cfg.EffectSize, plan.Pattern, stream.Int64())
		if err != nil {
			return nil, err
		}
		for _, method := range plan.Methods {
			rejections, err := correction.ApplyScalar(method, pvals, cfg.Alpha)
			if err != nil {
				return nil, err
			}
			outcomes[method] = append(outcomes[method], metrics.Outcome{
				FDP:   metrics.FDP(rejections, truth),
				Power: metrics.Power(rejections, truth),
			})
		}
	}

	rows := make([]sim.ResultRow, 0, len(plan.Methods))
	for _, method := range plan.Methods {
		summary, err := metrics.Summarize(outcomes[method])
		if err != nil {
			return nil, err
		}
		rows = append(rows, summary.Row(cfg, method))
	}
	r.logger.Debug("block %s done", block)
	return rows, nil
}
