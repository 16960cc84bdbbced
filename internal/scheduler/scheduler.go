package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"mhtsim/domain/sim"
	"mhtsim/internal"
	"mhtsim/internal/correction"
	"mhtsim/internal/dgp"
	"mhtsim/internal/errors"
	"mhtsim/internal/metrics"
	"mhtsim/ports"
)

// Scheduler partitions a plan into one block per (π0, M) configuration, runs
// the blocks sequentially or on a worker pool and gathers the rows in
// enumeration order.
type Scheduler struct {
	rng       ports.RNGPort
	generator *dgp.Generator
	engine    *correction.Engine
	timer     ports.PhaseTimer
	logger    *internal.Logger
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithRNG replaces the PCG stream factory
func WithRNG(rng ports.RNGPort) Option {
	return func(s *Scheduler) { s.rng = rng }
}

// WithIndexCache shares a rank-index cache across schedulers
func WithIndexCache(cache *correction.IndexCache) Option {
	return func(s *Scheduler) { s.engine = correction.NewEngine(cache) }
}

// WithTimer installs a phase timer
func WithTimer(timer ports.PhaseTimer) Option {
	return func(s *Scheduler) { s.timer = timer }
}

// WithLogger sets the logger
func WithLogger(logger *internal.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// New creates a scheduler
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		rng:    dgp.NewPCGStreams(),
		timer:  ports.NoopTimer{},
		logger: internal.DefaultLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = correction.NewEngine(nil)
	}
	if s.timer == nil {
		s.timer = ports.NoopTimer{}
	}
	s.generator = dgp.NewGenerator(s.rng)
	s.logger = internal.OrDefault(s.logger).With("scheduler")
	return s
}

// Blocks enumerates the plan's units of work with their derived seeds
func (s *Scheduler) Blocks(plan sim.Plan) []sim.Block {
	return plan.Blocks(s.rng.BlockSeed)
}

// Run executes every block of plan and returns one row per (configuration,
// method), ordered by block enumeration and then by plan.Methods. Any block
// failure aborts the run; no partial table is returned.
func (s *Scheduler) Run(ctx context.Context, plan sim.Plan) ([]sim.ResultRow, error) {
	plan = plan.WithDefaults()
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	blocks := s.Blocks(plan)
	workers := EffectiveWorkers(plan.Workers, len(blocks))
	started := time.Now()
	s.logger.Info("running %d blocks on %d worker(s): %s", len(blocks), workers, plan)

	var (
		results []sim.BlockResult
		err     error
	)
	if workers <= 1 {
		results, err = s.runSequential(ctx, plan, blocks)
	} else {
		results, err = s.runParallel(ctx, plan, blocks, workers)
	}
	if err != nil {
		s.logger.Error("run aborted: %v", err)
		return nil, err
	}

	rows := Gather(results)
	s.logger.Info("completed %d blocks (%d rows) in %s", len(blocks), len(rows), time.Since(started).Round(time.Millisecond))
	return rows, nil
}

// EffectiveWorkers resolves the worker hint: 0 means one per CPU, and there
// are never more workers than blocks.
func EffectiveWorkers(hint, blocks int) int {
	workers := hint
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	if workers > blocks {
		workers = blocks
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

func (s *Scheduler) runSequential(ctx context.Context, plan sim.Plan, blocks []sim.Block) ([]sim.BlockResult, error) {
	results := make([]sim.BlockResult, len(blocks))
	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := s.runIsolated(ctx, plan, block)
		if err != nil {
			return nil, err
		}
		results[block.Index] = res
	}
	return results, nil
}

// runParallel feeds blocks through a task channel to a fixed pool of workers.
// Finished blocks come back as messages and are slotted by block index, so
// completion order never reaches the output.
func (s *Scheduler) runParallel(ctx context.Context, plan sim.Plan, blocks []sim.Block, workers int) ([]sim.BlockResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	tasks := make(chan sim.Block)
	outcomes := make(chan sim.BlockResult, len(blocks))

	g.Go(func() error {
		defer close(tasks)
		for _, block := range blocks {
			select {
			case tasks <- block:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for block := range tasks {
				if gctx.Err() != nil {
					return nil
				}
				res, err := s.runIsolated(gctx, plan, block)
				if err != nil {
					return err
				}
				outcomes <- res
			}
			return nil
		})
	}

	err := g.Wait()
	close(outcomes)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]sim.BlockResult, len(blocks))
	seen := make([]bool, len(blocks))
	for res := range outcomes {
		results[res.Block.Index] = res
		seen[res.Block.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, errors.WorkerFailure(blocks[i].String(), fmt.Errorf("no result gathered"))
		}
	}
	return results, nil
}

// runIsolated runs one block and converts any error or panic into a
// WorkerFailure naming the block.
func (s *Scheduler) runIsolated(ctx context.Context, plan sim.Plan, block sim.Block) (res sim.BlockResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WorkerFailure(block.String(), fmt.Errorf("panic: %v", r))
		}
	}()

	res, err = s.RunBlock(ctx, plan, block)
	if err != nil {
		return sim.BlockResult{}, errors.WorkerFailure(block.String(), err)
	}
	return res, nil
}

// RunBlock generates the block's whole replicate batch once, applies each
// method to it and reduces the decisions to one row per method.
func (s *Scheduler) RunBlock(ctx context.Context, plan sim.Plan, block sim.Block) (sim.BlockResult, error) {
	cfg := block.Config
	s.logger.Debug("block %s started", block)
	ranks := s.engine.Ranks(cfg.M)

	start := time.Now()
	batch, truth, err := s.generator.GenerateBatch(cfg.M, plan.Replicates, cfg.Pi0, cfg.EffectSize, plan.Pattern, block.Seed)
	if err != nil {
		return sim.BlockResult{}, err
	}
	s.timer.RecordPhase(block, sim.ComponentDGP, "", time.Since(start))

	rows := make([]sim.ResultRow, 0, len(plan.Methods))
	for _, method := range plan.Methods {
		if err := ctx.Err(); err != nil {
			return sim.BlockResult{}, err
		}

		start = time.Now()
		rejections, err := correction.Apply(method, batch, cfg.Alpha, ranks)
		if err != nil {
			return sim.BlockResult{}, err
		}
		s.timer.RecordPhase(block, sim.ComponentMethod, method, time.Since(start))

		start = time.Now()
		summary, err := metrics.Reduce(rejections, truth)
		if err != nil {
			return sim.BlockResult{}, err
		}
		s.timer.RecordPhase(block, sim.ComponentMetrics, method, time.Since(start))

		rows = append(rows, summary.Row(cfg, method))
	}

	s.logger.Debug("block %s finished", block)
	return sim.BlockResult{Block: block, Rows: rows}, nil
}

// Gather flattens block results by block index
func Gather(results []sim.BlockResult) []sim.ResultRow {
	ordered := make([]sim.BlockResult, len(results))
	copy(ordered, results)
	for _, r := range results {
		if r.Block.Index >= 0 && r.Block.Index < len(ordered) {
			ordered[r.Block.Index] = r
		}
	}

	var rows []sim.ResultRow
	for _, r := range ordered {
		rows = append(rows, r.Rows...)
	}
	return rows
}
