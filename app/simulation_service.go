package app

import (
	"context"
	stderrors "errors"
	"time"

	"mhtsim/domain/run"
	"mhtsim/domain/sim"
	"mhtsim/internal"
	"mhtsim/internal/baseline"
	"mhtsim/internal/correction"
	"mhtsim/internal/dgp"
	"mhtsim/internal/errors"
	"mhtsim/internal/profiling"
	"mhtsim/internal/scheduler"
	"mhtsim/ports"
)

// CodeVersion is recorded in every run fingerprint
const CodeVersion = "0.3.0"

// SimulationService runs plans on either execution path and hands the
// tables to the configured sinks
type SimulationService struct {
	rngPort ports.RNGPort
	cache   *correction.IndexCache
	sinks   []ports.ResultSink
	logger  *internal.Logger
}

// RunRequest defines the inputs of one simulation run
type RunRequest struct {
	Plan    sim.Plan
	Mode    run.Mode // defaults to vectorised
	Profile bool     // record per-phase timings
}

// RunResult contains the complete output of a run
type RunResult struct {
	Manifest  *run.Manifest
	Results   []sim.ResultRow
	Timings   []sim.TimingRow
	RuntimeMs int64
}

// NewSimulationService creates a simulation service. The rank-index cache is
// shared by every run of the service.
func NewSimulationService(rngPort ports.RNGPort, sinks []ports.ResultSink, logger *internal.Logger) *SimulationService {
	if rngPort == nil {
		rngPort = dgp.NewPCGStreams()
	}
	return &SimulationService{
		rngPort: rngPort,
		cache:   correction.NewIndexCache(),
		sinks:   sinks,
		logger:  internal.OrDefault(logger).With("service"),
	}
}

// Run executes the plan and writes the tables to every sink. A sink failure
// does not discard the computed tables: the result is returned together with
// the joined sink errors.
func (s *SimulationService) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	startTime := time.Now()

	mode := req.Mode
	if mode == "" {
		mode = run.ModeVectorised
	}
	plan := req.Plan.WithDefaults()
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	manifest := run.NewManifest(plan, mode, CodeVersion)
	recorder := profiling.NewRecorder()

	var runner ports.SimulationRunner
	switch mode {
	case run.ModeVectorised:
		opts := []scheduler.Option{
			scheduler.WithRNG(s.rngPort),
			scheduler.WithIndexCache(s.cache),
			scheduler.WithLogger(s.logger),
		}
		if req.Profile {
			opts = append(opts, scheduler.WithTimer(recorder))
		}
		runner = scheduler.New(opts...)
	case run.ModeBaseline:
		runner = baseline.NewRunner(s.rngPort, s.logger)
	default:
		return nil, errors.InvalidConfiguration("unknown run mode %q", mode)
	}

	s.logger.Info("run %s started (%s, fingerprint %s)", manifest.RunID, mode, manifest.Fingerprint.Fingerprint.Short())
	rows, err := runner.Run(ctx, plan)
	if err != nil {
		return nil, errors.Wrapf(err, "run %s failed", manifest.RunID)
	}
	manifest.Finish(len(rows))

	result := &RunResult{
		Manifest:  manifest,
		Results:   rows,
		Timings:   recorder.Rows(),
		RuntimeMs: time.Since(startTime).Milliseconds(),
	}
	return result, s.publish(ctx, result)
}

func (s *SimulationService) publish(ctx context.Context, result *RunResult) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Write(ctx, result.Manifest, result.Results, result.Timings); err != nil {
			s.logger.Error("sink %s failed: %v", sink.Name(), err)
			errs = append(errs, errors.Wrapf(err, "sink %s", sink.Name()))
		}
	}
	return stderrors.Join(errs...)
}

// ProfileRequest defines a profiling session
type ProfileRequest struct {
	Plan            sim.Plan // α, L, pattern, methods and seed
	ReplicateCounts []int    // scaling study points
	ScalingM        int      // M of the scaling study
	MValues         []int    // method complexity points
	Pi0             float64  // π0 held fixed in both studies
}

// ProfileReport collects the output of both profiling studies
type ProfileReport struct {
	Scaling []profiling.ScalingPoint `json:"scaling"`
	Methods []profiling.MethodTiming `json:"methods"`
	Slopes  map[sim.Method]float64   `json:"slopes"`
}

// Profile compares the baseline and vectorised paths over increasing replicate
// counts and estimates each method's empirical complexity in M.
func (s *SimulationService) Profile(ctx context.Context, req ProfileRequest) (*ProfileReport, error) {
	report := &ProfileReport{}

	if len(req.ReplicateCounts) > 0 {
		plan := req.Plan.Clone()
		plan.Grid = sim.Grid{MValues: []int{req.ScalingM}, Pi0Values: []float64{req.Pi0}}
		plan.Workers = 1

		points, err := profiling.ScalingStudy(ctx,
			baseline.NewRunner(s.rngPort, s.logger),
			scheduler.New(scheduler.WithRNG(s.rngPort), scheduler.WithIndexCache(s.cache), scheduler.WithLogger(s.logger)),
			plan, req.ReplicateCounts)
		if err != nil {
			return nil, err
		}
		report.Scaling = points
		for _, p := range points {
			s.logger.Info("n=%d baseline=%.4fs vectorised=%.4fs speedup=%.1fx", p.Replicates, p.BaselineSeconds, p.VectorisedSeconds, p.Speedup())
		}
	}

	if len(req.MValues) > 0 {
		timings, err := profiling.MethodScaling(ctx, dgp.NewGenerator(s.rngPort), correction.NewEngine(s.cache), req.Plan, req.MValues, req.Pi0)
		if err != nil {
			return nil, err
		}
		report.Methods = timings
		if len(req.MValues) >= 2 {
			slopes, err := profiling.Slopes(timings)
			if err != nil {
				return nil, err
			}
			report.Slopes = slopes
		}
	}
	return report, nil
}
