package profiling

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"mhtsim/domain/sim"
	"mhtsim/internal/correction"
	"mhtsim/internal/dgp"
	"mhtsim/internal/errors"
	"mhtsim/ports"
)

// ScalingPoint compares both execution paths at one replicate count
type ScalingPoint struct {
	Replicates        int     `json:"replicates"`
	BaselineSeconds   float64 `json:"baseline_sec"`
	VectorisedSeconds float64 `json:"vectorised_sec"`
}

// Speedup is baseline time over vectorised time
func (p ScalingPoint) Speedup() float64 {
	if p.VectorisedSeconds == 0 {
		return math.Inf(1)
	}
	return p.BaselineSeconds / p.VectorisedSeconds
}

// ScalingStudy runs base once per replicate count on each runner and records
// wall-clock time. Point i uses seed base.Seed+i on both paths.
func ScalingStudy(ctx context.Context, baseline, vectorised ports.SimulationRunner, base sim.Plan, replicateCounts []int) ([]ScalingPoint, error) {
	if len(replicateCounts) == 0 {
		return nil, errors.InvalidConfiguration("scaling study needs at least one replicate count")
	}
	if base.Seed > math.MaxInt64-int64(len(replicateCounts)-1) {
		return nil, errors.InvalidConfiguration("seed %d overflows across %d scaling points", base.Seed, len(replicateCounts))
	}

	points := make([]ScalingPoint, 0, len(replicateCounts))
	for i, n := range replicateCounts {
		plan := base.Clone()
		plan.Replicates = n
		plan.Seed = base.Seed + int64(i)

		baseSec, err := timeRun(ctx, baseline, plan)
		if err != nil {
			return nil, errors.Wrapf(err, "baseline at n=%d", n)
		}
		vecSec, err := timeRun(ctx, vectorised, plan)
		if err != nil {
			return nil, errors.Wrapf(err, "vectorised at n=%d", n)
		}
		points = append(points, ScalingPoint{Replicates: n, BaselineSeconds: baseSec, VectorisedSeconds: vecSec})
	}
	return points, nil
}

func timeRun(ctx context.Context, runner ports.SimulationRunner, plan sim.Plan) (float64, error) {
	start := time.Now()
	if _, err := runner.Run(ctx, plan); err != nil {
		return 0, err
	}
	return time.Since(start).Seconds(), nil
}

// MethodTiming is the average per-replicate cost of one method at one M
type MethodTiming struct {
	M            int        `json:"m"`
	Method       sim.Method `json:"method"`
	PerReplicate float64    `json:"per_replicate_sec"`
}

// MethodScaling times each of plan.Methods on a fresh batch for every M in
// ms, holding π0 fixed. plan.Replicates rows are generated per M.
func MethodScaling(ctx context.Context, generator *dgp.Generator, engine *correction.Engine, plan sim.Plan, ms []int, pi0 float64) ([]MethodTiming, error) {
	plan = plan.WithDefaults()
	if plan.Replicates <= 0 {
		return nil, errors.InvalidConfiguration("replicate count must be positive, got %d", plan.Replicates)
	}

	var out []MethodTiming
	for i, m := range ms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, _, err := generator.GenerateBatch(m, plan.Replicates, pi0, plan.EffectSize, plan.Pattern, plan.Seed+int64(i))
		if err != nil {
			return nil, err
		}
		for _, method := range plan.Methods {
			start := time.Now()
			if _, err := engine.Reject(method, batch, plan.Alpha); err != nil {
				return nil, err
			}
			elapsed := time.Since(start).Seconds()
			out = append(out, MethodTiming{M: m, Method: method, PerReplicate: elapsed / float64(plan.Replicates)})
		}
	}
	return out, nil
}

// Slopes fits ComplexitySlope per method over the output of MethodScaling.
func Slopes(timings []MethodTiming) (map[sim.Method]float64, error) {
	xs := map[sim.Method][]float64{}
	ys := map[sim.Method][]float64{}
	for _, t := range timings {
		xs[t.Method] = append(xs[t.Method], float64(t.M))
		ys[t.Method] = append(ys[t.Method], t.PerReplicate)
	}

	slopes := make(map[sim.Method]float64, len(xs))
	for method := range xs {
		slope, err := ComplexitySlope(xs[method], ys[method])
		if err != nil {
			return nil, errors.Wrapf(err, "method %s", method)
		}
		slopes[method] = slope
	}
	return slopes, nil
}

// ComplexitySlope fits log(y) = a + b·log(x) by least squares and returns b.
// Non-positive points are skipped; at least two distinct x values must remain.
func ComplexitySlope(xs, ys []float64) (float64, error) {
	if len(xs) != len(ys) {
		return 0, errors.InvalidConfiguration("slope needs paired samples, got %d x and %d y", len(xs), len(ys))
	}

	var logX, logY []float64
	for i := range xs {
		if xs[i] <= 0 || ys[i] <= 0 {
			continue
		}
		logX = append(logX, math.Log(xs[i]))
		logY = append(logY, math.Log(ys[i]))
	}
	if len(logX) < 2 || stat.Variance(logX, nil) == 0 {
		return 0, errors.InvalidConfiguration("slope needs at least two distinct positive x values")
	}

	_, beta := stat.LinearRegression(logX, logY, nil, false)
	return beta, nil
}
