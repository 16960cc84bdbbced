package baseline

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mhtsim/domain/core"
	"mhtsim/domain/sim"
	"mhtsim/internal"
	"mhtsim/internal/scheduler"
)

func quiet() *internal.Logger {
	return internal.NewLoggerTo(internal.LogLevelError, io.Discard)
}

func regressionPlan() sim.Plan {
	return sim.Plan{
		Grid:       sim.Grid{MValues: []int{8, 16}, Pi0Values: []float64{0.75, 0.5}},
		Replicates: 20000,
		Alpha:      0.05,
		EffectSize: 8,
		Pattern:    sim.PatternEqual,
		Seed:       7,
		Workers:    2,
	}
}

func TestBaselineAgreesWithScheduler(t *testing.T) {
	plan := regressionPlan()

	scalar, err := NewRunner(nil, quiet()).Run(context.Background(), plan)
	require.NoError(t, err)
	vectorised, err := scheduler.New(scheduler.WithLogger(quiet())).Run(context.Background(), plan)
	require.NoError(t, err)

	require.Len(t, scalar, len(vectorised))
	for i := range scalar {
		s, v := scalar[i], vectorised[i]
		require.Equal(t, s.M, v.M)
		require.Equal(t, s.Pi0, v.Pi0)
		require.Equal(t, s.Method, v.Method)
		assert.InDelta(t, s.MeanPower, v.MeanPower, 0.02, "power %s m=%d pi0=%v", s.Method, s.M, s.Pi0)
		assert.InDelta(t, s.MeanFDP, v.MeanFDP, 0.02, "fdp %s m=%d pi0=%v", s.Method, s.M, s.Pi0)
	}
}

func TestBaselineReproducible(t *testing.T) {
	plan := regressionPlan()
	plan.Replicates = 500

	a, err := NewRunner(nil, quiet()).Run(context.Background(), plan)
	require.NoError(t, err)
	b, err := NewRunner(nil, quiet()).Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBaselineRowShape(t *testing.T) {
	plan := regressionPlan()
	plan.Replicates = 100
	plan.Methods = []sim.Method{sim.MethodHochberg, sim.MethodBonferroni}

	rows, err := NewRunner(nil, quiet()).Run(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, rows, plan.Grid.Size()*2)
	assert.Equal(t, sim.MethodHochberg, rows[0].Method)
	assert.Equal(t, sim.MethodBonferroni, rows[1].Method)
	assert.Equal(t, 0.75, rows[0].Pi0)
	assert.Equal(t, 8, rows[0].M)
}

func TestBaselineValidatesPlan(t *testing.T) {
	plan := regressionPlan()
	plan.Replicates = 0
	_, err := NewRunner(nil, quiet()).Run(context.Background(), plan)
	assert.True(t, core.IsInvalidConfiguration(err))
}

func TestBaselineCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(nil, quiet()).Run(ctx, regressionPlan())
	assert.ErrorIs(t, err, context.Canceled)
}
