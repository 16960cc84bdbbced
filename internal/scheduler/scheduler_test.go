package scheduler

import (
	"context"
	"io"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mhtsim/domain/core"
	"mhtsim/domain/sim"
	"mhtsim/internal"
	"mhtsim/internal/correction"
	"mhtsim/internal/dgp"
	apperrors "mhtsim/internal/errors"
)

func quietLogger() *internal.Logger {
	return internal.NewLoggerTo(internal.LogLevelError, io.Discard)
}

func smallPlan(workers int) sim.Plan {
	return sim.Plan{
		Grid: sim.Grid{
			MValues:   []int{4, 8, 16},
			Pi0Values: []float64{0.75, 0.5, 0},
		},
		Replicates: 300,
		Alpha:      0.05,
		EffectSize: 5,
		Pattern:    sim.PatternEqual,
		Seed:       2024,
		Workers:    workers,
		Methods:    sim.AllMethods(),
	}
}

// panickyRNG behaves like the PCG streams except for one seed
type panickyRNG struct {
	dgp.PCGStreams
	badSeed int64
}

func (p panickyRNG) SeededStream(seed int64) *rand.Rand {
	if seed == p.badSeed {
		panic("stream exhausted")
	}
	return p.PCGStreams.SeededStream(seed)
}

type countingTimer struct {
	mu    sync.Mutex
	calls map[sim.Component]int
}

func (c *countingTimer) RecordPhase(_ sim.Block, component sim.Component, _ sim.Method, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[sim.Component]int{}
	}
	c.calls[component]++
}

func TestRunRowOrder(t *testing.T) {
	plan := smallPlan(1)
	rows, err := New(WithLogger(quietLogger())).Run(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, rows, 9*3)

	i := 0
	for _, pi0 := range plan.Grid.Pi0Values {
		for _, m := range plan.Grid.MValues {
			for _, method := range plan.Methods {
				assert.Equal(t, pi0, rows[i].Pi0, "row %d", i)
				assert.Equal(t, m, rows[i].M, "row %d", i)
				assert.Equal(t, method, rows[i].Method, "row %d", i)
				i++
			}
		}
	}
}

func TestRunIsIndependentOfWorkerCount(t *testing.T) {
	sequential, err := New(WithLogger(quietLogger())).Run(context.Background(), smallPlan(1))
	require.NoError(t, err)

	for _, workers := range []int{2, 4, 0} {
		parallel, err := New(WithLogger(quietLogger())).Run(context.Background(), smallPlan(workers))
		require.NoError(t, err)
		if diff := cmp.Diff(sequential, parallel); diff != "" {
			t.Errorf("workers=%d changed results (-seq +par):\n%s", workers, diff)
		}
	}
}

func TestRunReproducible(t *testing.T) {
	s := New(WithLogger(quietLogger()))
	a, err := s.Run(context.Background(), smallPlan(3))
	require.NoError(t, err)
	b, err := s.Run(context.Background(), smallPlan(3))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(a, b))

	other := smallPlan(3)
	other.Seed++
	c, err := s.Run(context.Background(), other)
	require.NoError(t, err)
	assert.NotEmpty(t, cmp.Diff(a, c))
}

func TestRunPowerOrdering(t *testing.T) {
	rows, err := New(WithLogger(quietLogger())).Run(context.Background(), smallPlan(2))
	require.NoError(t, err)

	byKey := map[sim.Configuration]map[sim.Method]sim.ResultRow{}
	for _, r := range rows {
		key := sim.Configuration{M: r.M, Pi0: r.Pi0}
		if byKey[key] == nil {
			byKey[key] = map[sim.Method]sim.ResultRow{}
		}
		byKey[key][r.Method] = r
	}

	// both step-up procedures reject a superset of Bonferroni in every replicate
	for key, methods := range byKey {
		bonf := methods[sim.MethodBonferroni].MeanPower
		assert.LessOrEqual(t, bonf, methods[sim.MethodHochberg].MeanPower, "%+v", key)
		assert.LessOrEqual(t, bonf, methods[sim.MethodBH].MeanPower, "%+v", key)
	}
}

func TestRunAggregatePowerNesting(t *testing.T) {
	if testing.Short() {
		t.Skip("full grid")
	}
	plan := sim.Plan{
		Grid:       sim.Grid{MValues: []int{4, 8, 16, 32, 64}, Pi0Values: []float64{0.75, 0.5, 0.25, 0}},
		Replicates: 5000,
		Alpha:      0.05,
		EffectSize: 8,
		Seed:       0,
		Workers:    4,
	}
	rows, err := New(WithLogger(quietLogger())).Run(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, rows, plan.Grid.Size()*3)

	// rows come in method order within each block
	for i := 0; i < len(rows); i += 3 {
		bonf, hoch, bh := rows[i], rows[i+1], rows[i+2]
		require.Equal(t, sim.MethodBonferroni, bonf.Method)
		require.Equal(t, sim.MethodHochberg, hoch.Method)
		require.Equal(t, sim.MethodBH, bh.Method)

		assert.LessOrEqual(t, bonf.MeanPower, hoch.MeanPower, "m=%d pi0=%v", bonf.M, bonf.Pi0)
		assert.LessOrEqual(t, hoch.MeanPower, bh.MeanPower+0.02, "m=%d pi0=%v", hoch.M, hoch.Pi0)
	}
}

func TestRunAllNullHasZeroPower(t *testing.T) {
	plan := smallPlan(2)
	plan.Grid.Pi0Values = []float64{1}

	rows, err := New(WithLogger(quietLogger())).Run(context.Background(), plan)
	require.NoError(t, err)
	for _, r := range rows {
		assert.Equal(t, 0.0, r.MeanPower)
		assert.Equal(t, 0.0, r.SDPower)
		assert.GreaterOrEqual(t, r.MeanFDP, 0.0)
		assert.LessOrEqual(t, r.MeanFDP, 1.0)
	}
}

func TestRunMethodSubset(t *testing.T) {
	plan := smallPlan(1)
	plan.Methods = []sim.Method{sim.MethodBH}

	rows, err := New(WithLogger(quietLogger())).Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Len(t, rows, plan.Grid.Size())
	for _, r := range rows {
		assert.Equal(t, sim.MethodBH, r.Method)
	}
}

func TestRunRejectsInvalidPlan(t *testing.T) {
	plan := smallPlan(1)
	plan.Alpha = 1.5
	_, err := New(WithLogger(quietLogger())).Run(context.Background(), plan)
	assert.True(t, core.IsInvalidConfiguration(err))
	assert.False(t, core.IsWorkerFailure(err))

	plan = smallPlan(1)
	plan.Pattern = "ramp"
	_, err = New(WithLogger(quietLogger())).Run(context.Background(), plan)
	assert.True(t, core.IsUnsupportedPattern(err))
}

func TestWorkerPanicBecomesWorkerFailure(t *testing.T) {
	for _, workers := range []int{1, 4} {
		plan := smallPlan(workers)
		rng := panickyRNG{badSeed: plan.Seed + 4}

		rows, err := New(WithRNG(rng), WithLogger(quietLogger())).Run(context.Background(), plan)
		require.Error(t, err, "workers=%d", workers)
		assert.Nil(t, rows)
		assert.True(t, core.IsWorkerFailure(err))
		assert.Equal(t, apperrors.CodeWorkerFailure, apperrors.GetCode(err))
		assert.Contains(t, err.Error(), "#4")
		assert.Contains(t, err.Error(), "stream exhausted")
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 3} {
		rows, err := New(WithLogger(quietLogger())).Run(ctx, smallPlan(workers))
		assert.Nil(t, rows)
		assert.ErrorIs(t, err, context.Canceled, "workers=%d", workers)
	}
}

func TestRunBlockTimesEveryPhase(t *testing.T) {
	timer := &countingTimer{}
	plan := smallPlan(2)

	_, err := New(WithTimer(timer), WithLogger(quietLogger())).Run(context.Background(), plan)
	require.NoError(t, err)

	blocks := plan.Grid.Size()
	assert.Equal(t, blocks, timer.calls[sim.ComponentDGP])
	assert.Equal(t, blocks*3, timer.calls[sim.ComponentMethod])
	assert.Equal(t, blocks*3, timer.calls[sim.ComponentMetrics])
}

func TestSharedIndexCache(t *testing.T) {
	cache := correction.NewIndexCache()
	_, err := New(WithIndexCache(cache), WithLogger(quietLogger())).Run(context.Background(), smallPlan(4))
	require.NoError(t, err)
	assert.Equal(t, 3, cache.Len())
}

func TestBlocksUseDerivedSeeds(t *testing.T) {
	blocks := New(WithLogger(quietLogger())).Blocks(smallPlan(1))
	require.Len(t, blocks, 9)
	for i, b := range blocks {
		assert.Equal(t, i, b.Index)
		assert.Equal(t, int64(2024+i), b.Seed)
	}
	assert.Equal(t, 0.75, blocks[0].Config.Pi0)
	assert.Equal(t, 4, blocks[0].Config.M)
	assert.Equal(t, 8, blocks[1].Config.M)
	assert.Equal(t, 0.5, blocks[3].Config.Pi0)
}

func TestEffectiveWorkers(t *testing.T) {
	assert.Equal(t, 1, EffectiveWorkers(1, 10))
	assert.Equal(t, 4, EffectiveWorkers(4, 10))
	assert.Equal(t, 3, EffectiveWorkers(8, 3))
	assert.Equal(t, 1, EffectiveWorkers(5, 0))
	assert.GreaterOrEqual(t, EffectiveWorkers(0, 1000), 1)
}

func TestGatherOrdersByIndex(t *testing.T) {
	row := func(m int) sim.ResultRow { return sim.ResultRow{M: m, Method: sim.MethodBH} }
	shuffled := []sim.BlockResult{
		{Block: sim.Block{Index: 2}, Rows: []sim.ResultRow{row(3)}},
		{Block: sim.Block{Index: 0}, Rows: []sim.ResultRow{row(1)}},
		{Block: sim.Block{Index: 1}, Rows: []sim.ResultRow{row(2)}},
	}
	got := Gather(shuffled)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].M, got[1].M, got[2].M})
}
