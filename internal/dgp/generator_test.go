package dgp

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"mhtsim/domain/core"
	"mhtsim/domain/sim"
)

func TestGenerateBatchShapes(t *testing.T) {
	gen := NewGenerator(nil)
	batch, truth, err := gen.GenerateBatch(16, 50, 0.5, 10, sim.PatternEqual, 123)
	require.NoError(t, err)

	n, m := batch.Dims()
	assert.Equal(t, 50, n)
	assert.Equal(t, 16, m)
	assert.Len(t, truth, 16)
	assert.Equal(t, 8, truth.Nulls())
}

func TestGenerateBatchTrueNullProportion(t *testing.T) {
	gen := NewGenerator(nil)
	_, truth, err := gen.GenerateBatch(32, 1, 0.75, 10, sim.PatternEqual, 1)
	require.NoError(t, err)
	assert.Equal(t, int(math.RoundToEven(0.75*32)), truth.Nulls())
}

func TestGenerateBatchPValueRange(t *testing.T) {
	gen := NewGenerator(nil)
	batch, _, err := gen.GenerateBatch(64, 200, 0.5, 10, sim.PatternEqual, 42)
	require.NoError(t, err)

	for i := 0; i < batch.Replicates(); i++ {
		for _, p := range batch.Row(i) {
			require.GreaterOrEqual(t, p, 0.0)
			require.LessOrEqual(t, p, 1.0)
		}
	}
}

func TestGenerateBatchSignalLowersPValues(t *testing.T) {
	gen := NewGenerator(nil)
	batch, truth, err := gen.GenerateBatch(32, 100, 0.5, 10, sim.PatternEqual, 42)
	require.NoError(t, err)

	var nullP, signalP []float64
	for i := 0; i < batch.Replicates(); i++ {
		for j, p := range batch.Row(i) {
			if truth[j] {
				nullP = append(nullP, p)
			} else {
				signalP = append(signalP, p)
			}
		}
	}
	assert.Less(t, median(signalP), median(nullP))
}

func TestGenerateBatchReproducible(t *testing.T) {
	gen := NewGenerator(nil)
	a, ta, err := gen.GenerateBatch(8, 20, 0.25, 5, sim.PatternEqual, 99)
	require.NoError(t, err)
	b, tb, err := gen.GenerateBatch(8, 20, 0.25, 5, sim.PatternEqual, 99)
	require.NoError(t, err)
	c, _, err := gen.GenerateBatch(8, 20, 0.25, 5, sim.PatternEqual, 100)
	require.NoError(t, err)

	assert.True(t, mat.Equal(a.Matrix(), b.Matrix()))
	assert.Equal(t, ta, tb)
	assert.False(t, mat.Equal(a.Matrix(), c.Matrix()))
}

func TestGenerateBatchErrors(t *testing.T) {
	gen := NewGenerator(nil)

	_, _, err := gen.GenerateBatch(16, 10, 0.5, 10, sim.Pattern("weird"), 0)
	assert.True(t, core.IsUnsupportedPattern(err))

	_, _, err = gen.GenerateBatch(0, 10, 0.5, 10, sim.PatternEqual, 0)
	assert.True(t, core.IsInvalidConfiguration(err))

	_, _, err = gen.GenerateBatch(16, 0, 0.5, 10, sim.PatternEqual, 0)
	assert.True(t, core.IsInvalidConfiguration(err))

	_, _, err = gen.GenerateBatch(16, 10, 1.5, 10, sim.PatternEqual, 0)
	assert.True(t, core.IsInvalidConfiguration(err))
}

func TestPatternIgnoredWhenAllNull(t *testing.T) {
	mu, err := MeanVector(8, 1.0, 10, sim.Pattern("weird"))
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 8), mu)
}

func TestMeanVectorGroups(t *testing.T) {
	// m=16, pi0=0.25 -> m0=4, m1=12 -> groups of 3
	mu, err := MeanVector(16, 0.25, 8, sim.PatternEqual)
	require.NoError(t, err)
	want := []float64{
		0, 0, 0, 0,
		8, 8, 8,
		6, 6, 6,
		4, 4, 4,
		2, 2, 2,
	}
	assert.Equal(t, want, mu)
}

func TestGroupSizesRemainderGoesFirst(t *testing.T) {
	assert.Equal(t, [4]int{2, 2, 1, 1}, GroupSizes(6))
	assert.Equal(t, [4]int{1, 0, 0, 0}, GroupSizes(1))
	assert.Equal(t, [4]int{0, 0, 0, 0}, GroupSizes(0))
	assert.Equal(t, [4]int{4, 4, 4, 4}, GroupSizes(16))
}

func TestPValue(t *testing.T) {
	assert.Equal(t, 1.0, PValue(0))
	assert.InDelta(t, 0.05, PValue(1.959963984540054), 1e-9)
	assert.InDelta(t, PValue(2.5), PValue(-2.5), 1e-15)
}

func TestGenerateReplicateMatchesModel(t *testing.T) {
	gen := NewGenerator(nil)
	p, truth, err := gen.GenerateReplicate(16, 0.5, 10, sim.PatternEqual, 7)
	require.NoError(t, err)
	assert.Len(t, p, 16)
	assert.Equal(t, 8, truth.Nulls())

	again, _, err := gen.GenerateReplicate(16, 0.5, 10, sim.PatternEqual, 7)
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestBlockSeedsStrictlyIncrease(t *testing.T) {
	streams := NewPCGStreams()
	seen := map[int64]bool{}
	prev := int64(math.MinInt64)
	for i := 0; i < 100; i++ {
		s := streams.BlockSeed(10, i)
		assert.Greater(t, s, prev)
		assert.False(t, seen[s])
		seen[s] = true
		prev = s
	}
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}
