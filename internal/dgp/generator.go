package dgp

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"mhtsim/domain/sim"
	"mhtsim/internal/errors"
	"mhtsim/ports"
)

// effectLevels are the group means of the "equal" pattern as fractions of L
var effectLevels = [4]float64{1, 0.75, 0.5, 0.25}

// Generator produces replicate batches of two-sided p-values under the
// normal-means model: z ~ N(μ_j, 1), p = 2·(1 − Φ(|z|)).
type Generator struct {
	rng ports.RNGPort
}

// NewGenerator creates a generator; a nil port selects PCG streams.
func NewGenerator(rng ports.RNGPort) *Generator {
	if rng == nil {
		rng = NewPCGStreams()
	}
	return &Generator{rng: rng}
}

// GenerateBatch draws an n×m batch of p-values for one configuration. Every
// row shares the truth vector; only the latent statistics are redrawn. The
// same (m, n, pi0, effect, pattern, seed) always yields the same batch.
func (g *Generator) GenerateBatch(m, n int, pi0, effect float64, pattern sim.Pattern, seed int64) (*sim.ReplicateBatch, sim.TruthVector, error) {
	if n <= 0 {
		return nil, nil, errors.InvalidConfiguration("replicate count must be positive, got %d", n)
	}
	mu, err := MeanVector(m, pi0, effect, pattern)
	if err != nil {
		return nil, nil, err
	}

	rng := g.rng.SeededStream(seed)
	data := make([]float64, n*m)
	for i := 0; i < n; i++ {
		row := data[i*m : (i+1)*m]
		for j := range row {
			row[j] = PValue(mu[j] + rng.NormFloat64())
		}
	}

	return sim.NewReplicateBatch(mat.NewDense(n, m, data)), sim.NewTruthVector(m, pi0), nil
}

// GenerateReplicate draws a single replicate row. It is the scalar
// counterpart of GenerateBatch used by the baseline runner.
func (g *Generator) GenerateReplicate(m int, pi0, effect float64, pattern sim.Pattern, seed int64) ([]float64, sim.TruthVector, error) {
	mu, err := MeanVector(m, pi0, effect, pattern)
	if err != nil {
		return nil, nil, err
	}

	src := g.rng.Source(seed)
	pvals := make([]float64, m)
	for j := range pvals {
		z := distuv.Normal{Mu: mu[j], Sigma: 1, Src: src}.Rand()
		pvals[j] = PValue(z)
	}
	return pvals, sim.NewTruthVector(m, pi0), nil
}

// MeanVector returns μ: zero for the first round(π0·m) hypotheses, then the
// false nulls split into four groups with means L, 3L/4, L/2, L/4. Group sizes
// differ by at most one, the extra members going to the leading groups.
func MeanVector(m int, pi0, effect float64, pattern sim.Pattern) ([]float64, error) {
	if m <= 0 {
		return nil, errors.InvalidConfiguration("m must be positive, got %d", m)
	}
	if err := sim.ValidatePi0(pi0); err != nil {
		return nil, err
	}
	if math.IsNaN(effect) || math.IsInf(effect, 0) {
		return nil, errors.InvalidConfiguration("effect size must be finite, got %v", effect)
	}

	m0 := sim.NullCount(m, pi0)
	m1 := m - m0
	mu := make([]float64, m)
	if m1 == 0 {
		return mu, nil
	}
	if pattern != sim.PatternEqual {
		return nil, errors.UnsupportedPattern(string(pattern))
	}

	j := m0
	for g, size := range GroupSizes(m1) {
		for k := 0; k < size; k++ {
			mu[j] = effectLevels[g] * effect
			j++
		}
	}
	return mu, nil
}

// GroupSizes splits m1 false nulls into four groups, distributing the
// remainder to the first groups.
func GroupSizes(m1 int) [4]int {
	var sizes [4]int
	for g := range sizes {
		sizes[g] = m1 / 4
		if g < m1%4 {
			sizes[g]++
		}
	}
	return sizes
}

// PValue maps a z statistic to its two-sided p-value.
func PValue(z float64) float64 {
	p := 2 * distuv.UnitNormal.Survival(math.Abs(z))
	if p > 1 {
		return 1
	}
	return p
}
