package correction

import (
	"slices"

	"mhtsim/domain/sim"
	"mhtsim/internal/errors"
)

// Engine applies correction procedures to whole replicate batches. The rank
// vector for each M comes from a shared IndexCache.
type Engine struct {
	cache *IndexCache
}

// NewEngine creates an engine over cache; nil creates a private cache.
func NewEngine(cache *IndexCache) *Engine {
	if cache == nil {
		cache = NewIndexCache()
	}
	return &Engine{cache: cache}
}

// Ranks returns the cached rank vector for m
func (e *Engine) Ranks(m int) []float64 {
	return e.cache.Ranks(m)
}

// Reject applies one procedure to a batch using the cached ranks for its M.
func (e *Engine) Reject(method sim.Method, batch *sim.ReplicateBatch, alpha float64) (*sim.RejectionBatch, error) {
	return Apply(method, batch, alpha, e.cache.Ranks(batch.Hypotheses()))
}

// ComputeRejections runs all three procedures on a batch
func ComputeRejections(batch *sim.ReplicateBatch, alpha float64, ranks []float64) (bonf, hoch, bh *sim.RejectionBatch, err error) {
	if bonf, err = Apply(sim.MethodBonferroni, batch, alpha, ranks); err != nil {
		return nil, nil, nil, err
	}
	if hoch, err = Apply(sim.MethodHochberg, batch, alpha, ranks); err != nil {
		return nil, nil, nil, err
	}
	if bh, err = Apply(sim.MethodBH, batch, alpha, ranks); err != nil {
		return nil, nil, nil, err
	}
	return bonf, hoch, bh, nil
}

// Apply runs method over every replicate row of batch. ranks must be the
// vector 1..M for the batch's M.
func Apply(method sim.Method, batch *sim.ReplicateBatch, alpha float64, ranks []float64) (*sim.RejectionBatch, error) {
	if err := sim.ValidateAlpha(alpha); err != nil {
		return nil, err
	}
	n, m := batch.Dims()
	if len(ranks) != m {
		return nil, errors.InvalidConfiguration("rank vector has length %d, batch has %d hypotheses", len(ranks), m)
	}

	switch method {
	case sim.MethodBonferroni:
		return bonferroniBatch(batch, n, m, alpha), nil
	case sim.MethodHochberg:
		return stepUpBatch(batch, n, m, hochbergThresholds(alpha, ranks), hochbergCutoff), nil
	case sim.MethodBH:
		return stepUpBatch(batch, n, m, bhThresholds(alpha, ranks), bhCutoff), nil
	default:
		return nil, errors.UnknownMethod(string(method))
	}
}

// bonferroniBatch rejects p <= α/M cell by cell; no ordering is needed.
func bonferroniBatch(batch *sim.ReplicateBatch, n, m int, alpha float64) *sim.RejectionBatch {
	out := sim.NewRejectionBatch(n, m)
	cutoff := alpha / float64(m)
	for i := 0; i < n; i++ {
		markAtOrBelow(out.Row(i), batch.Row(i), cutoff)
	}
	return out
}

// cutoffFunc searches one ascending-sorted row against per-rank thresholds and
// returns the rejection cutoff, or ok=false when nothing is rejected.
type cutoffFunc func(sorted, thresholds []float64) (cutoff float64, ok bool)

// stepUpBatch sorts each row independently into a reused scratch buffer,
// runs the per-row rank search and marks p <= cutoff.
func stepUpBatch(batch *sim.ReplicateBatch, n, m int, thresholds []float64, search cutoffFunc) *sim.RejectionBatch {
	out := sim.NewRejectionBatch(n, m)
	sorted := make([]float64, m)
	for i := 0; i < n; i++ {
		row := batch.Row(i)
		copy(sorted, row)
		slices.Sort(sorted)
		if cutoff, ok := search(sorted, thresholds); ok {
			markAtOrBelow(out.Row(i), row, cutoff)
		}
	}
	return out
}

// hochbergThresholds returns α/k for k = 1..M
func hochbergThresholds(alpha float64, ranks []float64) []float64 {
	thr := make([]float64, len(ranks))
	for k, r := range ranks {
		thr[k] = alpha / r
	}
	return thr
}

// hochbergCutoff scans k = M down to 1 and stops at the first k whose k-th
// smallest p-value is <= α/k; the cutoff is α/k itself.
func hochbergCutoff(sorted, thresholds []float64) (float64, bool) {
	for k := len(sorted) - 1; k >= 0; k-- {
		if sorted[k] <= thresholds[k] {
			return thresholds[k], true
		}
	}
	return 0, false
}

// bhThresholds returns (k/M)·α for k = 1..M
func bhThresholds(alpha float64, ranks []float64) []float64 {
	m := float64(len(ranks))
	thr := make([]float64, len(ranks))
	for k, r := range ranks {
		thr[k] = r / m * alpha
	}
	return thr
}

// bhCutoff finds the largest k with p_(k) <= (k/M)·α; the cutoff is p_(k).
func bhCutoff(sorted, thresholds []float64) (float64, bool) {
	for k := len(sorted) - 1; k >= 0; k-- {
		if sorted[k] <= thresholds[k] {
			return sorted[k], true
		}
	}
	return 0, false
}

func markAtOrBelow(dst []bool, pvals []float64, cutoff float64) {
	for j, p := range pvals {
		dst[j] = p <= cutoff
	}
}
