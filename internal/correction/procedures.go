package correction

import (
	"sort"

	"mhtsim/domain/sim"
	"mhtsim/internal/errors"
)

// Single-replicate procedures. These are the reference loops the batch engine
// is checked against, and the kernels of the baseline runner.

// Bonferroni rejects p_i <= α/m
func Bonferroni(pvals []float64, alpha float64) []bool {
	reject := make([]bool, len(pvals))
	cutoff := alpha / float64(len(pvals))
	for i, p := range pvals {
		reject[i] = p <= cutoff
	}
	return reject
}

// Hochberg step-up controlling FWER. With p-values sorted in descending
// order, k runs from m down to 1; the first k whose k-th smallest p-value is
// <= α/k rejects every p_i <= α/k.
func Hochberg(pvals []float64, alpha float64) []bool {
	m := len(pvals)
	desc := append([]float64(nil), pvals...)
	sort.Sort(sort.Reverse(sort.Float64Slice(desc)))

	reject := make([]bool, m)
	for k := m; k >= 1; k-- {
		threshold := alpha / float64(k)
		if desc[m-k] <= threshold {
			for i, p := range pvals {
				reject[i] = p <= threshold
			}
			break
		}
	}
	return reject
}

// BenjaminiHochberg step-up controlling FDR: find the largest k with
// p_(k) <= (k/m)·α and reject every p_i <= p_(k).
func BenjaminiHochberg(pvals []float64, alpha float64) []bool {
	m := len(pvals)
	asc := append([]float64(nil), pvals...)
	sort.Float64s(asc)

	largest := -1
	for k := 0; k < m; k++ {
		if asc[k] <= float64(k+1)/float64(m)*alpha {
			largest = k
		}
	}

	reject := make([]bool, m)
	if largest < 0 {
		return reject
	}
	cutoff := asc[largest]
	for i, p := range pvals {
		reject[i] = p <= cutoff
	}
	return reject
}

// ApplyMethod dispatches by name: "bonferroni", "hochberg", "bh" or
// "benjamini-hochberg".
func ApplyMethod(pvals []float64, alpha float64, name string) ([]bool, error) {
	method, err := sim.ParseMethod(name)
	if err != nil {
		return nil, err
	}
	return ApplyScalar(method, pvals, alpha)
}

// ApplyScalar runs a parsed method on one replicate
func ApplyScalar(method sim.Method, pvals []float64, alpha float64) ([]bool, error) {
	switch method {
	case sim.MethodBonferroni:
		return Bonferroni(pvals, alpha), nil
	case sim.MethodHochberg:
		return Hochberg(pvals, alpha), nil
	case sim.MethodBH:
		return BenjaminiHochberg(pvals, alpha), nil
	default:
		return nil, errors.UnknownMethod(string(method))
	}
}
