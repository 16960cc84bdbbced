package profiling

import (
	"slices"

	"github.com/montanaflynn/stats"

	"mhtsim/domain/sim"
)

// PhaseSummary describes the distribution of one phase's timings across blocks
type PhaseSummary struct {
	Component sim.Component `json:"component"`
	Method    sim.Method    `json:"method,omitempty"`
	Blocks    int           `json:"blocks"`
	Total     float64       `json:"total_sec"`
	Mean      float64       `json:"mean_sec"`
	Median    float64       `json:"median_sec"`
	StdDev    float64       `json:"sd_sec"`
	Min       float64       `json:"min_sec"`
	Max       float64       `json:"max_sec"`
}

type phaseKey struct {
	component sim.Component
	method    sim.Method
}

// SummarizePhases groups timing rows by (component, method) and summarizes
// each group. Groups are returned in phase order, then method order.
func SummarizePhases(rows []sim.TimingRow) ([]PhaseSummary, error) {
	groups := make(map[phaseKey][]float64)
	var keys []phaseKey
	for _, r := range rows {
		k := phaseKey{r.Component, r.Method}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r.Seconds)
	}

	slices.SortFunc(keys, func(a, b phaseKey) int {
		if a.component.Order() != b.component.Order() {
			return a.component.Order() - b.component.Order()
		}
		return a.method.Order() - b.method.Order()
	})

	out := make([]PhaseSummary, 0, len(keys))
	for _, k := range keys {
		s, err := summarizeDurations(groups[k])
		if err != nil {
			return nil, err
		}
		s.Component, s.Method = k.component, k.method
		out = append(out, s)
	}
	return out, nil
}

func summarizeDurations(data []float64) (PhaseSummary, error) {
	summary := PhaseSummary{Blocks: len(data)}

	total, err := stats.Sum(data)
	if err != nil {
		return summary, err
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return summary, err
	}
	median, err := stats.Median(data)
	if err != nil {
		return summary, err
	}
	stdDev, err := stats.StandardDeviationPopulation(data)
	if err != nil {
		return summary, err
	}
	min, err := stats.Min(data)
	if err != nil {
		return summary, err
	}
	max, err := stats.Max(data)
	if err != nil {
		return summary, err
	}

	summary.Total = total
	summary.Mean = mean
	summary.Median = median
	summary.StdDev = stdDev
	summary.Min = min
	summary.Max = max
	return summary, nil
}
