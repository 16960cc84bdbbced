package metrics

import (
	"github.com/montanaflynn/stats"

	"mhtsim/domain/sim"
	"mhtsim/internal/errors"
)

// Summary is the batch-level reduction of per-replicate FDP and power
type Summary struct {
	MeanFDP   float64 `json:"mean_fdp"`
	MeanPower float64 `json:"mean_power"`
	SDFDP     float64 `json:"sd_fdp"`
	SDPower   float64 `json:"sd_power"`
}

// Outcome is FDP and power of one replicate
type Outcome struct {
	FDP   float64 `json:"fdp"`
	Power float64 `json:"power"`
}

// FDP returns V/R for one replicate, or 0 when nothing was rejected.
func FDP(rejections []bool, truth sim.TruthVector) float64 {
	r, v := 0, 0
	for j, rejected := range rejections {
		if !rejected {
			continue
		}
		r++
		if truth[j] {
			v++
		}
	}
	if r == 0 {
		return 0
	}
	return float64(v) / float64(r)
}

// Power returns TP/m1 for one replicate, or 0 when there are no false nulls.
func Power(rejections []bool, truth sim.TruthVector) float64 {
	m1 := truth.NonNulls()
	if m1 == 0 {
		return 0
	}
	tp := 0
	for j, rejected := range rejections {
		if rejected && !truth[j] {
			tp++
		}
	}
	return float64(tp) / float64(m1)
}

// PerReplicate reduces each row of a rejection batch to (FDP, power).
func PerReplicate(rejections *sim.RejectionBatch, truth sim.TruthVector) (fdp, power []float64, err error) {
	n, m := rejections.Dims()
	if m != len(truth) {
		return nil, nil, errors.InvalidConfiguration("rejection batch has %d hypotheses, truth vector has %d", m, len(truth))
	}

	m1 := truth.NonNulls()
	fdp = make([]float64, n)
	power = make([]float64, n)
	for i := 0; i < n; i++ {
		var r, v int
		for j, rejected := range rejections.Row(i) {
			if !rejected {
				continue
			}
			r++
			if truth[j] {
				v++
			}
		}
		if r > 0 {
			fdp[i] = float64(v) / float64(r)
		}
		if m1 > 0 {
			power[i] = float64(r-v) / float64(m1)
		}
	}
	return fdp, power, nil
}

// Reduce computes mean and population standard deviation of FDP and power
// across the replicates of a batch.
func Reduce(rejections *sim.RejectionBatch, truth sim.TruthVector) (Summary, error) {
	fdp, power, err := PerReplicate(rejections, truth)
	if err != nil {
		return Summary{}, err
	}
	return summarize(fdp, power)
}

// Summarize aggregates per-replicate outcomes from the scalar path
func Summarize(outcomes []Outcome) (Summary, error) {
	fdp := make([]float64, len(outcomes))
	power := make([]float64, len(outcomes))
	for i, o := range outcomes {
		fdp[i] = o.FDP
		power[i] = o.Power
	}
	return summarize(fdp, power)
}

func summarize(fdp, power []float64) (Summary, error) {
	if len(fdp) == 0 {
		return Summary{}, errors.InvalidConfiguration("cannot summarize zero replicates")
	}

	var s Summary
	var err error
	if s.MeanFDP, err = stats.Mean(fdp); err != nil {
		return Summary{}, errors.Wrap(err, "mean fdp")
	}
	if s.MeanPower, err = stats.Mean(power); err != nil {
		return Summary{}, errors.Wrap(err, "mean power")
	}
	if s.SDFDP, err = stats.StandardDeviationPopulation(fdp); err != nil {
		return Summary{}, errors.Wrap(err, "sd fdp")
	}
	if s.SDPower, err = stats.StandardDeviationPopulation(power); err != nil {
		return Summary{}, errors.Wrap(err, "sd power")
	}
	return s, nil
}

// Row turns a summary into an output row for (config, method)
func (s Summary) Row(config sim.Configuration, method sim.Method) sim.ResultRow {
	return sim.ResultRow{
		Pi0:       config.Pi0,
		M:         config.M,
		Method:    method,
		MeanFDP:   s.MeanFDP,
		MeanPower: s.MeanPower,
		SDFDP:     s.SDFDP,
		SDPower:   s.SDPower,
	}
}
