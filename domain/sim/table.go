package sim

import (
	"strconv"
	"strings"

	"mhtsim/internal/errors"
)

// Column layouts shared by every tabular sink
var (
	ResultColumns = []string{"pi0", "m", "method", "mean_fdp", "mean_power", "sd_fdp", "sd_power"}
	TimingColumns = []string{"pi0", "m", "component", "method", "time_sec"}
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Record renders the row in ResultColumns order
func (r ResultRow) Record() []string {
	return []string{
		formatFloat(r.Pi0),
		strconv.Itoa(r.M),
		string(r.Method),
		formatFloat(r.MeanFDP),
		formatFloat(r.MeanPower),
		formatFloat(r.SDFDP),
		formatFloat(r.SDPower),
	}
}

// Record renders the row in TimingColumns order; the dgp phase has an empty
// method cell.
func (t TimingRow) Record() []string {
	return []string{
		formatFloat(t.Pi0),
		strconv.Itoa(t.M),
		string(t.Component),
		string(t.Method),
		formatFloat(t.Seconds),
	}
}

// ParseResultRecord reads a row keyed by column name. Missing sd columns are
// left at zero.
func ParseResultRecord(fields map[string]string) (ResultRow, error) {
	var row ResultRow
	var err error

	get := func(key string) string { return strings.TrimSpace(fields[key]) }
	float := func(key string, required bool) float64 {
		if err != nil {
			return 0
		}
		s := get(key)
		if s == "" {
			if required {
				err = errors.InvalidConfiguration("result record is missing %s", key)
			}
			return 0
		}
		v, perr := strconv.ParseFloat(s, 64)
		if perr != nil {
			err = errors.InvalidConfiguration("result record has non-numeric %s %q", key, s)
		}
		return v
	}

	row.Pi0 = float("pi0", true)
	m := float("m", true)
	row.M = int(m)
	row.MeanFDP = float("mean_fdp", true)
	row.MeanPower = float("mean_power", true)
	row.SDFDP = float("sd_fdp", false)
	row.SDPower = float("sd_power", false)
	if err != nil {
		return ResultRow{}, err
	}

	method, perr := ParseMethod(get("method"))
	if perr != nil {
		return ResultRow{}, perr
	}
	row.Method = method
	return row, nil
}
