package sim

import (
	"fmt"
	"time"
)

// Block is one independent unit of simulation work: a configuration, its
// position in the enumeration and the seed derived from that position.
type Block struct {
	Index  int           `json:"index"`
	Config Configuration `json:"config"`
	Seed   int64         `json:"seed"`
}

func (b Block) String() string {
	return fmt.Sprintf("#%d (%s, seed=%d)", b.Index, b.Config, b.Seed)
}

// ResultRow is the aggregated outcome of one (configuration, method) pair
type ResultRow struct {
	Pi0       float64 `json:"pi0" db:"pi0"`
	M         int     `json:"m" db:"m"`
	Method    Method  `json:"method" db:"method"`
	MeanFDP   float64 `json:"mean_fdp" db:"mean_fdp"`
	MeanPower float64 `json:"mean_power" db:"mean_power"`
	SDFDP     float64 `json:"sd_fdp" db:"sd_fdp"`
	SDPower   float64 `json:"sd_power" db:"sd_power"`
}

// BlockResult carries all rows produced by one block
type BlockResult struct {
	Block Block
	Rows  []ResultRow
}

// Component names a computational phase of a block
type Component string

const (
	ComponentDGP     Component = "dgp"
	ComponentMethod  Component = "method"
	ComponentMetrics Component = "metrics"
)

// Order returns the phase's position within a block
func (c Component) Order() int {
	switch c {
	case ComponentDGP:
		return 0
	case ComponentMethod:
		return 1
	case ComponentMetrics:
		return 2
	default:
		return 3
	}
}

// TimingRow records elapsed time of one phase of one block. Method is empty
// for the dgp component and names the procedure for method and metrics rows.
type TimingRow struct {
	Pi0       float64   `json:"pi0" db:"pi0"`
	M         int       `json:"m" db:"m"`
	Component Component `json:"component" db:"component"`
	Method    Method    `json:"method,omitempty" db:"method"`
	Seconds   float64   `json:"time_sec" db:"time_sec"`
}

// NewTimingRow builds a timing row for a block phase
func NewTimingRow(block Block, component Component, method Method, elapsed time.Duration) TimingRow {
	return TimingRow{
		Pi0:       block.Config.Pi0,
		M:         block.Config.M,
		Component: component,
		Method:    method,
		Seconds:   elapsed.Seconds(),
	}
}
