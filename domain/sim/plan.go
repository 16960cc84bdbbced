package sim

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"mhtsim/internal/errors"
)

// Grid is the ordered cross-product of null proportions and hypothesis counts
type Grid struct {
	MValues   []int     `json:"m_values" yaml:"m_values"`
	Pi0Values []float64 `json:"pi0_values" yaml:"pi0_values"`
}

// Size returns the number of configurations
func (g Grid) Size() int {
	return len(g.MValues) * len(g.Pi0Values)
}

// Plan is the immutable description of one simulation run. It replaces any
// process-wide constants: everything a run needs is passed in here.
type Plan struct {
	Grid       Grid     `json:"grid" yaml:"grid"`
	Replicates int      `json:"replicates" yaml:"replicates"`
	Alpha      float64  `json:"alpha" yaml:"alpha"`
	EffectSize float64  `json:"effect_size" yaml:"effect_size"`
	Pattern    Pattern  `json:"pattern" yaml:"pattern"`
	Seed       int64    `json:"seed" yaml:"seed"`
	Workers    int      `json:"workers" yaml:"workers"`
	Methods    []Method `json:"methods" yaml:"methods"`
}

// Clone returns a deep copy so callers cannot mutate a plan that is in use
func (p Plan) Clone() Plan {
	p.Grid.MValues = slices.Clone(p.Grid.MValues)
	p.Grid.Pi0Values = slices.Clone(p.Grid.Pi0Values)
	p.Methods = slices.Clone(p.Methods)
	return p
}

// WithDefaults fills an empty method list with AllMethods and an empty
// pattern with PatternEqual
func (p Plan) WithDefaults() Plan {
	p = p.Clone()
	if len(p.Methods) == 0 {
		p.Methods = AllMethods()
	}
	if p.Pattern == "" {
		p.Pattern = PatternEqual
	}
	return p
}

// Validate checks every configuration of the grid as well as run-level fields.
func (p Plan) Validate() error {
	if len(p.Grid.MValues) == 0 || len(p.Grid.Pi0Values) == 0 {
		return errors.InvalidConfiguration("grid needs at least one m and one pi0 value")
	}
	if p.Replicates <= 0 {
		return errors.InvalidConfiguration("replicate count must be positive, got %d", p.Replicates)
	}
	if p.Workers < 0 {
		return errors.InvalidConfiguration("workers must not be negative, got %d", p.Workers)
	}
	// block i uses Seed+i; the last block seed must not wrap
	if p.Seed > math.MaxInt64-int64(p.Grid.Size()-1) {
		return errors.InvalidConfiguration("seed %d overflows across %d blocks", p.Seed, p.Grid.Size())
	}
	if _, err := ParsePattern(string(p.Pattern)); err != nil {
		return err
	}
	for _, m := range p.Methods {
		if m.Order() < 0 {
			return errors.UnknownMethod(string(m))
		}
	}
	for _, pi0 := range p.Grid.Pi0Values {
		for _, m := range p.Grid.MValues {
			if err := p.Configuration(m, pi0).Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Configuration builds the grid point (m, pi0) with the plan's α and L
func (p Plan) Configuration(m int, pi0 float64) Configuration {
	return Configuration{M: m, Pi0: pi0, EffectSize: p.EffectSize, Alpha: p.Alpha}
}

// Blocks enumerates the grid with π0 as the outer loop and M as the inner
// loop. Block i receives seedFor(p.Seed, i).
func (p Plan) Blocks(seedFor func(base int64, index int) int64) []Block {
	blocks := make([]Block, 0, p.Grid.Size())
	for _, pi0 := range p.Grid.Pi0Values {
		for _, m := range p.Grid.MValues {
			idx := len(blocks)
			blocks = append(blocks, Block{
				Index:  idx,
				Config: p.Configuration(m, pi0),
				Seed:   seedFor(p.Seed, idx),
			})
		}
	}
	return blocks
}

func (p Plan) String() string {
	methods := make([]string, len(p.Methods))
	for i, m := range p.Methods {
		methods[i] = string(m)
	}
	return fmt.Sprintf("m=%v pi0=%v n=%d alpha=%v L=%v pattern=%s seed=%d methods=%s",
		p.Grid.MValues, p.Grid.Pi0Values, p.Replicates, p.Alpha, p.EffectSize, p.Pattern, p.Seed, strings.Join(methods, ","))
}
