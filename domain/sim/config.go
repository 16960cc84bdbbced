package sim

import (
	"fmt"
	"math"
	"strings"

	"mhtsim/internal/errors"
)

// Pattern names an effect-size layout for the false nulls
type Pattern string

const (
	// PatternEqual splits the false nulls into four equal groups with means
	// L, 3L/4, L/2 and L/4.
	PatternEqual Pattern = "equal"
)

// ParsePattern normalizes a pattern name; only "equal" is implemented.
func ParsePattern(name string) (Pattern, error) {
	p := Pattern(strings.ToLower(strings.TrimSpace(name)))
	if p != PatternEqual {
		return "", errors.UnsupportedPattern(name)
	}
	return p, nil
}

// Configuration is one point of the simulation grid
type Configuration struct {
	M          int     `json:"m" yaml:"m"`
	Pi0        float64 `json:"pi0" yaml:"pi0"`
	EffectSize float64 `json:"effect_size" yaml:"effect_size"`
	Alpha      float64 `json:"alpha" yaml:"alpha"`
}

// Validate checks the ranges M>0, 0<=π0<=1, 0<α<1 and a finite effect size.
func (c Configuration) Validate() error {
	if c.M <= 0 {
		return errors.InvalidConfiguration("m must be positive, got %d", c.M)
	}
	if err := ValidatePi0(c.Pi0); err != nil {
		return err
	}
	if err := ValidateAlpha(c.Alpha); err != nil {
		return err
	}
	if math.IsNaN(c.EffectSize) || math.IsInf(c.EffectSize, 0) {
		return errors.InvalidConfiguration("effect size must be finite, got %v", c.EffectSize)
	}
	return nil
}

// ValidatePi0 checks 0 <= π0 <= 1
func ValidatePi0(pi0 float64) error {
	if math.IsNaN(pi0) || pi0 < 0 || pi0 > 1 {
		return errors.InvalidConfiguration("pi0 must be within [0, 1], got %v", pi0)
	}
	return nil
}

// ValidateAlpha checks 0 < α < 1
func ValidateAlpha(alpha float64) error {
	if math.IsNaN(alpha) || alpha <= 0 || alpha >= 1 {
		return errors.InvalidConfiguration("alpha must be within (0, 1), got %v", alpha)
	}
	return nil
}

// NullCount returns round(π0·M), rounding half to even like the reference
// implementation.
func (c Configuration) NullCount() int {
	return NullCount(c.M, c.Pi0)
}

// NullCount returns the number of true nulls for (m, π0)
func NullCount(m int, pi0 float64) int {
	return int(math.RoundToEven(pi0 * float64(m)))
}

func (c Configuration) String() string {
	return fmt.Sprintf("pi0=%.2f, m=%d", c.Pi0, c.M)
}
