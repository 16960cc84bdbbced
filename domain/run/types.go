package run

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"mhtsim/domain/core"
	"mhtsim/domain/sim"
)

// Mode names the execution path that produced a result table
type Mode string

const (
	ModeVectorised Mode = "vectorised"
	ModeBaseline   Mode = "baseline"
)

// RunFingerprint ensures deterministic replay: two runs with equal
// fingerprints produce identical result tables.
type RunFingerprint struct {
	PlanHash    core.Hash `json:"plan_hash"`
	Seed        int64     `json:"seed"`
	Mode        Mode      `json:"mode"`
	CodeVersion string    `json:"code_version"`
	Fingerprint core.Hash `json:"fingerprint"` // Hash of all above
}

// NewRunFingerprint creates a fingerprint from determinism parameters
func NewRunFingerprint(plan sim.Plan, mode Mode, codeVersion string) RunFingerprint {
	planHash := PlanHash(plan)
	return RunFingerprint{
		PlanHash:    planHash,
		Seed:        plan.Seed,
		Mode:        mode,
		CodeVersion: codeVersion,
		Fingerprint: computeRunFingerprint(planHash, plan.Seed, mode, codeVersion),
	}
}

// PlanHash hashes every plan field that influences results. Workers is
// excluded: the table does not depend on it.
func PlanHash(plan sim.Plan) core.Hash {
	plan = plan.WithDefaults()
	methods := make([]string, len(plan.Methods))
	for i, m := range plan.Methods {
		methods[i] = string(m)
	}
	return core.ComputeParamsHash(map[string]interface{}{
		"m_values":    fmt.Sprint(plan.Grid.MValues),
		"pi0_values":  fmt.Sprint(plan.Grid.Pi0Values),
		"replicates":  plan.Replicates,
		"alpha":       plan.Alpha,
		"effect_size": plan.EffectSize,
		"pattern":     string(plan.Pattern),
		"seed":        plan.Seed,
		"methods":     strings.Join(methods, ","),
	})
}

// computeRunFingerprint generates deterministic hash from all determinism parameters
func computeRunFingerprint(planHash core.Hash, seed int64, mode Mode, codeVersion string) core.Hash {
	data := fmt.Sprintf("plan:%s|seed:%d|mode:%s|code:%s", planHash, seed, mode, codeVersion)
	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}
