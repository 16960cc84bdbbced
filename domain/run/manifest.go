package run

import (
	"mhtsim/domain/core"
	"mhtsim/domain/sim"
)

// Manifest describes one simulation run. It is created before any block runs
// and handed to every result sink alongside the tables.
type Manifest struct {
	RunID       core.RunID     `json:"run_id"`
	Plan        sim.Plan       `json:"plan"`
	Mode        Mode           `json:"mode"`
	CodeVersion string         `json:"code_version"`
	Fingerprint RunFingerprint `json:"fingerprint"`
	StartedAt   core.Timestamp `json:"started_at"`
	FinishedAt  core.Timestamp `json:"finished_at"`
	Blocks      int            `json:"blocks"`
	Rows        int            `json:"rows"`
}

// NewManifest creates the manifest of a run that is about to start
func NewManifest(plan sim.Plan, mode Mode, codeVersion string) *Manifest {
	plan = plan.WithDefaults()
	return &Manifest{
		RunID:       core.NewRunID(),
		Plan:        plan,
		Mode:        mode,
		CodeVersion: codeVersion,
		Fingerprint: NewRunFingerprint(plan, mode, codeVersion),
		StartedAt:   core.Now(),
		Blocks:      plan.Grid.Size(),
	}
}

// Finish stamps the completion time and the number of result rows
func (m *Manifest) Finish(rows int) {
	m.FinishedAt = core.Now()
	m.Rows = rows
}

// Duration returns the elapsed time in seconds, zero while the run is open.
func (m *Manifest) Duration() float64 {
	if m.FinishedAt.IsZero() {
		return 0
	}
	return m.FinishedAt.Sub(m.StartedAt).Seconds()
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewValidationError("run_manifest", "run_id cannot be empty")
	}
	if m.Fingerprint.Fingerprint.IsEmpty() {
		return core.NewValidationError("run_manifest", "fingerprint cannot be empty")
	}
	if m.CodeVersion == "" {
		return core.NewValidationError("run_manifest", "code_version cannot be empty")
	}
	if m.Mode != ModeVectorised && m.Mode != ModeBaseline {
		return core.NewValidationError("run_manifest", "unknown mode "+string(m.Mode))
	}
	return nil
}
