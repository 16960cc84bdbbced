package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mhtsim/domain/core"
	"mhtsim/domain/sim"
	"mhtsim/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int{4, 8, 16, 32, 64}, cfg.Simulation.MValues)
	assert.Equal(t, []float64{0.75, 0.5, 0.25, 0}, cfg.Simulation.Pi0Values)
	assert.Equal(t, 20000, cfg.Simulation.Replicates)
	assert.Equal(t, 0.05, cfg.Simulation.Alpha)
	assert.Equal(t, 8.0, cfg.Simulation.EffectSize)

	plan, err := cfg.Plan()
	require.NoError(t, err)
	assert.Equal(t, sim.AllMethods(), plan.Methods)
	assert.Equal(t, sim.PatternEqual, plan.Pattern)
	assert.Equal(t, 20, plan.Grid.Size())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SIM_M_VALUES", "10, 20")
	t.Setenv("SIM_PI0_VALUES", "0.9,0.1")
	t.Setenv("SIM_REPLICATES", "500")
	t.Setenv("SIM_ALPHA", "0.1")
	t.Setenv("SIM_EFFECT_SIZE", "5")
	t.Setenv("SIM_SEED", "42")
	t.Setenv("SIM_WORKERS", "3")
	t.Setenv("SIM_METHODS", "BH,bonferroni")
	t.Setenv("SIM_XLSX_PATH", "out.xlsx")
	t.Setenv("SIM_PROFILE", "true")
	t.Setenv("DATABASE_URL", "postgres://localhost/sim")

	cfg, err := Load()
	require.NoError(t, err)

	plan, err := cfg.Plan()
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20}, plan.Grid.MValues)
	assert.Equal(t, []float64{0.9, 0.1}, plan.Grid.Pi0Values)
	assert.Equal(t, 500, plan.Replicates)
	assert.Equal(t, 0.1, plan.Alpha)
	assert.Equal(t, 5.0, plan.EffectSize)
	assert.Equal(t, int64(42), plan.Seed)
	assert.Equal(t, 3, plan.Workers)
	assert.Equal(t, []sim.Method{sim.MethodBH, sim.MethodBonferroni}, plan.Methods)
	assert.Equal(t, "out.xlsx", cfg.Output.XLSXPath)
	assert.True(t, cfg.Profiling.Enabled)
	assert.Equal(t, "postgres://localhost/sim", cfg.Database.URL)
}

func TestLoadRejectsMalformedEnvironment(t *testing.T) {
	t.Setenv("SIM_ALPHA", "five percent")
	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	assert.Contains(t, err.Error(), "SIM_ALPHA")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"SIM_ALPHA":      "1.5",
		"SIM_PI0_VALUES": "0.5,1.2",
		"SIM_M_VALUES":   "0",
		"SIM_REPLICATES": "-1",
		"SIM_WORKERS":    "-2",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.True(t, core.IsInvalidConfiguration(err), "%s=%s: %v", key, value, err)
		})
	}

	t.Run("SIM_PATTERN", func(t *testing.T) {
		t.Setenv("SIM_PATTERN", "decreasing")
		_, err := Load()
		assert.True(t, core.IsUnsupportedPattern(err))
	})

	t.Run("SIM_METHODS", func(t *testing.T) {
		t.Setenv("SIM_METHODS", "holm")
		_, err := Load()
		assert.True(t, core.IsUnknownMethod(err))
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	content := `
simulation:
  m_values: [4, 16]
  pi0_values: [0.5]
  replicates: 1000
  alpha: 0.01
  effect_size: 6
  seed: 9
  methods: [hochberg]
output:
  report_path: report.html
profiling:
  replicate_counts: [100, 200]
log_level: DEBUG
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, []int{4, 16}, cfg.Simulation.MValues)
	assert.Equal(t, []float64{0.5}, cfg.Simulation.Pi0Values)
	assert.Equal(t, 1000, cfg.Simulation.Replicates)
	assert.Equal(t, 0.01, cfg.Simulation.Alpha)
	assert.Equal(t, int64(9), cfg.Simulation.Seed)
	assert.Equal(t, []string{"hochberg"}, cfg.Simulation.Methods)
	assert.Equal(t, "equal", cfg.Simulation.Pattern, "unset keys keep their default")
	assert.Equal(t, "report.html", cfg.Output.ReportPath)
	assert.Equal(t, "results/raw/sim_summary.csv", cfg.Output.CSVPath)
	assert.Equal(t, []int{100, 200}, cfg.Profiling.ReplicateCounts)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestLoadFileEnvironmentWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation:\n  replicates: 1000\n"), 0o644))
	t.Setenv("SIM_REPLICATES", "77")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 77, cfg.Simulation.Replicates)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation: [unclosed"), 0o644))
	_, err = LoadFile(path)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	path = filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiling:\n  replicate_counts: [0]\n"), 0o644))
	_, err = LoadFile(path)
	assert.True(t, core.IsInvalidConfiguration(err))

	path = filepath.Join(t.TempDir(), "no_scaling_m.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiling:\n  replicate_counts: [100]\n  scaling_m: 0\n"), 0o644))
	_, err = LoadFile(path)
	assert.True(t, core.IsInvalidConfiguration(err))
	assert.Contains(t, err.Error(), "scaling_m")
}

func TestValidateScalingMOnlyWithReplicateCounts(t *testing.T) {
	cfg := Default()
	cfg.Profiling.ScalingM = 0
	assert.True(t, core.IsInvalidConfiguration(cfg.Validate()))

	cfg.Profiling.ReplicateCounts = nil
	assert.NoError(t, cfg.Validate())
}
