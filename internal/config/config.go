package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"mhtsim/domain/sim"
	"mhtsim/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Output     OutputConfig     `yaml:"output"`
	Database   DatabaseConfig   `yaml:"database"`
	Profiling  ProfilingConfig  `yaml:"profiling"`
	LogLevel   string           `yaml:"log_level"`
}

// SimulationConfig holds the experiment grid and run parameters
type SimulationConfig struct {
	MValues    []int     `yaml:"m_values"`
	Pi0Values  []float64 `yaml:"pi0_values"`
	Replicates int       `yaml:"replicates"`
	Alpha      float64   `yaml:"alpha"`
	EffectSize float64   `yaml:"effect_size"`
	Pattern    string    `yaml:"pattern"`
	Seed       int64     `yaml:"seed"`
	Workers    int       `yaml:"workers"`
	Methods    []string  `yaml:"methods"`
}

// OutputConfig holds result sink paths; an empty path disables that sink
type OutputConfig struct {
	CSVPath       string `yaml:"csv_path"`
	TimingCSVPath string `yaml:"timing_csv_path"`
	XLSXPath      string `yaml:"xlsx_path"`
	ReportPath    string `yaml:"report_path"`
}

// DatabaseConfig holds database connection settings. Persistence is enabled
// only when URL is set.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// ProfilingConfig holds the settings of the profile command
type ProfilingConfig struct {
	Enabled         bool  `yaml:"enabled"`
	ReplicateCounts []int `yaml:"replicate_counts"`
	MValues         []int `yaml:"m_values"`
	ScalingM        int   `yaml:"scaling_m"`
}

// Default returns the configuration of the reference study
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			MValues:    []int{4, 8, 16, 32, 64},
			Pi0Values:  []float64{0.75, 0.5, 0.25, 0},
			Replicates: 20000,
			Alpha:      0.05,
			EffectSize: 8,
			Pattern:    string(sim.PatternEqual),
			Seed:       0,
			Workers:    0,
			Methods:    []string{"bonferroni", "hochberg", "bh"},
		},
		Output: OutputConfig{
			CSVPath:       "results/raw/sim_summary.csv",
			TimingCSVPath: "results/raw/timing_summary.csv",
		},
		Profiling: ProfilingConfig{
			ReplicateCounts: []int{1000, 1930, 3727, 7196, 13894, 26826, 51794, 100000},
			MValues:         []int{16, 32, 64, 128, 256, 512, 1024},
			ScalingM:        1024,
		},
		LogLevel: "INFO",
	}
}

// Load reads configuration from environment variables over the defaults and
// validates it
func Load() (*Config, error) {
	config := Default()
	if err := applyEnv(config); err != nil {
		return nil, errors.Wrap(err, "failed to load configuration from environment")
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// LoadFile reads a YAML file over the defaults. Environment variables still
// take precedence over the file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to read config file")
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(errors.ConfigInvalid(err.Error()), "failed to parse %s", path)
	}
	if err := applyEnv(config); err != nil {
		return nil, errors.Wrap(err, "failed to load configuration from environment")
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func applyEnv(config *Config) error {
	s := &config.Simulation
	var err error

	if s.MValues, err = getEnvIntListOrDefault("SIM_M_VALUES", s.MValues); err != nil {
		return err
	}
	if s.Pi0Values, err = getEnvFloatListOrDefault("SIM_PI0_VALUES", s.Pi0Values); err != nil {
		return err
	}
	if s.Replicates, err = getEnvIntOrDefault("SIM_REPLICATES", s.Replicates); err != nil {
		return err
	}
	if s.Alpha, err = getEnvFloatOrDefault("SIM_ALPHA", s.Alpha); err != nil {
		return err
	}
	if s.EffectSize, err = getEnvFloatOrDefault("SIM_EFFECT_SIZE", s.EffectSize); err != nil {
		return err
	}
	if s.Workers, err = getEnvIntOrDefault("SIM_WORKERS", s.Workers); err != nil {
		return err
	}
	seed, err := getEnvIntOrDefault("SIM_SEED", int(s.Seed))
	if err != nil {
		return err
	}
	s.Seed = int64(seed)
	s.Pattern = getEnvOrDefault("SIM_PATTERN", s.Pattern)
	s.Methods = getEnvListOrDefault("SIM_METHODS", s.Methods)

	config.Output.CSVPath = getEnvOrDefault("SIM_CSV_PATH", config.Output.CSVPath)
	config.Output.TimingCSVPath = getEnvOrDefault("SIM_TIMING_CSV_PATH", config.Output.TimingCSVPath)
	config.Output.XLSXPath = getEnvOrDefault("SIM_XLSX_PATH", config.Output.XLSXPath)
	config.Output.ReportPath = getEnvOrDefault("SIM_REPORT_PATH", config.Output.ReportPath)

	config.Database.URL = getEnvOrDefault("DATABASE_URL", config.Database.URL)

	if config.Profiling.Enabled, err = getEnvBoolOrDefault("SIM_PROFILE", config.Profiling.Enabled); err != nil {
		return err
	}
	config.LogLevel = getEnvOrDefault("LOG_LEVEL", config.LogLevel)
	return nil
}

// Plan converts the simulation section into a validated run plan
func (c *Config) Plan() (sim.Plan, error) {
	s := c.Simulation
	methods, err := sim.ParseMethods(s.Methods)
	if err != nil {
		return sim.Plan{}, err
	}
	pattern, err := sim.ParsePattern(s.Pattern)
	if err != nil {
		return sim.Plan{}, err
	}

	plan := sim.Plan{
		Grid: sim.Grid{
			MValues:   append([]int(nil), s.MValues...),
			Pi0Values: append([]float64(nil), s.Pi0Values...),
		},
		Replicates: s.Replicates,
		Alpha:      s.Alpha,
		EffectSize: s.EffectSize,
		Pattern:    pattern,
		Seed:       s.Seed,
		Workers:    s.Workers,
		Methods:    methods,
	}
	if err := plan.Validate(); err != nil {
		return sim.Plan{}, err
	}
	return plan, nil
}

// Validate checks the simulation plan and the profiling settings
func (c *Config) Validate() error {
	if _, err := c.Plan(); err != nil {
		return err
	}
	for _, n := range c.Profiling.ReplicateCounts {
		if n <= 0 {
			return errors.InvalidConfiguration("profiling replicate counts must be positive, got %d", n)
		}
	}
	for _, m := range c.Profiling.MValues {
		if m <= 0 {
			return errors.InvalidConfiguration("profiling m values must be positive, got %d", m)
		}
	}
	if c.Profiling.ScalingM < 0 {
		return errors.InvalidConfiguration("profiling scaling_m must not be negative, got %d", c.Profiling.ScalingM)
	}
	if len(c.Profiling.ReplicateCounts) > 0 && c.Profiling.ScalingM == 0 {
		return errors.InvalidConfiguration("profiling scaling_m must be positive when replicate_counts are set")
	}
	return nil
}

// Helper functions for environment variable parsing. Malformed values are
// reported rather than replaced by the default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, errors.ConfigInvalid(key + ": not an integer: " + value)
	}
	return intValue, nil
}

func getEnvFloatOrDefault(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, errors.ConfigInvalid(key + ": not a number: " + value)
	}
	return floatValue, nil
}

func getEnvBoolOrDefault(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	boolValue, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, errors.ConfigInvalid(key + ": not a boolean: " + value)
	}
	return boolValue, nil
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvIntListOrDefault(key string, defaultValue []int) ([]int, error) {
	if os.Getenv(key) == "" {
		return defaultValue, nil
	}
	parts := getEnvListOrDefault(key, nil)
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.ConfigInvalid(key + ": not an integer: " + part)
		}
		out = append(out, v)
	}
	return out, nil
}

func getEnvFloatListOrDefault(key string, defaultValue []float64) ([]float64, error) {
	if os.Getenv(key) == "" {
		return defaultValue, nil
	}
	parts := getEnvListOrDefault(key, nil)
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, errors.ConfigInvalid(key + ": not a number: " + part)
		}
		out = append(out, v)
	}
	return out, nil
}
