package container

import (
	"context"
	"fmt"

	"mhtsim/adapters/csv"
	"mhtsim/adapters/excel"
	"mhtsim/adapters/postgres"
	"mhtsim/adapters/report"
	"mhtsim/app"
	"mhtsim/internal"
	"mhtsim/internal/config"
	"mhtsim/internal/dgp"
	"mhtsim/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Result sinks, in publication order
	Sinks []ports.ResultSink

	// Set only when a database URL is configured
	RunRepo *postgres.RunRepository

	Service *app.SimulationService
}

// New creates a new dependency injection container. File sinks are created
// eagerly; the database is attached by InitWithDatabase.
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.NewLogger(internal.ParseLevel(cfg.LogLevel))
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}
	c.initFileSinks()
	c.initService()
	return c, nil
}

// InitWithDatabase connects to PostgreSQL, applies migrations and adds the
// run repository as a sink. It is a no-op without a database URL.
func (c *Container) InitWithDatabase(ctx context.Context) error {
	if c.Config.Database.URL == "" {
		return nil
	}

	repo, err := postgres.Connect(ctx, c.Config.Database.URL, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize run repository: %w", err)
	}
	c.RunRepo = repo
	c.Sinks = append(c.Sinks, repo)
	c.initService()

	c.Logger.Info("container initialized with database persistence")
	return nil
}

func (c *Container) initFileSinks() {
	out := c.Config.Output
	if out.CSVPath != "" {
		c.Sinks = append(c.Sinks, csv.NewWriter(out.CSVPath, out.TimingCSVPath, c.Logger))
	}
	if out.XLSXPath != "" {
		c.Sinks = append(c.Sinks, excel.NewWriter(out.XLSXPath, c.Logger))
	}
	if out.ReportPath != "" {
		c.Sinks = append(c.Sinks, report.NewWriter(out.ReportPath, c.Logger))
	}
}

func (c *Container) initService() {
	c.Service = app.NewSimulationService(dgp.NewPCGStreams(), c.Sinks, c.Logger)
}

// SinkNames lists the configured sinks
func (c *Container) SinkNames() []string {
	names := make([]string, len(c.Sinks))
	for i, s := range c.Sinks {
		names[i] = s.Name()
	}
	return names
}

// Shutdown releases the database connection, if any
func (c *Container) Shutdown(ctx context.Context) error {
	if c.RunRepo != nil {
		return c.RunRepo.Close()
	}
	return nil
}
