package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"mhtsim/adapters/excel"
	"mhtsim/adapters/postgres/migrations"
	"mhtsim/app"
	"mhtsim/domain/core"
	"mhtsim/domain/run"
	"mhtsim/domain/sim"
	"mhtsim/internal/config"
	"mhtsim/internal/container"
	"mhtsim/internal/format"
)

type configLoader func() (*config.Config, error)

// planFlags are the command-line overrides shared by run and baseline
type planFlags struct {
	workers    int
	seed       int64
	replicates int
	markdown   bool
}

func (f *planFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "worker goroutines (0 = one per CPU)")
	cmd.Flags().Int64VarP(&f.seed, "seed", "s", 0, "base seed; block i uses seed+i")
	cmd.Flags().IntVarP(&f.replicates, "replicates", "n", 0, "Monte Carlo replicates per configuration")
	cmd.Flags().BoolVar(&f.markdown, "markdown", false, "print Markdown tables instead of box tables")
}

func (f *planFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("workers") {
		cfg.Simulation.Workers = f.workers
	}
	if cmd.Flags().Changed("seed") {
		cfg.Simulation.Seed = f.seed
	}
	if cmd.Flags().Changed("replicates") {
		cfg.Simulation.Replicates = f.replicates
	}
}

func (f *planFlags) mode() format.Mode {
	if f.markdown {
		return format.Markdown
	}
	return format.ASCII
}

func newRunCmd(load configLoader) *cobra.Command {
	var flags planFlags
	var profile bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the vectorised simulation over the configured grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, load, &flags, run.ModeVectorised, profile)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&profile, "profile", false, "record per-phase timings")
	return cmd
}

func newBaselineCmd(load configLoader) *cobra.Command {
	var flags planFlags
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Run the scalar reference path, one replicate at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, load, &flags, run.ModeBaseline, false)
		},
	}
	flags.register(cmd)
	return cmd
}

func runSimulation(cmd *cobra.Command, load configLoader, flags *planFlags, mode run.Mode, profile bool) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	flags.apply(cmd, cfg)
	plan, err := cfg.Plan()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := newContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Shutdown(ctx)

	result, err := c.Service.Run(ctx, app.RunRequest{
		Plan:    plan,
		Mode:    mode,
		Profile: profile || cfg.Profiling.Enabled,
	})
	if result == nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s (%s) finished in %d ms\n", result.Manifest.RunID, mode, result.RuntimeMs)
	fmt.Fprintln(out, format.ResultsTable(flags.mode(), result.Results))
	if len(result.Timings) > 0 {
		fmt.Fprintln(out, format.TimingTable(flags.mode(), result.Timings))
	}
	// sink failures are reported after the tables are shown
	return err
}

func newProfileCmd(load configLoader) *cobra.Command {
	var pi0 float64
	var markdown bool
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Compare the scalar and vectorised paths and estimate method complexity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			plan, err := cfg.Plan()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			c, err := container.New(cfg, nil)
			if err != nil {
				return err
			}
			report, err := c.Service.Profile(ctx, app.ProfileRequest{
				Plan:            plan,
				ReplicateCounts: cfg.Profiling.ReplicateCounts,
				ScalingM:        cfg.Profiling.ScalingM,
				MValues:         cfg.Profiling.MValues,
				Pi0:             pi0,
			})
			if err != nil {
				return err
			}

			mode := format.ASCII
			if markdown {
				mode = format.Markdown
			}
			out := cmd.OutOrStdout()
			if len(report.Scaling) > 0 {
				fmt.Fprintln(out, scalingTable(mode, report))
			}
			if len(report.Methods) > 0 {
				fmt.Fprintln(out, methodTable(mode, report))
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&pi0, "pi0", 0.5, "null proportion held fixed while profiling")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print Markdown tables instead of box tables")
	return cmd
}

func scalingTable(mode format.Mode, report *app.ProfileReport) string {
	tb := format.NewTable(mode)
	tb.Header("replicates", "baseline s", "vectorised s", "speedup")
	for _, p := range report.Scaling {
		tb.Row(p.Replicates, format.Fixed(p.BaselineSeconds), format.Fixed(p.VectorisedSeconds), fmt.Sprintf("%.1fx", p.Speedup()))
	}
	tb.AlignRight(1, 2, 3, 4)
	return tb.String()
}

func methodTable(mode format.Mode, report *app.ProfileReport) string {
	tb := format.NewTable(mode)
	tb.Header("M", "method", "µs per replicate")
	for _, t := range report.Methods {
		tb.Row(t.M, string(t.Method), fmt.Sprintf("%.3f", t.PerReplicate*1e6))
	}
	methods := make([]string, 0, len(report.Slopes))
	for m := range report.Slopes {
		methods = append(methods, string(m))
	}
	sort.Strings(methods)
	for _, m := range methods {
		tb.Footer("slope", m, fmt.Sprintf("%.2f", report.Slopes[sim.Method(m)]))
	}
	tb.AlignRight(1, 3)
	return tb.String()
}

func newShowCmd() *cobra.Command {
	var markdown bool
	cmd := &cobra.Command{
		Use:   "show <file.csv|file.xlsx>",
		Short: "Print a stored results table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := excel.NewDataReader(args[0], nil).ReadResults()
			if err != nil {
				return err
			}
			mode := format.ASCII
			if markdown {
				mode = format.Markdown
			}
			fmt.Fprintln(cmd.OutOrStdout(), format.ResultsTable(mode, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print a Markdown table")
	return cmd
}

func newHistoryCmd(load configLoader) *cobra.Command {
	var limit int
	var runID string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored runs with the same fingerprint as the configured plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runID != "" {
				if _, err := core.ParseRunID(runID); err != nil {
					return err
				}
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("history requires DATABASE_URL")
			}
			plan, err := cfg.Plan()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			c, err := newContainer(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			if runID != "" {
				rows, err := c.RunRepo.GetResults(ctx, runID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), format.ResultsTable(format.ASCII, rows))
				return nil
			}

			fp := run.NewRunFingerprint(plan.WithDefaults(), run.ModeVectorised, app.CodeVersion)
			records, err := c.RunRepo.FindByFingerprint(ctx, fp.Fingerprint, limit)
			if err != nil {
				return err
			}

			tb := format.NewTable(format.ASCII)
			tb.Header("run", "mode", "started", "rows")
			for _, r := range records {
				tb.Row(r.RunID, r.Mode, r.StartedAt.Format("2006-01-02 15:04:05"), r.RowCount)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fingerprint %s\n%s\n", fp.Fingerprint.Short(), tb.String())
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")
	cmd.Flags().StringVar(&runID, "run", "", "print the stored results of one run instead")
	return cmd
}

func newMigrateCmd(load configLoader) *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema, or show its status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("migrate requires DATABASE_URL")
			}

			ctx := cmd.Context()
			db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			migrator := migrations.NewMigrator(db.DB)
			out := cmd.OutOrStdout()
			if status {
				statuses, err := migrator.Status(ctx)
				if err != nil {
					return err
				}
				for _, s := range statuses {
					mark := "pending"
					if s.Applied {
						mark = "applied"
					}
					fmt.Fprintf(out, "%s %-30s %s\n", s.Version, s.Name, mark)
				}
				return nil
			}

			applied, err := migrator.Up(ctx)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "schema is up to date")
			}
			for _, v := range applied {
				fmt.Fprintf(out, "applied %s\n", v)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "list migrations without applying them")
	return cmd
}

func newContainer(ctx context.Context, cfg *config.Config) (*container.Container, error) {
	c, err := container.New(cfg, nil)
	if err != nil {
		return nil, err
	}
	if err := c.InitWithDatabase(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
