package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"mhtsim/adapters/postgres/migrations"
	"mhtsim/domain/core"
	"mhtsim/domain/run"
	"mhtsim/domain/sim"
	"mhtsim/internal"
	"mhtsim/internal/errors"
)

// RunRepository stores runs and their tables in PostgreSQL. It implements
// ports.ResultSink.
type RunRepository struct {
	db     *sqlx.DB
	logger *internal.Logger
}

// NewRunRepository creates a repository over an open connection
func NewRunRepository(db *sqlx.DB, logger *internal.Logger) *RunRepository {
	return &RunRepository{db: db, logger: internal.OrDefault(logger).With("postgres")}
}

// Connect opens a connection pool and applies pending migrations
func Connect(ctx context.Context, url string, logger *internal.Logger) (*RunRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.ExternalServiceError("postgres", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	repo := NewRunRepository(db, logger)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// Migrate applies the embedded schema migrations
func (r *RunRepository) Migrate(ctx context.Context) error {
	applied, err := migrations.NewMigrator(r.db.DB).Up(ctx)
	if err != nil {
		return errors.ExternalServiceError("postgres", err)
	}
	for _, v := range applied {
		r.logger.Info("applied migration %s", v)
	}
	return nil
}

// Close releases the connection pool
func (r *RunRepository) Close() error {
	return r.db.Close()
}

func (r *RunRepository) Name() string { return "postgres" }

// RunRecord is the sim_runs row of a manifest
type RunRecord struct {
	RunID       string     `db:"run_id"`
	Mode        string     `db:"mode"`
	CodeVersion string     `db:"code_version"`
	Fingerprint string     `db:"fingerprint"`
	Seed        int64      `db:"seed"`
	Replicates  int        `db:"replicates"`
	Alpha       float64    `db:"alpha"`
	EffectSize  float64    `db:"effect_size"`
	Plan        string     `db:"plan"`
	Blocks      int        `db:"blocks"`
	RowCount    int        `db:"row_count"`
	StartedAt   time.Time  `db:"started_at"`
	FinishedAt  *time.Time `db:"finished_at"`
}

type resultRecord struct {
	RunID    string `db:"run_id"`
	Position int    `db:"position"`
	sim.ResultRow
}

type timingRecord struct {
	RunID    string `db:"run_id"`
	Position int    `db:"position"`
	sim.TimingRow
}

// NewRunRecord flattens a manifest into its table row
func NewRunRecord(m *run.Manifest) (RunRecord, error) {
	plan, err := json.Marshal(m.Plan)
	if err != nil {
		return RunRecord{}, errors.Wrap(err, "failed to encode plan")
	}
	rec := RunRecord{
		RunID:       m.RunID.String(),
		Mode:        string(m.Mode),
		CodeVersion: m.CodeVersion,
		Fingerprint: m.Fingerprint.Fingerprint.String(),
		Seed:        m.Plan.Seed,
		Replicates:  m.Plan.Replicates,
		Alpha:       m.Plan.Alpha,
		EffectSize:  m.Plan.EffectSize,
		Plan:        string(plan),
		Blocks:      m.Blocks,
		RowCount:    m.Rows,
		StartedAt:   m.StartedAt.Time(),
	}
	if !m.FinishedAt.IsZero() {
		finished := m.FinishedAt.Time()
		rec.FinishedAt = &finished
	}
	return rec, nil
}

// Write stores the run and both tables in one transaction
func (r *RunRepository) Write(ctx context.Context, manifest *run.Manifest, results []sim.ResultRow, timings []sim.TimingRow) error {
	rec, err := NewRunRecord(manifest)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.ExternalServiceError("postgres", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO sim_runs (run_id, mode, code_version, fingerprint, seed, replicates, alpha, effect_size, plan, blocks, row_count, started_at, finished_at)
		VALUES (:run_id, :mode, :code_version, :fingerprint, :seed, :replicates, :alpha, :effect_size, :plan, :blocks, :row_count, :started_at, :finished_at)
	`, rec); err != nil {
		return errors.ExternalServiceError("postgres", err)
	}

	if len(results) > 0 {
		records := make([]resultRecord, len(results))
		for i, row := range results {
			records[i] = resultRecord{RunID: rec.RunID, Position: i, ResultRow: row}
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO sim_results (run_id, position, pi0, m, method, mean_fdp, mean_power, sd_fdp, sd_power)
			VALUES (:run_id, :position, :pi0, :m, :method, :mean_fdp, :mean_power, :sd_fdp, :sd_power)
		`, records); err != nil {
			return errors.ExternalServiceError("postgres", err)
		}
	}

	if len(timings) > 0 {
		records := make([]timingRecord, len(timings))
		for i, row := range timings {
			records[i] = timingRecord{RunID: rec.RunID, Position: i, TimingRow: row}
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO sim_timings (run_id, position, pi0, m, component, method, time_sec)
			VALUES (:run_id, :position, :pi0, :m, :component, :method, :time_sec)
		`, records); err != nil {
			return errors.ExternalServiceError("postgres", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.ExternalServiceError("postgres", err)
	}
	r.logger.Info("run %s: stored %d results and %d timings", rec.RunID, len(results), len(timings))
	return nil
}

// GetRun retrieves a run by ID. Malformed IDs are rejected before querying.
func (r *RunRepository) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	runID, err := core.ParseRunID(id)
	if err != nil {
		return nil, err
	}
	var rec RunRecord
	err = r.db.GetContext(ctx, &rec, `
		SELECT run_id, mode, code_version, fingerprint, seed, replicates, alpha, effect_size, plan, blocks, row_count, started_at, finished_at
		FROM sim_runs
		WHERE run_id = $1
	`, runID.String())
	if err != nil {
		return nil, errors.ExternalServiceError("postgres", err)
	}
	return &rec, nil
}

// GetResults returns a run's result table in its original order
func (r *RunRepository) GetResults(ctx context.Context, id string) ([]sim.ResultRow, error) {
	runID, err := core.ParseRunID(id)
	if err != nil {
		return nil, err
	}
	var rows []sim.ResultRow
	err = r.db.SelectContext(ctx, &rows, `
		SELECT pi0, m, method, mean_fdp, mean_power, sd_fdp, sd_power
		FROM sim_results
		WHERE run_id = $1
		ORDER BY position
	`, runID.String())
	if err != nil {
		return nil, errors.ExternalServiceError("postgres", err)
	}
	return rows, nil
}

// GetTimings returns a run's timing table in its original order
func (r *RunRepository) GetTimings(ctx context.Context, id string) ([]sim.TimingRow, error) {
	runID, err := core.ParseRunID(id)
	if err != nil {
		return nil, err
	}
	var rows []sim.TimingRow
	err = r.db.SelectContext(ctx, &rows, `
		SELECT pi0, m, component, method, time_sec
		FROM sim_timings
		WHERE run_id = $1
		ORDER BY position
	`, runID.String())
	if err != nil {
		return nil, errors.ExternalServiceError("postgres", err)
	}
	return rows, nil
}

// FindByFingerprint lists runs that share a determinism fingerprint, newest first
func (r *RunRepository) FindByFingerprint(ctx context.Context, fingerprint core.Hash, limit int) ([]RunRecord, error) {
	query := `
		SELECT run_id, mode, code_version, fingerprint, seed, replicates, alpha, effect_size, plan, blocks, row_count, started_at, finished_at
		FROM sim_runs
		WHERE fingerprint = $1
		ORDER BY started_at DESC
	`
	args := []interface{}{fingerprint.String()}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	var recs []RunRecord
	if err := r.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, errors.ExternalServiceError("postgres", err)
	}
	return recs, nil
}
