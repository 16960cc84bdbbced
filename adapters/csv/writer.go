package csv

import (
	"context"
	encodingcsv "encoding/csv"
	"os"
	"path/filepath"

	"mhtsim/domain/run"
	"mhtsim/domain/sim"
	"mhtsim/internal"
	"mhtsim/internal/errors"
)

// Writer stores the summary table and, when a path is configured, the timing
// table as comma-separated files.
type Writer struct {
	resultsPath string
	timingPath  string
	logger      *internal.Logger
}

// NewWriter creates a CSV sink. An empty timingPath skips the timing table.
func NewWriter(resultsPath, timingPath string, logger *internal.Logger) *Writer {
	return &Writer{
		resultsPath: resultsPath,
		timingPath:  timingPath,
		logger:      internal.OrDefault(logger).With("csv"),
	}
}

func (w *Writer) Name() string { return "csv" }

// Write creates parent directories as needed and overwrites existing files.
func (w *Writer) Write(ctx context.Context, manifest *run.Manifest, results []sim.ResultRow, timings []sim.TimingRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records := make([][]string, 0, len(results)+1)
	records = append(records, sim.ResultColumns)
	for _, r := range results {
		records = append(records, r.Record())
	}
	if err := writeFile(w.resultsPath, records); err != nil {
		return err
	}
	w.logger.Info("run %s: wrote %d result rows to %s", manifest.RunID, len(results), w.resultsPath)

	if w.timingPath == "" || len(timings) == 0 {
		return nil
	}
	records = make([][]string, 0, len(timings)+1)
	records = append(records, sim.TimingColumns)
	for _, t := range timings {
		records = append(records, t.Record())
	}
	if err := writeFile(w.timingPath, records); err != nil {
		return err
	}
	w.logger.Info("run %s: wrote %d timing rows to %s", manifest.RunID, len(timings), w.timingPath)
	return nil
}

func writeFile(path string, records [][]string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer file.Close()

	writer := encodingcsv.NewWriter(file)
	if err := writer.WriteAll(records); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return file.Close()
}
