package excel

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"mhtsim/domain/run"
	"mhtsim/domain/sim"
	"mhtsim/internal"
	"mhtsim/internal/errors"
)

// Writer stores a run as one workbook with results, timing and run sheets
type Writer struct {
	path   string
	logger *internal.Logger
}

// NewWriter creates an xlsx sink
func NewWriter(path string, logger *internal.Logger) *Writer {
	return &Writer{path: path, logger: internal.OrDefault(logger).With("excel")}
}

func (w *Writer) Name() string { return "xlsx" }

func (w *Writer) Write(ctx context.Context, manifest *run.Manifest, results []sim.ResultRow, timings []sim.TimingRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "failed to create header style")
	}

	if err := f.SetSheetName("Sheet1", SheetResults); err != nil {
		return errors.Wrap(err, "failed to rename default sheet")
	}
	resultRows := make([][]interface{}, len(results))
	for i, r := range results {
		resultRows[i] = []interface{}{r.Pi0, r.M, string(r.Method), r.MeanFDP, r.MeanPower, r.SDFDP, r.SDPower}
	}
	if err := writeSheet(f, SheetResults, sim.ResultColumns, resultRows, header); err != nil {
		return err
	}

	if len(timings) > 0 {
		if _, err := f.NewSheet(SheetTiming); err != nil {
			return errors.Wrap(err, "failed to add timing sheet")
		}
		timingRows := make([][]interface{}, len(timings))
		for i, t := range timings {
			timingRows[i] = []interface{}{t.Pi0, t.M, string(t.Component), string(t.Method), t.Seconds}
		}
		if err := writeSheet(f, SheetTiming, sim.TimingColumns, timingRows, header); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetRun); err != nil {
		return errors.Wrap(err, "failed to add run sheet")
	}
	if err := writeSheet(f, SheetRun, []string{"key", "value"}, runRows(manifest), header); err != nil {
		return err
	}

	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}
	if err := f.SaveAs(w.path); err != nil {
		return errors.Wrapf(err, "failed to save %s", w.path)
	}
	w.logger.Info("run %s: wrote workbook %s (%d results, %d timings)", manifest.RunID, w.path, len(results), len(timings))
	return nil
}

func runRows(m *run.Manifest) [][]interface{} {
	return [][]interface{}{
		{"run_id", m.RunID.String()},
		{"mode", string(m.Mode)},
		{"fingerprint", m.Fingerprint.Fingerprint.String()},
		{"code_version", m.CodeVersion},
		{"seed", m.Plan.Seed},
		{"replicates", m.Plan.Replicates},
		{"alpha", m.Plan.Alpha},
		{"effect_size", m.Plan.EffectSize},
		{"pattern", string(m.Plan.Pattern)},
		{"started_at", m.StartedAt.Time().Format(time.RFC3339)},
		{"finished_at", m.FinishedAt.Time().Format(time.RFC3339)},
	}
}

func writeSheet(f *excelize.File, sheet string, columns []string, rows [][]interface{}, headerStyle int) error {
	headerRow := make([]interface{}, len(columns))
	for i, c := range columns {
		headerRow[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return errors.Wrapf(err, "failed to write %s header", sheet)
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return errors.Wrap(err, "invalid header range")
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return errors.Wrapf(err, "failed to style %s header", sheet)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "invalid row coordinate")
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "failed to write %s row %d", sheet, i+2)
		}
	}
	return nil
}
