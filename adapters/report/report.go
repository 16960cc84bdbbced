package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"mhtsim/domain/run"
	"mhtsim/domain/sim"
	"mhtsim/internal"
	"mhtsim/internal/errors"
	"mhtsim/internal/format"
	"mhtsim/internal/profiling"
)

const title = "Multiple testing simulation"

// Writer renders a run as a Markdown report, converted to a standalone HTML
// page unless the target path ends in .md
type Writer struct {
	path   string
	logger *internal.Logger
}

// NewWriter creates a report sink
func NewWriter(path string, logger *internal.Logger) *Writer {
	return &Writer{path: path, logger: internal.OrDefault(logger).With("report")}
}

func (w *Writer) Name() string { return "report" }

func (w *Writer) Write(ctx context.Context, manifest *run.Manifest, results []sim.ResultRow, timings []sim.TimingRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	md, err := Markdown(manifest, results, timings)
	if err != nil {
		return err
	}
	out := md
	if !strings.EqualFold(filepath.Ext(w.path), ".md") {
		out = HTML(md)
	}

	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}
	if err := os.WriteFile(w.path, out, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write report %s", w.path)
	}
	w.logger.Info("run %s: wrote report %s", manifest.RunID, w.path)
	return nil
}

// Markdown builds the report source: run parameters, one results table per
// π0 in table order and, when timings are present, a phase summary.
func Markdown(manifest *run.Manifest, results []sim.ResultRow, timings []sim.TimingRow) ([]byte, error) {
	var buf bytes.Buffer
	plan := manifest.Plan

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "- run: `%s` (%s)\n", manifest.RunID, manifest.Mode)
	fmt.Fprintf(&buf, "- fingerprint: `%s`\n", manifest.Fingerprint.Fingerprint.Short())
	fmt.Fprintf(&buf, "- replicates: %d, α = %v, L = %v, pattern: %s, seed: %d\n",
		plan.Replicates, plan.Alpha, plan.EffectSize, plan.Pattern, plan.Seed)
	if d := manifest.Duration(); d > 0 {
		fmt.Fprintf(&buf, "- wall time: %.2fs\n", d)
	}
	buf.WriteString("\n")

	for _, group := range groupByPi0(results) {
		fmt.Fprintf(&buf, "## π0 = %.2f\n\n", group[0].Pi0)
		buf.WriteString(format.ResultsTable(format.Markdown, group))
		buf.WriteString("\n\n")
	}

	if len(timings) > 0 {
		phases, err := profiling.SummarizePhases(timings)
		if err != nil {
			return nil, errors.Wrap(err, "failed to summarize timings")
		}
		buf.WriteString("## Timing\n\n")
		tb := format.NewTable(format.Markdown)
		tb.Header("component", "method", "blocks", "total s", "mean s", "median s", "max s")
		for _, p := range phases {
			tb.Row(string(p.Component), string(p.Method), p.Blocks,
				fmt.Sprintf("%.6f", p.Total), fmt.Sprintf("%.6f", p.Mean), fmt.Sprintf("%.6f", p.Median), fmt.Sprintf("%.6f", p.Max))
		}
		buf.WriteString(tb.String())
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// HTML converts report Markdown into a complete HTML page
func HTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML(md, p, renderer)
}

// groupByPi0 splits rows into runs of equal π0, keeping first-seen order
func groupByPi0(rows []sim.ResultRow) [][]sim.ResultRow {
	var groups [][]sim.ResultRow
	index := map[float64]int{}
	for _, r := range rows {
		i, ok := index[r.Pi0]
		if !ok {
			i = len(groups)
			index[r.Pi0] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}
	return groups
}
