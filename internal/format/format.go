package format

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"mhtsim/domain/sim"
)

// Mode controls the output format.
type Mode int

const (
	ASCII    Mode = iota // Fixed-width terminal tables
	Markdown             // GitHub-flavoured Markdown tables
)

// TableBuilder builds a table once and renders it in the Mode set at creation.
type TableBuilder interface {
	Header(cols ...string)
	Row(vals ...any)
	Footer(vals ...any)
	AlignRight(columns ...int)
	String() string
}

// NewTable returns a TableBuilder that renders in the given Mode.
func NewTable(m Mode) TableBuilder {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	// keep headers as written; π0 must not become Π0
	w.Style().Format.Header = text.FormatDefault
	w.Style().Format.Footer = text.FormatDefault
	return &prettyAdapter{writer: w, mode: m}
}

type prettyAdapter struct {
	writer table.Writer
	mode   Mode
}

func (a *prettyAdapter) Header(cols ...string) {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	a.writer.AppendHeader(row)
}

func (a *prettyAdapter) Row(vals ...any) {
	row := make(table.Row, len(vals))
	copy(row, vals)
	a.writer.AppendRow(row)
}

func (a *prettyAdapter) Footer(vals ...any) {
	row := make(table.Row, len(vals))
	copy(row, vals)
	a.writer.AppendFooter(row)
}

// AlignRight right-aligns the given 1-based columns
func (a *prettyAdapter) AlignRight(columns ...int) {
	cfgs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		cfgs[i] = table.ColumnConfig{Number: c, Align: text.AlignRight}
	}
	a.writer.SetColumnConfigs(cfgs)
}

func (a *prettyAdapter) String() string {
	if a.mode == Markdown {
		return a.writer.RenderMarkdown()
	}
	return a.writer.Render()
}

// Fixed renders a metric with four decimals
func Fixed(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

// ResultsTable lays out summary rows in method-major column order
func ResultsTable(m Mode, rows []sim.ResultRow) string {
	tb := NewTable(m)
	tb.Header("π0", "M", "method", "mean FDP", "mean power", "sd FDP", "sd power")
	for _, r := range rows {
		tb.Row(fmt.Sprintf("%.2f", r.Pi0), r.M, string(r.Method), Fixed(r.MeanFDP), Fixed(r.MeanPower), Fixed(r.SDFDP), Fixed(r.SDPower))
	}
	tb.AlignRight(2, 4, 5, 6, 7)
	return tb.String()
}

// TimingTable lays out timing rows; seconds are shown in milliseconds
func TimingTable(m Mode, rows []sim.TimingRow) string {
	tb := NewTable(m)
	tb.Header("π0", "M", "component", "method", "ms")
	var total float64
	for _, r := range rows {
		tb.Row(fmt.Sprintf("%.2f", r.Pi0), r.M, string(r.Component), string(r.Method), fmt.Sprintf("%.3f", r.Seconds*1e3))
		total += r.Seconds
	}
	tb.Footer("", "", "", "total", fmt.Sprintf("%.3f", total*1e3))
	tb.AlignRight(2, 5)
	return tb.String()
}
