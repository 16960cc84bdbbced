package format_test

import (
	"strings"
	"testing"

	"mhtsim/domain/sim"
	"mhtsim/internal/format"
)

func TestASCII_BasicTable(t *testing.T) {
	tb := format.NewTable(format.ASCII)
	tb.Header("M", "method")
	tb.Row(16, "bh")
	out := tb.String()

	if !strings.Contains(strings.ToLower(out), "method") || !strings.Contains(out, "bh") {
		t.Errorf("expected header and row in output:\n%s", out)
	}
	if !strings.Contains(out, "─") {
		t.Errorf("expected box-drawing characters in ASCII output:\n%s", out)
	}
}

func TestMarkdown_ResultsTable(t *testing.T) {
	rows := []sim.ResultRow{{Pi0: 0.5, M: 8, Method: sim.MethodBH, MeanFDP: 0.0312, MeanPower: 0.81234}}
	out := format.ResultsTable(format.Markdown, rows)

	if !strings.Contains(strings.ToLower(out), "| π0") {
		t.Errorf("expected markdown header:\n%s", out)
	}
	if !strings.Contains(out, "---") {
		t.Errorf("expected markdown separator:\n%s", out)
	}
	for _, want := range []string{"0.50", "bh", "0.0312", "0.8123"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestTimingTable_Total(t *testing.T) {
	rows := []sim.TimingRow{
		{Pi0: 0.5, M: 8, Component: sim.ComponentDGP, Seconds: 0.002},
		{Pi0: 0.5, M: 8, Component: sim.ComponentMethod, Method: sim.MethodBH, Seconds: 0.001},
	}
	out := format.TimingTable(format.ASCII, rows)
	if !strings.Contains(out, "3.000") {
		t.Errorf("expected total of 3.000 ms:\n%s", out)
	}
}

func TestFixed(t *testing.T) {
	if got := format.Fixed(0.123456); got != "0.1235" {
		t.Errorf("Fixed = %s", got)
	}
}
