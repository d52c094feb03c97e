package doseresponse

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/carlospaes120/scapegoat/internal/value"
)

// strongestN is how many rows the "strongest relationships" section lists.
const strongestN = 5

// WriteReport renders the plain-text dose-response report: a summary table,
// the strongest relationships by |correlation|, those with R² above 0.5,
// per-factor curve details, and any threshold effects.
func WriteReport(w io.Writer, curves []Curve, effects []ThresholdReport) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...interface{}) { fmt.Fprintf(bw, format+"\n", args...) }

	p("# Dose-Response Analysis Report")
	p("%s", strings.Repeat("=", 50))
	p("")

	rows := Summarize(curves)
	if len(rows) > 0 {
		p("## Summary Statistics")
		p("")
		writeRows(bw, rows, true)
		p("")

		strongest := make([]SummaryRow, len(rows))
		copy(strongest, rows)
		sort.SliceStable(strongest, func(i, j int) bool {
			return absOr(strongest[i].Correlation) > absOr(strongest[j].Correlation)
		})
		if len(strongest) > strongestN {
			strongest = strongest[:strongestN]
		}
		p("## Strongest Relationships (by |correlation|)")
		p("")
		writeRows(bw, strongest, false)
		p("")

		var significant []SummaryRow
		for _, r := range rows {
			if r2, ok := r.R2.Get(); ok && r2 > 0.5 {
				significant = append(significant, r)
			}
		}
		if len(significant) > 0 {
			p("## Significant Relationships (R² > 0.5)")
			p("")
			writeRows(bw, significant, false)
			p("")
		}
	}

	var factor string
	for i := range curves {
		c := &curves[i]
		if c.Factor != factor {
			factor = c.Factor
			p("## Factor: %s", factor)
			p("")
		}
		p("### Response: %s", c.Response)
		p("- Slope: %.4f", c.Slope)
		p("- Intercept: %.4f", c.Intercept)
		p("- R²: %s", format4(c.R2))
		p("- Correlation: %s", format4(c.Correlation))
		p("- Number of bins: %d (%s)", c.NBins(), c.Binning)
		p("- Total samples: %d", c.TotalSamples)
		p("")
	}

	if len(effects) > 0 {
		p("## Threshold Effects")
		p("")
		for _, e := range effects {
			p("### %s on %s (%s split at %.4f)", e.Factor, e.Response, e.Method, e.Threshold)
			p("- Low:  n=%d mean=%.4f", e.Low.Samples, e.Low.Mean)
			p("- High: n=%d mean=%.4f", e.High.Samples, e.High.Mean)
			p("- Welch t: %s (df %s, p %s)", format4(e.TStatistic), format4(e.DF), format4(e.PValue))
			p("- Cohen's d: %s (%s)", format4(e.CohensD), e.EffectSize)
			p("")
		}
	}
	return bw.Flush()
}

func writeRows(w io.Writer, rows []SummaryRow, full bool) {
	fw, rw := len("factor"), len("response")
	for _, r := range rows {
		fw = max(fw, len(r.Factor))
		rw = max(rw, len(r.Response))
	}
	if full {
		fmt.Fprintf(w, "%-*s  %-*s  %10s  %10s  %8s  %11s  %6s  %13s\n",
			fw, "factor", rw, "response", "slope", "intercept", "r2", "correlation", "n_bins", "total_samples")
		for _, r := range rows {
			fmt.Fprintf(w, "%-*s  %-*s  %10.4f  %10.4f  %8s  %11s  %6d  %13d\n",
				fw, r.Factor, rw, r.Response, r.Slope, r.Intercept,
				format4(r.R2), format4(r.Correlation), r.NBins, r.TotalSamples)
		}
		return
	}
	fmt.Fprintf(w, "%-*s  %-*s  %11s  %8s\n", fw, "factor", rw, "response", "correlation", "r2")
	for _, r := range rows {
		fmt.Fprintf(w, "%-*s  %-*s  %11s  %8s\n", fw, r.Factor, rw, r.Response, format4(r.Correlation), format4(r.R2))
	}
}

func format4(m value.Maybe[float64]) string {
	if v, ok := m.Get(); ok {
		return fmt.Sprintf("%.4f", v)
	}
	return "NaN"
}

func absOr(m value.Maybe[float64]) float64 {
	if v, ok := m.Get(); ok {
		return math.Abs(v)
	}
	return -1
}
