package pipeline

import (
	"math"
	"time"

	"github.com/carlospaes120/scapegoat/burst"
	"github.com/carlospaes120/scapegoat/community"
	"github.com/carlospaes120/scapegoat/doseresponse"
	"github.com/carlospaes120/scapegoat/internal/value"
	"github.com/carlospaes120/scapegoat/metrics"
	"github.com/carlospaes120/scapegoat/window"
)

// WindowResult is everything computed for one window.
type WindowResult struct {
	metrics.Result
	Partition community.Partition `json:"partition"`
	Summary   window.Summary      `json:"summary"`
}

// Timeline is the ordered, run-level view of the activity series.
type Timeline struct {
	Burst      burst.Metrics    `json:"burst"`
	Periods    []burst.Period   `json:"periods"`
	Statistics burst.Statistics `json:"statistics"`
	Evolution  burst.Evolution  `json:"evolution"`
	Anomalies  []int            `json:"anomalies"`

	// TimeToIsolation is the first window index in which the target is
	// isolated, when at least IsolationMinWindows windows are.
	TimeToIsolation value.Maybe[int] `json:"time_to_isolation"`
	// PeakInShare is the window of the target's highest in-share, and
	// InShareHalfLife the windows it takes to fall halfway back to the first
	// window's value.
	PeakInShare     value.Maybe[int] `json:"peak_inshare_window"`
	InShareHalfLife value.Maybe[int] `json:"inshare_half_life"`
}

// Analysis is the dose-response output over the window table.
type Analysis struct {
	Factors      []string                         `json:"factors"`
	Responses    []string                         `json:"responses"`
	Curves       []doseresponse.Curve             `json:"curves"`
	Thresholds   []doseresponse.ThresholdReport   `json:"threshold_effects"`
	Interactions []doseresponse.InteractionReport `json:"interaction_effects"`
}

// Result is a complete run.
type Result struct {
	Config   Config         `json:"-"`
	Started  time.Time      `json:"started"`
	Duration time.Duration  `json:"duration"`
	Windows  []WindowResult `json:"windows"`
	Timeline Timeline       `json:"timeline"`
	Analysis Analysis       `json:"dose_response"`
}

// Records returns the window table in window order.
func (r *Result) Records() []metrics.Record {
	out := make([]metrics.Record, len(r.Windows))
	for i := range r.Windows {
		out[i] = r.Windows[i].Record
	}
	return out
}

// Series returns one window-table column as floats, NaN where undefined or
// where the column is absent.
func (r *Result) Series(column string) []float64 {
	out := make([]float64, len(r.Windows))
	for i := range r.Windows {
		if v, ok := r.Windows[i].Record.Column(column); ok {
			out[i] = value.Float64(v)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Frame returns the window table as a dose-response frame.
func (r *Result) Frame() *doseresponse.Frame {
	return doseresponse.FromRecords(r.Records())
}
