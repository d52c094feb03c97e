package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/carlospaes120/scapegoat/burst"
	"github.com/carlospaes120/scapegoat/community"
	"github.com/carlospaes120/scapegoat/doseresponse"
	"github.com/carlospaes120/scapegoat/internal/value"
	"github.com/carlospaes120/scapegoat/pipeline"
	"github.com/carlospaes120/scapegoat/version"
)

// Summary is the content of summary.json.
type Summary struct {
	RunID         string    `json:"run_id,omitempty"`
	Case          string    `json:"case,omitempty"`
	Input         string    `json:"input,omitempty"`
	EngineVersion string    `json:"engine_version"`
	Started       time.Time `json:"started_at"`
	DurationMS    int64     `json:"duration_ms"`

	Window       string `json:"window"`
	Step         string `json:"step"`
	Windows      int    `json:"n_windows"`
	EmptyWindows int    `json:"n_empty_windows"`
	Interactions int    `json:"n_interactions"`
	Target       string `json:"target,omitempty"`

	Burst           burst.Metrics    `json:"burst"`
	Bursts          int              `json:"n_bursts"`
	Anomalies       []int            `json:"anomalies"`
	Statistics      burst.Statistics `json:"statistics"`
	TimeToIsolation value.Maybe[int] `json:"time_to_isolation"`
	PeakInShare     value.Maybe[int] `json:"peak_inshare_window"`
	InShareHalfLife value.Maybe[int] `json:"inshare_half_life"`

	// CommunityMethods counts the windows each detection method served.
	CommunityMethods  map[community.Method]int `json:"community_methods"`
	DegradedWindows   int                      `json:"n_degraded_community_windows"`
	UnconvergedWindow int                      `json:"n_pagerank_unconverged_windows"`

	DoseResponse []doseresponse.SummaryRow `json:"dose_response"`
	Thresholds   int                       `json:"n_threshold_effects"`
}

// NewSummary digests res.
func NewSummary(res *pipeline.Result, opts Options) Summary {
	s := Summary{
		RunID:            opts.RunID,
		Case:             opts.Case,
		Input:            opts.Input,
		EngineVersion:    version.EngineVersion,
		Started:          res.Started,
		DurationMS:       res.Duration.Milliseconds(),
		Window:           res.Config.Window.String(),
		Step:             res.Config.Step.String(),
		Windows:          len(res.Windows),
		Target:           res.Config.TargetID,
		Burst:            res.Timeline.Burst,
		Bursts:           len(res.Timeline.Periods),
		Anomalies:        res.Timeline.Anomalies,
		Statistics:       res.Timeline.Statistics,
		TimeToIsolation:  res.Timeline.TimeToIsolation,
		PeakInShare:      res.Timeline.PeakInShare,
		InShareHalfLife:  res.Timeline.InShareHalfLife,
		CommunityMethods: make(map[community.Method]int),
		DoseResponse:     doseresponse.Summarize(res.Analysis.Curves),
		Thresholds:       len(res.Analysis.Thresholds),
	}
	if s.Anomalies == nil {
		s.Anomalies = []int{}
	}
	for _, w := range res.Windows {
		rec := w.Record
		s.Interactions += rec.Interactions
		if rec.Interactions == 0 {
			s.EmptyWindows++
		}
		s.CommunityMethods[rec.CommunityMethod]++
		if rec.CommunityDegraded {
			s.DegradedWindows++
		}
		if !rec.PageRankConverged {
			s.UnconvergedWindow++
		}
	}
	return s
}

// WriteSummary writes s as indented JSON.
func WriteSummary(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
