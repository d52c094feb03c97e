// Package report writes a run's result files into an output directory.
//
// Layout:
//
//	metrics_by_window.csv
//	communities/window_<i>.csv      (node_id,community_id)
//	node_ranks/window_<i>.csv       (node_id,pagerank,betweenness,in_degree,out_degree)
//	bursts.csv
//	dose_response.csv
//	threshold_effects.csv
//	interaction_effects.csv
//	dose_response_report.txt
//	summary.json
//
// Undefined values are written as NaN in CSV files and null in JSON.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/carlospaes120/scapegoat/am"
	"github.com/carlospaes120/scapegoat/burst"
	"github.com/carlospaes120/scapegoat/community"
	"github.com/carlospaes120/scapegoat/doseresponse"
	"github.com/carlospaes120/scapegoat/errors"
	"github.com/carlospaes120/scapegoat/internal/value"
	"github.com/carlospaes120/scapegoat/logger"
	"github.com/carlospaes120/scapegoat/metrics"
	"github.com/carlospaes120/scapegoat/pipeline"
)

// Output file names.
const (
	MetricsFile      = "metrics_by_window.csv"
	CommunitiesDir   = "communities"
	RanksDir         = "node_ranks"
	BurstsFile       = "bursts.csv"
	DoseResponseFile = "dose_response.csv"
	ThresholdsFile   = "threshold_effects.csv"
	InteractionsFile = "interaction_effects.csv"
	ReportFile       = "dose_response_report.txt"
	SummaryFile      = "summary.json"
)

// Options selects the optional outputs.
type Options struct {
	Dir             string
	SaveCommunities bool
	SaveRanks       bool
	// RunID and Case are echoed into summary.json when set.
	RunID string
	Case  string
	Input string
}

// Write writes every output of res under opts.Dir and returns the written
// paths in order.
func Write(res *pipeline.Result, opts Options, log *zap.SugaredLogger) ([]string, error) {
	if log == nil {
		log = logger.Logger
	}
	log = log.Named("report")
	if err := os.MkdirAll(opts.Dir, am.DefaultDirPermissions); err != nil {
		return nil, errors.Wrapf(err, "create output directory %s", opts.Dir)
	}

	var written []string
	file := func(rel string, fn func(io.Writer) error) error {
		path := filepath.Join(opts.Dir, rel)
		if err := writeFile(path, fn); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	if err := file(MetricsFile, func(w io.Writer) error { return WriteMetrics(w, res) }); err != nil {
		return written, err
	}

	if opts.SaveCommunities {
		for _, win := range res.Windows {
			p := win.Partition
			if err := file(windowFile(CommunitiesDir, win.Record.Window), func(w io.Writer) error { return WriteCommunities(w, p) }); err != nil {
				return written, err
			}
		}
	}
	if opts.SaveRanks {
		for _, win := range res.Windows {
			nodes := win.Nodes
			if err := file(windowFile(RanksDir, win.Record.Window), func(w io.Writer) error { return WriteRanks(w, nodes) }); err != nil {
				return written, err
			}
		}
	}

	outputs := []struct {
		name string
		fn   func(io.Writer) error
	}{
		{BurstsFile, func(w io.Writer) error { return WriteBursts(w, res.Timeline.Periods) }},
		{DoseResponseFile, func(w io.Writer) error { return WriteDoseResponse(w, res.Analysis.Curves) }},
		{ThresholdsFile, func(w io.Writer) error { return WriteThresholds(w, res.Analysis.Thresholds) }},
		{InteractionsFile, func(w io.Writer) error { return WriteInteractions(w, res.Analysis.Interactions) }},
		{ReportFile, func(w io.Writer) error {
			return doseresponse.WriteReport(w, res.Analysis.Curves, res.Analysis.Thresholds)
		}},
		{SummaryFile, func(w io.Writer) error { return WriteSummary(w, NewSummary(res, opts)) }},
	}
	for _, o := range outputs {
		if err := file(o.name, o.fn); err != nil {
			return written, err
		}
	}

	log.Infow("Results written",
		logger.FieldPath, opts.Dir,
		logger.FieldCount, len(written))
	return written, nil
}

func windowFile(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("window_%d.csv", i))
}

func writeFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), am.DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, am.DefaultFilePermissions)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := fn(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

func ftoa(x float64) string { return strconv.FormatFloat(x, 'g', -1, 64) }

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// MetricsHeader is the metrics_by_window.csv header for records shaped like
// rec: the window columns, then rec's numeric columns in order.
func MetricsHeader(rec *metrics.Record) []string {
	header := []string{"window", "t_start", "t_end", "leader", "community_method"}
	for _, c := range rec.Columns() {
		header = append(header, c.Name)
	}
	return header
}

// WriteMetrics writes the window table.
func WriteMetrics(w io.Writer, res *pipeline.Result) error {
	var shape metrics.Record
	if len(res.Windows) > 0 {
		shape = res.Windows[0].Record
	} else {
		for _, k := range res.Config.Metrics.TopK {
			shape.TopK = append(shape.TopK, metrics.Concentration{K: k})
		}
		shape.Factors = make(map[string]value.Maybe[float64])
		for _, f := range res.Config.FactorNames() {
			shape.Factors[f] = value.Undefined[float64]()
		}
	}

	rows := make([][]string, 0, len(res.Windows))
	for i := range res.Windows {
		rec := &res.Windows[i].Record
		row := []string{
			strconv.Itoa(rec.Window),
			rec.Start.UTC().Format(time.RFC3339),
			rec.End.UTC().Format(time.RFC3339),
			rec.Leader,
			string(rec.CommunityMethod),
		}
		for _, c := range rec.Columns() {
			row = append(row, value.FormatFloat(c.Value))
		}
		rows = append(rows, row)
	}
	return writeCSV(w, MetricsHeader(&shape), rows)
}

// WriteCommunities writes one window's partition sorted by node id.
func WriteCommunities(w io.Writer, p community.Partition) error {
	nodes := p.Nodes()
	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		rows[i] = []string{n, strconv.Itoa(p[n])}
	}
	return writeCSV(w, []string{"node_id", "community_id"}, rows)
}

// WriteRanks writes one window's node records, highest PageRank first.
func WriteRanks(w io.Writer, nodes []metrics.NodeRecord) error {
	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		rows[i] = []string{
			n.Node,
			ftoa(n.PageRank),
			ftoa(n.Betweenness),
			strconv.Itoa(n.InDegree),
			strconv.Itoa(n.OutDegree),
			value.FormatInt(n.Community),
		}
	}
	return writeCSV(w, []string{"node_id", "pagerank", "betweenness", "in_degree", "out_degree", "community_id"}, rows)
}

// WriteBursts writes the detected burst periods.
func WriteBursts(w io.Writer, periods []burst.Period) error {
	rows := make([][]string, len(periods))
	for i, p := range periods {
		rows[i] = []string{
			strconv.Itoa(p.ID),
			strconv.Itoa(p.StartIndex),
			strconv.Itoa(p.EndIndex),
			strconv.Itoa(p.Duration),
			ftoa(p.PeakValue),
			ftoa(p.MeanValue),
			ftoa(p.TotalValue),
			ftoa(p.Intensity),
		}
	}
	return writeCSV(w, []string{"burst_id", "start_index", "end_index", "duration", "peak_value", "mean_value", "total_value", "intensity"}, rows)
}

// WriteDoseResponse writes the curve summary table.
func WriteDoseResponse(w io.Writer, curves []doseresponse.Curve) error {
	summary := doseresponse.Summarize(curves)
	rows := make([][]string, len(summary))
	for i, r := range summary {
		rows[i] = []string{
			r.Factor,
			r.Response,
			ftoa(r.Slope),
			ftoa(r.Intercept),
			value.FormatFloat(r.R2),
			value.FormatFloat(r.Correlation),
			strconv.Itoa(r.NBins),
			strconv.Itoa(r.TotalSamples),
		}
	}
	return writeCSV(w, []string{"factor", "response", "slope", "intercept", "r2", "correlation", "n_bins", "total_samples"}, rows)
}

// WriteThresholds writes the low/high split comparisons.
func WriteThresholds(w io.Writer, reports []doseresponse.ThresholdReport) error {
	rows := make([][]string, len(reports))
	for i, r := range reports {
		rows[i] = []string{
			r.Factor,
			r.Response,
			string(r.Method),
			ftoa(r.Threshold),
			strconv.Itoa(r.Low.Samples),
			ftoa(r.Low.Mean),
			strconv.Itoa(r.High.Samples),
			ftoa(r.High.Mean),
			value.FormatFloat(r.TStatistic),
			value.FormatFloat(r.DF),
			value.FormatFloat(r.PValue),
			value.FormatFloat(r.CohensD),
			r.EffectSize,
		}
	}
	return writeCSV(w, []string{
		"factor", "response", "threshold_method", "threshold",
		"low_n", "low_mean", "high_n", "high_mean",
		"t_statistic", "df", "p_value", "cohens_d", "effect_size",
	}, rows)
}

// WriteInteractions writes the two-factor comparisons.
func WriteInteractions(w io.Writer, reports []doseresponse.InteractionReport) error {
	rows := make([][]string, len(reports))
	for i, r := range reports {
		rows[i] = []string{
			r.Factor1,
			r.Factor2,
			r.Response,
			value.FormatFloat(r.LowLow),
			value.FormatFloat(r.LowHigh),
			value.FormatFloat(r.HighLow),
			value.FormatFloat(r.HighHigh),
			value.FormatFloat(r.MainEffect1),
			value.FormatFloat(r.MainEffect2),
			value.FormatFloat(r.InteractionEffect),
			strconv.Itoa(r.Samples),
		}
	}
	return writeCSV(w, []string{
		"factor_1", "factor_2", "response",
		"low_low", "low_high", "high_low", "high_high",
		"main_effect_1", "main_effect_2", "interaction_effect", "n_samples",
	}, rows)
}
