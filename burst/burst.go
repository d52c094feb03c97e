// Package burst finds escalation episodes in a per-window series such as the
// interaction count of each window. Everything here is a pure function of the
// series; NaN entries never cross a threshold and are ignored by statistics.
package burst

import (
	"math"

	"github.com/carlospaes120/scapegoat/errors"
	"github.com/carlospaes120/scapegoat/internal/stats"
)

// ThresholdMethod selects how a burst threshold is derived from the series.
type ThresholdMethod string

const (
	// ThresholdPercentile uses the Value-th percentile (0-100) of the series.
	ThresholdPercentile ThresholdMethod = "percentile"
	// ThresholdStd uses mean + Value * population std.
	ThresholdStd ThresholdMethod = "std"
	// ThresholdFixed uses Value itself.
	ThresholdFixed ThresholdMethod = "fixed"
)

// Threshold is a method and its parameter.
type Threshold struct {
	Method ThresholdMethod `mapstructure:"method" json:"method"`
	Value  float64         `mapstructure:"value" json:"value"`
}

// DefaultThreshold is the 95th percentile.
func DefaultThreshold() Threshold {
	return Threshold{Method: ThresholdPercentile, Value: 95}
}

// Resolve returns the numeric threshold for series.
func (t Threshold) Resolve(series []float64) (float64, error) {
	finite := stats.Finite(series)
	switch t.Method {
	case ThresholdPercentile:
		if t.Value < 0 || t.Value > 100 {
			return 0, errors.NewInvalidRequestError("percentile threshold %v outside [0, 100]", t.Value)
		}
		return stats.Percentile(finite, t.Value/100), nil
	case ThresholdStd:
		return stats.Mean(finite) + t.Value*stats.PopStd(finite), nil
	case ThresholdFixed:
		return t.Value, nil
	default:
		return 0, errors.WithHint(
			errors.NewInvalidRequestError("unknown threshold method %q", t.Method),
			"use one of: percentile, std, fixed",
		)
	}
}

// Span is a half-open index range [Start, End) of consecutive burst windows.
type Span struct {
	Start int `json:"start_index"`
	End   int `json:"end_index"`
}

// Len is the number of windows in the span.
func (s Span) Len() int { return s.End - s.Start }

// DetectBursts returns the maximal runs where series[i] >= threshold that are
// at least minLength long. An empty series has no bursts.
func DetectBursts(series []float64, th Threshold, minLength int) ([]Span, error) {
	if len(series) == 0 {
		return nil, nil
	}
	level, err := th.Resolve(series)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(level) {
		return nil, nil
	}
	if minLength < 1 {
		minLength = 1
	}

	var spans []Span
	start := -1
	for i, x := range series {
		in := x >= level
		switch {
		case in && start < 0:
			start = i
		case !in && start >= 0:
			if i-start >= minLength {
				spans = append(spans, Span{Start: start, End: i})
			}
			start = -1
		}
	}
	if start >= 0 && len(series)-start >= minLength {
		spans = append(spans, Span{Start: start, End: len(series)})
	}
	return spans, nil
}

// Period describes one detected burst.
type Period struct {
	ID         int     `json:"burst_id"`
	StartIndex int     `json:"start_index"`
	EndIndex   int     `json:"end_index"`
	Duration   int     `json:"duration"`
	PeakValue  float64 `json:"peak_value"`
	MeanValue  float64 `json:"mean_value"`
	TotalValue float64 `json:"total_value"`
	Intensity  float64 `json:"intensity"`
}

// DefaultBaselinePercentile is the low percentile used as the quiet level.
const DefaultBaselinePercentile = 10.0

// Periods runs DetectBursts and describes each span. Intensity is the span
// mean over the series' baselinePercentile value, or the span mean itself
// when that baseline is not positive.
func Periods(series []float64, th Threshold, minLength int, baselinePercentile float64) ([]Period, error) {
	spans, err := DetectBursts(series, th, minLength)
	if err != nil {
		return nil, err
	}
	baseline := stats.Percentile(stats.Finite(series), baselinePercentile/100)

	periods := make([]Period, 0, len(spans))
	for i, sp := range spans {
		vals := stats.Finite(series[sp.Start:sp.End])
		p := Period{
			ID:         i,
			StartIndex: sp.Start,
			EndIndex:   sp.End,
			Duration:   sp.Len(),
		}
		if len(vals) > 0 {
			_, p.PeakValue = stats.Range(vals)
			p.MeanValue = stats.Mean(vals)
			for _, v := range vals {
				p.TotalValue += v
			}
		}
		p.Intensity = ratio(p.MeanValue, baseline)
		periods = append(periods, p)
	}
	return periods, nil
}

// Intensity is the mean of values over their baselinePercentile value, or
// the mean itself when that baseline is not positive. 0 for no values.
func Intensity(values []float64, baselinePercentile float64) float64 {
	finite := stats.Finite(values)
	if len(finite) == 0 {
		return 0
	}
	return ratio(stats.Mean(finite), stats.Percentile(finite, baselinePercentile/100))
}

func ratio(v, baseline float64) float64 {
	if baseline > 0 {
		return v / baseline
	}
	return v
}

// AnomalyMethod selects the outlier rule.
type AnomalyMethod string

const (
	// AnomalyIQR flags values outside [q25 - k*iqr, q75 + k*iqr].
	AnomalyIQR AnomalyMethod = "iqr"
	// AnomalyZScore flags values with |x - mean| / std > k (sample std).
	AnomalyZScore AnomalyMethod = "zscore"
)

// Anomalies returns the indices of series flagged by method with parameter k.
func Anomalies(series []float64, method AnomalyMethod, k float64) ([]int, error) {
	finite := stats.Finite(series)
	var flag func(x float64) bool
	switch method {
	case AnomalyIQR:
		if len(finite) == 0 {
			return nil, nil
		}
		q25 := stats.Percentile(finite, 0.25)
		q75 := stats.Percentile(finite, 0.75)
		iqr := q75 - q25
		lo, hi := q25-k*iqr, q75+k*iqr
		flag = func(x float64) bool { return x < lo || x > hi }
	case AnomalyZScore:
		mean, std := stats.Mean(finite), stats.SampleStd(finite)
		if math.IsNaN(std) || std == 0 {
			return nil, nil
		}
		flag = func(x float64) bool { return math.Abs(x-mean)/std > k }
	default:
		return nil, errors.WithHint(
			errors.NewInvalidRequestError("unknown anomaly method %q", method),
			"use one of: iqr, zscore",
		)
	}

	var out []int
	for i, x := range series {
		if !math.IsNaN(x) && flag(x) {
			out = append(out, i)
		}
	}
	return out, nil
}
