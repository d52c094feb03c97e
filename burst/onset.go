package burst

import (
	"math"

	"github.com/carlospaes120/scapegoat/errors"
	"github.com/carlospaes120/scapegoat/internal/stats"
	"github.com/carlospaes120/scapegoat/internal/value"
)

// DefaultOnsetThreshold is the interaction count that marks escalation.
const DefaultOnsetThreshold = 3.0

// ClimaxMethod selects how the climax is located after the onset.
type ClimaxMethod string

const (
	// ClimaxGlobal is the first maximum on or after the onset.
	ClimaxGlobal ClimaxMethod = "global_max"
	// ClimaxLocal is the first local peak with prominence of at least 0.1,
	// falling back to ClimaxGlobal when there is none.
	ClimaxLocal ClimaxMethod = "local_max"
	// ClimaxSmoothed is the maximum of a centred rolling mean.
	ClimaxSmoothed ClimaxMethod = "smoothed"
)

// Climax configures climax detection. Window is the rolling width for
// ClimaxSmoothed.
type Climax struct {
	Method ClimaxMethod `mapstructure:"method" json:"method"`
	Window int          `mapstructure:"window" json:"window"`
}

// DefaultClimax is the global maximum.
func DefaultClimax() Climax { return Climax{Method: ClimaxGlobal, Window: 3} }

const localProminence = 0.1

// FindOnsetClimax returns the first index whose value reaches
// onsetThreshold and the climax on or after it. Both are Undefined when no
// value reaches the threshold. When both are defined onset <= climax.
func FindOnsetClimax(series []float64, onsetThreshold float64, c Climax) (onset, climax value.Maybe[int], err error) {
	onset, climax = value.Undefined[int](), value.Undefined[int]()

	start := -1
	for i, x := range series {
		if x >= onsetThreshold {
			start = i
			break
		}
	}

	var idx int
	switch c.Method {
	case ClimaxGlobal, "":
		idx = argMaxFrom(series, start)
	case ClimaxLocal:
		idx = firstProminentPeak(series, start, localProminence)
		if idx < 0 {
			idx = argMaxFrom(series, start)
		}
	case ClimaxSmoothed:
		idx = argMaxFrom(Rolling(series, c.Window, stats.Mean), start)
		if idx < 0 {
			idx = argMaxFrom(series, start)
		}
	default:
		return onset, climax, errors.WithHint(
			errors.NewInvalidRequestError("unknown climax method %q", c.Method),
			"use one of: global_max, local_max, smoothed",
		)
	}

	if start < 0 {
		return onset, climax, nil
	}
	onset = value.Defined(start)
	if idx >= start {
		climax = value.Defined(idx)
	}
	return onset, climax, nil
}

// argMaxFrom is the first index >= from holding the largest non-NaN value,
// -1 when there is none or from < 0.
func argMaxFrom(xs []float64, from int) int {
	if from < 0 {
		return -1
	}
	best := -1
	for i := from; i < len(xs); i++ {
		if math.IsNaN(xs[i]) {
			continue
		}
		if best < 0 || xs[i] > xs[best] {
			best = i
		}
	}
	return best
}

// firstProminentPeak scans xs[from:] for the first local maximum (flat tops
// resolve to their middle sample) whose topographic prominence within that
// slice is at least minProminence. Returns -1 when none qualifies.
func firstProminentPeak(xs []float64, from int, minProminence float64) int {
	if from < 0 {
		return -1
	}
	seg := xs[from:]
	n := len(seg)
	for i := 1; i < n-1; i++ {
		if !(seg[i-1] < seg[i]) {
			continue
		}
		j := i
		for j+1 < n && seg[j+1] == seg[i] {
			j++
		}
		if j+1 >= n || !(seg[j+1] < seg[i]) {
			i = j
			continue
		}
		peak := i + (j-i)/2
		if prominence(seg, i, j) >= minProminence {
			return from + peak
		}
		i = j
	}
	return -1
}

// prominence of the plateau seg[lo..hi]: height above the higher of the two
// lowest points reached before meeting higher ground on either side.
func prominence(seg []float64, lo, hi int) float64 {
	h := seg[lo]
	leftMin := h
	for k := lo - 1; k >= 0 && seg[k] <= h; k-- {
		leftMin = math.Min(leftMin, seg[k])
	}
	rightMin := h
	for k := hi + 1; k < len(seg) && seg[k] <= h; k++ {
		rightMin = math.Min(rightMin, seg[k])
	}
	return h - math.Max(leftMin, rightMin)
}

// HalfLife is the number of steps after peak until series first falls to
// baseline + (series[peak] - baseline) / 2 or below. baseline defaults to
// series[0]. Undefined when peak is the last index or the level is never
// reached.
func HalfLife(series []float64, peak int, baseline value.Maybe[float64]) value.Maybe[int] {
	if peak < 0 || peak >= len(series)-1 {
		return value.Undefined[int]()
	}
	b := baseline.Or(series[0])
	half := b + (series[peak]-b)/2
	for i := peak + 1; i < len(series); i++ {
		if series[i] <= half {
			return value.Defined(i - peak)
		}
	}
	return value.Undefined[int]()
}

// Metrics is the burst summary of one series.
type Metrics struct {
	PeakMean   float64          `json:"peak_mean"`
	PeakMedian float64          `json:"peak_median"`
	PeakStd    float64          `json:"peak_std"`
	Onset      value.Maybe[int] `json:"onset_index"`
	Climax     value.Maybe[int] `json:"climax_index"`
	Intensity  float64          `json:"burst_intensity"`
	Duration   int              `json:"burst_duration"`
}

// OnsetFlag reports whether an onset was found.
func (m Metrics) OnsetFlag() bool { return m.Onset.Ok() }

// ClimaxFlag reports whether a climax was found.
func (m Metrics) ClimaxFlag() bool { return m.Climax.Ok() }

// Summarize computes location statistics, onset and climax, intensity over
// the default baseline percentile, and the onset-to-climax duration
// (inclusive).
func Summarize(series []float64, onsetThreshold float64, c Climax) (Metrics, error) {
	m := Metrics{Onset: value.Undefined[int](), Climax: value.Undefined[int]()}
	finite := stats.Finite(series)
	if len(finite) == 0 {
		return m, nil
	}
	m.PeakMean = stats.Mean(finite)
	m.PeakMedian = stats.Median(finite)
	if len(finite) > 1 {
		m.PeakStd = stats.SampleStd(finite)
	}

	var err error
	m.Onset, m.Climax, err = FindOnsetClimax(series, onsetThreshold, c)
	if err != nil {
		return m, err
	}
	m.Intensity = Intensity(finite, DefaultBaselinePercentile)
	if on, ok := m.Onset.Get(); ok {
		if cl, ok := m.Climax.Get(); ok {
			m.Duration = cl - on + 1
		}
	}
	return m, nil
}
