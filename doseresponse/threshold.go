package doseresponse

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/carlospaes120/scapegoat/errors"
	"github.com/carlospaes120/scapegoat/internal/stats"
	"github.com/carlospaes120/scapegoat/internal/value"
)

// SplitMethod selects the factor value that separates low from high rows.
type SplitMethod string

const (
	SplitPercentile SplitMethod = "percentile"
	SplitMedian     SplitMethod = "median"
	SplitMean       SplitMethod = "mean"
)

// Split is a method and, for SplitPercentile, the percentile (0-100).
type Split struct {
	Method SplitMethod `mapstructure:"method" json:"method"`
	Value  float64     `mapstructure:"value" json:"value"`
}

// DefaultSplit is the 50th percentile.
func DefaultSplit() Split { return Split{Method: SplitPercentile, Value: 50} }

// DefaultMinRows is the fewest complete rows a split or interaction test
// accepts.
const DefaultMinRows = 10

// Group summarizes the response in one side of a split.
type Group struct {
	Samples int                  `json:"n_samples"`
	Mean    float64              `json:"mean"`
	Std     value.Maybe[float64] `json:"std"`
	Median  float64              `json:"median"`
}

func newGroup(xs []float64) Group {
	return Group{
		Samples: len(xs),
		Mean:    stats.Mean(xs),
		Std:     value.Float(stats.SampleStd(xs)),
		Median:  stats.Median(xs),
	}
}

// Effect classes of |Cohen's d|.
const (
	EffectSmall     = "small"
	EffectMedium    = "medium"
	EffectLarge     = "large"
	EffectUndefined = "undefined"
)

// ThresholdReport is a low/high comparison of response across a factor split.
type ThresholdReport struct {
	Factor    string      `json:"factor"`
	Response  string      `json:"response"`
	Threshold float64     `json:"threshold"`
	Method    SplitMethod `json:"threshold_method"`
	Low       Group       `json:"low_group"`
	High      Group       `json:"high_group"`

	// TStatistic is Welch's t for mean(low) - mean(high).
	TStatistic value.Maybe[float64] `json:"t_statistic"`
	DF         value.Maybe[float64] `json:"df"`
	PValue     value.Maybe[float64] `json:"p_value"`
	// CohensD is (mean(high) - mean(low)) over the pooled std.
	CohensD    value.Maybe[float64] `json:"cohens_d"`
	EffectSize string               `json:"effect_size"`
}

// ThresholdEffect splits complete (factor, response) rows at the split value:
// low is factor <= threshold, high the rest. Returns nil when fewer than
// minRows rows are complete or either group is empty.
func ThresholdEffect(frame *Frame, factor, response string, split Split, minRows int) (*ThresholdReport, error) {
	cols, err := frame.require(factor, response)
	if err != nil {
		return nil, err
	}
	data := complete(cols[0], cols[1])
	fs, rs := data[0], data[1]
	if minRows < 1 {
		minRows = DefaultMinRows
	}

	var threshold float64
	switch split.Method {
	case SplitPercentile:
		if split.Value < 0 || split.Value > 100 {
			return nil, errors.NewInvalidRequestError("split percentile %v outside [0, 100]", split.Value)
		}
		threshold = stats.Percentile(fs, split.Value/100)
	case SplitMedian:
		threshold = stats.Median(fs)
	case SplitMean:
		threshold = stats.Mean(fs)
	default:
		return nil, errors.WithHint(
			errors.NewInvalidRequestError("unknown split method %q", split.Method),
			"use one of: percentile, median, mean",
		)
	}
	if len(fs) < minRows {
		return nil, nil
	}

	var low, high []float64
	for i, f := range fs {
		if f <= threshold {
			low = append(low, rs[i])
		} else {
			high = append(high, rs[i])
		}
	}
	if len(low) == 0 || len(high) == 0 {
		return nil, nil
	}

	rep := &ThresholdReport{
		Factor:    factor,
		Response:  response,
		Threshold: threshold,
		Method:    split.Method,
		Low:       newGroup(low),
		High:      newGroup(high),
	}
	rep.TStatistic, rep.DF, rep.PValue = welch(low, high)
	rep.CohensD = cohensD(low, high)
	rep.EffectSize = classify(rep.CohensD)
	return rep, nil
}

// welch is the unequal-variance two-sample t-test with Welch-Satterthwaite
// degrees of freedom and a two-sided p-value.
func welch(a, b []float64) (t, df, p value.Maybe[float64]) {
	t, df, p = value.Undefined[float64](), value.Undefined[float64](), value.Undefined[float64]()
	if len(a) < 2 || len(b) < 2 {
		return
	}
	na, nb := float64(len(a)), float64(len(b))
	va := stats.SampleStd(a)
	vb := stats.SampleStd(b)
	sa, sb := va*va/na, vb*vb/nb
	se := math.Sqrt(sa + sb)
	if se == 0 {
		return
	}
	tv := (stats.Mean(a) - stats.Mean(b)) / se
	dfv := (sa + sb) * (sa + sb) / (sa*sa/(na-1) + sb*sb/(nb-1))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dfv}
	pv := 2 * dist.Survival(math.Abs(tv))
	return value.Float(tv), value.Float(dfv), value.Float(pv)
}

func cohensD(low, high []float64) value.Maybe[float64] {
	nl, nh := float64(len(low)), float64(len(high))
	if nl+nh <= 2 {
		return value.Undefined[float64]()
	}
	var vl, vh float64
	if len(low) > 1 {
		s := stats.SampleStd(low)
		vl = s * s
	}
	if len(high) > 1 {
		s := stats.SampleStd(high)
		vh = s * s
	}
	pooled := math.Sqrt(((nl-1)*vl + (nh-1)*vh) / (nl + nh - 2))
	if pooled <= 0 {
		return value.Undefined[float64]()
	}
	return value.Float((stats.Mean(high) - stats.Mean(low)) / pooled)
}

func classify(d value.Maybe[float64]) string {
	v, ok := d.Get()
	if !ok {
		return EffectUndefined
	}
	switch a := math.Abs(v); {
	case a < 0.5:
		return EffectSmall
	case a < 0.8:
		return EffectMedium
	default:
		return EffectLarge
	}
}

// InteractionReport is a 2x2 median-split comparison of two factors.
type InteractionReport struct {
	Factor1  string `json:"factor_1"`
	Factor2  string `json:"factor_2"`
	Response string `json:"response"`

	LowLow   value.Maybe[float64] `json:"low_low"`
	LowHigh  value.Maybe[float64] `json:"low_high"`
	HighLow  value.Maybe[float64] `json:"high_low"`
	HighHigh value.Maybe[float64] `json:"high_high"`

	MainEffect1       value.Maybe[float64] `json:"main_effect_1"`
	MainEffect2       value.Maybe[float64] `json:"main_effect_2"`
	InteractionEffect value.Maybe[float64] `json:"interaction_effect"`
	Samples           int                  `json:"n_samples"`
}

// InteractionEffect splits complete rows at each factor's median (high is
// strictly above) and reports group means, main effects relative to
// low-low, and the difference-in-differences. Nil with fewer than minRows
// complete rows. An empty group leaves its mean and dependent effects
// Undefined.
func InteractionEffect(frame *Frame, f1, f2, response string, minRows int) (*InteractionReport, error) {
	cols, err := frame.require(f1, f2, response)
	if err != nil {
		return nil, err
	}
	data := complete(cols...)
	if minRows < 1 {
		minRows = DefaultMinRows
	}
	if len(data[0]) < minRows {
		return nil, nil
	}

	m1, m2 := stats.Median(data[0]), stats.Median(data[1])
	var groups [2][2][]float64
	for i, r := range data[2] {
		a, b := 0, 0
		if data[0][i] > m1 {
			a = 1
		}
		if data[1][i] > m2 {
			b = 1
		}
		groups[a][b] = append(groups[a][b], r)
	}
	mean := func(xs []float64) value.Maybe[float64] {
		if len(xs) == 0 {
			return value.Undefined[float64]()
		}
		return value.Float(stats.Mean(xs))
	}
	sub := func(x, y value.Maybe[float64]) value.Maybe[float64] {
		a, ok1 := x.Get()
		b, ok2 := y.Get()
		if !ok1 || !ok2 {
			return value.Undefined[float64]()
		}
		return value.Float(a - b)
	}

	rep := &InteractionReport{
		Factor1:  f1,
		Factor2:  f2,
		Response: response,
		LowLow:   mean(groups[0][0]),
		LowHigh:  mean(groups[0][1]),
		HighLow:  mean(groups[1][0]),
		HighHigh: mean(groups[1][1]),
		Samples:  len(data[2]),
	}
	rep.MainEffect1 = sub(rep.HighLow, rep.LowLow)
	rep.MainEffect2 = sub(rep.LowHigh, rep.LowLow)
	rep.InteractionEffect = sub(sub(rep.HighHigh, rep.LowHigh), sub(rep.HighLow, rep.LowLow))
	return rep, nil
}
