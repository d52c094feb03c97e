package burst

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/carlospaes120/scapegoat/internal/stats"
	"github.com/carlospaes120/scapegoat/internal/value"
)

// Rolling applies agg to every centred window of width w over xs. Positions
// whose window runs off either end or contains a NaN are NaN. A window of
// even width leans left: position i covers [i-w/2, i+w/2-1].
func Rolling(xs []float64, w int, agg func([]float64) float64) []float64 {
	out := make([]float64, len(xs))
	if w < 1 {
		w = 1
	}
	shift := (w - 1) / 2
	for i := range xs {
		hi := i + shift
		lo := hi - (w - 1)
		if lo < 0 || hi >= len(xs) {
			out[i] = math.NaN()
			continue
		}
		win := xs[lo : hi+1]
		if len(stats.Finite(win)) != len(win) {
			out[i] = math.NaN()
			continue
		}
		out[i] = agg(win)
	}
	return out
}

// Statistics describes the distribution of a series.
type Statistics struct {
	Count    int                  `json:"count"`
	Mean     float64              `json:"mean"`
	Median   float64              `json:"median"`
	Std      float64              `json:"std"`
	Min      float64              `json:"min"`
	Max      float64              `json:"max"`
	Q25      float64              `json:"q25"`
	Q75      float64              `json:"q75"`
	IQR      float64              `json:"iqr"`
	Skewness value.Maybe[float64] `json:"skewness"`
	Kurtosis value.Maybe[float64] `json:"kurtosis"`

	RollingMean []value.Maybe[float64] `json:"rolling_mean"`
	RollingStd  []value.Maybe[float64] `json:"rolling_std"`
}

// Describe computes Statistics over the finite values of series with a
// centred rolling window of width w. Std is the sample standard deviation;
// skewness and excess kurtosis use gonum's sample estimators.
func Describe(series []float64, w int) Statistics {
	finite := stats.Finite(series)
	s := Statistics{
		Count:    len(finite),
		Skewness: value.Undefined[float64](),
		Kurtosis: value.Undefined[float64](),
	}
	if len(finite) == 0 {
		return s
	}
	s.Mean = stats.Mean(finite)
	s.Median = stats.Median(finite)
	if len(finite) > 1 {
		s.Std = stats.SampleStd(finite)
	}
	s.Min, s.Max = stats.Range(finite)
	s.Q25 = stats.Percentile(finite, 0.25)
	s.Q75 = stats.Percentile(finite, 0.75)
	s.IQR = s.Q75 - s.Q25
	if len(finite) > 2 {
		s.Skewness = value.Float(stat.Skew(finite, nil))
	}
	if len(finite) > 3 {
		s.Kurtosis = value.Float(stat.ExKurtosis(finite, nil))
	}

	s.RollingMean = maybes(Rolling(series, w, stats.Mean))
	s.RollingStd = maybes(Rolling(series, w, stats.SampleStd))
	return s
}

func maybes(xs []float64) []value.Maybe[float64] {
	out := make([]value.Maybe[float64], len(xs))
	for i, x := range xs {
		out[i] = value.Float(x)
	}
	return out
}

// Evolution captures how a series moves over time.
type Evolution struct {
	// Trend is the least-squares slope against the index.
	Trend float64 `json:"trend"`
	// Acceleration is the mean second difference.
	Acceleration float64 `json:"acceleration"`
	// Volatility is the mean centred rolling sample std.
	Volatility float64 `json:"volatility"`
	// Persistence is the lag-1 autocorrelation, 0 when undefined.
	Persistence float64 `json:"persistence"`
}

// Evolve computes Evolution with rolling width w. Series shorter than w, or
// containing NaN, give the zero Evolution.
func Evolve(series []float64, w int) Evolution {
	var ev Evolution
	if len(series) < w || len(series) < 2 || len(stats.Finite(series)) != len(series) {
		return ev
	}

	x := make([]float64, len(series))
	for i := range x {
		x[i] = float64(i)
	}
	_, ev.Trend = stat.LinearRegression(x, series, nil, false)

	if len(series) >= 3 {
		second := make([]float64, 0, len(series)-2)
		for i := 2; i < len(series); i++ {
			second = append(second, series[i]-2*series[i-1]+series[i-2])
		}
		ev.Acceleration = stats.Mean(second)
	}

	if vol := stats.Finite(Rolling(series, w, stats.SampleStd)); len(vol) > 0 {
		ev.Volatility = stats.Mean(vol)
	}

	if r := stat.Correlation(series[:len(series)-1], series[1:], nil); !math.IsNaN(r) && !math.IsInf(r, 0) {
		ev.Persistence = r
	}
	return ev
}
