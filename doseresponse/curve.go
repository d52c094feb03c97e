package doseresponse

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/carlospaes120/scapegoat/internal/stats"
	"github.com/carlospaes120/scapegoat/internal/value"
)

// Options controls binning.
type Options struct {
	NBins            int `mapstructure:"n_bins" json:"n_bins"`
	MinSamplesPerBin int `mapstructure:"min_samples_per_bin" json:"min_samples_per_bin"`
}

// DefaultOptions uses 5 bins of at least 3 samples.
func DefaultOptions() Options {
	return Options{NBins: 5, MinSamplesPerBin: 3}
}

func (o Options) normalized() Options {
	if o.NBins < 1 {
		o.NBins = DefaultOptions().NBins
	}
	if o.MinSamplesPerBin < 1 {
		o.MinSamplesPerBin = 1
	}
	return o
}

// Binning names how factor bins were formed.
type Binning string

const (
	BinningQuantile   Binning = "quantile"
	BinningEqualWidth Binning = "equal_width"
)

// BinStats describes the response inside one factor bin.
type BinStats struct {
	Lower   float64              `json:"lower"`
	Upper   float64              `json:"upper"`
	Center  float64              `json:"bin_center"`
	Samples int                  `json:"n_samples"`
	Mean    float64              `json:"mean"`
	Median  float64              `json:"median"`
	Std     value.Maybe[float64] `json:"std"`
	Q25     float64              `json:"q25"`
	Q75     float64              `json:"q75"`
	Min     float64              `json:"min"`
	Max     float64              `json:"max"`
}

// Curve is one (factor, response) dose-response curve.
type Curve struct {
	Factor       string               `json:"factor"`
	Response     string               `json:"response"`
	Binning      Binning              `json:"binning"`
	Bins         []BinStats           `json:"bins"`
	Slope        float64              `json:"slope"`
	Intercept    float64              `json:"intercept"`
	R2           value.Maybe[float64] `json:"r2"`
	Correlation  value.Maybe[float64] `json:"correlation"`
	TotalSamples int                  `json:"total_samples"`
}

// NBins is the number of retained bins.
func (c *Curve) NBins() int { return len(c.Bins) }

// bins is a factor binning shared by every response of that factor.
type bins struct {
	method Binning
	edges  []float64
}

// assign returns the bin of x: bins are right-closed (edges[i], edges[i+1]]
// with the lowest edge included.
func (b bins) assign(x float64) int {
	k := len(b.edges) - 1
	if k < 1 || x < b.edges[0] || x > b.edges[k] {
		return -1
	}
	return sort.Search(k, func(i int) bool { return x <= b.edges[i+1] })
}

// makeBins cuts factor values into n quantile bins (type-7 edges, duplicate
// edges dropped). When duplicates leave fewer than n bins it cuts n
// equal-width bins over the value range instead.
func makeBins(factor []float64, n int) bins {
	sorted := make([]float64, len(factor))
	copy(sorted, factor)
	sort.Float64s(sorted)

	edges := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		e := stats.PercentileSorted(sorted, float64(i)/float64(n))
		if len(edges) == 0 || e > edges[len(edges)-1] {
			edges = append(edges, e)
		}
	}
	if len(edges)-1 >= n {
		return bins{method: BinningQuantile, edges: edges}
	}

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		pad := 0.001 * math.Abs(lo)
		if pad == 0 {
			pad = 0.001
		}
		lo, hi = lo-pad, hi+pad
	}
	edges = make([]float64, n+1)
	for i := range edges {
		edges[i] = lo + (hi-lo)*float64(i)/float64(n)
	}
	edges[n] = hi
	return bins{method: BinningEqualWidth, edges: edges}
}

// Fit bins frame rows by factor and summarizes response per bin. Rows with
// an undefined factor are ignored; bins with fewer than MinSamplesPerBin
// defined responses are dropped. Returns nil when fewer than two bins remain.
// A missing column is ErrMissingColumn.
func Fit(frame *Frame, factor, response string, opts Options) (*Curve, error) {
	cols, err := frame.require(factor, response)
	if err != nil {
		return nil, err
	}
	return curve(factor, response, cols[0], cols[1], opts.normalized()), nil
}

func curve(factor, response string, fcol, rcol []value.Maybe[float64], opts Options) *Curve {
	var fvals []float64
	for _, m := range fcol {
		if v, ok := m.Get(); ok {
			fvals = append(fvals, v)
		}
	}
	if len(fvals) == 0 {
		return nil
	}
	b := makeBins(fvals, opts.NBins)

	k := len(b.edges) - 1
	factorIn := make([][]float64, k)
	responseIn := make([][]float64, k)
	for i, m := range fcol {
		f, ok := m.Get()
		if !ok {
			continue
		}
		bin := b.assign(f)
		if bin < 0 {
			continue
		}
		factorIn[bin] = append(factorIn[bin], f)
		if r, ok := rcol[i].Get(); ok {
			responseIn[bin] = append(responseIn[bin], r)
		}
	}

	c := &Curve{Factor: factor, Response: response, Binning: b.method}
	for i := 0; i < k; i++ {
		rs := responseIn[i]
		if len(rs) < opts.MinSamplesPerBin || len(rs) == 0 {
			continue
		}
		sort.Float64s(rs)
		bs := BinStats{
			Lower:   b.edges[i],
			Upper:   b.edges[i+1],
			Center:  stats.Mean(factorIn[i]),
			Samples: len(rs),
			Mean:    stats.Mean(rs),
			Median:  stats.PercentileSorted(rs, 0.5),
			Std:     value.Float(stats.SampleStd(rs)),
			Q25:     stats.PercentileSorted(rs, 0.25),
			Q75:     stats.PercentileSorted(rs, 0.75),
			Min:     rs[0],
			Max:     rs[len(rs)-1],
		}
		c.Bins = append(c.Bins, bs)
		c.TotalSamples += bs.Samples
	}
	if len(c.Bins) < 2 {
		return nil
	}

	x := make([]float64, len(c.Bins))
	y := make([]float64, len(c.Bins))
	for i, bs := range c.Bins {
		x[i], y[i] = bs.Center, bs.Mean
	}
	c.Intercept, c.Slope = stat.LinearRegression(x, y, nil, false)
	c.R2 = value.Float(stat.RSquared(x, y, nil, c.Intercept, c.Slope))
	c.Correlation = value.Float(stat.Correlation(x, y, nil))
	return c
}

// Analyze computes a curve for every (factor, response) pair, skipping pairs
// that yield no curve. Every named column must exist.
func Analyze(frame *Frame, factors, responses []string, opts Options) ([]Curve, error) {
	if _, err := frame.require(append(append([]string{}, factors...), responses...)...); err != nil {
		return nil, err
	}
	opts = opts.normalized()
	var out []Curve
	for _, f := range factors {
		for _, r := range responses {
			if f == r {
				continue
			}
			c, err := Fit(frame, f, r, opts)
			if err != nil {
				return nil, err
			}
			if c != nil {
				out = append(out, *c)
			}
		}
	}
	return out, nil
}

// SummaryRow is one line of dose_response.csv.
type SummaryRow struct {
	Factor       string               `json:"factor"`
	Response     string               `json:"response"`
	Slope        float64              `json:"slope"`
	Intercept    float64              `json:"intercept"`
	R2           value.Maybe[float64] `json:"r2"`
	Correlation  value.Maybe[float64] `json:"correlation"`
	NBins        int                  `json:"n_bins"`
	TotalSamples int                  `json:"total_samples"`
}

// Summarize flattens curves into summary rows, in order.
func Summarize(curves []Curve) []SummaryRow {
	out := make([]SummaryRow, 0, len(curves))
	for i := range curves {
		c := &curves[i]
		out = append(out, SummaryRow{
			Factor:       c.Factor,
			Response:     c.Response,
			Slope:        c.Slope,
			Intercept:    c.Intercept,
			R2:           c.R2,
			Correlation:  c.Correlation,
			NBins:        c.NBins(),
			TotalSamples: c.TotalSamples,
		})
	}
	return out
}
