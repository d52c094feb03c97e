package doseresponse

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlospaes120/scapegoat/errors"
	"github.com/carlospaes120/scapegoat/internal/value"
	"github.com/carlospaes120/scapegoat/metrics"
)

func frame(t *testing.T, cols map[string][]float64) *Frame {
	t.Helper()
	rows := -1
	for _, c := range cols {
		rows = len(c)
	}
	f := NewFrame(rows)
	for name, c := range cols {
		require.NoError(t, f.SetFloats(name, c))
	}
	return f
}

func TestFitFallsBackToEqualWidth(t *testing.T) {
	f := frame(t, map[string][]float64{
		"factor":   {0, 0, 1, 1, 1, 1, 2, 2, 2, 2},
		"response": {1, 1, 2, 2, 2, 2, 3, 3, 3, 3},
	})

	c, err := Fit(f, "factor", "response", Options{NBins: 3, MinSamplesPerBin: 3})
	require.NoError(t, err)
	require.NotNil(t, c)

	// Quantile edges collapse to two bins, so equal-width bins give counts
	// (2, 4, 4) and the 2-sample bin is dropped.
	assert.Equal(t, BinningEqualWidth, c.Binning)
	require.Equal(t, 2, c.NBins())
	assert.Equal(t, 1.0, c.Bins[0].Center)
	assert.Equal(t, 2.0, c.Bins[1].Center)
	assert.Equal(t, 4, c.Bins[0].Samples)
	assert.Equal(t, 8, c.TotalSamples)
	assert.InDelta(t, 1.0, c.Slope, 1e-12)
	assert.InDelta(t, 1.0, c.Intercept, 1e-12)
	r2, ok := c.R2.Get()
	require.True(t, ok)
	assert.InDelta(t, 1.0, r2, 1e-12)
}

func TestFitNilWithFewerThanTwoBins(t *testing.T) {
	nan := math.NaN()
	f := frame(t, map[string][]float64{
		"factor":   {0, 0, 1, 1, 1, 1, 2, 2, 2, 2},
		"response": {1, 1, 2, 2, 2, 2, 3, 3, 3, nan},
	})

	c, err := Fit(f, "factor", "response", Options{NBins: 3, MinSamplesPerBin: 4})
	require.NoError(t, err)
	assert.Nil(t, c, "only the middle bin has four defined responses")

	constant := frame(t, map[string][]float64{
		"factor":   {1, 1, 1, 1, 1, 1},
		"response": {1, 2, 3, 4, 5, 6},
	})
	c, err = Fit(constant, "factor", "response", DefaultOptions())
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestFitQuantileBins(t *testing.T) {
	factor := make([]float64, 10)
	response := make([]float64, 10)
	for i := range factor {
		factor[i] = float64(i + 1)
		response[i] = 2 * factor[i]
	}
	f := frame(t, map[string][]float64{"factor": factor, "response": response})

	c, err := Fit(f, "factor", "response", Options{NBins: 5, MinSamplesPerBin: 2})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, BinningQuantile, c.Binning)
	assert.Equal(t, 5, c.NBins())
	assert.Equal(t, 1.5, c.Bins[0].Center)
	assert.InDelta(t, 2.0, c.Slope, 1e-12)
	corr, ok := c.Correlation.Get()
	require.True(t, ok)
	assert.InDelta(t, 1.0, corr, 1e-12)
}

func TestFitMissingColumn(t *testing.T) {
	f := frame(t, map[string][]float64{"factor": {1, 2}})
	_, err := Fit(f, "factor", "response", DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingColumn))

	_, err = Analyze(f, []string{"factor", "other"}, []string{"response"}, DefaultOptions())
	assert.True(t, errors.Is(err, errors.ErrMissingColumn))
}

func TestAnalyzeAndSummarize(t *testing.T) {
	factor := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	f := frame(t, map[string][]float64{
		"factor": factor,
		"up":     {1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		"down":   {10, 9, 8, 7, 6, 5, 4, 3, 2, 1},
	})

	curves, err := Analyze(f, []string{"factor"}, []string{"up", "down"}, Options{NBins: 2, MinSamplesPerBin: 3})
	require.NoError(t, err)
	require.Len(t, curves, 2)

	rows := Summarize(curves)
	assert.Equal(t, "up", rows[0].Response)
	assert.Greater(t, rows[0].Slope, 0.0)
	assert.Less(t, rows[1].Slope, 0.0)
	assert.Equal(t, 2, rows[1].NBins)
	assert.Equal(t, 10, rows[1].TotalSamples)
}

func TestThresholdEffect(t *testing.T) {
	factor := make([]float64, 20)
	response := make([]float64, 20)
	for i := range factor {
		factor[i] = float64(i + 1)
		response[i] = float64(i % 2)
		if i >= 10 {
			response[i] += 10
		}
	}
	f := frame(t, map[string][]float64{"factor": factor, "response": response})

	rep, err := ThresholdEffect(f, "factor", "response", Split{Method: SplitMedian}, DefaultMinRows)
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, 10.5, rep.Threshold)
	assert.Equal(t, 10, rep.Low.Samples)
	assert.Equal(t, 10, rep.High.Samples)
	assert.Equal(t, 0.5, rep.Low.Mean)
	assert.Equal(t, 10.5, rep.High.Mean)

	tstat, ok := rep.TStatistic.Get()
	require.True(t, ok)
	assert.Less(t, tstat, 0.0)
	df, ok := rep.DF.Get()
	require.True(t, ok)
	assert.InDelta(t, 18.0, df, 1e-9, "equal variances and sizes give n1+n2-2")
	p, ok := rep.PValue.Get()
	require.True(t, ok)
	assert.Less(t, p, 1e-6)
	assert.Equal(t, EffectLarge, rep.EffectSize)
}

func TestThresholdEffectDegenerate(t *testing.T) {
	f := frame(t, map[string][]float64{
		"factor":   {1, 2, 3},
		"response": {1, 2, 3},
	})
	rep, err := ThresholdEffect(f, "factor", "response", DefaultSplit(), DefaultMinRows)
	require.NoError(t, err)
	assert.Nil(t, rep, "too few rows")

	flat := frame(t, map[string][]float64{
		"factor":   {1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		"response": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	})
	rep, err = ThresholdEffect(flat, "factor", "response", Split{Method: SplitMean}, DefaultMinRows)
	require.NoError(t, err)
	assert.Nil(t, rep, "empty high group")

	_, err = ThresholdEffect(flat, "factor", "response", Split{Method: "mode"}, DefaultMinRows)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestInteractionEffect(t *testing.T) {
	f := frame(t, map[string][]float64{
		"f1":       {0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1},
		"f2":       {0, 0, 0, 1, 1, 1, 0, 0, 0, 1, 1, 1},
		"response": {1, 1, 1, 2, 2, 2, 3, 3, 3, 10, 10, 10},
	})
	rep, err := InteractionEffect(f, "f1", "f2", "response", DefaultMinRows)
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, value.Defined(1.0), rep.LowLow)
	assert.Equal(t, value.Defined(10.0), rep.HighHigh)
	assert.Equal(t, value.Defined(2.0), rep.MainEffect1)
	assert.Equal(t, value.Defined(1.0), rep.MainEffect2)
	assert.Equal(t, value.Defined(6.0), rep.InteractionEffect)
	assert.Equal(t, 12, rep.Samples)
}

func TestFromRecords(t *testing.T) {
	records := []metrics.Record{
		{Interactions: 3, Factors: map[string]value.Maybe[float64]{"label_skeptic_share": value.Defined(0.25)}},
		{Interactions: 5, Factors: map[string]value.Maybe[float64]{"label_skeptic_share": value.Undefined[float64]()}},
	}
	f := FromRecords(records)
	assert.Equal(t, 2, f.Rows())

	peak, err := f.Column("peak_mean")
	require.NoError(t, err)
	assert.Equal(t, value.Defined(5.0), peak[1])

	share, err := f.Column("label_skeptic_share")
	require.NoError(t, err)
	assert.True(t, share[0].Ok())
	assert.False(t, share[1].Ok())

	assert.Error(t, f.Set("short", nil))
}

func TestWriteReport(t *testing.T) {
	f := frame(t, map[string][]float64{
		"factor":   {0, 0, 1, 1, 1, 1, 2, 2, 2, 2},
		"response": {1, 1, 2, 2, 2, 2, 3, 3, 3, 3},
	})
	curves, err := Analyze(f, []string{"factor"}, []string{"response"}, Options{NBins: 3, MinSamplesPerBin: 3})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, curves, nil))
	out := buf.String()
	assert.Contains(t, out, "# Dose-Response Analysis Report")
	assert.Contains(t, out, "## Significant Relationships")
	assert.Contains(t, out, "## Factor: factor")
	assert.Contains(t, out, "- Slope: 1.0000")
	assert.Contains(t, out, "- Number of bins: 2 (equal_width)")
	assert.NotContains(t, out, "## Threshold Effects")
}
