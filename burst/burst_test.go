package burst

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlospaes120/scapegoat/errors"
	"github.com/carlospaes120/scapegoat/internal/value"
)

var escalation = []float64{0, 1, 1, 4, 6, 9, 7, 3, 1, 0}

func TestDetectBursts(t *testing.T) {
	tests := []struct {
		name      string
		series    []float64
		th        Threshold
		minLength int
		want      []Span
	}{
		{"empty", nil, DefaultThreshold(), 1, nil},
		{"fixed", escalation, Threshold{ThresholdFixed, 4}, 1, []Span{{3, 7}}},
		{"fixed min length drops short runs", []float64{5, 0, 5, 5, 0}, Threshold{ThresholdFixed, 5}, 2, []Span{{2, 4}}},
		{"run reaching the end", []float64{0, 2, 2}, Threshold{ThresholdFixed, 2}, 1, []Span{{1, 3}}},
		{"percentile max", escalation, Threshold{ThresholdPercentile, 100}, 1, []Span{{5, 6}}},
		{"std", []float64{1, 1, 1, 1, 10}, Threshold{ThresholdStd, 1}, 1, []Span{{4, 5}}},
		{"nan never bursts", []float64{5, math.NaN(), 5}, Threshold{ThresholdFixed, 5}, 1, []Span{{0, 1}, {2, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectBursts(tt.series, tt.th, tt.minLength)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectBurstsRejectsUnknownMethod(t *testing.T) {
	_, err := DetectBursts(escalation, Threshold{Method: "kleinberg"}, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestPeriods(t *testing.T) {
	periods, err := Periods(escalation, Threshold{ThresholdFixed, 4}, 1, DefaultBaselinePercentile)
	require.NoError(t, err)
	require.Len(t, periods, 1)

	p := periods[0]
	assert.Equal(t, 3, p.StartIndex)
	assert.Equal(t, 7, p.EndIndex)
	assert.Equal(t, 4, p.Duration)
	assert.Equal(t, 9.0, p.PeakValue)
	assert.Equal(t, 6.5, p.MeanValue)
	assert.Equal(t, 26.0, p.TotalValue)
	// 10th percentile of escalation is 0, so intensity is the mean itself.
	assert.Equal(t, 6.5, p.Intensity)
}

func TestIntensity(t *testing.T) {
	assert.Equal(t, 0.0, Intensity(nil, 10))
	assert.InDelta(t, 1.5, Intensity([]float64{2, 2, 2, 4, 4, 4, 2, 2, 2, 6}, 10), 1e-12)
}

func TestFindOnsetClimax(t *testing.T) {
	t.Run("global", func(t *testing.T) {
		on, cl, err := FindOnsetClimax(escalation, 3, DefaultClimax())
		require.NoError(t, err)
		assert.Equal(t, value.Defined(3), on)
		assert.Equal(t, value.Defined(5), cl)
	})

	t.Run("never crosses", func(t *testing.T) {
		on, cl, err := FindOnsetClimax([]float64{0, 1, 2}, 3, DefaultClimax())
		require.NoError(t, err)
		assert.False(t, on.Ok())
		assert.False(t, cl.Ok())
	})

	t.Run("climax ignores earlier maximum", func(t *testing.T) {
		on, cl, err := FindOnsetClimax([]float64{2, 9, 1, 4, 5, 3}, 4, DefaultClimax())
		require.NoError(t, err)
		assert.Equal(t, value.Defined(1), on)
		assert.Equal(t, value.Defined(1), cl)

		on, cl, err = FindOnsetClimax([]float64{9, 1, 1}, 10, DefaultClimax())
		require.NoError(t, err)
		assert.False(t, on.Ok())
		assert.False(t, cl.Ok())
	})

	t.Run("local takes first prominent peak", func(t *testing.T) {
		series := []float64{0, 4, 6, 4, 5, 9, 2}
		_, cl, err := FindOnsetClimax(series, 3, Climax{Method: ClimaxLocal})
		require.NoError(t, err)
		assert.Equal(t, value.Defined(2), cl)
	})

	t.Run("local falls back to global", func(t *testing.T) {
		_, cl, err := FindOnsetClimax([]float64{0, 3, 4, 5}, 3, Climax{Method: ClimaxLocal})
		require.NoError(t, err)
		assert.Equal(t, value.Defined(3), cl)
	})

	t.Run("smoothed", func(t *testing.T) {
		series := []float64{0, 3, 10, 0, 6, 6, 6, 0}
		_, cl, err := FindOnsetClimax(series, 3, Climax{Method: ClimaxSmoothed, Window: 3})
		require.NoError(t, err)
		assert.Equal(t, value.Defined(5), cl)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, _, err := FindOnsetClimax(escalation, 3, Climax{Method: "median"})
		assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	})
}

func TestOnsetNeverAfterClimax(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	methods := []Climax{DefaultClimax(), {Method: ClimaxLocal}, {Method: ClimaxSmoothed, Window: 3}}
	for trial := 0; trial < 200; trial++ {
		series := make([]float64, 1+r.Intn(30))
		for i := range series {
			series[i] = float64(r.Intn(10))
		}
		for _, m := range methods {
			on, cl, err := FindOnsetClimax(series, float64(r.Intn(10)), m)
			require.NoError(t, err)
			if o, ok := on.Get(); ok {
				c, ok := cl.Get()
				require.True(t, ok, "onset without climax")
				assert.LessOrEqual(t, o, c)
			} else {
				assert.False(t, cl.Ok())
			}
		}
	}
}

func TestAnomalies(t *testing.T) {
	series := []float64{1, 2, 1, 2, 1, 2, 30}

	idx, err := Anomalies(series, AnomalyIQR, 1.5)
	require.NoError(t, err)
	assert.Equal(t, []int{6}, idx)

	idx, err = Anomalies(series, AnomalyZScore, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{6}, idx)

	idx, err = Anomalies([]float64{3, 3, 3}, AnomalyZScore, 1)
	require.NoError(t, err)
	assert.Empty(t, idx)

	_, err = Anomalies(series, "isolation", 1)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestHalfLife(t *testing.T) {
	series := []float64{0, 2, 10, 8, 6, 4, 1}
	assert.Equal(t, value.Defined(3), HalfLife(series, 2, value.Undefined[float64]()))
	assert.Equal(t, value.Defined(2), HalfLife(series, 2, value.Defined(2.0)))
	assert.False(t, HalfLife(series, 6, value.Undefined[float64]()).Ok(), "peak at the end")
	assert.False(t, HalfLife([]float64{0, 10, 9}, 1, value.Undefined[float64]()).Ok(), "never decays")
}

func TestSummarize(t *testing.T) {
	m, err := Summarize(escalation, DefaultOnsetThreshold, DefaultClimax())
	require.NoError(t, err)
	assert.InDelta(t, 3.2, m.PeakMean, 1e-12)
	assert.Equal(t, 2.0, m.PeakMedian)
	assert.True(t, m.OnsetFlag())
	assert.True(t, m.ClimaxFlag())
	assert.Equal(t, 3, m.Duration)

	empty, err := Summarize(nil, DefaultOnsetThreshold, DefaultClimax())
	require.NoError(t, err)
	assert.False(t, empty.OnsetFlag())
	assert.Equal(t, 0, empty.Duration)
}

func TestRolling(t *testing.T) {
	got := Rolling([]float64{1, 2, 3, 4}, 3, func(xs []float64) float64 { return xs[0] + xs[1] + xs[2] })
	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, 6.0, got[1])
	assert.Equal(t, 9.0, got[2])
	assert.True(t, math.IsNaN(got[3]))

	even := Rolling([]float64{1, 2, 3, 4}, 2, func(xs []float64) float64 { return xs[0] })
	assert.True(t, math.IsNaN(even[0]))
	assert.Equal(t, 1.0, even[1])
}

func TestDescribe(t *testing.T) {
	s := Describe([]float64{1, 2, 3, 4, 5}, 3)
	assert.Equal(t, 5, s.Count)
	assert.Equal(t, 3.0, s.Mean)
	assert.Equal(t, 3.0, s.Median)
	assert.Equal(t, 2.0, s.Q25)
	assert.Equal(t, 4.0, s.Q75)
	assert.Equal(t, 2.0, s.IQR)
	sk, ok := s.Skewness.Get()
	require.True(t, ok)
	assert.InDelta(t, 0.0, sk, 1e-12)
	require.Len(t, s.RollingMean, 5)
	assert.False(t, s.RollingMean[0].Ok())
	assert.Equal(t, value.Defined(2.0), s.RollingMean[1])

	empty := Describe(nil, 3)
	assert.Equal(t, 0, empty.Count)
	assert.False(t, empty.Kurtosis.Ok())
}

func TestEvolve(t *testing.T) {
	ev := Evolve([]float64{1, 3, 5, 7, 9}, 3)
	assert.InDelta(t, 2.0, ev.Trend, 1e-12)
	assert.InDelta(t, 0.0, ev.Acceleration, 1e-12)
	assert.InDelta(t, 2.0, ev.Volatility, 1e-12)
	assert.InDelta(t, 1.0, ev.Persistence, 1e-12)

	assert.Equal(t, Evolution{}, Evolve([]float64{1, 2}, 5))
}
