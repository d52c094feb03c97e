package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/carlospaes120/scapegoat/am"
	"github.com/carlospaes120/scapegoat/burst"
	"github.com/carlospaes120/scapegoat/errors"
	"github.com/carlospaes120/scapegoat/interaction"
	"github.com/carlospaes120/scapegoat/metrics"
)

func at(h int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(h) * time.Hour)
}

func ev(h int, src, dst string) interaction.Event {
	return interaction.Event{Source: src, Target: dst, Timestamp: at(h)}
}

// escalation builds four 6h windows. The target "v" is reciprocated in
// window 0, then only ever receives from a single neighbour.
//
//	window 0: 4 interactions, v reciprocates a
//	window 1: 5 interactions, v receives from b and c, which talk
//	window 2: 11 interactions, v receives from a only
//	window 3: 2 interactions, v receives from c only
func escalation() *interaction.Store {
	var events []interaction.Event
	events = append(events,
		ev(0, "a", "v"), ev(1, "v", "a"), ev(2, "a", "b"), ev(3, "b", "a"),
		ev(6, "b", "v"), ev(7, "c", "v"), ev(8, "b", "c"), ev(9, "c", "b"), ev(10, "a", "b"),
	)
	for i := 0; i < 5; i++ {
		events = append(events, ev(12, "a", "b"))
	}
	for i := 0; i < 3; i++ {
		events = append(events, ev(13, "b", "c"))
	}
	events = append(events, ev(14, "c", "a"), ev(15, "c", "a"), ev(16, "a", "v"))
	events = append(events, ev(18, "c", "v"), ev(19, "a", "b"))
	// closes the span at 24h
	events = append(events, ev(24, "a", "b"))
	return interaction.NewStore(events)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TargetID = "v"
	cfg.Workers = 2
	cfg.Burst.OnsetThreshold = 10
	return cfg
}

func TestRunComputesEveryWindow(t *testing.T) {
	p, err := New(testConfig(), zaptest.NewLogger(t).Sugar(), nil)
	require.NoError(t, err)

	res, err := p.Run(context.Background(), escalation())
	require.NoError(t, err)
	require.Len(t, res.Windows, 4)

	for i, w := range res.Windows {
		assert.Equal(t, i, w.Record.Window, "slots stay in window order")
		assert.Equal(t, at(6*i), w.Record.Start)
	}
	assert.Equal(t, []float64{4, 5, 11, 2}, res.Series(ActivityColumn))

	isolated := res.Series("victim_is_isolated")
	assert.Equal(t, []float64{0, 0, 1, 1}, isolated)
	assert.Equal(t, 2, res.Timeline.TimeToIsolation.Or(-1))
	assert.Positive(t, res.Duration)
}

func TestRunLinksNeighbouringWindows(t *testing.T) {
	res, err := Run(context.Background(), escalation(), testConfig())
	require.NoError(t, err)
	require.Len(t, res.Windows, 4)

	assert.False(t, res.Windows[0].Record.NMIWithPrevious.Ok())
	assert.False(t, res.Windows[3].Record.NMIWithNext.Ok())
	for i := 1; i < len(res.Windows); i++ {
		assert.Equal(t, res.Windows[i-1].Record.NMIWithNext, res.Windows[i].Record.NMIWithPrevious)
	}
}

func TestRunFlagsOnsetAndClimax(t *testing.T) {
	res, err := Run(context.Background(), escalation(), testConfig())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Timeline.Burst.Onset.Or(-1))
	assert.Equal(t, 2, res.Timeline.Burst.Climax.Or(-1))
	for i, w := range res.Windows {
		assert.Equal(t, i == 2, w.Record.OnsetFlag, "onset flag on window %d", i)
		assert.Equal(t, i == 2, w.Record.ClimaxFlag, "climax flag on window %d", i)
	}
	assert.InDelta(t, 5.5, res.Timeline.Burst.PeakMean, 1e-12)
	assert.Len(t, res.Timeline.Statistics.RollingMean, 4)
}

func TestRunTimeToIsolationHonoursMinWindows(t *testing.T) {
	cfg := testConfig()
	cfg.IsolationMinWindows = 3
	res, err := Run(context.Background(), escalation(), cfg)
	require.NoError(t, err)
	assert.False(t, res.Timeline.TimeToIsolation.Ok(), "only two windows are isolated")
}

func TestRunWithoutTargetSkipsTargetTimeline(t *testing.T) {
	cfg := testConfig()
	cfg.TargetID = ""
	res, err := Run(context.Background(), escalation(), cfg)
	require.NoError(t, err)
	assert.False(t, res.Timeline.TimeToIsolation.Ok())
	assert.False(t, res.Timeline.PeakInShare.Ok())
	assert.False(t, res.Timeline.InShareHalfLife.Ok())
}

func TestRunIsIndependentOfWorkerCount(t *testing.T) {
	columns := []string{"n_nodes", "n_edges", "peak_mean", "topk_pr_share_k5", "victim_inshare", "victim_is_isolated"}

	run := func(workers int) *Result {
		cfg := testConfig()
		cfg.Workers = workers
		res, err := Run(context.Background(), escalation(), cfg)
		require.NoError(t, err)
		return res
	}
	serial, parallel := run(1), run(8)
	for _, col := range columns {
		assert.Equal(t, serial.Series(col), parallel.Series(col), col)
	}
}

func TestRunEmptyStore(t *testing.T) {
	res, err := Run(context.Background(), interaction.NewStore(nil), testConfig())
	require.NoError(t, err)
	assert.Empty(t, res.Windows)
	assert.False(t, res.Timeline.Burst.Onset.Ok())
	assert.Empty(t, res.Analysis.Curves)
}

func TestRunKeepsEmptyWindows(t *testing.T) {
	store := interaction.NewStore([]interaction.Event{
		ev(0, "a", "b"),
		ev(20, "b", "a"),
	})
	res, err := Run(context.Background(), store, testConfig())
	require.NoError(t, err)
	require.Len(t, res.Windows, 3)
	assert.Equal(t, 0, res.Windows[1].Record.Nodes)
	assert.Equal(t, 0, res.Windows[1].Summary.InteractionCount)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, escalation(), testConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Window = 0
	_, err := New(cfg, nil, nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidWindow))

	cfg = testConfig()
	cfg.Burst.Climax = burst.Climax{Method: "steepest"}
	_, err = New(cfg, nil, nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	cfg = testConfig()
	cfg.Burst.Threshold = burst.Threshold{Method: "median"}
	_, err = New(cfg, nil, nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestRunDoseResponseOverLabelShares(t *testing.T) {
	// 12 windows of 1h; the share of "toxic" nodes rises with activity.
	var events []interaction.Event
	for h := 0; h < 12; h++ {
		for i := 0; i <= h; i++ {
			src := "n" + string(rune('a'+i%6))
			label := "0"
			if i%2 == 0 && i <= h/2 {
				label = "1"
			}
			events = append(events, interaction.Event{
				Source:    src,
				Target:    "v",
				Timestamp: at(h).Add(time.Duration(i) * time.Minute),
				Labels:    map[string]string{"toxic": label},
			})
		}
	}
	events = append(events, ev(12, "na", "nb"))

	amCfg := am.Default()
	amCfg.Window.Size = "1h"
	amCfg.Window.Step = "1h"
	amCfg.Target.ID = "v"
	amCfg.Input.LabelColumns = []string{"toxic"}
	amCfg.DoseResponse.Responses = []string{"peak_mean"}
	amCfg.DoseResponse.MinSamplesPerBin = 1
	amCfg.DoseResponse.NBins = 3
	cfg, err := FromAM(amCfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"toxic"}, cfg.LabelColumns)
	assert.Equal(t, "toxic", cfg.Metrics.LabelColumn)
	assert.Equal(t, []string{metrics.FactorName("toxic")}, cfg.FactorNames())

	res, err := Run(context.Background(), interaction.NewStore(events), cfg)
	require.NoError(t, err)
	require.Len(t, res.Windows, 12)

	assert.Equal(t, []string{"label_toxic_share"}, res.Analysis.Factors)
	require.NotEmpty(t, res.Analysis.Curves)
	curve := res.Analysis.Curves[0]
	assert.Equal(t, "label_toxic_share", curve.Factor)
	assert.Equal(t, "peak_mean", curve.Response)
	require.Len(t, res.Analysis.Thresholds, 1)
	assert.Empty(t, res.Analysis.Interactions, "one factor has no pairs")
}

type recordingProgress struct {
	mu       sync.Mutex
	stages   []string
	windows  int
	complete bool
	errs     int
}

func (r *recordingProgress) EmitStage(stage, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *recordingProgress) EmitProgress(count int, _ map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows += count
}

func (r *recordingProgress) EmitComplete(map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete = true
}

func (r *recordingProgress) EmitError(string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs++
}

func TestRunReportsProgress(t *testing.T) {
	prog := &recordingProgress{}
	p, err := New(testConfig(), zaptest.NewLogger(t).Sugar(), prog)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), escalation())
	require.NoError(t, err)
	assert.Equal(t, []string{StageWindows, StageTimeline, StageAnalysis}, prog.stages)
	assert.Equal(t, 4, prog.windows)
	assert.True(t, prog.complete)
	assert.Zero(t, prog.errs)
}

func TestFromAMRejectsUnknownCommunityMethod(t *testing.T) {
	c := am.Default()
	c.Community.Methods = []string{"leiden"}
	_, err := FromAM(c)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	c = am.Default()
	c.Window.Size = "soon"
	_, err = FromAM(c)
	assert.True(t, errors.Is(err, errors.ErrInvalidWindow))
}
