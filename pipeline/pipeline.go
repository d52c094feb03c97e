// Package pipeline runs the windowed engine end to end.
//
// Phase 1 computes every window independently on a bounded errgroup; each
// goroutine writes only its own pre-indexed slot and owns its snapshot.
// Phase 2 walks the ordered slots once to fill the cross-window fields
// (community agreement with the neighbours, onset and climax flags) and
// then runs the burst and dose-response analyses over the assembled table.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/carlospaes120/scapegoat/burst"
	"github.com/carlospaes120/scapegoat/community"
	"github.com/carlospaes120/scapegoat/doseresponse"
	"github.com/carlospaes120/scapegoat/errors"
	"github.com/carlospaes120/scapegoat/graph"
	"github.com/carlospaes120/scapegoat/interaction"
	"github.com/carlospaes120/scapegoat/internal/stats"
	"github.com/carlospaes120/scapegoat/internal/value"
	"github.com/carlospaes120/scapegoat/logger"
	"github.com/carlospaes120/scapegoat/metrics"
	"github.com/carlospaes120/scapegoat/window"
)

// ActivityColumn is the series burst detection and onset/climax run on.
const ActivityColumn = "peak_mean"

// Pipeline holds the components of a run. It is safe to Run repeatedly.
type Pipeline struct {
	cfg      Config
	gen      *window.Generator
	engine   *metrics.Engine
	detector *community.Detector
	log      *zap.SugaredLogger
	progress Progress
}

// New validates cfg and builds the components. A nil progress discards
// updates; a nil log uses the global logger.
func New(cfg Config, log *zap.SugaredLogger, progress Progress) (*Pipeline, error) {
	gen, err := window.NewGenerator(cfg.Window, cfg.Step)
	if err != nil {
		return nil, err
	}
	if _, err := cfg.Burst.Threshold.Resolve(nil); err != nil {
		return nil, errors.Wrap(err, "burst threshold")
	}
	if _, _, err := burst.FindOnsetClimax(nil, cfg.Burst.OnsetThreshold, cfg.Burst.Climax); err != nil {
		return nil, errors.Wrap(err, "burst climax")
	}
	if log == nil {
		log = logger.Logger
	}
	if progress == nil {
		progress = nopProgress{}
	}
	log = log.Named("pipeline")
	return &Pipeline{
		cfg:      cfg,
		gen:      gen,
		engine:   metrics.NewEngine(cfg.Metrics, log),
		detector: community.NewDetector(log, community.DefaultStrategies(cfg.Community)...),
		log:      log,
		progress: progress,
	}, nil
}

// Run is New followed by Pipeline.Run with the global logger.
func Run(ctx context.Context, store *interaction.Store, cfg Config) (*Result, error) {
	p, err := New(cfg, nil, nil)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, store)
}

// Config returns the run configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Run computes every window of store and the run-level analyses. ctx is
// checked between windows; a cancelled run returns ctx's error.
func (p *Pipeline) Run(ctx context.Context, store *interaction.Store) (*Result, error) {
	log := logger.LoggerFromContext(ctx, p.log)
	res := &Result{Config: p.cfg, Started: time.Now()}

	windows := p.gen.ForStore(store)
	log.Infow("Computing windows",
		logger.FieldWindows, len(windows),
		logger.FieldInteractions, store.Len(),
		"workers", p.cfg.workers())
	p.progress.EmitStage(StageWindows, fmt.Sprintf("computing %d windows", len(windows)))

	slots, err := p.computeWindows(ctx, log, store, windows)
	if err != nil {
		p.progress.EmitError(StageWindows, err)
		return nil, err
	}
	res.Windows = slots

	p.progress.EmitStage(StageTimeline, "linking windows")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	link(res.Windows)
	if res.Timeline, err = p.timeline(res); err != nil {
		p.progress.EmitError(StageTimeline, err)
		return nil, err
	}

	p.progress.EmitStage(StageAnalysis, "dose-response analysis")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res.Analysis, err = p.analyze(log, res); err != nil {
		p.progress.EmitError(StageAnalysis, err)
		return nil, err
	}

	res.Duration = time.Since(res.Started)
	log.Infow("Run complete",
		logger.FieldWindows, len(res.Windows),
		"curves", len(res.Analysis.Curves),
		"bursts", len(res.Timeline.Periods),
		logger.FieldDurationMS, res.Duration.Milliseconds())
	p.progress.EmitComplete(map[string]interface{}{
		"windows":  len(res.Windows),
		"bursts":   len(res.Timeline.Periods),
		"curves":   len(res.Analysis.Curves),
		"duration": res.Duration.String(),
	})
	return res, nil
}

// computeWindows is phase 1.
func (p *Pipeline) computeWindows(ctx context.Context, log *zap.SugaredLogger, store *interaction.Store, windows []window.Window) ([]WindowResult, error) {
	slots := make([]WindowResult, len(windows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.workers())

	for i, w := range windows {
		if gctx.Err() != nil {
			break
		}
		i, w := i, w
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = p.computeWindow(log, store, w)
			p.progress.EmitProgress(1, map[string]interface{}{
				logger.FieldWindow: w.Index,
				logger.FieldNodes:  slots[i].Record.Nodes,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "window computation stopped")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "window computation stopped")
	}
	return slots, nil
}

// computeWindow builds and measures one window. It never fails: degenerate
// windows produce records with fallback values.
func (p *Pipeline) computeWindow(log *zap.SugaredLogger, store *interaction.Store, w window.Window) WindowResult {
	start := time.Now()
	events := window.Events(store, w)

	var labels metrics.NodeLabels
	if len(p.cfg.LabelColumns) > 0 {
		labels = window.NodeLabels(events, p.cfg.LabelColumns)
	}

	snap := graph.Build(events)
	res := p.engine.Compute(w, snap, metrics.Inputs{
		TargetID:   p.cfg.TargetID,
		LeaderID:   p.cfg.LeaderID,
		NodeLabels: labels,
	})
	comm := p.detector.Detect(snap)
	res.ApplyCommunities(comm)
	if comm.Degraded {
		log.Debugw("Community detection degraded",
			logger.FieldWindow, w.Index,
			logger.FieldMethod, comm.Method,
			logger.FieldReason, comm.Reason)
	}

	log.Debugw("Window computed",
		logger.FieldWindow, w.Index,
		logger.FieldWindowStart, w.Start,
		logger.FieldNodes, snap.NodeCount(),
		logger.FieldEdges, snap.EdgeCount(),
		logger.FieldDurationMS, time.Since(start).Milliseconds())

	return WindowResult{
		Result:    res,
		Partition: comm.Partition,
		Summary:   window.Summarize(w, events),
	}
}

// link fills each record's agreement with its neighbours. Each pair is
// compared once and written to both sides.
func link(windows []WindowResult) {
	for i := 1; i < len(windows); i++ {
		nmi := community.Agreement(windows[i-1].Partition, windows[i].Partition)
		windows[i-1].Record.NMIWithNext = nmi
		windows[i].Record.NMIWithPrevious = nmi
	}
}

// timeline is phase 2's ordered analysis of the activity series; it sets the
// onset and climax flags on the records.
func (p *Pipeline) timeline(res *Result) (Timeline, error) {
	tl := Timeline{
		TimeToIsolation: timeToIsolation(res.Windows, p.cfg.IsolationMinWindows),
		PeakInShare:     value.Undefined[int](),
		InShareHalfLife: value.Undefined[int](),
	}
	series := res.Series(ActivityColumn)

	var err error
	if tl.Burst, err = burst.Summarize(series, p.cfg.Burst.OnsetThreshold, p.cfg.Burst.Climax); err != nil {
		return tl, err
	}
	if i, ok := tl.Burst.Onset.Get(); ok {
		res.Windows[i].Record.OnsetFlag = true
	}
	if i, ok := tl.Burst.Climax.Get(); ok {
		res.Windows[i].Record.ClimaxFlag = true
	}

	if len(series) == 0 {
		return tl, nil
	}
	if tl.Periods, err = burst.Periods(series, p.cfg.Burst.Threshold, p.cfg.Burst.MinLength, p.cfg.Burst.BaselinePercentile); err != nil {
		return tl, err
	}
	if tl.Anomalies, err = burst.Anomalies(series, p.cfg.Burst.AnomalyMethod, p.cfg.Burst.AnomalyK); err != nil {
		return tl, err
	}
	w := p.cfg.Burst.StatisticsWindow
	if w < 1 {
		w = 3
	}
	tl.Statistics = burst.Describe(series, w)
	tl.Evolution = burst.Evolve(series, w)

	if p.cfg.TargetID != "" {
		inshare := res.Series("victim_inshare")
		peak := stats.ArgMax(inshare)
		if peak >= 0 {
			tl.PeakInShare = value.Defined(peak)
			tl.InShareHalfLife = burst.HalfLife(inshare, peak, value.Undefined[float64]())
		}
	}
	return tl, nil
}

// timeToIsolation is the first isolated window, provided at least
// minWindows windows are isolated.
func timeToIsolation(windows []WindowResult, minWindows int) value.Maybe[int] {
	if minWindows < 1 {
		minWindows = 1
	}
	first, count := -1, 0
	for i := range windows {
		if windows[i].Record.TargetIsolated {
			if first < 0 {
				first = i
			}
			count++
		}
	}
	if first < 0 || count < minWindows {
		return value.Undefined[int]()
	}
	return value.Defined(first)
}

// analyze runs the dose-response module over the finished window table.
func (p *Pipeline) analyze(log *zap.SugaredLogger, res *Result) (Analysis, error) {
	cfg := p.cfg.DoseResponse
	a := Analysis{Factors: p.cfg.FactorNames(), Responses: cfg.Responses}
	if len(a.Factors) == 0 || len(a.Responses) == 0 || len(res.Windows) == 0 {
		log.Debugw("Skipping dose-response analysis",
			"factors", len(a.Factors), "responses", len(a.Responses))
		return a, nil
	}
	frame := res.Frame()

	var err error
	if a.Curves, err = doseresponse.Analyze(frame, a.Factors, a.Responses, cfg.Options); err != nil {
		return a, err
	}

	for _, f := range a.Factors {
		for _, r := range a.Responses {
			if f == r {
				continue
			}
			rep, err := doseresponse.ThresholdEffect(frame, f, r, cfg.Split, cfg.MinRows)
			if err != nil {
				return a, err
			}
			if rep != nil {
				a.Thresholds = append(a.Thresholds, *rep)
			}
		}
	}

	if cfg.Interactions {
		for i := 0; i < len(a.Factors); i++ {
			for j := i + 1; j < len(a.Factors); j++ {
				for _, r := range a.Responses {
					rep, err := doseresponse.InteractionEffect(frame, a.Factors[i], a.Factors[j], r, cfg.MinRows)
					if err != nil {
						return a, err
					}
					if rep != nil {
						a.Interactions = append(a.Interactions, *rep)
					}
				}
			}
		}
	}

	log.Infow("Dose-response analysis complete",
		"curves", len(a.Curves),
		"threshold_effects", len(a.Thresholds),
		"interaction_effects", len(a.Interactions))
	return a, nil
}
