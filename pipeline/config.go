package pipeline

import (
	"runtime"
	"time"

	"github.com/carlospaes120/scapegoat/am"
	"github.com/carlospaes120/scapegoat/burst"
	"github.com/carlospaes120/scapegoat/community"
	"github.com/carlospaes120/scapegoat/doseresponse"
	"github.com/carlospaes120/scapegoat/errors"
	"github.com/carlospaes120/scapegoat/metrics"
	"github.com/carlospaes120/scapegoat/window"
)

// Config is the resolved, typed form of am.Config used by a run.
type Config struct {
	Window time.Duration
	Step   time.Duration

	TargetID string
	LeaderID string
	// LabelColumns are the event columns whose per-node majority value is
	// made available to the metrics engine.
	LabelColumns []string

	Metrics             metrics.Config
	IsolationMinWindows int
	Community           community.Config
	Burst               BurstConfig
	DoseResponse        DoseResponseConfig

	// Workers bounds phase-1 parallelism; <= 0 means runtime.NumCPU().
	Workers int
}

// BurstConfig tunes the run-level escalation analysis of the activity series.
type BurstConfig struct {
	Threshold          burst.Threshold
	MinLength          int
	BaselinePercentile float64
	OnsetThreshold     float64
	Climax             burst.Climax
	AnomalyMethod      burst.AnomalyMethod
	AnomalyK           float64
	StatisticsWindow   int
}

// DoseResponseConfig tunes the factor/response analysis over the window table.
type DoseResponseConfig struct {
	Options      doseresponse.Options
	Responses    []string
	Split        doseresponse.Split
	MinRows      int
	Interactions bool
}

// DefaultConfig is the typed form of am's built-in defaults.
func DefaultConfig() Config {
	cfg, err := FromAM(am.Default())
	if err != nil {
		// defaults always resolve
		panic(err)
	}
	return cfg
}

// FromAM resolves durations and method names. Bad durations are
// ErrInvalidWindow; unknown method names are ErrInvalidRequest.
func FromAM(c *am.Config) (Config, error) {
	size, err := window.ParseDuration(c.Window.Size)
	if err != nil {
		return Config{}, errors.WithHint(errors.Wrap(err, "window.size"), "use a duration such as 6h, 6H, 1d or 30m")
	}
	step, err := window.ParseDuration(c.Window.Step)
	if err != nil {
		return Config{}, errors.WithHint(errors.Wrap(err, "window.step"), "use a duration such as 6h, 6H, 1d or 30m")
	}

	methods := make([]community.Method, 0, len(c.Community.Methods))
	for _, name := range c.Community.Methods {
		m, ok := community.ParseMethod(name)
		if !ok {
			return Config{}, errors.WithHint(
				errors.NewInvalidRequestError("unknown community method %q", name),
				"use refined_louvain, local_moving or singletons",
			)
		}
		methods = append(methods, m)
	}

	labelColumn := c.Metrics.LabelColumn
	if labelColumn == "" && len(c.Input.LabelColumns) > 0 {
		labelColumn = c.Input.LabelColumns[0]
	}
	factorColumns := c.Metrics.FactorColumns
	if len(factorColumns) == 0 {
		factorColumns = c.Input.LabelColumns
	}

	cfg := Config{
		Window:   size,
		Step:     step,
		TargetID: c.Target.ID,
		LeaderID: c.Target.LeaderID,
		Metrics: metrics.Config{
			TopK:               append([]int(nil), c.Metrics.TopK...),
			IsolationThreshold: c.Metrics.IsolationThreshold,
			DiameterPercentile: c.Metrics.DiameterPercentile,
			PageRank: metrics.PageRankOptions{
				Damping:       c.Metrics.PageRank.Damping,
				Tolerance:     c.Metrics.PageRank.Tolerance,
				MaxIterations: c.Metrics.PageRank.MaxIterations,
			},
			LabelColumn:   labelColumn,
			PositiveLabel: c.Metrics.PositiveLabel,
			FactorColumns: append([]string(nil), factorColumns...),
		},
		IsolationMinWindows: c.Metrics.IsolationMinWindows,
		Community: community.Config{
			Methods:    methods,
			Resolution: c.Community.Resolution,
			Restarts:   c.Community.Restarts,
			MaxPasses:  c.Community.MaxPasses,
		},
		Burst: BurstConfig{
			Threshold: burst.Threshold{
				Method: burst.ThresholdMethod(c.Burst.ThresholdMethod),
				Value:  c.Burst.ThresholdValue,
			},
			MinLength:          c.Burst.MinLength,
			BaselinePercentile: c.Burst.BaselinePercentile,
			OnsetThreshold:     c.Burst.OnsetThreshold,
			Climax: burst.Climax{
				Method: burst.ClimaxMethod(c.Burst.ClimaxMethod),
				Window: c.Burst.ClimaxWindow,
			},
			AnomalyMethod:    burst.AnomalyMethod(c.Burst.AnomalyMethod),
			AnomalyK:         c.Burst.AnomalyK,
			StatisticsWindow: c.Burst.StatisticsWindow,
		},
		DoseResponse: DoseResponseConfig{
			Options: doseresponse.Options{
				NBins:            c.DoseResponse.NBins,
				MinSamplesPerBin: c.DoseResponse.MinSamplesPerBin,
			},
			Responses: append([]string(nil), c.DoseResponse.Responses...),
			Split: doseresponse.Split{
				Method: doseresponse.SplitMethod(c.DoseResponse.SplitMethod),
				Value:  c.DoseResponse.SplitValue,
			},
			MinRows:      c.DoseResponse.MinRows,
			Interactions: c.DoseResponse.Interactions,
		},
		Workers: c.Pipeline.Workers,
	}
	cfg.LabelColumns = labelColumns(c.Input.LabelColumns, []string{labelColumn}, factorColumns)
	return cfg, nil
}

// labelColumns is the ordered union of every column a run reads labels from.
func labelColumns(groups ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range groups {
		for _, col := range g {
			if col != "" && !seen[col] {
				seen[col] = true
				out = append(out, col)
			}
		}
	}
	return out
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// FactorNames are the window-table columns used as dose-response factors.
func (c Config) FactorNames() []string {
	out := make([]string, len(c.Metrics.FactorColumns))
	for i, col := range c.Metrics.FactorColumns {
		out[i] = metrics.FactorName(col)
	}
	return out
}
