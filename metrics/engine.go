// Package metrics computes the per-window battery of influence, isolation
// and cohesion measures over a graph.Snapshot.
//
// Compute is total: degenerate snapshots (no nodes, one node, no edges,
// disconnected) produce a record with documented fallback values. A metric
// that panics is logged and left at its fallback; it never fails the window.
package metrics

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/carlospaes120/scapegoat/community"
	"github.com/carlospaes120/scapegoat/graph"
	"github.com/carlospaes120/scapegoat/internal/value"
	"github.com/carlospaes120/scapegoat/logger"
	"github.com/carlospaes120/scapegoat/window"
)

// Config holds the engine's tunables.
type Config struct {
	TopK               []int           `mapstructure:"top_k" json:"top_k"`
	IsolationThreshold float64         `mapstructure:"isolation_threshold" json:"isolation_threshold"`
	DiameterPercentile float64         `mapstructure:"diameter_percentile" json:"diameter_percentile"`
	PageRank           PageRankOptions `mapstructure:"pagerank" json:"pagerank"`

	// LabelColumn is the categorical column used for assortativity and the
	// label betweenness share; PositiveLabel is the value counted as positive.
	LabelColumn   string `mapstructure:"label_column" json:"label_column"`
	PositiveLabel string `mapstructure:"positive_label" json:"positive_label"`
	// FactorColumns each yield a "label_<col>_share" factor.
	FactorColumns []string `mapstructure:"factor_columns" json:"factor_columns"`
}

// DefaultConfig returns the case-study defaults.
func DefaultConfig() Config {
	return Config{
		TopK:               []int{5, 10},
		IsolationThreshold: 0.05,
		DiameterPercentile: graph.DefaultDiameterPercentile,
		PageRank:           DefaultPageRankOptions(),
		PositiveLabel:      "1",
	}
}

// Inputs are the optional per-run parameters of Compute.
type Inputs struct {
	TargetID   string
	LeaderID   string
	NodeLabels NodeLabels
}

// Concentration is one top-k PageRank share.
type Concentration struct {
	K     int     `json:"k"`
	Share float64 `json:"share"`
}

// Column is the metrics_by_window column name for this share.
func (t Concentration) Column() string { return fmt.Sprintf("topk_pr_share_k%d", t.K) }

// Record is one row of the window table. Only OnsetFlag, ClimaxFlag,
// NMIWithPrevious and NMIWithNext change after Compute, once, in the
// pipeline's ordered pass.
type Record struct {
	Window int       `json:"window"`
	Start  time.Time `json:"t_start"`
	End    time.Time `json:"t_end"`
	graph.Descriptor

	Interactions      int             `json:"peak_mean"`
	PageRankConverged bool            `json:"pagerank_converged"`
	TopK              []Concentration `json:"topk_pr_share"`

	Leader         string               `json:"leader,omitempty"`
	LeaderInferred bool                 `json:"leader_inferred"`
	LeaderPageRank value.Maybe[float64] `json:"leader_pagerank"`
	LeaderRank     value.Maybe[int]     `json:"leader_rank"`

	BetweennessCentralization float64              `json:"betweenness_centralization"`
	Assortativity             value.Maybe[float64] `json:"assortativity"`
	LabelBetweennessShare     float64              `json:"label_betweenness_share"`

	TargetPresent     bool    `json:"victim_present"`
	TargetReciprocity int     `json:"victim_reciprocity"`
	TargetSCCSize     int     `json:"victim_scc_size"`
	TargetEgoDensity  float64 `json:"victim_ego_density"`
	TargetIsolated    bool    `json:"victim_is_isolated"`
	TargetInShare     float64 `json:"victim_inshare"`

	UndirectedDensity      float64              `json:"undirected_density"`
	AvgPathLength          value.Maybe[float64] `json:"avg_path_len"`
	EffectiveDiameter      float64              `json:"eff_diameter"`
	MedianDistanceToTarget value.Maybe[float64] `json:"median_distance_to_victim"`

	CommunityMethod   community.Method  `json:"community_method"`
	CommunityDegraded bool              `json:"community_degraded"`
	CommunityReason   string            `json:"community_reason,omitempty"`
	Community         community.Summary `json:"community"`

	NMIWithPrevious value.Maybe[float64] `json:"nmi_with_previous"`
	NMIWithNext     value.Maybe[float64] `json:"nmi_with_next"`
	OnsetFlag       bool                 `json:"onset_flag"`
	ClimaxFlag      bool                 `json:"climax_flag"`

	Factors map[string]value.Maybe[float64] `json:"factors,omitempty"`
}

// Share returns the top-k share for k, if computed.
func (r *Record) Share(k int) (float64, bool) {
	for _, t := range r.TopK {
		if t.K == k {
			return t.Share, true
		}
	}
	return 0, false
}

// NodeRecord is the per-window per-node bag.
type NodeRecord struct {
	Node        string           `json:"node_id"`
	PageRank    float64          `json:"pagerank"`
	Betweenness float64          `json:"betweenness"`
	InDegree    int              `json:"in_degree"`
	OutDegree   int              `json:"out_degree"`
	Community   value.Maybe[int] `json:"community_id"`
}

// Result is Compute's output for one window.
type Result struct {
	Record   Record
	Nodes    []NodeRecord
	PageRank map[string]float64
}

// ApplyCommunities copies a detection result into the record and the node
// records. Labels stay window-local.
func (r *Result) ApplyCommunities(c community.Result) {
	r.Record.CommunityMethod = c.Method
	r.Record.CommunityDegraded = c.Degraded
	r.Record.CommunityReason = c.Reason
	r.Record.Community = c.Summary
	for i := range r.Nodes {
		if id, ok := c.Partition[r.Nodes[i].Node]; ok {
			r.Nodes[i].Community = value.Defined(id)
		}
	}
}

// Engine computes window metrics. It holds no per-window state and is safe
// for concurrent use.
type Engine struct {
	cfg Config
	log *zap.SugaredLogger
}

// NewEngine fills zero-valued tunables from DefaultConfig.
func NewEngine(cfg Config, log *zap.SugaredLogger) *Engine {
	def := DefaultConfig()
	if len(cfg.TopK) == 0 {
		cfg.TopK = def.TopK
	}
	if cfg.DiameterPercentile <= 0 || cfg.DiameterPercentile > 1 {
		cfg.DiameterPercentile = def.DiameterPercentile
	}
	if cfg.PageRank == (PageRankOptions{}) {
		cfg.PageRank = def.PageRank
	}
	if log == nil {
		log = logger.Logger
	}
	return &Engine{cfg: cfg, log: log.Named("metrics")}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// guard runs fn and logs a recovered panic; the metric keeps its fallback.
func (e *Engine) guard(w window.Window, metric string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warnw("metric failed, using fallback",
				logger.FieldWindow, w.Index,
				logger.FieldMetric, metric,
				logger.FieldError, fmt.Sprint(r))
		}
	}()
	fn()
}

// Compute fills a Record for snap over window w. snap is only read.
func (e *Engine) Compute(w window.Window, snap *graph.Snapshot, in Inputs) Result {
	rec := Record{
		Window:                 w.Index,
		Start:                  w.Start,
		End:                    w.End,
		Descriptor:             snap.Describe(),
		Interactions:           snap.InteractionCount(),
		PageRankConverged:      true,
		LeaderPageRank:         value.Undefined[float64](),
		LeaderRank:             value.Undefined[int](),
		Assortativity:          value.Undefined[float64](),
		AvgPathLength:          value.Undefined[float64](),
		MedianDistanceToTarget: value.Undefined[float64](),
		CommunityMethod:        community.MethodSingletons,
		Community:              community.Summary{LargestID: -1, Modularity: value.Undefined[float64]()},
		NMIWithPrevious:        value.Undefined[float64](),
		NMIWithNext:            value.Undefined[float64](),
	}

	n := snap.NodeCount()
	pr := make(map[string]float64, n)
	e.guard(w, "pagerank", func() {
		pr, rec.PageRankConverged = PageRank(snap, e.cfg.PageRank)
		if !rec.PageRankConverged {
			e.log.Debugw("pagerank did not converge, using uniform scores",
				logger.FieldWindow, w.Index, logger.FieldNodes, n)
		}
	})

	for _, k := range e.cfg.TopK {
		rec.TopK = append(rec.TopK, Concentration{K: k, Share: TopKShare(pr, k)})
	}

	e.guard(w, "leader", func() { e.leader(&rec, pr, in.LeaderID) })

	e.guard(w, "betweenness_centralization", func() {
		rec.BetweennessCentralization = BetweennessCentralization(snap)
	})

	if e.cfg.LabelColumn != "" {
		e.guard(w, "assortativity", func() {
			rec.Assortativity = Assortativity(snap, in.NodeLabels, e.cfg.LabelColumn)
		})
		e.guard(w, "label_betweenness_share", func() {
			rec.LabelBetweennessShare = LabelBetweennessShare(snap, in.NodeLabels, e.cfg.LabelColumn, e.cfg.PositiveLabel)
		})
	}

	if in.TargetID != "" && snap.Has(in.TargetID) {
		e.guard(w, "target_isolation", func() { e.isolation(&rec, snap, in.TargetID) })
		e.guard(w, "median_distance", func() {
			rec.MedianDistanceToTarget = snap.MedianDistanceTo(in.TargetID)
		})
	}

	e.guard(w, "cohesion", func() {
		rec.UndirectedDensity = snap.UndirectedDensity()
		rec.AvgPathLength = snap.AveragePathLength()
		rec.EffectiveDiameter = snap.EffectiveDiameter(e.cfg.DiameterPercentile)
	})

	rec.Factors = e.factors(snap, in.NodeLabels)

	var nodes []NodeRecord
	e.guard(w, "node_ranks", func() { nodes = nodeRecords(snap, pr) })

	return Result{Record: rec, Nodes: nodes, PageRank: pr}
}

// leader records the configured leader's score and rank, or infers the
// leader as the top-ranked node when none is configured or it is absent.
func (e *Engine) leader(rec *Record, pr map[string]float64, leaderID string) {
	if leaderID != "" {
		if score, ok := pr[leaderID]; ok {
			rec.Leader = leaderID
			rec.LeaderPageRank = value.Defined(score)
			rec.LeaderRank = value.Defined(Rank(pr, leaderID))
			return
		}
	}
	ranked := Ranked(pr)
	if len(ranked) == 0 {
		return
	}
	rec.Leader = ranked[0]
	rec.LeaderInferred = true
	rec.LeaderPageRank = value.Defined(pr[ranked[0]])
}

func (e *Engine) isolation(rec *Record, snap *graph.Snapshot, target string) {
	rec.TargetPresent = true
	rec.TargetReciprocity = snap.Reciprocity(target)
	rec.TargetSCCSize = snap.SCCSize(target)
	rec.TargetEgoDensity = snap.EgoDensity(target)
	rec.TargetIsolated = rec.TargetReciprocity == 0 &&
		rec.TargetSCCSize == 1 &&
		rec.TargetEgoDensity <= e.cfg.IsolationThreshold
	if total := snap.TotalInDegree(); total > 0 {
		rec.TargetInShare = float64(snap.InDegree(target)) / float64(total)
	}
}

// factors are the explanatory variables offered to dose-response analysis
// besides the record's own columns.
func (e *Engine) factors(snap *graph.Snapshot, labels NodeLabels) map[string]value.Maybe[float64] {
	if len(e.cfg.FactorColumns) == 0 {
		return nil
	}
	out := make(map[string]value.Maybe[float64], len(e.cfg.FactorColumns))
	nodes := snap.Nodes()
	for _, col := range e.cfg.FactorColumns {
		name := FactorName(col)
		if len(nodes) == 0 {
			out[name] = value.Undefined[float64]()
			continue
		}
		out[name] = value.Defined(labels.Share(nodes, col, e.cfg.PositiveLabel))
	}
	return out
}

// FactorName is the column name of the label-share factor for col.
func FactorName(col string) string { return "label_" + col + "_share" }

func nodeRecords(snap *graph.Snapshot, pr map[string]float64) []NodeRecord {
	bc := NormalizedBetweenness(snap)
	out := make([]NodeRecord, 0, snap.NodeCount())
	for _, n := range snap.Nodes() {
		out = append(out, NodeRecord{
			Node:        n,
			PageRank:    pr[n],
			Betweenness: bc[n],
			InDegree:    snap.InDegree(n),
			OutDegree:   snap.OutDegree(n),
			Community:   value.Undefined[int](),
		})
	}
	return out
}
