package metrics

import (
	"sort"

	"github.com/carlospaes120/scapegoat/internal/value"
)

// Column is one named numeric cell of a Record.
type Column struct {
	Name  string
	Value value.Maybe[float64]
}

// DefaultResponses are the record columns analysed against label factors.
var DefaultResponses = []string{
	"peak_mean", "peak_median", "betweenness_centralization",
	"victim_reciprocity", "victim_scc_size", "victim_ego_density",
	"victim_inshare", "avg_path_len",
}

// Columns lists the record's numeric columns in metrics_by_window order.
// Booleans are 0/1, counts are exact, and factor columns come last sorted by
// name.
func (r *Record) Columns() []Column {
	def := func(x float64) value.Maybe[float64] { return value.Defined(x) }
	count := func(n int) value.Maybe[float64] { return value.Defined(float64(n)) }
	flag := func(b bool) value.Maybe[float64] {
		if b {
			return value.Defined(1.0)
		}
		return value.Defined(0.0)
	}
	maybeInt := func(m value.Maybe[int]) value.Maybe[float64] {
		if v, ok := m.Get(); ok {
			return value.Defined(float64(v))
		}
		return value.Undefined[float64]()
	}

	cols := []Column{
		{"n_nodes", count(r.Nodes)},
		{"n_edges", count(r.Edges)},
		{"density", def(r.Density)},
		{"undirected_density", def(r.UndirectedDensity)},
		{"n_weakly_components", count(r.WeakComponents)},
		{"n_strongly_components", count(r.StrongComponents)},
		{"is_weakly_connected", flag(r.IsWeaklyConnected)},
		{"is_strongly_connected", flag(r.IsStronglyConnected)},
		{"peak_mean", count(r.Interactions)},
		{"peak_median", count(r.Interactions)},
		{"pagerank_converged", flag(r.PageRankConverged)},
	}
	for _, t := range r.TopK {
		cols = append(cols, Column{t.Column(), def(t.Share)})
	}
	cols = append(cols,
		Column{"leader_pagerank", r.LeaderPageRank},
		Column{"leader_rank", maybeInt(r.LeaderRank)},
		Column{"betweenness_centralization", def(r.BetweennessCentralization)},
		Column{"assortativity", r.Assortativity},
		Column{"label_betweenness_share", def(r.LabelBetweennessShare)},
		Column{"victim_present", flag(r.TargetPresent)},
		Column{"victim_reciprocity", count(r.TargetReciprocity)},
		Column{"victim_scc_size", count(r.TargetSCCSize)},
		Column{"victim_ego_density", def(r.TargetEgoDensity)},
		Column{"victim_is_isolated", flag(r.TargetIsolated)},
		Column{"victim_inshare", def(r.TargetInShare)},
		Column{"avg_path_len", r.AvgPathLength},
		Column{"eff_diameter", def(r.EffectiveDiameter)},
		Column{"median_distance_to_victim", r.MedianDistanceToTarget},
		Column{"n_communities", count(r.Community.Communities)},
		Column{"largest_community_size", count(r.Community.LargestSize)},
		Column{"avg_community_size", def(r.Community.AvgSize)},
		Column{"community_size_std", def(r.Community.SizeStd)},
		Column{"modularity", r.Community.Modularity},
		Column{"community_degraded", flag(r.CommunityDegraded)},
		Column{"nmi_with_previous", r.NMIWithPrevious},
		Column{"nmi_with_next", r.NMIWithNext},
		Column{"onset_flag", flag(r.OnsetFlag)},
		Column{"climax_flag", flag(r.ClimaxFlag)},
	)

	names := make([]string, 0, len(r.Factors))
	for name := range r.Factors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cols = append(cols, Column{name, r.Factors[name]})
	}
	return cols
}

// Column returns the named numeric column, Undefined when unknown.
func (r *Record) Column(name string) (value.Maybe[float64], bool) {
	for _, c := range r.Columns() {
		if c.Name == name {
			return c.Value, true
		}
	}
	return value.Undefined[float64](), false
}
