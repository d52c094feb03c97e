package metrics

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/carlospaes120/scapegoat/graph"
)

// PageRankOptions controls the power iteration.
type PageRankOptions struct {
	Damping       float64 `mapstructure:"damping" json:"damping"`
	Tolerance     float64 `mapstructure:"tolerance" json:"tolerance"`
	MaxIterations int     `mapstructure:"max_iterations" json:"max_iterations"`
}

// DefaultPageRankOptions uses damping 0.85, tolerance 1e-6 and 100 iterations.
func DefaultPageRankOptions() PageRankOptions {
	return PageRankOptions{Damping: 0.85, Tolerance: 1e-6, MaxIterations: 100}
}

// PageRank computes weight-aware PageRank over snap's directed graph by
// power iteration. Out-weights are row-normalized; dangling nodes spread
// their mass uniformly. Converged is false when the L1 change never dropped
// below n*Tolerance within MaxIterations; the scores are then uniform 1/n.
func PageRank(snap *graph.Snapshot, opts PageRankOptions) (scores map[string]float64, converged bool) {
	nodes := snap.Nodes()
	n := len(nodes)
	if n == 0 {
		return map[string]float64{}, true
	}
	if opts.Damping <= 0 || opts.Damping >= 1 {
		opts.Damping = 0.85
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 100
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = 1e-6
	}

	index := make(map[string]int, n)
	for i, name := range nodes {
		index[name] = i
	}

	type link struct {
		to int
		w  float64
	}
	out := make([][]link, n)
	outWeight := make([]float64, n)
	for _, e := range snap.Edges() {
		u, v := index[e.Source], index[e.Target]
		out[u] = append(out[u], link{to: v, w: e.Weight})
		outWeight[u] += e.Weight
	}

	uniform := 1.0 / float64(n)
	x := make([]float64, n)
	for i := range x {
		x[i] = uniform
	}
	next := make([]float64, n)

	for iter := 0; iter < opts.MaxIterations; iter++ {
		dangling := 0.0
		for i := range x {
			if outWeight[i] == 0 {
				dangling += x[i]
			}
		}
		base := opts.Damping*dangling*uniform + (1-opts.Damping)*uniform
		for i := range next {
			next[i] = base
		}
		for u, links := range out {
			if outWeight[u] == 0 {
				continue
			}
			share := opts.Damping * x[u] / outWeight[u]
			for _, l := range links {
				next[l.to] += share * l.w
			}
		}

		delta := floats.Distance(next, x, 1)
		x, next = next, x
		if delta < float64(n)*opts.Tolerance {
			return toScores(nodes, x), true
		}
	}

	for i := range x {
		x[i] = uniform
	}
	return toScores(nodes, x), false
}

func toScores(nodes []string, x []float64) map[string]float64 {
	out := make(map[string]float64, len(nodes))
	for i, name := range nodes {
		out[name] = x[i]
	}
	return out
}

// Ranked orders scores descending, ties by node id.
func Ranked(scores map[string]float64) []string {
	out := make([]string, 0, len(scores))
	for n := range scores {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if scores[out[i]] != scores[out[j]] {
			return scores[out[i]] > scores[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// Rank is the 1-based position of id in Ranked(scores), 0 when absent.
func Rank(scores map[string]float64, id string) int {
	if _, ok := scores[id]; !ok {
		return 0
	}
	for i, n := range Ranked(scores) {
		if n == id {
			return i + 1
		}
	}
	return 0
}
