package community

import (
	"math"
	"sort"

	gonum "gonum.org/v1/gonum/graph"
	gcommunity "gonum.org/v1/gonum/graph/community"

	"github.com/carlospaes120/scapegoat/errors"
	"github.com/carlospaes120/scapegoat/graph"
)

// Config tunes the detection strategies.
type Config struct {
	// Methods is the ranked strategy chain; singletons is always appended.
	Methods    []Method `mapstructure:"methods" json:"methods"`
	Resolution float64  `mapstructure:"resolution" json:"resolution"`
	// Restarts is the number of randomized Louvain runs; the best Q wins.
	Restarts int `mapstructure:"restarts" json:"restarts"`
	// MaxPasses bounds local-moving sweeps.
	MaxPasses int `mapstructure:"max_passes" json:"max_passes"`
}

// DefaultConfig prefers refined Louvain, then local moving.
func DefaultConfig() Config {
	return Config{
		Methods:    []Method{MethodRefined, MethodLocalMoving, MethodSingletons},
		Resolution: 1.0,
		Restarts:   5,
		MaxPasses:  50,
	}
}

// DefaultStrategies builds the strategy chain named by cfg.Methods.
func DefaultStrategies(cfg Config) []Strategy {
	var out []Strategy
	for _, m := range cfg.Methods {
		switch m {
		case MethodRefined:
			out = append(out, RefinedLouvain{Resolution: cfg.Resolution, Restarts: cfg.Restarts})
		case MethodLocalMoving:
			out = append(out, LocalMoving{Resolution: cfg.Resolution, MaxPasses: cfg.MaxPasses})
		case MethodSingletons:
			out = append(out, Singletons{})
		}
	}
	if len(out) == 0 {
		out = append(out, Singletons{})
	}
	return out
}

// RefinedLouvain runs gonum's multi-level Louvain modularization several
// times, keeps the partition with the highest Q, then splits any community
// that is internally disconnected so every community is connected.
type RefinedLouvain struct {
	Resolution float64
	Restarts   int
}

func (RefinedLouvain) Method() Method { return MethodRefined }

func (r RefinedLouvain) Detect(snap *graph.Snapshot) (Partition, error) {
	if snap.Empty() {
		return Partition{}, nil
	}
	if snap.UndirectedEdgeCount() == 0 {
		return singletons(snap), nil
	}
	res := r.Resolution
	if res <= 0 {
		res = 1
	}
	restarts := r.Restarts
	if restarts < 1 {
		restarts = 1
	}

	g := snap.Undirected()
	var best [][]gonum.Node
	bestQ := math.Inf(-1)
	for i := 0; i < restarts; i++ {
		comms := gcommunity.Modularize(g, res, nil).Communities()
		q := gcommunity.Q(g, comms, res)
		if math.IsNaN(q) {
			continue
		}
		if q > bestQ {
			best, bestQ = comms, q
		}
	}
	if best == nil {
		return nil, errors.New("modularization produced no valid partition")
	}

	var groups [][]string
	for _, c := range best {
		groups = append(groups, connectedParts(snap, snap.Names(c))...)
	}
	return fromGroups(groups), nil
}

// connectedParts splits members into the connected pieces of their induced
// undirected subgraph.
func connectedParts(snap *graph.Snapshot, members []string) [][]string {
	if len(members) <= 1 {
		return [][]string{members}
	}
	in := make(map[string]bool, len(members))
	for _, m := range members {
		in[m] = true
	}
	seen := make(map[string]bool, len(members))
	var parts [][]string
	for _, start := range members {
		if seen[start] {
			continue
		}
		part := []string{start}
		seen[start] = true
		for q := []string{start}; len(q) > 0; q = q[1:] {
			for _, nb := range snap.Neighbors(q[0]) {
				if in[nb] && !seen[nb] {
					seen[nb] = true
					part = append(part, nb)
					q = append(q, nb)
				}
			}
		}
		parts = append(parts, part)
	}
	return parts
}

// LocalMoving is single-level greedy modularity optimisation: each node
// moves to the neighbouring community with the best positive gain until a
// sweep makes no move.
type LocalMoving struct {
	Resolution float64
	MaxPasses  int
}

func (LocalMoving) Method() Method { return MethodLocalMoving }

func (l LocalMoving) Detect(snap *graph.Snapshot) (Partition, error) {
	if snap.Empty() {
		return Partition{}, nil
	}
	nodes := snap.Nodes()
	res := l.Resolution
	if res <= 0 {
		res = 1
	}
	passes := l.MaxPasses
	if passes < 1 {
		passes = 1
	}

	// undirected weighted adjacency
	adj := make(map[string]map[string]float64, len(nodes))
	strength := make(map[string]float64, len(nodes))
	total := 0.0
	for _, e := range snap.Edges() {
		for _, p := range [2][2]string{{e.Source, e.Target}, {e.Target, e.Source}} {
			if adj[p[0]] == nil {
				adj[p[0]] = make(map[string]float64)
			}
			adj[p[0]][p[1]] += e.Weight
		}
		strength[e.Source] += e.Weight
		strength[e.Target] += e.Weight
		total += e.Weight
	}
	if total == 0 {
		return singletons(snap), nil
	}
	m2 := 2 * total

	comm := make(map[string]int, len(nodes))
	tot := make(map[int]float64, len(nodes))
	for i, n := range nodes {
		comm[n] = i
		tot[i] = strength[n]
	}

	for pass := 0; pass < passes; pass++ {
		moved := false
		for _, n := range nodes {
			cur := comm[n]
			k := strength[n]
			tot[cur] -= k

			links := make(map[int]float64)
			for nb, w := range adj[n] {
				links[comm[nb]] += w
			}
			candidates := make([]int, 0, len(links))
			for c := range links {
				candidates = append(candidates, c)
			}
			sort.Ints(candidates)

			gain := func(c int) float64 {
				return links[c] - res*tot[c]*k/m2
			}
			best, bestGain := cur, gain(cur)
			for _, c := range candidates {
				if g := gain(c); g > bestGain+1e-12 {
					best, bestGain = c, g
				}
			}

			tot[best] += k
			if best != cur {
				comm[n] = best
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	byComm := make(map[int][]string)
	for _, n := range nodes {
		byComm[comm[n]] = append(byComm[comm[n]], n)
	}
	groups := make([][]string, 0, len(byComm))
	for _, g := range byComm {
		groups = append(groups, g)
	}
	return fromGroups(groups), nil
}

// Singletons puts every node in its own community. It never fails.
type Singletons struct{}

func (Singletons) Method() Method { return MethodSingletons }

func (Singletons) Detect(snap *graph.Snapshot) (Partition, error) {
	return singletons(snap), nil
}

func singletons(snap *graph.Snapshot) Partition {
	nodes := snap.Nodes()
	groups := make([][]string, len(nodes))
	for i, n := range nodes {
		groups[i] = []string{n}
	}
	return fromGroups(groups)
}
