package graph

import (
	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/carlospaes120/scapegoat/internal/stats"
	"github.com/carlospaes120/scapegoat/internal/value"
)

// DefaultDiameterPercentile is the percentile used for the effective diameter.
const DefaultDiameterPercentile = 0.9

// hopsFrom returns unweighted BFS distances from nid over the undirected
// projection, excluding nid itself.
func (s *Snapshot) hopsFrom(nid int64) map[int64]int {
	dist := make(map[int64]int)
	var bf traverse.BreadthFirst
	bf.Walk(s.undirected, s.undirected.Node(nid), func(n gonum.Node, depth int) bool {
		if n.ID() != nid {
			dist[n.ID()] = depth
		}
		return false
	})
	return dist
}

// Distances returns the undirected hop distance from id to every reachable
// node other than id. Nil when id is absent.
func (s *Snapshot) Distances(id string) map[string]int {
	nid, ok := s.index[id]
	if !ok {
		return nil
	}
	hops := s.hopsFrom(nid)
	out := make(map[string]int, len(hops))
	for n, d := range hops {
		out[s.names[n]] = d
	}
	return out
}

// MedianDistanceTo is the median hop distance from all other reachable nodes
// to id on the undirected projection. Unreachable nodes are ignored.
// Undefined when id is absent or nothing reaches it.
func (s *Snapshot) MedianDistanceTo(id string) value.Maybe[float64] {
	nid, ok := s.index[id]
	if !ok {
		return value.Undefined[float64]()
	}
	hops := s.hopsFrom(nid)
	if len(hops) == 0 {
		return value.Undefined[float64]()
	}
	ds := make([]float64, 0, len(hops))
	for _, d := range hops {
		ds = append(ds, float64(d))
	}
	return value.Defined(stats.Median(ds))
}

// allPairHops collects the hop length of every ordered reachable pair (u != v).
func (s *Snapshot) allPairHops() []float64 {
	var out []float64
	for i := range s.names {
		for _, d := range s.hopsFrom(int64(i)) {
			out = append(out, float64(d))
		}
	}
	return out
}

// EffectiveDiameter is the given percentile (0..1) of all pairwise shortest
// path lengths on the undirected projection. 0 for fewer than two nodes or
// when no pair is connected.
func (s *Snapshot) EffectiveDiameter(percentile float64) float64 {
	if len(s.names) < 2 {
		return 0
	}
	hops := s.allPairHops()
	if len(hops) == 0 {
		return 0
	}
	return stats.Percentile(hops, percentile)
}

// AveragePathLength averages shortest path lengths within each connected
// component of size > 1, weighting each component by its n(n-1) ordered
// pairs. Undefined for fewer than two nodes.
func (s *Snapshot) AveragePathLength() value.Maybe[float64] {
	if len(s.names) < 2 {
		return value.Undefined[float64]()
	}
	total, pairs := 0.0, 0
	for i := range s.names {
		for _, d := range s.hopsFrom(int64(i)) {
			total += float64(d)
			pairs++
		}
	}
	if pairs == 0 {
		return value.Undefined[float64]()
	}
	return value.Defined(total / float64(pairs))
}
