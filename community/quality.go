package community

import (
	"sort"

	gonum "gonum.org/v1/gonum/graph"
	gcommunity "gonum.org/v1/gonum/graph/community"

	"github.com/carlospaes120/scapegoat/graph"
	"github.com/carlospaes120/scapegoat/internal/stats"
	"github.com/carlospaes120/scapegoat/internal/value"
)

// Summary describes a partition's community sizes and quality.
type Summary struct {
	Communities int `json:"n_communities"`
	LargestSize int `json:"largest_community_size"`
	// LargestID is the window-local id of the largest community, -1 when empty.
	LargestID  int                  `json:"largest_community_id"`
	AvgSize    float64              `json:"avg_community_size"`
	SizeStd    float64              `json:"community_size_std"`
	Modularity value.Maybe[float64] `json:"modularity"`
}

// Summarize computes size statistics (population std, 0 with a single
// community) and modularity of p on snap.
func Summarize(snap *graph.Snapshot, p Partition) Summary {
	s := Summary{LargestID: -1, Modularity: value.Undefined[float64]()}
	if len(p) == 0 {
		return s
	}

	groups := p.Groups()
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	sizes := make([]float64, 0, len(ids))
	for _, id := range ids {
		n := len(groups[id])
		sizes = append(sizes, float64(n))
		if n > s.LargestSize {
			s.LargestSize, s.LargestID = n, id
		}
	}
	s.Communities = len(ids)
	s.AvgSize = stats.Mean(sizes)
	if len(sizes) > 1 {
		s.SizeStd = stats.PopStd(sizes)
	}
	s.Modularity = Modularity(snap, p)
	return s
}

// Modularity is the weighted Newman modularity of p over snap's undirected
// projection at resolution 1. Undefined when the graph has no edges, p
// misses a node, or the computation fails.
func Modularity(snap *graph.Snapshot, p Partition) (q value.Maybe[float64]) {
	if snap == nil || snap.UndirectedEdgeCount() == 0 {
		return value.Undefined[float64]()
	}
	defer func() {
		if r := recover(); r != nil {
			q = value.Undefined[float64]()
		}
	}()

	byComm := make(map[int][]gonum.Node)
	g := snap.Undirected()
	for _, name := range snap.Nodes() {
		c, ok := p[name]
		if !ok {
			return value.Undefined[float64]()
		}
		id, _ := snap.ID(name)
		byComm[c] = append(byComm[c], g.Node(id))
	}
	ids := make([]int, 0, len(byComm))
	for c := range byComm {
		ids = append(ids, c)
	}
	sort.Ints(ids)
	comms := make([][]gonum.Node, 0, len(ids))
	for _, c := range ids {
		comms = append(comms, byComm[c])
	}
	return value.Float(gcommunity.Q(g, comms, 1))
}
