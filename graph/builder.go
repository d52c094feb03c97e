package graph

import (
	"sort"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/carlospaes120/scapegoat/interaction"
)

type pair struct{ u, v string }

// Build aggregates events into a Snapshot. An ordered pair seen k times
// becomes one directed edge of weight k; the undirected projection sums both
// directions. Self-loops are dropped and never counted. Only endpoints of
// kept interactions become nodes.
func Build(events []interaction.Event) *Snapshot {
	weights := make(map[pair]float64)
	var order []pair
	nodes := make(map[string]struct{})
	interactions := 0

	for _, e := range events {
		if e.SelfLoop() || e.Source == "" || e.Target == "" {
			continue
		}
		interactions++
		p := pair{e.Source, e.Target}
		if _, ok := weights[p]; !ok {
			order = append(order, p)
		}
		weights[p]++
		nodes[e.Source] = struct{}{}
		nodes[e.Target] = struct{}{}
	}

	names := make([]string, 0, len(nodes))
	for n := range nodes {
		names = append(names, n)
	}
	sort.Strings(names)

	s := &Snapshot{
		names:        names,
		index:        make(map[string]int64, len(names)),
		directed:     simple.NewWeightedDirectedGraph(0, 0),
		undirected:   simple.NewWeightedUndirectedGraph(0, 0),
		interactions: interactions,
	}
	for i, n := range names {
		s.index[n] = int64(i)
		s.directed.AddNode(simple.Node(i))
		s.undirected.AddNode(simple.Node(i))
	}

	undirected := make(map[pair]float64)
	var undirectedOrder []pair
	for _, p := range order {
		u, v := s.index[p.u], s.index[p.v]
		w := weights[p]
		s.directed.SetWeightedEdge(s.directed.NewWeightedEdge(simple.Node(u), simple.Node(v), w))

		key := p
		if p.v < p.u {
			key = pair{p.v, p.u}
		}
		if _, ok := undirected[key]; !ok {
			undirectedOrder = append(undirectedOrder, key)
		}
		undirected[key] += w
	}
	for _, p := range undirectedOrder {
		u, v := s.index[p.u], s.index[p.v]
		s.undirected.SetWeightedEdge(s.undirected.NewWeightedEdge(simple.Node(u), simple.Node(v), undirected[p]))
	}

	s.edges = len(order)
	s.undirectedEdges = len(undirectedOrder)
	return s
}

// Edges returns the aggregated directed edges sorted by source then target.
func (s *Snapshot) Edges() []Edge {
	out := make([]Edge, 0, s.edges)
	it := s.directed.WeightedEdges()
	for it.Next() {
		e := it.WeightedEdge()
		out = append(out, Edge{
			Source: s.names[e.From().ID()],
			Target: s.names[e.To().ID()],
			Weight: e.Weight(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// Weight returns the directed edge weight u->v, 0 when absent.
func (s *Snapshot) Weight(u, v string) float64 {
	uid, ok1 := s.index[u]
	vid, ok2 := s.index[v]
	if !ok1 || !ok2 {
		return 0
	}
	e := s.directed.WeightedEdge(uid, vid)
	if e == nil {
		return 0
	}
	return e.Weight()
}

// HasEdge reports whether the directed edge u->v exists.
func (s *Snapshot) HasEdge(u, v string) bool {
	uid, ok1 := s.index[u]
	vid, ok2 := s.index[v]
	return ok1 && ok2 && s.directed.HasEdgeFromTo(uid, vid)
}

// InDegree counts distinct predecessors of id.
func (s *Snapshot) InDegree(id string) int {
	nid, ok := s.index[id]
	if !ok {
		return 0
	}
	return s.directed.To(nid).Len()
}

// OutDegree counts distinct successors of id.
func (s *Snapshot) OutDegree(id string) int {
	nid, ok := s.index[id]
	if !ok {
		return 0
	}
	return s.directed.From(nid).Len()
}

// Degree is InDegree plus OutDegree.
func (s *Snapshot) Degree(id string) int {
	return s.InDegree(id) + s.OutDegree(id)
}

// TotalInDegree sums InDegree over all nodes, equal to EdgeCount.
func (s *Snapshot) TotalInDegree() int {
	return s.edges
}

// Successors returns the sorted targets of id's outgoing edges.
func (s *Snapshot) Successors(id string) []string {
	nid, ok := s.index[id]
	if !ok {
		return nil
	}
	return s.Names(gonum.NodesOf(s.directed.From(nid)))
}

// Predecessors returns the sorted sources of id's incoming edges.
func (s *Snapshot) Predecessors(id string) []string {
	nid, ok := s.index[id]
	if !ok {
		return nil
	}
	return s.Names(gonum.NodesOf(s.directed.To(nid)))
}

// Neighbors returns id's sorted neighbours in the undirected projection.
func (s *Snapshot) Neighbors(id string) []string {
	nid, ok := s.index[id]
	if !ok {
		return nil
	}
	return s.Names(gonum.NodesOf(s.undirected.From(nid)))
}

func sortStrings(xs []string) {
	sort.Strings(xs)
}
