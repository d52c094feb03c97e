// Package graph builds the per-window directed weighted interaction graph and
// its undirected projection, and exposes the structural primitives the
// metrics and community packages need.
package graph

import (
	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Snapshot is one window's graph. It is built once and never mutated
// afterwards, so it may be read concurrently.
//
// Node ids are the sorted actor names; gonum node i is names[i].
type Snapshot struct {
	names []string
	index map[string]int64

	directed   *simple.WeightedDirectedGraph
	undirected *simple.WeightedUndirectedGraph

	edges           int
	undirectedEdges int
	interactions    int
}

// Descriptor summarizes size and connectivity.
type Descriptor struct {
	Nodes               int     `json:"n_nodes"`
	Edges               int     `json:"n_edges"`
	Density             float64 `json:"density"`
	WeakComponents      int     `json:"n_weakly_components"`
	StrongComponents    int     `json:"n_strongly_components"`
	IsWeaklyConnected   bool    `json:"is_weakly_connected"`
	IsStronglyConnected bool    `json:"is_strongly_connected"`
}

// Edge is a directed aggregated edge.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// NodeCount returns the number of nodes.
func (s *Snapshot) NodeCount() int { return len(s.names) }

// EdgeCount returns the number of aggregated directed edges.
func (s *Snapshot) EdgeCount() int { return s.edges }

// UndirectedEdgeCount returns the number of edges in the undirected projection.
func (s *Snapshot) UndirectedEdgeCount() int { return s.undirectedEdges }

// InteractionCount returns the number of non-self interactions aggregated.
func (s *Snapshot) InteractionCount() int { return s.interactions }

// Empty reports whether the snapshot has no nodes.
func (s *Snapshot) Empty() bool { return len(s.names) == 0 }

// Has reports whether id is a node.
func (s *Snapshot) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Nodes returns node ids in sorted order. The caller owns the slice.
func (s *Snapshot) Nodes() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Directed exposes the gonum directed graph for read-only algorithms.
func (s *Snapshot) Directed() gonum.Directed { return s.directed }

// Undirected exposes the gonum undirected projection for read-only algorithms.
func (s *Snapshot) Undirected() gonum.Undirected { return s.undirected }

// ID maps an actor name to its gonum node id.
func (s *Snapshot) ID(name string) (int64, bool) {
	id, ok := s.index[name]
	return id, ok
}

// Name maps a gonum node id back to the actor name.
func (s *Snapshot) Name(id int64) string {
	if id < 0 || int(id) >= len(s.names) {
		return ""
	}
	return s.names[id]
}

// Names maps gonum nodes back to sorted actor names.
func (s *Snapshot) Names(nodes []gonum.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = s.names[n.ID()]
	}
	sortStrings(out)
	return out
}
