package graph

import (
	"sort"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"
)

// Density is m / (n(n-1)) over directed edges, 0 for fewer than two nodes.
func (s *Snapshot) Density() float64 {
	n := len(s.names)
	if n <= 1 {
		return 0
	}
	return float64(s.edges) / float64(n*(n-1))
}

// UndirectedDensity is m / (n(n-1)/2) over the projection, 0 for fewer than two nodes.
func (s *Snapshot) UndirectedDensity() float64 {
	n := len(s.names)
	if n <= 1 {
		return 0
	}
	return float64(s.undirectedEdges) / (float64(n*(n-1)) / 2)
}

// ConnectedComponents returns the components of the undirected projection,
// each sorted, ordered by descending size then first member.
// These are also the weak components of the directed graph.
func (s *Snapshot) ConnectedComponents() [][]string {
	return s.componentNames(topo.ConnectedComponents(s.undirected))
}

// StrongComponentSets returns the strongly connected components.
func (s *Snapshot) StrongComponentSets() [][]string {
	return s.componentNames(topo.TarjanSCC(s.directed))
}

// WeakComponents counts weakly connected components.
func (s *Snapshot) WeakComponents() int {
	if s.Empty() {
		return 0
	}
	return len(topo.ConnectedComponents(s.undirected))
}

// StrongComponents counts strongly connected components.
func (s *Snapshot) StrongComponents() int {
	if s.Empty() {
		return 0
	}
	return len(topo.TarjanSCC(s.directed))
}

// IsWeaklyConnected is false for the empty graph.
func (s *Snapshot) IsWeaklyConnected() bool {
	return !s.Empty() && s.WeakComponents() == 1
}

// IsStronglyConnected is false for the empty graph.
func (s *Snapshot) IsStronglyConnected() bool {
	return !s.Empty() && s.StrongComponents() == 1
}

// Describe returns the size and connectivity descriptors.
func (s *Snapshot) Describe() Descriptor {
	d := Descriptor{
		Nodes:   s.NodeCount(),
		Edges:   s.EdgeCount(),
		Density: s.Density(),
	}
	if s.Empty() {
		return d
	}
	d.WeakComponents = s.WeakComponents()
	d.StrongComponents = s.StrongComponents()
	d.IsWeaklyConnected = d.WeakComponents == 1
	d.IsStronglyConnected = d.StrongComponents == 1
	return d
}

// EgoNetwork returns id's 1-hop neighbours in the undirected projection,
// excluding id itself.
func (s *Snapshot) EgoNetwork(id string) []string {
	return s.Neighbors(id)
}

// EgoDensity is the undirected density of the subgraph induced by id's
// neighbours (id excluded). 0 when id is absent or has fewer than two neighbours.
func (s *Snapshot) EgoDensity(id string) float64 {
	nid, ok := s.index[id]
	if !ok {
		return 0
	}
	neighbours := gonum.NodesOf(s.undirected.From(nid))
	k := len(neighbours)
	if k < 2 {
		return 0
	}
	m := 0
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			if s.undirected.HasEdgeBetween(neighbours[i].ID(), neighbours[j].ID()) {
				m++
			}
		}
	}
	return float64(m) / (float64(k*(k-1)) / 2)
}

// SCCSize is the size of id's strongly connected component: 1 when id is
// present but in no cycle, 0 when absent.
func (s *Snapshot) SCCSize(id string) int {
	nid, ok := s.index[id]
	if !ok {
		return 0
	}
	for _, comp := range topo.TarjanSCC(s.directed) {
		for _, n := range comp {
			if n.ID() == nid {
				return len(comp)
			}
		}
	}
	return 1
}

// Reciprocity counts id's successors that also point back at id.
func (s *Snapshot) Reciprocity(id string) int {
	nid, ok := s.index[id]
	if !ok {
		return 0
	}
	count := 0
	succ := s.directed.From(nid)
	for succ.Next() {
		if s.directed.HasEdgeFromTo(succ.Node().ID(), nid) {
			count++
		}
	}
	return count
}

func (s *Snapshot) componentNames(comps [][]gonum.Node) [][]string {
	out := make([][]string, 0, len(comps))
	for _, c := range comps {
		if len(c) == 0 {
			continue
		}
		out = append(out, s.Names(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i][0] < out[j][0]
	})
	return out
}
