package metrics

import (
	"sort"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"

	"github.com/carlospaes120/scapegoat/graph"
	"github.com/carlospaes120/scapegoat/internal/value"
)

// TopKShare is the sum of the k largest scores over the total. Exactly 1
// when k >= len(scores) and the total is positive; 0 when scores is empty or
// sums to 0.
func TopKShare(scores map[string]float64, k int) float64 {
	if len(scores) == 0 || k <= 0 {
		return 0
	}
	total := 0.0
	vals := make([]float64, 0, len(scores))
	for _, v := range scores {
		total += v
		vals = append(vals, v)
	}
	if total == 0 {
		return 0
	}
	if k >= len(vals) {
		return 1
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(vals)))
	top := 0.0
	for _, v := range vals[:k] {
		top += v
	}
	share := top / total
	if share > 1 {
		return 1
	}
	return share
}

// betweenness returns raw (unnormalized) betweenness for every node of g,
// zero-filled for nodes gonum omits.
func betweenness(snap *graph.Snapshot, g gonum.Graph) map[string]float64 {
	out := make(map[string]float64, snap.NodeCount())
	for _, n := range snap.Nodes() {
		out[n] = 0
	}
	if snap.NodeCount() < 3 {
		return out
	}
	for id, bc := range network.Betweenness(g) {
		out[snap.Name(id)] = bc
	}
	return out
}

// DirectedBetweenness is raw directed betweenness per node.
func DirectedBetweenness(snap *graph.Snapshot) map[string]float64 {
	return betweenness(snap, snap.Directed())
}

// UndirectedBetweenness is raw betweenness on the undirected projection,
// counting each unordered pair once.
func UndirectedBetweenness(snap *graph.Snapshot) map[string]float64 {
	bc := betweenness(snap, symmetric(snap))
	for k, v := range bc {
		bc[k] = v / 2
	}
	return bc
}

// symmetric is the undirected projection as a directed graph with both arcs
// per edge, so every ordered pair is walked exactly once.
func symmetric(snap *graph.Snapshot) gonum.Directed {
	g := simple.NewDirectedGraph()
	for _, n := range snap.Nodes() {
		id, _ := snap.ID(n)
		g.AddNode(simple.Node(id))
	}
	for _, e := range snap.Edges() {
		u, _ := snap.ID(e.Source)
		v, _ := snap.ID(e.Target)
		g.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
		g.SetEdge(simple.Edge{F: simple.Node(v), T: simple.Node(u)})
	}
	return g
}

// NormalizedBetweenness divides directed betweenness by (n-1)(n-2).
func NormalizedBetweenness(snap *graph.Snapshot) map[string]float64 {
	bc := DirectedBetweenness(snap)
	n := snap.NodeCount()
	if n <= 2 {
		return bc
	}
	scale := 1 / float64((n-1)*(n-2))
	for k, v := range bc {
		bc[k] = v * scale
	}
	return bc
}

// BetweennessCentralization is Freeman centralization of directed
// betweenness: sum(max - bc_i) / ((n-1)(n-2)). 0 for n <= 2.
func BetweennessCentralization(snap *graph.Snapshot) float64 {
	n := snap.NodeCount()
	if n <= 2 {
		return 0
	}
	return centralization(DirectedBetweenness(snap), float64((n-1)*(n-2)))
}

// UndirectedBetweennessCentralization uses the undirected projection and
// the (n-1)(n-2)/2 bound.
func UndirectedBetweennessCentralization(snap *graph.Snapshot) float64 {
	n := snap.NodeCount()
	if n <= 2 {
		return 0
	}
	return centralization(UndirectedBetweenness(snap), float64((n-1)*(n-2))/2)
}

func centralization(bc map[string]float64, bound float64) float64 {
	if len(bc) == 0 || bound <= 0 {
		return 0
	}
	max := 0.0
	for _, v := range bc {
		if v > max {
			max = v
		}
	}
	sum := 0.0
	for _, v := range bc {
		sum += max - v
	}
	return sum / bound
}

// LabelBetweennessShare is the share of undirected betweenness held by
// nodes whose label in col equals positive. 0 when the total is 0.
func LabelBetweennessShare(snap *graph.Snapshot, labels NodeLabels, col, positive string) float64 {
	bc := UndirectedBetweenness(snap)
	total, held := 0.0, 0.0
	for n, v := range bc {
		total += v
		if l, ok := labels.Get(n, col); ok && l == positive {
			held += v
		}
	}
	if total == 0 {
		return 0
	}
	return held / total
}

// Assortativity is the attribute assortativity coefficient of col over the
// undirected projection, counting edges whose endpoints are both labelled.
// Undefined unless at least two distinct values occur among labelled nodes
// and the mixing matrix is not concentrated on a single value.
func Assortativity(snap *graph.Snapshot, labels NodeLabels, col string) value.Maybe[float64] {
	var categories []string
	catIndex := make(map[string]int)
	for _, n := range snap.Nodes() {
		l, ok := labels.Get(n, col)
		if !ok {
			continue
		}
		if _, seen := catIndex[l]; !seen {
			catIndex[l] = len(categories)
			categories = append(categories, l)
		}
	}
	k := len(categories)
	if k < 2 {
		return value.Undefined[float64]()
	}

	e := mat.NewDense(k, k, nil)
	total := 0.0
	for _, edge := range undirectedPairs(snap) {
		lu, ok1 := labels.Get(edge[0], col)
		lv, ok2 := labels.Get(edge[1], col)
		if !ok1 || !ok2 {
			continue
		}
		i, j := catIndex[lu], catIndex[lv]
		e.Set(i, j, e.At(i, j)+1)
		e.Set(j, i, e.At(j, i)+1)
		total += 2
	}
	if total == 0 {
		return value.Undefined[float64]()
	}
	e.Scale(1/total, e)

	var sq mat.Dense
	sq.Mul(e, e)
	expected := mat.Sum(&sq)
	if 1-expected <= 1e-15 {
		return value.Undefined[float64]()
	}
	return value.Float((mat.Trace(e) - expected) / (1 - expected))
}

// undirectedPairs lists each undirected edge once as (lo, hi).
func undirectedPairs(snap *graph.Snapshot) [][2]string {
	seen := make(map[[2]string]bool)
	var out [][2]string
	for _, e := range snap.Edges() {
		p := [2]string{e.Source, e.Target}
		if p[1] < p[0] {
			p = [2]string{p[1], p[0]}
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
