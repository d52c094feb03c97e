package metrics

import "github.com/carlospaes120/scapegoat/internal/value"

// NodeLabels maps node id to label column to the node's majority label, as
// produced by window.NodeLabels.
type NodeLabels map[string]map[string]value.Maybe[string]

// Get returns the node's label for col when one is defined.
func (l NodeLabels) Get(node, col string) (string, bool) {
	if l == nil {
		return "", false
	}
	return l[node][col].Get()
}

// Share is the fraction of nodes whose label for col equals want.
// 0 when nodes is empty.
func (l NodeLabels) Share(nodes []string, col, want string) float64 {
	if len(nodes) == 0 {
		return 0
	}
	hits := 0
	for _, n := range nodes {
		if v, ok := l.Get(n, col); ok && v == want {
			hits++
		}
	}
	return float64(hits) / float64(len(nodes))
}
