package community

import (
	"math"

	"github.com/carlospaes120/scapegoat/internal/stats"
	"github.com/carlospaes120/scapegoat/internal/value"
)

// Agreement is the normalized mutual information between a and b restricted
// to the node ids present in both, using the arithmetic mean of the two
// entropies as normalizer. Undefined with fewer than two shared nodes.
// Identical structure on the shared nodes gives exactly 1.
func Agreement(a, b Partition) value.Maybe[float64] {
	common := shared(a, b)
	if len(common) < 2 {
		return value.Undefined[float64]()
	}

	la := make([]int, len(common))
	lb := make([]int, len(common))
	for i, n := range common {
		la[i], lb[i] = a[n], b[n]
	}
	if sameStructure(la, lb) {
		return value.Defined(1.0)
	}

	n := float64(len(common))
	ca, cb := counts(la), counts(lb)
	joint := make(map[[2]int]float64)
	for i := range la {
		joint[[2]int{la[i], lb[i]}]++
	}

	mi := 0.0
	for k, nij := range joint {
		mi += nij / n * math.Log(n*nij/(ca[k[0]]*cb[k[1]]))
	}
	ha, hb := entropy(ca, n), entropy(cb, n)
	norm := (ha + hb) / 2
	if mi <= 0 || norm <= 0 {
		return value.Defined(0.0)
	}
	return value.Defined(math.Min(1, math.Max(0, mi/norm)))
}

// shared returns the sorted node ids in both partitions.
func shared(a, b Partition) []string {
	var out []string
	for _, n := range a.Nodes() {
		if _, ok := b[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// sameStructure reports whether the two labelings group positions identically
// up to relabeling.
func sameStructure(la, lb []int) bool {
	ab := make(map[int]int)
	ba := make(map[int]int)
	for i := range la {
		if v, ok := ab[la[i]]; ok && v != lb[i] {
			return false
		}
		if v, ok := ba[lb[i]]; ok && v != la[i] {
			return false
		}
		ab[la[i]], ba[lb[i]] = lb[i], la[i]
	}
	return true
}

func counts(labels []int) map[int]float64 {
	out := make(map[int]float64)
	for _, l := range labels {
		out[l]++
	}
	return out
}

func entropy(c map[int]float64, n float64) float64 {
	h := 0.0
	for _, v := range c {
		p := v / n
		h -= p * math.Log(p)
	}
	return h
}

// Comparison is a richer cross-window comparison of two partitions.
type Comparison struct {
	NMI          value.Maybe[float64] `json:"nmi"`
	AvgJaccard   float64              `json:"avg_jaccard_similarity"`
	CommonNodes  int                  `json:"n_common_nodes"`
	CommunitiesA int                  `json:"n_communities_1"`
	CommunitiesB int                  `json:"n_communities_2"`
}

// Compare reports NMI plus, for every community of a, the best Jaccard
// overlap with any community of b, averaged over a's communities.
func Compare(a, b Partition) Comparison {
	ga, gb := a.Groups(), b.Groups()
	c := Comparison{
		NMI:          Agreement(a, b),
		CommonNodes:  len(shared(a, b)),
		CommunitiesA: len(ga),
		CommunitiesB: len(gb),
	}

	var scores []float64
	for _, ma := range ga {
		setA := make(map[string]bool, len(ma))
		for _, n := range ma {
			setA[n] = true
		}
		best := 0.0
		for _, mb := range gb {
			inter := 0
			for _, n := range mb {
				if setA[n] {
					inter++
				}
			}
			union := len(ma) + len(mb) - inter
			if union > 0 {
				best = math.Max(best, float64(inter)/float64(union))
			}
		}
		scores = append(scores, best)
	}
	if len(scores) > 0 {
		c.AvgJaccard = stats.Mean(scores)
	}
	return c
}
