package metrics

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/carlospaes120/scapegoat/community"
	"github.com/carlospaes120/scapegoat/graph"
	"github.com/carlospaes120/scapegoat/interaction"
	"github.com/carlospaes120/scapegoat/internal/value"
	"github.com/carlospaes120/scapegoat/window"
)

var base = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func build(pairs ...string) *graph.Snapshot {
	var evs []interaction.Event
	for i := 0; i+1 < len(pairs); i += 2 {
		evs = append(evs, interaction.Event{Source: pairs[i], Target: pairs[i+1], Timestamp: base})
	}
	return graph.Build(evs)
}

func labels(col string, kv ...string) NodeLabels {
	out := make(NodeLabels)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = map[string]value.Maybe[string]{col: value.Defined(kv[i+1])}
	}
	return out
}

var win = window.Window{Index: 0, Start: base, End: base.Add(time.Hour)}

func TestCentralizationZeroBelowThreeNodes(t *testing.T) {
	for _, snap := range []*graph.Snapshot{build(), build("a", "b"), build("a", "b", "b", "a")} {
		assert.Equal(t, 0.0, BetweennessCentralization(snap))
		assert.Equal(t, 0.0, UndirectedBetweennessCentralization(snap))
	}
}

func TestBetweennessCentralization(t *testing.T) {
	// a -> b -> c: only b brokers, one pair.
	path := build("a", "b", "b", "c")
	assert.InDelta(t, 1.0, BetweennessCentralization(path), 1e-12)
	// undirected: b holds 1 of the single a-c pair, bound (2*1)/2
	assert.InDelta(t, 2.0, UndirectedBetweennessCentralization(path), 1e-12)
	assert.InDelta(t, 1.0, UndirectedBetweenness(path)["b"], 1e-12)

	bc := NormalizedBetweenness(path)
	assert.InDelta(t, 0.5, bc["b"], 1e-12)
	assert.Equal(t, 0.0, bc["a"])

	star := build("b", "a", "c", "a", "d", "a")
	assert.Equal(t, 0.0, BetweennessCentralization(star), "no directed paths of length two")
}

func TestTopKShare(t *testing.T) {
	scores := map[string]float64{"a": 0.4, "b": 0.3, "c": 0.2, "d": 0.1}
	assert.InDelta(t, 0.4, TopKShare(scores, 1), 1e-12)
	assert.InDelta(t, 0.7, TopKShare(scores, 2), 1e-12)
	assert.Equal(t, 1.0, TopKShare(scores, 4))
	assert.Equal(t, 1.0, TopKShare(scores, 10))
	assert.Equal(t, 0.0, TopKShare(scores, 0))
	assert.Equal(t, 0.0, TopKShare(map[string]float64{}, 3))
}

func TestTopKShareMonotone(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for trial := 0; trial < 50; trial++ {
		n := 1 + r.Intn(20)
		scores := make(map[string]float64, n)
		for i := 0; i < n; i++ {
			scores[string(rune('a'+i))] = r.Float64()
		}
		prev := 0.0
		for k := 1; k <= n+2; k++ {
			s := TopKShare(scores, k)
			assert.GreaterOrEqual(t, s, prev)
			if k >= n {
				assert.Equal(t, 1.0, s)
			} else {
				assert.Less(t, s, 1.0+1e-12)
			}
			prev = s
		}
	}
}

func TestTopKShareZeroSum(t *testing.T) {
	scores := map[string]float64{"a": 0, "b": 0, "c": 0}
	for k := 1; k <= 5; k++ {
		assert.Equal(t, 0.0, TopKShare(scores, k))
	}
}

func TestPageRankStar(t *testing.T) {
	pr, converged := PageRank(build("b", "a", "c", "a", "d", "a"), DefaultPageRankOptions())
	require.True(t, converged)
	require.Len(t, pr, 4)

	total := 0.0
	for _, v := range pr {
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	for _, n := range []string{"b", "c", "d"} {
		assert.Greater(t, pr["a"], pr[n])
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, Ranked(pr))
	assert.Equal(t, 1, Rank(pr, "a"))
	assert.Equal(t, 2, Rank(pr, "b"), "ties ordered by id")
	assert.Equal(t, 0, Rank(pr, "zz"))
}

func TestPageRankWeightAware(t *testing.T) {
	pr, converged := PageRank(build("a", "b", "a", "b", "a", "b", "a", "c"), DefaultPageRankOptions())
	require.True(t, converged)
	assert.Greater(t, pr["b"], pr["c"])
}

func TestPageRankFallsBackToUniform(t *testing.T) {
	opts := PageRankOptions{Damping: 0.85, Tolerance: 1e-15, MaxIterations: 1}
	pr, converged := PageRank(build("b", "a", "c", "a", "d", "a"), opts)
	assert.False(t, converged)
	for _, v := range pr {
		assert.Equal(t, 0.25, v)
	}

	empty, converged := PageRank(build(), DefaultPageRankOptions())
	assert.True(t, converged)
	assert.Empty(t, empty)
}

func TestAssortativity(t *testing.T) {
	t.Run("perfectly assortative", func(t *testing.T) {
		snap := build("a1", "a2", "b1", "b2")
		l := labels("side", "a1", "x", "a2", "x", "b1", "y", "b2", "y")
		r, ok := Assortativity(snap, l, "side").Get()
		require.True(t, ok)
		assert.InDelta(t, 1.0, r, 1e-12)
	})

	t.Run("perfectly disassortative", func(t *testing.T) {
		snap := build("a", "b", "c", "d")
		l := labels("side", "a", "x", "b", "y", "c", "x", "d", "y")
		r, ok := Assortativity(snap, l, "side").Get()
		require.True(t, ok)
		assert.InDelta(t, -1.0, r, 1e-12)
	})

	t.Run("single class is undefined", func(t *testing.T) {
		snap := build("a", "b", "b", "c")
		l := labels("side", "a", "x", "b", "x", "c", "x")
		assert.False(t, Assortativity(snap, l, "side").Ok())
	})

	t.Run("no labels is undefined", func(t *testing.T) {
		assert.False(t, Assortativity(build("a", "b"), nil, "side").Ok())
	})
}

func TestLabelBetweennessShare(t *testing.T) {
	snap := build("a", "b", "b", "c")
	assert.InDelta(t, 1.0, LabelBetweennessShare(snap, labels("skeptic", "b", "1"), "skeptic", "1"), 1e-12)
	assert.Equal(t, 0.0, LabelBetweennessShare(snap, labels("skeptic", "a", "1"), "skeptic", "1"))
	assert.Equal(t, 0.0, LabelBetweennessShare(build("a", "b"), labels("skeptic", "a", "1"), "skeptic", "1"))
}

func TestComputeStarTarget(t *testing.T) {
	e := NewEngine(Config{LabelColumn: "skeptic", PositiveLabel: "1"}, zaptest.NewLogger(t).Sugar())
	snap := build("b", "a", "c", "a", "d", "a")

	res := e.Compute(win, snap, Inputs{TargetID: "a"})
	rec := res.Record

	assert.Equal(t, 4, rec.Nodes)
	assert.Equal(t, 3, rec.Edges)
	assert.Equal(t, 3, rec.Interactions)
	assert.True(t, rec.PageRankConverged)

	assert.True(t, rec.TargetPresent)
	assert.Equal(t, 0, rec.TargetReciprocity)
	assert.Equal(t, 1, rec.TargetSCCSize)
	assert.Equal(t, 0.0, rec.TargetEgoDensity)
	assert.True(t, rec.TargetIsolated)
	assert.Equal(t, 1.0, rec.TargetInShare)

	assert.Equal(t, "a", rec.Leader)
	assert.True(t, rec.LeaderInferred)
	assert.False(t, rec.LeaderRank.Ok())

	d, ok := rec.MedianDistanceToTarget.Get()
	require.True(t, ok)
	assert.Equal(t, 1.0, d)

	share, ok := rec.Share(10)
	require.True(t, ok)
	assert.Equal(t, 1.0, share)

	assert.False(t, rec.Assortativity.Ok())
	require.Len(t, res.Nodes, 4)
	assert.Equal(t, "a", res.Nodes[0].Node)
	assert.Equal(t, 3, res.Nodes[0].InDegree)
}

func TestComputeReciprocalPair(t *testing.T) {
	e := NewEngine(DefaultConfig(), zaptest.NewLogger(t).Sugar())
	snap := build("a", "b", "b", "a", "c", "d")

	rec := e.Compute(win, snap, Inputs{TargetID: "a", LeaderID: "c"}).Record
	assert.Equal(t, 2, rec.WeakComponents)
	assert.Equal(t, 3, rec.StrongComponents, "{a,b}, {c}, {d}")
	assert.Equal(t, 1, rec.TargetReciprocity)
	assert.Equal(t, 2, rec.TargetSCCSize)
	assert.False(t, rec.TargetIsolated)

	assert.Equal(t, "c", rec.Leader)
	assert.False(t, rec.LeaderInferred)
	rank, ok := rec.LeaderRank.Get()
	require.True(t, ok)
	assert.GreaterOrEqual(t, rank, 1)
	assert.LessOrEqual(t, rank, 4)
}

func TestComputeAbsentTarget(t *testing.T) {
	e := NewEngine(DefaultConfig(), zaptest.NewLogger(t).Sugar())
	rec := e.Compute(win, build("a", "b"), Inputs{TargetID: "zz"}).Record
	assert.False(t, rec.TargetPresent)
	assert.Equal(t, 0, rec.TargetReciprocity)
	assert.Equal(t, 0, rec.TargetSCCSize)
	assert.Equal(t, 0.0, rec.TargetEgoDensity)
	assert.False(t, rec.TargetIsolated)
	assert.False(t, rec.MedianDistanceToTarget.Ok())
}

func TestComputeDegenerate(t *testing.T) {
	e := NewEngine(Config{FactorColumns: []string{"skeptic"}}, zaptest.NewLogger(t).Sugar())

	for name, snap := range map[string]*graph.Snapshot{
		"empty":  build(),
		"single": build("a", "a"),
		"pair":   build("a", "b"),
	} {
		t.Run(name, func(t *testing.T) {
			res := e.Compute(win, snap, Inputs{TargetID: "a"})
			rec := res.Record
			assert.Equal(t, 0.0, rec.BetweennessCentralization)
			assert.Len(t, rec.TopK, 2)
			assert.False(t, rec.NMIWithPrevious.Ok())
			assert.False(t, rec.NMIWithNext.Ok())
			assert.Contains(t, rec.Factors, FactorName("skeptic"))
			assert.Len(t, res.Nodes, snap.NodeCount())
		})
	}

	rec := e.Compute(win, build(), Inputs{}).Record
	assert.Equal(t, 0.0, rec.EffectiveDiameter)
	assert.False(t, rec.AvgPathLength.Ok())
	assert.Equal(t, "", rec.Leader)
	for _, s := range rec.TopK {
		assert.Equal(t, 0.0, s.Share)
	}
	assert.False(t, rec.Factors[FactorName("skeptic")].Ok())
}

func TestComputeFactors(t *testing.T) {
	e := NewEngine(Config{FactorColumns: []string{"skeptic"}, PositiveLabel: "1"}, zaptest.NewLogger(t).Sugar())
	l := labels("skeptic", "a", "1", "b", "0", "c", "1")
	rec := e.Compute(win, build("a", "b", "c", "d"), Inputs{NodeLabels: l}).Record
	v, ok := rec.Factors["label_skeptic_share"].Get()
	require.True(t, ok)
	assert.Equal(t, 0.5, v)
}

func TestApplyCommunities(t *testing.T) {
	e := NewEngine(DefaultConfig(), zaptest.NewLogger(t).Sugar())
	snap := build("a", "b", "c", "d")
	res := e.Compute(win, snap, Inputs{})

	det := community.NewDetector(zaptest.NewLogger(t).Sugar())
	cr := det.Detect(snap)
	res.ApplyCommunities(cr)

	assert.Equal(t, cr.Method, res.Record.CommunityMethod)
	assert.Equal(t, cr.Summary.Communities, res.Record.Community.Communities)
	for _, n := range res.Nodes {
		id, ok := n.Community.Get()
		require.True(t, ok)
		assert.Equal(t, cr.Partition[n.Node], id)
	}
}
