package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlospaes120/scapegoat/interaction"
	"github.com/carlospaes120/scapegoat/window"
)

var base = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func events(pairs ...string) []interaction.Event {
	out := make([]interaction.Event, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, interaction.Event{
			Source:    pairs[i],
			Target:    pairs[i+1],
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}

func TestBuildAggregatesAndDropsSelfLoops(t *testing.T) {
	s := Build(events("a", "b", "a", "b", "b", "a", "c", "c", "c", "a"))

	assert.Equal(t, []string{"a", "b", "c"}, s.Nodes())
	assert.Equal(t, 3, s.EdgeCount())
	assert.Equal(t, 2, s.UndirectedEdgeCount())
	assert.Equal(t, 4, s.InteractionCount())
	assert.Equal(t, 2.0, s.Weight("a", "b"))
	assert.Equal(t, 1.0, s.Weight("b", "a"))
	assert.Equal(t, 0.0, s.Weight("a", "c"))
	assert.False(t, s.HasEdge("c", "c"))

	w := s.Undirected().(interface {
		Weight(xid, yid int64) (float64, bool)
	})
	aID, _ := s.ID("a")
	bID, _ := s.ID("b")
	got, ok := w.Weight(aID, bID)
	require.True(t, ok)
	assert.Equal(t, 3.0, got, "projection sums both directions")

	assert.Equal(t, []Edge{
		{Source: "a", Target: "b", Weight: 2},
		{Source: "b", Target: "a", Weight: 1},
		{Source: "c", Target: "a", Weight: 1},
	}, s.Edges())
}

func TestSelfLoopOnlyNodeIsNotAdded(t *testing.T) {
	s := Build(events("x", "x"))
	assert.True(t, s.Empty())
	assert.False(t, s.Has("x"))
}

func TestStarGraph(t *testing.T) {
	s := Build(events("B", "A", "C", "A", "D", "A"))

	assert.Equal(t, 4, s.NodeCount())
	assert.Equal(t, 3, s.EdgeCount())
	assert.Equal(t, []string{"B", "C", "D"}, s.Predecessors("A"))
	assert.Equal(t, 3, s.InDegree("A"))
	assert.Equal(t, 0, s.OutDegree("A"))

	assert.Equal(t, 0, s.Reciprocity("A"))
	assert.Equal(t, 0.0, s.EgoDensity("A"))
	assert.Equal(t, 1, s.SCCSize("A"))
	assert.Equal(t, []string{"B", "C", "D"}, s.EgoNetwork("A"))

	d := s.Describe()
	assert.Equal(t, 1, d.WeakComponents)
	assert.Equal(t, 4, d.StrongComponents)
	assert.True(t, d.IsWeaklyConnected)
	assert.False(t, d.IsStronglyConnected)
	assert.InDelta(t, 3.0/12.0, d.Density, 1e-12)
}

func TestReciprocalPairPlusIsolatedAccuser(t *testing.T) {
	s := Build(events("A", "B", "B", "A", "C", "D"))

	comps := s.ConnectedComponents()
	require.Len(t, comps, 2)
	assert.Equal(t, []string{"A", "B"}, comps[0])
	assert.Equal(t, []string{"C", "D"}, comps[1])
	assert.Equal(t, 2, s.WeakComponents())

	assert.Equal(t, 1, s.Reciprocity("A"))
	assert.Equal(t, 2, s.SCCSize("A"))
	assert.Equal(t, 1, s.SCCSize("C"))
	assert.Equal(t, 0, s.SCCSize("Z"), "absent node")
	assert.Equal(t, 3, s.StrongComponents())
}

func TestEgoDensity(t *testing.T) {
	// hub h with neighbours x, y, z; x-y connected
	s := Build(events("h", "x", "y", "h", "h", "z", "x", "y"))
	assert.InDelta(t, 1.0/3.0, s.EgoDensity("h"), 1e-12)
	assert.Equal(t, 0.0, s.EgoDensity("missing"))
}

func TestPathMetrics(t *testing.T) {
	s := Build(events("a", "b", "b", "c"))

	md, ok := s.MedianDistanceTo("a").Get()
	require.True(t, ok)
	assert.Equal(t, 1.5, md)

	assert.InDelta(t, 2.0, s.EffectiveDiameter(DefaultDiameterPercentile), 1e-12)

	apl, ok := s.AveragePathLength().Get()
	require.True(t, ok)
	assert.InDelta(t, 8.0/6.0, apl, 1e-12)

	assert.Equal(t, map[string]int{"b": 1, "c": 2}, s.Distances("a"))
}

func TestAveragePathLengthWeightsComponents(t *testing.T) {
	s := Build(events("a", "b", "c", "d", "d", "e"))

	apl, ok := s.AveragePathLength().Get()
	require.True(t, ok)
	// component {a,b}: 2 pairs, sum 2; component {c,d,e}: 6 pairs, sum 8
	assert.InDelta(t, 10.0/8.0, apl, 1e-12)
}

func TestDegenerateGraphs(t *testing.T) {
	tests := []struct {
		name   string
		events []interaction.Event
	}{
		{"empty", nil},
		{"two nodes", events("a", "b")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Build(tt.events)
			assert.NotPanics(t, func() {
				s.Describe()
				s.EgoDensity("a")
				s.SCCSize("a")
				s.Reciprocity("a")
				s.MedianDistanceTo("a")
				s.EffectiveDiameter(0.9)
				s.AveragePathLength()
				s.ConnectedComponents()
			})
		})
	}

	empty := Build(nil)
	assert.Equal(t, 0.0, empty.EffectiveDiameter(0.9))
	assert.False(t, empty.AveragePathLength().Ok())
	assert.False(t, empty.MedianDistanceTo("a").Ok())
	assert.False(t, empty.IsWeaklyConnected())
	assert.Equal(t, Descriptor{}, empty.Describe())
}

func TestMedianDistanceUndefinedWithoutPeers(t *testing.T) {
	s := Build(events("a", "b"))
	assert.False(t, s.MedianDistanceTo("z").Ok())
	v, ok := s.MedianDistanceTo("b").Get()
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestRoundTripWithWindowSummary(t *testing.T) {
	var evs []interaction.Event
	actors := []string{"a", "b", "c", "d", "e"}
	for i := 0; i < 60; i++ {
		src := actors[i%5]
		dst := actors[(i*3+1)%5]
		evs = append(evs, interaction.Event{Source: src, Target: dst, Timestamp: base.Add(time.Duration(i) * 17 * time.Minute)})
	}
	store := interaction.NewStore(evs)

	g, err := window.NewGenerator(3*time.Hour, 90*time.Minute)
	require.NoError(t, err)
	windows := g.ForStore(store)
	require.NotEmpty(t, windows)

	for _, w := range windows {
		in := window.Events(store, w)
		summary := window.Summarize(w, in)
		snap := Build(in)
		assert.Equal(t, summary.NodeCount, snap.NodeCount(), "window %d nodes", w.Index)
		assert.Equal(t, summary.EdgeCount, snap.EdgeCount(), "window %d edges", w.Index)
		assert.InDelta(t, summary.Density, snap.Density(), 1e-12)
	}
}
