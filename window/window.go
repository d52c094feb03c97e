// Package window slices a sorted interaction stream into fixed-width,
// fixed-step half-open time windows.
package window

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/carlospaes120/scapegoat/errors"
	"github.com/carlospaes120/scapegoat/interaction"
	"github.com/carlospaes120/scapegoat/internal/value"
)

// Window is the half-open interval [Start, End). Index is its position in
// the generated sequence.
type Window struct {
	Index int       `json:"index"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Generator produces windows of a fixed width advancing by a fixed step.
// Width and step are independent; step < width yields overlapping windows.
type Generator struct {
	width time.Duration
	step  time.Duration
}

// NewGenerator rejects non-positive width or step.
func NewGenerator(width, step time.Duration) (*Generator, error) {
	if width <= 0 {
		return nil, errors.WithHint(
			errors.Wrapf(errors.ErrInvalidWindow, "width must be positive, got %s", width),
			"pass --window 6h or set window.size in scapegoat.toml",
		)
	}
	if step <= 0 {
		return nil, errors.WithHint(
			errors.Wrapf(errors.ErrInvalidWindow, "step must be positive, got %s", step),
			"pass --step 6h or set window.step in scapegoat.toml",
		)
	}
	return &Generator{width: width, step: step}, nil
}

// Width returns the window width.
func (g *Generator) Width() time.Duration { return g.width }

// Step returns the window step.
func (g *Generator) Step() time.Duration { return g.step }

// Windows returns [t0, t0+W) for t0 = min, min+S, ... while t0+W <= max.
func (g *Generator) Windows(min, max time.Time) []Window {
	n := Count(min, max, g.width, g.step)
	if n == 0 {
		return nil
	}
	out := make([]Window, n)
	for i := range out {
		start := min.Add(time.Duration(i) * g.step)
		out[i] = Window{Index: i, Start: start, End: start.Add(g.width)}
	}
	return out
}

// ForStore generates windows over the store's observed span.
func (g *Generator) ForStore(store *interaction.Store) []Window {
	min, max, ok := store.Span()
	if !ok {
		return nil
	}
	return g.Windows(min, max)
}

// Count is the number of t0 = min + i*step with t0+width <= max.
// Zero for non-positive width or step, or a span shorter than width.
func Count(min, max time.Time, width, step time.Duration) int {
	if width <= 0 || step <= 0 {
		return 0
	}
	span := max.Sub(min)
	if span < width {
		return 0
	}
	return int((span-width)/step) + 1
}

// Events returns the store's events inside w. Pure range query; the result
// aliases the store and must not be modified.
func Events(store *interaction.Store, w Window) []interaction.Event {
	return store.Range(w.Start, w.End)
}

// NodeLabels computes, for every node taking part in events, the majority
// value of each label column across all interactions it participates in
// (as source or target). Ties go to the value seen first. A node with no
// labelled interaction for a column gets Undefined.
func NodeLabels(events []interaction.Event, labelCols []string) map[string]map[string]value.Maybe[string] {
	type tally struct {
		counts map[string]int
		order  []string
	}
	tallies := make(map[string]map[string]*tally)

	touch := func(node string) map[string]*tally {
		t, ok := tallies[node]
		if !ok {
			t = make(map[string]*tally, len(labelCols))
			tallies[node] = t
		}
		return t
	}

	for _, e := range events {
		if e.SelfLoop() {
			continue
		}
		for _, node := range [2]string{e.Source, e.Target} {
			byCol := touch(node)
			for _, col := range labelCols {
				v := e.Label(col)
				if v == "" {
					continue
				}
				t, ok := byCol[col]
				if !ok {
					t = &tally{counts: make(map[string]int)}
					byCol[col] = t
				}
				if t.counts[v] == 0 {
					t.order = append(t.order, v)
				}
				t.counts[v]++
			}
		}
	}

	out := make(map[string]map[string]value.Maybe[string], len(tallies))
	for node, byCol := range tallies {
		labels := make(map[string]value.Maybe[string], len(labelCols))
		for _, col := range labelCols {
			t, ok := byCol[col]
			if !ok {
				labels[col] = value.Undefined[string]()
				continue
			}
			best, bestN := "", 0
			for _, v := range t.order {
				if t.counts[v] > bestN {
					best, bestN = v, t.counts[v]
				}
			}
			labels[col] = value.Defined(best)
		}
		out[node] = labels
	}
	return out
}

// Summary is the metadata-only description of one window, computed without
// building a graph.
type Summary struct {
	Window           Window  `json:"window"`
	NodeCount        int     `json:"n_nodes"`
	EdgeCount        int     `json:"n_edges"`
	InteractionCount int     `json:"n_interactions"`
	Density          float64 `json:"density"`
}

// Summarize counts distinct endpoints and distinct ordered non-self pairs
// among events, matching what the graph builder derives for the same window.
// InteractionCount is the raw number of events.
func Summarize(w Window, events []interaction.Event) Summary {
	type pair struct{ u, v string }
	nodes := make(map[string]struct{})
	pairs := make(map[pair]struct{})
	for _, e := range events {
		if e.SelfLoop() {
			continue
		}
		nodes[e.Source] = struct{}{}
		nodes[e.Target] = struct{}{}
		pairs[pair{e.Source, e.Target}] = struct{}{}
	}

	s := Summary{
		Window:           w,
		NodeCount:        len(nodes),
		EdgeCount:        len(pairs),
		InteractionCount: len(events),
	}
	if n := s.NodeCount; n > 1 {
		s.Density = float64(s.EdgeCount) / float64(n*(n-1))
	}
	return s
}

var durationPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*([A-Za-z]+)\s*$`)

var durationUnits = map[string]time.Duration{
	"ns": time.Nanosecond, "us": time.Microsecond, "ms": time.Millisecond,
	"s": time.Second, "sec": time.Second, "second": time.Second, "seconds": time.Second,
	"t": time.Minute, "min": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
	"w": 7 * 24 * time.Hour, "week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
}

// ParseDuration accepts Go durations ("90m", "1h30m") and single-unit
// frequency strings such as "6H", "1D", "30min" or "2W".
func ParseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
		return d, nil
	}
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, errors.Wrapf(errors.ErrInvalidWindow, "unrecognized duration %q", s)
	}
	unit, ok := durationUnits[strings.ToLower(m[2])]
	if !ok {
		return 0, errors.Wrapf(errors.ErrInvalidWindow, "unknown duration unit %q in %q", m[2], s)
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrInvalidWindow, "bad duration %q", s)
	}
	return time.Duration(n * float64(unit)), nil
}
