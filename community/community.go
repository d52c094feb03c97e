// Package community partitions a window's undirected projection into
// communities and compares partitions across windows.
//
// Community ids are window-local: the same id in two windows means nothing.
// Cross-window comparison always goes through node identity (Agreement, Compare).
package community

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/carlospaes120/scapegoat/errors"
	"github.com/carlospaes120/scapegoat/graph"
)

// Method names a detection strategy. Recorded on every Result so callers can
// tell when quality degraded.
type Method string

const (
	MethodRefined     Method = "refined_louvain"
	MethodLocalMoving Method = "local_moving"
	MethodSingletons  Method = "singletons"
)

// ParseMethod maps a configured name onto a Method.
func ParseMethod(s string) (Method, bool) {
	switch Method(s) {
	case MethodRefined, MethodLocalMoving, MethodSingletons:
		return Method(s), true
	}
	return "", false
}

// Partition maps node id to a window-local community id.
type Partition map[string]int

// Nodes returns the partition's node ids, sorted.
func (p Partition) Nodes() []string {
	out := make([]string, 0, len(p))
	for n := range p {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Groups returns community members keyed by community id, each sorted.
func (p Partition) Groups() map[int][]string {
	out := make(map[int][]string)
	for _, n := range p.Nodes() {
		out[p[n]] = append(out[p[n]], n)
	}
	return out
}

// Count returns the number of distinct communities.
func (p Partition) Count() int {
	seen := make(map[int]struct{})
	for _, c := range p {
		seen[c] = struct{}{}
	}
	return len(seen)
}

// fromGroups labels groups 0..k-1 by descending size, then by first member,
// so equal structures always get equal labels within a window.
func fromGroups(groups [][]string) Partition {
	gs := make([][]string, 0, len(groups))
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		cp := append([]string(nil), g...)
		sort.Strings(cp)
		gs = append(gs, cp)
	}
	sort.Slice(gs, func(i, j int) bool {
		if len(gs[i]) != len(gs[j]) {
			return len(gs[i]) > len(gs[j])
		}
		return gs[i][0] < gs[j][0]
	})
	p := make(Partition)
	for id, g := range gs {
		for _, n := range g {
			p[n] = id
		}
	}
	return p
}

// Strategy detects communities on one snapshot.
type Strategy interface {
	Method() Method
	Detect(snap *graph.Snapshot) (Partition, error)
}

// Result is the outcome of Detector.Detect.
type Result struct {
	Partition Partition `json:"partition"`
	Method    Method    `json:"method"`
	// Degraded is true when a preferred strategy failed and a later one was used.
	Degraded bool    `json:"degraded"`
	Reason   string  `json:"reason,omitempty"`
	Summary  Summary `json:"summary"`
}

// Detector tries its strategies in rank order and returns the first success.
// Singletons is always appended as the last resort, so Detect never fails.
type Detector struct {
	strategies []Strategy
	logger     *zap.SugaredLogger
}

// NewDetector builds a detector over the given ranked strategies.
// With none, DefaultStrategies(DefaultConfig()) is used.
func NewDetector(logger *zap.SugaredLogger, strategies ...Strategy) *Detector {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if len(strategies) == 0 {
		strategies = DefaultStrategies(DefaultConfig())
	}
	if strategies[len(strategies)-1].Method() != MethodSingletons {
		strategies = append(strategies, Singletons{})
	}
	return &Detector{strategies: strategies, logger: logger.Named("community")}
}

// Methods lists the strategy chain in order.
func (d *Detector) Methods() []Method {
	out := make([]Method, len(d.strategies))
	for i, s := range d.strategies {
		out[i] = s.Method()
	}
	return out
}

// Detect runs the strategy chain. Errors and panics inside a strategy are
// treated as failures and recorded in Reason.
func (d *Detector) Detect(snap *graph.Snapshot) Result {
	var reasons []string
	for i, s := range d.strategies {
		p, err := safeDetect(s, snap)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("%s: %v", s.Method(), err))
			d.logger.Debugw("community strategy failed",
				"method", s.Method(),
				"error", err,
			)
			continue
		}
		res := Result{
			Partition: p,
			Method:    s.Method(),
			Degraded:  i > 0,
			Summary:   Summarize(snap, p),
		}
		if len(reasons) > 0 {
			res.Reason = strings.Join(reasons, "; ")
		}
		return res
	}

	// unreachable with Singletons last, kept total regardless
	p := singletons(snap)
	return Result{
		Partition: p,
		Method:    MethodSingletons,
		Degraded:  true,
		Reason:    strings.Join(reasons, "; "),
		Summary:   Summarize(snap, p),
	}
}

func safeDetect(s Strategy, snap *graph.Snapshot) (p Partition, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, errors.Newf("panic: %v", r)
		}
	}()
	return s.Detect(snap)
}
