// Package interaction holds the validated, time-sorted interaction stream the
// windowed engine consumes.
package interaction

import (
	"sort"
	"time"
)

// Event is one directed interaction: Source targeted Target at Timestamp.
// Labels carries optional per-event categorical columns keyed by column name.
type Event struct {
	Source    string            `json:"source"`
	Target    string            `json:"target"`
	Timestamp time.Time         `json:"timestamp"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// SelfLoop reports whether the event points back at its own source.
func (e Event) SelfLoop() bool {
	return e.Source == e.Target
}

// Label returns the value of column col, "" when absent.
func (e Event) Label(col string) string {
	if e.Labels == nil {
		return ""
	}
	return e.Labels[col]
}

// Store is an immutable, ascending-by-timestamp sequence of events.
// Readers never mutate it; range queries return subslices.
type Store struct {
	events []Event
}

// NewStore copies events, drops rows with an empty endpoint or zero timestamp,
// and sorts stably by timestamp so equal timestamps keep input order.
func NewStore(events []Event) *Store {
	kept := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Source == "" || e.Target == "" || e.Timestamp.IsZero() {
			continue
		}
		kept = append(kept, e)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Timestamp.Before(kept[j].Timestamp)
	})
	return &Store{events: kept}
}

// Len returns the number of events.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.events)
}

// Events returns the sorted events. The slice must not be modified.
func (s *Store) Events() []Event {
	if s == nil {
		return nil
	}
	return s.events
}

// Span returns the minimum and maximum timestamps; ok is false for an empty store.
func (s *Store) Span() (min, max time.Time, ok bool) {
	if s.Len() == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.events[0].Timestamp, s.events[len(s.events)-1].Timestamp, true
}

// Range returns the events with start <= Timestamp < end, found by binary search.
// The result aliases the store and must not be modified.
func (s *Store) Range(start, end time.Time) []Event {
	if s.Len() == 0 || !start.Before(end) {
		return nil
	}
	lo := sort.Search(len(s.events), func(i int) bool {
		return !s.events[i].Timestamp.Before(start)
	})
	hi := sort.Search(len(s.events), func(i int) bool {
		return !s.events[i].Timestamp.Before(end)
	})
	return s.events[lo:hi]
}

// Actors returns the distinct endpoint ids in first-seen order.
func (s *Store) Actors() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range s.Events() {
		for _, id := range [2]string{e.Source, e.Target} {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
