package interaction

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/carlospaes120/scapegoat/errors"
)

// Columns maps CSV headers onto Event fields.
type Columns struct {
	Source    string   `mapstructure:"source" json:"source" toml:"source"`
	Target    string   `mapstructure:"target" json:"target" toml:"target"`
	Timestamp string   `mapstructure:"timestamp" json:"timestamp" toml:"timestamp"`
	Labels    []string `mapstructure:"labels" json:"labels" toml:"labels"`
	// TimeLayout forces a Go time layout; empty means auto-detect.
	TimeLayout string `mapstructure:"time_layout" json:"time_layout" toml:"time_layout"`
}

// DefaultColumns matches the interaction exports the tool was built around.
func DefaultColumns() Columns {
	return Columns{Source: "src", Target: "dst", Timestamp: "timestamp"}
}

// LoadStats counts what LoadCSV kept and why it skipped the rest.
type LoadStats struct {
	Rows          int `json:"rows"`
	Kept          int `json:"kept"`
	MissingValues int `json:"missing_values"`
	SelfLoops     int `json:"self_loops"`
	BadTimestamps int `json:"bad_timestamps"`
}

// LoadCSV reads a headered CSV, maps columns, normalizes timestamps to UTC and
// returns a sorted Store. Self-loops and rows with missing endpoints or
// unparseable timestamps are dropped and counted. A missing mapped column is
// an input error.
func LoadCSV(r io.Reader, cols Columns) (*Store, LoadStats, error) {
	var stats LoadStats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, stats, errors.NewMissingColumnError(cols.Source, cols.Target, cols.Timestamp)
	}
	if err != nil {
		return nil, stats, errors.Wrap(err, "failed to read CSV header")
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}

	var missing []string
	for _, name := range append([]string{cols.Source, cols.Target, cols.Timestamp}, cols.Labels...) {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, stats, errors.NewMissingColumnError(missing...)
	}

	var events []Event
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, errors.Wrapf(err, "failed to read CSV row %d", stats.Rows+2)
		}
		stats.Rows++

		field := func(name string) string {
			i := index[name]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		src, dst := field(cols.Source), field(cols.Target)
		if isMissing(src) || isMissing(dst) {
			stats.MissingValues++
			continue
		}
		if src == dst {
			stats.SelfLoops++
			continue
		}
		ts, err := ParseTimestamp(field(cols.Timestamp), cols.TimeLayout)
		if err != nil {
			stats.BadTimestamps++
			continue
		}

		var labels map[string]string
		for _, col := range cols.Labels {
			v := field(col)
			if isMissing(v) {
				continue
			}
			if labels == nil {
				labels = make(map[string]string, len(cols.Labels))
			}
			labels[col] = v
		}

		events = append(events, Event{Source: src, Target: dst, Timestamp: ts, Labels: labels})
	}

	store := NewStore(events)
	stats.Kept = store.Len()
	return store, stats, nil
}

func isMissing(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "na", "n/a":
		return true
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	time.RFC1123Z,
	time.RFC1123,
	time.RubyDate,
	time.UnixDate,
}

// ParseTimestamp normalizes s to UTC. With an empty layout it tries ISO-8601
// variants, common layouts and epoch numbers; epoch magnitude picks the unit
// (seconds, milliseconds, microseconds or nanoseconds).
func ParseTimestamp(s, layout string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if layout != "" {
		t, err := time.Parse(layout, s)
		if err != nil {
			return time.Time{}, errors.Wrapf(err, "timestamp %q does not match layout %q", s, layout)
		}
		return t.UTC(), nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return fromEpochInt(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return fromEpoch(f), nil
	}

	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Newf("unrecognized timestamp %q", s)
}

func fromEpochInt(n int64) time.Time {
	abs := n
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1e17:
		return time.Unix(0, n).UTC()
	case abs >= 1e14:
		return time.UnixMicro(n).UTC()
	case abs >= 1e11:
		return time.UnixMilli(n).UTC()
	default:
		return time.Unix(n, 0).UTC()
	}
}

func fromEpoch(f float64) time.Time {
	abs := math.Abs(f)
	switch {
	case abs >= 1e17:
		return time.Unix(0, int64(f)).UTC()
	case abs >= 1e14:
		return time.UnixMicro(int64(f)).UTC()
	case abs >= 1e11:
		return time.UnixMilli(int64(f)).UTC()
	default:
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
}
