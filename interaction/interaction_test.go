package interaction

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlospaes120/scapegoat/errors"
)

func at(h int) time.Time {
	return time.Date(2024, 3, 1, h, 0, 0, 0, time.UTC)
}

func TestNewStoreSortsStablyAndDropsInvalid(t *testing.T) {
	store := NewStore([]Event{
		{Source: "b", Target: "c", Timestamp: at(2)},
		{Source: "a", Target: "b", Timestamp: at(1)},
		{Source: "x", Target: "", Timestamp: at(0)},
		{Source: "c", Target: "a", Timestamp: at(1)},
		{Source: "a", Target: "c"},
	})

	require.Equal(t, 3, store.Len())
	ev := store.Events()
	assert.Equal(t, "a", ev[0].Source)
	assert.Equal(t, "c", ev[1].Source, "equal timestamps keep input order")
	assert.Equal(t, "b", ev[2].Source)

	min, max, ok := store.Span()
	require.True(t, ok)
	assert.Equal(t, at(1), min)
	assert.Equal(t, at(2), max)
}

func TestStoreRangeIsHalfOpen(t *testing.T) {
	store := NewStore([]Event{
		{Source: "a", Target: "b", Timestamp: at(0)},
		{Source: "a", Target: "b", Timestamp: at(1)},
		{Source: "a", Target: "b", Timestamp: at(2)},
		{Source: "a", Target: "b", Timestamp: at(3)},
	})

	got := store.Range(at(1), at(3))
	require.Len(t, got, 2)
	assert.Equal(t, at(1), got[0].Timestamp)
	assert.Equal(t, at(2), got[1].Timestamp)

	assert.Empty(t, store.Range(at(3), at(3)))
	assert.Empty(t, store.Range(at(5), at(9)))
	assert.Equal(t, 4, store.Len(), "range queries do not mutate")
}

func TestEmptyStore(t *testing.T) {
	var nilStore *Store
	assert.Equal(t, 0, nilStore.Len())

	store := NewStore(nil)
	_, _, ok := store.Span()
	assert.False(t, ok)
	assert.Nil(t, store.Range(at(0), at(1)))
	assert.Empty(t, store.Actors())
}

func TestLoadCSV(t *testing.T) {
	input := "src,dst,timestamp,stance\n" +
		"a,b,2024-03-01T02:00:00Z,skeptic\n" +
		"b,b,2024-03-01T01:00:00Z,skeptic\n" +
		"c,,2024-03-01T01:00:00Z,\n" +
		"c,a,1709254800,believer\n" +
		"d,a,not-a-time,\n" +
		"d,c,2024-03-01 03:30:00,NaN\n"

	cols := DefaultColumns()
	cols.Labels = []string{"stance"}

	store, stats, err := LoadCSV(strings.NewReader(input), cols)
	require.NoError(t, err)

	assert.Equal(t, LoadStats{Rows: 6, Kept: 3, MissingValues: 1, SelfLoops: 1, BadTimestamps: 1}, stats)

	ev := store.Events()
	require.Len(t, ev, 3)
	assert.Equal(t, "c", ev[0].Source, "epoch seconds 1709254800 is 01:00 UTC")
	assert.Equal(t, "believer", ev[0].Label("stance"))
	assert.Equal(t, "a", ev[1].Source)
	assert.Equal(t, "", ev[2].Label("stance"), "NaN labels are treated as missing")
	assert.Equal(t, []string{"c", "a", "b", "d"}, store.Actors())
}

func TestLoadCSVMissingColumn(t *testing.T) {
	_, _, err := LoadCSV(strings.NewReader("from,to,timestamp\na,b,1\n"), DefaultColumns())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingColumn))
	assert.Contains(t, err.Error(), "src")
	assert.Contains(t, err.Error(), "dst")

	_, _, err = LoadCSV(strings.NewReader(""), DefaultColumns())
	assert.True(t, errors.Is(err, errors.ErrMissingColumn))
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		in     string
		layout string
	}{
		{"rfc3339", "2024-03-01T01:00:00Z", ""},
		{"offset", "2024-03-01T02:00:00+01:00", ""},
		{"space separated", "2024-03-01 01:00:00", ""},
		{"epoch seconds", "1709254800", ""},
		{"epoch millis", "1709254800000", ""},
		{"epoch micros", "1709254800000000", ""},
		{"epoch nanos", "1709254800000000000", ""},
		{"explicit layout", "01/03/2024 01:00", "02/01/2006 15:04"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in, tt.layout)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	_, err := ParseTimestamp("yesterday", "")
	assert.Error(t, err)
	_, err = ParseTimestamp("", "")
	assert.Error(t, err)
}
