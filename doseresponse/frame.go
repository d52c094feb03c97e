// Package doseresponse relates explanatory factors to window-level responses:
// binned dose-response curves with a linear trend, threshold effects with a
// Welch test, and two-factor interaction effects.
package doseresponse

import (
	"sort"

	"github.com/carlospaes120/scapegoat/errors"
	"github.com/carlospaes120/scapegoat/internal/value"
	"github.com/carlospaes120/scapegoat/metrics"
)

// Frame is a table of named float columns of equal length.
type Frame struct {
	rows    int
	columns map[string][]value.Maybe[float64]
	order   []string
}

// NewFrame creates an empty frame with the given row count.
func NewFrame(rows int) *Frame {
	return &Frame{rows: rows, columns: make(map[string][]value.Maybe[float64])}
}

// FromRecords builds a frame with one row per window record and one column
// per numeric record column.
func FromRecords(records []metrics.Record) *Frame {
	f := NewFrame(len(records))
	for i := range records {
		for _, c := range records[i].Columns() {
			col, ok := f.columns[c.Name]
			if !ok {
				col = make([]value.Maybe[float64], len(records))
				f.columns[c.Name] = col
				f.order = append(f.order, c.Name)
			}
			col[i] = c.Value
		}
	}
	return f
}

// Rows returns the row count.
func (f *Frame) Rows() int { return f.rows }

// Names returns the column names in insertion order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Set adds or replaces a column.
func (f *Frame) Set(name string, col []value.Maybe[float64]) error {
	if len(col) != f.rows {
		return errors.NewInvalidRequestError("column %q has %d rows, frame has %d", name, len(col), f.rows)
	}
	if _, ok := f.columns[name]; !ok {
		f.order = append(f.order, name)
	}
	f.columns[name] = col
	return nil
}

// SetFloats adds a column from plain floats; NaN and Inf become Undefined.
func (f *Frame) SetFloats(name string, xs []float64) error {
	col := make([]value.Maybe[float64], len(xs))
	for i, x := range xs {
		col[i] = value.Float(x)
	}
	return f.Set(name, col)
}

// Has reports whether the frame has a column.
func (f *Frame) Has(name string) bool {
	_, ok := f.columns[name]
	return ok
}

// Column returns the named column or ErrMissingColumn.
func (f *Frame) Column(name string) ([]value.Maybe[float64], error) {
	col, ok := f.columns[name]
	if !ok {
		return nil, errors.NewMissingColumnError(name)
	}
	return col, nil
}

// require fetches several columns at once, reporting every missing name.
func (f *Frame) require(names ...string) ([][]value.Maybe[float64], error) {
	var missing []string
	out := make([][]value.Maybe[float64], len(names))
	for i, n := range names {
		col, ok := f.columns[n]
		if !ok {
			missing = append(missing, n)
			continue
		}
		out[i] = col
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, errors.NewMissingColumnError(missing...)
	}
	return out, nil
}

// complete returns, for the rows where every column is defined, the
// column values.
func complete(cols ...[]value.Maybe[float64]) [][]float64 {
	out := make([][]float64, len(cols))
	if len(cols) == 0 {
		return out
	}
rows:
	for i := range cols[0] {
		vals := make([]float64, len(cols))
		for j, c := range cols {
			v, ok := c[i].Get()
			if !ok {
				continue rows
			}
			vals[j] = v
		}
		for j, v := range vals {
			out[j] = append(out[j], v)
		}
	}
	return out
}
