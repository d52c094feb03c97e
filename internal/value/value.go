// Package value provides the tagged scalar used for metrics that may be
// undefined on degenerate input (empty graphs, absent target, one label class).
//
// A Maybe is either Defined(v) or Undefined. Aggregation code must check Ok
// explicitly; NaN is only produced at the rendering edge via Float64.
package value

import (
	"encoding/json"
	"math"
	"strconv"
)

// Maybe holds a value of T that may be undefined.
type Maybe[T any] struct {
	v  T
	ok bool
}

// Defined wraps v as a defined value.
func Defined[T any](v T) Maybe[T] {
	return Maybe[T]{v: v, ok: true}
}

// Undefined returns the undefined value of T.
func Undefined[T any]() Maybe[T] {
	return Maybe[T]{}
}

// Get returns the wrapped value and whether it is defined.
func (m Maybe[T]) Get() (T, bool) {
	return m.v, m.ok
}

// Ok reports whether the value is defined.
func (m Maybe[T]) Ok() bool {
	return m.ok
}

// Or returns the wrapped value, or fallback when undefined.
func (m Maybe[T]) Or(fallback T) T {
	if m.ok {
		return m.v
	}
	return fallback
}

// MarshalJSON renders undefined values as null.
func (m Maybe[T]) MarshalJSON() ([]byte, error) {
	if !m.ok {
		return []byte("null"), nil
	}
	return json.Marshal(m.v)
}

// UnmarshalJSON accepts null as undefined.
func (m *Maybe[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Maybe[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Defined(v)
	return nil
}

// Float wraps a float64, mapping NaN and ±Inf to Undefined.
func Float(f float64) Maybe[float64] {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Undefined[float64]()
	}
	return Defined(f)
}

// Float64 renders m for numeric sinks (CSV, SQL REAL columns): NaN when undefined.
func Float64(m Maybe[float64]) float64 {
	if v, ok := m.Get(); ok {
		return v
	}
	return math.NaN()
}

// FormatFloat renders m for text output, "NaN" when undefined.
func FormatFloat(m Maybe[float64]) string {
	return strconv.FormatFloat(Float64(m), 'g', -1, 64)
}

// FormatInt renders an optional index, empty when undefined.
func FormatInt(m Maybe[int]) string {
	if v, ok := m.Get(); ok {
		return strconv.Itoa(v)
	}
	return ""
}
