package value

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaybe(t *testing.T) {
	d := Defined(2.5)
	v, ok := d.Get()
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)
	assert.Equal(t, 2.5, d.Or(0))

	u := Undefined[float64]()
	assert.False(t, u.Ok())
	assert.Equal(t, -1.0, u.Or(-1))
	assert.True(t, math.IsNaN(Float64(u)))
}

func TestFloatRejectsNaNAndInf(t *testing.T) {
	assert.False(t, Float(math.NaN()).Ok())
	assert.False(t, Float(math.Inf(1)).Ok())
	assert.True(t, Float(0).Ok())
}

func TestJSONRoundTrip(t *testing.T) {
	type row struct {
		A Maybe[float64] `json:"a"`
		B Maybe[int]     `json:"b"`
	}

	data, err := json.Marshal(row{A: Defined(1.5), B: Undefined[int]()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null}`, string(data))

	var back row
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Defined(1.5), back.A)
	assert.False(t, back.B.Ok())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "NaN", FormatFloat(Undefined[float64]()))
	assert.Equal(t, "0.25", FormatFloat(Defined(0.25)))
	assert.Equal(t, "", FormatInt(Undefined[int]()))
	assert.Equal(t, "3", FormatInt(Defined(3)))
}
