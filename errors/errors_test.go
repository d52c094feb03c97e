package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrapf(ErrInvalidWindow, "width must be positive, got %d", -1)

	assert.True(t, Is(err, ErrInvalidWindow))
	assert.False(t, Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), "width must be positive, got -1")
	assert.Contains(t, err.Error(), "invalid window")
}

func TestIsInputError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"invalid window", Wrap(ErrInvalidWindow, "step"), true},
		{"missing column", NewMissingColumnError("src"), true},
		{"invalid request", NewInvalidRequestError("unknown method %q", "foo"), true},
		{"invalid config", Wrap(ErrInvalidConfig, "pipeline.workers"), true},
		{"not found", NewNotFoundError("run %s", "abc"), false},
		{"plain", New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsInputError(tt.err))
		})
	}
}

func TestNewMissingColumnErrorCarriesHint(t *testing.T) {
	err := NewMissingColumnError("src", "timestamp")

	require.True(t, Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), "src")
	assert.Contains(t, err.Error(), "timestamp")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Contains(t, hints[0], "[input]")
}

func TestIsNotFoundError(t *testing.T) {
	assert.True(t, IsNotFoundError(NewNotFoundError("run %s", "r1")))
	assert.False(t, IsNotFoundError(New("other")))
	assert.False(t, IsNotFoundError(nil))
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")

	detailed := fmt.Sprintf("%+v", err)
	assert.Contains(t, detailed, "errors_test.go")
	assert.NotNil(t, GetStack(err))
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
	assert.Nil(t, WithStack(nil))
	assert.Nil(t, WithHint(nil, "hint"))
	assert.Nil(t, WithDetail(nil, "detail"))
}

func TestErrorChaining(t *testing.T) {
	err := Wrap(ErrMissingColumn, "layer 1")
	err = WithHint(err, "helpful hint")
	err = WithDetail(err, "detailed info")
	err = Wrap(err, "layer 2")

	assert.True(t, Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), "layer 2")
	assert.Contains(t, err.Error(), "layer 1")
	assert.Contains(t, GetAllHints(err), "helpful hint")
	assert.Contains(t, GetAllDetails(err), "detailed info")
}

func ExampleWrap() {
	err := Wrap(ErrInvalidWindow, "step must be positive")
	fmt.Println(err)
	// Output: step must be positive: invalid window
}
