package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, EngineVersion, info.EngineVersion)
	assert.NotEmpty(t, info.GoVersion)
	assert.True(t, strings.HasPrefix(info.String(), "scapegoat "))
}

func TestShort(t *testing.T) {
	assert.Equal(t, "abcdef1", Info{CommitHash: "abcdef1234"}.Short())
	assert.Equal(t, "dev", Info{CommitHash: "dev"}.Short())
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		current, stored string
		want            bool
	}{
		{"0.4.0", "0.4.0", true},
		{"0.4.2", "0.4.0", true},
		{"0.5.0", "0.4.0", false},
		{"1.3.0", "1.0.0", true},
		{"2.0.0", "1.9.0", false},
		{"0.4.0", "0.4.1", false},
	}
	for _, tt := range tests {
		got, err := compatible(tt.current, tt.stored)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s vs stored %s", tt.current, tt.stored)
	}

	_, err := compatible("0.4.0", "not-a-version")
	assert.Error(t, err)

	ok, err := Compatible(EngineVersion)
	require.NoError(t, err)
	assert.True(t, ok)
}
