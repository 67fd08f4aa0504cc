package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for k := Bool; k <= String; k++ {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("invalid")
	assert.Error(t, err)
	_, err = ParseKind("decimal")
	assert.Error(t, err)

	assert.Equal(t, "kind(99)", Kind(99).String())
}

func TestCanCast(t *testing.T) {
	cases := []struct {
		from, to Kind
		want     bool
	}{
		{Int32, Int32, true},
		{String, String, true},
		{Int8, Int16, true},
		{Int8, Float64, true},
		{Uint8, Uint64, true},
		{Uint8, Int16, true},
		{Uint32, Int64, true},
		{Int64, Float32, true},
		{Char, Uint16, true},
		{Char, Int32, true},
		{Float32, Float64, true},

		{Int16, Int8, false},
		{Int8, Uint16, false},
		{Int32, Uint64, false},
		{Uint64, Int64, false},
		{Float64, Float32, false},
		{Float32, Int64, false},
		{Char, Int16, false},
		{Uint16, Char, false},
		{Bool, Int8, false},
		{Int8, Bool, false},
		{String, Char, false},
		{Char, String, false},
		{Invalid, Invalid, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CanCast(tc.from, tc.to), "%v to %v", tc.from, tc.to)
	}
}
