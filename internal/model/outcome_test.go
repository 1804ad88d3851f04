package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	for in, want := range map[string]Color{"red": Red, " Green ": Green, "VIOLET": Violet} {
		got, err := ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseColor("blue")
	assert.ErrorContains(t, err, "RED, GREEN, VIOLET")
}

func TestParseSize(t *testing.T) {
	for in, want := range map[string]Size{"small": Small, "Big": Big} {
		got, err := ParseSize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseSize("")
	assert.Error(t, err)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "GREEN BIG", Outcome{Color: Green, Size: Big}.String())
}
