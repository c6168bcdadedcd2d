package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy(" Advanced ")
	require.NoError(t, err)
	assert.Equal(t, StrategyAdvanced, s)

	s, err = ParseStrategy("basic")
	require.NoError(t, err)
	assert.Equal(t, StrategyBasic, s)

	_, err = ParseStrategy("magic")
	assert.Error(t, err)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "filtering", StateFiltering.String())
	assert.Equal(t, "complete", StateComplete.String())
}
