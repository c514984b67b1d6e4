package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/engine"
)

func TestParseCommandGet(t *testing.T) {
	cmd, err := ParseCommand("get my.key-1")
	require.NoError(t, err)
	assert.Equal(t, CmdGet, cmd.Type)
	assert.Equal(t, "my.key-1", cmd.Key)
}

func TestParseCommandSetTypedValues(t *testing.T) {
	cmd, err := ParseCommand("set k|i:-42")
	require.NoError(t, err)
	assert.Equal(t, CmdSet, cmd.Type)
	assert.Equal(t, engine.KindInt64, cmd.Value.Kind)
	assert.Equal(t, int64(-42), cmd.Value.Int64)

	cmd, err = ParseCommand("set k|f:3.5")
	require.NoError(t, err)
	assert.Equal(t, engine.KindFloat64, cmd.Value.Kind)
	assert.Equal(t, 3.5, cmd.Value.Float64)

	cmd, err = ParseCommand("set k|hello there")
	require.NoError(t, err)
	assert.Equal(t, engine.KindStr, cmd.Value.Kind)
	assert.Equal(t, "hello there", cmd.Value.Str)
}

func TestParseCommandSetFallsBackToStrOnBadTypedPrefix(t *testing.T) {
	cmd, err := ParseCommand("set k|i:not-a-number")
	require.NoError(t, err)
	assert.Equal(t, engine.KindStr, cmd.Value.Kind)
	assert.Equal(t, "i:not-a-number", cmd.Value.Str)
}

func TestParseCommandRejectsInvalidKey(t *testing.T) {
	_, err := ParseCommand("get has a space")
	require.Error(t, err)
}

func TestParseCommandStatusFlushCompact(t *testing.T) {
	for _, line := range []string{"status", "flush", "compact"} {
		cmd, err := ParseCommand(line)
		require.NoError(t, err)
		assert.Equal(t, line, cmd.Type)
	}
}

func TestFormatValueRoundTripsThroughParseValue(t *testing.T) {
	assert.Equal(t, "i:7", formatValue(engine.Int64Value(7)))
	assert.Equal(t, "f:3.5", formatValue(engine.Float64Value(3.5)))
	assert.Equal(t, "hello", formatValue(engine.StrValue("hello")))

	for _, v := range []engine.Value{engine.Int64Value(7), engine.Float64Value(3.5), engine.StrValue("hello")} {
		assert.Equal(t, v, parseValue(formatValue(v)))
	}
}
