package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	assert.Equal(t, "CCU firmware 2.3", ParseVersion("  CCU firmware 2.3 \r"))
	assert.Equal(t, "commands: v h p c", ParseHelp("commands: v h p c\n"))
	assert.Equal(t, "ch0=100 ch1=200", ParseText(" ch0=100 ch1=200 "))
}

func TestParseAck(t *testing.T) {
	require.NoError(t, ParseAck("OK", "OK"))
	require.NoError(t, ParseAck("ok counters cleared", "OK"))
	require.NoError(t, ParseAck("anything", ""))

	err := ParseAck("ERR", "OK")
	require.ErrorIs(t, err, ErrMalformedResponse)

	err = ParseAck("O", "OK")
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseToggle(t *testing.T) {
	on, err := ParseToggle("Repeat ON")
	require.NoError(t, err)
	assert.True(t, on)

	on, err = ParseToggle("repeat off")
	require.NoError(t, err)
	assert.False(t, on)

	_, err = ParseToggle("")
	require.ErrorIs(t, err, ErrMalformedResponse)

	_, err = ParseToggle("Repeat maybe")
	require.ErrorIs(t, err, ErrMalformedResponse)
}
