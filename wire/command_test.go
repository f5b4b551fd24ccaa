package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		args []int
		want string
	}{
		{"version", CmdVersion, nil, "v\r"},
		{"counts", CmdCounts, nil, "c\r"},
		{"counts text", CmdCountsText, nil, "C\r"},
		{"trigger", CmdTrigger, []int{128}, "t 128\r"},
		{"channel A+B", CmdChannel, []int{4, 1, 1, 0, 0}, "s 4 1 1 0 0\r"},
		{"repeat", CmdRepeat, []int{1000}, "r 1000\r"},
		{"unknown command passes args through", Command('x'), []int{1, 2}, "x 1 2\r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.cmd, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	_, err := Encode(Command(' '))
	require.Error(t, err)

	_, err = Encode(Command(0x7f))
	require.Error(t, err)

	_, err = Encode(CmdChannel, 4, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "takes 5 arguments")

	_, err = Encode(CmdVersion, 1)
	require.Error(t, err)
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "counts", CmdCounts.String())
	assert.Equal(t, "counts-text", CmdCountsText.String())
	assert.Equal(t, "'x'", Command('x').String())
	assert.Equal(t, byte('c'), CmdCounts.Char())
	assert.Equal(t, 5, CmdChannel.NumArgs())
	assert.Equal(t, 0, CmdClear.NumArgs())
}
