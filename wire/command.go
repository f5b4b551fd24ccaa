package wire

import (
	"fmt"
	"strconv"
)

// Terminator ends every request frame.
const Terminator = '\r'

// Command is a single-character device command.
type Command byte

// Device commands.
const (
	CmdVersion        Command = 'v'
	CmdHelp           Command = 'h'
	CmdSettings       Command = 'p'
	CmdCounts         Command = 'c'
	CmdCountsText     Command = 'C'
	CmdClear          Command = 'z'
	CmdTrigger        Command = 't'
	CmdDac            Command = 'd'
	CmdImpedance50    Command = 'L'
	CmdImpedanceHighZ Command = 'H'
	CmdChannel        Command = 's'
	CmdRepeat         Command = 'r'
	CmdToggleRepeat   Command = 'R'
	CmdTestLeds       Command = 'T'
)

var commandNames = map[Command]string{
	CmdVersion:        "version",
	CmdHelp:           "help",
	CmdSettings:       "settings",
	CmdCounts:         "counts",
	CmdCountsText:     "counts-text",
	CmdClear:          "clear",
	CmdTrigger:        "trigger",
	CmdDac:            "dac",
	CmdImpedance50:    "impedance-50",
	CmdImpedanceHighZ: "impedance-highz",
	CmdChannel:        "channel",
	CmdRepeat:         "repeat",
	CmdToggleRepeat:   "toggle-repeat",
	CmdTestLeds:       "test-leds",
}

// argCounts is the number of arguments each command takes.
var argCounts = map[Command]int{
	CmdTrigger: 1,
	CmdDac:     1,
	CmdChannel: 5,
	CmdRepeat:  1,
}

// String returns the command name, or the quoted character for unknown commands.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}

	return strconv.QuoteRune(rune(c))
}

// Char returns the command character.
func (c Command) Char() byte { return byte(c) }

// NumArgs returns the number of arguments c expects.
func (c Command) NumArgs() int { return argCounts[c] }

// Encode builds the request frame for c with its decimal arguments.
//
// It fails when c is not a printable ASCII character or when the number of
// arguments does not match a known command's arity.
func Encode(c Command, args ...int) ([]byte, error) {
	if c < 0x21 || c > 0x7e {
		return nil, fmt.Errorf("wire: command 0x%02X is not a printable character", byte(c))
	}
	if _, known := commandNames[c]; known && len(args) != c.NumArgs() {
		return nil, fmt.Errorf("wire: command %s takes %d arguments, got %d", c, c.NumArgs(), len(args))
	}

	buf := make([]byte, 0, 2+len(args)*6)
	buf = append(buf, byte(c))
	for _, a := range args {
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, int64(a), 10)
	}
	buf = append(buf, Terminator)

	return buf, nil
}
