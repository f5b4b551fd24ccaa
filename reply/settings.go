package reply

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InputMask selects which physical inputs must coincide to increment a
// channel. Bit 0 is input A, bit 3 is input D.
type InputMask uint8

// Physical inputs.
const (
	InputA InputMask = 1 << iota
	InputB
	InputC
	InputD

	// AllInputs is the mask of every input.
	AllInputs = InputA | InputB | InputC | InputD
)

var inputNames = [4]byte{'A', 'B', 'C', 'D'}

// Has reports whether every input of in is part of m.
func (m InputMask) Has(in InputMask) bool { return m&in == in }

// Bits returns the four 0/1 wire arguments in A, B, C, D order.
func (m InputMask) Bits() [4]int {
	var bits [4]int
	for i := range bits {
		if m&(1<<uint(i)) != 0 {
			bits[i] = 1
		}
	}

	return bits
}

// String renders the mask as "A+B", or "-" when empty.
func (m InputMask) String() string {
	parts := make([]string, 0, 4)
	for i, name := range inputNames {
		if m&(1<<uint(i)) != 0 {
			parts = append(parts, string(name))
		}
	}
	if len(parts) == 0 {
		return "-"
	}

	return strings.Join(parts, "+")
}

// ParseInputMask parses "A+B", "AB", "a,c" or "-" into an InputMask.
func ParseInputMask(s string) (InputMask, error) {
	s = strings.TrimSpace(s)
	if s == "-" || s == "" {
		return 0, nil
	}

	var m InputMask
	for _, r := range strings.ToUpper(s) {
		switch r {
		case 'A', 'B', 'C', 'D':
			m |= 1 << uint(r-'A')
		case '+', ',', ' ':
		default:
			return 0, fmt.Errorf("reply: invalid input %q in %q, want A-D", r, s)
		}
	}

	return m, nil
}

// Impedance is the input termination mode.
type Impedance uint8

const (
	ImpedanceHighZ Impedance = iota
	Impedance50Ohm
)

func (z Impedance) String() string {
	switch z {
	case ImpedanceHighZ:
		return "high-Z"
	case Impedance50Ohm:
		return "50 Ohm"
	default:
		return fmt.Sprintf("Impedance(%d)", uint8(z))
	}
}

// Settings is the decoded settings record of the unit.
type Settings struct {
	TriggerCode    uint8
	DacCode        uint8
	Impedance      Impedance
	RepeatInterval time.Duration
	RepeatEnabled  bool
	Channels       [NumChannels]InputMask
}

const settingsTokens = 5 + NumChannels

// ParseSettings decodes a settings reply.
func ParseSettings(line string) (Settings, error) {
	var s Settings

	tokens := strings.Fields(line)
	if len(tokens) != settingsTokens {
		return Settings{}, malformed("settings", line, "got %d tokens, want %d", len(tokens), settingsTokens)
	}

	field := func(i int, name string, max uint64) (uint64, error) {
		v, err := strconv.ParseUint(tokens[i], 10, 64)
		if err != nil || v > max {
			return 0, malformed("settings", line, "%s %q not in [0, %d]", name, tokens[i], max)
		}
		return v, nil
	}

	trig, err := field(0, "trigger", 255)
	if err != nil {
		return Settings{}, err
	}
	dac, err := field(1, "dac", 255)
	if err != nil {
		return Settings{}, err
	}
	imp, err := field(2, "impedance", 1)
	if err != nil {
		return Settings{}, err
	}
	repeatMs, err := field(3, "repeat interval", 65535)
	if err != nil {
		return Settings{}, err
	}
	repeatOn, err := field(4, "repeat flag", 1)
	if err != nil {
		return Settings{}, err
	}

	s.TriggerCode = uint8(trig)
	s.DacCode = uint8(dac)
	s.Impedance = Impedance(imp)
	s.RepeatInterval = time.Duration(repeatMs) * time.Millisecond
	s.RepeatEnabled = repeatOn == 1

	for ch := 0; ch < NumChannels; ch++ {
		m, err := field(5+ch, fmt.Sprintf("channel %d mask", ch), uint64(AllInputs))
		if err != nil {
			return Settings{}, err
		}
		s.Channels[ch] = InputMask(m)
	}

	return s, nil
}

// String renders s in wire format.
func (s Settings) String() string {
	imp, repeat := 0, 0
	if s.Impedance == Impedance50Ohm {
		imp = 1
	}
	if s.RepeatEnabled {
		repeat = 1
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d %d %d %d %d", s.TriggerCode, s.DacCode, imp, s.RepeatInterval.Milliseconds(), repeat)
	for _, m := range s.Channels {
		fmt.Fprintf(&sb, " %d", uint8(m))
	}

	return sb.String()
}
