package reply

import (
	"strings"
)

// ParseVersion returns the firmware version line verbatim, trimmed.
func ParseVersion(line string) string {
	return strings.TrimSpace(line)
}

// ParseHelp returns the help text verbatim, trimmed.
func ParseHelp(line string) string {
	return strings.TrimSpace(line)
}

// ParseText returns a human-readable report line, trimmed.
func ParseText(line string) string {
	return strings.TrimSpace(line)
}

// ParseAck checks that line acknowledges a command. The comparison is a
// case-insensitive prefix match against want, so "OK cleared" acknowledges
// "ok".
func ParseAck(line, want string) error {
	got := strings.TrimSpace(line)
	if want == "" {
		return nil
	}
	if len(got) < len(want) || !strings.EqualFold(got[:len(want)], want) {
		return malformed("acknowledgement", line, "want %q", want)
	}

	return nil
}

// ParseToggle decodes the reply of the repeat toggle command, which ends in
// ON or OFF.
func ParseToggle(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, malformed("toggle", line, "empty reply")
	}

	switch strings.ToUpper(fields[len(fields)-1]) {
	case "ON", "1":
		return true, nil
	case "OFF", "0":
		return false, nil
	}

	return false, malformed("toggle", line, "want ON or OFF")
}
