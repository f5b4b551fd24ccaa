package reply

import (
	"strconv"
	"strings"
	"time"
)

// NumChannels is the number of counters of the unit.
const NumChannels = 8

// Counter limits.
const (
	MaxCount24 = 1<<24 - 1 // channels 0-6
	MaxCount16 = 1<<16 - 1 // channel 7
)

// MaxCount returns the saturation value of channel ch.
func MaxCount(ch int) uint32 {
	if ch == NumChannels-1 {
		return MaxCount16
	}

	return MaxCount24
}

// CountSnapshot is the state of all counters at one point in time.
// It is a value type; a snapshot is never modified after it was parsed.
type CountSnapshot struct {
	Counts [NumChannels]uint32
	// Overflow has bit i set when channel i saturated.
	Overflow uint8
	// Time is when the reply was received. ParseCounts leaves it zero.
	Time time.Time
}

// Count returns the count of channel ch.
func (s CountSnapshot) Count(ch int) uint32 {
	return s.Counts[ch]
}

// Overflowed reports whether channel ch saturated.
func (s CountSnapshot) Overflowed(ch int) bool {
	return s.Overflow&(1<<uint(ch)) != 0
}

// Delta returns later's count minus s's count on channel ch. A negative
// result means the counter was reset or wrapped between the two snapshots.
func (s CountSnapshot) Delta(later CountSnapshot, ch int) int64 {
	return int64(later.Counts[ch]) - int64(s.Counts[ch])
}

// WithTime returns a copy of s stamped with t.
func (s CountSnapshot) WithTime(t time.Time) CountSnapshot {
	s.Time = t
	return s
}

// String renders the snapshot in wire format.
func (s CountSnapshot) String() string {
	var sb strings.Builder
	for _, c := range s.Counts {
		sb.WriteString(strconv.FormatUint(uint64(c), 10))
		sb.WriteByte(' ')
	}
	sb.WriteString(strconv.FormatUint(uint64(s.Overflow), 10))

	return sb.String()
}

// ParseCounts decodes a counts reply.
func ParseCounts(line string) (CountSnapshot, error) {
	var snap CountSnapshot

	tokens := strings.Fields(line)
	if len(tokens) != NumChannels+1 {
		return CountSnapshot{}, malformed("counts", line, "got %d tokens, want %d", len(tokens), NumChannels+1)
	}

	for ch := 0; ch < NumChannels; ch++ {
		v, err := strconv.ParseUint(tokens[ch], 10, 32)
		if err != nil {
			return CountSnapshot{}, malformed("counts", line, "channel %d: %q is not a count", ch, tokens[ch])
		}
		if v > uint64(MaxCount(ch)) {
			return CountSnapshot{}, malformed("counts", line, "channel %d: %d exceeds counter maximum %d", ch, v, MaxCount(ch))
		}
		snap.Counts[ch] = uint32(v)
	}

	ov, err := strconv.ParseUint(tokens[NumChannels], 10, 8)
	if err != nil {
		return CountSnapshot{}, malformed("counts", line, "overflow %q is not an 8-bit mask", tokens[NumChannels])
	}
	snap.Overflow = uint8(ov)

	return snap, nil
}
