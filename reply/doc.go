// Package reply decodes reply lines of the counting unit into typed values.
//
// Every function here is pure: no I/O, no retries, no partial results. A reply
// that does not match the expected shape fails as a whole with an error
// wrapping ErrMalformedResponse.
//
// # Counts
//
// A counts reply carries eight channel counts followed by the overflow
// bitmask, all decimal:
//
//	100 200 300 400 500 600 700 800 0
//
// Channels 0-6 are 24-bit counters, channel 7 is a 16-bit counter. Bit i of
// the overflow mask is set when channel i saturated.
//
// # Settings
//
// A settings reply has thirteen positional tokens:
//
//	trigger dac impedance repeatMs repeatOn mask0 ... mask7
//
// trigger and dac are 8-bit DAC codes, impedance is 1 for 50 Ohm and 0 for
// high impedance, repeatOn is 0 or 1 and each mask is the 4-bit input mask of
// a channel (bit0=A ... bit3=D).
package reply
