// Package wire implements the text framing of the counting unit protocol.
//
// # Protocol Overview
//
// The protocol is strictly request/reply over a byte stream. A request is one
// printable ASCII command character, optionally followed by space separated
// decimal arguments, terminated by a carriage return:
//
//	c\r              read counters
//	s 4 1 1 0 0\r    count A AND B on channel 4
//
// The device answers every request with exactly one line of ASCII text.
// Replies may end with "\r", "\n" or "\r\n"; empty lines are ignored.
//
// The device has no flow control and no request identifiers. After writing a
// request the Framer waits a fixed settle delay before reading, and the caller
// (see package ccu) must never issue a second request before the first reply
// has been read.
package wire
