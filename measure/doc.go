// Package measure turns pairs of counter snapshots into rates.
//
// A measurement takes one snapshot, waits a fixed sampling time on the engine
// clock, takes a second snapshot and derives everything from the difference
// of that single pair. Each call walks through the phases Armed, Sampling and
// Complete, or ends in Failed; a PhaseHandler can observe the transitions.
//
// All durations are seconds as float64 and all rates are Hz as float64.
// Nothing is rounded here; rounding belongs to presentation.
package measure
