// Package validate checks user-supplied parameters before they reach the
// driver and the measurement engine.
//
// The core packages assume their inputs already passed these checks: the
// driver trusts a voltage to be inside [MinVoltage, MaxVoltage], the engine
// trusts a channel index to be inside [MinChannel, MaxChannel]. Every failure
// is a *RangeError wrapping ErrOutOfRange, or ErrInvalidValue for values that
// are not numbers or not one of an enumerated set.
package validate

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Parameter limits of the counting unit.
const (
	MinChannel = 0
	MaxChannel = 7

	MinVoltage = 0.0
	MaxVoltage = 4.08

	MinByte = 0
	MaxByte = 255

	MinRepeatInterval = 100   // ms
	MaxRepeatInterval = 65535 // ms

	// MaxDuration bounds a single sampling window, in seconds.
	MaxDuration = 3600.0

	// MaxWindow bounds the coincidence time window, in seconds.
	MaxWindow = 1e-3
)

var (
	// ErrOutOfRange is wrapped by every *RangeError.
	ErrOutOfRange = errors.New("validate: value out of range")
	// ErrInvalidValue indicates a value that is not a number or not one of
	// the accepted choices.
	ErrInvalidValue = errors.New("validate: invalid value")
)

// RangeError reports a parameter outside its accepted range.
type RangeError struct {
	Param string
	Value any
	Min   any
	Max   any
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("validate: %s %v out of range [%v, %v]", e.Param, e.Value, e.Min, e.Max)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// Channel checks a counter channel index.
func Channel(ch int) error {
	if ch < MinChannel || ch > MaxChannel {
		return &RangeError{Param: "channel", Value: ch, Min: MinChannel, Max: MaxChannel}
	}

	return nil
}

// Voltage checks a trigger or DAC voltage in volts.
func Voltage(v float64) error {
	if math.IsNaN(v) {
		return fmt.Errorf("%w: voltage is NaN", ErrInvalidValue)
	}
	if v < MinVoltage || v > MaxVoltage {
		return &RangeError{Param: "voltage", Value: v, Min: MinVoltage, Max: MaxVoltage}
	}

	return nil
}

// Byte checks an 8-bit code.
func Byte(b int) error {
	if b < MinByte || b > MaxByte {
		return &RangeError{Param: "byte", Value: b, Min: MinByte, Max: MaxByte}
	}

	return nil
}

// RepeatInterval checks a periodic push interval in milliseconds.
func RepeatInterval(ms int) error {
	if ms < MinRepeatInterval || ms > MaxRepeatInterval {
		return &RangeError{Param: "repeat interval", Value: ms, Min: MinRepeatInterval, Max: MaxRepeatInterval}
	}

	return nil
}

// Duration checks a sampling window in seconds. Zero is rejected since rates
// divide by it.
func Duration(s float64) error {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return fmt.Errorf("%w: duration %v", ErrInvalidValue, s)
	}
	if s <= 0 || s > MaxDuration {
		return &RangeError{Param: "duration", Value: s, Min: 0, Max: MaxDuration}
	}

	return nil
}

// Window checks a coincidence time window in seconds.
func Window(s float64) error {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return fmt.Errorf("%w: window %v", ErrInvalidValue, s)
	}
	if s < 0 || s > MaxWindow {
		return &RangeError{Param: "window", Value: s, Min: 0, Max: MaxWindow}
	}

	return nil
}

// Impedance mode names accepted by ImpedanceMode.
const (
	Impedance50Ohm = "50"
	ImpedanceHighZ = "highz"
)

// ImpedanceMode normalises an impedance selector ("50", "50ohm", "highz",
// "hi-z", "high") to Impedance50Ohm or ImpedanceHighZ.
func ImpedanceMode(mode string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "50", "50ohm", "50r", "low":
		return Impedance50Ohm, nil
	case "highz", "hi-z", "hiz", "high", "1m":
		return ImpedanceHighZ, nil
	}

	return "", fmt.Errorf("%w: impedance mode %q, want 50 or highz", ErrInvalidValue, mode)
}
