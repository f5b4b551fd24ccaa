package calib

import (
	"math"

	"github.com/arloliu/go-ccu/validate"
)

// FullScaleVoltage is the DAC output at code 255.
const FullScaleVoltage = validate.MaxVoltage

// VoltageLSB is the voltage step of one DAC code.
const VoltageLSB = FullScaleVoltage / 255

// VoltageToByte converts a voltage into the 8-bit DAC code
// round(v/4.08*255). Out-of-range voltages are clamped into [0, 4.08] and
// NaN maps to 0; callers that need strict checking use validate.Voltage first.
func VoltageToByte(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= FullScaleVoltage:
		return 255
	}

	return uint8(math.Round(v / FullScaleVoltage * 255))
}

// ByteToVoltage converts an 8-bit DAC code back into volts. Unlike
// VoltageToByte it rejects codes outside [0, 255].
func ByteToVoltage(code int) (float64, error) {
	if err := validate.Byte(code); err != nil {
		return 0, err
	}

	return float64(code) / 255 * FullScaleVoltage, nil
}
