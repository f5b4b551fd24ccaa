// Package calib holds the calibration side of go-ccu: the linear transform
// applied to raw counts, the fits that produce its coefficients, the DAC
// voltage codec, and named calibration profiles with their storage.
//
// A transform is a pair of Coefficients applied as
//
//	calibrated = raw*Gain + Offset
//
// Coefficients are values. Re-fitting produces a new pair; nothing in this
// package mutates a pair that a caller may be reading.
package calib
