package calib

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrDegenerateCalibration indicates reference points whose raw values
	// are all equal, which leaves the gain undefined.
	ErrDegenerateCalibration = errors.New("calib: degenerate calibration, raw values do not vary")

	// ErrInsufficientData indicates a fit with fewer than two points.
	ErrInsufficientData = errors.New("calib: insufficient data, need at least 2 points")
)

// Coefficients is a linear calibration: calibrated = raw*Gain + Offset.
type Coefficients struct {
	Gain   float64 `yaml:"gain" json:"gain"`
	Offset float64 `yaml:"offset" json:"offset"`
}

// Identity returns the transform that leaves counts unchanged.
func Identity() Coefficients {
	return Coefficients{Gain: 1, Offset: 0}
}

// Apply transforms a raw value.
func (c Coefficients) Apply(raw float64) float64 {
	return Apply(raw, c.Gain, c.Offset)
}

// IsIdentity reports whether c leaves values unchanged.
func (c Coefficients) IsIdentity() bool {
	return c.Gain == 1 && c.Offset == 0
}

func (c Coefficients) String() string {
	return fmt.Sprintf("gain=%g offset=%g", c.Gain, c.Offset)
}

// Apply returns raw*gain + offset.
func Apply(raw, gain, offset float64) float64 {
	return raw*gain + offset
}

// Point is a reference measurement: the device reported Raw while the known
// true value was Actual.
type Point struct {
	Raw    float64 `yaml:"raw" json:"raw"`
	Actual float64 `yaml:"actual" json:"actual"`
}

// TwoPoint fits the line through p1 and p2.
func TwoPoint(p1, p2 Point) (Coefficients, error) {
	if p1.Raw == p2.Raw {
		return Coefficients{}, fmt.Errorf("%w: both points have raw %g", ErrDegenerateCalibration, p1.Raw)
	}

	gain := (p2.Actual - p1.Actual) / (p2.Raw - p1.Raw)

	return Coefficients{Gain: gain, Offset: p1.Actual - gain*p1.Raw}, nil
}

// MultiPoint fits an ordinary least-squares line through points.
func MultiPoint(points []Point) (Coefficients, error) {
	if len(points) < 2 {
		return Coefficients{}, fmt.Errorf("%w: got %d", ErrInsufficientData, len(points))
	}

	raw := make([]float64, len(points))
	actual := make([]float64, len(points))
	varies := false
	for i, p := range points {
		raw[i], actual[i] = p.Raw, p.Actual
		if p.Raw != points[0].Raw {
			varies = true
		}
	}
	if !varies {
		return Coefficients{}, fmt.Errorf("%w: all %d points have raw %g", ErrDegenerateCalibration, len(points), points[0].Raw)
	}

	// actual = alpha + beta*raw
	alpha, beta := stat.LinearRegression(raw, actual, nil, false)

	return Coefficients{Gain: beta, Offset: alpha}, nil
}

// ErrorStats summarises the absolute error of a fit against reference points.
type ErrorStats struct {
	Mean     float64   `yaml:"mean" json:"mean"`
	Std      float64   `yaml:"std" json:"std"`
	Max      float64   `yaml:"max" json:"max"`
	PerPoint []float64 `yaml:"per_point" json:"per_point"`
}

// CalculateError evaluates c against points. Std is the population standard
// deviation of the absolute errors. With no points every statistic is 0.
func CalculateError(points []Point, c Coefficients) ErrorStats {
	if len(points) == 0 {
		return ErrorStats{PerPoint: []float64{}}
	}

	errs := make([]float64, len(points))
	for i, p := range points {
		errs[i] = math.Abs(c.Apply(p.Raw) - p.Actual)
	}

	mean, std := stat.PopMeanStdDev(errs, nil)

	return ErrorStats{
		Mean:     mean,
		Std:      std,
		Max:      floats.Max(errs),
		PerPoint: errs,
	}
}
