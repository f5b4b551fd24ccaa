package measure

import (
	"fmt"
	"math"
	"time"

	"github.com/arloliu/go-ccu/calib"
)

// RateMeasurement is the count rate of one channel over one sampling window.
type RateMeasurement struct {
	Channel int
	// Duration is the requested sampling time in seconds.
	Duration float64
	// Counts is the counter increase between the two snapshots.
	Counts uint64
	// Rate is Counts/Duration in Hz.
	Rate float64
	// Uncertainty is the Poisson uncertainty sqrt(Counts)/Duration in Hz.
	Uncertainty float64
	// Elapsed is the time between the two snapshots as observed by the
	// driver. It is longer than Duration by the command round trips.
	Elapsed time.Duration
	// Saturated reports that the counter hit its maximum, so Counts is a
	// lower bound.
	Saturated bool
}

// NewRateMeasurement derives rate and uncertainty from counts collected over
// duration seconds. A non-positive duration yields zero rates.
func NewRateMeasurement(ch int, counts uint64, duration float64) RateMeasurement {
	m := RateMeasurement{Channel: ch, Duration: duration, Counts: counts}
	if duration > 0 {
		m.Rate = float64(counts) / duration
		m.Uncertainty = math.Sqrt(float64(counts)) / duration
	}

	return m
}

func (m RateMeasurement) String() string {
	s := fmt.Sprintf("ch%d: %d counts in %gs, %g ± %g Hz", m.Channel, m.Counts, m.Duration, m.Rate, m.Uncertainty)
	if m.Saturated {
		s += " (saturated)"
	}

	return s
}

// CalibratedRate is a RateMeasurement after the calibration transform.
type CalibratedRate struct {
	Channel      int
	Coefficients calib.Coefficients
	Counts       float64
	Rate         float64
	Uncertainty  float64
}

// Calibrated applies the calibration of m's channel from l to the counts.
// The rate follows the calibrated counts; the uncertainty scales with |gain|.
func (m RateMeasurement) Calibrated(l calib.Lookup) CalibratedRate {
	c := calib.For(l, m.Channel)

	r := CalibratedRate{
		Channel:      m.Channel,
		Coefficients: c,
		Counts:       c.Apply(float64(m.Counts)),
	}
	if m.Duration > 0 {
		r.Rate = r.Counts / m.Duration
		r.Uncertainty = math.Abs(c.Gain) * m.Uncertainty
	}

	return r
}

// CoincidenceMeasurement holds the rates of two singles channels and their
// coincidence channel, all taken from the same pair of snapshots.
type CoincidenceMeasurement struct {
	Duration float64
	// Window is the coincidence time window in seconds.
	Window      float64
	SinglesA    RateMeasurement
	SinglesB    RateMeasurement
	Coincidence RateMeasurement
	// AccidentalRate is the expected rate of chance coincidences.
	AccidentalRate float64
	// TrueCoincidenceRate is the coincidence rate minus the accidental rate,
	// never below zero.
	TrueCoincidenceRate float64
	Elapsed             time.Duration
}

// NewCoincidenceMeasurement combines three rate measurements of one sampling
// window. Uncertainties are not propagated to the accidental and true rates.
func NewCoincidenceMeasurement(a, b, c RateMeasurement, window float64) CoincidenceMeasurement {
	acc := AccidentalRate(window, a.Rate, b.Rate)

	return CoincidenceMeasurement{
		Duration:            c.Duration,
		Window:              window,
		SinglesA:            a,
		SinglesB:            b,
		Coincidence:         c,
		AccidentalRate:      acc,
		TrueCoincidenceRate: TrueCoincidenceRate(c.Rate, acc),
		Elapsed:             c.Elapsed,
	}
}

// AccidentalRate returns 2*window*rateA*rateB.
func AccidentalRate(window, rateA, rateB float64) float64 {
	return 2 * window * rateA * rateB
}

// TrueCoincidenceRate returns max(0, coincidenceRate-accidentalRate).
func TrueCoincidenceRate(coincidenceRate, accidentalRate float64) float64 {
	return max(0, coincidenceRate-accidentalRate)
}
