package measure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-ccu/clock"
	"github.com/arloliu/go-ccu/logger"
	"github.com/arloliu/go-ccu/reply"
	"github.com/arloliu/go-ccu/validate"
)

// CountReader reads counter snapshots. *ccu.Device implements it.
type CountReader interface {
	GetCounts(ctx context.Context) (reply.CountSnapshot, error)
}

// Engine runs timed measurements against a CountReader.
//
// Engine holds no per-measurement state and is safe for concurrent use; calls
// on a reader that serializes its commands, such as a ccu.Device, run one
// snapshot at a time.
type Engine struct {
	reader   CountReader
	clk      clock.Clock
	logger   logger.Logger
	handlers []PhaseHandler
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock sets the clock the sampling wait runs on.
func WithClock(c clock.Clock) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.clk = c
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPhaseHandler registers handlers observing phase transitions.
func WithPhaseHandler(handlers ...PhaseHandler) EngineOption {
	return func(e *Engine) {
		for _, h := range handlers {
			if h != nil {
				e.handlers = append(e.handlers, h)
			}
		}
	}
}

// NewEngine creates an Engine reading snapshots from reader.
func NewEngine(reader CountReader, opts ...EngineOption) (*Engine, error) {
	if reader == nil {
		return nil, errors.New("measure: nil count reader")
	}

	e := &Engine{
		reader: reader,
		clk:    clock.Real(),
		logger: logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "measure")

	return e, nil
}

// CoincidenceOptions configures MeasureCoincidence.
type CoincidenceOptions struct {
	// Duration is the sampling time in seconds.
	Duration float64
	// SinglesA and SinglesB are the channels counting each detector alone.
	SinglesA int
	SinglesB int
	// Coincidence is the channel counting A AND B.
	Coincidence int
	// Window is the coincidence time window in seconds.
	Window float64
}

func (o CoincidenceOptions) validate() error {
	for _, ch := range []int{o.SinglesA, o.SinglesB, o.Coincidence} {
		if err := validate.Channel(ch); err != nil {
			return err
		}
	}
	if err := validate.Duration(o.Duration); err != nil {
		return err
	}

	return validate.Window(o.Window)
}

// MeasureRate measures the count rate of channel ch over duration seconds.
//
// A counter that went backwards fails with a *CounterAnomalyError. When ctx
// ends during the sampling wait the measurement fails with ctx.Err() and the
// second snapshot is never taken.
func (e *Engine) MeasureRate(ctx context.Context, ch int, duration float64) (RateMeasurement, error) {
	e.emit(KindRate, PhaseArmed, nil)

	if err := validate.Channel(ch); err != nil {
		return RateMeasurement{}, e.failed(KindRate, err)
	}
	if err := validate.Duration(duration); err != nil {
		return RateMeasurement{}, e.failed(KindRate, err)
	}

	t0, t1, err := e.sample(ctx, KindRate, duration)
	if err != nil {
		return RateMeasurement{}, e.failed(KindRate, err)
	}

	m, err := rateOf(t0, t1, ch, duration)
	if err != nil {
		return RateMeasurement{}, e.failed(KindRate, err)
	}

	e.emit(KindRate, PhaseComplete, nil)
	e.logger.Info("measure: rate complete", "channel", ch, "counts", m.Counts, "rate", m.Rate, "elapsed", m.Elapsed)

	return m, nil
}

// MeasureCoincidence measures two singles channels and their coincidence
// channel over one sampling window and subtracts the accidental rate.
func (e *Engine) MeasureCoincidence(ctx context.Context, opts CoincidenceOptions) (CoincidenceMeasurement, error) {
	e.emit(KindCoincidence, PhaseArmed, nil)

	if err := opts.validate(); err != nil {
		return CoincidenceMeasurement{}, e.failed(KindCoincidence, err)
	}

	t0, t1, err := e.sample(ctx, KindCoincidence, opts.Duration)
	if err != nil {
		return CoincidenceMeasurement{}, e.failed(KindCoincidence, err)
	}

	var rates [3]RateMeasurement
	for i, ch := range []int{opts.SinglesA, opts.SinglesB, opts.Coincidence} {
		rates[i], err = rateOf(t0, t1, ch, opts.Duration)
		if err != nil {
			return CoincidenceMeasurement{}, e.failed(KindCoincidence, err)
		}
	}

	m := NewCoincidenceMeasurement(rates[0], rates[1], rates[2], opts.Window)

	e.emit(KindCoincidence, PhaseComplete, nil)
	e.logger.Info("measure: coincidence complete",
		"rate_a", m.SinglesA.Rate,
		"rate_b", m.SinglesB.Rate,
		"coincidence_rate", m.Coincidence.Rate,
		"accidental_rate", m.AccidentalRate,
		"true_rate", m.TrueCoincidenceRate,
	)

	return m, nil
}

// sample takes the snapshot pair of one sampling window.
func (e *Engine) sample(ctx context.Context, kind Kind, duration float64) (reply.CountSnapshot, reply.CountSnapshot, error) {
	e.emit(kind, PhaseSampling, nil)

	t0, err := e.snapshot(ctx)
	if err != nil {
		return t0, t0, fmt.Errorf("measure: first snapshot: %w", err)
	}

	if err := e.clk.Sleep(ctx, clock.Seconds(duration)); err != nil {
		return t0, t0, fmt.Errorf("measure: sampling aborted: %w", err)
	}

	t1, err := e.snapshot(ctx)
	if err != nil {
		return t0, t1, fmt.Errorf("measure: second snapshot: %w", err)
	}

	return t0, t1, nil
}

func (e *Engine) snapshot(ctx context.Context) (reply.CountSnapshot, error) {
	snap, err := e.reader.GetCounts(ctx)
	if err != nil {
		return reply.CountSnapshot{}, err
	}
	if snap.Time.IsZero() {
		snap = snap.WithTime(e.clk.Now())
	}

	return snap, nil
}

func rateOf(t0, t1 reply.CountSnapshot, ch int, duration float64) (RateMeasurement, error) {
	delta := t0.Delta(t1, ch)
	if delta < 0 {
		return RateMeasurement{}, &CounterAnomalyError{Channel: ch, Before: t0.Count(ch), After: t1.Count(ch)}
	}

	m := NewRateMeasurement(ch, uint64(delta), duration)
	m.Elapsed = max(t1.Time.Sub(t0.Time), time.Duration(0))
	m.Saturated = t1.Overflowed(ch)

	return m, nil
}

func (e *Engine) failed(kind Kind, err error) error {
	if errors.Is(err, ErrCounterAnomaly) {
		e.logger.Warn("measure: counter anomaly, possible counter reset", "kind", string(kind), "error", err)
	} else {
		e.logger.Debug("measure: failed", "kind", string(kind), "error", err)
	}
	e.emit(kind, PhaseFailed, err)

	return err
}

func (e *Engine) emit(kind Kind, phase Phase, err error) {
	ev := PhaseEvent{Kind: kind, Phase: phase, Err: err}
	for _, h := range e.handlers {
		h(ev)
	}
}
