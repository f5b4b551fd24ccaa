package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/arloliu/go-ccu/calib"
	"github.com/arloliu/go-ccu/ccu"
	"github.com/arloliu/go-ccu/logger"
	"github.com/arloliu/go-ccu/measure"
	"github.com/arloliu/go-ccu/reply"
	"github.com/arloliu/go-ccu/serialport"
	"github.com/arloliu/go-ccu/simulator"
	"github.com/arloliu/go-ccu/wire"
)

const defaultSettle = ccu.DefaultSettleDelay

// simulatedRates are the channel rates of the --simulate unit in Hz, with
// the default masks A, B, C, D, A+B, A+C, B+C and A+B+C+D.
var simulatedRates = [reply.NumChannels]float64{1000, 1200, 800, 500, 40, 25, 30, 2}

// errTransport marks failures to reach the unit at all.
var errTransport = errors.New("transport unavailable")

type globalOptions struct {
	port       string
	baud       int
	simulate   bool
	settle     time.Duration
	logLevel   string
	consoleLog bool
	profiles   string
}

// app holds the state shared by the commands of one process or shell
// session. The device is opened on first use and kept until close.
type app struct {
	opts   globalOptions
	logOut io.Writer
	log    logger.Logger
	ready  bool

	dev   *ccu.Device
	eng   *measure.Engine
	sim   *simulator.Device
	store calib.Store
}

func newApp(logOut io.Writer) *app {
	return &app{logOut: logOut, log: logger.NewNop()}
}

// setup configures logging from the global flags. It runs once.
func (a *app) setup() error {
	if a.ready {
		return nil
	}

	level, err := logger.ParseLevel(a.opts.logLevel)
	if err != nil {
		return err
	}
	a.log = logger.NewSlogWithOptions(logger.Options{
		Level:   level,
		Console: a.opts.consoleLog,
		Output:  a.logOut,
	})
	logger.SetLogger(a.log)
	a.ready = true

	return nil
}

func (a *app) opener() (ccu.Opener, error) {
	if a.opts.simulate {
		opts := []simulator.Option{simulator.WithLogger(a.log)}
		for ch, hz := range simulatedRates {
			opts = append(opts, simulator.WithRate(ch, hz))
		}
		a.sim = simulator.New(opts...)

		return simulator.Opener(a.sim), nil
	}

	if a.opts.port == "" {
		return nil, fmt.Errorf("%w: no --port given, use --simulate for a simulated unit", errTransport)
	}

	return serialport.Opener(serialport.Config{Port: a.opts.port, Baud: a.opts.baud}), nil
}

// device returns the connected device, opening it when needed.
func (a *app) device(ctx context.Context) (*ccu.Device, error) {
	if a.dev == nil {
		open, err := a.opener()
		if err != nil {
			return nil, err
		}
		dev, err := ccu.NewDevice(open,
			ccu.WithSettleDelay(a.opts.settle),
			ccu.WithLogger(a.log),
			ccu.WithStateChangeHandler(func(_ *ccu.Device, prev, next ccu.DeviceState) {
				a.log.Debug("device state changed", "prev", prev, "next", next)
			}),
		)
		if err != nil {
			return nil, err
		}
		a.dev = dev
	}

	if err := a.dev.Connect(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", errTransport, err)
	}

	return a.dev, nil
}

// engine returns a measurement engine on the connected device.
func (a *app) engine(ctx context.Context) (*measure.Engine, error) {
	dev, err := a.device(ctx)
	if err != nil {
		return nil, err
	}
	if a.eng != nil {
		return a.eng, nil
	}

	eng, err := measure.NewEngine(dev,
		measure.WithLogger(a.log),
		measure.WithPhaseHandler(func(ev measure.PhaseEvent) {
			a.log.Debug("measurement phase", "kind", ev.Kind, "phase", ev.Phase, "error", ev.Err)
		}),
	)
	if err != nil {
		return nil, err
	}
	a.eng = eng

	return eng, nil
}

// profiles returns the calibration profile store.
func (a *app) profiles() (calib.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	dir := a.opts.profiles
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locate profile directory: %w", err)
		}
		dir = filepath.Join(base, "ccu", "profiles")
	}
	a.store = calib.NewFileStore(dir)

	return a.store, nil
}

// profile loads the named profile. An empty name yields a nil profile, which
// calibrates as the identity.
func (a *app) profile(ctx context.Context, name string) (*calib.Profile, error) {
	if name == "" {
		return nil, nil
	}

	store, err := a.profiles()
	if err != nil {
		return nil, err
	}

	return store.Load(ctx, name)
}

func (a *app) close() {
	if a.dev == nil {
		return
	}
	if err := a.dev.Disconnect(); err != nil {
		a.log.Warn("disconnect failed", "error", err)
	}
}

// describeError prefixes err with the class of failure.
func describeError(err error) string {
	switch {
	case errors.Is(err, errTransport), errors.Is(err, ccu.ErrNotConnected):
		return "unit not reachable: " + err.Error()
	case errors.Is(err, wire.ErrProtocol),
		errors.Is(err, reply.ErrMalformedResponse),
		errors.Is(err, ccu.ErrUnexpectedAck):
		return "protocol violation: " + err.Error()
	case errors.Is(err, measure.ErrCounterAnomaly):
		return "measurement anomaly: " + err.Error()
	default:
		return err.Error()
	}
}
