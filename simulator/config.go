package simulator

import (
	"time"

	"github.com/arloliu/go-ccu/clock"
	"github.com/arloliu/go-ccu/logger"
	"github.com/arloliu/go-ccu/reply"
)

// Defaults of a simulated unit.
const (
	DefaultVersion        = "CCU-SIM 1.0"
	DefaultClearAck       = "OK"
	DefaultPollInterval   = 10 * time.Millisecond
	DefaultRepeatInterval = time.Second

	// maxPushBacklog bounds the pushes generated for one long clock jump.
	maxPushBacklog = 16
)

// Config holds the settings of a simulated unit.
type Config struct {
	Clock    clock.Clock
	Logger   logger.Logger
	Version  string
	ClearAck string
	// Rates holds the initial event rate of each channel in Hz.
	Rates [reply.NumChannels]float64
	// PollInterval is how long a Read waits for data before returning
	// (0, nil), like a serial port read timeout.
	PollInterval time.Duration
}

// Option configures a simulated unit.
type Option func(*Config)

// WithClock sets the clock the counters advance on.
func WithClock(c clock.Clock) Option {
	return func(cfg *Config) {
		if c != nil {
			cfg.Clock = c
		}
	}
}

// WithLogger sets the simulator logger.
func WithLogger(l logger.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// WithVersion sets the firmware version string.
func WithVersion(v string) Option {
	return func(cfg *Config) { cfg.Version = v }
}

// WithClearAck sets the reply to the clear command.
func WithClearAck(ack string) Option {
	return func(cfg *Config) { cfg.ClearAck = ack }
}

// WithRate sets the initial rate of channel ch in Hz.
func WithRate(ch int, hz float64) Option {
	return func(cfg *Config) {
		if ch >= 0 && ch < reply.NumChannels && hz >= 0 {
			cfg.Rates[ch] = hz
		}
	}
}

// WithPollInterval sets how long a Read waits for data.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.PollInterval = d
		}
	}
}

func newConfig(opts ...Option) Config {
	cfg := Config{
		Clock:        clock.Real(),
		Logger:       logger.GetLogger(),
		Version:      DefaultVersion,
		ClearAck:     DefaultClearAck,
		PollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}
