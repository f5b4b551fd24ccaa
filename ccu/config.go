package ccu

import (
	"fmt"
	"strings"
	"time"

	"github.com/arloliu/go-ccu/clock"
	"github.com/arloliu/go-ccu/logger"
	"github.com/arloliu/go-ccu/wire"
)

const (
	// DefaultSettleDelay is the wait between a request and its reply.
	DefaultSettleDelay = wire.DefaultSettleDelay
	// MaxSettleDelay bounds the settle delay.
	MaxSettleDelay = 5 * time.Second

	// DefaultClearAck is the reply expected from the clear command.
	DefaultClearAck = "OK"
	// DefaultSetAck is the reply expected from setter commands.
	DefaultSetAck = "OK"
	// ledTestAck is the reply expected from the LED self test.
	ledTestAck = "LED TEST"

	// maxDrainLines bounds the pushed snapshots skipped while waiting for the
	// acknowledgement of the repeat toggle.
	maxDrainLines = 1024
)

// DeviceConfig holds the configuration of a Device.
type DeviceConfig struct {
	settleDelay    time.Duration
	clearAck       string
	setAck         string
	rejectWhenBusy bool
	clk            clock.Clock
	logger         logger.Logger
	stateHandlers  []StateChangeHandler
}

// NewDeviceConfig creates a DeviceConfig with defaults, then applies opts in
// order.
func NewDeviceConfig(opts ...DeviceOption) (*DeviceConfig, error) {
	cfg := &DeviceConfig{
		settleDelay: DefaultSettleDelay,
		clearAck:    DefaultClearAck,
		setAck:      DefaultSetAck,
		clk:         clock.Real(),
		logger:      logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// --- Getters ---

// SettleDelay returns the wait between a request and its reply.
func (cfg *DeviceConfig) SettleDelay() time.Duration { return cfg.settleDelay }

// ClearAck returns the acknowledgement expected from the clear command.
func (cfg *DeviceConfig) ClearAck() string { return cfg.clearAck }

// SetAck returns the acknowledgement expected from setter commands.
func (cfg *DeviceConfig) SetAck() string { return cfg.setAck }

// RejectWhenBusy reports whether a command fails with ErrBusy instead of
// waiting for the request slot.
func (cfg *DeviceConfig) RejectWhenBusy() bool { return cfg.rejectWhenBusy }

// Clock returns the clock used for the settle delay and snapshot timestamps.
func (cfg *DeviceConfig) Clock() clock.Clock { return cfg.clk }

// Logger returns the configured logger.
func (cfg *DeviceConfig) Logger() logger.Logger { return cfg.logger }

// --- DeviceOption ---

// DeviceOption is a functional option for configuring a DeviceConfig.
type DeviceOption interface {
	apply(*DeviceConfig) error
}

type devOptFunc func(*DeviceConfig) error

func (f devOptFunc) apply(cfg *DeviceConfig) error { return f(cfg) }

// WithSettleDelay sets the wait between writing a request and reading its
// reply. Range: [0, 5s].
func WithSettleDelay(d time.Duration) DeviceOption {
	return devOptFunc(func(cfg *DeviceConfig) error {
		if d < 0 || d > MaxSettleDelay {
			return fmt.Errorf("ccu: settle delay %v out of range [0, %v]", d, MaxSettleDelay)
		}
		cfg.settleDelay = d

		return nil
	})
}

// WithClearAck sets the acknowledgement expected from the clear command. The
// match is a case-insensitive prefix match.
func WithClearAck(ack string) DeviceOption {
	return devOptFunc(func(cfg *DeviceConfig) error {
		ack = strings.TrimSpace(ack)
		if ack == "" {
			return fmt.Errorf("ccu: empty clear acknowledgement")
		}
		cfg.clearAck = ack

		return nil
	})
}

// WithSetAck sets the acknowledgement expected from the trigger, DAC,
// impedance, channel and repeat interval commands. The match is a
// case-insensitive prefix match.
func WithSetAck(ack string) DeviceOption {
	return devOptFunc(func(cfg *DeviceConfig) error {
		ack = strings.TrimSpace(ack)
		if ack == "" {
			return fmt.Errorf("ccu: empty set acknowledgement")
		}
		cfg.setAck = ack

		return nil
	})
}

// WithRejectWhenBusy makes a command fail with ErrBusy when another command
// holds the request slot, instead of waiting for it.
func WithRejectWhenBusy() DeviceOption {
	return devOptFunc(func(cfg *DeviceConfig) error {
		cfg.rejectWhenBusy = true
		return nil
	})
}

// WithClock sets the clock used for the settle delay and snapshot timestamps.
func WithClock(c clock.Clock) DeviceOption {
	return devOptFunc(func(cfg *DeviceConfig) error {
		if c == nil {
			return fmt.Errorf("ccu: nil clock")
		}
		cfg.clk = c

		return nil
	})
}

// WithLogger sets the logger of the device and its framer.
func WithLogger(l logger.Logger) DeviceOption {
	return devOptFunc(func(cfg *DeviceConfig) error {
		if l != nil {
			cfg.logger = l
		}

		return nil
	})
}

// WithStateChangeHandler registers handlers invoked on every session state
// change.
func WithStateChangeHandler(handlers ...StateChangeHandler) DeviceOption {
	return devOptFunc(func(cfg *DeviceConfig) error {
		for _, h := range handlers {
			if h != nil {
				cfg.stateHandlers = append(cfg.stateHandlers, h)
			}
		}

		return nil
	})
}
