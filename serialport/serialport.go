package serialport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/arloliu/go-ccu/wire"
)

// Default port settings.
const (
	DefaultBaud        = 115200
	DefaultReadTimeout = time.Second
	// DefaultLineTimeout is the maximum silence while waiting for a reply line.
	DefaultLineTimeout = wire.DefaultReadTimeout
)

// ErrInvalidConfig is returned for an unusable Config.
var ErrInvalidConfig = errors.New("serialport: invalid config")

// Config describes a serial port connection.
type Config struct {
	// Port is the device name, e.g. "/dev/ttyACM0" or "COM3".
	Port string
	// Baud is the baud rate, DefaultBaud when zero.
	Baud int
	// ReadTimeout is the per-read poll timeout of the port, DefaultReadTimeout
	// when zero.
	ReadTimeout time.Duration
	// LineTimeout bounds the wait for a complete reply line,
	// DefaultLineTimeout when zero.
	LineTimeout time.Duration
}

// withDefaults fills zero fields and validates the result.
func (c Config) withDefaults() (Config, error) {
	c.Port = strings.TrimSpace(c.Port)
	if c.Port == "" {
		return c, fmt.Errorf("%w: empty port name", ErrInvalidConfig)
	}
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
	if c.Baud < 0 {
		return c, fmt.Errorf("%w: baud rate %d", ErrInvalidConfig, c.Baud)
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.ReadTimeout < 0 {
		return c, fmt.Errorf("%w: read timeout %s", ErrInvalidConfig, c.ReadTimeout)
	}
	if c.LineTimeout == 0 {
		c.LineTimeout = DefaultLineTimeout
	}
	if c.LineTimeout < 0 {
		return c, fmt.Errorf("%w: line timeout %s", ErrInvalidConfig, c.LineTimeout)
	}

	return c, nil
}

// port is the subset of serial.Port the channel needs.
type port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

var openPort = func(name string, mode *serial.Mode) (port, error) {
	return serial.Open(name, mode)
}

// Open opens the port described by cfg and returns it as a line channel.
// Stale input left in the port buffer is discarded.
func Open(ctx context.Context, cfg Config) (*wire.LineChannel, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := openPort(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", cfg.Port, err)
	}
	if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("serialport: set read timeout: %w", err)
	}
	if err := p.ResetInputBuffer(); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("serialport: reset input buffer: %w", err)
	}

	return wire.NewLineChannel(p, wire.WithReadTimeout(cfg.LineTimeout)), nil
}

// Opener returns a function opening cfg on every call, assignable to
// ccu.Opener.
func Opener(cfg Config) func(context.Context) (wire.ByteChannel, error) {
	return func(ctx context.Context) (wire.ByteChannel, error) {
		ch, err := Open(ctx, cfg)
		if err != nil {
			return nil, err
		}

		return ch, nil
	}
}
