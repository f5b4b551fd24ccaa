package wire

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arloliu/go-ccu/clock"
	"github.com/arloliu/go-ccu/logger"
)

// DefaultSettleDelay is the fixed wait between writing a request and reading
// its reply.
const DefaultSettleDelay = 50 * time.Millisecond

var (
	// ErrProtocol wraps every failure of a request/reply exchange: write
	// errors, read errors, timeouts, a closed channel, or an exchange
	// abandoned half way. After ErrProtocol the stream state is unknown.
	ErrProtocol = errors.New("wire: protocol error")

	// ErrReadTimeout indicates that no reply byte arrived in time.
	ErrReadTimeout = errors.New("wire: read timeout")

	// ErrChannelClosed indicates that the channel was closed.
	ErrChannelClosed = errors.New("wire: channel closed")

	// ErrLineTooLong indicates a reply exceeding the maximum line length.
	ErrLineTooLong = errors.New("wire: reply line too long")
)

// Framer encodes requests and reads replies on a ByteChannel.
//
// Framer is NOT goroutine-safe and tracks no device semantics. The caller
// must ensure that only one exchange is active at a time.
type Framer struct {
	ch     ByteChannel
	settle time.Duration
	clk    clock.Clock
	logger logger.Logger
}

// FramerOption configures a Framer.
type FramerOption func(*Framer)

// WithSettleDelay sets the wait between request and reply. Negative values
// are ignored.
func WithSettleDelay(d time.Duration) FramerOption {
	return func(f *Framer) {
		if d >= 0 {
			f.settle = d
		}
	}
}

// WithClock sets the clock used for the settle delay.
func WithClock(c clock.Clock) FramerOption {
	return func(f *Framer) {
		if c != nil {
			f.clk = c
		}
	}
}

// WithLogger sets the logger used for wire traces.
func WithLogger(l logger.Logger) FramerOption {
	return func(f *Framer) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFramer creates a Framer on ch.
func NewFramer(ch ByteChannel, opts ...FramerOption) *Framer {
	f := &Framer{
		ch:     ch,
		settle: DefaultSettleDelay,
		clk:    clock.Real(),
		logger: logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// SettleDelay returns the configured settle delay.
func (f *Framer) SettleDelay() time.Duration { return f.settle }

// Exchange sends cmd with args, waits the settle delay and returns the reply
// line with surrounding whitespace trimmed.
func (f *Framer) Exchange(ctx context.Context, cmd Command, args ...int) (string, error) {
	if err := f.Send(ctx, cmd, args...); err != nil {
		return "", err
	}

	if err := f.clk.Sleep(ctx, f.settle); err != nil {
		return "", fmt.Errorf("%w: %s abandoned before reply: %w", ErrProtocol, cmd, err)
	}

	line, err := f.ReadReply(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", cmd, err)
	}

	return line, nil
}

// Send writes the request frame for cmd without reading a reply.
func (f *Framer) Send(ctx context.Context, cmd Command, args ...int) error {
	frame, err := Encode(cmd, args...)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	f.logger.Debug("wire: tx", "cmd", cmd.String(), "frame", strings.TrimSpace(string(frame)))

	if _, err := f.ch.Write(frame); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrProtocol, cmd, err)
	}

	return nil
}

type readResult struct {
	line []byte
	err  error
}

// ReadReply reads one reply line.
//
// If ctx ends first ReadReply returns immediately; the blocked read finishes
// once the channel is closed, which the owner of the channel must then do.
func (f *Framer) ReadReply(ctx context.Context) (string, error) {
	done := make(chan readResult, 1)
	go func() {
		line, err := f.ch.ReadLine()
		done <- readResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: waiting for reply: %w", ErrProtocol, ctx.Err())

	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("%w: read: %w", ErrProtocol, res.err)
		}

		line := strings.TrimSpace(string(res.line))
		f.logger.Debug("wire: rx", "line", line)

		return line, nil
	}
}
