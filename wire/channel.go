package wire

import (
	"bytes"
	"errors"
	"io"
	"sync/atomic"
	"time"
)

// Default LineChannel settings.
const (
	DefaultReadTimeout   = 2 * time.Second
	DefaultMaxLineLength = 4096

	readChunkSize = 256
)

// ByteChannel is the transport the Framer talks through.
//
// ReadLine returns the next non-empty line without its terminator. It blocks
// until a full line is available, the channel is closed or the transport
// reports a timeout.
type ByteChannel interface {
	Write(p []byte) (int, error)
	ReadLine() ([]byte, error)
	Close() error
}

// LineChannel adapts an io.ReadWriteCloser, such as a serial port or a
// simulator, into a ByteChannel.
//
// A Read returning (0, nil) is treated as a transport poll timeout, which is
// how serial ports with a read timeout behave. When no byte arrives for
// longer than the configured read timeout ReadLine fails with ErrReadTimeout.
//
// LineChannel is NOT goroutine-safe for concurrent readers; the driver
// guarantees a single reader.
type LineChannel struct {
	rwc         io.ReadWriteCloser
	buf         []byte
	readTimeout time.Duration
	maxLine     int
	closed      atomic.Bool
}

var _ ByteChannel = (*LineChannel)(nil)

// LineOption configures a LineChannel.
type LineOption func(*LineChannel)

// WithReadTimeout sets the maximum silence while waiting for a line.
// Zero disables the timeout.
func WithReadTimeout(d time.Duration) LineOption {
	return func(c *LineChannel) {
		if d >= 0 {
			c.readTimeout = d
		}
	}
}

// WithMaxLineLength bounds the length of a reply line.
func WithMaxLineLength(n int) LineOption {
	return func(c *LineChannel) {
		if n > 0 {
			c.maxLine = n
		}
	}
}

// NewLineChannel wraps rwc.
func NewLineChannel(rwc io.ReadWriteCloser, opts ...LineOption) *LineChannel {
	c := &LineChannel{
		rwc:         rwc,
		readTimeout: DefaultReadTimeout,
		maxLine:     DefaultMaxLineLength,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Write writes p to the underlying stream.
func (c *LineChannel) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrChannelClosed
	}

	return c.rwc.Write(p)
}

// ReadLine returns the next non-empty line.
func (c *LineChannel) ReadLine() ([]byte, error) {
	chunk := make([]byte, readChunkSize)
	last := time.Now()

	for {
		if line, ok := c.nextLine(); ok {
			return line, nil
		}
		if len(c.buf) > c.maxLine {
			c.buf = c.buf[:0]
			return nil, ErrLineTooLong
		}
		if c.closed.Load() {
			return nil, ErrChannelClosed
		}

		n, err := c.rwc.Read(chunk)
		if n > 0 {
			c.buf = append(c.buf, chunk[:n]...)
			last = time.Now()
			if line, ok := c.nextLine(); ok {
				return line, nil
			}
		}

		if err != nil {
			if c.closed.Load() {
				return nil, ErrChannelClosed
			}
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}

			return nil, err
		}

		if n == 0 && c.readTimeout > 0 && time.Since(last) >= c.readTimeout {
			return nil, ErrReadTimeout
		}
	}
}

// nextLine pops the next complete non-empty line from the buffer.
func (c *LineChannel) nextLine() ([]byte, bool) {
	start := 0
	for start < len(c.buf) && isTerminator(c.buf[start]) {
		start++
	}
	c.buf = c.buf[start:]

	idx := bytes.IndexAny(c.buf, "\r\n")
	if idx < 0 {
		return nil, false
	}

	line := make([]byte, idx)
	copy(line, c.buf[:idx])
	c.buf = c.buf[idx+1:]

	return line, true
}

// Close closes the underlying stream. Pending and future reads fail with
// ErrChannelClosed. Close is idempotent.
func (c *LineChannel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	return c.rwc.Close()
}

func isTerminator(b byte) bool {
	return b == '\r' || b == '\n'
}
