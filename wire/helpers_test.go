package wire

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"

	"github.com/arloliu/go-ccu/clock"
	"github.com/arloliu/go-ccu/logger"
)

// newPipeChannel creates a LineChannel on the local end of net.Pipe() and
// returns the remote end for device simulation.
func newPipeChannel(t *testing.T, opts ...LineOption) (*LineChannel, net.Conn) {
	t.Helper()

	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	return NewLineChannel(local, opts...), remote
}

// newTestFramer creates a Framer over a pipe with a virtual clock.
func newTestFramer(t *testing.T) (*Framer, *bufio.Reader, net.Conn, *clock.Virtual) {
	t.Helper()

	ch, remote := newPipeChannel(t)
	clk := clock.NewVirtual(time.Unix(0, 0))
	f := NewFramer(ch, WithClock(clk), WithLogger(logger.NewNop()))

	return f, bufio.NewReader(remote), remote, clk
}

// readFrame reads one request frame (up to the terminator) from r.
func readFrame(t *testing.T, r *bufio.Reader) string {
	t.Helper()

	frame, err := r.ReadString(Terminator)
	if err != nil {
		t.Errorf("readFrame: %v", err)
	}

	return frame
}

// mustWrite writes data to w, reporting failures without stopping the test
// goroutine.
func mustWrite(t *testing.T, w io.Writer, data string) {
	t.Helper()

	if _, err := w.Write([]byte(data)); err != nil {
		t.Errorf("mustWrite: %v", err)
	}
}

// silentReader never returns data, like a serial port whose read timeout
// keeps expiring.
type silentReader struct{}

func (silentReader) Read([]byte) (int, error) {
	time.Sleep(time.Millisecond)
	return 0, nil
}

func (silentReader) Write(p []byte) (int, error) { return len(p), nil }

func (silentReader) Close() error { return nil }
