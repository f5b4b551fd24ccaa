package ccu

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-ccu/clock"
	"github.com/arloliu/go-ccu/logger"
	"github.com/arloliu/go-ccu/wire"
)

// responder returns the reply lines of a request frame. A nil result sends
// nothing.
type responder func(frame string) []string

// fakeUnit plays the device side of a net.Pipe session.
type fakeUnit struct {
	respond responder

	mu     sync.Mutex
	frames []string
	conn   net.Conn
	out    chan string
	opens  int
}

// newFakeUnit creates a fakeUnit answering with respond.
func newFakeUnit(respond responder) *fakeUnit {
	return &fakeUnit{respond: respond}
}

// opener returns an Opener that starts a fresh pipe session per call.
func (u *fakeUnit) opener(t *testing.T) Opener {
	t.Helper()

	return func(context.Context) (wire.ByteChannel, error) {
		local, remote := net.Pipe()
		t.Cleanup(func() {
			_ = local.Close()
			_ = remote.Close()
		})

		out := make(chan string, 64)
		u.mu.Lock()
		u.conn = remote
		u.out = out
		u.opens++
		u.mu.Unlock()

		go u.serve(remote, out)
		go u.write(remote, out)

		return wire.NewLineChannel(local), nil
	}
}

func (u *fakeUnit) serve(conn net.Conn, out chan<- string) {
	r := bufio.NewReader(conn)
	for {
		frame, err := r.ReadString(wire.Terminator)
		if err != nil {
			return
		}
		frame = strings.TrimSpace(frame)

		u.mu.Lock()
		u.frames = append(u.frames, frame)
		u.mu.Unlock()

		for _, line := range u.respond(frame) {
			out <- line
		}
	}
}

// write runs apart from serve so pending pushes never block request reads.
func (u *fakeUnit) write(conn net.Conn, out <-chan string) {
	for line := range out {
		if _, err := conn.Write([]byte(line + "\r\n")); err != nil {
			return
		}
	}
}

// push sends unsolicited lines, as the unit does in repeat mode.
func (u *fakeUnit) push(lines ...string) {
	u.mu.Lock()
	out := u.out
	u.mu.Unlock()

	for _, line := range lines {
		out <- line
	}
}

// hangup closes the device side of the current session.
func (u *fakeUnit) hangup() {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.conn != nil {
		_ = u.conn.Close()
	}
}

// Frames returns the request frames received so far.
func (u *fakeUnit) Frames() []string {
	u.mu.Lock()
	defer u.mu.Unlock()

	return append([]string(nil), u.frames...)
}

func (u *fakeUnit) Opens() int {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.opens
}

// newTestDevice creates a connected Device talking to a fakeUnit, with a
// virtual clock so the settle delay costs nothing.
func newTestDevice(t *testing.T, respond responder, opts ...DeviceOption) (*Device, *fakeUnit, *clock.Virtual) {
	t.Helper()

	clk := clock.NewVirtual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	unit := newFakeUnit(respond)

	defaults := []DeviceOption{WithClock(clk), WithLogger(logger.NewNop())}
	dev, err := NewDevice(unit.opener(t), append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestDevice: %v", err)
	}

	if err := dev.Connect(context.Background()); err != nil {
		t.Fatalf("newTestDevice: connect: %v", err)
	}
	t.Cleanup(func() { _ = dev.Disconnect() })

	return dev, unit, clk
}

// standardReplies answers like a healthy unit with repeat mode off.
func standardReplies(frame string) []string {
	switch frame[0] {
	case 'v':
		return []string{"CCU v2.1"}
	case 'h':
		return []string{"commands: v h p c C z t d L H s r R T"}
	case 'p':
		return []string{"128 64 1 1000 0 1 2 4 8 3 5 15 0"}
	case 'c':
		return []string{"100 200 300 400 500 600 700 800 0"}
	case 'C':
		return []string{"A=100 B=200 C=300 D=400"}
	case 'z':
		return []string{"OK"}
	case 'T':
		return []string{"LED TEST OK"}
	default:
		return []string{"OK " + frame}
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	return ctx
}
