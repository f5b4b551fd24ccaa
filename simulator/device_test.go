package simulator

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-ccu/clock"
	"github.com/arloliu/go-ccu/logger"
	"github.com/arloliu/go-ccu/reply"
	"github.com/arloliu/go-ccu/wire"
)

// newTestFramer opens a framer on a simulated unit running on a virtual clock.
func newTestFramer(t *testing.T, opts ...Option) (*wire.Framer, *Device, *clock.Virtual) {
	t.Helper()

	clk := clock.NewVirtual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	dev := New(append([]Option{WithClock(clk), WithLogger(logger.NewNop()), WithPollInterval(time.Millisecond)}, opts...)...)

	ch, err := Opener(dev, wire.WithReadTimeout(100*time.Millisecond))(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	f := wire.NewFramer(ch, wire.WithSettleDelay(0), wire.WithClock(clk), wire.WithLogger(logger.NewNop()))

	return f, dev, clk
}

func exchange(t *testing.T, f *wire.Framer, cmd wire.Command, args ...int) string {
	t.Helper()

	line, err := f.Exchange(context.Background(), cmd, args...)
	require.NoError(t, err)

	return line
}

func TestDevice_Identity(t *testing.T) {
	f, dev, _ := newTestFramer(t, WithVersion("CCU test 9"))

	assert.Equal(t, "CCU test 9", exchange(t, f, wire.CmdVersion))
	assert.Contains(t, exchange(t, f, wire.CmdHelp), "toggle repeat")
	assert.Equal(t, "LED TEST OK", exchange(t, f, wire.CmdTestLeds))
	assert.Equal(t, []string{"v", "h", "T"}, dev.Commands())
}

func TestDevice_CountsAdvanceWithClock(t *testing.T) {
	f, dev, clk := newTestFramer(t, WithRate(0, 100), WithRate(3, 2.5))

	snap, err := reply.ParseCounts(exchange(t, f, wire.CmdCounts))
	require.NoError(t, err)
	assert.Zero(t, snap.Count(0))

	clk.Advance(10 * time.Second)
	snap, err = reply.ParseCounts(exchange(t, f, wire.CmdCounts))
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), snap.Count(0))
	assert.Equal(t, uint32(25), snap.Count(3))
	assert.Zero(t, snap.Count(1))

	dev.SetRate(1, 50)
	assert.InDelta(t, 50.0, dev.Rate(1), 0)
	clk.Advance(2 * time.Second)
	snap = dev.Counts()
	assert.Equal(t, uint32(1200), snap.Count(0))
	assert.Equal(t, uint32(100), snap.Count(1))

	text := exchange(t, f, wire.CmdCountsText)
	assert.Contains(t, text, "ch0(A)=1200")
	assert.Contains(t, text, "overflow=00000000")

	assert.Equal(t, "OK", exchange(t, f, wire.CmdClear))
	assert.Zero(t, dev.Counts().Count(0))
}

func TestDevice_Saturation(t *testing.T) {
	f, _, clk := newTestFramer(t, WithRate(6, 1e7), WithRate(7, 1e5))

	clk.Advance(2 * time.Second)
	snap, err := reply.ParseCounts(exchange(t, f, wire.CmdCounts))
	require.NoError(t, err)

	assert.Equal(t, uint32(reply.MaxCount24), snap.Count(6))
	assert.Equal(t, uint32(reply.MaxCount16), snap.Count(7))
	assert.True(t, snap.Overflowed(6))
	assert.True(t, snap.Overflowed(7))
	assert.False(t, snap.Overflowed(0))

	exchange(t, f, wire.CmdClear)
	snap, err = reply.ParseCounts(exchange(t, f, wire.CmdCounts))
	require.NoError(t, err)
	assert.Zero(t, snap.Overflow)
}

func TestDevice_Settings(t *testing.T) {
	f, dev, _ := newTestFramer(t)

	assert.Equal(t, "OK", exchange(t, f, wire.CmdTrigger, 128))
	assert.Equal(t, "OK", exchange(t, f, wire.CmdDac, 255))
	assert.Equal(t, "OK", exchange(t, f, wire.CmdImpedance50))
	assert.Equal(t, "OK", exchange(t, f, wire.CmdChannel, 4, 1, 0, 1, 0))
	assert.Equal(t, "OK", exchange(t, f, wire.CmdRepeat, 250))

	s, err := reply.ParseSettings(exchange(t, f, wire.CmdSettings))
	require.NoError(t, err)
	assert.Equal(t, uint8(128), s.TriggerCode)
	assert.Equal(t, uint8(255), s.DacCode)
	assert.Equal(t, reply.Impedance50Ohm, s.Impedance)
	assert.Equal(t, 250*time.Millisecond, s.RepeatInterval)
	assert.Equal(t, reply.InputA|reply.InputC, s.Channels[4])
	assert.Equal(t, s, dev.Settings())

	assert.Equal(t, "OK", exchange(t, f, wire.CmdImpedanceHighZ))
	assert.Equal(t, reply.ImpedanceHighZ, dev.Settings().Impedance)
}

func TestDevice_RejectsBadRequests(t *testing.T) {
	f, _, _ := newTestFramer(t)

	assert.Equal(t, "ERR range", exchange(t, f, wire.CmdTrigger, 256))
	assert.Equal(t, "ERR range", exchange(t, f, wire.CmdChannel, 8, 1, 1, 0, 0))
	assert.Equal(t, "ERR range", exchange(t, f, wire.CmdChannel, 1, 2, 1, 0, 0))
	assert.Equal(t, "ERR range", exchange(t, f, wire.CmdRepeat, 10))
	assert.Contains(t, exchange(t, f, wire.Command('x')), "ERR")
}

func TestDevice_RepeatPushes(t *testing.T) {
	f, _, clk := newTestFramer(t, WithRate(0, 10))

	exchange(t, f, wire.CmdRepeat, 100)
	assert.Equal(t, "REPEAT ON", exchange(t, f, wire.CmdToggleRepeat))

	clk.Advance(350 * time.Millisecond)
	for i := 0; i < 3; i++ {
		line, err := f.ReadReply(context.Background())
		require.NoError(t, err)
		_, err = reply.ParseCounts(line)
		require.NoError(t, err, "push %d", i)
	}

	// no further push is due
	_, err := f.ReadReply(context.Background())
	require.ErrorIs(t, err, wire.ErrReadTimeout)

	assert.Equal(t, "REPEAT OFF", exchange(t, f, wire.CmdToggleRepeat))
	clk.Advance(time.Second)
	_, err = f.ReadReply(context.Background())
	require.ErrorIs(t, err, wire.ErrReadTimeout)
}

func TestDevice_PushBacklogBounded(t *testing.T) {
	f, _, clk := newTestFramer(t)

	exchange(t, f, wire.CmdRepeat, 100)
	exchange(t, f, wire.CmdToggleRepeat)
	clk.Advance(time.Hour)

	n := 0
	for {
		_, err := f.ReadReply(context.Background())
		if err != nil {
			require.ErrorIs(t, err, wire.ErrReadTimeout)
			break
		}
		n++
	}
	assert.Equal(t, maxPushBacklog, n)
}

func TestDevice_Faults(t *testing.T) {
	t.Run("drop reply", func(t *testing.T) {
		f, dev, _ := newTestFramer(t)
		dev.SetFault(FaultDropReply)

		_, err := f.Exchange(context.Background(), wire.CmdVersion)
		require.ErrorIs(t, err, wire.ErrProtocol)
		require.ErrorIs(t, err, wire.ErrReadTimeout)

		// one-shot
		assert.Equal(t, DefaultVersion, exchange(t, f, wire.CmdVersion))
	})

	t.Run("garbage reply", func(t *testing.T) {
		f, dev, _ := newTestFramer(t)
		dev.SetFault(FaultGarbageReply)

		_, err := reply.ParseCounts(exchange(t, f, wire.CmdCounts))
		require.ErrorIs(t, err, reply.ErrMalformedResponse)
	})

	t.Run("close", func(t *testing.T) {
		f, dev, _ := newTestFramer(t)
		dev.SetFault(FaultClose)

		_, err := f.Exchange(context.Background(), wire.CmdVersion)
		require.ErrorIs(t, err, wire.ErrProtocol)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)

		_, err = dev.Write([]byte("v\r"))
		require.ErrorIs(t, err, io.ErrClosedPipe)
	})
}

func TestDevice_Reopen(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	dev := New(WithClock(clk), WithLogger(logger.NewNop()), WithRate(2, 1))
	open := Opener(dev)

	ch, err := open(context.Background())
	require.NoError(t, err)

	clk.Advance(5 * time.Second)
	require.NoError(t, ch.Close())
	require.NoError(t, dev.Close()) // idempotent

	ch, err = open(context.Background())
	require.NoError(t, err)
	defer ch.Close()

	f := wire.NewFramer(ch, wire.WithSettleDelay(0), wire.WithClock(clk), wire.WithLogger(logger.NewNop()))
	snap, err := reply.ParseCounts(exchange(t, f, wire.CmdCounts))
	require.NoError(t, err)
	assert.Equal(t, uint32(5), snap.Count(2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = open(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDevice_Reset(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	dev := New(WithClock(clk), WithLogger(logger.NewNop()), WithRate(0, 100))

	clk.Advance(time.Second)
	assert.Equal(t, uint32(100), dev.Counts().Count(0))

	dev.Reset()
	assert.Zero(t, dev.Counts().Count(0))

	clk.Advance(time.Second)
	assert.Equal(t, uint32(100), dev.Counts().Count(0))
}

func TestFault_String(t *testing.T) {
	assert.Equal(t, "none", FaultNone.String())
	assert.Equal(t, "drop-reply", FaultDropReply.String())
	assert.Equal(t, "garbage-reply", FaultGarbageReply.String())
	assert.Equal(t, "close", FaultClose.String())
	assert.Equal(t, "unknown", Fault(99).String())
}
