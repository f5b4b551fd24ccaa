package simulator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-ccu/internal/queue"
	"github.com/arloliu/go-ccu/logger"
	"github.com/arloliu/go-ccu/reply"
	"github.com/arloliu/go-ccu/validate"
	"github.com/arloliu/go-ccu/wire"
)

// Device is a simulated counting unit. It is safe for concurrent use.
type Device struct {
	cfg    Config
	logger logger.Logger

	// rates is read on every clock advance and written by SetRate.
	rates *xsync.MapOf[int, float64]

	mu         sync.Mutex
	acc        [reply.NumChannels]float64
	overflow   uint8
	lastUpdate time.Time
	settings   reply.Settings
	lastPush   time.Time
	fault      Fault
	commands   []string

	in      []byte
	pending []byte
	out     *queue.Queue[string]
	notify  chan struct{}
	closed  bool
	done    chan struct{}
}

var _ io.ReadWriteCloser = (*Device)(nil)

// New creates a simulated unit with counters at zero.
func New(opts ...Option) *Device {
	cfg := newConfig(opts...)

	d := &Device{
		cfg:        cfg,
		logger:     cfg.Logger.With("component", "simulator"),
		rates:      xsync.NewMapOf[int, float64](),
		lastUpdate: cfg.Clock.Now(),
		out:        queue.New[string](8),
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	d.settings.RepeatInterval = DefaultRepeatInterval
	d.settings.Channels = [reply.NumChannels]reply.InputMask{
		reply.InputA,
		reply.InputB,
		reply.InputC,
		reply.InputD,
		reply.InputA | reply.InputB,
		reply.InputA | reply.InputC,
		reply.InputB | reply.InputC,
		reply.AllInputs,
	}
	for ch, hz := range cfg.Rates {
		d.rates.Store(ch, hz)
	}

	return d
}

// Opener returns a function opening a LineChannel on d, usable as a
// ccu.Opener. Opening a closed device reconnects it with its counters intact.
func Opener(d *Device, opts ...wire.LineOption) func(context.Context) (wire.ByteChannel, error) {
	return func(ctx context.Context) (wire.ByteChannel, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d.reopen()

		return wire.NewLineChannel(d, opts...), nil
	}
}

// SetRate sets the event rate of channel ch in Hz.
func (d *Device) SetRate(ch int, hz float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.advance()
	d.rates.Store(ch, max(hz, 0))
}

// Rate returns the event rate of channel ch in Hz.
func (d *Device) Rate(ch int) float64 {
	hz, _ := d.rates.Load(ch)
	return hz
}

// Reset zeroes every counter without a request, like a power glitch. A
// measurement spanning a Reset sees its counters go backwards.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.advance()
	d.acc = [reply.NumChannels]float64{}
	d.overflow = 0
}

// SetFault arms a fault for the next request.
func (d *Device) SetFault(f Fault) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.fault = f
}

// Counts returns the current counters.
func (d *Device) Counts() reply.CountSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.advance()

	return d.snapshot()
}

// Settings returns the current settings record.
func (d *Device) Settings() reply.Settings {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.settings
}

// Commands returns the request lines received so far.
func (d *Device) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.commands...)
}

// Write accepts request bytes. Every complete request is answered
// immediately; the reply is ready for the next Read.
func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, io.ErrClosedPipe
	}

	d.in = append(d.in, p...)
	for {
		idx := bytes.IndexAny(d.in, "\r\n")
		if idx < 0 {
			break
		}
		line := strings.TrimSpace(string(d.in[:idx]))
		d.in = d.in[idx+1:]

		if line != "" {
			d.handle(line)
		}
		if d.closed {
			break
		}
	}
	d.signal()

	return len(p), nil
}

// Read returns pending reply bytes. When nothing is pending for the poll
// interval it returns (0, nil), like a serial port read timeout. After Close
// it returns io.EOF.
func (d *Device) Read(p []byte) (int, error) {
	timer := time.NewTimer(d.cfg.PollInterval)
	defer timer.Stop()

	for {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return 0, io.EOF
		}
		d.pushDue()
		if len(d.pending) == 0 {
			if line, ok := d.out.Dequeue(); ok {
				d.pending = append(d.pending, line...)
				d.pending = append(d.pending, '\r', '\n')
			}
		}
		if len(d.pending) > 0 {
			n := copy(p, d.pending)
			d.pending = d.pending[n:]
			d.mu.Unlock()

			return n, nil
		}
		done := d.done
		d.mu.Unlock()

		select {
		case <-d.notify:
		case <-done:
		case <-timer.C:
			return 0, nil
		}
	}
}

// Close closes the link. Pending replies are discarded.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closeLocked()

	return nil
}

func (d *Device) closeLocked() {
	if d.closed {
		return
	}
	d.closed = true
	close(d.done)
}

func (d *Device) reopen() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.closed {
		return
	}
	d.closed = false
	d.done = make(chan struct{})
	d.in = d.in[:0]
	d.pending = d.pending[:0]
	d.out.Reset()
	// the unit stops pushing when the link drops
	d.settings.RepeatEnabled = false
}

func (d *Device) signal() {
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

func (d *Device) reply(lines ...string) {
	for _, line := range lines {
		d.out.Enqueue(line)
	}
}

// advance integrates the rates up to now.
func (d *Device) advance() {
	now := d.cfg.Clock.Now()
	dt := now.Sub(d.lastUpdate).Seconds()
	d.lastUpdate = now
	if dt <= 0 {
		return
	}

	for ch := range d.acc {
		hz, _ := d.rates.Load(ch)
		d.acc[ch] += hz * dt

		limit := float64(reply.MaxCount(ch))
		if d.acc[ch] >= limit {
			d.acc[ch] = limit
			d.overflow |= 1 << uint(ch)
		}
	}
}

func (d *Device) snapshot() reply.CountSnapshot {
	var snap reply.CountSnapshot
	for ch, v := range d.acc {
		snap.Counts[ch] = uint32(math.Floor(v))
	}
	snap.Overflow = d.overflow

	return snap
}

// pushDue queues the snapshots repeat mode owes since the last push.
func (d *Device) pushDue() {
	if !d.settings.RepeatEnabled {
		return
	}

	interval := max(d.settings.RepeatInterval, validate.MinRepeatInterval*time.Millisecond)
	now := d.cfg.Clock.Now()
	for n := 0; now.Sub(d.lastPush) >= interval; n++ {
		if n == maxPushBacklog {
			d.lastPush = now
			break
		}
		d.lastPush = d.lastPush.Add(interval)
		d.advance()
		d.reply(d.snapshot().String())
	}
}

// handle answers one request line.
func (d *Device) handle(line string) {
	d.commands = append(d.commands, line)
	d.logger.Debug("simulator: rx", "line", line)

	fault := d.fault
	d.fault = FaultNone
	switch fault {
	case FaultDropReply:
		return
	case FaultGarbageReply:
		d.reply(garbageReply)
		return
	case FaultClose:
		d.closeLocked()
		return
	}

	fields := strings.Fields(line)
	args := make([]int, 0, len(fields)-1)
	for _, f := range fields[1:] {
		v, err := strconv.Atoi(f)
		if err != nil {
			d.reply("ERR bad argument " + f)
			return
		}
		args = append(args, v)
	}

	d.advance()

	cmd := wire.Command(fields[0][0])
	if len(fields[0]) != 1 || len(args) != cmd.NumArgs() {
		d.reply("ERR " + line)
		return
	}

	switch cmd {
	case wire.CmdVersion:
		d.reply(d.cfg.Version)
	case wire.CmdHelp:
		d.reply("v version, h help, p settings, c counts, C report, z clear, t/d <0-255> trigger/dac, L/H impedance, s <ch> <a> <b> <c> <d> inputs, r <ms> repeat, R toggle repeat, T led test")
	case wire.CmdSettings:
		d.reply(d.settings.String())
	case wire.CmdCounts:
		d.reply(d.snapshot().String())
	case wire.CmdCountsText:
		d.reply(d.report())
	case wire.CmdClear:
		d.acc = [reply.NumChannels]float64{}
		d.overflow = 0
		d.reply(d.cfg.ClearAck)
	case wire.CmdTrigger, wire.CmdDac:
		if validate.Byte(args[0]) != nil {
			d.reply("ERR range")
			return
		}
		if cmd == wire.CmdTrigger {
			d.settings.TriggerCode = uint8(args[0])
		} else {
			d.settings.DacCode = uint8(args[0])
		}
		d.reply("OK")
	case wire.CmdImpedance50:
		d.settings.Impedance = reply.Impedance50Ohm
		d.reply("OK")
	case wire.CmdImpedanceHighZ:
		d.settings.Impedance = reply.ImpedanceHighZ
		d.reply("OK")
	case wire.CmdChannel:
		d.setChannel(args)
	case wire.CmdRepeat:
		if validate.RepeatInterval(args[0]) != nil {
			d.reply("ERR range")
			return
		}
		d.settings.RepeatInterval = time.Duration(args[0]) * time.Millisecond
		d.reply("OK")
	case wire.CmdToggleRepeat:
		d.settings.RepeatEnabled = !d.settings.RepeatEnabled
		if d.settings.RepeatEnabled {
			d.lastPush = d.cfg.Clock.Now()
			d.reply("REPEAT ON")
		} else {
			d.reply("REPEAT OFF")
		}
	case wire.CmdTestLeds:
		d.reply("LED TEST OK")
	default:
		d.reply("ERR unknown command " + fields[0])
	}
}

func (d *Device) setChannel(args []int) {
	if validate.Channel(args[0]) != nil {
		d.reply("ERR range")
		return
	}

	var m reply.InputMask
	for i, bit := range args[1:] {
		switch bit {
		case 0:
		case 1:
			m |= 1 << uint(i)
		default:
			d.reply("ERR range")
			return
		}
	}
	d.settings.Channels[args[0]] = m
	d.reply("OK")
}

func (d *Device) report() string {
	var sb strings.Builder
	snap := d.snapshot()
	for ch, c := range snap.Counts {
		fmt.Fprintf(&sb, "ch%d(%s)=%d ", ch, d.settings.Channels[ch], c)
	}
	fmt.Fprintf(&sb, "overflow=%08b", snap.Overflow)

	return sb.String()
}
