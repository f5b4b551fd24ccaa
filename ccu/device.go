package ccu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/arloliu/go-ccu/logger"
	"github.com/arloliu/go-ccu/wire"
)

// Opener opens the ByteChannel of a new session. serialport.Opener and
// simulator.Opener return Openers.
type Opener func(ctx context.Context) (wire.ByteChannel, error)

// Device is the command driver of one counting unit. It is safe for
// concurrent use; commands are serialized through a single request slot.
type Device struct {
	cfg    *DeviceConfig
	opener Opener
	logger logger.Logger

	state    atomicState
	slot     *semaphore.Weighted
	inflight atomic.Bool
	repeatOn atomic.Bool

	mu       sync.Mutex
	sess     *session
	handlers []StateChangeHandler

	metrics DeviceMetrics
}

type session struct {
	ch        wire.ByteChannel
	framer    *wire.Framer
	closeOnce sync.Once
	closeErr  error
}

func (s *session) close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.ch.Close()
	})

	return s.closeErr
}

// NewDevice creates a disconnected Device that opens its channel through
// opener.
func NewDevice(opener Opener, opts ...DeviceOption) (*Device, error) {
	if opener == nil {
		return nil, errors.New("ccu: nil opener")
	}

	cfg, err := NewDeviceConfig(opts...)
	if err != nil {
		return nil, err
	}

	d := &Device{
		cfg:      cfg,
		opener:   opener,
		logger:   cfg.logger.With("component", "ccu"),
		slot:     semaphore.NewWeighted(1),
		handlers: append([]StateChangeHandler(nil), cfg.stateHandlers...),
	}

	return d, nil
}

// Config returns the device configuration.
func (d *Device) Config() *DeviceConfig { return d.cfg }

// Metrics returns the device metrics.
func (d *Device) Metrics() *DeviceMetrics { return &d.metrics }

// State returns the current session state.
func (d *Device) State() DeviceState { return d.state.Get() }

// IsConnected reports whether a session is open.
func (d *Device) IsConnected() bool { return d.state.Get() == StateConnected }

// Busy reports whether a command currently holds the request slot.
func (d *Device) Busy() bool { return d.inflight.Load() }

// RepeatActive reports whether the unit was switched into repeat mode.
func (d *Device) RepeatActive() bool { return d.repeatOn.Load() }

// AddStateChangeHandler registers handlers invoked on session state changes.
func (d *Device) AddStateChangeHandler(handlers ...StateChangeHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, h := range handlers {
		if h != nil {
			d.handlers = append(d.handlers, h)
		}
	}
}

// Connect opens a session. It is a no-op on a connected device.
func (d *Device) Connect(ctx context.Context) error {
	prev, ok := d.state.toConnecting()
	if !ok {
		if prev == StateConnected {
			return nil
		}

		return fmt.Errorf("%w: device is %s", ErrBusy, prev)
	}
	d.notifyState(prev, StateConnecting)

	ch, err := d.opener(ctx)
	if err != nil {
		if prev, ok := d.state.toDisconnected(); ok {
			d.notifyState(prev, StateDisconnected)
		}

		return fmt.Errorf("ccu: open channel: %w", err)
	}

	sess := &session{
		ch: ch,
		framer: wire.NewFramer(ch,
			wire.WithSettleDelay(d.cfg.settleDelay),
			wire.WithClock(d.cfg.clk),
			wire.WithLogger(d.logger),
		),
	}

	d.mu.Lock()
	d.sess = sess
	d.mu.Unlock()
	d.repeatOn.Store(false)

	prev, ok = d.state.toConnected()
	if !ok {
		// Disconnect ran while the channel was opening
		d.release(sess)
		return fmt.Errorf("%w: disconnected while connecting", ErrNotConnected)
	}
	d.notifyState(prev, StateConnected)
	d.logger.Info("ccu: connected", "settle_delay", d.cfg.settleDelay)

	return nil
}

// Disconnect closes the session. A command still waiting for its reply fails
// with wire.ErrProtocol because its channel is closed. It is a no-op on a
// disconnected device.
func (d *Device) Disconnect() error {
	prev, ok := d.state.toDisconnecting()
	if !ok {
		return nil
	}
	d.notifyState(prev, StateDisconnecting)

	d.mu.Lock()
	sess := d.sess
	d.sess = nil
	d.mu.Unlock()

	var err error
	if sess != nil {
		err = sess.close()
	}
	d.repeatOn.Store(false)

	if prev, ok := d.state.toDisconnected(); ok {
		d.notifyState(prev, StateDisconnected)
	}
	d.logger.Info("ccu: disconnected")

	if err != nil {
		return fmt.Errorf("ccu: close channel: %w", err)
	}

	return nil
}

// release detaches sess from the device, if it is still current, and closes
// its channel. It reports whether sess was current.
func (d *Device) release(sess *session) bool {
	d.mu.Lock()
	owned := d.sess == sess
	if owned {
		d.sess = nil
	}
	d.mu.Unlock()

	_ = sess.close()

	return owned
}

// teardown ends a session after a framing failure.
func (d *Device) teardown(sess *session, cause error) {
	if !d.release(sess) {
		return
	}

	d.metrics.incTeardownCount()
	d.repeatOn.Store(false)
	d.logger.Warn("ccu: session torn down", "error", cause)

	if prev, ok := d.state.toDisconnecting(); ok {
		d.notifyState(prev, StateDisconnecting)
		if prev, ok := d.state.toDisconnected(); ok {
			d.notifyState(prev, StateDisconnected)
		}
	}
}

func (d *Device) notifyState(prev, next DeviceState) {
	d.mu.Lock()
	handlers := d.handlers
	d.mu.Unlock()

	d.logger.Debug("ccu: state changed", "prev", prev.String(), "next", next.String())
	for _, h := range handlers {
		h(d, prev, next)
	}
}

// acquire takes the request slot and returns the current session. The caller
// must call done when the command finished.
func (d *Device) acquire(ctx context.Context) (*session, error) {
	if !d.IsConnected() {
		return nil, ErrNotConnected
	}

	if d.cfg.rejectWhenBusy {
		if !d.slot.TryAcquire(1) {
			d.metrics.incBusyCount()
			return nil, ErrBusy
		}
	} else if err := d.slot.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	d.mu.Lock()
	sess := d.sess
	d.mu.Unlock()

	if sess == nil {
		d.slot.Release(1)
		return nil, ErrNotConnected
	}

	d.inflight.Store(true)
	d.metrics.incInflightCount()

	return sess, nil
}

func (d *Device) done() {
	d.metrics.decInflightCount()
	d.inflight.Store(false)
	d.slot.Release(1)
}

// exchange runs one request/reply round trip of a request/reply command.
func (d *Device) exchange(ctx context.Context, cmd wire.Command, args ...int) (string, error) {
	sess, err := d.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer d.done()

	if d.repeatOn.Load() {
		return "", fmt.Errorf("%w: %s refused", ErrRepeatActive, cmd)
	}

	return d.roundTrip(ctx, sess, cmd, args...)
}

func (d *Device) roundTrip(ctx context.Context, sess *session, cmd wire.Command, args ...int) (string, error) {
	d.metrics.incCommandCount()

	line, err := sess.framer.Exchange(ctx, cmd, args...)
	if err != nil {
		d.fail(sess, err)
		return "", err
	}

	return line, nil
}

// fail records err and tears the session down on framing failures.
func (d *Device) fail(sess *session, err error) {
	d.metrics.incCommandErrCount()

	if errors.Is(err, wire.ErrProtocol) {
		d.metrics.incProtocolErrCount()
		d.teardown(sess, err)
	}
}

// malformed records a reply the parser rejected.
func (d *Device) malformed(cmd wire.Command, line string, err error) error {
	d.metrics.incCommandErrCount()
	d.metrics.incMalformedCount()
	d.logger.Warn("ccu: malformed reply", "cmd", cmd.String(), "line", line, "error", err)

	return fmt.Errorf("ccu: %s: %w", cmd, err)
}
