package ccu

import (
	"context"
	"errors"
	"fmt"

	"github.com/arloliu/go-ccu/reply"
	"github.com/arloliu/go-ccu/wire"
)

// SnapshotHandler receives the snapshots pushed in repeat mode. Returning
// false stops the stream.
type SnapshotHandler func(snap reply.CountSnapshot) bool

// ToggleRepeat switches periodic snapshot pushes on or off and reports the new
// state. Pushes that arrive before the acknowledgement are discarded.
func (d *Device) ToggleRepeat(ctx context.Context) (bool, error) {
	sess, err := d.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer d.done()

	return d.toggle(ctx, sess)
}

func (d *Device) toggle(ctx context.Context, sess *session) (bool, error) {
	d.metrics.incCommandCount()

	line, err := sess.framer.Exchange(ctx, wire.CmdToggleRepeat)
	for drained := 0; ; drained++ {
		if err != nil {
			d.fail(sess, err)
			return false, err
		}

		// a pushed snapshot ends in the overflow mask, which would parse as
		// a toggle reply, so the shape check comes first
		if _, cerr := reply.ParseCounts(line); cerr != nil {
			on, perr := reply.ParseToggle(line)
			if perr != nil {
				return false, d.malformed(wire.CmdToggleRepeat, line, perr)
			}
			d.repeatOn.Store(on)
			d.logger.Info("ccu: repeat mode changed", "on", on, "drained", drained)

			return on, nil
		}

		if drained >= maxDrainLines {
			err = fmt.Errorf("%w: no acknowledgement after %d pushed lines", wire.ErrProtocol, drained)
			continue
		}

		line, err = sess.framer.ReadReply(ctx)
	}
}

// StreamCounts switches repeat mode on, when it is off, and passes every
// pushed snapshot to handler until handler returns false. Repeat mode is then
// switched off again and the session stays usable. Malformed pushes are
// logged and skipped.
//
// StreamCounts holds the request slot for its whole run. Ending it through
// ctx abandons a pending read, so the session is torn down and StreamCounts
// returns wire.ErrProtocol.
func (d *Device) StreamCounts(ctx context.Context, handler SnapshotHandler) error {
	if handler == nil {
		return errors.New("ccu: nil snapshot handler")
	}

	sess, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer d.done()

	if !d.repeatOn.Load() {
		if err := d.ensureRepeat(ctx, sess); err != nil {
			return err
		}
	}

	for {
		line, err := sess.framer.ReadReply(ctx)
		if err != nil {
			// pushes may be further apart than the read timeout
			if errors.Is(err, wire.ErrReadTimeout) && ctx.Err() == nil {
				continue
			}
			d.fail(sess, err)

			return err
		}

		snap, err := reply.ParseCounts(line)
		if err != nil {
			d.metrics.incMalformedCount()
			d.logger.Warn("ccu: skipping malformed push", "line", line, "error", err)

			continue
		}
		d.metrics.incPushCount()

		if !handler(snap.WithTime(d.cfg.clk.Now())) {
			break
		}
	}

	on, err := d.toggle(ctx, sess)
	if err != nil {
		return err
	}
	if on {
		return fmt.Errorf("%w: repeat mode still on after stop", ErrUnexpectedAck)
	}

	return nil
}

// ensureRepeat toggles until the unit reports repeat mode on. The unit may
// already be pushing when the driver believes it is off, so two toggles are
// allowed.
func (d *Device) ensureRepeat(ctx context.Context, sess *session) error {
	for i := 0; i < 2; i++ {
		on, err := d.toggle(ctx, sess)
		if err != nil {
			return err
		}
		if on {
			return nil
		}
	}

	return fmt.Errorf("%w: repeat mode did not turn on", ErrUnexpectedAck)
}
