// Package ccu implements the command driver of the coincidence counting unit.
//
// A Device owns one session with the unit: the ByteChannel returned by its
// Opener plus a wire.Framer on top of it. The protocol has no request
// identifiers, so the Device allows exactly one command in flight. Commands
// issued while another is pending wait for the request slot in FIFO order, or
// fail with ErrBusy when the device was created with WithRejectWhenBusy.
//
// Failure policy:
//
//   - wire.ErrProtocol (write or read failure, timeout, closed channel,
//     cancellation after the request was written): the session is torn down
//     and the channel released. Later commands fail with ErrNotConnected
//     until Connect is called again.
//   - reply.ErrMalformedResponse: the reply was read completely, so the
//     session is kept.
//
// No command is ever retried by the driver.
//
// Basic usage:
//
//	dev, err := ccu.NewDevice(serialport.Opener(serialport.Config{Port: "/dev/ttyACM0"}))
//	if err != nil {
//		return err
//	}
//	if err := dev.Connect(ctx); err != nil {
//		return err
//	}
//	defer dev.Disconnect()
//
//	snap, err := dev.GetCounts(ctx)
package ccu
