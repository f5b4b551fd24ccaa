// Package simulator provides a fake counting unit speaking the wire protocol.
//
// Device implements io.ReadWriteCloser, so it plugs into wire.NewLineChannel
// like a serial port does; Opener returns a ready-made ccu.Opener. Counters
// advance as rate × elapsed time on the configured clock. With a
// clock.Virtual shared by the simulator, the driver and the measurement
// engine, a ten second measurement completes instantly and yields exact
// counts.
//
// The simulator also models counter saturation with overflow bits, repeat
// mode pushes, a counter reset hook and one-shot transport faults.
package simulator
