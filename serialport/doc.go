// Package serialport opens a counting unit attached to a serial port.
//
// The port is opened 8N1 through go.bug.st/serial with a read timeout, and
// wrapped in a wire.LineChannel. A read that times out returns no bytes,
// which the line channel treats as a poll and turns into wire.ErrReadTimeout
// once the configured silence is exceeded.
//
//	dev, err := ccu.NewDevice(serialport.Opener(serialport.Config{Port: "/dev/ttyACM0"}))
package serialport
