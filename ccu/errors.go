package ccu

import "errors"

var (
	// ErrNotConnected indicates a command issued without an open session.
	ErrNotConnected = errors.New("ccu: not connected")

	// ErrBusy indicates that the request slot is taken, or that the device is
	// in the middle of connecting or disconnecting.
	ErrBusy = errors.New("ccu: device busy")

	// ErrUnexpectedAck indicates a confirmation reply that does not match the
	// expected acknowledgement.
	ErrUnexpectedAck = errors.New("ccu: unexpected acknowledgement")

	// ErrRepeatActive indicates a request/reply command issued while the unit
	// pushes snapshots periodically. Only ToggleRepeat and StreamCounts are
	// allowed in that mode.
	ErrRepeatActive = errors.New("ccu: repeat mode active")
)
