package ccu

import "sync/atomic"

// DeviceState is the session state of a Device.
type DeviceState uint32

const (
	StateDisconnected DeviceState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s DeviceState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return "Unknown"
	}
}

// StateChangeHandler is invoked after the session state of dev changed from
// prev to next. Handlers run synchronously on the goroutine that caused the
// change and must not block.
type StateChangeHandler func(dev *Device, prev DeviceState, next DeviceState)

type atomicState struct {
	state atomic.Uint32
}

// Get returns the current state.
func (st *atomicState) Get() DeviceState {
	return DeviceState(st.state.Load())
}

// transit moves to next if the current state is one of from. It returns the
// state it moved from.
func (st *atomicState) transit(next DeviceState, from ...DeviceState) (DeviceState, bool) {
	for _, f := range from {
		if st.state.CompareAndSwap(uint32(f), uint32(next)) {
			return f, true
		}
	}

	return st.Get(), false
}

func (st *atomicState) toConnecting() (DeviceState, bool) {
	return st.transit(StateConnecting, StateDisconnected)
}

func (st *atomicState) toConnected() (DeviceState, bool) {
	return st.transit(StateConnected, StateConnecting)
}

func (st *atomicState) toDisconnecting() (DeviceState, bool) {
	return st.transit(StateDisconnecting, StateConnected, StateConnecting)
}

// toDisconnected also accepts Connecting, for a Connect whose open failed.
func (st *atomicState) toDisconnected() (DeviceState, bool) {
	return st.transit(StateDisconnected, StateDisconnecting, StateConnecting)
}
