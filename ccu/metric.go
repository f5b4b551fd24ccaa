package ccu

import (
	"sync/atomic"
)

// DeviceMetrics contains atomic metrics of a Device.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type DeviceMetrics struct {
	// CommandCount indicates the number of requests written.
	CommandCount atomic.Uint64
	// CommandErrCount indicates the number of commands that failed after
	// acquiring the request slot.
	CommandErrCount atomic.Uint64
	// ProtocolErrCount indicates the number of framing failures.
	ProtocolErrCount atomic.Uint64
	// MalformedCount indicates the number of replies the parser rejected.
	MalformedCount atomic.Uint64
	// BusyCount indicates the number of commands rejected with ErrBusy.
	BusyCount atomic.Uint64
	// PushCount indicates the number of snapshots pushed in repeat mode.
	PushCount atomic.Uint64
	// TeardownCount indicates the number of sessions closed by a failure.
	TeardownCount atomic.Uint64
	// InflightCount indicates whether a command holds the request slot.
	InflightCount atomic.Int32
}

func (m *DeviceMetrics) incCommandCount() {
	m.CommandCount.Add(1)
}

func (m *DeviceMetrics) incCommandErrCount() {
	m.CommandErrCount.Add(1)
}

func (m *DeviceMetrics) incProtocolErrCount() {
	m.ProtocolErrCount.Add(1)
}

func (m *DeviceMetrics) incMalformedCount() {
	m.MalformedCount.Add(1)
}

func (m *DeviceMetrics) incBusyCount() {
	m.BusyCount.Add(1)
}

func (m *DeviceMetrics) incPushCount() {
	m.PushCount.Add(1)
}

func (m *DeviceMetrics) incTeardownCount() {
	m.TeardownCount.Add(1)
}

func (m *DeviceMetrics) incInflightCount() {
	m.InflightCount.Add(1)
}

func (m *DeviceMetrics) decInflightCount() {
	m.InflightCount.Add(-1)
}
