package measure

import (
	"errors"
	"fmt"
)

// ErrCounterAnomaly indicates a counter that went backwards between the two
// snapshots of a measurement, which happens when the unit was cleared or a
// counter wrapped.
var ErrCounterAnomaly = errors.New("measure: counter anomaly")

// CounterAnomalyError reports the channel and counts of a counter anomaly.
type CounterAnomalyError struct {
	Channel int
	Before  uint32
	After   uint32
}

func (e *CounterAnomalyError) Error() string {
	return fmt.Sprintf("measure: counter anomaly on channel %d: count went from %d to %d, counter reset or wrapped",
		e.Channel, e.Before, e.After)
}

func (e *CounterAnomalyError) Unwrap() error { return ErrCounterAnomaly }
