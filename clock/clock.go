// Package clock abstracts wall-clock time for the framer settle delay and the
// measurement sampling window.
//
// Production code uses Real, which sleeps on pooled timers. Tests and the
// simulator use Virtual, whose time only moves when Sleep or Advance is called,
// so a ten second measurement completes instantly and deterministically.
package clock

import (
	"context"
	"time"
)

// Clock is the time source used by go-ccu components.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever comes first.
	// It returns ctx.Err() when the wait was cut short.
	Sleep(ctx context.Context, d time.Duration) error
}

// Seconds converts a duration in seconds, as used by the measurement API, into
// a time.Duration. Negative and NaN inputs yield 0.
func Seconds(s float64) time.Duration {
	if !(s > 0) {
		return 0
	}

	return time.Duration(s * float64(time.Second))
}
