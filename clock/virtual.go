package clock

import (
	"context"
	"sync"
	"time"
)

// Virtual is a manually driven Clock. Sleep advances the virtual time by the
// requested duration and returns immediately. It is safe for concurrent use.
type Virtual struct {
	mu    sync.Mutex
	now   time.Time
	slept time.Duration
}

var _ Clock = (*Virtual)(nil)

// NewVirtual returns a Virtual clock starting at start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

// Now returns the current virtual time.
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.now
}

// Sleep advances the clock by d unless ctx is already done.
func (v *Virtual) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	v.mu.Lock()
	v.now = v.now.Add(d)
	v.slept += d
	v.mu.Unlock()

	return nil
}

// Advance moves the clock forward by d without counting it as sleep.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	v.now = v.now.Add(d)
	v.mu.Unlock()
}

// Slept returns the accumulated duration passed to Sleep.
func (v *Virtual) Slept() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.slept
}
