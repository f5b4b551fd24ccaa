package measure

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-ccu/clock"
	"github.com/arloliu/go-ccu/logger"
	"github.com/arloliu/go-ccu/reply"
)

// scriptedReader returns its snapshots in order.
type scriptedReader struct {
	mu    sync.Mutex
	snaps []reply.CountSnapshot
	errs  []error
	calls int
}

func (r *scriptedReader) GetCounts(ctx context.Context) (reply.CountSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.calls
	r.calls++
	if i < len(r.errs) && r.errs[i] != nil {
		return reply.CountSnapshot{}, r.errs[i]
	}
	if i >= len(r.snaps) {
		return reply.CountSnapshot{}, errors.New("scriptedReader: out of snapshots")
	}

	return r.snaps[i], nil
}

func (r *scriptedReader) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls
}

// counts builds a snapshot from per-channel counts.
func counts(values ...uint32) reply.CountSnapshot {
	var s reply.CountSnapshot
	copy(s.Counts[:], values)

	return s
}

// newTestEngine creates an Engine over snaps on a virtual clock, recording
// phase events.
func newTestEngine(t *testing.T, r *scriptedReader) (*Engine, *clock.Virtual, *[]PhaseEvent) {
	t.Helper()

	clk := clock.NewVirtual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	events := &[]PhaseEvent{}

	e, err := NewEngine(r,
		WithClock(clk),
		WithLogger(logger.NewNop()),
		WithPhaseHandler(func(ev PhaseEvent) { *events = append(*events, ev) }),
	)
	if err != nil {
		t.Fatalf("newTestEngine: %v", err)
	}

	return e, clk, events
}

func phases(events []PhaseEvent) []Phase {
	out := make([]Phase, len(events))
	for i, ev := range events {
		out[i] = ev.Phase
	}

	return out
}
