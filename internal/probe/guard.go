package probe

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"
)

const (
	// DefaultGrace is how long Guard waits past the probe timeout. Inner
	// probers end themselves at the timeout; the grace keeps their own
	// verdict (a timeout error or zero replies) from racing Guard's.
	DefaultGrace = 500 * time.Millisecond

	// DefaultMaxAbandoned caps inner calls still running after Guard gave up.
	DefaultMaxAbandoned = 4
)

// ErrStuck is returned without calling the inner prober while too many of
// its earlier calls are still running. It is not a named reason.
var ErrStuck = errors.New("prober stuck")

// Guard bounds an inner prober by the probe timeout plus Grace and turns its
// panics into errors wrapping ErrPanic.
//
// A prober that ignores ctx cannot be stopped: Guard returns ErrTimeout and
// leaves its goroutine running. Those goroutines are counted, and once
// MaxAbandoned of them are outstanding Guard fails fast with ErrStuck until
// some return. A zero MaxAbandoned means no cap.
type Guard struct {
	Inner        Prober
	Grace        time.Duration
	MaxAbandoned int64

	abandoned atomic.Int64
}

func NewGuard(inner Prober) *Guard {
	return &Guard{Inner: inner, Grace: DefaultGrace, MaxAbandoned: DefaultMaxAbandoned}
}

// Abandoned is the number of inner calls still running after Guard gave up.
func (g *Guard) Abandoned() int64 {
	return g.abandoned.Load()
}

const (
	callRunning int32 = iota
	callReturned
	callAbandoned
)

func (g *Guard) Probe(ctx context.Context, address string, timeout time.Duration) Result {
	if n := g.abandoned.Load(); g.MaxAbandoned > 0 && n >= g.MaxAbandoned {
		return Result{Err: fmt.Errorf("%w: %d earlier calls still running", ErrStuck, n)}
	}

	limit := timeout + g.Grace
	cctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	var state atomic.Int32
	// buffered: the inner goroutine must be able to finish after we gave up on it
	done := make(chan Result, 1)
	go func() {
		done <- g.call(cctx, address, timeout)
		if !state.CompareAndSwap(callRunning, callReturned) {
			g.abandoned.Add(-1)
		}
	}()

	select {
	case res := <-done:
		return res
	case <-cctx.Done():
	}
	if !state.CompareAndSwap(callRunning, callAbandoned) {
		// returned while we were timing out; the result is already buffered
		return <-done
	}
	g.abandoned.Add(1)
	return Result{Err: fmt.Errorf("%w: no result after %s: %w", ErrTimeout, limit, cctx.Err())}
}

func (g *Guard) call(ctx context.Context, address string, timeout time.Duration) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())}
		}
	}()
	return g.Inner.Probe(ctx, address, timeout)
}
