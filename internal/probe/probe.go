package probe

import (
	"context"
	"errors"
	"time"
)

// Named failure reasons. Probers wrap these so callers can match with errors.Is.
var (
	ErrNameLookup             = errors.New("name lookup failed")
	ErrTimeout                = errors.New("probe timed out")
	ErrDestinationUnreachable = errors.New("destination unreachable")
	// ErrPanic marks a prober that panicked. It is not a named reason.
	ErrPanic = errors.New("prober panicked")
)

// Result is what a single probe returns.
//
// Exactly one of the two shapes is meaningful:
//   - Err != nil: the probe failed for the given reason.
//   - Err == nil: the exchange completed; Replies counts replies received and
//     RTT is the round trip of the fastest one.
type Result struct {
	Replies int
	RTT     time.Duration
	Err     error
}

// Prober sends one reachability probe to address, bounded by timeout.
// Implementations report failures in Result.Err and never panic on purpose.
type Prober interface {
	Probe(ctx context.Context, address string, timeout time.Duration) Result
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, address string, timeout time.Duration) Result

func (f ProberFunc) Probe(ctx context.Context, address string, timeout time.Duration) Result {
	return f(ctx, address, timeout)
}
