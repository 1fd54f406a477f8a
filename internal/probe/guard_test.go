package probe

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// silentHost behaves like a pinger that gets no answer: some setup, then its
// own timer of exactly timeout, and zero replies.
func silentHost(setup time.Duration) Prober {
	return ProberFunc(func(ctx context.Context, address string, timeout time.Duration) Result {
		select {
		case <-time.After(setup):
		case <-ctx.Done():
			return Result{Err: ctx.Err()}
		}
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-t.C:
			return Result{Replies: 0}
		case <-ctx.Done():
			return Result{Err: ctx.Err()}
		}
	})
}

func TestGuard_PassesThrough(t *testing.T) {
	inner := ProberFunc(func(ctx context.Context, address string, timeout time.Duration) Result {
		return Result{Replies: 1, RTT: 7 * time.Millisecond}
	})
	out := NewGuard(inner).Probe(context.Background(), "a", time.Second)
	require.NoError(t, out.Err)
	require.Equal(t, 1, out.Replies)
	require.Equal(t, 7*time.Millisecond, out.RTT)
}

func TestGuard_SelfTimedInnerKeepsItsVerdict(t *testing.T) {
	g := NewGuard(silentHost(5 * time.Millisecond))
	for i := 0; i < 10; i++ {
		out := g.Probe(context.Background(), "a", 30*time.Millisecond)
		require.NoError(t, out.Err, "attempt %d", i)
		require.Equal(t, 0, out.Replies)
	}
}

func TestGuard_HungProberBecomesTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	inner := ProberFunc(func(ctx context.Context, address string, timeout time.Duration) Result {
		<-release // ignores ctx
		return Result{Replies: 1}
	})
	g := &Guard{Inner: inner, Grace: 10 * time.Millisecond}

	start := time.Now()
	out := g.Probe(context.Background(), "a", 20*time.Millisecond)
	require.Less(t, time.Since(start), 250*time.Millisecond)
	require.True(t, errors.Is(out.Err, ErrTimeout), "got %v", out.Err)
	require.EqualValues(t, 1, g.Abandoned())
}

func TestGuard_FailsFastWhileCallsAreStuck(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	inner := ProberFunc(func(ctx context.Context, address string, timeout time.Duration) Result {
		calls.Add(1)
		<-release
		return Result{Replies: 1}
	})
	g := &Guard{Inner: inner, Grace: 5 * time.Millisecond, MaxAbandoned: 2}

	for i := 0; i < 2; i++ {
		out := g.Probe(context.Background(), "a", 5*time.Millisecond)
		require.True(t, errors.Is(out.Err, ErrTimeout), "got %v", out.Err)
	}
	require.EqualValues(t, 2, g.Abandoned())

	out := g.Probe(context.Background(), "a", 5*time.Millisecond)
	require.True(t, errors.Is(out.Err, ErrStuck), "got %v", out.Err)
	require.EqualValues(t, 2, calls.Load(), "inner must not be called while stuck")

	close(release)
	require.Eventually(t, func() bool { return g.Abandoned() == 0 }, time.Second, 5*time.Millisecond)

	out = g.Probe(context.Background(), "a", 5*time.Millisecond)
	require.NoError(t, out.Err)
	require.Equal(t, 1, out.Replies)
}

func TestGuard_RecoversPanic(t *testing.T) {
	inner := ProberFunc(func(ctx context.Context, address string, timeout time.Duration) Result {
		panic("socket exploded")
	})
	out := NewGuard(inner).Probe(context.Background(), "a", time.Second)
	require.True(t, errors.Is(out.Err, ErrPanic), "got %v", out.Err)
	require.Contains(t, out.Err.Error(), "socket exploded")
}

func TestGuard_InnerSeesDeadlinePastTimeout(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	inner := ProberFunc(func(ctx context.Context, address string, timeout time.Duration) Result {
		deadline, hasDeadline = ctx.Deadline()
		return Result{}
	})
	start := time.Now()
	NewGuard(inner).Probe(context.Background(), "a", time.Second)
	require.True(t, hasDeadline)
	require.True(t, deadline.After(start.Add(time.Second)), "deadline should include the grace")
}
