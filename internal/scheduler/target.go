package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/pingprobe/internal/classify"
	"github.com/hamed0406/pingprobe/internal/domain"
	"github.com/hamed0406/pingprobe/internal/probe"
)

// Observer consumes classified outcomes. *metrics.Aggregator implements it.
type Observer interface {
	Observe(domain.Outcome)
}

// TargetScheduler runs the probe loop for a single target.
type TargetScheduler struct {
	Logger     *zap.Logger
	Target     *domain.Target
	Prober     probe.Prober
	Classifier *classify.Classifier
	Observer   Observer

	now func() time.Time
}

func NewTargetScheduler(
	logger *zap.Logger,
	target *domain.Target,
	prober probe.Prober,
	classifier *classify.Classifier,
	observer Observer,
) *TargetScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if classifier == nil {
		classifier = classify.New(logger)
	}
	return &TargetScheduler{
		Logger:     logger,
		Target:     target,
		Prober:     prober,
		Classifier: classifier,
		Observer:   observer,
		now:        time.Now,
	}
}

// Run probes the target every Interval until ctx is cancelled.
//
// Each iteration is scheduled from its own start time, so probe duration
// does not accumulate drift. An iteration that overruns the interval is
// followed immediately by the next one.
func (s *TargetScheduler) Run(ctx context.Context) {
	s.Logger.Info("target_started", zap.Stringer("target", s.Target))

	for {
		start := s.now()

		res := s.Prober.Probe(ctx, s.Target.Address, s.Target.Timeout)
		if ctx.Err() != nil {
			// cancelled mid-probe: drop the partial result
			break
		}
		out := s.Classifier.Classify(s.Target, res)
		s.Observer.Observe(out)

		s.Logger.Debug("probe_result",
			zap.String("address", s.Target.Address),
			zap.String("status", string(out.Status)),
			zap.Float64("latency_ms", out.LatencyMS),
		)

		if !s.sleepUntil(ctx, start.Add(s.Target.Interval)) {
			break
		}
	}

	s.Logger.Debug("target_stopped", zap.String("address", s.Target.Address))
}

// sleepUntil waits for next or ctx, whichever comes first. It reports
// false when ctx is done, including when no wait was needed.
func (s *TargetScheduler) sleepUntil(ctx context.Context, next time.Time) bool {
	wait := NextWait(next, s.now())
	if wait <= 0 {
		if wait < 0 {
			s.Logger.Warn("probe_overrun",
				zap.String("address", s.Target.Address),
				zap.Duration("interval", s.Target.Interval),
				zap.Duration("overrun", -wait),
			)
		}
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// NextWait is the remaining time until next. Negative means next has passed.
func NextWait(next, now time.Time) time.Duration {
	return next.Sub(now)
}
