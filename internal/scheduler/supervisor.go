package scheduler

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hamed0406/pingprobe/internal/classify"
	"github.com/hamed0406/pingprobe/internal/domain"
	"github.com/hamed0406/pingprobe/internal/probe"
)

// ProberSource resolves the prober for a target kind. *probe.Set implements it.
type ProberSource interface {
	ForKind(domain.Kind) (probe.Prober, error)
}

// Supervisor runs one TargetScheduler per target and stops them together.
type Supervisor struct {
	Logger     *zap.Logger
	Targets    []domain.Target
	Probers    ProberSource
	Classifier *classify.Classifier
	Observer   Observer
}

func NewSupervisor(
	logger *zap.Logger,
	targets []domain.Target,
	probers ProberSource,
	observer Observer,
) (*Supervisor, error) {
	if len(targets) == 0 {
		return nil, domain.ErrNoTargets
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		Logger:     logger,
		Targets:    targets,
		Probers:    probers,
		Classifier: classify.New(logger),
		Observer:   observer,
	}, nil
}

// Run starts every target loop and blocks until ctx is cancelled and all
// loops have returned. It fails before starting anything if a target's kind
// has no prober.
func (s *Supervisor) Run(ctx context.Context) error {
	loops := make([]*TargetScheduler, 0, len(s.Targets))
	for i := range s.Targets {
		t := &s.Targets[i]
		p, err := s.Probers.ForKind(t.Kind)
		if err != nil {
			return fmt.Errorf("target %s: %w", t.Address, err)
		}
		loops = append(loops, NewTargetScheduler(s.Logger, t, p, s.Classifier, s.Observer))
	}

	var wg sync.WaitGroup
	for _, l := range loops {
		wg.Add(1)
		go func(l *TargetScheduler) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.Logger.Error("target_loop_panic",
						zap.String("address", l.Target.Address),
						zap.Any("panic", r),
						zap.Stack("stack"),
					)
				}
			}()
			l.Run(ctx)
		}(l)
	}
	s.Logger.Info("monitor_started", zap.Int("targets", len(loops)))

	wg.Wait()
	s.Logger.Info("monitor_stopped")
	return nil
}
