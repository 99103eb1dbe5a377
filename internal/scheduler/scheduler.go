// Package scheduler starts periodic sync runs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/antyra/ranksync/internal/orchestrator"
	"github.com/antyra/ranksync/internal/rank"
)

// Runner launches sync runs; the orchestrator satisfies it.
type Runner interface {
	Start(ctx context.Context, trigger rank.RunTrigger, domains []string) (string, <-chan rank.RunSummary, error)
	Active() bool
}

// Scheduler fires a full sync run at a fixed interval. Ticks that land
// while a run is still executing are skipped, so runs never queue up.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *zap.Logger
}

// New builds a Scheduler with the given tick interval.
func New(runner Runner, interval time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", interval)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{runner: runner, interval: interval, logger: logger}, nil
}

// Run blocks until ctx ends, starting a run on every tick.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if s.runner.Active() {
		s.logger.Debug("sync run still active, skipping tick")
		return
	}
	runID, _, err := s.runner.Start(ctx, rank.TriggerSchedule, nil)
	switch {
	case errors.Is(err, orchestrator.ErrRunInProgress):
		s.logger.Debug("sync run still active, skipping tick")
	case err != nil:
		s.logger.Warn("scheduled run failed to start", zap.Error(err))
	default:
		s.logger.Info("scheduled run started", zap.String("run_id", runID))
	}
}
