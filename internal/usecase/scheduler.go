package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketPhase/pkg/cache"
	applogger "MarketPhase/pkg/logger"
)

const lockKey = "phase:lock"

// Scheduler runs a live analysis immediately and then on every interval.
type Scheduler struct {
	analyzer *PhaseAnalyzer
	locker   cache.Service
	interval time.Duration
	log      *applogger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler. locker guards a tick across replicas.
func NewScheduler(analyzer *PhaseAnalyzer, locker cache.Service, interval time.Duration, log *applogger.Logger) *Scheduler {
	if log == nil {
		log = applogger.Nop()
	}
	return &Scheduler{
		analyzer: analyzer,
		locker:   locker,
		interval: interval,
		log:      log.With(applogger.String("component", "scheduler")),
	}
}

// Start launches the loop and returns.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", s.interval)
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()

	s.log.Info("scheduler started", applogger.String("interval", s.interval.String()))
	return nil
}

// Shutdown stops the loop and waits for a running analysis, bounded by ctx.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown: %w", ctx.Err())
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	// The lock is never released; it expires just before the next tick so the
	// replica that won keeps its slot without blocking itself.
	ttl := s.interval - s.interval/10
	ok, err := s.locker.TryLock(ctx, lockKey, ttl)
	if err != nil {
		s.log.Warn("acquire analysis lock, running anyway", applogger.Error(err))
	} else if !ok {
		s.log.Debug("analysis lock held elsewhere, skipping tick")
		return
	}

	if _, err := s.analyzer.Analyze(ctx); err != nil && ctx.Err() == nil {
		s.log.Error("scheduled analysis failed", applogger.Error(err))
	}
}
