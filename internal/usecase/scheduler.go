package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/ports"
)

const defaultSweepLimit = 500

// Sweeper re-submits items stuck in pending-analysis, e.g. after a crash
// abandoned their run.
type Sweeper struct {
	repository ports.ContentRepository
	dispatcher *Dispatcher
	staleAfter time.Duration
	limit      int
	logger     *slog.Logger
}

// NewSweeper builds a sweeper; items untouched for staleAfter are re-submitted.
func NewSweeper(repo ports.ContentRepository, dispatcher *Dispatcher, staleAfter time.Duration, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Sweeper{
		repository: repo,
		dispatcher: dispatcher,
		staleAfter: staleAfter,
		limit:      defaultSweepLimit,
		logger:     log,
	}
}

// Sweep submits every stale pending item and returns how many were submitted.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.repository.ListStale(ctx, domain.StatusPending, now.Add(-s.staleAfter), s.limit)
	if err != nil {
		return 0, fmt.Errorf("list stale: %w", err)
	}

	submitted := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if _, _, err := s.dispatcher.Submit(ctx, id, false); err != nil {
			s.logger.Error("resubmit stale content failed", "content_id", id, "error", err)
			continue
		}
		submitted++
	}

	s.logger.Info("stale sweep done", "found", len(ids), "submitted", submitted)
	return submitted, nil
}

// Scheduler wires the cron driver with the sweeper.
type Scheduler struct {
	driver  ports.Scheduler
	sweeper *Sweeper
}

// NewScheduler returns a helper to start/stop recurring sweeps.
func NewScheduler(driver ports.Scheduler, sweeper *Sweeper) *Scheduler {
	return &Scheduler{driver: driver, sweeper: sweeper}
}

// Start registers the sweep with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.sweeper == nil {
		return nil
	}

	job := func(trigger time.Time) {
		_, _ = s.sweeper.Sweep(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
