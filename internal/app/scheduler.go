package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"pms_sync/internal/adapters/observability"
)

// ErrRunInProgress is returned by TryRun when another run still holds the slot.
var ErrRunInProgress = errors.New("sync run already in progress")

type Runner interface {
	Run(ctx context.Context, since *time.Time) (RunSummary, error)
}

type ScheduleConfig struct {
	FullInterval        time.Duration
	IncrementalInterval time.Duration
	// IncrementalLookback is subtracted from the trigger time to build the "since" watermark.
	IncrementalLookback time.Duration
}

// Scheduler triggers full and incremental runs on two cadences.
// A weight-1 semaphore keeps runs from overlapping: a tick that finds a run
// in progress is skipped, not queued.
type Scheduler struct {
	runner Runner
	cfg    ScheduleConfig
	sem    *semaphore.Weighted
	now    func() time.Time
	log    zerolog.Logger
}

func NewScheduler(r Runner, cfg ScheduleConfig, logger zerolog.Logger) *Scheduler {
	if cfg.FullInterval <= 0 {
		cfg.FullInterval = 5 * time.Minute
	}
	if cfg.IncrementalInterval <= 0 {
		cfg.IncrementalInterval = time.Hour
	}
	if cfg.IncrementalLookback <= 0 {
		cfg.IncrementalLookback = time.Hour
	}
	return &Scheduler{
		runner: r,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(1),
		now:    time.Now,
		log:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// TryRun starts a run unless one is already in progress.
func (s *Scheduler) TryRun(ctx context.Context, since *time.Time) (RunSummary, error) {
	mode := "full"
	if since != nil {
		mode = "incremental"
	}
	if !s.sem.TryAcquire(1) {
		observability.ObserveRun(mode, "skipped", 0)
		s.log.Warn().Str("mode", mode).Msg("previous sync still running, skipping this tick")
		return RunSummary{}, ErrRunInProgress
	}
	defer s.sem.Release(1)
	return s.runner.Run(ctx, since)
}

// Start blocks until ctx is cancelled and any in-flight run has returned.
// Both cadences fire once on their first tick, not at start-up.
func (s *Scheduler) Start(ctx context.Context) {
	full := time.NewTicker(s.cfg.FullInterval)
	defer full.Stop()
	incr := time.NewTicker(s.cfg.IncrementalInterval)
	defer incr.Stop()

	s.log.Info().
		Dur("full_every", s.cfg.FullInterval).
		Dur("incremental_every", s.cfg.IncrementalInterval).
		Dur("lookback", s.cfg.IncrementalLookback).
		Msg("scheduler started")

	var wg sync.WaitGroup
	spawn := func(since *time.Time) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.fire(ctx, since)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			// in-flight runs see the same cancelled ctx
			wg.Wait()
			s.log.Info().Msg("scheduler stopped")
			return
		case <-full.C:
			spawn(nil)
		case <-incr.C:
			since := s.now().Add(-s.cfg.IncrementalLookback)
			spawn(&since)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, since *time.Time) {
	sum, err := s.TryRun(ctx, since)
	switch {
	case errors.Is(err, ErrRunInProgress):
	case err != nil:
		s.log.Error().Err(err).Str("run_id", sum.RunID).Msg("scheduled sync failed")
	default:
		s.log.Info().Str("run_id", sum.RunID).Str("mode", sum.Mode()).
			Int("succeeded", sum.Succeeded).Int("failed", sum.Failed).
			Msg("scheduled sync completed")
	}
}
