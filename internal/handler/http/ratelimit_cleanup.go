package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"agency-site/pkg/config"

	"github.com/robfig/cron/v3"
)

// DefaultSweepTimeout bounds a single sweep run.
const DefaultSweepTimeout = 30 * time.Second

// Sweeper removes expired rate limit entries. *ratelimit.Limiter implements it.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// StartRateLimitSweep schedules periodic expired-entry sweeps on the given
// cron schedule and stops the scheduler when ctx is cancelled.
//
// Sweeps only reclaim memory: expired entries are already treated as absent
// by the limiter, so a missed or failed sweep never changes a decision.
// Overlapping runs are skipped rather than queued.
//
// The returned channel is closed once the scheduler has stopped and any
// running sweep has finished.
func StartRateLimitSweep(
	ctx context.Context,
	logger *slog.Logger,
	sweeper Sweeper,
	schedule string,
	limiterName string,
) (<-chan struct{}, error) {
	c := cron.New(
		cron.WithParser(config.CronParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	_, err := c.AddFunc(schedule, func() {
		runSweep(ctx, logger, sweeper, limiterName)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule rate limit sweep %q: %w", schedule, err)
	}
	c.Start()

	logger.Info("rate limit sweep started",
		slog.String("limiter", limiterName),
		slog.String("schedule", schedule))

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		<-c.Stop().Done()
		logger.Info("rate limit sweep stopped", slog.String("limiter", limiterName))
	}()

	return done, nil
}

// runSweep executes a single sweep with timeout and error handling.
func runSweep(ctx context.Context, logger *slog.Logger, sweeper Sweeper, limiterName string) {
	ctx, cancel := context.WithTimeout(ctx, DefaultSweepTimeout)
	defer cancel()

	start := time.Now()
	removed, err := sweeper.Sweep(ctx)
	if err != nil {
		logger.Error("rate limit sweep failed",
			slog.String("limiter", limiterName),
			slog.Any("error", err))
		return
	}

	logger.Debug("rate limit sweep completed",
		slog.String("limiter", limiterName),
		slog.Int("removed", removed),
		slog.Duration("duration", time.Since(start)))
}
