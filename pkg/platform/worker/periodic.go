// Package worker runs housekeeping jobs on a fixed interval.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// Job does one pass of housekeeping and reports how many rows it touched.
type Job struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// Periodic runs its jobs in order on every tick. A failing job is logged and
// retried on the next tick; it never stops the loop.
type Periodic struct {
	interval time.Duration
	jobs     []Job
	logger   *slog.Logger
}

func NewPeriodic(interval time.Duration, logger *slog.Logger, jobs ...Job) *Periodic {
	return &Periodic{interval: interval, jobs: jobs, logger: logger}
}

// Run ticks until ctx is cancelled.
func (p *Periodic) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.RunOnce(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce runs every job once.
func (p *Periodic) RunOnce(ctx context.Context) {
	for _, job := range p.jobs {
		if ctx.Err() != nil {
			return
		}
		n, err := job.Run(ctx)
		if err != nil {
			p.logger.ErrorContext(ctx, "periodic job failed",
				"job", job.Name,
				"error", err,
			)
			continue
		}
		if n > 0 {
			p.logger.DebugContext(ctx, "periodic job done",
				"job", job.Name,
				"affected", n,
			)
		}
	}
}
