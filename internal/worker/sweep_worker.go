package worker

import (
	"context"
	"log/slog"
	"time"

	"mesa/internal/services"
)

// SweepWorker drives the periodic billing sweep. One pass runs immediately
// at startup to catch up after downtime, then the ticker takes over.
type SweepWorker struct {
	processor *services.SweepProcessor
	interval  time.Duration
}

func NewSweepWorker(processor *services.SweepProcessor, interval time.Duration) *SweepWorker {
	return &SweepWorker{
		processor: processor,
		interval:  interval,
	}
}

// Run blocks until the context is cancelled.
func (w *SweepWorker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Sweep worker started", "interval", w.interval)

	if err := w.processor.RunOnce(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Startup sweep failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Sweep worker stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.processor.RunOnce(ctx, time.Now()); err != nil {
				slog.ErrorContext(ctx, "Sweep pass failed", "error", err)
			}
		}
	}
}
