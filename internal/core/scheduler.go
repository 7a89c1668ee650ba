package core

// scheduler.go runs periodic expiry sweeps for the in-memory guards.
//
// Neither the rate limiter nor the duplicate tracker starts its own timer.
// The host decides when to sweep, normally by starting Run in a goroutine
// that stops with the server's context. Tests call Sweep directly.

import (
	"context"
	"log/slog"
	"time"
)

// RunSweeper calls s.Sweep every interval until ctx is cancelled.
// A non-positive interval uses DefaultSweepInterval.
func RunSweeper(ctx context.Context, name string, interval time.Duration, s Sweeper) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	slog.Info("sweeper started", "sweeper", name, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sweeper stopped", "sweeper", name)
			return
		case <-ticker.C:
			start := time.Now()
			if removed := s.Sweep(); removed > 0 {
				slog.Debug("sweep completed",
					"sweeper", name,
					"removed", removed,
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
		}
	}
}

// Run sweeps expired tokens every interval until ctx is cancelled.
func (d *DuplicateTracker) Run(ctx context.Context, interval time.Duration) {
	RunSweeper(ctx, "duplicate_tracker", interval, d)
}
