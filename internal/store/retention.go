package store

import (
	"context"
	"log/slog"
	"time"
)

const retentionSweepInterval = 5 * time.Minute

// StartRetentionWorker runs a background goroutine that periodically deletes
// session rows idle longer than the retention period. A retention of zero or
// less disables the worker entirely: by default a session is abandoned, not
// destroyed, when its client walks away.
func StartRetentionWorker(ctx context.Context, repo Repository, retention time.Duration) {
	if retention <= 0 {
		return
	}

	ticker := time.NewTicker(retentionSweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Retention worker started", "interval", retentionSweepInterval, "retention", retention)

		for {
			select {
			case <-ticker.C:
				sweepIdleSessions(ctx, repo, retention)
			case <-ctx.Done():
				slog.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepIdleSessions(ctx context.Context, repo Repository, retention time.Duration) {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		deleted, err := repo.CleanupIdleSessions(ctx, retention)
		if err == nil {
			if deleted > 0 {
				slog.Info("Retention worker removed idle sessions", "count", deleted)
			}
			return
		}

		// The busy timeout usually absorbs contention; retry with backoff
		// when a sweep still collides with an in-flight turn.
		if IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("Retention sweep hit a locked database, retrying",
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}

		slog.Error("Retention sweep failed", "error", err)
		return
	}
}
