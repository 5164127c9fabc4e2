package store

import (
	"context"
	"log/slog"
	"time"
)

// RunRetention prunes records older than retention every interval until
// ctx is cancelled. A zero retention keeps everything.
func RunRetention(ctx context.Context, s Store, retention, interval time.Duration, logger *slog.Logger) {
	if retention <= 0 || interval <= 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			removed, err := s.Prune(ctx, time.Now().Add(-retention))
			if err != nil {
				logger.Error("Retention sweep failed", "error", err)
			} else if removed > 0 {
				logger.Info("Retention sweep pruned records", "removed", removed, "retention", retention)
			}
			timer.Reset(interval)
		}
	}
}
