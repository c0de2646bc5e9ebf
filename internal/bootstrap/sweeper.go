package bootstrap

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunSweeper calls sweep every interval until ctx is done.
func RunSweeper(ctx context.Context, interval time.Duration, name string, sweep func(context.Context) (int64, error), logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := sweep(ctx)
			if err != nil {
				logger.Error("sweep failed", zap.String("sweeper", name), zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("swept expired entries", zap.String("sweeper", name), zap.Int64("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}
