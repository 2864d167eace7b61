package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

const SweepJobName = "cache.sweep"

// RegisterSweep schedules Sweep on the cron manager. spec uses the
// six-field (seconds) format.
func (c *Cache) RegisterSweep(ctx context.Context, cron types.CronManager, spec string) error {
	if spec == "" {
		return nil
	}

	return cron.Add(SweepJobName, spec, func() {
		if _, err := c.Sweep(ctx); err != nil {
			c.logger.Error("Scheduled cache sweep failed", zap.Error(err))
		}
	})
}
