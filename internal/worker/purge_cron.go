package worker

// purge_cron.go
// Background goroutine that periodically purges accounts whose deletion
// grace period has ended.

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const purgeTickInterval = time.Hour

// AccountPurger deletes every account past its grace period and reports how
// many were removed.
type AccountPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// StartPurgeCron runs one purge at startup and then one per tick.
// It respects the context for graceful shutdown.
func StartPurgeCron(ctx context.Context, purger AccountPurger, interval time.Duration) {
	if interval <= 0 {
		interval = purgeTickInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("purge_cron: started")
		runPurge(ctx, purger)

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("purge_cron: shutting down")
				return
			case <-ticker.C:
				runPurge(ctx, purger)
			}
		}
	}()
}

func runPurge(ctx context.Context, purger AccountPurger) {
	n, err := purger.PurgeExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("purge_cron: purge failed")
		return
	}
	if n > 0 {
		log.Info().Int("accounts", n).Msg("purge_cron: accounts purged")
	}
}
