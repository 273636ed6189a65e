// ABOUTME: Retention sweeper for the shadow message store
// ABOUTME: Purges rows older than the configured age on a fixed interval

package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/2389/staffbot/internal/metrics"
)

// Purger removes stored rows older than maxAge and reports how many went.
type Purger interface {
	PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Sweeper periodically purges the shadow store
type Sweeper struct {
	store    Purger
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// New creates a Sweeper. A non-positive maxAge disables purging.
func New(store Purger, maxAge, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		maxAge:   maxAge,
		interval: interval,
		logger:   logger.With("component", "sweeper"),
	}
}

// Sweep runs one purge pass.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	if s.maxAge <= 0 {
		return 0, nil
	}
	n, err := s.store.PurgeOlderThan(ctx, s.maxAge)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("purge").Inc()
		s.logger.Error("purging old messages", "max_age", s.maxAge, "error", err)
		return 0, err
	}
	if n > 0 {
		metrics.MessagesPurged.Add(float64(n))
		s.logger.Info("purged old messages", "count", n, "max_age", s.maxAge)
	}
	return n, nil
}

// Run sweeps once immediately, then every interval until ctx is done. A
// non-positive interval keeps only the startup sweep.
func (s *Sweeper) Run(ctx context.Context) {
	if s.maxAge <= 0 {
		s.logger.Info("retention sweeping disabled")
		return
	}

	_, _ = s.Sweep(ctx)

	if s.interval <= 0 {
		s.logger.Info("periodic retention sweeping disabled, startup sweep done")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.Sweep(ctx)
		}
	}
}
