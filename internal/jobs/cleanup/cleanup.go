package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Job retires expired temporary bans in the background. Restriction checks
// evaluate expiry in the query, so correctness never depends on this running;
// it keeps the is_active flag honest and evicts stale cache entries.
type Job struct {
	sweeper  expiredSweeper
	cache    statusInvalidator
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

type expiredSweeper interface {
	DeactivateExpired(ctx context.Context, now time.Time) ([]int64, error)
}

type statusInvalidator interface {
	Invalidate(ctx context.Context, accountID int64) error
}

func New(sweeper expiredSweeper, cache statusInvalidator, interval time.Duration, logger *zap.Logger) *Job {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		sweeper:  sweeper,
		cache:    cache,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.sweeper == nil {
		return nil
	}

	accountIDs, err := j.sweeper.DeactivateExpired(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("sweep expired restrictions: %w", err)
	}
	if len(accountIDs) == 0 {
		return nil
	}

	if j.cache != nil {
		for _, accountID := range accountIDs {
			if err := j.cache.Invalidate(ctx, accountID); err != nil {
				j.logger.Warn("failed to drop restriction status cache entry",
					zap.Error(err), zap.Int64("account_id", accountID))
			}
		}
	}

	j.logger.Info("expired restrictions retired", zap.Int("count", len(accountIDs)))
	return nil
}

// Start runs the sweep on the configured interval until ctx is cancelled.
func (j *Job) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("restriction sweep failed", zap.Error(err))
			}
		}
	}
}
