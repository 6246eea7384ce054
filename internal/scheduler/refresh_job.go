package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/modules/pricing"
)

// UserSource yields the users whose holdings need refreshing
type UserSource interface {
	UserIDsWithTrades() ([]int64, error)
}

// AutoRefreshJob periodically refreshes quotes for every held asset of every
// active user. Failures are logged, never surfaced: the next tick retries.
type AutoRefreshJob struct {
	refresher *pricing.RefreshService
	users     UserSource
	timeout   time.Duration
	log       zerolog.Logger
}

// NewAutoRefreshJob creates a new automatic refresh job
func NewAutoRefreshJob(refresher *pricing.RefreshService, users UserSource, timeout time.Duration, log zerolog.Logger) *AutoRefreshJob {
	return &AutoRefreshJob{
		refresher: refresher,
		users:     users,
		timeout:   timeout,
		log:       log.With().Str("job", "auto_refresh").Logger(),
	}
}

// Name returns the job name
func (j *AutoRefreshJob) Name() string {
	return "auto_refresh"
}

// Run refreshes held-asset prices for all users with trades
func (j *AutoRefreshJob) Run() error {
	userIDs, err := j.users.UserIDsWithTrades()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	for _, userID := range userIDs {
		result, err := j.refresher.RefreshHeldAssets(ctx, userID, true)
		if err != nil {
			j.log.Error().Err(err).Int64("user_id", userID).Msg("Automatic refresh failed")
			continue
		}
		j.log.Debug().
			Int64("user_id", userID).
			Int("succeeded", result.Succeeded).
			Int("failed", result.Failed).
			Msg("Automatic refresh completed")
	}

	return nil
}
