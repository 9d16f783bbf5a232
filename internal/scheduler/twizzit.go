package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/twizzit"
)

const twizzitJobTimeout = 30 * time.Minute

// RegisterTwizzitSyncJob runs a full sync for every active credential. An
// empty cron expression disables the job.
func RegisterTwizzitSyncJob(service *twizzit.Service, cronExpr string) error {
	if strings.TrimSpace(cronExpr) == "" {
		log.Info().Msg("Twizzit sync job disabled")
		return nil
	}
	if service == nil {
		return fmt.Errorf("twizzit sync job requires a sync service")
	}

	jobName := "twizzit_sync"
	jobLogger := log.With().
		Str("component", "twizzit_sync_job").
		Str("job_name", jobName).
		Str("cron", cronExpr).
		Logger()

	_, err := AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), twizzitJobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		failures, err := service.SyncAll(ctx)
		if err != nil {
			jobLogger.Error().Err(err).Msg("Twizzit sync job failed")
			return
		}
		if failures > 0 {
			jobLogger.Warn().Int("failed_runs", failures).Msg("Twizzit sync job finished with failures")
		}
	})
	if err != nil {
		return fmt.Errorf("add twizzit sync job: %w", err)
	}
	return nil
}
