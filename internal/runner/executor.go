package runner

import (
	"context"
	"errors"
	"servicecheck/features/checker"
	"time"

	"github.com/rs/zerolog/log"
)

// CheckJobName is the scheduler name of the periodic service check.
const CheckJobName = "service_check"

// DefaultCheckInterval is the period between two scheduled checks.
const DefaultCheckInterval = 600 * time.Second

// RunExecutor starts check runs; implemented by checker.RunManager.
type RunExecutor interface {
	Execute(ctx context.Context, trigger checker.Trigger, dryRun bool) (*checker.RunReport, error)
}

// CheckTask is the scheduled job body. Every error is logged and swallowed so
// the next tick still fires.
func CheckTask(executor RunExecutor, dryRun bool) func() {
	return func() {
		startedAt := time.Now()
		log.Info().Msg("Starting scheduled service check")

		report, err := executor.Execute(context.Background(), checker.TriggerSchedule, dryRun)
		if errors.Is(err, checker.ErrRunInProgress) {
			log.Warn().Msg("Skipping scheduled service check, a run is already in progress")
			return
		}
		if err != nil {
			log.Error().Err(err).Dur("duration", time.Since(startedAt)).Msg("Scheduled service check failed")
			return
		}

		log.Info().
			Str("run_id", report.RunID).
			Int("providers_failed", len(report.Failed)).
			Int("services_deactivated", len(report.Deactivated)).
			Dur("duration", time.Since(startedAt)).
			Msg("Completed scheduled service check")
	}
}

// EnsureCheckScheduled registers the periodic check once.
func (r *Runner) EnsureCheckScheduled(executor RunExecutor, interval time.Duration, dryRun bool) (bool, error) {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return r.EnsureScheduled(CheckJobName, interval, CheckTask(executor, dryRun))
}
