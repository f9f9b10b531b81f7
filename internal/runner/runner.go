package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

var (
	ErrFailedToCreateScheduler = errors.New("failed to create scheduler")
	ErrFailedToCreateJob       = errors.New("failed to create job")
	ErrFailedToGetNextRun      = errors.New("failed to get next run time")
	ErrJobNotFound             = errors.New("job not found")
	ErrInvalidInterval         = errors.New("job interval must be positive")
)

// Runner wraps a gocron scheduler whose jobs are addressed by name.
type Runner struct {
	scheduler gocron.Scheduler
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

// NewRunner creates a scheduler in singleton mode: a tick that arrives while the
// previous run of the same job is still going is rescheduled, not overlapped.
func NewRunner() (*Runner, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithGlobalJobOptions(
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		),
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create scheduler")
		return nil, errors.Join(ErrFailedToCreateScheduler, err)
	}

	return &Runner{
		scheduler: scheduler,
		jobs:      make(map[string]gocron.Job),
	}, nil
}

func (r *Runner) hasJob(name string) bool {
	if _, ok := r.jobs[name]; ok {
		return true
	}
	for _, job := range r.scheduler.Jobs() {
		if job.Name() == name {
			r.jobs[name] = job
			return true
		}
	}
	return false
}

// EnsureScheduled registers task to run every interval under name. Calling it
// again with a name that is already registered changes nothing and reports
// false.
func (r *Runner) EnsureScheduled(name string, interval time.Duration, task func()) (bool, error) {
	if interval <= 0 {
		return false, ErrInvalidInterval
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hasJob(name) {
		log.Debug().Str("job", name).Msg("Job already scheduled")
		return false, nil
	}

	job, err := r.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithTags(name),
	)
	if err != nil {
		log.Error().Err(err).Str("job", name).Msg("Failed to schedule job")
		return false, errors.Join(ErrFailedToCreateJob, err)
	}
	r.jobs[name] = job

	log.Info().
		Str("job", name).
		Dur("interval", interval).
		Msg("Job registered with scheduler")

	return true, nil
}

// Start begins the scheduler
func (r *Runner) Start() {
	r.scheduler.Start()

	r.mu.RLock()
	defer r.mu.RUnlock()
	log.Info().Int("jobs", len(r.jobs)).Msg("Scheduler started")
}

// Stop halts the scheduler and waits for running jobs.
func (r *Runner) Stop(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- r.scheduler.Shutdown() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow fires the named job immediately, outside its schedule.
func (r *Runner) RunNow(name string) error {
	r.mu.RLock()
	job, exists := r.jobs[name]
	r.mu.RUnlock()

	if !exists {
		return ErrJobNotFound
	}
	return job.RunNow()
}

// NextRun returns the next scheduled run of the named job.
func (r *Runner) NextRun(name string) (time.Time, error) {
	r.mu.RLock()
	job, exists := r.jobs[name]
	r.mu.RUnlock()

	if !exists {
		return time.Time{}, ErrJobNotFound
	}

	next, err := job.NextRun()
	if err != nil {
		return time.Time{}, errors.Join(ErrFailedToGetNextRun, err)
	}
	return next, nil
}

// JobCount returns how many jobs are registered.
func (r *Runner) JobCount() int {
	return len(r.scheduler.Jobs())
}
