package checker

import (
	"context"
	"errors"
	"servicecheck/features/services"
	"servicecheck/internal/collector"
	"servicecheck/internal/telemetry"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrRunInProgress = errors.New("a check run is already in progress")
	ErrRunNotFound   = errors.New("run not found")
)

// RunStore persists run records.
type RunStore interface {
	InsertRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
}

// CheckRunner performs one check run.
type CheckRunner interface {
	Run(ctx context.Context, opts RunOptions) (*RunReport, error)
}

// RunManager guarantees that at most one check runs at a time, whether it was
// started by the scheduler, the API or the CLI, and records every run.
type RunManager struct {
	checker    CheckRunner
	store      RunStore
	runTimeout time.Duration

	mu        sync.RWMutex
	current   *Run
	isRunning atomic.Bool
	wg        sync.WaitGroup
}

type ManagerOption func(*RunManager)

// WithRunTimeout bounds each run; zero means no bound.
func WithRunTimeout(d time.Duration) ManagerOption {
	return func(m *RunManager) {
		m.runTimeout = d
	}
}

func NewRunManager(checker CheckRunner, store RunStore, opts ...ManagerOption) *RunManager {
	m := &RunManager{checker: checker, store: store}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *RunManager) tryStart(ctx context.Context, trigger Trigger, dryRun bool) (*Run, error) {
	// fast path without the lock
	if m.isRunning.Load() {
		return nil, ErrRunInProgress
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning.Load() {
		return nil, ErrRunInProgress
	}

	run := &Run{
		ID:                  uuid.NewString(),
		Trigger:             trigger,
		Status:              RunStatusRunning,
		DryRun:              dryRun,
		StartTime:           time.Now().UTC(),
		ProvidersFailed:     []string{},
		ServicesDeactivated: []int64{},
	}

	if err := m.store.InsertRun(ctx, run); err != nil {
		log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to record run start")
	}

	m.current = run
	m.isRunning.Store(true)
	collector.GetMetricsCollector().SetRunActive(true)

	log.Info().
		Str("run_id", run.ID).
		Str("trigger", string(trigger)).
		Bool("dry_run", dryRun).
		Msg("Run started")

	return run, nil
}

func (m *RunManager) finish(ctx context.Context, run *Run, report *RunReport, runErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	endTime := time.Now().UTC()
	run.EndTime = &endTime
	if report != nil {
		run.ProvidersChecked = report.ProvidersChecked
		run.ProvidersFailed = report.FailedNames()
		run.ServicesDeactivated = services.IDs(report.Deactivated)
	}

	run.Status = RunStatusCompleted
	if runErr != nil {
		run.Status = RunStatusFailed
		run.Error = runErr.Error()
	}

	// the run context may have expired; the record must still be written
	if err := m.store.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to record run end")
	}

	mc := collector.GetMetricsCollector()
	mc.ObserveRun(string(run.Trigger), string(run.Status), run.Duration())
	mc.SetRunActive(false)
	telemetry.RecordRun(ctx, string(run.Trigger), string(run.Status), run.Duration())

	log.Info().
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Dur("duration", run.Duration()).
		Msg("Run finished")

	m.current = nil
	m.isRunning.Store(false)
}

func (m *RunManager) execute(ctx context.Context, run *Run) (*RunReport, error) {
	if m.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.runTimeout)
		defer cancel()
	}

	report, err := m.checker.Run(ctx, RunOptions{RunID: run.ID, DryRun: run.DryRun})
	m.finish(ctx, run, report, err)
	return report, err
}

// Execute runs a check and waits for it. It returns ErrRunInProgress when
// another run is active.
func (m *RunManager) Execute(ctx context.Context, trigger Trigger, dryRun bool) (*RunReport, error) {
	run, err := m.tryStart(ctx, trigger, dryRun)
	if err != nil {
		return nil, err
	}
	return m.execute(ctx, run)
}

// Start launches a check in the background and returns its run id.
func (m *RunManager) Start(trigger Trigger, dryRun bool) (string, error) {
	run, err := m.tryStart(context.Background(), trigger, dryRun)
	if err != nil {
		return "", err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if _, err := m.execute(context.Background(), run); err != nil {
			log.Error().Err(err).Str("run_id", run.ID).Msg("Background run failed")
		}
	}()

	return run.ID, nil
}

// Wait blocks until every background run has finished.
func (m *RunManager) Wait() {
	m.wg.Wait()
}

func (m *RunManager) IsRunning() bool {
	return m.isRunning.Load()
}

// Current returns a copy of the active run, or nil.
func (m *RunManager) Current() *Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return nil
	}
	run := *m.current
	return &run
}

func (m *RunManager) GetRun(ctx context.Context, runID string) (*Run, error) {
	if current := m.Current(); current != nil && current.ID == runID {
		return current, nil
	}
	return m.store.GetRun(ctx, runID)
}

// ListRuns returns the most recent runs first.
func (m *RunManager) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	return m.store.ListRuns(ctx, limit)
}
