package runner

import (
	"context"
	"errors"
	"servicecheck/internal/config"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrRunnerCreate  = errors.New("failed to create runner")
	ErrCheckRegister = errors.New("failed to register service check")
	ErrRunnerNotInit = errors.New("runner not initialized")
)

// global holds the scheduler owned by the serve command.
var global struct {
	sync.Mutex
	runner *Runner
}

// InitializeRunner creates the process scheduler, ensures the service check
// job and starts it. Calling it again while a runner is active returns that
// runner unchanged.
func InitializeRunner(executor RunExecutor, settings *config.CheckerConfig) (*Runner, error) {
	global.Lock()
	defer global.Unlock()

	if global.runner != nil {
		return global.runner, nil
	}

	r, err := NewRunner()
	if err != nil {
		return nil, errors.Join(ErrRunnerCreate, err)
	}

	if _, err := r.EnsureCheckScheduled(executor, settings.Interval, settings.DryRun); err != nil {
		_ = r.Stop(context.Background())
		return nil, errors.Join(ErrCheckRegister, err)
	}

	r.Start()
	global.runner = r

	log.Info().
		Dur("interval", settings.Interval).
		Bool("dry_run", settings.DryRun).
		Msg("Service check scheduler started")
	return r, nil
}

func GetRunner() (*Runner, error) {
	global.Lock()
	defer global.Unlock()

	if global.runner == nil {
		return nil, ErrRunnerNotInit
	}
	return global.runner, nil
}

// ShutdownRunner stops the process scheduler and forgets it.
func ShutdownRunner(ctx context.Context) error {
	global.Lock()
	r := global.runner
	global.runner = nil
	global.Unlock()

	if r == nil {
		return nil
	}
	return r.Stop(ctx)
}
