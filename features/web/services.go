package web

import (
	"errors"
	"servicecheck/features/checker"
	"servicecheck/features/web/handlers/catalog"
	"servicecheck/features/web/handlers/health"
	"servicecheck/features/web/handlers/schedule"
)

var ErrMissingRunManager = errors.New("run manager is required")

// Services are the dependencies the HTTP handlers work on. Schedule and
// Archive are optional.
type Services struct {
	DB       health.Pinger
	Runs     *checker.RunManager
	Schedule schedule.Scheduler
	Archive  catalog.SnapshotReader
}

func (s *Services) validate() error {
	if s == nil || s.Runs == nil {
		return ErrMissingRunManager
	}
	return nil
}
