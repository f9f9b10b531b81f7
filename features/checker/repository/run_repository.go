package repository

import (
	"context"
	"servicecheck/features/checker"
)

// RunRepository defines data access methods for check run records.
type RunRepository interface {
	InsertRun(ctx context.Context, run *checker.Run) error
	UpdateRun(ctx context.Context, run *checker.Run) error
	GetRun(ctx context.Context, runID string) (*checker.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*checker.Run, error)
}

var _ checker.RunStore = (RunRepository)(nil)
