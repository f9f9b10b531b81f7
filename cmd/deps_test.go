package cmd

import (
	"context"
	"errors"
	"servicecheck/features/checker"
	checkerrepo "servicecheck/features/checker/repository"
	"servicecheck/internal/db"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseInterruptedRuns(t *testing.T) {
	conn, err := db.Connect(db.WithInMemory(true))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	repo := checkerrepo.NewSQLRunRepository(conn)
	ctx := context.Background()
	require.NoError(t, repo.InsertRun(ctx, &checker.Run{
		ID: "left-over", Trigger: checker.TriggerSchedule, Status: checker.RunStatusRunning, StartTime: time.Now(),
	}))

	assert.EqualValues(t, 1, closeInterruptedRuns(ctx, repo))

	stored, err := repo.GetRun(ctx, "left-over")
	require.NoError(t, err)
	assert.Equal(t, checker.RunStatusFailed, stored.Status)
}

type failingMarker struct{}

func (failingMarker) MarkInterrupted(context.Context) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestCloseInterruptedRunsToleratesErrors(t *testing.T) {
	assert.Zero(t, closeInterruptedRuns(context.Background(), failingMarker{}))
}
