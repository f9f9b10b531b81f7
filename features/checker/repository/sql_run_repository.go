package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"servicecheck/features/checker"
	"servicecheck/internal/db"
	"time"
)

var (
	ErrInsertRun      = errors.New("failed to insert run")
	ErrUpdateRun      = errors.New("failed to update run")
	ErrQueryRuns      = errors.New("failed to query runs")
	ErrScanRun        = errors.New("failed to scan run row")
	ErrIterateRunRows = errors.New("error iterating run rows")
)

const (
	defaultListLimit = 20
	maxListLimit     = 500

	runColumns = `id, trigger_source, status, dry_run, start_time, end_time,
		providers_checked, providers_failed, services_deactivated, error`
)

// SQLRunRepository stores runs in the check_runs table.
type SQLRunRepository struct {
	db *db.DB
}

func NewSQLRunRepository(conn *db.DB) *SQLRunRepository {
	return &SQLRunRepository{db: conn}
}

func encodeLists(run *checker.Run) (failed, deactivated string) {
	failedNames := run.ProvidersFailed
	if failedNames == nil {
		failedNames = []string{}
	}
	ids := run.ServicesDeactivated
	if ids == nil {
		ids = []int64{}
	}
	// marshalling []string and []int64 cannot fail
	f, _ := json.Marshal(failedNames)
	d, _ := json.Marshal(ids)
	return string(f), string(d)
}

func endTimeValue(run *checker.Run) sql.NullTime {
	if run.EndTime == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: run.EndTime.UTC(), Valid: true}
}

func (r *SQLRunRepository) InsertRun(ctx context.Context, run *checker.Run) error {
	failed, deactivated := encodeLists(run)

	_, err := r.db.ExecContext(ctx, r.db.Dialect.Rebind(`
		INSERT INTO check_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), run.ID, string(run.Trigger), string(run.Status), run.DryRun, run.StartTime.UTC(), endTimeValue(run),
		run.ProvidersChecked, failed, deactivated, run.Error)
	if err != nil {
		return errors.Join(ErrInsertRun, err)
	}
	return nil
}

func (r *SQLRunRepository) UpdateRun(ctx context.Context, run *checker.Run) error {
	failed, deactivated := encodeLists(run)

	_, err := r.db.ExecContext(ctx, r.db.Dialect.Rebind(`
		UPDATE check_runs
		SET status = ?, end_time = ?, providers_checked = ?, providers_failed = ?,
			services_deactivated = ?, error = ?
		WHERE id = ?
	`), string(run.Status), endTimeValue(run), run.ProvidersChecked, failed, deactivated, run.Error, run.ID)
	if err != nil {
		return errors.Join(ErrUpdateRun, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*checker.Run, error) {
	var (
		run             checker.Run
		trigger, status string
		endTime         sql.NullTime
		failedJSON      string
		deactivatedJSON string
	)

	err := row.Scan(
		&run.ID, &trigger, &status, &run.DryRun, &run.StartTime, &endTime,
		&run.ProvidersChecked, &failedJSON, &deactivatedJSON, &run.Error,
	)
	if err != nil {
		return nil, err
	}

	run.Trigger = checker.Trigger(trigger)
	run.Status = checker.RunStatus(status)
	run.StartTime = run.StartTime.UTC()
	if endTime.Valid {
		t := endTime.Time.UTC()
		run.EndTime = &t
	}

	run.ProvidersFailed = []string{}
	run.ServicesDeactivated = []int64{}
	_ = json.Unmarshal([]byte(failedJSON), &run.ProvidersFailed)
	_ = json.Unmarshal([]byte(deactivatedJSON), &run.ServicesDeactivated)

	return &run, nil
}

func (r *SQLRunRepository) GetRun(ctx context.Context, runID string) (*checker.Run, error) {
	row := r.db.QueryRowContext(ctx, r.db.Dialect.Rebind(`SELECT `+runColumns+` FROM check_runs WHERE id = ?`), runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, checker.ErrRunNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrScanRun, err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit falls
// back to the default page size.
func (r *SQLRunRepository) ListRuns(ctx context.Context, limit int) ([]*checker.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	rows, err := r.db.QueryContext(ctx, r.db.Dialect.Rebind(`
		SELECT `+runColumns+`
		FROM check_runs
		ORDER BY start_time DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, errors.Join(ErrQueryRuns, err)
	}
	defer rows.Close()

	runs := []*checker.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Join(ErrScanRun, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrIterateRunRows, err)
	}
	return runs, nil
}

// MarkInterrupted fails every run left in the running state, typically by a
// process that died mid-run. It returns how many records it closed.
func (r *SQLRunRepository) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Dialect.Rebind(`
		UPDATE check_runs
		SET status = ?, end_time = ?, error = ?
		WHERE status = ?
	`), string(checker.RunStatusFailed), time.Now().UTC(), "interrupted", string(checker.RunStatusRunning))
	if err != nil {
		return 0, errors.Join(ErrUpdateRun, err)
	}
	return res.RowsAffected()
}
