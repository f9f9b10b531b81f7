package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"servicecheck/features/catalog/archive"
	"servicecheck/features/checker"
	"servicecheck/features/checker/repository"
	"servicecheck/internal/config"
	"servicecheck/internal/runner"
	"servicecheck/internal/utils"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedRunner finishes a run only when release is closed.
type gatedRunner struct {
	release chan struct{}
}

func (g *gatedRunner) Run(ctx context.Context, opts checker.RunOptions) (*checker.RunReport, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &checker.RunReport{RunID: opts.RunID, DryRun: opts.DryRun, ProvidersChecked: 1}, nil
}

type testApp struct {
	app     *Application
	runs    *checker.RunManager
	gate    *gatedRunner
	archive *archive.BadgerArchive
}

func newTestApp(t *testing.T, scheduler *runner.Runner) *testApp {
	t.Helper()
	_, conn := utils.Initialize(t)

	gate := &gatedRunner{release: make(chan struct{})}
	runs := checker.NewRunManager(gate, repository.NewSQLRunRepository(conn))

	store, err := archive.Open(&config.ArchiveConfig{Enabled: true, InMemory: true, TTL: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svcs := &Services{DB: conn, Runs: runs, Archive: store}
	if scheduler != nil {
		svcs.Schedule = scheduler
	}

	cfg := config.Default().Server
	app, err := NewApplication(&cfg, svcs)
	require.NoError(t, err)

	t.Cleanup(func() {
		select {
		case <-gate.release:
		default:
			close(gate.release)
		}
		runs.Wait()
	})

	return &testApp{app: app, runs: runs, gate: gate, archive: store}
}

func (ta *testApp) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ta.app.Echo.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestNewApplicationRequiresRunManager(t *testing.T) {
	cfg := config.Default().Server
	_, err := NewApplication(&cfg, &Services{})
	assert.ErrorIs(t, err, ErrServiceInitFailed)
}

func TestHealthStatus(t *testing.T) {
	ta := newTestApp(t, nil)

	rec, body := ta.do(t, http.MethodGet, "/health/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["database"])
	assert.Equal(t, false, body["run_in_progress"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestStartRunConflictAndHistory(t *testing.T) {
	ta := newTestApp(t, nil)

	rec, body := ta.do(t, http.MethodPost, "/runs", `{"dry_run":true}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	data := body["data"].(map[string]any)
	runID := data["run_id"].(string)
	assert.NotEmpty(t, runID)
	assert.Equal(t, true, data["dry_run"])

	rec, body = ta.do(t, http.MethodPost, "/runs", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, runID, body["details"].(map[string]any)["run_id"])

	rec, body = ta.do(t, http.MethodGet, "/runs/"+runID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", body["data"].(map[string]any)["status"])

	close(ta.gate.release)
	ta.runs.Wait()

	rec, body = ta.do(t, http.MethodGet, "/runs/"+runID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	run := body["data"].(map[string]any)
	assert.Equal(t, "completed", run["status"])
	assert.Equal(t, "api", run["trigger"])
	assert.Equal(t, true, run["dry_run"])

	rec, body = ta.do(t, http.MethodGet, "/runs?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"].([]any), 1)
}

func TestListRunsValidatesLimit(t *testing.T) {
	ta := newTestApp(t, nil)

	rec, _ := ta.do(t, http.MethodGet, "/runs?limit=1000", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ta.do(t, http.MethodGet, "/runs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUnknownRun(t *testing.T) {
	ta := newTestApp(t, nil)

	rec, body := ta.do(t, http.MethodGet, "/runs/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "does-not-exist", body["input"])
}

func TestScheduleWithoutScheduler(t *testing.T) {
	ta := newTestApp(t, nil)

	rec, body := ta.do(t, http.MethodGet, "/schedule", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, runner.CheckJobName, data["job"])
	assert.Equal(t, false, data["scheduled"])
}

func TestScheduleReportsNextRun(t *testing.T) {
	scheduler, err := runner.NewRunner()
	require.NoError(t, err)
	t.Cleanup(func() { _ = scheduler.Stop(context.Background()) })

	ta := newTestApp(t, scheduler)
	_, err = scheduler.EnsureCheckScheduled(ta.runs, runner.DefaultCheckInterval, false)
	require.NoError(t, err)
	scheduler.Start()

	require.Eventually(t, func() bool {
		_, body := ta.do(t, http.MethodGet, "/schedule", "")
		return body["data"].(map[string]any)["scheduled"] == true
	}, 2*time.Second, 20*time.Millisecond)
}

func TestProviderCatalog(t *testing.T) {
	ta := newTestApp(t, nil)

	rec, _ := ta.do(t, http.MethodGet, "/providers/1/catalog", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = ta.do(t, http.MethodGet, "/providers/abc/catalog", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.NoError(t, ta.archive.Put(context.Background(), archive.Snapshot{
		ProviderID:   1,
		ProviderName: "A",
		RunID:        "run-1",
		FetchedAt:    time.Now(),
		Body:         []byte(`[{"id":1,"min":1,"max":10}]`),
	}))

	rec, body := ta.do(t, http.MethodGet, "/providers/1/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "A", data["provider_name"])
	assert.Equal(t, "run-1", data["run_id"])
	assert.Len(t, data["catalog"].([]any), 1)
}

func TestPrometheusEndpoint(t *testing.T) {
	ta := newTestApp(t, nil)

	rec, _ := ta.do(t, http.MethodGet, "/metrics/prometheus", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "servicecheck_run_active")
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	ta := newTestApp(t, nil)

	rec, body := ta.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", body["error"])
	assert.Equal(t, "/nope", body["path"])
	assert.Equal(t, rec.Header().Get("X-Request-ID"), body["request_id"])
}

func TestGetApplicationReturnsLastBuilt(t *testing.T) {
	ta := newTestApp(t, nil)

	app, err := GetApplication()
	require.NoError(t, err)
	assert.Same(t, ta.app, app)
}
