package reconcile

import (
	"context"
	"errors"
	"fmt"
	"servicecheck/features/catalog"
	"servicecheck/features/providers"
	"servicecheck/features/services"
	"servicecheck/features/services/repository"
	"servicecheck/internal/db"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeededRepository(t *testing.T) (*repository.SQLServiceRepository, *db.DB) {
	t.Helper()
	conn, err := db.Connect(db.WithInMemory(true))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Exec(`INSERT INTO services (id, name, api_provider_id, api_service_id, min, max, status) VALUES
		(1, 'one', 1, '1', 0, 0, 1),
		(2, 'two', 1, '2', 0, 0, 1),
		(3, 'three', 1, '3', 0, 0, 1),
		(4, 'other', 2, '3', 0, 0, 1)`)
	require.NoError(t, err)
	return repository.NewSQLServiceRepository(conn), conn
}

func mustParse(t *testing.T, provider providers.Provider, body string) *catalog.Catalog {
	t.Helper()
	entries, err := catalog.ParseEntries([]byte(body))
	require.NoError(t, err)
	return &catalog.Catalog{Provider: provider, Entries: entries}
}

func TestReconcileScenario(t *testing.T) {
	repo, _ := newSeededRepository(t)
	ctx := context.Background()
	providerA := providers.Provider{ID: 1, Name: "A"}

	outcome := NewReconciler(repo, false).Reconcile(ctx,
		mustParse(t, providerA, `[{"id":1,"min":1,"max":10},{"id":2,"min":5,"max":20}]`))

	require.Nil(t, outcome.Failure)
	assert.Equal(t, 2, outcome.BoundsUpdated)
	assert.Equal(t, []int64{3}, services.IDs(outcome.Missing))

	list, err := repo.GetByIDs(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, services.Bounds{Min: 1, Max: 10}, services.Bounds{Min: list[0].Min, Max: list[0].Max})
	assert.Equal(t, services.Bounds{Min: 5, Max: 20}, services.Bounds{Min: list[1].Min, Max: list[1].Max})
}

func TestReconcileEmptyCatalog(t *testing.T) {
	repo, _ := newSeededRepository(t)

	outcome := NewReconciler(repo, false).Reconcile(context.Background(),
		mustParse(t, providers.Provider{ID: 1, Name: "A"}, `[]`))

	require.Nil(t, outcome.Failure)
	assert.Equal(t, []int64{1, 2, 3}, services.IDs(outcome.Missing))
}

func TestReconcileSkipsUnresolvedEntries(t *testing.T) {
	repo, _ := newSeededRepository(t)

	outcome := NewReconciler(repo, false).Reconcile(context.Background(),
		mustParse(t, providers.Provider{ID: 1, Name: "A"}, `[{"service":"1"},{"name":"mystery","min":1},{"service":"2"},{"service":"2"}]`))

	require.Nil(t, outcome.Failure)
	assert.Equal(t, 1, outcome.Unresolved)
	assert.Equal(t, []int64{3}, services.IDs(outcome.Missing))
}

func TestReconcileDryRun(t *testing.T) {
	repo, conn := newSeededRepository(t)

	outcome := NewReconciler(repo, true).Reconcile(context.Background(),
		mustParse(t, providers.Provider{ID: 1, Name: "A"}, `[{"id":1,"min":3,"max":4},{"id":77,"min":1,"max":2}]`))

	require.Nil(t, outcome.Failure)
	assert.Equal(t, 1, outcome.BoundsUpdated, "only entries bound to a local service would update")
	assert.Equal(t, 1, outcome.BoundsUnmatched)
	assert.Equal(t, []int64{2, 3}, services.IDs(outcome.Missing))

	var maxBound int64
	require.NoError(t, conn.QueryRow(`SELECT max FROM services WHERE id = 1`).Scan(&maxBound))
	assert.Zero(t, maxBound)
}

// flakyRepository fails bound updates for one provider service id.
type flakyRepository struct {
	repository.ServiceRepository
	failOn      string
	failMissing bool
	updated     []string
}

func (f *flakyRepository) UpdateBounds(ctx context.Context, providerID int64, id string, b services.Bounds) (int64, error) {
	if id == f.failOn {
		return 0, errors.New("disk I/O error")
	}
	f.updated = append(f.updated, id)
	return f.ServiceRepository.UpdateBounds(ctx, providerID, id, b)
}

func (f *flakyRepository) ListBound(ctx context.Context, providerID int64) ([]services.Service, error) {
	if f.failMissing {
		return nil, errors.New("database is locked")
	}
	return f.ServiceRepository.ListBound(ctx, providerID)
}

func (f *flakyRepository) FindMissing(ctx context.Context, providerID int64, ids []string) ([]services.Service, error) {
	if f.failMissing {
		return nil, errors.New("database is locked")
	}
	return f.ServiceRepository.FindMissing(ctx, providerID, ids)
}

func TestReconcileIsolatesBoundErrors(t *testing.T) {
	base, _ := newSeededRepository(t)
	repo := &flakyRepository{ServiceRepository: base, failOn: "1"}

	outcome := NewReconciler(repo, false).Reconcile(context.Background(),
		mustParse(t, providers.Provider{ID: 1, Name: "A"}, `[{"id":1},{"id":2},{"id":3}]`))

	require.Nil(t, outcome.Failure)
	assert.Equal(t, 1, outcome.BoundErrors)
	assert.Equal(t, 2, outcome.BoundsUpdated)
	assert.Equal(t, []string{"2", "3"}, repo.updated)
	assert.Empty(t, outcome.Missing, "a failed bound update does not make the service missing")
}

func TestReconcileMissingQueryFailure(t *testing.T) {
	base, _ := newSeededRepository(t)
	repo := &flakyRepository{ServiceRepository: base, failMissing: true}

	outcome := NewReconciler(repo, false).Reconcile(context.Background(),
		mustParse(t, providers.Provider{ID: 1, Name: "A"}, `[]`))

	require.NotNil(t, outcome.Failure)
	assert.Contains(t, outcome.Failure.Reason, "datastore")
	assert.Empty(t, outcome.Missing)

	outcome = NewReconciler(repo, true).Reconcile(context.Background(),
		mustParse(t, providers.Provider{ID: 1, Name: "A"}, `[]`))
	require.NotNil(t, outcome.Failure)
	assert.Contains(t, outcome.Failure.Reason, "datastore")
}

func TestReconcileLargeCatalog(t *testing.T) {
	repo, _ := newSeededRepository(t)

	var body strings.Builder
	body.WriteString(`[{"id":1,"min":2,"max":3},{"id":2,"min":2,"max":3}`)
	for i := 1000; i < 41000; i++ {
		fmt.Fprintf(&body, `,{"id":%d,"min":1,"max":1}`, i)
	}
	body.WriteString(`]`)

	outcome := NewReconciler(repo, false).Reconcile(context.Background(),
		mustParse(t, providers.Provider{ID: 1, Name: "A"}, body.String()))

	require.Nil(t, outcome.Failure)
	assert.Equal(t, 40002, outcome.Entries)
	assert.Equal(t, 2, outcome.BoundsUpdated)
	assert.Equal(t, []int64{3}, services.IDs(outcome.Missing))
}

func TestCollect(t *testing.T) {
	a := providers.Provider{ID: 1, Name: "A"}
	b := providers.Provider{ID: 2, Name: "B"}
	s3 := services.Service{ID: 3, Name: "three"}

	result := Collect([]ProviderOutcome{
		{Provider: a, Missing: []services.Service{s3, s3}},
		Failed(b, &catalog.FetchError{Provider: "B", StatusCode: 503, Err: catalog.ErrUnexpectedStatus}),
		{Provider: a, Missing: []services.Service{s3}},
	})

	assert.Equal(t, []int64{3}, result.MissingIDs())
	assert.Equal(t, []string{"B"}, result.FailedNames())
	assert.Equal(t, 503, result.Failed[0].StatusCode)
}

func TestDeactivator(t *testing.T) {
	repo, conn := newSeededRepository(t)
	ctx := context.Background()
	missing := []services.Service{{ID: 3, Name: "three"}}

	done, err := NewDeactivator(repo, true).Deactivate(ctx, missing)
	require.NoError(t, err)
	assert.Empty(t, done)

	done, err = NewDeactivator(repo, false).Deactivate(ctx, missing)
	require.NoError(t, err)
	assert.Equal(t, missing, done)

	done, err = NewDeactivator(repo, false).Deactivate(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, done)

	// already deactivated by the previous call, so nothing is reported again
	done, err = NewDeactivator(repo, false).Deactivate(ctx, missing)
	require.NoError(t, err)
	assert.Empty(t, done)

	var status int
	var providerID *int64
	require.NoError(t, conn.QueryRow(`SELECT status, api_provider_id FROM services WHERE id = 3`).Scan(&status, &providerID))
	assert.Equal(t, services.StatusInactive, status)
	assert.Nil(t, providerID)
}

type brokenDeactivateRepository struct {
	repository.ServiceRepository
}

func (brokenDeactivateRepository) Deactivate(context.Context, []int64) ([]int64, error) {
	return nil, errors.New("constraint failed")
}

func TestDeactivatorFailure(t *testing.T) {
	_, err := NewDeactivator(brokenDeactivateRepository{}, false).
		Deactivate(context.Background(), []services.Service{{ID: 1}})
	assert.ErrorIs(t, err, ErrDeactivation)
}
