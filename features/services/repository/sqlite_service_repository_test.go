package repository

import (
	"context"
	"servicecheck/features/services"
	"servicecheck/internal/db"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (*SQLServiceRepository, *db.DB) {
	t.Helper()

	conn, err := db.Connect(db.WithInMemory(true))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Exec(`INSERT INTO services (id, name, api_provider_id, api_service_id, min, max, status) VALUES
		(1, 'likes', 10, '1', 0, 0, 1),
		(2, 'followers', 10, '2', 0, 0, 1),
		(3, 'views', 10, '3', 0, 0, 1),
		(4, 'comments', 20, '1', 0, 0, 1),
		(5, 'manual', NULL, NULL, 7, 9, 0)`)
	require.NoError(t, err)

	return NewSQLServiceRepository(conn), conn
}

func TestUpdateBounds(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	affected, err := repo.UpdateBounds(ctx, 10, "2", services.Bounds{Min: 5, Max: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	affected, err = repo.UpdateBounds(ctx, 10, "99", services.Bounds{Min: 1, Max: 2})
	require.NoError(t, err)
	assert.Zero(t, affected, "unknown provider service id should match nothing")

	list, err := repo.GetByIDs(ctx, []int64{2, 4})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.EqualValues(t, 5, list[0].Min)
	assert.EqualValues(t, 20, list[0].Max)
	assert.Zero(t, list[1].Max, "same provider service id under another provider must stay untouched")
}

func TestFindMissing(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	missing, err := repo.FindMissing(ctx, 10, []string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, services.IDs(missing))
	assert.Equal(t, "views", missing[0].Name)

	missing, err = repo.FindMissing(ctx, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, services.IDs(missing), "empty catalog makes every bound service missing")

	missing, err = repo.FindMissing(ctx, 30, nil)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestDeactivate(t *testing.T) {
	repo, conn := newTestRepository(t)
	ctx := context.Background()

	changed, err := repo.Deactivate(ctx, []int64{4, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4}, changed)

	list, err := repo.GetByIDs(ctx, []int64{3, 4, 1})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, services.StatusActive, list[0].Status)
	for _, s := range list[1:] {
		assert.Equal(t, services.StatusInactive, s.Status)
		assert.Nil(t, s.ProviderID)
		assert.Nil(t, s.ProviderServiceID)
	}

	// applying the same transition again leaves the same state and reports no change
	changed, err = repo.Deactivate(ctx, []int64{3, 4})
	require.NoError(t, err)
	assert.Empty(t, changed)

	var active int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM services WHERE status = 1`).Scan(&active))
	assert.Equal(t, 2, active)
}

func TestDeactivateEmpty(t *testing.T) {
	repo, conn := newTestRepository(t)
	conn.Close()

	// no statement may run for an empty set, so a closed connection is never touched
	changed, err := repo.Deactivate(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, changed)
}

func TestDeactivateSkipsRowsGoneMeanwhile(t *testing.T) {
	repo, conn := newTestRepository(t)
	ctx := context.Background()

	_, err := conn.Exec(`DELETE FROM services WHERE id = 2`)
	require.NoError(t, err)

	changed, err := repo.Deactivate(ctx, []int64{1, 2, 5})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, changed, "deleted and unbound rows are not reported as deactivated")
}

func TestLargeCatalogStaysUnderBindLimit(t *testing.T) {
	repo, conn := newTestRepository(t)
	ctx := context.Background()

	// well beyond SQLite's 32766 bind variables
	const size = 40000
	tx, err := conn.Begin()
	require.NoError(t, err)
	stmt, err := tx.Prepare(`INSERT INTO services (name, api_provider_id, api_service_id, min, max, status) VALUES (?, 40, ?, 0, 0, 1)`)
	require.NoError(t, err)
	present := make([]string, 0, size)
	for i := 0; i < size; i++ {
		id := strconv.Itoa(i)
		_, err := stmt.Exec("bulk-"+id, id)
		require.NoError(t, err)
		if i != 123 {
			present = append(present, id)
		}
	}
	require.NoError(t, stmt.Close())
	require.NoError(t, tx.Commit())

	missing, err := repo.FindMissing(ctx, 40, present)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "bulk-123", missing[0].Name)

	all, err := repo.ListBound(ctx, 40)
	require.NoError(t, err)
	require.Len(t, all, size)

	changed, err := repo.Deactivate(ctx, services.IDs(all))
	require.NoError(t, err)
	assert.Len(t, changed, size)

	var remaining int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM services WHERE api_provider_id = 40`).Scan(&remaining))
	assert.Zero(t, remaining)
}
