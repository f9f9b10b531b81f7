package utils

import (
	"context"
	"servicecheck/internal/db"
	"servicecheck/internal/logger"
	"testing"

	"github.com/stretchr/testify/require"
)

// Initialize prepares logging and returns a private in-memory database with the
// schema applied. The database is closed when the test ends.
func Initialize(t *testing.T) (context.Context, *db.DB) {
	t.Helper()
	logger.InitializeLogger("")

	conn, err := db.Connect(db.WithInMemory(true))
	require.NoError(t, err, "Expected no error while opening the test database")
	t.Cleanup(func() { _ = conn.Close() })

	return context.Background(), conn
}

// SeedProvider inserts an active provider and returns its id.
func SeedProvider(t *testing.T, conn *db.DB, name, url string) int64 {
	t.Helper()
	var id int64
	err := conn.QueryRow(conn.Dialect.Rebind(`
		INSERT INTO providers (name, url, api_key, status) VALUES (?, ?, ?, 1) RETURNING id
	`), name, url, "key-"+name).Scan(&id)
	require.NoError(t, err)
	return id
}

// SeedService inserts an active service bound to providerID under providerServiceID.
func SeedService(t *testing.T, conn *db.DB, name string, providerID int64, providerServiceID string) int64 {
	t.Helper()
	var id int64
	err := conn.QueryRow(conn.Dialect.Rebind(`
		INSERT INTO services (name, api_provider_id, api_service_id, min, max, status)
		VALUES (?, ?, ?, 0, 0, 1) RETURNING id
	`), name, providerID, providerServiceID).Scan(&id)
	require.NoError(t, err)
	return id
}
