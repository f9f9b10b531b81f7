package repository

import (
	"context"
	"servicecheck/features/services"
)

// ServiceRepository defines data access methods for local service records.
type ServiceRepository interface {
	// UpdateBounds sets min/max on the service bound to (providerID, providerServiceID)
	// and reports how many rows matched.
	UpdateBounds(ctx context.Context, providerID int64, providerServiceID string, bounds services.Bounds) (int64, error)
	// ListBound lists every service bound to providerID.
	ListBound(ctx context.Context, providerID int64) ([]services.Service, error)
	// FindMissing lists services bound to providerID whose provider service id is
	// not in presentIDs. An empty presentIDs returns every bound service.
	FindMissing(ctx context.Context, providerID int64, presentIDs []string) ([]services.Service, error)
	// Deactivate unbinds and disables every still-bound service in ids with a
	// single statement and returns the ids it changed.
	Deactivate(ctx context.Context, ids []int64) ([]int64, error)
	GetByIDs(ctx context.Context, ids []int64) ([]services.Service, error)
}
