package repository

import (
	"context"
	"servicecheck/features/providers"
)

// ProviderRepository defines data access methods for providers.
type ProviderRepository interface {
	ListActive(ctx context.Context) (providers.Providers, error)
}
