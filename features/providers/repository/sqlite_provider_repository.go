package repository

import (
	"context"
	"errors"
	"servicecheck/features/providers"
	"servicecheck/internal/db"
)

var (
	ErrQueryProviders      = errors.New("failed to query providers")
	ErrScanProvider        = errors.New("failed to scan provider row")
	ErrIterateProviderRows = errors.New("error iterating provider rows")
)

// SQLProviderRepository reads providers through database/sql.
type SQLProviderRepository struct {
	db *db.DB
}

func NewSQLProviderRepository(conn *db.DB) *SQLProviderRepository {
	return &SQLProviderRepository{db: conn}
}

// ListActive returns the providers whose status flag is set, ordered by id.
func (r *SQLProviderRepository) ListActive(ctx context.Context) (providers.Providers, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Dialect.Rebind(`
		SELECT id, name, url, api_key
		FROM providers
		WHERE status = ?
		ORDER BY id
	`), 1)
	if err != nil {
		return nil, errors.Join(ErrQueryProviders, err)
	}
	defer rows.Close()

	result := providers.Providers{}
	for rows.Next() {
		p := providers.Provider{Active: true}
		if err := rows.Scan(&p.ID, &p.Name, &p.URL, &p.APIKey); err != nil {
			return nil, errors.Join(ErrScanProvider, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrIterateProviderRows, err)
	}
	return result, nil
}
