package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"servicecheck/features/services"
	"servicecheck/internal/db"
	"slices"

	"github.com/rs/zerolog/log"
)

var (
	ErrUpdateBounds       = errors.New("failed to update service bounds")
	ErrQueryMissing       = errors.New("failed to query missing services")
	ErrQueryServices      = errors.New("failed to query services")
	ErrScanService        = errors.New("failed to scan service row")
	ErrIterateServiceRows = errors.New("error iterating service rows")
	ErrDeactivate         = errors.New("failed to deactivate services")
)

// SQLServiceRepository is the database/sql implementation of ServiceRepository.
type SQLServiceRepository struct {
	db *db.DB
}

func NewSQLServiceRepository(conn *db.DB) *SQLServiceRepository {
	return &SQLServiceRepository{db: conn}
}

func (r *SQLServiceRepository) UpdateBounds(ctx context.Context, providerID int64, providerServiceID string, bounds services.Bounds) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Dialect.Rebind(`
		UPDATE services
		SET min = ?, max = ?
		WHERE api_provider_id = ? AND api_service_id = ?
	`), bounds.Min, bounds.Max, providerID, providerServiceID)
	if err != nil {
		return 0, errors.Join(ErrUpdateBounds, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Join(ErrUpdateBounds, err)
	}
	return affected, nil
}

// ListBound returns every service bound to providerID, ordered by id.
func (r *SQLServiceRepository) ListBound(ctx context.Context, providerID int64) ([]services.Service, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Dialect.Rebind(`
		SELECT id, name, api_provider_id, api_service_id, min, max, status
		FROM services
		WHERE api_provider_id = ?
		ORDER BY id
	`), providerID)
	if err != nil {
		return nil, errors.Join(ErrQueryServices, err)
	}
	defer rows.Close()

	return scanServices(rows)
}

// FindMissing diffs the provider's bound services against presentIDs in
// memory, so the size of a catalog never reaches the driver's bind limit.
func (r *SQLServiceRepository) FindMissing(ctx context.Context, providerID int64, presentIDs []string) ([]services.Service, error) {
	bound, err := r.ListBound(ctx, providerID)
	if err != nil {
		return nil, errors.Join(ErrQueryMissing, err)
	}
	return services.Missing(bound, presentIDs), nil
}

// Deactivate runs one UPDATE over every still-bound service in ids and returns
// the ids it changed. The ids travel as a single JSON array argument.
func (r *SQLServiceRepository) Deactivate(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	idList, err := json.Marshal(ids)
	if err != nil {
		return nil, errors.Join(ErrDeactivate, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Join(ErrDeactivate, err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Warn().Err(rbErr).Msg("Failed to roll back deactivation")
		}
	}()

	rows, err := tx.QueryContext(ctx, r.db.Dialect.Rebind(`
		UPDATE services
		SET status = ?, api_provider_id = NULL, api_service_id = NULL
		WHERE api_provider_id IS NOT NULL
		  AND id IN (`+r.db.Dialect.IDListSubquery()+`)
		RETURNING id
	`), services.StatusInactive, string(idList))
	if err != nil {
		return nil, errors.Join(ErrDeactivate, err)
	}

	changed := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, errors.Join(ErrDeactivate, err)
		}
		changed = append(changed, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrDeactivate, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Join(ErrDeactivate, err)
	}

	slices.Sort(changed)
	return changed, nil
}

func (r *SQLServiceRepository) GetByIDs(ctx context.Context, ids []int64) ([]services.Service, error) {
	if len(ids) == 0 {
		return []services.Service{}, nil
	}

	idList, err := json.Marshal(ids)
	if err != nil {
		return nil, errors.Join(ErrQueryServices, err)
	}

	rows, err := r.db.QueryContext(ctx, r.db.Dialect.Rebind(`
		SELECT id, name, api_provider_id, api_service_id, min, max, status
		FROM services
		WHERE id IN (`+r.db.Dialect.IDListSubquery()+`)
		ORDER BY id
	`), string(idList))
	if err != nil {
		return nil, errors.Join(ErrQueryServices, err)
	}
	defer rows.Close()

	return scanServices(rows)
}

func scanServices(rows *sql.Rows) ([]services.Service, error) {
	result := []services.Service{}
	for rows.Next() {
		var (
			s                 services.Service
			providerID        sql.NullInt64
			providerServiceID sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Name, &providerID, &providerServiceID, &s.Min, &s.Max, &s.Status); err != nil {
			return nil, errors.Join(ErrScanService, err)
		}
		if providerID.Valid {
			s.ProviderID = &providerID.Int64
		}
		if providerServiceID.Valid {
			s.ProviderServiceID = &providerServiceID.String
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrIterateServiceRows, err)
	}
	return result, nil
}
