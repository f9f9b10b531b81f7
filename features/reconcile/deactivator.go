package reconcile

import (
	"context"
	"errors"
	"servicecheck/features/services"
	"servicecheck/features/services/repository"

	"github.com/rs/zerolog/log"
)

var ErrDeactivation = errors.New("bulk deactivation failed")

// Deactivator applies the run's single bulk state transition.
type Deactivator struct {
	repo   repository.ServiceRepository
	dryRun bool
}

func NewDeactivator(repo repository.ServiceRepository, dryRun bool) *Deactivator {
	return &Deactivator{repo: repo, dryRun: dryRun}
}

// Deactivate unbinds and disables every service in missing with one statement and
// returns exactly the services the statement changed. An empty set touches nothing.
func (d *Deactivator) Deactivate(ctx context.Context, missing []services.Service) ([]services.Service, error) {
	if len(missing) == 0 {
		return nil, nil
	}

	ids := services.IDs(missing)
	if d.dryRun {
		log.Info().Ints64("service_ids", ids).Msg("Dry run: skipping deactivation")
		return nil, nil
	}

	changed, err := d.repo.Deactivate(ctx, ids)
	if err != nil {
		log.Error().Err(err).Ints64("service_ids", ids).Msg("Failed to deactivate missing services")
		return nil, errors.Join(ErrDeactivation, err)
	}

	done := make(map[int64]struct{}, len(changed))
	for _, id := range changed {
		done[id] = struct{}{}
	}
	deactivated := make([]services.Service, 0, len(changed))
	for _, s := range missing {
		if _, ok := done[s.ID]; ok {
			deactivated = append(deactivated, s)
		}
	}

	if len(deactivated) < len(missing) {
		log.Warn().
			Ints64("service_ids", ids).
			Ints64("deactivated_ids", changed).
			Msg("Some missing services were already unbound or deleted")
	}

	log.Info().
		Ints64("service_ids", changed).
		Msg("Deactivated missing services")

	return deactivated, nil
}
