package reconcile

import (
	"context"
	"errors"
	"servicecheck/features/catalog"
	"servicecheck/features/services"
	"servicecheck/features/services/repository"

	"github.com/rs/zerolog/log"
)

var ErrMissingQuery = errors.New("datastore: failed to compute missing services")

// Reconciler applies one fetched catalog to the local service records.
type Reconciler struct {
	repo   repository.ServiceRepository
	dryRun bool
}

func NewReconciler(repo repository.ServiceRepository, dryRun bool) *Reconciler {
	return &Reconciler{repo: repo, dryRun: dryRun}
}

// Reconcile refreshes the bounds of every known service listed in c and returns
// the provider's services that c no longer lists. Bound updates fail per row;
// only a failing missing-services query turns the outcome into a failure.
// A dry run reads the provider's bound services once and counts the entries
// that would update a row.
func (r *Reconciler) Reconcile(ctx context.Context, c *catalog.Catalog) ProviderOutcome {
	p := c.Provider
	outcome := ProviderOutcome{
		Provider:   p,
		Entries:    len(c.Entries),
		Unresolved: c.Unresolved(),
	}

	providerLogger := log.With().
		Str("provider", p.Name).
		Int64("provider_id", p.ID).
		Logger()

	var (
		bound    []services.Service
		boundIDs map[string]struct{}
	)
	if r.dryRun {
		var err error
		if bound, err = r.repo.ListBound(ctx, p.ID); err != nil {
			providerLogger.Error().Err(err).Msg("Failed to query bound services")
			return missingQueryFailed(outcome, err)
		}
		boundIDs = make(map[string]struct{}, len(bound))
		for _, s := range bound {
			if s.ProviderServiceID != nil {
				boundIDs[*s.ProviderServiceID] = struct{}{}
			}
		}
	}

	for i, entry := range c.Entries {
		if !entry.Resolved {
			providerLogger.Warn().
				Int("index", i).
				Interface("entry", entry.Fields).
				Msg("Skipping catalog entry without service identifier")
			continue
		}

		if r.dryRun {
			if _, ok := boundIDs[entry.ServiceID]; ok {
				outcome.BoundsUpdated++
			} else {
				outcome.BoundsUnmatched++
			}
			continue
		}

		affected, err := r.repo.UpdateBounds(ctx, p.ID, entry.ServiceID, entry.Bounds)
		if err != nil {
			outcome.BoundErrors++
			providerLogger.Error().Err(err).
				Str("provider_service_id", entry.ServiceID).
				Msg("Failed to update service bounds")
			continue
		}
		if affected == 0 {
			outcome.BoundsUnmatched++
			continue
		}
		outcome.BoundsUpdated++
	}

	var missing []services.Service
	if r.dryRun {
		missing = services.Missing(bound, c.ServiceIDs())
	} else {
		var err error
		if missing, err = r.repo.FindMissing(ctx, p.ID, c.ServiceIDs()); err != nil {
			providerLogger.Error().Err(err).Msg("Failed to query missing services")
			return missingQueryFailed(outcome, err)
		}
	}
	outcome.Missing = missing

	providerLogger.Info().
		Int("entries", outcome.Entries).
		Int("unresolved", outcome.Unresolved).
		Int("bounds_updated", outcome.BoundsUpdated).
		Int("bound_errors", outcome.BoundErrors).
		Int("missing", len(missing)).
		Bool("dry_run", r.dryRun).
		Msg("Reconciled provider catalog")

	return outcome
}

// missingQueryFailed turns outcome into a datastore failure, keeping its counts.
func missingQueryFailed(outcome ProviderOutcome, err error) ProviderOutcome {
	failed := Failed(outcome.Provider, errors.Join(ErrMissingQuery, err))
	failed.Entries = outcome.Entries
	failed.Unresolved = outcome.Unresolved
	failed.BoundsUpdated = outcome.BoundsUpdated
	failed.BoundsUnmatched = outcome.BoundsUnmatched
	failed.BoundErrors = outcome.BoundErrors
	return failed
}
