package checker

import (
	"context"
	"errors"
	"fmt"
	"servicecheck/features/catalog"
	"servicecheck/features/providers"
	providerrepo "servicecheck/features/providers/repository"
	"servicecheck/features/reconcile"
	"servicecheck/features/services"
	servicerepo "servicecheck/features/services/repository"
	"servicecheck/internal/collector"
	"servicecheck/internal/tracing"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrListProviders  = errors.New("failed to list active providers")
	ErrCheckProviders = errors.New("provider checks did not complete")
	ErrProviderPanic  = errors.New("provider check panicked")
)

const defaultMaxWorkers = 4

var tracer = otel.Tracer("servicecheck/checker")

// CatalogFetcher retrieves the current catalog of one provider.
type CatalogFetcher interface {
	Fetch(ctx context.Context, p providers.Provider) (*catalog.Catalog, error)
}

// Notifier sends the admin reports of a run. Both methods report whether a
// message went out.
type Notifier interface {
	NotifyDeactivated(ctx context.Context, deactivated []services.Service) bool
	NotifyProviderFailures(ctx context.Context, failed []reconcile.FailedProvider) bool
}

// RunOptions controls a single run.
type RunOptions struct {
	RunID  string
	DryRun bool
}

// Checker runs the whole check: every active provider is fetched and
// reconciled concurrently, then missing services are deactivated at once and
// the admin is notified.
type Checker struct {
	providers  providerrepo.ProviderRepository
	services   servicerepo.ServiceRepository
	fetcher    CatalogFetcher
	notifier   Notifier
	maxWorkers int
}

type Option func(*Checker)

func WithMaxWorkers(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

func NewChecker(
	providerRepo providerrepo.ProviderRepository,
	serviceRepo servicerepo.ServiceRepository,
	fetcher CatalogFetcher,
	notifier Notifier,
	opts ...Option,
) *Checker {
	c := &Checker{
		providers:  providerRepo,
		services:   serviceRepo,
		fetcher:    fetcher,
		notifier:   notifier,
		maxWorkers: defaultMaxWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run performs one check. The returned report is never nil; the error is set
// when the run could not list providers, did not finish its provider checks or
// failed to deactivate.
func (c *Checker) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	ctx, span := tracer.Start(ctx, "checker.Run", trace.WithAttributes(
		attribute.String("run_id", opts.RunID),
		attribute.Bool("dry_run", opts.DryRun),
	))
	defer span.End()

	stopTrace := tracing.StartExecTrace("check", opts.RunID)
	defer stopTrace()
	ctx, endTask := tracing.Task(ctx, opts.RunID)
	defer endTask()

	report := &RunReport{
		RunID:       opts.RunID,
		DryRun:      opts.DryRun,
		StartedAt:   time.Now(),
		Outcomes:    []reconcile.ProviderOutcome{},
		Failed:      []reconcile.FailedProvider{},
		Missing:     []services.Service{},
		Deactivated: []services.Service{},
	}

	runLogger := log.With().
		Str("run_id", opts.RunID).
		Bool("dry_run", opts.DryRun).
		Logger()

	fail := func(err error) (*RunReport, error) {
		report.FinishedAt = time.Now()
		report.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		runLogger.Error().Err(err).Msg("Check run failed")
		return report, err
	}

	active, err := c.providers.ListActive(ctx)
	if err != nil {
		return fail(errors.Join(ErrListProviders, err))
	}
	report.ProvidersChecked = len(active)
	runLogger.Info().Strs("providers", active.Names()).Msg("Checking providers")

	outcomes, err := c.checkProviders(catalog.ContextWithRunID(ctx, opts.RunID), active, opts.DryRun)
	if err != nil {
		return fail(errors.Join(ErrCheckProviders, err))
	}

	// barrier: every provider has reported, the accumulators are final
	result := reconcile.Collect(outcomes)
	report.Outcomes = result.Outcomes
	report.Failed = result.Failed
	report.Missing = result.Missing
	report.BoundsUpdated = result.BoundsUpdated()

	deactivated, deactivateErr := reconcile.NewDeactivator(c.services, opts.DryRun).Deactivate(ctx, result.Missing)
	if deactivateErr == nil && len(deactivated) > 0 {
		report.Deactivated = deactivated
		collector.GetMetricsCollector().AddServicesDeactivated(len(deactivated))
	}

	if !opts.DryRun {
		if deactivateErr == nil {
			report.DeactivationReported = c.notifier.NotifyDeactivated(ctx, report.Deactivated)
		}
		report.FailureReported = c.notifier.NotifyProviderFailures(ctx, report.Failed)
	}

	span.SetAttributes(
		attribute.Int("providers_checked", report.ProvidersChecked),
		attribute.Int("providers_failed", len(report.Failed)),
		attribute.Int("services_missing", len(report.Missing)),
		attribute.Int("services_deactivated", len(report.Deactivated)),
	)

	if deactivateErr != nil {
		return fail(deactivateErr)
	}

	report.FinishedAt = time.Now()
	runLogger.Info().
		Int("providers_checked", report.ProvidersChecked).
		Strs("providers_failed", report.FailedNames()).
		Int("bounds_updated", report.BoundsUpdated).
		Ints64("services_deactivated", services.IDs(report.Deactivated)).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Check run finished")

	return report, nil
}

// checkProviders fetches and reconciles every provider on a bounded pool. Each
// task returns its own outcome; results come back in submission order. A panic
// in one task becomes that provider's failure.
func (c *Checker) checkProviders(ctx context.Context, active providers.Providers, dryRun bool) ([]reconcile.ProviderOutcome, error) {
	if len(active) == 0 {
		return []reconcile.ProviderOutcome{}, nil
	}

	reconciler := reconcile.NewReconciler(c.services, dryRun)

	pool := pond.NewResultPool[reconcile.ProviderOutcome](c.maxWorkers)
	defer pool.StopAndWait()

	group := pool.NewGroup()
	for _, p := range active {
		group.Submit(func() (outcome reconcile.ProviderOutcome) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Str("provider", p.Name).
						Int64("provider_id", p.ID).
						Interface("panic", r).
						Msg("Provider check panicked")
					collector.GetMetricsCollector().SetCheckFailed(p.Name, "panic", 0)
					outcome = reconcile.Failed(p, fmt.Errorf("%w: %v", ErrProviderPanic, r))
				}
			}()
			return c.checkProvider(ctx, reconciler, p, dryRun)
		})
	}

	return group.Wait()
}

func (c *Checker) checkProvider(ctx context.Context, reconciler *reconcile.Reconciler, p providers.Provider, dryRun bool) reconcile.ProviderOutcome {
	ctx, span := tracer.Start(ctx, "checker.checkProvider", trace.WithAttributes(
		attribute.String("provider", p.Name),
		attribute.Int64("provider_id", p.ID),
	))
	defer span.End()
	defer tracing.Region(ctx, p.Name)()

	mc := collector.GetMetricsCollector()
	mc.SetCheckRunning(p.Name)
	startedAt := time.Now()

	providerLogger := log.With().
		Str("run_id", catalog.RunIDFromContext(ctx)).
		Str("provider", p.Name).
		Int64("provider_id", p.ID).
		Str("domain", p.Domain()).
		Logger()

	fetched, err := c.fetcher.Fetch(ctx, p)
	if err != nil {
		providerLogger.Warn().Err(err).Msg("Provider check failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		mc.SetCheckFailed(p.Name, failureReason(err), time.Since(startedAt))
		return reconcile.Failed(p, err)
	}

	outcome := reconciler.Reconcile(ctx, fetched)
	if outcome.Failure != nil {
		span.SetStatus(codes.Error, outcome.Failure.Reason)
		mc.SetCheckFailed(p.Name, "datastore", time.Since(startedAt))
		return outcome
	}

	mc.SetCheckSuccess(p.Name, outcome.Entries, time.Since(startedAt))
	if !dryRun {
		mc.AddBoundsUpdated(p.Name, outcome.BoundsUpdated)
	}
	mc.AddServicesMissing(p.Name, len(outcome.Missing))

	span.SetAttributes(
		attribute.Int("entries", outcome.Entries),
		attribute.Int("missing", len(outcome.Missing)),
	)
	return outcome
}

// failureReason maps a fetch error onto a metrics label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, catalog.ErrUnexpectedStatus):
		return "status"
	case errors.Is(err, catalog.ErrMalformedCatalog):
		return "malformed"
	default:
		return "transport"
	}
}
