package cmd

import (
	"context"
	"errors"
	"servicecheck/features/catalog"
	"servicecheck/features/catalog/archive"
	"servicecheck/features/checker"
	checkerrepo "servicecheck/features/checker/repository"
	"servicecheck/features/notify"
	providerrepo "servicecheck/features/providers/repository"
	servicerepo "servicecheck/features/services/repository"
	ic "servicecheck/internal/colly"
	"servicecheck/internal/config"
	"servicecheck/internal/db"

	"github.com/rs/zerolog/log"
)

var ErrBuildDependencies = errors.New("failed to build application dependencies")

// dependencies is the object graph shared by every command.
type dependencies struct {
	DB      *db.DB
	Archive *archive.BadgerArchive
	Runs    *checker.RunManager
	RunRepo *checkerrepo.SQLRunRepository
}

func buildDependencies(cfg *config.Config) (*dependencies, error) {
	conn, err := db.GetDB()
	if err != nil {
		return nil, errors.Join(ErrBuildDependencies, err)
	}

	collyClient, err := ic.InitCollyClient()
	if err != nil {
		return nil, errors.Join(ErrBuildDependencies, err)
	}

	deps := &dependencies{DB: conn}

	var fetcherOpts []catalog.FetcherOption
	if cfg.Archive.Enabled {
		store, err := archive.Open(&cfg.Archive)
		if err != nil {
			return nil, errors.Join(ErrBuildDependencies, err)
		}
		deps.Archive = store
		fetcherOpts = append(fetcherOpts, catalog.WithArchiver(store))
	}

	mailer := notify.NewMailer(&cfg.Mail)
	if !cfg.Mail.MailEnabled() {
		log.Warn().Msg("No SMTP host configured, reports will only be logged")
	}

	serviceChecker := checker.NewChecker(
		providerrepo.NewSQLProviderRepository(conn),
		servicerepo.NewSQLServiceRepository(conn),
		catalog.NewFetcher(&cfg.Fetcher, collyClient, fetcherOpts...),
		notify.NewNotifier(mailer, cfg.Mail.AdminEmail),
		checker.WithMaxWorkers(cfg.Checker.MaxWorkers),
	)

	deps.RunRepo = checkerrepo.NewSQLRunRepository(conn)
	deps.Runs = checker.NewRunManager(serviceChecker, deps.RunRepo,
		checker.WithRunTimeout(cfg.Checker.RunTimeout),
	)

	return deps, nil
}

type interruptedRunMarker interface {
	MarkInterrupted(ctx context.Context) (int64, error)
}

// closeInterruptedRuns fails runs a previous server process left running. Only
// the server calls it: a one-shot command may share the database with a live
// server whose run is still in progress.
func closeInterruptedRuns(ctx context.Context, store interruptedRunMarker) int64 {
	n, err := store.MarkInterrupted(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to close interrupted runs")
		return 0
	}
	if n > 0 {
		log.Warn().Int64("runs", n).Msg("Marked interrupted runs as failed")
	}
	return n
}

// Close waits for background runs and releases the stores.
func (d *dependencies) Close() {
	d.Runs.Wait()
	if d.Archive != nil {
		if err := d.Archive.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close catalog archive")
		}
	}
	db.DeferClose()
}
