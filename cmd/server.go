package cmd

import (
	"context"
	"servicecheck/features/checker"
	"servicecheck/features/web"
	"servicecheck/internal/config"
	"servicecheck/internal/runner"
	"servicecheck/internal/telemetry"

	"github.com/ory/graceful"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// WebServer is the CLI command that starts the web API server and the scheduler.
var WebServer = &cli.Command{
	Name:    "serve",
	Aliases: []string{"s"},
	Usage:   "Start web API server and the periodic service check",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "no-schedule",
			Usage: "Serve the API without scheduling checks.",
		},
	},
	Action: serve,
}

func serve(c *cli.Context) (err error) {
	cfg := config.GetConfig()

	shutdownTelemetry, err := telemetry.InitTelemetry(c.Context, &cfg.Telemetry, cfg.APP.Environment)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize telemetry")
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}()

	deps, err := buildDependencies(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build dependencies")
		return err
	}
	defer deps.Close()

	closeInterruptedRuns(c.Context, deps.RunRepo)

	svcs := &web.Services{DB: deps.DB, Runs: deps.Runs}
	if deps.Archive != nil {
		svcs.Archive = deps.Archive
	}

	if !c.Bool("no-schedule") {
		scheduler, err := runner.InitializeRunner(deps.Runs, &cfg.Checker)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize scheduler runner")
			return err
		}
		svcs.Schedule = scheduler

		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := runner.ShutdownRunner(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to stop scheduler")
			}
		}()
	}

	if cfg.Checker.RunAtStartup {
		log.Info().Msg("Running service check at startup")
		if _, err := deps.Runs.Start(checker.TriggerStartup, cfg.Checker.DryRun); err != nil {
			log.Warn().Err(err).Msg("Startup check not started")
		}
	}

	app, err := web.NewApplication(&cfg.Server, svcs)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create web application")
		return err
	}

	server := graceful.WithDefaults(app.Echo.Server)
	log.Info().Str("url", cfg.Server.GetServerURL()).Msgf("Starting server on %s", server.Addr)

	if err = graceful.Graceful(server.ListenAndServe, server.Shutdown); err != nil {
		log.Error().Err(err).Msg("Failed to start server")
		return err
	}

	log.Info().Msg("Server stopped gracefully.")
	return nil
}
