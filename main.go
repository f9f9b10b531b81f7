package main

import (
	"os"
	"path/filepath"
	"servicecheck/cmd"
	"servicecheck/internal/config"
	"servicecheck/internal/logger"
	"time"

	stdlog "log"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

var version = "v0.1.0"

func main() {
	if err := app().Run(os.Args); err != nil {
		stdlog.Fatalf("servicecheck: %v", err)
	}
}

func app() *cli.App {
	return &cli.App{
		Name:        "servicecheck",
		Usage:       "Provider service catalog checker",
		HelpName:    color.YellowString(filepath.Base(os.Args[0])),
		Version:     version,
		Compiled:    time.Now().UTC(),
		Description: "Polls service providers, reconciles their catalogs with local services, disables vanished services and reports discrepancies by email.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML configuration file",
				EnvVars: []string{"CONFIG_FILE"},
				Value:   ".env.toml",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override app.log_level (trace, debug, info, warn, error)",
			},
		},
		Commands:             cmd.Commands,
		Before:               before,
		Suggest:              true,
		EnableBashCompletion: true,
	}
}

func before(c *cli.Context) error {
	if err := os.Setenv("CONFIG_FILE", c.String("config")); err != nil {
		return err
	}
	if err := config.InitConfig(); err != nil {
		stdlog.Printf("error loading config %s: %v", c.String("config"), err)
		return err
	}

	logger.InitializeLogger(c.String("log-level"))
	log.Debug().
		Str("config", c.String("config")).
		Str("environment", config.GetConfig().APP.Environment).
		Msg("Configuration loaded")

	return nil
}
