package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"servicecheck/features/checker"
	"servicecheck/internal/config"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// CheckCommand runs one service check in the foreground.
var CheckCommand = &cli.Command{
	Name:    "check",
	Aliases: []string{"c"},
	Usage:   "Check every active provider once and reconcile local services",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "dry-run",
			Aliases: []string{"n"},
			Usage:   "Compute changes without writing them or sending email.",
		},
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output the run report in JSON format.",
		},
	},
	Action: runCheck,
}

func runCheck(c *cli.Context) error {
	cfg := config.GetConfig()

	deps, err := buildDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	dryRun := c.Bool("dry-run") || cfg.Checker.DryRun
	report, runErr := deps.Runs.Execute(c.Context, checker.TriggerCLI, dryRun)
	if report != nil {
		if err := printReport(c.App.Writer, report, c.Bool("json")); err != nil {
			return err
		}
	}
	if runErr != nil {
		log.Error().Err(runErr).Msg("Service check failed")
		return runErr
	}
	return nil
}

func printReport(w io.Writer, report *checker.RunReport, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	mode := ""
	if report.DryRun {
		mode = color.YellowString(" (dry run)")
	}
	fmt.Fprintf(w, "Run %s%s\n", color.CyanString(report.RunID), mode)
	fmt.Fprintf(w, "  Providers checked:    %d\n", report.ProvidersChecked)

	if len(report.Failed) == 0 {
		fmt.Fprintf(w, "  Providers failed:     %s\n", color.GreenString("none"))
	} else {
		fmt.Fprintf(w, "  Providers failed:     %s\n", color.RedString(strings.Join(report.FailedNames(), ", ")))
		for _, f := range report.Failed {
			fmt.Fprintf(w, "    - %s: %s\n", f.Provider.Name, f.Reason)
		}
	}

	fmt.Fprintf(w, "  Bounds updated:       %d\n", report.BoundsUpdated)
	fmt.Fprintf(w, "  Services missing:     %d\n", len(report.Missing))
	fmt.Fprintf(w, "  Services deactivated: %d\n", len(report.Deactivated))
	for _, s := range report.Deactivated {
		fmt.Fprintf(w, "    - %d %s\n", s.ID, s.Name)
	}

	if report.Error != "" {
		fmt.Fprintf(w, "  Error: %s\n", color.RedString(report.Error))
	}
	return nil
}
