package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"servicecheck/features/checker"
	"servicecheck/internal/config"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

// RunsCommand lists the most recent check runs.
var RunsCommand = &cli.Command{
	Name:  "runs",
	Usage: "List recent service check runs",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"l"},
			Usage:   "Maximum number of runs to show.",
			Value:   20,
		},
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output runs in JSON format.",
		},
	},
	Action: listRuns,
}

func listRuns(c *cli.Context) error {
	deps, err := buildDependencies(config.GetConfig())
	if err != nil {
		return err
	}
	defer deps.Close()

	list, err := deps.RunRepo.ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	return printRuns(c.App.Writer, list, c.Bool("json"))
}

func statusColor(status checker.RunStatus) string {
	switch status {
	case checker.RunStatusCompleted:
		return color.GreenString(string(status))
	case checker.RunStatusFailed:
		return color.RedString(string(status))
	default:
		return color.YellowString(string(status))
	}
}

func printRuns(w io.Writer, list []*checker.Run, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	if len(list) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	for _, run := range list {
		failed := "-"
		if len(run.ProvidersFailed) > 0 {
			failed = strings.Join(run.ProvidersFailed, ",")
		}
		dry := ""
		if run.DryRun {
			dry = " dry-run"
		}
		fmt.Fprintf(w, "%s  %s  %-9s %-8s%s  providers=%d failed=%s deactivated=%d  %s\n",
			run.StartTime.Format(time.RFC3339),
			run.ID,
			statusColor(run.Status),
			run.Trigger,
			dry,
			run.ProvidersChecked,
			failed,
			len(run.ServicesDeactivated),
			run.Duration().Round(time.Millisecond),
		)
	}
	return nil
}
