package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcase/packages/core/config"
	"github.com/abdul-hamid-achik/hitcase/packages/history"
)

var (
	historyDBPathFlag string
	historyLimitFlag  int
	historyPruneFlag  int
	historyConfigFlag string
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded runs",
	Long: `Show the runs recorded in the history database. With a run id, show the
steps of that run.

Examples:
  hitcase history
  hitcase history --limit 50
  hitcase history 3f2a9c1e-...
  hitcase history --prune 100`,
	Args: cobra.MaximumNArgs(1),
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().StringVar(&historyDBPathFlag, "db", getEnvString("HITCASE_HISTORY_DB", ""), "History database (default: historyDb from config) (env: HITCASE_HISTORY_DB)")
	historyCmd.Flags().StringVar(&historyConfigFlag, "config", getEnvString("HITCASE_CONFIG", ""), "Path to config file (env: HITCASE_CONFIG)")
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Number of runs to show")
	historyCmd.Flags().IntVar(&historyPruneFlag, "prune", 0, "Delete all but the N most recent runs")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	path := historyDBPathFlag
	if path == "" {
		cfg, err := config.LoadConfig(historyConfigFlag)
		if err != nil {
			return &ExitError{Code: ExitConfigError, Err: err}
		}
		path = cfg.Resolve(cfg.HistoryDB)
	}
	if path == "" {
		return exitf(ExitConfigError, "no history database: set historyDb in the config or pass --db")
	}

	store, err := history.Open(path)
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case historyPruneFlag > 0:
		n, err := store.Prune(ctx, historyPruneFlag)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed %d run(s)\n", n)
		return nil
	case len(args) == 1:
		return showRun(ctx, out, store, args[0])
	default:
		return listRuns(ctx, out, store, historyLimitFlag)
	}
}

func statusLabel(run *history.Run) string {
	switch {
	case run.Cancelled:
		return color.YellowString("CANCELLED")
	case run.Success:
		return color.GreenString("PASSED")
	default:
		return color.RedString("FAILED")
	}
}

func listRuns(ctx context.Context, out io.Writer, store *history.Store, limit int) error {
	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	gray := color.New(color.FgHiBlack).SprintFunc()
	for _, run := range runs {
		env := ""
		if run.Environment != "" {
			env = " " + gray("["+run.Environment+"]")
		}
		fmt.Fprintf(out, "%s  %-9s %3d/%-3d passed %5.1f%%  %8s  %s%s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			statusLabel(run),
			run.Passed, run.Total, run.PassRate,
			run.Duration.Round(time.Millisecond),
			gray(run.RunID), env)
	}
	return nil
}

func showRun(ctx context.Context, out io.Writer, store *history.Store, runID string) error {
	run, err := store.Get(ctx, runID)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(out, "%s %s\n", bold("Run"), run.RunID)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "Duration: %s\n", run.Duration)
	fmt.Fprintf(out, "Status:   %s\n", statusLabel(run))
	if run.Environment != "" {
		fmt.Fprintf(out, "Env:      %s\n", run.Environment)
	}
	if run.ReportPath != "" {
		fmt.Fprintf(out, "Report:   %s\n", run.ReportPath)
	}
	fmt.Fprintf(out, "Tests:    %d passed, %d failed, %d errors, %d skipped, %d invalid\n",
		run.Passed, run.Failed, run.Errored, run.Skipped, run.Invalid)

	scenario := ""
	for _, st := range run.Steps {
		if st.Scenario != scenario {
			scenario = st.Scenario
			fmt.Fprintf(out, "\n%s\n", bold(scenario))
		}
		fmt.Fprintf(out, "  %s [%d] %s", stepIcon(st.Status), st.Step, st.CaseID)
		if st.StatusCode != 0 {
			fmt.Fprintf(out, " (%d)", st.StatusCode)
		}
		fmt.Fprintln(out)
		if st.Message != "" {
			fmt.Fprintf(out, "      %s\n", st.Message)
		}
	}
	return nil
}

func stepIcon(status string) string {
	switch status {
	case "passed":
		return color.GreenString("✓")
	case "failed":
		return color.RedString("✗")
	case "error":
		return color.RedString("x")
	default:
		return color.YellowString("-")
	}
}
