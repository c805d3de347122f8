package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pointsjourney/internal/config"
	"github.com/roach88/pointsjourney/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded journey runs",
		Long: `List runs recorded with "journey run --db", newest first.

With a run ID, show that run's steps and their errors.

Examples:
  journey history --db ./journey.db
  journey history --db ./journey.db --limit 5 --format json
  journey history --db ./journey.db 0190f5c2-7a1e-7c3b-9d2a-4b6e8f0a1c2d`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (defaults to JOURNEY_DB)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	dbPath := opts.Database
	if dbPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
		}
		dbPath = cfg.Database
	}
	if dbPath == "" {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "no database: pass --db or set JOURNEY_DB", nil)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()

	if len(args) == 1 {
		run, err := st.ReadRun(ctx, args[0])
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", args[0]), nil)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to read run", err)
		}
		if opts.Format == "json" {
			return formatter.Success(run)
		}
		return outputRunDetail(formatter, run)
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to list runs", err)
	}
	if opts.Format == "json" {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSCENARIO\tSTARTED\tRESULT\tPASSED\tFAILED\tSKIPPED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			r.ID, r.Scenario, r.StartedAt.Format(time.RFC3339), verdict(r.Pass),
			r.Passed, r.Failed, r.Skipped)
	}
	return tw.Flush()
}

func outputRunDetail(f *OutputFormatter, run store.Run) error {
	w := f.Writer
	fmt.Fprintf(w, "Run %s: %s\n", run.ID, verdict(run.Pass))
	fmt.Fprintf(w, "Scenario: %s\n", run.Scenario)
	fmt.Fprintf(w, "Target:   %s\n", run.BaseURL)
	fmt.Fprintf(w, "Started:  %s (%s)\n", run.StartedAt.Format(time.RFC3339), run.FinishedAt.Sub(run.StartedAt))
	fmt.Fprintln(w)
	for _, step := range run.Steps {
		writeStepLine(w, step.Index, step.Name, step.Status, step.HTTPStatus, step.Duration)
		for _, e := range step.Errors {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}
	return nil
}

func verdict(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}
