package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pointsjourney/internal/bankapi"
	"github.com/roach88/pointsjourney/internal/config"
	"github.com/roach88/pointsjourney/internal/identity"
	"github.com/roach88/pointsjourney/internal/journey"
	"github.com/roach88/pointsjourney/internal/logging"
	"github.com/roach88/pointsjourney/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	BaseURL  string
	Database string
	FailFast bool

	// Identities overrides identity generation (for testing).
	// If nil, a RandomGenerator is used.
	Identities identity.Generator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "Run the user journey against the points service",
		Long: `Run a journey scenario against the points service.

Without an argument the built-in nine-step Rethink Bank journey runs. Each run
registers fresh accounts, so it is safe to repeat against a shared deployment.

Exit codes:
  0 - Every step passed
  1 - One or more steps failed or were skipped
  2 - Command error (bad configuration, unreadable scenario, database error)

Examples:
  journey run
  journey run --base-url http://localhost:3000 --fail-fast
  journey run ./scenarios/custom.yaml --db ./journey.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runJourney(opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "points service base URL (overrides JOURNEY_BASE_URL)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database (overrides JOURNEY_DB)")
	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "skip remaining steps after the first failure")

	return cmd
}

func runJourney(opts *RunOptions, scenarioPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := config.LoadWith(map[string]string{
		config.EnvBaseURL:  opts.BaseURL,
		config.EnvDatabase: opts.Database,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}

	level := logging.ParseLogLevel(cfg.LogLevel)
	if opts.Verbose {
		level = slog.LevelDebug
	}
	color := cfg.LogColor
	if opts.Format == "json" {
		color = logging.ColorNever
	}
	logger := logging.New(cmd.ErrOrStderr(), level, color)

	scenario, err := loadScenario(scenarioPath)
	if err != nil {
		return scenarioFailure(formatter, scenarioPath, err)
	}
	formatter.VerboseLog("Scenario %s: %d step(s)", scenario.Name, len(scenario.Steps))

	client, err := bankapi.New(cfg.BaseURL,
		bankapi.WithTimeout(cfg.HTTPTimeout),
		bankapi.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		bankapi.WithLogger(logger),
	)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid base URL", err)
	}

	// Open the history store before running so a bad path costs no accounts.
	var st *store.Store
	if cfg.Database != "" {
		st, err = store.Open(cfg.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", slog.String("error", closeErr.Error()))
			}
		}()
	}

	runner := journey.NewRunner(client, journey.Options{
		Identities: opts.Identities,
		Amounts: &journey.Amounts{
			StartingBalance: cfg.StartingBalance,
			Transfer:        cfg.TransferAmount,
			Deposit:         cfg.DepositAmount,
		},
		FailFast: opts.FailFast || cfg.FailFast,
		Logger:   logger,
	})

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := runner.Run(ctx, scenario)
	if err != nil {
		return scenarioFailure(formatter, scenarioPath, err)
	}

	if st != nil {
		// An interrupt cancels ctx; the partial run is still recorded.
		if err := st.WriteRun(context.WithoutCancel(ctx), store.FromResult(client.BaseURL(), result)); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to record run", err)
		}
		formatter.VerboseLog("Recorded run %s in %s", result.RunID, cfg.Database)
	}

	if opts.Format == "json" {
		return outputRunJSON(formatter, result)
	}
	return outputRunText(formatter, scenario, result)
}

// loadScenario reads path, or returns the built-in journey when path is empty.
func loadScenario(path string) (*journey.Scenario, error) {
	if path == "" {
		return journey.DefaultScenario()
	}
	return journey.LoadScenario(path)
}

func scenarioFailure(f *OutputFormatter, path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("scenario file not found: %s", path), nil)
	}
	var se *journey.ScenarioError
	if errors.As(err, &se) {
		return f.Fail(ExitFailure, ErrCodeInvalidScenario, se.Error(), nil)
	}
	return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to load scenario", err)
}

func outputRunJSON(f *OutputFormatter, result *journey.Result) error {
	resp := CLIResponse{
		Status: "ok",
		Data:   result,
		RunID:  result.RunID,
	}
	if !result.Pass {
		_, failed, skipped := result.Counts()
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    ErrCodeJourneyFailed,
			Message: fmt.Sprintf("%d step(s) failed, %d skipped", failed, skipped),
		}
	}
	if err := f.JSON(resp); err != nil {
		return err
	}
	if !result.Pass {
		return NewExitError(ExitFailure, resp.Error.Message)
	}
	return nil
}

func outputRunText(f *OutputFormatter, scenario *journey.Scenario, result *journey.Result) error {
	w := f.Writer

	fmt.Fprintf(w, "%s\n", scenario.Description)
	for i, step := range result.Steps {
		writeStepLine(w, i, step.Name, step.Status, step.HTTPStatus, step.Duration)
		if f.Verbose && scenario.Steps[i].Description != "" {
			fmt.Fprintf(w, "    %s\n", scenario.Steps[i].Description)
		}
		for _, e := range step.Errors {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}

	passed, failed, skipped := result.Counts()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Journey Summary: %d passed, %d failed, %d skipped (run %s)\n", passed, failed, skipped, result.RunID)

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("%d step(s) failed, %d skipped", failed, skipped))
	}

	fmt.Fprintln(w, "✓ Journey passed")
	return nil
}

func writeStepLine(w io.Writer, i int, name, status string, httpStatus int, duration time.Duration) {
	switch status {
	case journey.StepPassed:
		fmt.Fprintf(w, "✓ %d. %s (%d, %s)\n", i+1, name, httpStatus, duration.Round(time.Millisecond))
	case journey.StepFailed:
		if httpStatus != 0 {
			fmt.Fprintf(w, "✗ %d. %s (%d)\n", i+1, name, httpStatus)
		} else {
			fmt.Fprintf(w, "✗ %d. %s\n", i+1, name)
		}
	default:
		fmt.Fprintf(w, "- %d. %s (skipped)\n", i+1, name)
	}
}
