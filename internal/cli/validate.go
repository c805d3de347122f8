package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Scenario string   `json:"scenario,omitempty"`
	Steps    []string `json:"steps,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [scenario.yaml]",
		Short: "Validate a scenario file without running it",
		Long: `Load and validate a journey scenario without touching the service.

Checks that the YAML has no unknown fields, every call and argument is
supported, and every ${key} a step uses is seeded or captured by an earlier
step. Without an argument the built-in journey is validated.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	scenario, err := loadScenario(path)
	if err != nil {
		return scenarioFailure(formatter, path, err)
	}

	result := ValidationResult{Valid: true, Scenario: scenario.Name}
	for _, step := range scenario.Steps {
		result.Steps = append(result.Steps, step.Name)
		formatter.VerboseLog("  %s -> %s", step.Name, step.Call)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Scenario %s valid (%d steps)\n", scenario.Name, len(scenario.Steps))
	return nil
}
