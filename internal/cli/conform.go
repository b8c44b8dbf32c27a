package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halcyonlabs/replaygate/internal/harness"
)

// ConformOptions holds flags for the conform command.
type ConformOptions struct {
	*RootOptions
}

// ConformResult holds the outcome of a scenario suite run.
type ConformResult struct {
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Scenarios []*harness.Result `json:"scenarios"`
}

func (r ConformResult) String() string {
	var b strings.Builder
	for _, s := range r.Scenarios {
		status := "PASS"
		if !s.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "%s  %s\n", status, s.ScenarioName)
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "      %s\n", f)
		}
	}
	fmt.Fprintf(&b, "%d passed, %d failed", r.Passed, r.Failed)
	return b.String()
}

// NewConformCommand creates the conform command.
func NewConformCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConformOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "conform <scenario-dir>",
		Short: "Run conformance scenarios from a directory",
		Long: `Run every scenario file in a directory against a fresh
engine and report per-scenario verdict mismatches and failed assertions.

Example:
  replaygate conform ./scenarios
  replaygate conform ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConform(opts, args[0], cmd)
		},
	}

	return cmd
}

func runConform(opts *ConformOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	scenarios, err := harness.LoadDir(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}
	formatter.VerboseLog("loaded %d scenario(s) from %s", len(scenarios), dir)

	result := ConformResult{Scenarios: make([]*harness.Result, 0, len(scenarios))}
	for _, scenario := range scenarios {
		r, err := harness.Run(scenario)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("scenario %s aborted", scenario.Name), err)
		}
		if r.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, r)
	}

	if err := formatter.Success(result); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}
