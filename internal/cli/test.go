package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jbarthelmes/flecs/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
}

// ScenarioResult is the per-scenario outcome in the test report.
type ScenarioResult struct {
	Name     string   `json:"name"`
	Pass     bool     `json:"pass"`
	Failures []string `json:"failures,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// TestReport is the test command's result payload.
type TestReport struct {
	Total     int              `json:"total"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run YAML conformance scenarios",
		Long: `Run every scenario file (*.yaml) under a directory.

Each scenario loads a defs directory, runs the pipeline for a fixed
number of ticks, and checks assertions against the recorded execution.

Example:
  flecs test ./scenarios
  flecs test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	return cmd
}

func runScenarios(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	paths, err := findScenarioFiles(dir)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	if len(paths) == 0 {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("no scenario files found in %s", dir), nil)
		return NewExitError(ExitCommandError, "no scenario files found")
	}

	report := TestReport{}
	for _, path := range paths {
		formatter.VerboseLog("Running %s", path)
		report.Total++
		report.Scenarios = append(report.Scenarios, runOneScenario(path))
	}
	for _, sr := range report.Scenarios {
		if sr.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	if formatter.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		for _, sr := range report.Scenarios {
			if sr.Pass {
				fmt.Fprintf(formatter.Writer, "✓ %s\n", sr.Name)
				continue
			}
			fmt.Fprintf(formatter.Writer, "✗ %s\n", sr.Name)
			if sr.Error != "" {
				fmt.Fprintf(formatter.Writer, "    %s\n", sr.Error)
			}
			for _, f := range sr.Failures {
				fmt.Fprintf(formatter.Writer, "    %s\n", f)
			}
		}
		fmt.Fprintf(formatter.Writer, "\n%d scenario(s): %d passed, %d failed\n",
			report.Total, report.Passed, report.Failed)
	}

	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", report.Failed))
	}
	return nil
}

// runOneScenario loads and executes a single scenario file.
func runOneScenario(path string) ScenarioResult {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return ScenarioResult{Name: filepath.Base(path), Error: err.Error()}
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioResult{Name: scenario.Name, Error: err.Error()}
	}

	return ScenarioResult{
		Name:     scenario.Name,
		Pass:     result.Pass,
		Failures: result.Errors,
	}
}

// findScenarioFiles walks the directory and returns all .yaml files sorted.
func findScenarioFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		ext := filepath.Ext(path)
		if !info.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
