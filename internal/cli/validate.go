package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbarthelmes/flecs/internal/compiler"
	"github.com/jbarthelmes/flecs/internal/world"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
	Cycles []compiler.Cycle           `json:"cycles,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <defs-dir>",
		Short: "Validate pipeline definitions without running them",
		Long: `Validate CUE pipeline definitions without building a world.

Performs syntax checking, declaration validation, and static cycle
analysis. Faster than run for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, defsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	p, fileCount, err := loadPipeline(defsDir)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			_ = formatter.Error(ErrCodeLoadFailed, exitErr.Error(), nil)
			return err
		}
		return err
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", fileCount, defsDir)
	formatter.VerboseLog("Declarations: %d phase(s), %d timer(s), %d system(s)",
		len(p.Phases), len(p.Timers), len(p.Systems))

	validationErrors := compiler.Validate(p, world.BuiltinNames()...)
	cycles := compiler.FindCycles(p)

	if len(validationErrors) > 0 || len(cycles) > 0 {
		return outputValidationFailure(formatter, validationErrors, cycles)
	}

	return outputValidateSuccess(formatter)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}

	fmt.Fprintln(formatter.Writer, "✓ All definitions valid")
	return nil
}

// outputValidationFailure outputs validation errors and cycle findings.
func outputValidationFailure(formatter *OutputFormatter, errs []compiler.ValidationError, cycles []compiler.Cycle) error {
	total := len(errs) + len(cycles)

	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
			Cycles: cycles,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
		}
		if len(errs) > 0 {
			response.Error = &CLIError{Code: errs[0].Code, Message: errs[0].Message}
		} else {
			response.Error = &CLIError{Code: ErrCodeGeneric, Message: cycles[0].Message}
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", total))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}
	for _, cycle := range cycles {
		fmt.Fprintf(formatter.Writer, "  cycle: %s\n", cycle.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", total))
}
