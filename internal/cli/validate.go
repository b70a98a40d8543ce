package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parkerwray/PDielec/internal/calc"
)

// ValidationResult holds validation results for one deck.
type ValidationResult struct {
	Valid    bool                   `json:"valid"`
	Datasets int                    `json:"datasets"`
	Errors   []calc.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <deck>",
		Short: "Validate an input deck",
		Long: `Parse an input deck, compile its datasets, and check the solver's
consistency rules: coordinate counts, species bindings, dataset
cross-references, tolerances and response flags.

Exit codes:
  0 - deck is valid
  1 - validation findings
  2 - deck could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	result, err := LoadCalculation(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Error())
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error())
	}

	formatter.VerboseLog("Parsed %d statement(s) from %s", len(result.Deck.Statements()), path)

	findings := deckFindings(result)
	if result.Calc != nil {
		findings = append(findings, calc.Validate(result.Calc)...)
	}

	if len(findings) > 0 {
		return outputValidationErrors(formatter, result, findings)
	}
	return outputValidateSuccess(formatter, result)
}

// deckFindings converts parse and compile problems into the common
// finding shape so one report covers every stage.
func deckFindings(r *LoadResult) []calc.ValidationError {
	var out []calc.ValidationError
	for _, e := range r.ParseErrors {
		// Parse errors keep their own E01x codes.
		out = append(out, calc.ValidationError{
			Field:   "deck",
			Message: e.Message,
			Code:    e.Code,
			Line:    e.Line,
		})
	}
	for _, e := range r.CompileErrors {
		out = append(out, calc.ValidationError{
			Field:   e.Field,
			Message: e.Message,
			Code:    ErrCodeCompile,
			Line:    e.Line,
		})
	}
	return out
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, r *LoadResult) error {
	n := len(r.Calc.Datasets)
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Datasets: n})
	}

	fmt.Fprintf(formatter.Writer, "✓ Deck valid: %d dataset(s)\n", n)
	return nil
}

// outputValidateError outputs a single load-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs the collected findings.
func outputValidationErrors(formatter *OutputFormatter, r *LoadResult, findings []calc.ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: findings,
		}
		if r.Calc != nil {
			result.Datasets = len(r.Calc.Datasets)
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    findings[0].Code,
				Message: findings[0].Message,
			},
		}
		if err := formatter.JSON(response); err != nil {
			return err
		}

		// Validation findings = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d finding(s)", len(findings)))
	}

	// Text format
	fmt.Fprintf(formatter.Writer, "✗ Validation failed: %d finding(s)\n\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(formatter.Writer, "  %s\n", f.Error())
	}
	fmt.Fprintln(formatter.Writer)

	// Validation findings = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d finding(s)", len(findings)))
}
