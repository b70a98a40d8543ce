package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parkerwray/PDielec/internal/calc"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output   string // output file path
	HashOnly bool   // print the content hash and nothing else
}

// CompileResult holds the compiled deck's canonical form and address.
type CompileResult struct {
	Hash      string          `json:"hash"`
	Datasets  int             `json:"datasets"`
	NAtom     int             `json:"natom"`
	Canonical json.RawMessage `json:"canonical,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <deck>",
		Short: "Compile a deck to canonical JSON and its content hash",
		Long: `Compile an input deck to its canonical JSON form and content hash.

The canonical form resolves dataset suffixes, inheritance and value
spellings, so two decks that mean the same calculation compile to
identical bytes and the same hash. Spelling, layout and comments do
not affect it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the canonical JSON to a file")
	cmd.Flags().BoolVar(&opts.HashOnly, "hash-only", false, "print only the content hash")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
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
			return outputCompileError(formatter, loadErr.Code, loadErr.Error())
		}
		return outputCompileError(formatter, ErrCodeGeneric, err.Error())
	}

	formatter.VerboseLog("Parsed %d statement(s) from %s", len(result.Deck.Statements()), path)

	// A deck that does not compile has no canonical form.
	if result.Findings() {
		return outputCompileErrors(formatter, deckFindings(result))
	}

	canonical, err := result.Calc.Canonical()
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, err.Error())
	}
	hash, err := result.Calc.Hash()
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, err.Error())
	}

	if opts.Output != "" {
		if err := writeOutputFile(opts.Output, canonical); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, err.Error())
		}
	}

	return outputCompileSuccess(formatter, opts, result.Calc, canonical, hash)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, opts *CompileOptions, c *calc.Calculation, canonical []byte, hash string) error {
	if formatter.Format == "json" {
		result := CompileResult{
			Hash:     hash,
			Datasets: len(c.Datasets),
			NAtom:    c.Structure.NAtom,
		}
		if !opts.HashOnly {
			result.Canonical = json.RawMessage(canonical)
		}
		return formatter.Success(result)
	}

	if opts.HashOnly {
		fmt.Fprintln(formatter.Writer, hash)
		return nil
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d dataset(s), %d atom(s)\n", len(c.Datasets), c.Structure.NAtom)
	fmt.Fprintf(formatter.Writer, "hash: %s\n", hash)
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "Wrote canonical form to %s\n", opts.Output)
	}
	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, findings []calc.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   findings,
			Error: &CLIError{
				Code:    findings[0].Code,
				Message: findings[0].Message,
			},
		}
		if err := formatter.JSON(response); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(findings)))
	}

	// Text format
	fmt.Fprintf(formatter.Writer, "✗ Compilation failed: %d error(s)\n\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(formatter.Writer, "  %s\n", f.Error())
	}
	fmt.Fprintln(formatter.Writer)

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(findings)))
}
