package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/parkerwray/PDielec/internal/calc"
	"github.com/parkerwray/PDielec/internal/deck"
	"github.com/parkerwray/PDielec/internal/qm"
	"github.com/parkerwray/PDielec/internal/store"
)

// Error code constants - unified across all CLI commands. Deck
// consistency findings use E1xx (internal/calc), run filter findings
// E2xx (internal/query); the codes here cover getting input into the
// tool in the first place.
const (
	ErrCodeGeneric     = "E001" // unclassified error
	ErrCodeNotFound    = "E002" // input path missing or not a regular file
	ErrCodeRead        = "E003" // input could not be read
	ErrCodeParse       = "E004" // input text could not be parsed
	ErrCodeWriteFailed = "E005" // output file write error
	ErrCodeArchive     = "E006" // archive database error
	ErrCodeCompile     = "E007" // deck statement cannot be placed in the model
)

// LoadError is an input loading failure with a stable code and, where
// known, a source position.
type LoadError struct {
	Code    string
	Message string
	Path    string
	Line    int // 1-based; 0 when the error concerns the file as a whole
}

// Error renders the position and message; the code travels separately
// so reports that already label errors with codes do not repeat it.
func (e *LoadError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// LoadResult is a deck read from disk together with everything that
// went wrong on the way to a calculation model.
type LoadResult struct {
	Deck          *deck.Deck
	Calc          *calc.Calculation
	ParseErrors   []deck.ParseError
	CompileErrors []calc.CompileError
}

// Findings reports whether the deck produced any parse or compile
// problems.
func (r *LoadResult) Findings() bool {
	return len(r.ParseErrors) > 0 || len(r.CompileErrors) > 0
}

// LoadCalculation reads a deck file and compiles it. The returned
// error is set only when the file itself cannot be read; parse and
// compile problems are collected in the result so commands can report
// them all at once.
func LoadCalculation(path string) (*LoadResult, error) {
	if err := statFile(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Message: fmt.Sprintf("opening deck: %v", err), Path: path}
	}
	defer f.Close()

	d, parseErrs := deck.Parse(f)
	result := &LoadResult{Deck: d, ParseErrors: parseErrs}
	result.Calc, result.CompileErrors = calc.Compile(d)
	return result, nil
}

// ReadSolverOutput reads one solver output file through the reader for
// the named program.
func ReadSolverOutput(program, path string) (*qm.Result, error) {
	reader, err := qm.New(program)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}

	res, err := reader.Read(path)
	if err != nil {
		var readErr *qm.ReadError
		switch {
		case errors.As(err, &readErr):
			return nil, &LoadError{Code: ErrCodeParse, Message: readErr.Message, Path: readErr.Path, Line: readErr.Line}
		case os.IsNotExist(err):
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("solver output not found: %s", path), Path: path}
		}
		return nil, &LoadError{Code: ErrCodeRead, Message: err.Error(), Path: path}
	}
	return res, nil
}

// statFile rejects paths that do not point at a regular file.
func statFile(path string) *LoadError {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return &LoadError{Code: ErrCodeNotFound, Message: "file not found", Path: path}
	}
	if err != nil {
		return &LoadError{Code: ErrCodeRead, Message: fmt.Sprintf("accessing file: %v", err), Path: path}
	}
	if info.IsDir() {
		return &LoadError{Code: ErrCodeNotFound, Message: "is a directory, want a file", Path: path}
	}
	return nil
}

// openArchive opens the run archive database for commands that read
// or record archived calculations and runs.
func openArchive(path string) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no archive database given (use --db)")
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open archive database", err)
	}
	return st, nil
}

// writeOutputFile writes command output (canonical JSON, deck text,
// CSV reports) to a file.
func writeOutputFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing output: %v", err), Path: path}
	}
	return nil
}
