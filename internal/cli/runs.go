package cli

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/parkerwray/PDielec/internal/query"
	"github.com/parkerwray/PDielec/internal/runner"
	"github.com/parkerwray/PDielec/internal/store"
)

// RunsOptions holds flags shared by the runs subcommands.
type RunsOptions struct {
	*RootOptions
	DB string
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID        string    `json:"id"`
	CalcHash  string    `json:"calcHash"`
	Method    string    `json:"method"`
	Shape     string    `json:"shape"`
	CreatedAt time.Time `json:"createdAt"`
}

// RunsListResult is the JSON payload of runs list.
type RunsListResult struct {
	Runs  []RunSummary `json:"runs"`
	Count int          `json:"count"`
}

// RunsShowResult is the JSON payload of runs show.
type RunsShowResult struct {
	ID             string          `json:"id"`
	CalcHash       string          `json:"calcHash"`
	Program        string          `json:"program"`
	NAtom          int             `json:"natom"`
	Method         string          `json:"method"`
	Shape          string          `json:"shape"`
	CreatedAt      time.Time       `json:"createdAt"`
	Points         int             `json:"points"`
	PeakFrequency  float64         `json:"peakFrequency"`
	PeakAbsorption float64         `json:"peakAbsorption"`
	Scenario       json.RawMessage `json:"scenario"`
}

// RunsExportResult is the JSON payload of runs export.
type RunsExportResult struct {
	ID       string `json:"id"`
	CalcHash string `json:"calcHash"`
	Method   string `json:"method"`
	Shape    string `json:"shape"`
	CSV      string `json:"csv,omitempty"`
}

// NewRunsCommand creates the runs command group.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse archived spectrum runs",
		Long: `Browse the archive of recorded spectrum runs: list them with
optional filters, show one run's metadata, or export its spectrum
as the byte-identical CSV report it was recorded with.`,
	}

	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "archive database path")

	cmd.AddCommand(NewRunsListCommand(opts))
	cmd.AddCommand(NewRunsShowCommand(opts))
	cmd.AddCommand(NewRunsExportCommand(opts))

	return cmd
}

// NewRunsListCommand creates the runs list command.
func NewRunsListCommand(runsOpts *RunsOptions) *cobra.Command {
	var where string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs",
		Long: `List archived runs, newest first.

--where filters with comma-separated "field op value" clauses over
created, hash, method, natom, program and shape, e.g.
--where "method = bruggeman, natom >= 5".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsList(runsOpts, where, cmd)
		},
	}

	cmd.Flags().StringVar(&where, "where", "", "filter clauses, e.g. \"method = bruggeman\"")

	return cmd
}

func runRunsList(opts *RunsOptions, where string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	f, err := query.Parse(where)
	if err != nil {
		return outputRunsError(formatter, ErrCodeGeneric, err.Error())
	}
	if findings := query.Validate(f); len(findings) > 0 {
		return outputFilterFindings(formatter, findings)
	}

	s, err := openArchive(opts.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(cmd.Context(), f)
	if err != nil {
		return outputRunsError(formatter, ErrCodeArchive, err.Error())
	}

	return outputRunsList(formatter, runs)
}

// outputRunsList outputs the run listing.
func outputRunsList(formatter *OutputFormatter, runs []store.Run) error {
	if formatter.Format == "json" {
		summaries := make([]RunSummary, len(runs))
		for i, r := range runs {
			summaries[i] = RunSummary{
				ID:        r.ID,
				CalcHash:  r.CalcHash,
				Method:    r.Method,
				Shape:     r.Shape,
				CreatedAt: r.CreatedAt,
			}
		}
		return formatter.Success(RunsListResult{Runs: summaries, Count: len(summaries)})
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs match.")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "%-36s  %-20s  %-16s  %-10s  %s\n", "ID", "CREATED", "METHOD", "SHAPE", "CALCULATION")
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%-36s  %-20s  %-16s  %-10s  %s\n",
			r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Method, r.Shape, shortHash(r.CalcHash))
	}
	return nil
}

// outputFilterFindings outputs filter validation findings.
func outputFilterFindings(formatter *OutputFormatter, findings []query.ValidationError) error {
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
		return NewExitError(ExitFailure, fmt.Sprintf("invalid filter: %d finding(s)", len(findings)))
	}

	// Text format
	fmt.Fprintf(formatter.Writer, "✗ Invalid filter: %d finding(s)\n\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(formatter.Writer, "  %s\n", f.Error())
	}
	fmt.Fprintln(formatter.Writer)

	return NewExitError(ExitFailure, fmt.Sprintf("invalid filter: %d finding(s)", len(findings)))
}

// NewRunsShowCommand creates the runs show command.
func NewRunsShowCommand(runsOpts *RunsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show <run-id>",
		Short:         "Show one archived run",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(runsOpts, args[0], cmd)
		},
	}
	return cmd
}

func runRunsShow(opts *RunsOptions, id string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()

	s, err := openArchive(opts.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := s.GetRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return outputRunsError(formatter, ErrCodeArchive, fmt.Sprintf("no run %s in the archive", id))
	}
	if err != nil {
		return outputRunsError(formatter, ErrCodeArchive, err.Error())
	}
	points, err := s.GetSpectrum(ctx, id)
	if err != nil {
		return outputRunsError(formatter, ErrCodeArchive, err.Error())
	}
	c, err := s.GetCalculation(ctx, run.CalcHash)
	if err != nil {
		return outputRunsError(formatter, ErrCodeArchive, err.Error())
	}

	peakF, peakA := peakPoint(points)

	if formatter.Format == "json" {
		return formatter.Success(RunsShowResult{
			ID:             run.ID,
			CalcHash:       run.CalcHash,
			Program:        c.Program,
			NAtom:          c.NAtom,
			Method:         run.Method,
			Shape:          run.Shape,
			CreatedAt:      run.CreatedAt,
			Points:         len(points),
			PeakFrequency:  peakF,
			PeakAbsorption: peakA,
			Scenario:       json.RawMessage(run.Scenario),
		})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run          %s\n", run.ID)
	fmt.Fprintf(w, "Created      %s\n", run.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Calculation  %s (%s, %d atoms)\n", shortHash(run.CalcHash), c.Program, c.NAtom)
	fmt.Fprintf(w, "Method       %s, %s particles\n", run.Method, run.Shape)
	fmt.Fprintf(w, "Spectrum     %d point(s), peak %.2f cm⁻¹ (absorption %.4f)\n", len(points), peakF, peakA)
	fmt.Fprintf(w, "Scenario     %s\n", run.Scenario)
	return nil
}

// NewRunsExportCommand creates the runs export command.
func NewRunsExportCommand(runsOpts *RunsOptions) *cobra.Command {
	var csvPath string

	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export an archived run's spectrum as CSV",
		Long: `Export an archived run's spectrum. The report is replayed from the
stored grid points, byte-identical to the CSV recorded with the run.
Without --csv it is written to stdout.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsExport(runsOpts, args[0], csvPath, cmd)
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "write the spectrum to a CSV file")

	return cmd
}

func runRunsExport(opts *RunsOptions, id, csvPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	s, err := openArchive(opts.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	var buf bytes.Buffer
	r := runner.New(s)
	r.Out = &buf
	run, err := r.Replay(cmd.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return outputRunsError(formatter, ErrCodeArchive, fmt.Sprintf("no run %s in the archive", id))
	}
	if err != nil {
		return outputRunsError(formatter, ErrCodeArchive, err.Error())
	}

	if csvPath != "" {
		if err := writeOutputFile(csvPath, buf.Bytes()); err != nil {
			return outputRunsError(formatter, ErrCodeWriteFailed, err.Error())
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(RunsExportResult{
			ID:       run.ID,
			CalcHash: run.CalcHash,
			Method:   run.Method,
			Shape:    run.Shape,
			CSV:      csvPath,
		})
	}
	if csvPath != "" {
		fmt.Fprintf(formatter.Writer, "✓ Exported run %s to %s\n", run.ID, csvPath)
		return nil
	}
	_, err = formatter.Writer.Write(buf.Bytes())
	return err
}

// outputRunsError outputs a runs command error.
func outputRunsError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// shortHash abbreviates a content hash for table output.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
