package cli

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parkerwray/PDielec/internal/runner"
	"github.com/parkerwray/PDielec/internal/scenario"
	"github.com/parkerwray/PDielec/internal/spectrum"
	"github.com/parkerwray/PDielec/internal/store"
)

// SpectrumOptions holds flags for the spectrum command.
type SpectrumOptions struct {
	*RootOptions
	Scenario string
	Program  string
	Hash     string
	DB       string
	Archive  bool
	CSV      string
}

// SpectrumResult is the JSON summary of a computed spectrum.
type SpectrumResult struct {
	Hash           string  `json:"hash,omitempty"`
	RunID          string  `json:"runId,omitempty"`
	Method         string  `json:"method"`
	Shape          string  `json:"shape"`
	VolumeFraction float64 `json:"volumeFraction"`
	Points         int     `json:"points"`
	PeakFrequency  float64 `json:"peakFrequency"`
	PeakAbsorption float64 `json:"peakAbsorption"`
	CSV            string  `json:"csv,omitempty"`
}

// NewSpectrumCommand creates the spectrum command.
func NewSpectrumCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SpectrumOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "spectrum [output]",
		Short: "Compute an effective-medium infrared spectrum",
		Long: `Compute the infrared absorption spectrum of crystal particles
dispersed in a support matrix, as described by a scenario file.

The crystal comes from a solver output given as the argument, or from
an archived calculation named by --hash. Without --csv the spectrum
is written to stdout as CSV; with --csv it goes to the file and a
summary is printed instead. --archive records the run (and the
calculation, when read from a solver output) in the archive database.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runSpectrum(opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario file describing the effective-medium run")
	cmd.Flags().StringVar(&opts.Program, "program", "abinit", "solver that produced the output (abinit, phonopy, experiment)")
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "archived calculation to compute from")
	cmd.Flags().StringVar(&opts.DB, "db", "", "archive database path")
	cmd.Flags().BoolVar(&opts.Archive, "archive", false, "record the run in the archive database")
	cmd.Flags().StringVar(&opts.CSV, "csv", "", "write the spectrum to a CSV file")

	return cmd
}

func runSpectrum(opts *SpectrumOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting output
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()

	switch {
	case opts.Scenario == "":
		return outputSpectrumError(formatter, ErrCodeGeneric, "no scenario file given (use --scenario)")
	case path == "" && opts.Hash == "":
		return outputSpectrumError(formatter, ErrCodeGeneric, "no solver output or --hash given")
	case path != "" && opts.Hash != "":
		return outputSpectrumError(formatter, ErrCodeGeneric, "give either a solver output or --hash, not both")
	}

	sc, err := scenario.Load(opts.Scenario)
	if err != nil {
		var scErr *scenario.LoadError
		if errors.As(err, &scErr) {
			return outputSpectrumError(formatter, scErr.Code, scErr.Detail())
		}
		return outputSpectrumError(formatter, ErrCodeGeneric, err.Error())
	}

	var s *store.Store
	if opts.Hash != "" || opts.Archive {
		if s, err = openArchive(opts.DB); err != nil {
			return err
		}
		defer s.Close()
	}

	// Resolve the calculation: archived, or built from the output.
	var calc *store.Calculation
	hash := opts.Hash
	if opts.Hash != "" {
		c, err := s.GetCalculation(ctx, opts.Hash)
		if errors.Is(err, sql.ErrNoRows) {
			return outputSpectrumError(formatter, ErrCodeArchive, fmt.Sprintf("no calculation %s in the archive", opts.Hash))
		}
		if err != nil {
			return outputSpectrumError(formatter, ErrCodeArchive, err.Error())
		}
		calc = &c
	} else {
		res, err := ReadSolverOutput(opts.Program, path)
		if err != nil {
			var loadErr *LoadError
			if errors.As(err, &loadErr) {
				return outputSpectrumError(formatter, loadErr.Code, loadErr.Error())
			}
			return outputSpectrumError(formatter, ErrCodeGeneric, err.Error())
		}
		a, err := buildAnalysis(res, sc)
		if err != nil {
			return outputSpectrumError(formatter, ErrCodeGeneric, err.Error())
		}
		calc = a.archiveCalculation()
	}

	vf, err := sc.Fraction(calc.Density)
	if err != nil {
		return outputSpectrumError(formatter, ErrCodeGeneric, err.Error())
	}

	var points []spectrum.Point
	var runID string
	if opts.Archive {
		if opts.Hash == "" {
			if hash, err = s.WriteCalculation(ctx, calc); err != nil {
				return outputSpectrumError(formatter, ErrCodeArchive, err.Error())
			}
			formatter.VerboseLog("Archived calculation %s", hash)
		}
		rep, err := runner.New(s).Run(ctx, hash, sc)
		if err != nil {
			return outputSpectrumError(formatter, ErrCodeArchive, err.Error())
		}
		points = rep.Points
		runID = rep.RunID
		formatter.VerboseLog("Recorded run %s", runID)
	} else {
		if points, err = runner.Compute(ctx, *calc, sc); err != nil {
			return outputSpectrumError(formatter, ErrCodeGeneric, err.Error())
		}
	}

	var csvBuf bytes.Buffer
	if err := spectrum.WriteCSV(&csvBuf, points); err != nil {
		return outputSpectrumError(formatter, ErrCodeGeneric, err.Error())
	}
	if opts.CSV != "" {
		if err := writeOutputFile(opts.CSV, csvBuf.Bytes()); err != nil {
			return outputSpectrumError(formatter, ErrCodeWriteFailed, err.Error())
		}
	}

	peakF, peakA := peakPoint(points)
	result := SpectrumResult{
		Hash:           hash,
		RunID:          runID,
		Method:         string(sc.Method),
		Shape:          string(sc.Shape),
		VolumeFraction: vf,
		Points:         len(points),
		PeakFrequency:  peakF,
		PeakAbsorption: peakA,
		CSV:            opts.CSV,
	}
	return outputSpectrumSuccess(formatter, opts, result, csvBuf.Bytes())
}

// outputSpectrumSuccess outputs the spectrum or its summary.
func outputSpectrumSuccess(formatter *OutputFormatter, opts *SpectrumOptions, result SpectrumResult, csvData []byte) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	// Without a CSV file the spectrum itself is the product.
	if opts.CSV == "" {
		_, err := formatter.Writer.Write(csvData)
		return err
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Spectrum: %d point(s), peak %.2f cm⁻¹ (absorption %.4f)\n", result.Points, result.PeakFrequency, result.PeakAbsorption)
	fmt.Fprintf(w, "Method %s, %s particles, volume fraction %.4f\n", result.Method, result.Shape, result.VolumeFraction)
	if result.Hash != "" {
		fmt.Fprintf(w, "Calculation %s\n", result.Hash)
	}
	if result.RunID != "" {
		fmt.Fprintf(w, "Recorded run %s\n", result.RunID)
	}
	fmt.Fprintf(w, "Wrote %s\n", opts.CSV)
	return nil
}

// outputSpectrumError outputs a spectrum command error.
func outputSpectrumError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// peakPoint finds the strongest absorption on the grid, matching the
// peak a recorded run reports.
func peakPoint(points []spectrum.Point) (freq, absorption float64) {
	for _, p := range points {
		if p.Absorption > absorption {
			absorption = p.Absorption
			freq = p.Frequency
		}
	}
	return freq, absorption
}
