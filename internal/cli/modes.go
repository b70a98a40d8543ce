package cli

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/parkerwray/PDielec/internal/crystal"
	"github.com/parkerwray/PDielec/internal/phonon"
	"github.com/parkerwray/PDielec/internal/scenario"
)

// ModesOptions holds flags for the modes command.
type ModesOptions struct {
	*RootOptions
	Program string
	Masses  string
	Mass    map[string]string
	Eckart  bool
	Neutral bool
	Hessian string
	Ignore  []int
	VMin    float64
	VMax    float64
	Sigma   float64
	DB      string
	Archive bool
	CSV     string
}

// ModeReport is one row of the mode table.
type ModeReport struct {
	Index     int     `json:"index"`
	Frequency float64 `json:"frequency"`
	Intensity float64 `json:"intensity"`
	Sigma     float64 `json:"sigma"`
	Active    bool    `json:"active"`
}

// ModesResult is the JSON payload of the modes command.
type ModesResult struct {
	Program       string        `json:"program"`
	NAtom         int           `json:"natom"`
	Volume        float64       `json:"volume"`
	Density       float64       `json:"density"`
	Modes         []ModeReport  `json:"modes"`
	EpsilonInf    [3][3]float64 `json:"epsilonInf"`
	EpsilonIonic  [3][3]float64 `json:"epsilonIonic"`
	EpsilonStatic [3][3]float64 `json:"epsilonStatic"`
	Hash          string        `json:"hash,omitempty"`
}

// NewModesCommand creates the modes command.
func NewModesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ModesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "modes <output>",
		Short: "Report the infrared-active modes of a solver output",
		Long: `Read a phonon calculation and report its normal modes: frequency,
infrared intensity and Lorentzian width per mode, with the optical,
ionic and static permittivity of the crystal.

The output argument is an ABINIT ground-state file, a phonopy
directory, or an experiment file, selected by --program. --archive
stores the processed calculation in the archive database and prints
its content hash for later spectrum runs.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModes(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Program, "program", "abinit", "solver that produced the output (abinit, phonopy, experiment)")
	cmd.Flags().StringVar(&opts.Masses, "masses", "average", "mass scheme (program, average, isotope)")
	cmd.Flags().StringToStringVar(&opts.Mass, "mass", nil, "per-element mass override in amu, e.g. --mass O=18.0")
	cmd.Flags().BoolVar(&opts.Eckart, "eckart", true, "project translations out of the dynamical matrix")
	cmd.Flags().BoolVar(&opts.Neutral, "neutral", false, "enforce the Born charge neutrality sum rule")
	cmd.Flags().StringVar(&opts.Hessian, "hessian", "symm", "dynamical matrix symmetrisation (symm, crystal)")
	cmd.Flags().IntSliceVar(&opts.Ignore, "ignore", nil, "mode indices to drop instead of the low-frequency cutoff")
	cmd.Flags().Float64Var(&opts.VMin, "vmin", 0, "lowest reported frequency in cm⁻¹")
	cmd.Flags().Float64Var(&opts.VMax, "vmax", 9000, "highest reported frequency in cm⁻¹")
	cmd.Flags().Float64Var(&opts.Sigma, "sigma", 5.0, "default Lorentzian width in cm⁻¹")
	cmd.Flags().StringVar(&opts.DB, "db", "", "archive database path")
	cmd.Flags().BoolVar(&opts.Archive, "archive", false, "store the calculation in the archive database")
	cmd.Flags().StringVar(&opts.CSV, "csv", "", "write the mode table to a CSV file")

	return cmd
}

func runModes(opts *ModesOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	sc, err := modesScenario(opts)
	if err != nil {
		return outputModesError(formatter, ErrCodeGeneric, err.Error())
	}

	res, err := ReadSolverOutput(opts.Program, path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputModesError(formatter, loadErr.Code, loadErr.Error())
		}
		return outputModesError(formatter, ErrCodeGeneric, err.Error())
	}
	formatter.VerboseLog("Read %s output %s: %d mode(s)", res.Program, path, len(res.Frequencies))

	a, err := buildAnalysis(res, sc)
	if err != nil {
		return outputModesError(formatter, ErrCodeGeneric, err.Error())
	}

	var hash string
	if opts.Archive {
		s, err := openArchive(opts.DB)
		if err != nil {
			return err
		}
		defer s.Close()
		hash, err = s.WriteCalculation(cmd.Context(), a.archiveCalculation())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to archive calculation", err)
		}
		formatter.VerboseLog("Archived calculation %s", hash)
	}

	if opts.CSV != "" {
		if err := writeModesCSVFile(opts.CSV, a, opts); err != nil {
			return outputModesError(formatter, ErrCodeWriteFailed, err.Error())
		}
	}

	return outputModesSuccess(formatter, opts, a, hash)
}

// modesScenario translates the command's flags into the scenario form
// that drives the analysis pipeline.
func modesScenario(opts *ModesOptions) (*scenario.Scenario, error) {
	scheme, err := crystal.ParseMassScheme(opts.Masses)
	if err != nil {
		return nil, err
	}
	symm, err := phonon.ParseSymmetrisation(opts.Hessian)
	if err != nil {
		return nil, err
	}

	var overrides map[string]float64
	if len(opts.Mass) > 0 {
		overrides = make(map[string]float64, len(opts.Mass))
		for symbol, raw := range opts.Mass {
			m, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("mass override for %s: %q is not a number", symbol, raw)
			}
			overrides[symbol] = m
		}
	}

	return &scenario.Scenario{
		Sigma:   scenario.SigmaConfig{Default: opts.Sigma},
		Masses:  scenario.MassConfig{Scheme: scheme, Overrides: overrides},
		Eckart:  opts.Eckart,
		Neutral: opts.Neutral,
		Hessian: symm,
		Modes:   scenario.ModeConfig{Ignore: opts.Ignore, VMin: opts.VMin, VMax: opts.VMax},
	}, nil
}

// modeReports flattens the analysis into table rows. The report keeps
// every mode inside the frequency window plus any imaginary modes,
// which signal an unstable structure regardless of the window.
func modeReports(a *Analysis, vmin, vmax float64) []ModeReport {
	activeSet := make(map[int]bool, len(a.Active))
	for _, k := range a.Active {
		activeSet[k] = true
	}

	var rows []ModeReport
	for i, f := range a.Frequencies {
		if f >= 0 && (f < vmin || f > vmax) {
			continue
		}
		rows = append(rows, ModeReport{
			Index:     i,
			Frequency: f,
			Intensity: a.Intensities[i],
			Sigma:     a.Sigmas[i],
			Active:    activeSet[i],
		})
	}
	return rows
}

// outputModesSuccess outputs the mode table and permittivities.
func outputModesSuccess(formatter *OutputFormatter, opts *ModesOptions, a *Analysis, hash string) error {
	rows := modeReports(a, opts.VMin, opts.VMax)
	static := addTensors(a.EpsilonInf, a.EpsilonIonic)

	if formatter.Format == "json" {
		return formatter.Success(ModesResult{
			Program:       a.Program,
			NAtom:         a.Cell.NAtoms(),
			Volume:        a.Volume,
			Density:       a.Density,
			Modes:         rows,
			EpsilonInf:    a.EpsilonInf,
			EpsilonIonic:  a.EpsilonIonic,
			EpsilonStatic: static,
			Hash:          hash,
		})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ %s: %d atom(s), %d mode(s), %d active\n", a.Program, a.Cell.NAtoms(), len(a.Frequencies), len(a.Active))
	fmt.Fprintf(w, "Cell volume %.3f Å³, density %.3f g/cm³\n\n", a.Volume, a.Density)

	fmt.Fprintf(w, "  %4s  %12s  %14s  %10s\n", "#", "cm⁻¹", "(D/Å)²/amu", "σ (cm⁻¹)")
	for _, r := range rows {
		note := ""
		if !r.Active {
			note = "  ignored"
		}
		fmt.Fprintf(w, "  %4d  %12.4f  %14.6f  %10.2f%s\n", r.Index, r.Frequency, r.Intensity, r.Sigma, note)
	}

	fmt.Fprintf(w, "\nPermittivity (xx yy zz):\n")
	fmt.Fprintf(w, "  optical  %s\n", diagonalLine(a.EpsilonInf))
	fmt.Fprintf(w, "  ionic    %s\n", diagonalLine(a.EpsilonIonic))
	fmt.Fprintf(w, "  static   %s\n", diagonalLine(static))

	if hash != "" {
		fmt.Fprintf(w, "\nArchived as %s\n", hash)
	}
	return nil
}

// outputModesError outputs a modes command error.
func outputModesError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// writeModesCSVFile writes the mode table to a CSV file.
func writeModesCSVFile(path string, a *Analysis, opts *ModesOptions) error {
	var buf bytes.Buffer
	if err := writeModesCSV(&buf, modeReports(a, opts.VMin, opts.VMax)); err != nil {
		return err
	}
	return writeOutputFile(path, buf.Bytes())
}

// writeModesCSV renders mode rows as CSV, one row per reported mode.
func writeModesCSV(w io.Writer, rows []ModeReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"index", "frequency", "intensity", "sigma", "active"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Index),
			strconv.FormatFloat(r.Frequency, 'g', -1, 64),
			strconv.FormatFloat(r.Intensity, 'g', -1, 64),
			strconv.FormatFloat(r.Sigma, 'g', -1, 64),
			strconv.FormatBool(r.Active),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// addTensors sums two permittivity tensors.
func addTensors(a, b [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := range out {
		for j := range out[i] {
			out[i][j] = a[i][j] + b[i][j]
		}
	}
	return out
}

// diagonalLine renders a tensor's diagonal for the text report.
func diagonalLine(t [3][3]float64) string {
	return fmt.Sprintf("%8.4f  %8.4f  %8.4f", t[0][0], t[1][1], t[2][2])
}
