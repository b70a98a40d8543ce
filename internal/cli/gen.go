package cli

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parkerwray/PDielec/internal/calc"
	"github.com/parkerwray/PDielec/internal/deck"
)

// GenOptions holds flags for the gen command.
type GenOptions struct {
	*RootOptions
	From   string // deck to take the crystal structure from
	Output string // output file path
	Title  []string
	ECut   float64
	NStep  int
	NBand  int
	NGKpt  []int
	TSmear float64
}

// GenResult holds a generated deck for JSON output.
type GenResult struct {
	Deck     string `json:"deck"`
	Datasets int    `json:"datasets"`
	NAtom    int    `json:"natom"`
	Output   string `json:"output,omitempty"`
}

// NewGenCommand creates the gen command.
func NewGenCommand(rootOpts *RootOptions) *cobra.Command {
	defaults := calc.DefaultGenOptions()
	opts := &GenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a three-dataset phonon response deck",
		Long: `Generate an input deck for a phonon and dielectric response run.

The deck carries three chained datasets: a self-consistent ground
state, the d/dk wavefunctions derived from it, and the phonon plus
electric-field response at the Gamma point. By default the crystal
structure is a built-in cubic BaTiO3 perovskite; --from takes the
structure from an existing deck instead.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "deck to take the crystal structure from")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the generated deck to a file")
	cmd.Flags().StringArrayVar(&opts.Title, "title", nil, "title comment line (repeatable)")
	cmd.Flags().Float64Var(&opts.ECut, "ecut", defaults.ECut, "plane-wave cutoff in Hartree")
	cmd.Flags().IntVar(&opts.NStep, "nstep", defaults.NStep, "maximum SCF iterations")
	cmd.Flags().IntVar(&opts.NBand, "nband", 0, "number of bands (0 leaves the choice to the solver)")
	cmd.Flags().IntSliceVar(&opts.NGKpt, "ngkpt", defaults.NGKpt[:], "k-point grid divisions (three values)")
	cmd.Flags().Float64Var(&opts.TSmear, "tsmear", defaults.TSmear, "smearing temperature in Hartree")

	return cmd
}

func runGen(opts *GenOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	if len(opts.NGKpt) != 3 {
		return outputGenError(formatter, ErrCodeGeneric,
			fmt.Sprintf("--ngkpt wants three divisions, got %d", len(opts.NGKpt)))
	}

	genOpts := calc.DefaultGenOptions()
	genOpts.Title = opts.Title
	genOpts.ECut = opts.ECut
	genOpts.NStep = opts.NStep
	genOpts.NBand = opts.NBand
	genOpts.NGKpt = [3]int{opts.NGKpt[0], opts.NGKpt[1], opts.NGKpt[2]}
	genOpts.TSmear = opts.TSmear

	var structure calc.Structure
	if opts.From != "" {
		result, err := LoadCalculation(opts.From)
		if err != nil {
			var loadErr *LoadError
			if errors.As(err, &loadErr) {
				return outputGenError(formatter, loadErr.Code, loadErr.Error())
			}
			return outputGenError(formatter, ErrCodeGeneric, err.Error())
		}
		if result.Findings() {
			first := deckFindings(result)[0]
			return outputGenError(formatter, first.Code,
				fmt.Sprintf("%s does not compile: %s", opts.From, first.Error()))
		}
		structure = result.Calc.Structure
		formatter.VerboseLog("Took structure from %s: %d atom(s)", opts.From, structure.NAtom)
	} else {
		structure = exampleStructure()
		if len(genOpts.Title) == 0 {
			genOpts.Title = []string{
				"BaTiO3 cubic perovskite, phonon and dielectric response",
				"Three datasets: ground state, d/dk, phonon + electric field",
			}
		}
	}

	d, err := calc.Generate(structure, genOpts)
	if err != nil {
		return outputGenError(formatter, ErrCodeGeneric, err.Error())
	}

	var buf bytes.Buffer
	if err := deck.Encode(&buf, d); err != nil {
		return outputGenError(formatter, ErrCodeGeneric, err.Error())
	}

	if opts.Output != "" {
		if err := writeOutputFile(opts.Output, buf.Bytes()); err != nil {
			return outputGenError(formatter, ErrCodeWriteFailed, err.Error())
		}
	}

	return outputGenSuccess(formatter, opts, structure, buf.String())
}

// outputGenSuccess outputs the generated deck or a confirmation when it
// went to a file.
func outputGenSuccess(formatter *OutputFormatter, opts *GenOptions, s calc.Structure, deckText string) error {
	if formatter.Format == "json" {
		return formatter.Success(GenResult{
			Deck:     deckText,
			Datasets: 3,
			NAtom:    s.NAtom,
			Output:   opts.Output,
		})
	}

	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "✓ Wrote response deck to %s: 3 dataset(s), %d atom(s)\n", opts.Output, s.NAtom)
		return nil
	}

	// The deck itself is the product, so nothing else goes to stdout.
	fmt.Fprint(formatter.Writer, deckText)
	return nil
}

// outputGenError outputs a generation error.
func outputGenError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// exampleStructure is the built-in demonstration crystal: cubic BaTiO3,
// a five-atom perovskite with a strong infrared response.
func exampleStructure() calc.Structure {
	return calc.Structure{
		ACell:  [3]float64{7.5589, 7.5589, 7.5589},
		RPrim:  [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		NTypAt: 3,
		ZNucl:  []int{56, 22, 8},
		NAtom:  5,
		TypAt:  []int{1, 2, 3, 3, 3},
		XRed: [][3]float64{
			{0, 0, 0},
			{0.5, 0.5, 0.5},
			{0.5, 0.5, 0},
			{0.5, 0, 0.5},
			{0, 0.5, 0.5},
		},
	}
}
