package calc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/parkerwray/PDielec/internal/deck"
)

// GenOptions tunes the numeric protocol of a generated input deck.
// The zero value of NBand omits the band count and leaves the choice
// to the solver; every other field has a working default from
// DefaultGenOptions.
type GenOptions struct {
	// Title lines become leading comments, one per entry.
	Title []string

	// Plane-wave basis and SCF numerics.
	ECut   float64
	ECutSM float64
	NStep  int
	NBand  int
	IXC    int
	OccOpt int
	TSmear float64
	DieMac float64

	// Brillouin-zone sampling.
	NGKpt  [3]int
	ShiftK [3]float64

	// Convergence tolerances, kept as literal spellings so generated
	// decks read like hand-written ones ("1.0d-14", not "1e-14").
	GroundTol   string
	DDKTol      string
	ResponseTol string

	// PrtDen asks the ground-state dataset to write its density.
	PrtDen bool
}

// DefaultGenOptions returns the reference response protocol: metallic
// smearing, a 4x4x4 shifted k-grid, and tolerances tight enough for
// second derivatives.
func DefaultGenOptions() GenOptions {
	return GenOptions{
		ECut:        42.0,
		ECutSM:      0.5,
		NStep:       100,
		IXC:         1,
		OccOpt:      3,
		TSmear:      0.01,
		DieMac:      7.0,
		NGKpt:       [3]int{4, 4, 4},
		ShiftK:      [3]float64{0.5, 0.5, 0.5},
		GroundTol:   "1.0d-14",
		DDKTol:      "1.0d-22",
		ResponseTol: "1.0d-8",
		PrtDen:      true,
	}
}

// Generate builds the three-dataset response deck for a structure:
// dataset 1 converges the ground state, dataset 2 computes d/dk
// wavefunctions from it, dataset 3 computes phonons and the
// electric-field response at Gamma using both. The deck re-encodes
// deterministically, so generated inputs diff cleanly.
func Generate(s Structure, opts GenOptions) (*deck.Deck, error) {
	if s.NAtom == 0 || len(s.XRed) == 0 {
		return nil, fmt.Errorf("generate: structure has no atoms")
	}
	if len(s.TypAt) != s.NAtom || len(s.XRed) != s.NAtom {
		return nil, fmt.Errorf("generate: structure has %d atoms but %d types and %d coordinates",
			s.NAtom, len(s.TypAt), len(s.XRed))
	}
	groundTol, err := deck.RealRaw(opts.GroundTol)
	if err != nil {
		return nil, fmt.Errorf("generate: ground-state tolerance: %w", err)
	}
	ddkTol, err := deck.RealRaw(opts.DDKTol)
	if err != nil {
		return nil, fmt.Errorf("generate: d/dk tolerance: %w", err)
	}
	responseTol, err := deck.RealRaw(opts.ResponseTol)
	if err != nil {
		return nil, fmt.Errorf("generate: response tolerance: %w", err)
	}

	d := &deck.Deck{}
	add := func(items ...deck.Item) {
		d.Items = append(d.Items, items...)
	}
	for _, line := range opts.Title {
		add(deck.Comment{Text: line})
	}
	add(stmt("ndtset", genInt(3)))

	add(deck.Comment{Text: "Crystal structure"})
	add(stmt("acell", acellValues(s.ACell)...))
	add(stmt("rprim", matrixValues(s.RPrim)...))
	add(stmt("ntypat", genInt(s.NTypAt)))
	add(stmt("znucl", genIntList(s.ZNucl)...))
	add(stmt("natom", genInt(s.NAtom)))
	add(stmt("typat", genIntList(s.TypAt)...))
	add(stmt("xred", tripleValues(s.XRed)...))
	if len(s.AMU) > 0 {
		add(stmt("amu", realList(s.AMU)...))
	}

	add(deck.Comment{Text: "Plane-wave basis and SCF"})
	add(stmt("ecut", genReal(opts.ECut)))
	add(stmt("ecutsm", genReal(opts.ECutSM)))
	add(stmt("nstep", genInt(opts.NStep)))
	if opts.NBand > 0 {
		add(stmt("nband", genInt(opts.NBand)))
	}
	add(stmt("ixc", genInt(opts.IXC)))
	add(stmt("occopt", genInt(opts.OccOpt)))
	add(stmt("tsmear", genReal(opts.TSmear)))
	add(stmt("diemac", genReal(opts.DieMac)))

	add(deck.Comment{Text: "Brillouin-zone sampling"})
	add(stmt("ngkpt", genInt(opts.NGKpt[0]), genInt(opts.NGKpt[1]), genInt(opts.NGKpt[2])))
	add(stmt("nshiftk", genInt(1)))
	add(stmt("shiftk", genReal(opts.ShiftK[0]), genReal(opts.ShiftK[1]), genReal(opts.ShiftK[2])))

	add(deck.Comment{Text: "Dataset 1: self-consistent ground state"})
	add(stmt("kptopt1", genInt(1)))
	add(stmt("tolvrs1", groundTol))
	if opts.PrtDen {
		add(stmt("prtden1", genInt(1)))
	}

	gamma := deck.Repeat{Count: 3, Val: genReal(0)}
	add(deck.Comment{Text: "Dataset 2: d/dk perturbation"})
	add(stmt("iscf2", genInt(-3)))
	add(stmt("rfelfd2", genInt(2)))
	add(stmt("rfdir2", genInt(1), genInt(1), genInt(1)))
	add(stmt("nqpt2", genInt(1)))
	add(stmt("qpt2", gamma))
	add(stmt("getwfk2", genInt(1)))
	add(stmt("kptopt2", genInt(2)))
	add(stmt("tolwfr2", ddkTol))

	add(deck.Comment{Text: "Dataset 3: phonon and electric-field response at Gamma"})
	add(stmt("rfphon3", genInt(1)))
	add(stmt("rfatpol3", genInt(1), genInt(s.NAtom)))
	add(stmt("rfelfd3", genInt(3)))
	add(stmt("rfdir3", genInt(1), genInt(1), genInt(1)))
	add(stmt("nqpt3", genInt(1)))
	add(stmt("qpt3", gamma))
	add(stmt("getwfk3", genInt(1)))
	add(stmt("getddk3", genInt(2)))
	add(stmt("kptopt3", genInt(2)))
	add(stmt("tolvrs3", responseTol))

	return d, nil
}

func stmt(name string, values ...deck.Value) *deck.Statement {
	return &deck.Statement{Name: name, Values: values}
}

func genInt(n int) deck.Int {
	return deck.Int{V: int64(n)}
}

func genIntList(ns []int) []deck.Value {
	out := make([]deck.Value, len(ns))
	for i, n := range ns {
		out[i] = genInt(n)
	}
	return out
}

// genReal renders with an explicit decimal point so real-typed
// variables never look like integers in the output.
func genReal(f float64) deck.Real {
	raw := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(raw, ".eE") {
		raw += ".0"
	}
	return deck.Real{V: f, Raw: raw}
}

func realList(fs []float64) []deck.Value {
	out := make([]deck.Value, len(fs))
	for i, f := range fs {
		out[i] = genReal(f)
	}
	return out
}

// acellValues collapses equal lattice constants to the repeat form and
// tags the unit explicitly.
func acellValues(acell [3]float64) []deck.Value {
	var values []deck.Value
	if acell[0] == acell[1] && acell[1] == acell[2] {
		values = []deck.Value{deck.Repeat{Count: 3, Val: genReal(acell[0])}}
	} else {
		values = []deck.Value{genReal(acell[0]), genReal(acell[1]), genReal(acell[2])}
	}
	return append(values, deck.Word{V: "bohr"})
}

func matrixValues(m [3][3]float64) []deck.Value {
	out := make([]deck.Value, 0, 9)
	for i := range m {
		for j := range m[i] {
			out = append(out, genReal(m[i][j]))
		}
	}
	return out
}

func tripleValues(ts [][3]float64) []deck.Value {
	out := make([]deck.Value, 0, 3*len(ts))
	for _, t := range ts {
		for j := range t {
			out = append(out, genReal(t[j]))
		}
	}
	return out
}
