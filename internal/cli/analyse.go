package cli

import (
	"fmt"
	"strconv"

	"github.com/parkerwray/PDielec/internal/crystal"
	"github.com/parkerwray/PDielec/internal/dielectric"
	"github.com/parkerwray/PDielec/internal/phonon"
	"github.com/parkerwray/PDielec/internal/qm"
	"github.com/parkerwray/PDielec/internal/scenario"
	"github.com/parkerwray/PDielec/internal/store"
)

// Analysis is the normal-mode picture of one solver output under one
// set of processing options: frequencies, infrared intensities and
// oscillator strengths for every mode, plus the cell properties the
// effective-medium step needs. The modes and spectrum commands build
// it the same way, so a spectrum always matches its mode table.
type Analysis struct {
	Program string
	Cell    *crystal.Cell
	Masses  []float64 // amu, after mass scheme and overrides

	Frequencies []float64       // cm⁻¹, one per mode, ascending
	Intensities []float64       // (D/Å)²/amu
	Sigmas      []float64       // Lorentzian widths in cm⁻¹
	Strengths   [][3][3]float64 // oscillator strength tensors per mode
	Active      []int           // indices of the modes that contribute

	Volume       float64 // unit cell volume in Å³
	Density      float64 // crystal density in g/cm³
	EpsilonInf   [3][3]float64
	EpsilonIonic [3][3]float64 // zero-frequency ionic contribution
}

// buildAnalysis runs the normal-mode pipeline on a solver result.
//
// When the result carries a dynamical matrix it is re-weighted for the
// scenario's masses, symmetrised, optionally Eckart-projected, and
// solved for modes and oscillator strengths. Results that only report
// measured frequencies and intensities skip straight to isotropic
// strengths. Mode selection and damping come from the scenario either
// way.
func buildAnalysis(res *qm.Result, sc *scenario.Scenario) (*Analysis, error) {
	if res.Cell == nil {
		return nil, fmt.Errorf("%s output carries no unit cell", res.Program)
	}

	masses, err := crystal.Masses(res.Cell.AtomicNumbers, sc.Masses.Scheme, res.Masses, sc.Masses.Overrides)
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Program:    res.Program,
		Cell:       res.Cell,
		Masses:     masses,
		Volume:     res.Cell.Volume(),
		EpsilonInf: res.EpsilonInf,
	}

	switch {
	case res.Hessian != nil:
		if err := a.solveDynamical(res, sc, masses); err != nil {
			return nil, err
		}
	case len(res.Frequencies) > 0 && len(res.Intensities) == len(res.Frequencies):
		a.Frequencies = res.Frequencies
		a.Intensities = res.Intensities
		a.Strengths = phonon.IsotropicStrengths(res.Intensities)
	default:
		return nil, fmt.Errorf("%s output has no dynamical matrix and no measured intensities", res.Program)
	}

	a.Sigmas = modeSigmas(len(a.Frequencies), res.Sigmas, sc.Sigma)
	a.Active = phonon.ModeList(a.Frequencies, sc.Modes.Ignore)

	var cellMass float64
	for _, m := range masses {
		cellMass += m
	}
	a.Density, err = dielectric.CrystalDensity(cellMass, a.Volume)
	if err != nil {
		return nil, err
	}

	a.EpsilonIonic, err = phonon.IonicPermittivity(a.Active, a.Strengths, a.Frequencies, a.Volume)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// solveDynamical fills the mode fields from the result's mass-weighted
// dynamical matrix. The matrix arrives weighted with the program's own
// masses, so a scenario that changes masses re-weights it first.
func (a *Analysis) solveDynamical(res *qm.Result, sc *scenario.Scenario, masses []float64) error {
	d := res.Hessian
	var err error

	if !sameMasses(res.Masses, masses) {
		if len(res.Masses) == 0 {
			return fmt.Errorf("%s output reports no atomic masses to re-weight from", res.Program)
		}
		if d, err = phonon.ReWeight(d, res.Masses, masses); err != nil {
			return err
		}
	}
	if d, err = phonon.Symmetrise(d, sc.Hessian); err != nil {
		return err
	}
	if sc.Eckart {
		if d, err = phonon.Project(d, masses); err != nil {
			return err
		}
	}

	freqs, mw, err := phonon.Modes(d)
	if err != nil {
		return err
	}
	xyz, err := phonon.XYZModes(mw, masses)
	if err != nil {
		return err
	}

	borns := res.BornCharges
	if sc.Neutral {
		borns = phonon.NeutraliseBornCharges(borns)
	}
	strengths, err := phonon.OscillatorStrengths(xyz, borns)
	if err != nil {
		return err
	}

	a.Frequencies = freqs
	a.Intensities = phonon.InfraredIntensities(strengths)
	a.Strengths = strengths
	return nil
}

// modeSigmas resolves the Lorentzian width for every mode. Scenario
// per-mode overrides win, then widths measured in the output, then the
// scenario default.
func modeSigmas(n int, measured []float64, cfg scenario.SigmaConfig) []float64 {
	out := make([]float64, n)
	for i := range out {
		switch v, ok := cfg.Modes[strconv.Itoa(i)]; {
		case ok:
			out[i] = v
		case i < len(measured) && measured[i] > 0:
			out[i] = measured[i]
		default:
			out[i] = cfg.Default
		}
	}
	return out
}

// archiveCalculation shapes the analysis into the archive document.
// Only contributing modes are stored, keeping their original indices,
// so a spectrum rebuilt from the archive reproduces this analysis.
func (a *Analysis) archiveCalculation() *store.Calculation {
	c := &store.Calculation{
		Program:    a.Program,
		NAtom:      a.Cell.NAtoms(),
		Volume:     a.Volume,
		Density:    a.Density,
		EpsilonInf: a.EpsilonInf,
	}
	for _, k := range a.Active {
		c.Modes = append(c.Modes, store.Mode{
			Index:     k,
			Frequency: a.Frequencies[k],
			Intensity: a.Intensities[k],
			Sigma:     a.Sigmas[k],
		})
		c.Strengths = append(c.Strengths, a.Strengths[k])
	}
	return c
}

func sameMasses(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
