package phonon

import (
	"fmt"
	"math"
)

// NeutraliseBornCharges enforces the acoustic sum rule on a set of
// Born effective charge tensors by subtracting the per-component mean
// over atoms, so the tensors sum to zero. Born tensors are indexed
// [field direction][atom direction].
func NeutraliseBornCharges(borns [][3][3]float64) [][3][3]float64 {
	var mean [3][3]float64
	for _, z := range borns {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				mean[i][j] += z[i][j]
			}
		}
	}
	n := float64(len(borns))
	if n == 0 {
		return nil
	}
	out := make([][3][3]float64, len(borns))
	for a, z := range borns {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				out[a][i][j] = z[i][j] - mean[i][j]/n
			}
		}
	}
	return out
}

// OscillatorStrengths computes the 3x3 oscillator strength tensor of
// each mode from its cartesian displacement pattern and the Born
// effective charges. modes come from XYZModes (atomic units, not
// re-normalised); Born charges are in electrons.
func OscillatorStrengths(modes [][][3]float64, borns [][3][3]float64) ([][3][3]float64, error) {
	out := make([][3][3]float64, len(modes))
	for k, mode := range modes {
		if len(mode) != len(borns) {
			return nil, fmt.Errorf("mode %d spans %d atoms, have %d Born tensors", k, len(mode), len(borns))
		}
		// Dipole induced by displacing every atom along the mode.
		var z [3]float64
		for a, disp := range mode {
			for i := 0; i < 3; i++ {
				z[i] += borns[a][i][0]*disp[0] + borns[a][i][1]*disp[1] + borns[a][i][2]*disp[2]
			}
		}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				out[k][i][j] = z[i] * z[j]
			}
		}
	}
	return out, nil
}

// InfraredIntensities derives one infrared intensity per mode from the
// trace of its oscillator strength tensor, converted from atomic units
// to (Debye/Angstrom)^2 per amu.
func InfraredIntensities(strengths [][3][3]float64) []float64 {
	out := make([]float64, len(strengths))
	for k, s := range strengths {
		out[k] = (s[0][0] + s[1][1] + s[2][2]) / d2byAmuAng2
	}
	return out
}

// IsotropicStrengths builds diagonal oscillator strength tensors from
// per-mode infrared intensities in (D/A)^2/amu, for measured spectra
// that report intensities with no directional information. It inverts
// InfraredIntensities: the trace of each tensor reproduces the
// intensity.
func IsotropicStrengths(intensities []float64) [][3][3]float64 {
	out := make([][3][3]float64, len(intensities))
	for k, in := range intensities {
		s := in * d2byAmuAng2 / 3.0
		out[k][0][0] = s
		out[k][1][1] = s
		out[k][2][2] = s
	}
	return out
}

// IonicPermittivity sums the zero-frequency lattice contribution to
// the permittivity over the listed modes:
//
//	eps_ionic = (4 pi / V) sum_k S_k / v_k^2
//
// Frequencies are in cm-1 and volume in Angstrom^3; the tensor
// returned is dimensionless (relative permittivity).
func IonicPermittivity(modes []int, strengths [][3][3]float64, freqs []float64, volume float64) ([3][3]float64, error) {
	var eps [3][3]float64
	if volume <= 0 {
		return eps, fmt.Errorf("non-positive cell volume %g", volume)
	}
	for _, k := range modes {
		if k < 0 || k >= len(strengths) || k >= len(freqs) {
			return eps, fmt.Errorf("mode index %d out of range (have %d modes)", k, len(strengths))
		}
		f := freqs[k] * CM1ToAU
		if f == 0 {
			return eps, fmt.Errorf("mode %d has zero frequency", k)
		}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				eps[i][j] += strengths[k][i][j] / (f * f)
			}
		}
	}
	scale := 4 * math.Pi / VolumeToAU(volume)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			eps[i][j] *= scale
		}
	}
	return eps, nil
}

// AbsorptionFromModes evaluates the molar absorption coefficient at
// frequency f (cm-1) as a sum of Lorentzians over the listed modes.
// Intensities are in (D/A)^2/amu, sigmas in cm-1; the result is in
// L mol-1 cm-1.
func AbsorptionFromModes(f float64, modes []int, freqs, sigmas, intensities []float64) float64 {
	var absorption float64
	for _, k := range modes {
		v := freqs[k]
		sigma := sigmas[k]
		absorption += 2.0 * molarFactor * intensities[k] / math.Pi * sigma / (4.0*(f-v)*(f-v) + sigma*sigma)
	}
	return absorption
}
