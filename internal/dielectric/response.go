package dielectric

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/parkerwray/PDielec/internal/phonon"
)

// log10e converts a napierian absorption exponent to the decadic
// Beer-Lambert convention.
var log10e = math.Log10(math.E)

// avogadro is the Avogadro constant in mol^-1.
const avogadro = 6.02214076e23

// Lorentzian evaluates the ionic permittivity tensor at frequency f
// (cm-1) as a sum of damped oscillators over the listed modes:
//
//	eps(f) = (4 pi / V) sum_k S_k / (v_k^2 - f^2 - i sigma_k f)
//
// Oscillator strengths are in atomic units, frequencies and widths in
// cm-1 and the cell volume in Angstrom^3. Add the optical permittivity
// and any Drude term on top.
func Lorentzian(modes []int, strengths [][3][3]float64, freqs, sigmas []float64, volume, f float64) Tensor {
	fau := f * phonon.CM1ToAU
	var sum Tensor
	for _, k := range modes {
		v := freqs[k] * phonon.CM1ToAU
		sigma := sigmas[k] * phonon.CM1ToAU
		den := complex(v*v-fau*fau, -sigma*fau)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				sum[i][j] += complex(strengths[k][i][j], 0) / den
			}
		}
	}
	return sum.Scale(complex(4*math.Pi/phonon.VolumeToAU(volume), 0))
}

// Drude adds a free-carrier contribution: an isotropic oscillator with
// plasma frequency and width in cm-1,
//
//	eps(f) = -(4 pi / V) * plasma^2 / (f^2 + i sigma f)
//
// the v -> 0 limit of the Lorentzian term. The evaluation frequency is
// clamped away from zero to keep the DC limit finite.
func Drude(plasma, sigma, volume, f float64) Tensor {
	fau := f * phonon.CM1ToAU
	if fau <= 1.0e-8 {
		fau = 1.0e-8
	}
	p := plasma * phonon.CM1ToAU
	s := sigma * phonon.CM1ToAU
	x := -complex(p*p, 0) / complex(fau*fau, s*fau)
	return Scalar(x).Scale(complex(4*math.Pi/phonon.VolumeToAU(volume), 0))
}

// RefractiveIndex takes the orientation average of a permittivity
// tensor and returns the square root whose imaginary part is
// non-negative, the branch a passive medium requires.
func RefractiveIndex(eps Tensor) complex128 {
	trace := eps.Average()
	n := cmplx.Sqrt(trace)
	if imag(n) >= imag(-n) {
		return n
	}
	return -n
}

// Absorption converts an imaginary refractive index to a decadic
// absorption coefficient in cm-1 at frequency f (cm-1).
func Absorption(f float64, n complex128) float64 {
	return f * 4 * math.Pi * imag(n) * log10e
}

// Concentration returns the molar concentration of unit cells, in
// mol/L, for a cell volume in Angstrom^3. Dividing an absorption
// coefficient by it (and the crystal volume fraction) gives the molar
// absorption coefficient.
func Concentration(volume float64) (float64, error) {
	if volume <= 0 {
		return 0, fmt.Errorf("non-positive cell volume %g", volume)
	}
	litresPerCell := volume * 1e-24 * 1e-3
	return 1 / (litresPerCell * avogadro), nil
}
