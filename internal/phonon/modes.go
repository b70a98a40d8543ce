package phonon

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Symmetrisation selects how a raw hessian is symmetrised before
// diagonalisation. Programs differ here: most codes average the matrix
// with its transpose, the CRYSTAL package copies the lower triangle
// into the upper.
type Symmetrisation string

const (
	SymmetriseAverage Symmetrisation = "symm"
	SymmetriseCrystal Symmetrisation = "crystal"
)

// ParseSymmetrisation maps a settings string to a Symmetrisation.
func ParseSymmetrisation(s string) (Symmetrisation, error) {
	switch Symmetrisation(s) {
	case SymmetriseAverage, SymmetriseCrystal:
		return Symmetrisation(s), nil
	case "":
		return SymmetriseAverage, nil
	}
	return "", fmt.Errorf("unknown hessian symmetrisation %q (want symm or crystal)", s)
}

// Symmetrise returns a symmetrised copy of the square matrix h.
func Symmetrise(h [][]float64, scheme Symmetrisation) ([][]float64, error) {
	n, err := squareSize(h)
	if err != nil {
		return nil, err
	}
	out := newSquare(n)
	switch scheme {
	case SymmetriseAverage:
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				out[i][j] = 0.5 * (h[i][j] + h[j][i])
			}
		}
	case SymmetriseCrystal:
		// Lower triangle wins, as the CRYSTAL package does it.
		for i := 0; i < n; i++ {
			for j := 0; j <= i; j++ {
				out[i][j] = h[i][j]
				out[j][i] = h[i][j]
			}
		}
	default:
		return nil, fmt.Errorf("unknown hessian symmetrisation %q", scheme)
	}
	return out, nil
}

// MassWeight builds the dynamical matrix D = M^-1/2 H M^-1/2 from a
// hessian in atomic units and per-atom masses in amu. h must be square
// with three rows per atom.
func MassWeight(h [][]float64, masses []float64) ([][]float64, error) {
	n, err := squareSize(h)
	if err != nil {
		return nil, err
	}
	if n != 3*len(masses) {
		return nil, fmt.Errorf("hessian is %dx%d but %d masses give %d coordinates", n, n, len(masses), 3*len(masses))
	}
	inv := make([]float64, n)
	for a, m := range masses {
		if m <= 0 {
			return nil, fmt.Errorf("atom %d has non-positive mass %g", a, m)
		}
		x := 1.0 / math.Sqrt(m*AmuToAU)
		inv[3*a], inv[3*a+1], inv[3*a+2] = x, x, x
	}
	out := newSquare(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[i][j] = h[i][j] * inv[i] * inv[j]
		}
	}
	return out, nil
}

// Project removes the three rigid translations from a mass-weighted
// dynamical matrix (the Eckart conditions). In mass-weighted
// coordinates a uniform translation along axis b has components
// sqrt(m_a) on coordinate (a,b); the returned matrix is
// (1-P) D (1-P) with P the projector onto those three vectors.
func Project(d [][]float64, masses []float64) ([][]float64, error) {
	n, err := squareSize(d)
	if err != nil {
		return nil, err
	}
	if n != 3*len(masses) {
		return nil, fmt.Errorf("matrix is %dx%d but %d masses give %d coordinates", n, n, len(masses), 3*len(masses))
	}
	proj := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		proj.Set(i, i, 1)
	}
	for axis := 0; axis < 3; axis++ {
		t := make([]float64, n)
		var norm float64
		for a, m := range masses {
			t[3*a+axis] = math.Sqrt(m)
			norm += m
		}
		norm = math.Sqrt(norm)
		for i := range t {
			t[i] /= norm
		}
		vec := mat.NewVecDense(n, t)
		var outer mat.Dense
		outer.Outer(1, vec, vec)
		proj.Sub(proj, &outer)
	}
	dm := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dm.Set(i, j, d[i][j])
		}
	}
	var tmp, res mat.Dense
	tmp.Mul(proj, dm)
	res.Mul(&tmp, proj)
	out := newSquare(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[i][j] = res.At(i, j)
		}
	}
	return out, nil
}

// ReWeight converts a dynamical matrix mass-weighted with one mass set
// to one weighted with another, as when the mass scheme changes after
// the solver output has been read. Masses are in amu; the amu-to-au
// factors cancel in the ratio.
func ReWeight(d [][]float64, oldMasses, newMasses []float64) ([][]float64, error) {
	n, err := squareSize(d)
	if err != nil {
		return nil, err
	}
	if len(oldMasses) != len(newMasses) {
		return nil, fmt.Errorf("have %d old masses and %d new masses", len(oldMasses), len(newMasses))
	}
	if n != 3*len(newMasses) {
		return nil, fmt.Errorf("matrix is %dx%d but %d masses give %d coordinates", n, n, len(newMasses), 3*len(newMasses))
	}
	factor := make([]float64, n)
	for a := range newMasses {
		if oldMasses[a] <= 0 || newMasses[a] <= 0 {
			return nil, fmt.Errorf("atom %d has non-positive mass", a)
		}
		x := math.Sqrt(oldMasses[a] / newMasses[a])
		factor[3*a], factor[3*a+1], factor[3*a+2] = x, x, x
	}
	out := newSquare(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[i][j] = d[i][j] * factor[i] * factor[j]
		}
	}
	return out, nil
}

// Rebuild assembles a mass-weighted dynamical matrix from mode
// frequencies in cm-1 and normalised mass-weighted eigenvectors. It
// inverts Modes when the mode set is complete; imaginary (negative)
// frequencies contribute negative eigenvalues.
func Rebuild(freqs []float64, modes [][][3]float64) ([][]float64, error) {
	if len(freqs) != len(modes) {
		return nil, fmt.Errorf("have %d frequencies for %d modes", len(freqs), len(modes))
	}
	if len(modes) == 0 {
		return nil, fmt.Errorf("no modes")
	}
	natoms := len(modes[0])
	n := 3 * natoms
	out := newSquare(n)
	for k, mode := range modes {
		if len(mode) != natoms {
			return nil, fmt.Errorf("mode %d spans %d atoms, want %d", k, len(mode), natoms)
		}
		w := freqs[k] * CM1ToAU
		lambda := math.Copysign(w*w, freqs[k])
		for a := 0; a < natoms; a++ {
			for i := 0; i < 3; i++ {
				for b := 0; b < natoms; b++ {
					for j := 0; j < 3; j++ {
						out[3*a+i][3*b+j] += lambda * mode[a][i] * mode[b][j]
					}
				}
			}
		}
	}
	return out, nil
}

// Modes diagonalises a mass-weighted dynamical matrix in atomic units.
// It returns the mode frequencies in cm-1, ascending, and the
// normalised mass-weighted eigenvector of each mode as one [x y z]
// displacement per atom. A negative frequency stands for an imaginary
// mode.
func Modes(d [][]float64) ([]float64, [][][3]float64, error) {
	n, err := squareSize(d)
	if err != nil {
		return nil, nil, err
	}
	if n%3 != 0 {
		return nil, nil, fmt.Errorf("dynamical matrix size %d is not a multiple of 3", n)
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(d[i][j]+d[j][i]))
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return nil, nil, fmt.Errorf("eigendecomposition of %dx%d dynamical matrix failed", n, n)
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	natoms := n / 3
	freqs := make([]float64, n)
	modes := make([][][3]float64, n)
	for k, lambda := range vals {
		w := math.Sqrt(math.Abs(lambda))
		if lambda < 0 {
			w = -w
		}
		freqs[k] = w / CM1ToAU
		mode := make([][3]float64, natoms)
		for a := 0; a < natoms; a++ {
			mode[a] = [3]float64{vecs.At(3*a, k), vecs.At(3*a+1, k), vecs.At(3*a+2, k)}
		}
		modes[k] = mode
	}
	return freqs, modes, nil
}

// XYZModes converts normalised mass-weighted modes to cartesian
// displacement space by dividing each atom's component by the square
// root of its mass in atomic units. The result is not re-normalised.
func XYZModes(modes [][][3]float64, masses []float64) ([][][3]float64, error) {
	out := make([][][3]float64, len(modes))
	for k, mode := range modes {
		if len(mode) != len(masses) {
			return nil, fmt.Errorf("mode %d spans %d atoms, have %d masses", k, len(mode), len(masses))
		}
		conv := make([][3]float64, len(mode))
		for a, disp := range mode {
			x := 1.0 / math.Sqrt(masses[a]*AmuToAU)
			conv[a] = [3]float64{disp[0] * x, disp[1] * x, disp[2] * x}
		}
		out[k] = conv
	}
	return out, nil
}

// lowFrequencyCutoff is the default threshold below which modes are
// treated as acoustic and left out of dielectric sums.
const lowFrequencyCutoff = 5.0

// ModeList selects the mode indices that contribute to dielectric
// sums. With an explicit ignore list only those indices are dropped;
// otherwise every mode with |frequency| below 5 cm-1 is dropped.
func ModeList(freqs []float64, ignore []int) []int {
	drop := make(map[int]bool, len(ignore))
	for _, i := range ignore {
		drop[i] = true
	}
	var list []int
	for i, f := range freqs {
		if len(ignore) > 0 {
			if drop[i] {
				continue
			}
		} else if math.Abs(f) < lowFrequencyCutoff {
			continue
		}
		list = append(list, i)
	}
	return list
}

func squareSize(m [][]float64) (int, error) {
	n := len(m)
	if n == 0 {
		return 0, fmt.Errorf("empty matrix")
	}
	for i, row := range m {
		if len(row) != n {
			return 0, fmt.Errorf("matrix is not square: row %d has %d columns, want %d", i, len(row), n)
		}
	}
	return n, nil
}

func newSquare(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	return out
}
