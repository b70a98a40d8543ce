package phonon

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// LongitudinalModes applies the nonanalytic long-wavelength correction
// to the dynamical matrix and rediagonalises, giving the LO mode
// frequencies for each approach direction q. The dynamical matrix is
// rebuilt from the transverse frequencies (cm-1) and their normalised
// mass-weighted modes; Born charges are in electrons, masses in amu,
// epsInf is the optical permittivity and volume the cell volume in
// Angstrom^3. For each q the result is the full ascending frequency
// list in cm-1, with imaginary modes negative.
func LongitudinalModes(qlist [][3]float64, freqs []float64, modes [][][3]float64, borns [][3][3]float64, masses []float64, epsInf [3][3]float64, volume float64, project bool) ([][]float64, error) {
	if len(freqs) != len(modes) {
		return nil, fmt.Errorf("have %d frequencies but %d modes", len(freqs), len(modes))
	}
	if len(modes) == 0 {
		return nil, fmt.Errorf("no modes")
	}
	natoms := len(modes[0])
	if natoms != len(masses) || natoms != len(borns) {
		return nil, fmt.Errorf("modes span %d atoms, have %d masses and %d Born tensors", natoms, len(masses), len(borns))
	}
	if volume <= 0 {
		return nil, fmt.Errorf("non-positive cell volume %g", volume)
	}
	n := len(freqs)
	m := 3 * natoms

	// Rebuild D = U^T f^2 U from the eigenpairs. U is orthogonal, so
	// the reconstruction is exact when all 3N modes are present.
	ut := mat.NewDense(n, m, nil)
	for k, mode := range modes {
		if len(mode) != natoms {
			return nil, fmt.Errorf("mode %d spans %d atoms, want %d", k, len(mode), natoms)
		}
		for a, disp := range mode {
			ut.Set(k, 3*a, disp[0])
			ut.Set(k, 3*a+1, disp[1])
			ut.Set(k, 3*a+2, disp[2])
		}
	}
	f2 := mat.NewDense(n, n, nil)
	for k, f := range freqs {
		w := f * CM1ToAU
		f2.Set(k, k, math.Copysign(w*w, f))
	}
	var tmp, dm mat.Dense
	tmp.Mul(ut.T(), f2)
	dm.Mul(&tmp, ut)

	volAU := VolumeToAU(volume)
	out := make([][]float64, 0, len(qlist))
	for _, q := range qlist {
		var qeq float64
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				qeq += q[i] * epsInf[i][j] * q[j]
			}
		}
		if qeq == 0 {
			return nil, fmt.Errorf("direction [%g %g %g] has zero optical screening q.eps.q", q[0], q[1], q[2])
		}
		constant := 4 * math.Pi / (qeq * volAU)

		dq := newSquare(m)
		for i := 0; i < m; i++ {
			for j := 0; j < m; j++ {
				dq[i][j] = dm.At(i, j)
			}
		}
		for a := 0; a < natoms; a++ {
			za := fieldProjection(q, borns[a])
			for b := 0; b < natoms; b++ {
				zb := fieldProjection(q, borns[b])
				w := constant / math.Sqrt(masses[a]*AmuToAU*masses[b]*AmuToAU)
				for i := 0; i < 3; i++ {
					for j := 0; j < 3; j++ {
						dq[3*a+i][3*b+j] += w * za[i] * zb[j]
					}
				}
			}
		}
		if project {
			var err error
			dq, err = Project(dq, masses)
			if err != nil {
				return nil, err
			}
		}
		lo, _, err := Modes(dq)
		if err != nil {
			return nil, err
		}
		sort.Float64s(lo)
		out = append(out, lo)
	}
	return out, nil
}

// fieldProjection contracts a Born tensor with the field direction q,
// giving the effective charge vector seen along q.
func fieldProjection(q [3]float64, z [3][3]float64) [3]float64 {
	var out [3]float64
	for x := 0; x < 3; x++ {
		out[x] = q[0]*z[0][x] + q[1]*z[1][x] + q[2]*z[2][x]
	}
	return out
}
