package phonon

import (
	"fmt"
	"math"
)

// ModeEnergy partitions the energy of one normal mode over the
// molecules of the cell. In mass-weighted coordinates the squared
// eigenvector components are energy fractions, so for a normalised
// mode Total is 1 and the parts are fractions of it.
type ModeEnergy struct {
	Total        float64
	CentreOfMass float64   // rigid molecular translation
	Rotational   float64   // rigid molecular rotation
	Vibrational  float64   // whatever remains
	Molecular    []float64 // total energy per molecule
}

// EnergyDistribution splits each mass-weighted normal mode into
// molecular centre-of-mass, rigid-rotation and internal vibration
// parts. molecules lists atom indexes per connected component and
// positions are whole-molecule cartesian coordinates in Angstrom
// (crystal.MoleculeGeometry provides both).
func EnergyDistribution(modes [][][3]float64, masses []float64, positions [][3]float64, molecules [][]int) ([]ModeEnergy, error) {
	natoms := len(masses)
	if len(positions) != natoms {
		return nil, fmt.Errorf("have %d positions but %d masses", len(positions), natoms)
	}
	counted := 0
	for _, mol := range molecules {
		for _, a := range mol {
			if a < 0 || a >= natoms {
				return nil, fmt.Errorf("molecule atom index %d out of range", a)
			}
			counted++
		}
	}
	if counted != natoms {
		return nil, fmt.Errorf("molecules cover %d atoms, cell has %d", counted, natoms)
	}

	// Rigid-motion basis per molecule, in mass-weighted coordinates.
	type rigid struct {
		atoms        []int
		translations [3][]float64 // unit vectors, indexed [axis][3*k+coord]
		rotations    [][]float64  // orthonormalised, may be fewer than 3
	}
	basis := make([]rigid, len(molecules))
	for m, mol := range molecules {
		r := rigid{atoms: mol}
		var totalMass float64
		var com [3]float64
		for _, a := range mol {
			totalMass += masses[a]
			for x := 0; x < 3; x++ {
				com[x] += masses[a] * positions[a][x]
			}
		}
		for x := 0; x < 3; x++ {
			com[x] /= totalMass
		}
		for axis := 0; axis < 3; axis++ {
			t := make([]float64, 3*len(mol))
			for k, a := range mol {
				t[3*k+axis] = math.Sqrt(masses[a] / totalMass)
			}
			r.translations[axis] = t
		}
		// Rotations sqrt(m) * (e_axis x (r - com)), orthonormalised.
		// Linear molecules and lone atoms yield fewer than three.
		for axis := 0; axis < 3; axis++ {
			rot := make([]float64, 3*len(mol))
			for k, a := range mol {
				var rel [3]float64
				for x := 0; x < 3; x++ {
					rel[x] = positions[a][x] - com[x]
				}
				cx := cross(axisVector(axis), rel)
				s := math.Sqrt(masses[a])
				rot[3*k] = s * cx[0]
				rot[3*k+1] = s * cx[1]
				rot[3*k+2] = s * cx[2]
			}
			for _, prev := range r.rotations {
				p := dot(rot, prev)
				for i := range rot {
					rot[i] -= p * prev[i]
				}
			}
			norm := math.Sqrt(dot(rot, rot))
			if norm < 1e-8 {
				continue
			}
			for i := range rot {
				rot[i] /= norm
			}
			r.rotations = append(r.rotations, rot)
		}
		basis[m] = r
	}

	out := make([]ModeEnergy, len(modes))
	for k, mode := range modes {
		if len(mode) != natoms {
			return nil, fmt.Errorf("mode %d spans %d atoms, want %d", k, len(mode), natoms)
		}
		e := ModeEnergy{Molecular: make([]float64, len(molecules))}
		for _, disp := range mode {
			e.Total += disp[0]*disp[0] + disp[1]*disp[1] + disp[2]*disp[2]
		}
		for m, r := range basis {
			local := make([]float64, 3*len(r.atoms))
			var molE float64
			for i, a := range r.atoms {
				local[3*i] = mode[a][0]
				local[3*i+1] = mode[a][1]
				local[3*i+2] = mode[a][2]
				molE += mode[a][0]*mode[a][0] + mode[a][1]*mode[a][1] + mode[a][2]*mode[a][2]
			}
			e.Molecular[m] = molE
			for axis := 0; axis < 3; axis++ {
				p := dot(local, r.translations[axis])
				e.CentreOfMass += p * p
			}
			for _, rot := range r.rotations {
				p := dot(local, rot)
				e.Rotational += p * p
			}
		}
		e.Vibrational = e.Total - e.CentreOfMass - e.Rotational
		out[k] = e
	}
	return out, nil
}

func axisVector(axis int) [3]float64 {
	var v [3]float64
	v[axis] = 1
	return v
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
