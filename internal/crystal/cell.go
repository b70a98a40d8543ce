package crystal

import (
	"fmt"
	"math"
)

// BohrToAngstrom converts atomic-unit lengths to Angstrom.
const BohrToAngstrom = 0.529177210903

// Cell is a periodic unit cell. Lattice rows are the three lattice
// vectors in Angstrom; Fractional holds one reduced coordinate triple
// per atom.
type Cell struct {
	Lattice       [3][3]float64
	Fractional    [][3]float64
	AtomicNumbers []int
}

// NewCellBohr builds a cell from ABINIT-style acell scaling factors
// (Bohr) and dimensionless primitive vectors: lattice row i is
// acell[i] * rprim[i], converted to Angstrom.
func NewCellBohr(acell [3]float64, rprim [3][3]float64, fractional [][3]float64, atomicNumbers []int) (*Cell, error) {
	if len(fractional) != len(atomicNumbers) {
		return nil, fmt.Errorf("coordinate count %d does not match atom count %d", len(fractional), len(atomicNumbers))
	}
	c := &Cell{
		Fractional:    append([][3]float64(nil), fractional...),
		AtomicNumbers: append([]int(nil), atomicNumbers...),
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			c.Lattice[i][j] = acell[i] * rprim[i][j] * BohrToAngstrom
		}
	}
	if c.Volume() <= 0 {
		return nil, fmt.Errorf("lattice vectors give non-positive volume")
	}
	return c, nil
}

// NAtoms returns the number of atoms in the cell.
func (c *Cell) NAtoms() int {
	return len(c.Fractional)
}

// Volume returns the cell volume in cubic Angstrom.
func (c *Cell) Volume() float64 {
	l := c.Lattice
	det := l[0][0]*(l[1][1]*l[2][2]-l[1][2]*l[2][1]) -
		l[0][1]*(l[1][0]*l[2][2]-l[1][2]*l[2][0]) +
		l[0][2]*(l[1][0]*l[2][1]-l[1][1]*l[2][0])
	return math.Abs(det)
}

// Cartesian returns the atom positions in Angstrom.
func (c *Cell) Cartesian() [][3]float64 {
	out := make([][3]float64, len(c.Fractional))
	for i, f := range c.Fractional {
		out[i] = c.toCartesian(f)
	}
	return out
}

func (c *Cell) toCartesian(f [3]float64) [3]float64 {
	var r [3]float64
	for j := 0; j < 3; j++ {
		r[j] = f[0]*c.Lattice[0][j] + f[1]*c.Lattice[1][j] + f[2]*c.Lattice[2][j]
	}
	return r
}

// MinimumImageDistance returns the shortest distance in Angstrom
// between atoms i and j over the 27 neighbouring images.
func (c *Cell) MinimumImageDistance(i, j int) float64 {
	d := c.minimumImage(c.Fractional[i], c.Fractional[j])
	return math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
}

// minimumImage returns the cartesian displacement from fractional
// position fi to the image of fj closest to it.
func (c *Cell) minimumImage(fi, fj [3]float64) [3]float64 {
	ri := c.toCartesian(fi)
	best := math.Inf(1)
	var vec [3]float64
	for si := -1; si <= 1; si++ {
		for sj := -1; sj <= 1; sj++ {
			for sk := -1; sk <= 1; sk++ {
				shifted := [3]float64{fj[0] + float64(si), fj[1] + float64(sj), fj[2] + float64(sk)}
				rj := c.toCartesian(shifted)
				d := dist3(ri, rj)
				if d < best {
					best = d
					vec = [3]float64{rj[0] - ri[0], rj[1] - ri[1], rj[2] - ri[2]}
				}
			}
		}
	}
	return vec
}

func dist3(a, b [3]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Symbols returns the element symbols of the cell's atoms.
func (c *Cell) Symbols() ([]string, error) {
	out := make([]string, len(c.AtomicNumbers))
	for i, z := range c.AtomicNumbers {
		s, err := Symbol(z)
		if err != nil {
			return nil, fmt.Errorf("atom %d: %w", i+1, err)
		}
		out[i] = s
	}
	return out, nil
}
