package crystal

import (
	"fmt"
	"sort"
)

// BondTolerance controls the bond distance criterion: atoms i and j
// bond when their minimum-image distance is at most
// Scale*(r_i + r_j) + Toler, with covalent radii in Angstrom.
type BondTolerance struct {
	Scale float64
	Toler float64
}

// DefaultBondTolerance matches the analysis defaults of the desktop
// tooling this replaces.
var DefaultBondTolerance = BondTolerance{Scale: 1.1, Toler: 0.1}

// Bonds returns every bonded pair (i < j) under the tolerance.
func Bonds(c *Cell, tol BondTolerance) ([][2]int, error) {
	n := c.NAtoms()
	radii := make([]float64, n)
	for i, z := range c.AtomicNumbers {
		r, err := CovalentRadius(z)
		if err != nil {
			return nil, fmt.Errorf("atom %d: %w", i+1, err)
		}
		radii[i] = r
	}
	var out [][2]int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			cutoff := tol.Scale*(radii[i]+radii[j]) + tol.Toler
			if c.MinimumImageDistance(i, j) <= cutoff {
				out = append(out, [2]int{i, j})
			}
		}
	}
	return out, nil
}

// Molecules partitions the cell's atoms into connected components of
// the bond graph. Each component is a sorted list of atom indexes;
// components are ordered by their smallest member.
func Molecules(c *Cell, tol BondTolerance) ([][]int, error) {
	bonds, err := Bonds(c, tol)
	if err != nil {
		return nil, err
	}
	n := c.NAtoms()
	adj := make([][]int, n)
	for _, b := range bonds {
		adj[b[0]] = append(adj[b[0]], b[1])
		adj[b[1]] = append(adj[b[1]], b[0])
	}

	seen := make([]bool, n)
	var components [][]int
	for start := 0; start < n; start++ {
		if seen[start] {
			continue
		}
		var comp []int
		queue := []int{start}
		seen[start] = true
		for len(queue) > 0 {
			at := queue[0]
			queue = queue[1:]
			comp = append(comp, at)
			for _, next := range adj[at] {
				if !seen[next] {
					seen[next] = true
					queue = append(queue, next)
				}
			}
		}
		sort.Ints(comp)
		components = append(components, comp)
	}
	return components, nil
}

// MoleculeGeometry partitions the cell into molecules and returns,
// alongside the components, cartesian positions with each molecule
// made whole: atoms bonded across a cell boundary are shifted to the
// periodic image nearest their bonded neighbour, so intramolecular
// geometry (centres of mass, inertia) comes out right.
func MoleculeGeometry(c *Cell, tol BondTolerance) ([][]int, [][3]float64, error) {
	bonds, err := Bonds(c, tol)
	if err != nil {
		return nil, nil, err
	}
	n := c.NAtoms()
	adj := make([][]int, n)
	for _, b := range bonds {
		adj[b[0]] = append(adj[b[0]], b[1])
		adj[b[1]] = append(adj[b[1]], b[0])
	}

	positions := c.Cartesian()
	seen := make([]bool, n)
	var components [][]int
	for start := 0; start < n; start++ {
		if seen[start] {
			continue
		}
		var comp []int
		queue := []int{start}
		seen[start] = true
		for len(queue) > 0 {
			at := queue[0]
			queue = queue[1:]
			comp = append(comp, at)
			for _, next := range adj[at] {
				if seen[next] {
					continue
				}
				seen[next] = true
				// Walk the bond, not the stored coordinate: the
				// neighbour goes next to the atom we came from.
				d := c.minimumImage(c.Fractional[at], c.Fractional[next])
				positions[next] = [3]float64{
					positions[at][0] + d[0],
					positions[at][1] + d[1],
					positions[at][2] + d[2],
				}
				queue = append(queue, next)
			}
		}
		sort.Ints(comp)
		components = append(components, comp)
	}
	return components, positions, nil
}
