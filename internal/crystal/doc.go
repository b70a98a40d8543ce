// Package crystal holds the unit cell model and the element data the
// analysis layers share: lattice geometry, atomic masses under the
// three supported mass schemes, covalent radii, and the bond search
// used to split a cell into molecular units.
package crystal
