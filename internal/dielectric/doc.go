// Package dielectric models the frequency-dependent permittivity of a
// powder: the Lorentzian response of the crystal's infrared-active
// modes, depolarisation fields for the supported particle shapes, and
// the effective-medium mixing schemes that combine crystal and support
// matrix into one measurable spectrum.
//
// Tensors are 3x3 complex. Frequencies cross the package boundary in
// cm-1 and volumes in Angstrom^3, matching the rest of the tooling.
package dielectric
