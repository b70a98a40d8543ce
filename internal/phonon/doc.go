// Package phonon turns the second-derivative output of a quantum
// chemistry run (hessian, Born effective charges, optical permittivity)
// into infrared observables: normal mode frequencies, oscillator
// strengths, absorption intensities and the ionic contribution to the
// static permittivity.
//
// All internal arithmetic is done in Hartree atomic units. The public
// API uses the units the surrounding tooling speaks: frequencies in
// cm-1, masses in amu, cell volumes in Angstrom^3. Conversions live in
// units.go.
package phonon
