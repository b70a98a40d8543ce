// Package qm reads the output of quantum mechanics packages into a
// common Result: unit cell, atomic masses, mass-weighted hessian, Born
// effective charges, optical permittivity and phonon frequencies.
//
// Each program gets its own Reader. The ABINIT reader scans the
// response-function output text with an ordered table of regular
// expressions, one handler per recognised echo or result block; the
// phonopy reader decodes the YAML files a phonopy post-processing run
// leaves behind; the experiment reader parses a small hand-written
// format for measured spectra. New picks a reader by program name.
//
// A Result never interprets the data it carries: hessian
// symmetrisation, Eckart projection and mass rescheming are choices
// the caller makes through internal/phonon.
package qm
