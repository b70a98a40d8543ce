package phonon

import "math"

// Conversion factors between Hartree atomic units and the practical
// units used at the package boundary. CODATA 2018 values.
const (
	// AmuToAU converts atomic mass units to electron masses.
	AmuToAU = 1822.888486217313

	// CM1ToAU converts a wavenumber in cm-1 to an angular frequency in
	// atomic units (Hartree / hbar).
	CM1ToAU = 1.0 / 219474.6313632

	// AngstromToBohr converts Angstrom to Bohr.
	AngstromToBohr = 1.0 / 0.529177210903

	// DebyeToAU converts a dipole moment in Debye to e*Bohr.
	DebyeToAU = 0.3934302695197202

	// molarFactor converts an intensity in (D/A)^2/amu times a
	// Lorentzian line shape in cm to a molar absorption coefficient in
	// L mol-1 cm-1.
	molarFactor = 4225.6
)

// d2byAmuAng2 converts an oscillator strength trace from atomic units
// to (Debye/Angstrom)^2 per amu, the unit CASTEP reports infrared
// intensities in.
var d2byAmuAng2 = math.Pow(DebyeToAU/AngstromToBohr, 2) / AmuToAU

// VolumeToAU converts a cell volume in Angstrom^3 to Bohr^3.
func VolumeToAU(volume float64) float64 {
	return volume * AngstromToBohr * AngstromToBohr * AngstromToBohr
}
