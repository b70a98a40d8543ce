package dielectric

import (
	"fmt"
	"sort"
)

// Material is a support matrix the crystal powder is dispersed in:
// a frequency-independent permittivity and a density for converting
// mass fractions to volume fractions.
type Material struct {
	Name         string
	Permittivity float64
	Density      float64 // g/cm3
}

// Tensor returns the material's isotropic permittivity tensor.
func (m Material) Tensor() Tensor {
	return Scalar(complex(m.Permittivity, 0))
}

// materials lists the supported support matrices. Permittivities are
// the common literature values for the terahertz/infrared region.
var materials = map[string]Material{
	"ptfe":   {Name: "ptfe", Permittivity: 2.0, Density: 2.2},
	"air":    {Name: "air", Permittivity: 1.0, Density: 0.0},
	"vacuum": {Name: "vacuum", Permittivity: 1.0, Density: 0.0},
	"kbr":    {Name: "kbr", Permittivity: 2.25, Density: 2.75},
	"nujol":  {Name: "nujol", Permittivity: 2.155, Density: 0.838},
	"hdpe":   {Name: "hdpe", Permittivity: 2.25, Density: 0.955},
	"mdpe":   {Name: "mdpe", Permittivity: 2.25, Density: 0.933},
	"ldpe":   {Name: "ldpe", Permittivity: 2.25, Density: 0.925},
}

// MaterialByName looks up a support matrix.
func MaterialByName(name string) (Material, error) {
	m, ok := materials[name]
	if !ok {
		return Material{}, fmt.Errorf("unknown support matrix %q (supported: %v)", name, MaterialNames())
	}
	return m, nil
}

// MaterialNames returns the supported matrix names, sorted.
func MaterialNames() []string {
	names := make([]string, 0, len(materials))
	for name := range materials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// amuToGram converts atomic mass units to grams.
const amuToGram = 1.66053906660e-24

// CrystalDensity returns the density in g/cm3 of a crystal with the
// given total cell mass (amu) and cell volume (Angstrom^3).
func CrystalDensity(cellMass, volume float64) (float64, error) {
	if volume <= 0 {
		return 0, fmt.Errorf("non-positive cell volume %g", volume)
	}
	return cellMass * amuToGram / (volume * 1e-24), nil
}

// VolumeFraction converts a crystal mass fraction to a volume
// fraction using the crystal and matrix densities.
func VolumeFraction(massFraction, crystalDensity, matrixDensity float64) (float64, error) {
	if massFraction < 0 || massFraction > 1 {
		return 0, fmt.Errorf("mass fraction %g outside [0,1]", massFraction)
	}
	if crystalDensity <= 0 {
		return 0, fmt.Errorf("non-positive crystal density %g", crystalDensity)
	}
	if matrixDensity <= 0 {
		return 0, fmt.Errorf("support matrix has no density, give the volume fraction directly")
	}
	vc := massFraction / crystalDensity
	vm := (1 - massFraction) / matrixDensity
	return vc / (vc + vm), nil
}
