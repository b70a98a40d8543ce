package crystal

import "fmt"

// MassScheme selects where atomic masses come from.
type MassScheme string

const (
	// SchemeProgram uses the masses reported by the solver output.
	SchemeProgram MassScheme = "program"
	// SchemeAverage uses standard atomic weights.
	SchemeAverage MassScheme = "average"
	// SchemeIsotope uses the most abundant isotope mass.
	SchemeIsotope MassScheme = "isotope"
)

// ParseMassScheme validates a scheme name.
func ParseMassScheme(s string) (MassScheme, error) {
	switch MassScheme(s) {
	case SchemeProgram, SchemeAverage, SchemeIsotope:
		return MassScheme(s), nil
	}
	return "", fmt.Errorf("unknown mass scheme %q (want program, average, or isotope)", s)
}

// Masses resolves per-atom masses in amu. programMasses may be nil
// unless the scheme is SchemeProgram. Overrides map element symbols
// to replacement masses and win over every scheme.
func Masses(atomicNumbers []int, scheme MassScheme, programMasses []float64, overrides map[string]float64) ([]float64, error) {
	out := make([]float64, len(atomicNumbers))
	switch scheme {
	case SchemeProgram:
		if len(programMasses) != len(atomicNumbers) {
			return nil, fmt.Errorf("solver output has %d masses for %d atoms", len(programMasses), len(atomicNumbers))
		}
		copy(out, programMasses)
	case SchemeAverage, SchemeIsotope:
		for i, z := range atomicNumbers {
			if !KnownZ(z) {
				return nil, fmt.Errorf("atom %d: unknown atomic number %d", i+1, z)
			}
			if scheme == SchemeAverage {
				out[i] = elements[z].Average
			} else {
				out[i] = elements[z].Isotope
			}
		}
	default:
		return nil, fmt.Errorf("unknown mass scheme %q", scheme)
	}

	for symbol, mass := range overrides {
		z, err := AtomicNumber(symbol)
		if err != nil {
			return nil, fmt.Errorf("mass override: %w", err)
		}
		if mass <= 0 {
			return nil, fmt.Errorf("mass override for %s must be positive, got %g", symbol, mass)
		}
		for i, az := range atomicNumbers {
			if az == z {
				out[i] = mass
			}
		}
	}
	return out, nil
}
