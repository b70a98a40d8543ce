package scenario

import (
	"strconv"

	"github.com/parkerwray/PDielec/internal/crystal"
	"github.com/parkerwray/PDielec/internal/dielectric"
	"github.com/parkerwray/PDielec/internal/phonon"
)

// Scenario is one effective-medium run description: the mixing method,
// the particle geometry, the support matrix, the crystal loading and
// the frequency grid, plus the normal-mode options that shape the
// crystal permittivity. Field names and defaults match the scenario
// file schema; the JSON form is what run archives store.
type Scenario struct {
	Method    dielectric.Method `json:"method"`
	Shape     dielectric.Shape  `json:"shape"`
	Direction [3]float64        `json:"direction"`
	AOverB    float64           `json:"aOverB"`

	// Matrix names a built-in support material. Permittivity and
	// Density describe a custom one instead; the two are exclusive.
	Matrix       string  `json:"matrix,omitempty"`
	Permittivity float64 `json:"permittivity,omitempty"`
	Density      float64 `json:"density,omitempty"`

	VolumeFraction float64 `json:"volumeFraction,omitempty"`
	MassFraction   float64 `json:"massFraction,omitempty"`

	Frequencies Grid        `json:"frequencies"`
	Sigma       SigmaConfig `json:"sigma"`
	Masses      MassConfig  `json:"masses"`

	Eckart  bool                  `json:"eckart"`
	Neutral bool                  `json:"neutral"`
	Hessian phonon.Symmetrisation `json:"hessian"`
	Modes   ModeConfig            `json:"modes"`
}

// Grid is an inclusive frequency range in cm-1.
type Grid struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Increment float64 `json:"increment"`
}

// Points expands the grid, min to max inclusive. The last point is
// kept when max lands on the grid within rounding error.
func (g Grid) Points() []float64 {
	n := int((g.Max-g.Min)/g.Increment*(1+1e-12)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = g.Min + float64(i)*g.Increment
	}
	return out
}

// SigmaConfig is the Lorentzian damping: a default width and per-mode
// overrides keyed by the decimal zero-based mode index.
type SigmaConfig struct {
	Default float64            `json:"default"`
	Modes   map[string]float64 `json:"modes,omitempty"`
}

// For returns the width for one mode index.
func (s SigmaConfig) For(mode int) float64 {
	if v, ok := s.Modes[strconv.Itoa(mode)]; ok {
		return v
	}
	return s.Default
}

// Values expands the per-mode widths for n modes.
func (s SigmaConfig) Values(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = s.For(i)
	}
	return out
}

// MassConfig selects where atomic masses come from. Overrides map
// element symbols to replacement masses in amu and win over every
// scheme.
type MassConfig struct {
	Scheme    crystal.MassScheme `json:"scheme"`
	Overrides map[string]float64 `json:"overrides,omitempty"`
}

// ModeConfig selects which modes contribute and which are reported.
// An explicit Ignore list is the only ignore set; otherwise modes
// below the low-frequency cutoff are dropped. VMin and VMax bound
// the reporting range.
type ModeConfig struct {
	Ignore []int   `json:"ignore,omitempty"`
	VMin   float64 `json:"vmin"`
	VMax   float64 `json:"vmax"`
}

// Material resolves the support matrix, by name or from the explicit
// permittivity and density fields.
func (s *Scenario) Material() (dielectric.Material, error) {
	if s.Matrix != "" {
		return dielectric.MaterialByName(s.Matrix)
	}
	return dielectric.Material{
		Name:         "custom",
		Permittivity: s.Permittivity,
		Density:      s.Density,
	}, nil
}

// Fraction returns the crystal volume fraction, converting a mass
// fraction with the crystal and matrix densities when the scenario
// is given by mass.
func (s *Scenario) Fraction(crystalDensity float64) (float64, error) {
	if s.MassFraction > 0 {
		m, err := s.Material()
		if err != nil {
			return 0, err
		}
		return dielectric.VolumeFraction(s.MassFraction, crystalDensity, m.Density)
	}
	return s.VolumeFraction, nil
}

// Depolarisation returns the particle shape tensor for the scenario's
// geometry.
func (s *Scenario) Depolarisation() (dielectric.Tensor, error) {
	return dielectric.Depolarisation(s.Shape, s.Direction, s.AOverB)
}
