package store

import "time"

// Calculation is an archived phonon calculation. The Hash field is
// derived from the canonical document (see Canonical), so two imports
// of the same physical result land on the same row.
type Calculation struct {
	Hash    string
	Program string
	NAtom   int
	Volume  float64 // unit cell volume in Å³
	Density float64 // crystal density in g/cm³

	// EpsilonInf is the optical permittivity tensor.
	EpsilonInf [3][3]float64

	// Modes holds the scalar per-mode summary in mode order.
	Modes []Mode

	// Strengths holds the oscillator strength tensor for each mode,
	// parallel to Modes. May be empty for calculations archived from
	// sources that only report scalar intensities; spectrum
	// reconstruction then falls back to isotropic strengths.
	Strengths [][3][3]float64

	CreatedAt time.Time
}

// Mode is one infrared-active vibrational mode.
type Mode struct {
	Index     int
	Frequency float64 // cm⁻¹
	Intensity float64 // (D/Å)²/amu
	Sigma     float64 // Lorentzian width in cm⁻¹
}

// Run records one effective-medium spectrum computed from an archived
// calculation. Scenario is the canonical JSON of the scenario that
// produced it; Method and Shape are denormalized out of it so run
// listings can filter without decoding.
type Run struct {
	ID        string
	CalcHash  string
	Scenario  []byte
	Method    string
	Shape     string
	CreatedAt time.Time
}

// formatTime renders a timestamp as fixed-width RFC 3339 UTC text.
// Storing the fixed-width form keeps lexicographic ordering and LIKE
// prefix matching aligned with chronological ordering.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime is the inverse of formatTime.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
