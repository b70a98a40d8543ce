package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/parkerwray/PDielec/internal/spectrum"
)

// createTestStore creates a new on-disk store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testCalculation returns an archivable two-mode calculation with
// full strength tensors. Timestamps are whole seconds so they
// round-trip through RFC 3339 text exactly.
func testCalculation() *Calculation {
	return &Calculation{
		Program: "abinit",
		NAtom:   2,
		Volume:  110.5,
		Density: 3.18,
		EpsilonInf: [3][3]float64{
			{2.68, 0, 0},
			{0, 2.68, 0},
			{0, 0, 2.68},
		},
		Modes: []Mode{
			{Index: 3, Frequency: 351.5, Intensity: 2.35, Sigma: 5},
			{Index: 4, Frequency: 620, Intensity: 0.85, Sigma: 5},
		},
		Strengths: [][3][3]float64{
			{{2.35, 0, 0}, {0, 2.35, 0}, {0, 0, 2.35}},
			{{0.85, 0, 0}, {0, 0.85, 0}, {0, 0, 0.85}},
		},
		CreatedAt: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
	}
}

// testRun returns a run row pointing at calcHash.
func testRun(id, calcHash string, created time.Time) Run {
	return Run{
		ID:        id,
		CalcHash:  calcHash,
		Scenario:  []byte(`{"method":"maxwell","shape":"sphere","volume_fraction":0.1}`),
		Method:    "maxwell",
		Shape:     "sphere",
		CreatedAt: created,
	}
}

// testPoints returns a small monotone frequency grid.
func testPoints() []spectrum.Point {
	return []spectrum.Point{
		{Frequency: 0, EpsEff: complex(2.25, 0), RefractiveIndex: complex(1.5, 0)},
		{Frequency: 200, EpsEff: complex(2.5, 0.125), RefractiveIndex: complex(1.59, 0.04),
			Absorption: 21.9, MolarAbsorption: 548.75},
		{Frequency: 400, EpsEff: complex(-1.25, 2), RefractiveIndex: complex(0.75, 1.5),
			Absorption: 2455.5, MolarAbsorption: 61387.5},
	}
}
