package runner

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkerwray/PDielec/internal/dielectric"
	"github.com/parkerwray/PDielec/internal/phonon"
	"github.com/parkerwray/PDielec/internal/scenario"
	"github.com/parkerwray/PDielec/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// archiveCalculation returns a two-mode calculation and its content
// hash after archiving it. Strengths are exactly the isotropic
// tensors of the intensities so the fallback path can be compared
// against it.
func archiveCalculation(t *testing.T, s *store.Store) (store.Calculation, string) {
	t.Helper()

	intensities := []float64{2.35, 0.85}
	c := &store.Calculation{
		Program: "abinit",
		NAtom:   2,
		Volume:  110.5,
		Density: 3.18,
		EpsilonInf: [3][3]float64{
			{2.68, 0, 0},
			{0, 2.68, 0},
			{0, 0, 2.68},
		},
		Modes: []store.Mode{
			{Index: 3, Frequency: 351.5, Intensity: intensities[0], Sigma: 5},
			{Index: 4, Frequency: 620, Intensity: intensities[1], Sigma: 5},
		},
		Strengths: phonon.IsotropicStrengths(intensities),
		CreatedAt: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
	}

	hash, err := s.WriteCalculation(context.Background(), c)
	require.NoError(t, err)
	c.Hash = hash
	return *c, hash
}

// sphereScenario is a PTFE pellet with a 10 percent crystal loading.
func sphereScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Method:         dielectric.MethodMaxwellGarnett,
		Shape:          dielectric.ShapeSphere,
		Matrix:         "ptfe",
		VolumeFraction: 0.1,
		Frequencies:    scenario.Grid{Min: 0, Max: 300, Increment: 50},
		Sigma:          scenario.SigmaConfig{Default: 5},
	}
}

func TestNew_Defaults(t *testing.T) {
	s := setupTestStore(t)

	r := New(s)

	assert.Same(t, s, r.Store)
	assert.IsType(t, SystemClock{}, r.Clock)
	assert.IsType(t, UUIDGenerator{}, r.IDs)
	assert.NotNil(t, r.Out)
}

func TestRun_RecordsRun(t *testing.T) {
	s := setupTestStore(t)
	_, hash := archiveCalculation(t, s)

	created := time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)
	r := &Runner{
		Store: s,
		Clock: FixedClock{T: created},
		IDs:   NewFixedIDs("run-1"),
		Out:   io.Discard,
	}

	sc := sphereScenario()
	rep, err := r.Run(context.Background(), hash, sc)
	require.NoError(t, err)

	assert.Equal(t, "run-1", rep.RunID)
	assert.Equal(t, hash, rep.CalcHash)
	assert.Equal(t, dielectric.MethodMaxwellGarnett, rep.Method)
	assert.Equal(t, dielectric.ShapeSphere, rep.Shape)
	assert.True(t, rep.CreatedAt.Equal(created))
	require.Len(t, rep.Points, 7) // 0..300 in steps of 50

	// The run row is in the archive with the denormalized columns
	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, hash, run.CalcHash)
	assert.Equal(t, "maxwell-garnett", run.Method)
	assert.Equal(t, "sphere", run.Shape)
	assert.True(t, run.CreatedAt.Equal(created))
	assert.Contains(t, string(run.Scenario), `"method":"maxwell-garnett"`)

	// The stored grid is the computed grid
	points, err := s.GetSpectrum(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, rep.Points, points)
}

func TestRun_PeakTracksStrongestAbsorption(t *testing.T) {
	s := setupTestStore(t)
	_, hash := archiveCalculation(t, s)

	r := &Runner{
		Store: s,
		Clock: FixedClock{T: time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)},
		IDs:   NewFixedIDs("run-1"),
		Out:   io.Discard,
	}

	// A grid straddling the 351.5 cm-1 mode
	sc := sphereScenario()
	sc.Frequencies = scenario.Grid{Min: 300, Max: 400, Increment: 10}

	rep, err := r.Run(context.Background(), hash, sc)
	require.NoError(t, err)

	var wantPeak, wantFreq float64
	for _, p := range rep.Points {
		if p.Absorption > wantPeak {
			wantPeak = p.Absorption
			wantFreq = p.Frequency
		}
	}
	assert.Positive(t, rep.PeakAbsorption)
	assert.Equal(t, wantPeak, rep.PeakAbsorption)
	assert.Equal(t, wantFreq, rep.PeakFrequency)
}

func TestRun_UnknownCalculation(t *testing.T) {
	s := setupTestStore(t)
	r := New(s)
	r.Out = io.Discard

	_, err := r.Run(context.Background(), "no-such-hash", sphereScenario())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows), "want sql.ErrNoRows, got %v", err)
}

func TestRun_RejectsBadLoading(t *testing.T) {
	s := setupTestStore(t)
	_, hash := archiveCalculation(t, s)
	r := New(s)
	r.Out = io.Discard

	sc := sphereScenario()
	sc.VolumeFraction = 0 // no loading at all

	_, err := r.Run(context.Background(), hash, sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volume fraction")
}

func TestCompute_GridOrder(t *testing.T) {
	s := setupTestStore(t)
	c, _ := archiveCalculation(t, s)

	points, err := Compute(context.Background(), c, sphereScenario())
	require.NoError(t, err)
	require.Len(t, points, 7)

	for i, p := range points {
		assert.Equal(t, float64(i*50), p.Frequency, "point %d", i)
	}
}

func TestCompute_IsotropicFallback(t *testing.T) {
	s := setupTestStore(t)
	c, _ := archiveCalculation(t, s)

	withTensors, err := Compute(context.Background(), c, sphereScenario())
	require.NoError(t, err)

	// The fixture's tensors are exactly the isotropic expansion of
	// its intensities, so dropping them must not change a single bit.
	c.Strengths = nil
	fromIntensities, err := Compute(context.Background(), c, sphereScenario())
	require.NoError(t, err)

	assert.Equal(t, withTensors, fromIntensities)
}

func TestCompute_MassFractionLoading(t *testing.T) {
	s := setupTestStore(t)
	c, _ := archiveCalculation(t, s)

	byMass := sphereScenario()
	byMass.VolumeFraction = 0
	byMass.MassFraction = 0.2

	points, err := Compute(context.Background(), c, byMass)
	require.NoError(t, err)
	require.Len(t, points, 7)

	// Equivalent volume fraction gives the identical sweep
	vf, err := byMass.Fraction(c.Density)
	require.NoError(t, err)
	byVolume := sphereScenario()
	byVolume.VolumeFraction = vf

	same, err := Compute(context.Background(), c, byVolume)
	require.NoError(t, err)
	assert.Equal(t, points, same)
}

func TestFixedIDs_Sequence(t *testing.T) {
	gen := NewFixedIDs("a", "b")

	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestUUIDGenerator_Format(t *testing.T) {
	gen := UUIDGenerator{}

	first := gen.Generate()
	second := gen.Generate()

	assert.Len(t, first, 36)
	assert.NotEqual(t, first, second)
}

func TestFixedClock_Now(t *testing.T) {
	at := time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)
	clock := FixedClock{T: at}

	assert.True(t, clock.Now().Equal(at))
	assert.True(t, clock.Now().Equal(at), "FixedClock must not advance")
}
