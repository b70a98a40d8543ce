package phonon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// diatomicMW builds a mass-weighted dynamical matrix for two equal
// masses coupled along x, with the stretch mode placed at freq cm-1.
func diatomicMW(freq float64) [][]float64 {
	lambda := freq * CM1ToAU * freq * CM1ToAU
	v := []float64{1 / math.Sqrt2, 0, 0, -1 / math.Sqrt2, 0, 0}
	d := newSquare(6)
	for i := range v {
		for j := range v {
			d[i][j] = lambda * v[i] * v[j]
		}
	}
	return d
}

func TestSymmetrise_Average(t *testing.T) {
	h := [][]float64{{1, 2}, {4, 3}}
	out, err := Symmetrise(h, SymmetriseAverage)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 3}, {3, 3}}, out)
	// Input untouched.
	assert.Equal(t, 2.0, h[0][1])
}

func TestSymmetrise_Crystal(t *testing.T) {
	h := [][]float64{{1, 2}, {4, 3}}
	out, err := Symmetrise(h, SymmetriseCrystal)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 4}, {4, 3}}, out)
}

func TestSymmetrise_NotSquare(t *testing.T) {
	_, err := Symmetrise([][]float64{{1, 2}}, SymmetriseAverage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not square")
}

func TestParseSymmetrisation(t *testing.T) {
	s, err := ParseSymmetrisation("")
	require.NoError(t, err)
	assert.Equal(t, SymmetriseAverage, s)

	s, err = ParseSymmetrisation("crystal")
	require.NoError(t, err)
	assert.Equal(t, SymmetriseCrystal, s)

	_, err = ParseSymmetrisation("upper")
	require.Error(t, err)
}

func TestMassWeight(t *testing.T) {
	c := 0.04
	h := newSquare(3)
	for i := 0; i < 3; i++ {
		h[i][i] = c
	}
	d, err := MassWeight(h, []float64{4})
	require.NoError(t, err)
	assert.InDelta(t, c/(4*AmuToAU), d[0][0], 1e-15)
	assert.Zero(t, d[0][1])
}

func TestMassWeight_Errors(t *testing.T) {
	h := newSquare(6)
	_, err := MassWeight(h, []float64{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coordinates")

	_, err = MassWeight(h, []float64{1, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-positive mass")
}

func TestModes_DiatomicStretch(t *testing.T) {
	freqs, modes, err := Modes(diatomicMW(500))
	require.NoError(t, err)
	require.Len(t, freqs, 6)
	require.Len(t, modes, 6)

	for _, f := range freqs[:5] {
		assert.InDelta(t, 0, f, 1e-3)
	}
	assert.InDelta(t, 500, freqs[5], 1e-6)

	// The stretch eigenvector is (1,0,0,-1,0,0)/sqrt(2) up to sign.
	top := modes[5]
	s := math.Copysign(1, top[0][0])
	assert.InDelta(t, s/math.Sqrt2, top[0][0], 1e-9)
	assert.InDelta(t, -s/math.Sqrt2, top[1][0], 1e-9)
	assert.InDelta(t, 0, top[0][1], 1e-9)
}

func TestModes_ImaginaryIsNegative(t *testing.T) {
	d := diatomicMW(500)
	for i := range d {
		for j := range d[i] {
			d[i][j] = -d[i][j]
		}
	}
	freqs, _, err := Modes(d)
	require.NoError(t, err)
	assert.InDelta(t, -500, freqs[0], 1e-6)
}

func TestModes_BadSize(t *testing.T) {
	_, _, err := Modes(newSquare(4))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple of 3")
}

func TestProject_RemovesTranslation(t *testing.T) {
	// One translational eigenvalue, one stretch. Projection must kill
	// the translation and keep the stretch untouched.
	tv := []float64{1 / math.Sqrt2, 0, 0, 1 / math.Sqrt2, 0, 0}
	sv := []float64{1 / math.Sqrt2, 0, 0, -1 / math.Sqrt2, 0, 0}
	lt := math.Pow(300*CM1ToAU, 2)
	ls := math.Pow(500*CM1ToAU, 2)
	d := newSquare(6)
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			d[i][j] = lt*tv[i]*tv[j] + ls*sv[i]*sv[j]
		}
	}

	projected, err := Project(d, []float64{1, 1})
	require.NoError(t, err)
	freqs, _, err := Modes(projected)
	require.NoError(t, err)
	for _, f := range freqs[:5] {
		assert.InDelta(t, 0, f, 1e-3)
	}
	assert.InDelta(t, 500, freqs[5], 1e-6)
}

func TestXYZModes(t *testing.T) {
	modes := [][][3]float64{{{1, 0, 0}}}
	out, err := XYZModes(modes, []float64{4})
	require.NoError(t, err)
	assert.InDelta(t, 1/math.Sqrt(4*AmuToAU), out[0][0][0], 1e-12)

	_, err = XYZModes(modes, []float64{4, 4})
	require.Error(t, err)
}

func TestModeList(t *testing.T) {
	freqs := []float64{-2, 3, 100, 700}

	assert.Equal(t, []int{2, 3}, ModeList(freqs, nil))
	assert.Equal(t, []int{0, 1, 2}, ModeList(freqs, []int{3}))
	assert.Equal(t, []int{0, 1, 2, 3}, ModeList(freqs, []int{99}))
}

func TestReWeight_MatchesFreshWeighting(t *testing.T) {
	h := newSquare(6)
	h[0][0], h[3][3] = 0.02, 0.02
	h[0][3], h[3][0] = -0.02, -0.02
	h[1][1], h[4][4] = 0.011, 0.013
	old := []float64{2, 3}
	niu := []float64{5, 7}

	first, err := MassWeight(h, old)
	require.NoError(t, err)
	got, err := ReWeight(first, old, niu)
	require.NoError(t, err)
	want, err := MassWeight(h, niu)
	require.NoError(t, err)
	for i := range want {
		for j := range want[i] {
			assert.InDelta(t, want[i][j], got[i][j], 1e-15)
		}
	}
}

func TestReWeight_Errors(t *testing.T) {
	d := newSquare(6)
	_, err := ReWeight(d, []float64{1, 2}, []float64{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "old masses")

	_, err = ReWeight(d, []float64{1, 0}, []float64{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-positive mass")
}

func TestRebuild_InvertsModes(t *testing.T) {
	d := diatomicMW(500)
	freqs, modes, err := Modes(d)
	require.NoError(t, err)

	got, err := Rebuild(freqs, modes)
	require.NoError(t, err)
	for i := range d {
		for j := range d[i] {
			assert.InDelta(t, d[i][j], got[i][j], 1e-12)
		}
	}
}

func TestRebuild_ImaginaryMode(t *testing.T) {
	got, err := Rebuild([]float64{-100}, [][][3]float64{{{1, 0, 0}}})
	require.NoError(t, err)
	lambda := 100 * CM1ToAU * 100 * CM1ToAU
	assert.InDelta(t, -lambda, got[0][0], 1e-20)
	assert.Zero(t, got[1][1])
}

func TestRebuild_Errors(t *testing.T) {
	_, err := Rebuild([]float64{1, 2}, [][][3]float64{{{1, 0, 0}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frequencies")

	_, err = Rebuild(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no modes")
}
