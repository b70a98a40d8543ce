package phonon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnergyDistribution_RigidAndInternal(t *testing.T) {
	// One homonuclear diatomic molecule along x.
	masses := []float64{1, 1}
	positions := [][3]float64{{0, 0, 0}, {1.5, 0, 0}}
	molecules := [][]int{{0, 1}}
	s := 1 / math.Sqrt2

	modes := [][][3]float64{
		{{s, 0, 0}, {s, 0, 0}},  // rigid translation
		{{s, 0, 0}, {-s, 0, 0}}, // bond stretch
		{{0, s, 0}, {0, -s, 0}}, // rotation about z
		{{0, 0, s}, {0, 0, -s}}, // rotation about y
	}
	out, err := EnergyDistribution(modes, masses, positions, molecules)
	require.NoError(t, err)
	require.Len(t, out, 4)

	for _, e := range out {
		assert.InDelta(t, 1, e.Total, 1e-12)
		assert.InDelta(t, 1, e.Molecular[0], 1e-12)
	}
	assert.InDelta(t, 1, out[0].CentreOfMass, 1e-12)
	assert.InDelta(t, 0, out[0].Vibrational, 1e-12)

	assert.InDelta(t, 1, out[1].Vibrational, 1e-12)
	assert.InDelta(t, 0, out[1].Rotational, 1e-12)

	assert.InDelta(t, 1, out[2].Rotational, 1e-12)
	assert.InDelta(t, 1, out[3].Rotational, 1e-12)
}

func TestEnergyDistribution_SplitsOverMolecules(t *testing.T) {
	// Two lone atoms: any motion is centre-of-mass motion of its own
	// "molecule".
	masses := []float64{16, 16}
	positions := [][3]float64{{0, 0, 0}, {4, 0, 0}}
	molecules := [][]int{{0}, {1}}

	modes := [][][3]float64{{{1, 0, 0}, {0, 0, 0}}}
	out, err := EnergyDistribution(modes, masses, positions, molecules)
	require.NoError(t, err)

	e := out[0]
	assert.InDelta(t, 1, e.Total, 1e-12)
	assert.InDelta(t, 1, e.CentreOfMass, 1e-12)
	assert.InDelta(t, 0, e.Rotational, 1e-12)
	assert.Equal(t, []float64{1, 0}, e.Molecular)
}

func TestEnergyDistribution_HeteronuclearRotation(t *testing.T) {
	// Unequal masses: a pure inertial rotation has no centre-of-mass
	// component only when displacements are taken about the proper
	// mass-weighted centre.
	m1, m2 := 1.0, 3.0
	masses := []float64{m1, m2}
	// Centre of mass at x = 1.125 for bond length 1.5.
	positions := [][3]float64{{0, 0, 0}, {1.5, 0, 0}}
	molecules := [][]int{{0, 1}}

	// Mass-weighted rotation about z: sqrt(m_a) * (e_z x rel_a).
	r1 := -1.125
	r2 := 0.375
	v := []float64{math.Sqrt(m1) * r1, math.Sqrt(m2) * r2}
	norm := math.Hypot(v[0], v[1])
	modes := [][][3]float64{{{0, v[0] / norm, 0}, {0, v[1] / norm, 0}}}

	out, err := EnergyDistribution(modes, masses, positions, molecules)
	require.NoError(t, err)
	e := out[0]
	assert.InDelta(t, 1, e.Rotational, 1e-12)
	assert.InDelta(t, 0, e.CentreOfMass, 1e-12)
	assert.InDelta(t, 0, e.Vibrational, 1e-12)
}

func TestEnergyDistribution_Errors(t *testing.T) {
	_, err := EnergyDistribution(nil, []float64{1}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positions")

	_, err = EnergyDistribution(nil, []float64{1}, [][3]float64{{0, 0, 0}}, [][]int{{0, 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	_, err = EnergyDistribution(nil, []float64{1, 1}, [][3]float64{{0, 0, 0}, {1, 0, 0}}, [][]int{{0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cover")
}
