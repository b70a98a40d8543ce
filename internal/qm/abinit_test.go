package qm

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkerwray/PDielec/internal/crystal"
	"github.com/parkerwray/PDielec/internal/harness"
	"github.com/parkerwray/PDielec/internal/phonon"
)

// The fixture is a rocksalt NaCl response run with an isotropic
// nearest-neighbour force constant k, so every derived quantity has a
// closed form.
const naclForceConstant = 0.014 // Hartree/Bohr^2

func readNaCl(t *testing.T) *Result {
	t.Helper()
	r := &AbinitReader{}
	res, err := r.Read(filepath.Join("testdata", "nacl.out"))
	require.NoError(t, err)
	return res
}

func TestAbinitReader_InputEcho(t *testing.T) {
	res := readNaCl(t)

	assert.Equal(t, "abinit", res.Program)
	require.NotNil(t, res.Cell)
	assert.Equal(t, 2, res.Cell.NAtoms())
	assert.Equal(t, []int{11, 17}, res.Cell.AtomicNumbers)

	require.Len(t, res.Masses, 2)
	assert.InDelta(t, 22.9897693, res.Masses[0], 1e-10)
	assert.InDelta(t, 35.453, res.Masses[1], 1e-10)

	// fcc primitive cell: volume a^3/4.
	a := 10.66 * crystal.BohrToAngstrom
	assert.InDelta(t, a*a*a/4, res.Cell.Volume(), 1e-9)

	assert.Equal(t, 15.0, res.Ecut)
	assert.Equal(t, [3]int{4, 4, 4}, res.KPointGrid)
	assert.InDelta(t, -62.151964604*27.211386245988, res.Energy, 1e-8)
}

func TestAbinitReader_Hessian(t *testing.T) {
	res := readNaCl(t)
	require.Len(t, res.Hessian, 6)

	k := naclForceConstant
	m1 := res.Masses[0] * phonon.AmuToAU
	m2 := res.Masses[1] * phonon.AmuToAU
	assert.InDelta(t, k/m1, res.Hessian[0][0], 1e-15)
	assert.InDelta(t, k/m2, res.Hessian[3][3], 1e-15)
	assert.InDelta(t, -k/math.Sqrt(m1*m2), res.Hessian[0][3], 1e-15)
	assert.Zero(t, res.Hessian[0][1])
}

func TestAbinitReader_ModesFromHessian(t *testing.T) {
	res := readNaCl(t)

	freqs, _, err := phonon.Modes(res.Hessian)
	require.NoError(t, err)
	require.Len(t, freqs, 6)

	// Optic branch of the two-atom cell: w^2 = k/mu.
	mu := res.Masses[0] * res.Masses[1] / (res.Masses[0] + res.Masses[1])
	want := math.Sqrt(naclForceConstant/(mu*phonon.AmuToAU)) / phonon.CM1ToAU
	for _, f := range freqs[:3] {
		assert.InDelta(t, 0, f, 1e-3)
	}
	for _, f := range freqs[3:] {
		assert.InDelta(t, want, f, 1e-6)
	}

	// The program's own frequency report agrees to print precision.
	require.Len(t, res.Frequencies, 6)
	assert.InDelta(t, want, res.Frequencies[5], 0.05)
	assert.InDelta(t, 162.87, res.Frequencies[3], 1e-9)
}

func TestAbinitReader_BornChargesKeepLast(t *testing.T) {
	res := readNaCl(t)
	require.Len(t, res.BornCharges, 2)

	// The electric-field-response block is printed after the phonon
	// response one and wins.
	assert.InDelta(t, 1.10, res.BornCharges[0][0][0], 1e-12)
	assert.InDelta(t, 1.10, res.BornCharges[0][2][2], 1e-12)
	assert.InDelta(t, -1.10, res.BornCharges[1][1][1], 1e-12)
	assert.Zero(t, res.BornCharges[0][0][1])
}

func TestAbinitReader_DielectricTensor(t *testing.T) {
	res := readNaCl(t)
	harness.AssertTensorApprox(t, harness.Diagonal(2.32), res.EpsilonInf, 1e-12)
}

func TestAbinitReader_TruncatedDynamicalMatrix(t *testing.T) {
	r := &AbinitReader{}
	_, err := r.Read(filepath.Join("testdata", "truncated.out"))
	require.Error(t, err)

	var re *ReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 35, re.Line)
	assert.Contains(t, re.Message, "dynamical matrix block truncated")
}

func TestAbinitReader_MissingFile(t *testing.T) {
	r := &AbinitReader{}
	_, err := r.Read(filepath.Join("testdata", "missing.out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read abinit output")
}

func TestAbinitReader_NoGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.out")
	require.NoError(t, os.WriteFile(path, []byte("            natom           2\n"), 0o644))

	r := &AbinitReader{}
	_, err := r.Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output is missing")
	assert.Contains(t, err.Error(), "typat")
	assert.Contains(t, err.Error(), "acell")
}

func TestNew(t *testing.T) {
	for _, program := range []string{"abinit", "phonopy", "experiment"} {
		r, err := New(program)
		require.NoError(t, err)
		assert.Equal(t, program, r.Program())
	}
	_, err := New("castep")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown program "castep"`)
}
