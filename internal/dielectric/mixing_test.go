package dielectric

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// classicMaxwellGarnett is the textbook scalar Maxwell Garnett result
// for spherical inclusions, used as an independent check.
func classicMaxwellGarnett(em, ec complex128, vf float64) complex128 {
	f := complex(vf, 0)
	return em + 3*f*em*(ec-em)/(ec+2*em-f*(ec-em))
}

func TestAveragedPermittivity(t *testing.T) {
	em := Scalar(2.25)
	ec := Scalar(complex(9, 0.3))
	eff := AveragedPermittivity(em, ec, 0.2)

	want := complex(0.2*9+0.8*2.25, 0.2*0.3)
	assertTensorApprox(t, Scalar(want), eff, 1e-12)
}

func TestMaxwellGarnett_MatchesClassicSphereForm(t *testing.T) {
	em := Scalar(2.25)
	ec := Scalar(complex(9, 0.3))
	L := DepolarisationSphere()

	for _, vf := range []float64{0.01, 0.1, 0.3} {
		eff, err := MaxwellGarnett(em, ec, L, vf)
		require.NoError(t, err)
		want := classicMaxwellGarnett(2.25, complex(9, 0.3), vf)
		assert.InDelta(t, real(want), real(eff[0][0]), 1e-10, "vf=%g", vf)
		assert.InDelta(t, imag(want), imag(eff[0][0]), 1e-10, "vf=%g", vf)
	}
}

func TestMaxwellGarnett_AnisotropicCrystalIsAveraged(t *testing.T) {
	em := Scalar(2.0)
	ec := Tensor{{9 + 0.3i, 0, 0}, {0, 7 + 0.2i, 0}, {0, 0, 5 + 0.1i}}
	eff, err := MaxwellGarnett(em, ec, DepolarisationSphere(), 0.1)
	require.NoError(t, err)

	// Isotropic output.
	assert.Equal(t, eff[0][0], eff[1][1])
	assert.Equal(t, eff[1][1], eff[2][2])
	assert.Zero(t, eff[0][1])
}

func TestMaxwellSihvola_AgreesWithMaxwellGarnett(t *testing.T) {
	em := Scalar(2.25)
	ec := Tensor{{9 + 0.3i, 0, 0}, {0, 7 + 0.2i, 0}, {0, 0, 5 + 0.1i}}
	L := DepolarisationSphere()

	a, err := MaxwellGarnett(em, ec, L, 0.15)
	require.NoError(t, err)
	b, err := MaxwellSihvola(em, ec, L, 0.15)
	require.NoError(t, err)
	assertTensorApprox(t, a, b, 1e-10)
}

func TestBalan_ScalarClosedForm(t *testing.T) {
	em := complex128(2.25)
	ec := complex128(9 + 0.3i)
	vf := 0.1
	eff, err := Balan(Scalar(em), Scalar(ec), DepolarisationSphere(), vf)
	require.NoError(t, err)

	deformation := 3 * em / (ec + 2*em)
	want := complex(vf, 0) * (1 + deformation*(ec-1))
	assert.InDelta(t, real(want), real(eff[0][0]), 1e-12)
	assert.InDelta(t, imag(want), imag(eff[0][0]), 1e-12)
}

func TestBruggeman_DiluteLimitMatchesMaxwellGarnett(t *testing.T) {
	em := Scalar(2.25)
	ec := Scalar(complex(9, 0.3))
	L := DepolarisationSphere()

	br, err := Bruggeman(em, ec, L, 0.01)
	require.NoError(t, err)
	mg, err := MaxwellGarnett(em, ec, L, 0.01)
	require.NoError(t, err)
	assert.InDelta(t, real(mg[0][0]), real(br[0][0]), 2e-3)
	assert.InDelta(t, imag(mg[0][0]), imag(br[0][0]), 2e-3)
}

func TestBruggeman_SatisfiesBalanceCondition(t *testing.T) {
	em := Scalar(2.25)
	ec := Scalar(complex(9, 1))
	L := DepolarisationSphere()

	br, err := Bruggeman(em, ec, L, 0.5)
	require.NoError(t, err)

	// The fixed point cancels the two phases' polarisabilities.
	_, residual, err := bruggemanStep(br, em, ec, L, 0.5)
	require.NoError(t, err)
	assert.Less(t, residual, 1e-6)

	// And lands between the two phases.
	assert.Greater(t, real(br[0][0]), 2.25)
	assert.Less(t, real(br[0][0]), 9.0)
}

func TestBruggeman_SymmetricInPhases(t *testing.T) {
	// Unlike Maxwell Garnett, Bruggeman treats the phases evenly:
	// swapping them and the volume fraction gives the same medium.
	em := Scalar(2.25)
	ec := Scalar(complex(9, 1))
	L := DepolarisationSphere()

	a, err := Bruggeman(em, ec, L, 0.3)
	require.NoError(t, err)
	b, err := Bruggeman(ec, em, L, 0.7)
	require.NoError(t, err)
	assertTensorApprox(t, a, b, 1e-6)
}

func TestCoherent_DiluteLimitNearMaxwellGarnett(t *testing.T) {
	em := Scalar(2.25)
	ec := Scalar(complex(9, 0.3))
	L := DepolarisationSphere()

	co, err := Coherent(em, ec, L, 0.01)
	require.NoError(t, err)
	mg, err := MaxwellGarnett(em, ec, L, 0.01)
	require.NoError(t, err)
	assert.InDelta(t, real(mg[0][0]), real(co[0][0]), 5e-3)
}

func TestMix_Dispatch(t *testing.T) {
	em := Scalar(2.25)
	ec := Scalar(complex(9, 0.3))
	L := DepolarisationSphere()

	for _, m := range []Method{MethodAveraged, MethodBalan, MethodMaxwellGarnett,
		MethodMaxwellSihvola, MethodBruggeman, MethodCoherent} {
		eff, err := Mix(m, em, ec, L, 0.1)
		require.NoError(t, err, "method %s", m)
		assert.False(t, cmplx.IsNaN(eff[0][0]), "method %s", m)
	}

	_, err := Mix(Method("looyenga"), em, ec, L, 0.1)
	require.Error(t, err)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodMaxwellGarnett, m)

	m, err = ParseMethod("maxwell")
	require.NoError(t, err)
	assert.Equal(t, MethodMaxwellGarnett, m)

	m, err = ParseMethod("bruggeman")
	require.NoError(t, err)
	assert.Equal(t, MethodBruggeman, m)

	_, err = ParseMethod("powell")
	require.Error(t, err)
}

func TestMaterials(t *testing.T) {
	m, err := MaterialByName("ptfe")
	require.NoError(t, err)
	assert.Equal(t, 2.0, m.Permittivity)
	assert.Equal(t, 2.2, m.Density)
	assertTensorApprox(t, Scalar(2.0), m.Tensor(), 1e-15)

	_, err = MaterialByName("teflon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ptfe")

	names := MaterialNames()
	assert.Contains(t, names, "kbr")
	assert.IsIncreasing(t, names)
}

func TestCrystalDensityAndVolumeFraction(t *testing.T) {
	// BaTiO3: one formula unit of 233.191 amu in a 64.3 A^3 cell is
	// about 6 g/cm3.
	rho, err := CrystalDensity(233.191, 64.3)
	require.NoError(t, err)
	assert.InDelta(t, 6.02, rho, 0.01)

	vf, err := VolumeFraction(0.5, 4, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, vf, 1e-12)

	_, err = VolumeFraction(1.5, 4, 2)
	require.Error(t, err)
	_, err = VolumeFraction(0.5, 0, 2)
	require.Error(t, err)
	_, err = VolumeFraction(0.5, 4, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volume fraction directly")
}
