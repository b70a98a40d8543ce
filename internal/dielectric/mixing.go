package dielectric

import "fmt"

// Method names an effective-medium mixing scheme.
type Method string

const (
	MethodAveraged       Method = "averaged"
	MethodBalan          Method = "balan"
	MethodMaxwellGarnett Method = "maxwell-garnett"
	MethodMaxwellSihvola Method = "maxwell-sihvola"
	MethodBruggeman      Method = "bruggeman"
	MethodCoherent       Method = "coherent"
)

// ParseMethod maps a settings string to a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodAveraged, MethodBalan, MethodMaxwellGarnett, MethodMaxwellSihvola,
		MethodBruggeman, MethodCoherent:
		return Method(s), nil
	case "":
		return MethodMaxwellGarnett, nil
	case "maxwell":
		return MethodMaxwellGarnett, nil
	}
	return "", fmt.Errorf("unknown effective medium method %q", s)
}

// Mix applies the named scheme to a matrix permittivity em, a crystal
// permittivity ec, a shape depolarisation tensor L and a crystal
// volume fraction vf. All schemes orientation-average, so the result
// is isotropic.
func Mix(method Method, em, ec, L Tensor, vf float64) (Tensor, error) {
	switch method {
	case MethodAveraged:
		return AveragedPermittivity(em, ec, vf), nil
	case MethodBalan:
		return Balan(em, ec, L, vf)
	case MethodMaxwellGarnett:
		return MaxwellGarnett(em, ec, L, vf)
	case MethodMaxwellSihvola:
		return MaxwellSihvola(em, ec, L, vf)
	case MethodBruggeman:
		return Bruggeman(em, ec, L, vf)
	case MethodCoherent:
		return Coherent(em, ec, L, vf)
	}
	return Tensor{}, fmt.Errorf("unknown effective medium method %q", method)
}

// AveragedPermittivity mixes by volume-weighted average of the two
// permittivities.
func AveragedPermittivity(em, ec Tensor, vf float64) Tensor {
	eff := ec.Scale(complex(vf, 0)).Add(em.Scale(complex(1-vf, 0)))
	return eff.AverageTensor()
}

// Balan mixes with the fixed deformation field of Balan's method: the
// inclusion response is screened by the matrix alone, independent of
// loading.
func Balan(em, ec, L Tensor, vf float64) (Tensor, error) {
	inv, err := em.Add(L.Mul(ec.Sub(em))).Inverse()
	if err != nil {
		return Tensor{}, fmt.Errorf("balan: %w", err)
	}
	deformation := em.Mul(inv)
	eff := Identity().Add(deformation.Mul(ec.Sub(Identity())))
	return Scalar(complex(vf, 0) * eff.Average()), nil
}

// MaxwellGarnett mixes with the Maxwell Garnett formula in Sihvola's
// form (eq. 5.78): dilute inclusions polarised against the pure
// matrix.
func MaxwellGarnett(em, ec, L Tensor, vf float64) (Tensor, error) {
	return maxwellGarnettScreened(em, em, ec, L, vf)
}

// maxwellGarnettScreened is the Maxwell Garnett step with the
// polarisation factor screened by an apparent medium (equal to the
// matrix for plain Maxwell Garnett, iterated for the coherent scheme).
func maxwellGarnettScreened(em, apparent, ec, L Tensor, vf float64) (Tensor, error) {
	emedium := em.Average()
	eapparent := apparent.Average()
	inv, err := em.Add(L.Mul(ec.Sub(em))).Inverse()
	if err != nil {
		return Tensor{}, fmt.Errorf("maxwell garnett: %w", err)
	}
	nalpha := ec.Sub(em).Mul(inv).Scale(emedium * complex(vf, 0))
	nalphal := nalpha.Scale(1 / eapparent).Mul(L)

	// Orientation-average both before solving for the polarisation.
	nalphaAvg := nalpha.AverageTensor()
	nalphalAvg := nalphal.AverageTensor()
	pinv, err := Identity().Sub(nalphalAvg).Inverse()
	if err != nil {
		return Tensor{}, fmt.Errorf("maxwell garnett: %w", err)
	}
	polarisation := pinv.Mul(nalphaAvg)
	return em.Add(polarisation).AverageTensor(), nil
}

// MaxwellSihvola mixes with Sihvola's unified formulation (eq. 6.29
// with the 6.40 orientation average). It agrees with MaxwellGarnett
// for an isotropic matrix.
func MaxwellSihvola(em, ec, L Tensor, vf float64) (Tensor, error) {
	invMedium := 3 / em.Trace()
	inv, err := Identity().Add(L.Mul(ec.Sub(em)).Scale(invMedium)).Inverse()
	if err != nil {
		return Tensor{}, fmt.Errorf("maxwell sihvola: %w", err)
	}
	na := ec.Sub(em).Mul(inv).Scale(complex(vf, 0))
	nal := na.Mul(L)

	naAvg := na.AverageTensor()
	nalAvg := nal.AverageTensor().Scale(invMedium)
	pinv, err := Identity().Sub(nalAvg).Inverse()
	if err != nil {
		return Tensor{}, fmt.Errorf("maxwell sihvola: %w", err)
	}
	pol := pinv.Mul(naAvg)
	return em.Add(pol).AverageTensor(), nil
}

// Coherent mixes with the coherent-potential scheme: the Maxwell
// Garnett polarisation is re-screened by the current effective medium,
// damped over a fixed number of passes from a Maxwell Garnett seed.
func Coherent(em, ec, L Tensor, vf float64) (Tensor, error) {
	apparent, err := MaxwellGarnett(em, ec, L, vf)
	if err != nil {
		return Tensor{}, err
	}
	for i := 0; i < 10; i++ {
		next, err := maxwellGarnettScreened(em, apparent, ec, L, vf)
		if err != nil {
			return Tensor{}, fmt.Errorf("coherent: %w", err)
		}
		apparent = apparent.Scale(0.1).Add(next.Scale(0.9))
	}
	return apparent, nil
}

// bruggemanMaxIter caps the fixed-point loop; physical inputs settle
// well before this.
const bruggemanMaxIter = 3000

// bruggemanTol is the residual polarisation balance at which the
// fixed point is accepted.
const bruggemanTol = 1.0e-8

// Bruggeman mixes with the symmetric Bruggeman condition: the two
// phases polarise against the effective medium itself and their
// polarisations cancel. Solved by fixed-point iteration from a
// Maxwell Garnett seed.
func Bruggeman(em, ec, L Tensor, vf float64) (Tensor, error) {
	epsbr, err := MaxwellGarnett(em, ec, L, vf)
	if err != nil {
		return Tensor{}, err
	}
	f1 := 1 - vf
	var residual float64
	for i := 0; i < bruggemanMaxIter; i++ {
		epsbr, residual, err = bruggemanStep(epsbr, em, ec, L, f1)
		if err != nil {
			return Tensor{}, fmt.Errorf("bruggeman: %w", err)
		}
		if residual < bruggemanTol {
			return epsbr.AverageTensor(), nil
		}
	}
	return Tensor{}, fmt.Errorf("bruggeman did not converge after %d iterations (residual %g)", bruggemanMaxIter, residual)
}

// bruggemanStep performs one pass of the self-consistent update and
// reports the residual of the Bruggeman balance equation.
func bruggemanStep(epsbr, eps1, eps2, L Tensor, f1 float64) (Tensor, float64, error) {
	f2 := 1 - f1
	leps1 := L.Mul(eps1.Sub(epsbr)).AverageTensor()
	leps2 := L.Mul(eps2.Sub(epsbr)).AverageTensor()
	a1, err := epsbr.Add(leps1).Inverse()
	if err != nil {
		return Tensor{}, 0, err
	}
	a2, err := epsbr.Add(leps2).Inverse()
	if err != nil {
		return Tensor{}, 0, err
	}
	alpha1 := eps1.AverageTensor().Sub(epsbr).Mul(a1)
	alpha2 := eps2.AverageTensor().Sub(epsbr).Mul(a2)
	residual := alpha1.Scale(complex(f1, 0)).Add(alpha2.Scale(complex(f2, 0))).Norm()

	m1 := eps1.Mul(a1).Scale(complex(f1, 0)).Add(eps2.Mul(a2).Scale(complex(f2, 0)))
	m2, err := a1.Scale(complex(f1, 0)).Add(a2.Scale(complex(f2, 0))).Inverse()
	if err != nil {
		return Tensor{}, 0, err
	}
	next := m1.Mul(m2).AverageTensor()
	return next, residual, nil
}
