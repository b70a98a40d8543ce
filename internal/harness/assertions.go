package harness

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Diagonal builds a 3x3 tensor with v on the diagonal and zeros
// elsewhere. Isotropic permittivities and strengths take this form.
func Diagonal(v float64) [3][3]float64 {
	return [3][3]float64{{v, 0, 0}, {0, v, 0}, {0, 0, v}}
}

// tensorDiff reports the difference between two 3x3 tensors, treating
// elements within tol of each other as equal. An empty string means the
// tensors match.
func tensorDiff(want, got [3][3]float64, tol float64) string {
	return cmp.Diff(want, got, cmpopts.EquateApprox(0, tol))
}

// AssertTensorApprox fails the test when any element of got differs
// from want by more than tol.
func AssertTensorApprox(t *testing.T, want, got [3][3]float64, tol float64) {
	t.Helper()
	if diff := tensorDiff(want, got, tol); diff != "" {
		t.Errorf("tensor mismatch (-want +got):\n%s", diff)
	}
}

// gridViolation returns the index of the first grid point that fails to
// strictly increase over its predecessor.
func gridViolation(freqs []float64) (int, bool) {
	for i := 1; i < len(freqs); i++ {
		if freqs[i] <= freqs[i-1] {
			return i, true
		}
	}
	return 0, false
}

// AssertMonotonicGrid fails the test when the frequency grid is not
// strictly increasing. Spectral sweeps and their CSV reports assume an
// ordered grid, so a violation here points at grid construction rather
// than the consumer.
func AssertMonotonicGrid(t *testing.T, freqs []float64) {
	t.Helper()
	if i, bad := gridViolation(freqs); bad {
		t.Errorf("grid not strictly increasing: point %d (%g) follows %g", i, freqs[i], freqs[i-1])
	}
}
