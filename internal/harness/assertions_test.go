package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiagonal(t *testing.T) {
	d := Diagonal(2.5)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == j {
				assert.Equal(t, 2.5, d[i][j])
			} else {
				assert.Zero(t, d[i][j])
			}
		}
	}
}

func TestTensorDiff_WithinTolerance(t *testing.T) {
	got := Diagonal(2.0)
	got[1][1] += 5e-13
	assert.Empty(t, tensorDiff(Diagonal(2.0), got, 1e-12))
}

func TestTensorDiff_ReportsMismatch(t *testing.T) {
	got := Diagonal(2.0)
	got[2][0] = 0.5
	assert.NotEmpty(t, tensorDiff(Diagonal(2.0), got, 1e-12))
}

func TestGridViolation(t *testing.T) {
	tests := []struct {
		name  string
		freqs []float64
		index int
		bad   bool
	}{
		{name: "increasing", freqs: []float64{0, 50, 100}},
		{name: "plateau", freqs: []float64{0, 50, 50, 100}, index: 2, bad: true},
		{name: "decreasing", freqs: []float64{100, 50}, index: 1, bad: true},
		{name: "single point", freqs: []float64{42}},
		{name: "empty", freqs: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, bad := gridViolation(tt.freqs)
			assert.Equal(t, tt.bad, bad)
			if tt.bad {
				assert.Equal(t, tt.index, i)
			}
		})
	}
}

func TestAssertTensorApprox_Pass(t *testing.T) {
	got := Diagonal(3.0)
	got[0][0] += 1e-14
	AssertTensorApprox(t, Diagonal(3.0), got, 1e-12)
}

func TestAssertMonotonicGrid_Pass(t *testing.T) {
	AssertMonotonicGrid(t, []float64{0, 0.5, 200, 400})
}
