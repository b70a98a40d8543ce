package dielectric

import (
	"fmt"
	"math"
)

// Tensor is a 3x3 complex permittivity (or depolarisation) tensor.
type Tensor [3][3]complex128

// Identity returns the unit tensor.
func Identity() Tensor {
	return Tensor{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Scalar returns x times the unit tensor.
func Scalar(x complex128) Tensor {
	return Tensor{{x, 0, 0}, {0, x, 0}, {0, 0, x}}
}

// FromReal lifts a real tensor to a complex one.
func FromReal(r [3][3]float64) Tensor {
	var t Tensor
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = complex(r[i][j], 0)
		}
	}
	return t
}

// Add returns t + u.
func (t Tensor) Add(u Tensor) Tensor {
	var out Tensor
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = t[i][j] + u[i][j]
		}
	}
	return out
}

// Sub returns t - u.
func (t Tensor) Sub(u Tensor) Tensor {
	var out Tensor
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = t[i][j] - u[i][j]
		}
	}
	return out
}

// Scale returns x * t.
func (t Tensor) Scale(x complex128) Tensor {
	var out Tensor
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = x * t[i][j]
		}
	}
	return out
}

// Mul returns the matrix product t u.
func (t Tensor) Mul(u Tensor) Tensor {
	var out Tensor
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += t[i][k] * u[k][j]
			}
		}
	}
	return out
}

// Trace returns the sum of the diagonal.
func (t Tensor) Trace() complex128 {
	return t[0][0] + t[1][1] + t[2][2]
}

// Average returns the orientation average, one third of the trace.
func (t Tensor) Average() complex128 {
	return t.Trace() / 3
}

// AverageTensor returns the orientation average spread back onto the
// unit tensor.
func (t Tensor) AverageTensor() Tensor {
	return Scalar(t.Average())
}

// Inverse inverts the tensor by the adjugate. gonum's dense solvers
// are real-valued, so the 3x3 complex case is spelled out here.
func (t Tensor) Inverse() (Tensor, error) {
	c00 := t[1][1]*t[2][2] - t[1][2]*t[2][1]
	c01 := t[1][2]*t[2][0] - t[1][0]*t[2][2]
	c02 := t[1][0]*t[2][1] - t[1][1]*t[2][0]
	det := t[0][0]*c00 + t[0][1]*c01 + t[0][2]*c02
	if det == 0 {
		return Tensor{}, fmt.Errorf("singular tensor")
	}
	inv := Tensor{
		{c00, t[0][2]*t[2][1] - t[0][1]*t[2][2], t[0][1]*t[1][2] - t[0][2]*t[1][1]},
		{c01, t[0][0]*t[2][2] - t[0][2]*t[2][0], t[0][2]*t[1][0] - t[0][0]*t[1][2]},
		{c02, t[0][1]*t[2][0] - t[0][0]*t[2][1], t[0][0]*t[1][1] - t[0][1]*t[1][0]},
	}
	return inv.Scale(1 / det), nil
}

// Norm returns the Frobenius norm.
func (t Tensor) Norm() float64 {
	var s float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			re := real(t[i][j])
			im := imag(t[i][j])
			s += re*re + im*im
		}
	}
	return math.Sqrt(s)
}
