package dielectric

import (
	"fmt"
	"math"
)

// Shape names a particle geometry with a closed-form depolarisation
// tensor.
type Shape string

const (
	ShapeSphere    Shape = "sphere"
	ShapePlate     Shape = "plate"
	ShapeNeedle    Shape = "needle"
	ShapeEllipsoid Shape = "ellipsoid"
)

// ParseShape maps a settings string to a Shape.
func ParseShape(s string) (Shape, error) {
	switch Shape(s) {
	case ShapeSphere, ShapePlate, ShapeNeedle, ShapeEllipsoid:
		return Shape(s), nil
	case "":
		return ShapeSphere, nil
	}
	return "", fmt.Errorf("unknown particle shape %q (want sphere, plate, needle or ellipsoid)", s)
}

// DepolarisationSphere returns the isotropic tensor I/3.
func DepolarisationSphere() Tensor {
	return Scalar(complex(1.0/3.0, 0))
}

// DepolarisationPlate returns the depolarisation tensor of a thin
// plate with the given surface normal: the outer product of the unit
// normal with itself.
func DepolarisationPlate(normal [3]float64) (Tensor, error) {
	n, err := unit(normal)
	if err != nil {
		return Tensor{}, fmt.Errorf("plate normal: %w", err)
	}
	var t Tensor
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = complex(n[i]*n[j], 0)
		}
	}
	return t, nil
}

// DepolarisationNeedle returns the depolarisation tensor of a long
// needle along the unique axis: half the sum of the outer products of
// the two perpendicular directions.
func DepolarisationNeedle(axis [3]float64) (Tensor, error) {
	u, err := unit(axis)
	if err != nil {
		return Tensor{}, fmt.Errorf("needle axis: %w", err)
	}
	d1, d2 := perpendicularPair(u)
	var t Tensor
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = complex(0.5*(d1[i]*d1[j]+d2[i]*d2[j]), 0)
		}
	}
	return t, nil
}

// DepolarisationEllipsoid returns the depolarisation tensor of a
// spheroid with its unique axis along axis and axis ratio
// aOverB = a/b, a being the length along the unique axis. aOverB > 1
// is prolate (needle-like), < 1 oblate (plate-like), 1 a sphere.
func DepolarisationEllipsoid(axis [3]float64, aOverB float64) (Tensor, error) {
	if aOverB <= 0 {
		return Tensor{}, fmt.Errorf("ellipsoid a/b must be positive, got %g", aOverB)
	}
	u, err := unit(axis)
	if err != nil {
		return Tensor{}, fmt.Errorf("ellipsoid axis: %w", err)
	}
	d1, d2 := perpendicularPair(u)

	boverA := 1.0 / aOverB
	const small = 1.0e-8
	var nz float64
	switch {
	case boverA < 1.0-small: // prolate
		e := math.Sqrt(1.0 - boverA*boverA)
		nz = (1 - e*e) * (math.Log((1+e)/(1-e)) - 2*e) / (2 * e * e * e)
	case boverA > 1.0+small: // oblate
		e := math.Sqrt(boverA*boverA - 1.0)
		nz = (1 + e*e) * (e - math.Atan(e)) / (e * e * e)
	default:
		nz = 1.0 / 3.0
	}
	nxy := (1 - nz) * 0.5

	var t Tensor
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = complex(nz*u[i]*u[j]+nxy*(d1[i]*d1[j]+d2[i]*d2[j]), 0)
		}
	}
	return t, nil
}

// Depolarisation builds the tensor for a shape. direction is the plate
// normal, needle axis or ellipsoid unique axis; aOverB only applies to
// ellipsoids.
func Depolarisation(shape Shape, direction [3]float64, aOverB float64) (Tensor, error) {
	switch shape {
	case ShapeSphere:
		return DepolarisationSphere(), nil
	case ShapePlate:
		return DepolarisationPlate(direction)
	case ShapeNeedle:
		return DepolarisationNeedle(direction)
	case ShapeEllipsoid:
		return DepolarisationEllipsoid(direction, aOverB)
	}
	return Tensor{}, fmt.Errorf("unknown particle shape %q", shape)
}

func unit(v [3]float64) ([3]float64, error) {
	n := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if n == 0 {
		return v, fmt.Errorf("zero direction vector")
	}
	return [3]float64{v[0] / n, v[1] / n, v[2] / n}, nil
}

// perpendicularPair picks two orthonormal directions perpendicular to
// the unit vector u, seeding from the cartesian axis with the smallest
// projection onto u.
func perpendicularPair(u [3]float64) ([3]float64, [3]float64) {
	axes := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	best := 0
	bestDot := math.Abs(u[0])
	for i := 1; i < 3; i++ {
		if d := math.Abs(u[i]); d < bestDot {
			best = i
			bestDot = d
		}
	}
	seed := axes[best]
	dot := seed[0]*u[0] + seed[1]*u[1] + seed[2]*u[2]
	d1 := [3]float64{seed[0] - dot*u[0], seed[1] - dot*u[1], seed[2] - dot*u[2]}
	n := math.Sqrt(d1[0]*d1[0] + d1[1]*d1[1] + d1[2]*d1[2])
	d1 = [3]float64{d1[0] / n, d1[1] / n, d1[2] / n}
	d2 := [3]float64{
		u[1]*d1[2] - u[2]*d1[1],
		u[2]*d1[0] - u[0]*d1[2],
		u[0]*d1[1] - u[1]*d1[0],
	}
	return d1, d2
}
