// Package spectrum sweeps an effective-medium problem over a
// frequency grid and renders the result as a CSV report.
package spectrum

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/parkerwray/PDielec/internal/dielectric"
)

// Point is one frequency sample of the effective medium response.
type Point struct {
	Frequency       float64    // cm-1
	EpsEff          complex128 // orientation-averaged effective permittivity
	RefractiveIndex complex128
	Absorption      float64 // cm-1
	MolarAbsorption float64 // L mol-1 cm-1
}

// Crystal is the frequency-dependent crystal permittivity entering
// the mixing equations, evaluated at f in cm-1.
type Crystal func(f float64) dielectric.Tensor

// Config fixes the mixing problem solved at every grid point.
type Config struct {
	Method         dielectric.Method
	Depolarisation dielectric.Tensor
	VolumeFraction float64
	// Concentration is the molar concentration of unit cells in
	// mol/L; together with the volume fraction it scales absorption
	// coefficients to molar ones.
	Concentration float64
}

// sweepChunk is the number of grid points one worker takes at a time.
const sweepChunk = 64

// Sweep evaluates the effective medium at every grid frequency.
// Workers take chunks of the grid under one errgroup and write into a
// slice pre-allocated by index, so the output order is the grid order
// no matter how chunks are scheduled.
func Sweep(ctx context.Context, cfg Config, ec Crystal, em dielectric.Tensor, grid []float64) ([]Point, error) {
	if cfg.VolumeFraction <= 0 || cfg.VolumeFraction > 1 {
		return nil, fmt.Errorf("volume fraction %g is not in (0, 1]", cfg.VolumeFraction)
	}
	if cfg.Concentration <= 0 {
		return nil, fmt.Errorf("non-positive concentration %g mol/L", cfg.Concentration)
	}

	points := make([]Point, len(grid))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for start := 0; start < len(grid); start += sweepChunk {
		end := min(start+sweepChunk, len(grid))
		eg.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				p, err := at(cfg, ec, em, grid[i])
				if err != nil {
					return fmt.Errorf("frequency %g cm-1: %w", grid[i], err)
				}
				points[i] = p
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// at solves one grid point.
func at(cfg Config, ec Crystal, em dielectric.Tensor, f float64) (Point, error) {
	eff, err := dielectric.Mix(cfg.Method, em, ec(f), cfg.Depolarisation, cfg.VolumeFraction)
	if err != nil {
		return Point{}, err
	}
	n := dielectric.RefractiveIndex(eff)
	alpha := dielectric.Absorption(f, n)
	return Point{
		Frequency:       f,
		EpsEff:          eff.Average(),
		RefractiveIndex: n,
		Absorption:      alpha,
		MolarAbsorption: alpha / (cfg.Concentration * cfg.VolumeFraction),
	}, nil
}
