package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/parkerwray/PDielec/internal/dielectric"
	"github.com/parkerwray/PDielec/internal/phonon"
	"github.com/parkerwray/PDielec/internal/scenario"
	"github.com/parkerwray/PDielec/internal/spectrum"
	"github.com/parkerwray/PDielec/internal/store"
)

// Runner executes scenarios against archived calculations and records
// the resulting runs. Clock and IDs are injected so tests get
// deterministic timestamps and run identifiers.
type Runner struct {
	Store *store.Store
	Clock Clock
	IDs   RunIDGenerator
	Out   io.Writer
}

// New returns a Runner with production defaults: wall clock, UUIDv7
// run IDs, reports to stdout.
func New(s *store.Store) *Runner {
	return &Runner{
		Store: s,
		Clock: SystemClock{},
		IDs:   UUIDGenerator{},
		Out:   os.Stdout,
	}
}

// RunReport summarises one recorded run.
type RunReport struct {
	RunID     string
	CalcHash  string
	Method    dielectric.Method
	Shape     dielectric.Shape
	CreatedAt time.Time
	Points    []spectrum.Point

	// PeakFrequency and PeakAbsorption locate the strongest
	// absorption on the grid; both are zero for an empty grid.
	PeakFrequency  float64
	PeakAbsorption float64
}

// Run executes a scenario against the archived calculation, records
// the run and its grid, and returns the report. The run row and every
// spectrum point are written in one transaction, so a crash never
// leaves a half-recorded run.
//
// Returns the store's sql.ErrNoRows (wrapped) when calcHash is not in
// the archive.
func (r *Runner) Run(ctx context.Context, calcHash string, sc *scenario.Scenario) (*RunReport, error) {
	c, err := r.Store.GetCalculation(ctx, calcHash)
	if err != nil {
		return nil, fmt.Errorf("load calculation: %w", err)
	}

	points, err := Compute(ctx, c, sc)
	if err != nil {
		return nil, fmt.Errorf("compute spectrum: %w", err)
	}

	scenarioJSON, err := marshalScenario(sc)
	if err != nil {
		return nil, err
	}

	run := store.Run{
		ID:        r.IDs.Generate(),
		CalcHash:  c.Hash,
		Scenario:  scenarioJSON,
		Method:    string(sc.Method),
		Shape:     string(sc.Shape),
		CreatedAt: r.Clock.Now(),
	}
	if err := r.Store.WriteRun(ctx, run, points); err != nil {
		return nil, err
	}

	return report(run, points), nil
}

// Compute sweeps a scenario over a calculation without touching the
// archive. Run uses it against stored calculations; the spectrum
// command uses it directly when working from a raw solver output.
//
// The calculation's mode set is used verbatim: mode selection, mass
// handling and damping were applied when the calculation was built,
// which is what makes a re-run from the archive reproduce the
// original spectrum. Calculations without strength tensors fall back
// to isotropic strengths built from the scalar intensities.
func Compute(ctx context.Context, c store.Calculation, sc *scenario.Scenario) ([]spectrum.Point, error) {
	m, err := sc.Material()
	if err != nil {
		return nil, err
	}
	vf, err := sc.Fraction(c.Density)
	if err != nil {
		return nil, err
	}
	L, err := sc.Depolarisation()
	if err != nil {
		return nil, err
	}
	conc, err := dielectric.Concentration(c.Volume)
	if err != nil {
		return nil, err
	}

	n := len(c.Modes)
	freqs := make([]float64, n)
	sigmas := make([]float64, n)
	intensities := make([]float64, n)
	for i, md := range c.Modes {
		freqs[i] = md.Frequency
		sigmas[i] = md.Sigma
		intensities[i] = md.Intensity
	}
	strengths := c.Strengths
	if len(strengths) == 0 {
		strengths = phonon.IsotropicStrengths(intensities)
	}
	active := make([]int, n)
	for i := range active {
		active[i] = i
	}

	epsInf := dielectric.FromReal(c.EpsilonInf)
	ec := func(f float64) dielectric.Tensor {
		return epsInf.Add(dielectric.Lorentzian(active, strengths, freqs, sigmas, c.Volume, f))
	}

	cfg := spectrum.Config{
		Method:         sc.Method,
		Depolarisation: L,
		VolumeFraction: vf,
		Concentration:  conc,
	}
	return spectrum.Sweep(ctx, cfg, ec, m.Tensor(), sc.Frequencies.Points())
}

// marshalScenario renders the scenario as the JSON stored with the
// run. Struct field order is fixed, so the bytes are deterministic
// for a given scenario.
func marshalScenario(sc *scenario.Scenario) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(sc); err != nil {
		return nil, fmt.Errorf("marshal scenario: %w", err)
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

// report builds the summary for a recorded run.
func report(run store.Run, points []spectrum.Point) *RunReport {
	rep := &RunReport{
		RunID:     run.ID,
		CalcHash:  run.CalcHash,
		Method:    dielectric.Method(run.Method),
		Shape:     dielectric.Shape(run.Shape),
		CreatedAt: run.CreatedAt,
		Points:    points,
	}
	for _, p := range points {
		if p.Absorption > rep.PeakAbsorption {
			rep.PeakAbsorption = p.Absorption
			rep.PeakFrequency = p.Frequency
		}
	}
	return rep
}
