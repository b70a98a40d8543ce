package runner

import (
	"context"
	"fmt"

	"github.com/parkerwray/PDielec/internal/spectrum"
	"github.com/parkerwray/PDielec/internal/store"
)

// Replay re-renders an archived run's CSV report to Out from its
// stored grid points. Nothing is recomputed: the stored points hold
// exact IEEE doubles and the CSV writer prints shortest round-trip
// floats, so replay output is byte-identical to the report written
// when the run was recorded.
//
// Returns the run row so callers can show its metadata alongside the
// report; the store's sql.ErrNoRows (wrapped) signals an unknown ID.
func (r *Runner) Replay(ctx context.Context, runID string) (store.Run, error) {
	run, err := r.Store.GetRun(ctx, runID)
	if err != nil {
		return store.Run{}, fmt.Errorf("load run: %w", err)
	}

	points, err := r.Store.GetSpectrum(ctx, run.ID)
	if err != nil {
		return store.Run{}, err
	}

	if err := spectrum.WriteCSV(r.Out, points); err != nil {
		return store.Run{}, fmt.Errorf("render report: %w", err)
	}
	return run, nil
}
