package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/parkerwray/PDielec/internal/query"
	"github.com/parkerwray/PDielec/internal/spectrum"
)

// GetCalculation retrieves an archived calculation by content hash,
// decoding the full canonical document including strength tensors.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetCalculation(ctx context.Context, hash string) (Calculation, error) {
	var (
		canonical  []byte
		createdStr string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT canonical, created_at
		FROM calculations
		WHERE hash = ?
	`, hash).Scan(&canonical, &createdStr)
	if err != nil {
		return Calculation{}, err
	}

	createdAt, err := parseTime(createdStr)
	if err != nil {
		return Calculation{}, fmt.Errorf("get calculation: parse created_at: %w", err)
	}

	return unmarshalCalculation(hash, canonical, createdAt)
}

// ListCalculations returns every archived calculation, oldest first.
// Ties on created_at break on hash so the order is deterministic.
//
// Returns an empty slice (not nil) if the archive is empty.
func (s *Store) ListCalculations(ctx context.Context) ([]Calculation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, canonical, created_at
		FROM calculations
		ORDER BY created_at ASC, hash COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query calculations: %w", err)
	}
	defer rows.Close()

	var calcs []Calculation
	for rows.Next() {
		var (
			hash       string
			canonical  []byte
			createdStr string
		)
		if err := rows.Scan(&hash, &canonical, &createdStr); err != nil {
			return nil, fmt.Errorf("scan calculation: %w", err)
		}
		createdAt, err := parseTime(createdStr)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for %s: %w", hash, err)
		}
		c, err := unmarshalCalculation(hash, canonical, createdAt)
		if err != nil {
			return nil, err
		}
		calcs = append(calcs, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calculations: %w", err)
	}

	// Return empty slice instead of nil
	if calcs == nil {
		calcs = []Calculation{}
	}

	return calcs, nil
}

// GetModes returns the scalar mode projection for a calculation,
// ordered by mode index. The per-mode strength tensors are not in
// this table; decode them from the archive document via
// GetCalculation.
//
// Returns an empty slice (not nil) if the calculation has no modes or
// does not exist.
func (s *Store) GetModes(ctx context.Context, calcHash string) ([]Mode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, frequency, intensity, sigma
		FROM modes
		WHERE calc_hash = ?
		ORDER BY idx ASC
	`, calcHash)
	if err != nil {
		return nil, fmt.Errorf("query modes: %w", err)
	}
	defer rows.Close()

	var modes []Mode
	for rows.Next() {
		var m Mode
		if err := rows.Scan(&m.Index, &m.Frequency, &m.Intensity, &m.Sigma); err != nil {
			return nil, fmt.Errorf("scan mode: %w", err)
		}
		modes = append(modes, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modes: %w", err)
	}

	if modes == nil {
		modes = []Mode{}
	}

	return modes, nil
}

// GetRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, calc_hash, scenario_json, method, shape, created_at
		FROM runs
		WHERE id = ?
	`, id)

	return scanRun(row)
}

// ListRuns returns the runs matching a filter, oldest first with ID
// as the deterministic tiebreak. The zero filter matches everything.
//
// The filter compiles to a WHERE fragment over the runs/calculations
// join; column names come from a fixed table and every literal is
// bound as a parameter.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListRuns(ctx context.Context, f query.Filter) ([]Run, error) {
	where, args, err := query.SQL(f)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.calc_hash, r.scenario_json, r.method, r.shape, r.created_at
		FROM runs r
		JOIN calculations c ON r.calc_hash = c.hash
		WHERE `+where+`
		ORDER BY r.created_at ASC, r.id COLLATE BINARY ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	if runs == nil {
		runs = []Run{}
	}

	return runs, nil
}

// GetSpectrum returns the stored grid points of a run in grid order.
//
// Returns an empty slice (not nil) if the run has no points or does
// not exist.
func (s *Store) GetSpectrum(ctx context.Context, runID string) ([]spectrum.Point, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT frequency, eps_real, eps_imag, n_real, n_imag, absorption, molar_absorption
		FROM spectrum_points
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query spectrum: %w", err)
	}
	defer rows.Close()

	var points []spectrum.Point
	for rows.Next() {
		var (
			p                      spectrum.Point
			epsRe, epsIm, nRe, nIm float64
		)
		err := rows.Scan(&p.Frequency, &epsRe, &epsIm, &nRe, &nIm, &p.Absorption, &p.MolarAbsorption)
		if err != nil {
			return nil, fmt.Errorf("scan spectrum point: %w", err)
		}
		p.EpsEff = complex(epsRe, epsIm)
		p.RefractiveIndex = complex(nRe, nIm)
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spectrum: %w", err)
	}

	if points == nil {
		points = []spectrum.Point{}
	}

	return points, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a run row. Passes sql.ErrNoRows through unchanged so
// callers can distinguish absence from failure.
func scanRun(row scanner) (Run, error) {
	var (
		r          Run
		scenario   string
		createdStr string
	)
	err := row.Scan(&r.ID, &r.CalcHash, &scenario, &r.Method, &r.Shape, &createdStr)
	if err == sql.ErrNoRows {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	r.Scenario = []byte(scenario)
	r.CreatedAt, err = parseTime(createdStr)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at for run %s: %w", r.ID, err)
	}

	return r, nil
}
