package store

import (
	"context"
	"fmt"

	"github.com/parkerwray/PDielec/internal/canon"
	"github.com/parkerwray/PDielec/internal/spectrum"
)

// WriteCalculation archives a calculation and returns its content
// hash. The hash is derived from the canonical document, so writing
// the same physical result twice is a no-op: the second write commits
// nothing and returns the same hash. The Hash and CreatedAt fields of
// the existing row are left untouched on a duplicate write.
//
// The calculation document and its mode projection are written in one
// transaction, so readers never observe a calculation without its
// modes. CreatedAt must be set by the caller.
func (s *Store) WriteCalculation(ctx context.Context, c *Calculation) (string, error) {
	canonical, err := c.Canonical()
	if err != nil {
		return "", fmt.Errorf("write calculation: %w", err)
	}
	hash := canon.Hash(domainArchive, canonical)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write calculation: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO calculations
		(hash, canonical, program, natom, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`,
		hash,
		canonical,
		c.Program,
		c.NAtom,
		formatTime(c.CreatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("write calculation: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("write calculation: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Already archived - the modes from the first write stand.
		if err := tx.Commit(); err != nil {
			return "", fmt.Errorf("write calculation: commit (existing): %w", err)
		}
		return hash, nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO modes
		(calc_hash, idx, frequency, intensity, sigma)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("write calculation: prepare modes: %w", err)
	}
	defer stmt.Close()

	for _, m := range c.Modes {
		if _, err := stmt.ExecContext(ctx, hash, m.Index, m.Frequency, m.Intensity, m.Sigma); err != nil {
			return "", fmt.Errorf("write calculation: insert mode %d: %w", m.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("write calculation: commit: %w", err)
	}

	return hash, nil
}

// WriteRun records a spectrum run and its grid points in one
// transaction.
//
// Unlike calculations, runs are not idempotent: run IDs are fresh
// UUIDs, so a duplicate ID means a caller bug and the insert fails.
//
// Note: The calculation referenced by CalcHash must exist (foreign key
// constraint).
func (s *Store) WriteRun(ctx context.Context, r Run, points []spectrum.Point) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, calc_hash, scenario_json, method, shape, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.CalcHash,
		string(r.Scenario),
		r.Method,
		r.Shape,
		formatTime(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("write run: insert: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO spectrum_points
		(run_id, idx, frequency, eps_real, eps_imag, n_real, n_imag, absorption, molar_absorption)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write run: prepare points: %w", err)
	}
	defer stmt.Close()

	for i, p := range points {
		_, err := stmt.ExecContext(ctx,
			r.ID,
			i,
			p.Frequency,
			real(p.EpsEff),
			imag(p.EpsEff),
			real(p.RefractiveIndex),
			imag(p.RefractiveIndex),
			p.Absorption,
			p.MolarAbsorption,
		)
		if err != nil {
			return fmt.Errorf("write run: insert point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}

	return nil
}
