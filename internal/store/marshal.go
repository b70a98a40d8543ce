package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/parkerwray/PDielec/internal/canon"
)

// domainArchive separates archive document hashes from every other
// hash domain in the toolchain.
const domainArchive = "pdielec/archive/v1"

// Canonical returns the RFC 8785 canonical JSON document for the
// calculation. The document is what gets content-addressed: it carries
// the full per-mode oscillator strength tensors so a spectrum rebuilt
// from the archive matches one computed from the original output
// exactly, including for anisotropic crystals.
//
// Hash and CreatedAt are excluded - the first is derived from the
// document and the second is archive metadata, not physics.
func (c *Calculation) Canonical() ([]byte, error) {
	if len(c.Strengths) != 0 && len(c.Strengths) != len(c.Modes) {
		return nil, fmt.Errorf("%d strength tensors for %d modes", len(c.Strengths), len(c.Modes))
	}

	modes := make([]any, len(c.Modes))
	for i, m := range c.Modes {
		modes[i] = map[string]any{
			"index":     int64(m.Index),
			"frequency": m.Frequency,
			"intensity": m.Intensity,
			"sigma":     m.Sigma,
		}
	}

	tree := map[string]any{
		"program":     c.Program,
		"natom":       int64(c.NAtom),
		"volume":      c.Volume,
		"density":     c.Density,
		"epsilon_inf": matrixTree(c.EpsilonInf),
		"modes":       modes,
	}

	if len(c.Strengths) > 0 {
		strengths := make([]any, len(c.Strengths))
		for i, s := range c.Strengths {
			strengths[i] = matrixTree(s)
		}
		tree["strengths"] = strengths
	}

	data, err := canon.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("marshal calculation: %w", err)
	}
	return data, nil
}

// ContentHash returns the content address of the calculation:
// the domain-separated SHA-256 of its canonical document.
func (c *Calculation) ContentHash() (string, error) {
	data, err := c.Canonical()
	if err != nil {
		return "", err
	}
	return canon.Hash(domainArchive, data), nil
}

func matrixTree(m [3][3]float64) []any {
	rows := make([]any, 3)
	for i := 0; i < 3; i++ {
		rows[i] = []any{m[i][0], m[i][1], m[i][2]}
	}
	return rows
}

// Wire structs for decoding archived documents. Field tags mirror the
// canonical keys written by Canonical.
type calculationDoc struct {
	Program    string          `json:"program"`
	NAtom      int64           `json:"natom"`
	Volume     float64         `json:"volume"`
	Density    float64         `json:"density"`
	EpsilonInf [3][3]float64   `json:"epsilon_inf"`
	Modes      []modeDoc       `json:"modes"`
	Strengths  [][3][3]float64 `json:"strengths"`
}

type modeDoc struct {
	Index     int64   `json:"index"`
	Frequency float64 `json:"frequency"`
	Intensity float64 `json:"intensity"`
	Sigma     float64 `json:"sigma"`
}

// unmarshalCalculation decodes a stored canonical document. The hash
// and timestamp come from the surrounding row, not the document.
func unmarshalCalculation(hash string, data []byte, createdAt time.Time) (Calculation, error) {
	var doc calculationDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Calculation{}, fmt.Errorf("unmarshal calculation: %w", err)
	}

	modes := make([]Mode, len(doc.Modes))
	for i, m := range doc.Modes {
		modes[i] = Mode{
			Index:     int(m.Index),
			Frequency: m.Frequency,
			Intensity: m.Intensity,
			Sigma:     m.Sigma,
		}
	}

	return Calculation{
		Hash:       hash,
		Program:    doc.Program,
		NAtom:      int(doc.NAtom),
		Volume:     doc.Volume,
		Density:    doc.Density,
		EpsilonInf: doc.EpsilonInf,
		Modes:      modes,
		Strengths:  doc.Strengths,
		CreatedAt:  createdAt,
	}, nil
}
