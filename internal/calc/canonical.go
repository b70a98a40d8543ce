package calc

import (
	"github.com/parkerwray/PDielec/internal/canon"
	"github.com/parkerwray/PDielec/internal/deck"
)

// Canonical serializes the calculation as canonical JSON: object keys
// sorted by UTF-16 code units, strings NFC-normalized with minimal
// escaping, and numbers in shortest round-trip form. Identical
// calculations produce identical bytes on every platform; Hash builds
// on that.
func (c *Calculation) Canonical() ([]byte, error) {
	tree := map[string]any{
		"ndtset":    int64(c.NDataset),
		"jdtset":    intList(c.JDtset),
		"structure": structureTree(&c.Structure),
		"defaults":  paramsTree(c.Defaults),
		"datasets":  datasetsTree(c.Datasets),
	}
	if len(c.Extra) > 0 {
		extra := make(map[string]any, len(c.Extra))
		for name, values := range c.Extra {
			extra[name] = valuesTree(values)
		}
		tree["extra"] = extra
	}
	return canon.Marshal(tree)
}

func structureTree(s *Structure) map[string]any {
	tree := map[string]any{
		"acell":  floatList(s.ACell[:]),
		"rprim":  matrixTree(s.RPrim),
		"ntypat": int64(s.NTypAt),
		"znucl":  intList(s.ZNucl),
		"natom":  int64(s.NAtom),
		"typat":  intList(s.TypAt),
		"xred":   tripleTree(s.XRed),
	}
	if len(s.AMU) > 0 {
		tree["amu"] = floatList(s.AMU)
	}
	return tree
}

func datasetsTree(datasets []Dataset) []any {
	out := make([]any, len(datasets))
	for i := range datasets {
		d := &datasets[i]
		out[i] = map[string]any{
			"index":   int64(d.Index),
			"purpose": string(d.Purpose()),
			"params":  paramsTree(d.Params),
		}
	}
	return out
}

func paramsTree(p Params) map[string]any {
	tree := make(map[string]any, len(p.values))
	for _, name := range p.Names() {
		tree[name] = valuesTree(p.Values(name))
	}
	return tree
}

// valuesTree lowers deck values to canonical JSON values: a single
// value becomes a scalar, several become a list. Repeats are expanded
// so '3*1' and '1 1 1' canonicalize identically.
func valuesTree(values []deck.Value) any {
	values = deck.Expanded(values)
	lowered := make([]any, len(values))
	for i, v := range values {
		switch val := v.(type) {
		case deck.Int:
			lowered[i] = val.V
		case deck.Real:
			lowered[i] = val.V
		case deck.Word:
			lowered[i] = val.V
		}
	}
	if len(lowered) == 1 {
		return lowered[0]
	}
	return lowered
}

func intList[T int | int64](xs []T) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = int64(x)
	}
	return out
}

func floatList(xs []float64) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func matrixTree(m [3][3]float64) []any {
	out := make([]any, 3)
	for i := range m {
		out[i] = floatList(m[i][:])
	}
	return out
}

func tripleTree(ts [][3]float64) []any {
	out := make([]any, len(ts))
	for i := range ts {
		out[i] = floatList(ts[i][:])
	}
	return out
}
