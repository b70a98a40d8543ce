package calc

import (
	"sort"

	"github.com/parkerwray/PDielec/internal/crystal"
	"github.com/parkerwray/PDielec/internal/deck"
)

// Purpose classifies what a dataset computes, derived from its
// response flags rather than declared.
type Purpose string

const (
	// PurposeGroundState is a self-consistent ground-state run.
	PurposeGroundState Purpose = "ground-state"
	// PurposeDDK is a d/dk wavefunction-derivative run (iscf -3,
	// rfelfd 2).
	PurposeDDK Purpose = "ddk"
	// PurposeResponse is a phonon and/or electric-field response run
	// (rfphon 1 and/or rfelfd 3).
	PurposeResponse Purpose = "response"
)

// Structure is the crystal structure shared by every dataset: acell
// scaling factors in Bohr, dimensionless primitive vectors, species
// atomic numbers, per-atom type assignments, and reduced coordinates.
type Structure struct {
	ACell  [3]float64
	RPrim  [3][3]float64
	NTypAt int
	ZNucl  []int
	NAtom  int
	TypAt  []int
	XRed   [][3]float64
	AMU    []float64
}

// Cell converts the structure to a geometric unit cell in Angstrom.
func (s *Structure) Cell() (*crystal.Cell, error) {
	zs := make([]int, len(s.TypAt))
	for i, tp := range s.TypAt {
		if tp < 1 || tp > len(s.ZNucl) {
			zs[i] = 0
			continue
		}
		zs[i] = s.ZNucl[tp-1]
	}
	return crystal.NewCellBohr(s.ACell, s.RPrim, s.XRed, zs)
}

// Params is an immutable set of resolved input variables for one
// dataset (or the shared defaults). Values are stored expanded, with
// repeat syntax flattened.
type Params struct {
	values map[string][]deck.Value
	lines  map[string]int
}

func newParams() Params {
	return Params{values: make(map[string][]deck.Value), lines: make(map[string]int)}
}

func (p Params) clone() Params {
	out := newParams()
	for k, v := range p.values {
		out.values[k] = v
	}
	for k, v := range p.lines {
		out.lines[k] = v
	}
	return out
}

func (p Params) set(name string, values []deck.Value, line int) {
	p.values[name] = values
	p.lines[name] = line
}

// Has reports whether the variable is set.
func (p Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Line returns the source line a variable was set on, or 0.
func (p Params) Line(name string) int {
	return p.lines[name]
}

// Names returns the set variable names in sorted order.
func (p Params) Names() []string {
	out := make([]string, 0, len(p.values))
	for k := range p.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Values returns the raw values of a variable.
func (p Params) Values(name string) []deck.Value {
	return p.values[name]
}

// Int returns a scalar integer variable.
func (p Params) Int(name string) (int64, bool) {
	vals := p.values[name]
	if len(vals) != 1 {
		return 0, false
	}
	return deck.AsInt(vals[0])
}

// IntOr returns a scalar integer variable or a fallback.
func (p Params) IntOr(name string, fallback int64) int64 {
	if v, ok := p.Int(name); ok {
		return v
	}
	return fallback
}

// Float returns a scalar numeric variable.
func (p Params) Float(name string) (float64, bool) {
	vals := p.values[name]
	if len(vals) != 1 {
		return 0, false
	}
	return deck.AsFloat(vals[0])
}

// Ints returns every value of a variable as integers.
func (p Params) Ints(name string) ([]int64, bool) {
	vals, ok := p.values[name]
	if !ok {
		return nil, false
	}
	out := make([]int64, len(vals))
	for i, v := range vals {
		n, ok := deck.AsInt(v)
		if !ok {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

// Floats returns every value of a variable as floats.
func (p Params) Floats(name string) ([]float64, bool) {
	vals, ok := p.values[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		f, ok := deck.AsFloat(v)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// Dataset is one sub-calculation with its fully resolved parameters:
// the shared defaults overlaid with this dataset's suffixed
// overrides. Overrides records which variables were suffixed.
type Dataset struct {
	Index     int
	Params    Params
	Overrides Params
}

// Purpose derives the dataset's role from its response flags.
func (d *Dataset) Purpose() Purpose {
	if d.Params.IntOr("rfphon", 0) == 1 || d.Params.IntOr("rfelfd", 0) == 3 {
		return PurposeResponse
	}
	if d.Params.IntOr("iscf", 0) == -3 || d.Params.IntOr("rfelfd", 0) == 2 {
		return PurposeDDK
	}
	return PurposeGroundState
}

// GetWfk returns the getwfk cross-reference (0 = none).
func (d *Dataset) GetWfk() int64 { return d.Params.IntOr("getwfk", 0) }

// GetDdk returns the getddk cross-reference (0 = none).
func (d *Dataset) GetDdk() int64 { return d.Params.IntOr("getddk", 0) }

// RFDir returns the response direction flags, or zeros when unset.
func (d *Dataset) RFDir() [3]int64 {
	var out [3]int64
	dirs, ok := d.Params.Ints("rfdir")
	if !ok || len(dirs) != 3 {
		return out
	}
	copy(out[:], dirs)
	return out
}

// Duplicate records a repeated statement for the same variable and
// dataset; the first occurrence wins, validation flags the rest.
type Duplicate struct {
	Name         string
	DatasetIndex int
	Line         int
	FirstLine    int
}

// Calculation is the compiled form of a multi-dataset input deck.
// Datasets appear in execution order (the jdtset order). Overrides
// holds every suffixed parameter group keyed by dataset index,
// including indexes jdtset never selects, so validation can flag
// orphans.
type Calculation struct {
	NDataset  int
	JDtset    []int
	Structure Structure
	Defaults  Params
	Datasets  []Dataset
	Overrides map[int]Params
	Extra     map[string][]deck.Value

	Duplicates []Duplicate

	structLines map[string]int
}

// StructureLine returns the source line a structural variable was set
// on, or 0.
func (c *Calculation) StructureLine(name string) int {
	return c.structLines[name]
}

// Dataset returns the dataset with the given index, if present.
func (c *Calculation) Dataset(index int) (*Dataset, bool) {
	for i := range c.Datasets {
		if c.Datasets[i].Index == index {
			return &c.Datasets[i], true
		}
	}
	return nil, false
}

// position returns a dataset's execution slot (0-based) in jdtset
// order, or -1.
func (c *Calculation) position(index int) int {
	for i, idx := range c.JDtset {
		if idx == index {
			return i
		}
	}
	return -1
}
