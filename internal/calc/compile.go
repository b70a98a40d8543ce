package calc

import (
	"fmt"
	"strings"

	"github.com/parkerwray/PDielec/internal/crystal"
	"github.com/parkerwray/PDielec/internal/deck"
)

// CompileError is a problem that prevents part of the deck from being
// placed in the calculation model. Line refers to the source deck.
type CompileError struct {
	Field   string
	Message string
	Line    int
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Compile resolves a parsed deck into a Calculation: dataset suffixes
// are bound against ndtset/jdtset, the inheritance rule is applied,
// and the structural variables are typed. Compile collects every
// error it can and still returns the model assembled from the clean
// parts; it never invents values with physical meaning.
func Compile(d *deck.Deck) (*Calculation, []CompileError) {
	var errs []CompileError
	c := &Calculation{
		Defaults:  newParams(),
		Overrides: make(map[int]Params),
		Extra:     make(map[string][]deck.Value),
	}

	control := newParams()
	structure := newParams()

	for _, s := range d.Statements() {
		base, idx, suffixed := deck.SplitIndex(s.Name)
		spec, known := deck.Lookup(base)
		if !known {
			if _, dup := c.Extra[s.Name]; !dup {
				c.Extra[s.Name] = s.Expanded()
			}
			continue
		}

		switch spec.Class {
		case deck.ClassControl:
			if suffixed {
				errs = append(errs, CompileError{s.Name, fmt.Sprintf("%s cannot take a dataset suffix", base), s.Line})
				continue
			}
			setOnce(control, &c.Duplicates, base, 0, s)
		case deck.ClassStructure:
			if suffixed {
				errs = append(errs, CompileError{s.Name, "structural variables are shared by all datasets and cannot take a dataset suffix", s.Line})
				continue
			}
			setOnce(structure, &c.Duplicates, base, 0, s)
		case deck.ClassParam:
			if !suffixed {
				setOnce(c.Defaults, &c.Duplicates, base, 0, s)
				continue
			}
			group, ok := c.Overrides[idx]
			if !ok {
				group = newParams()
				c.Overrides[idx] = group
			}
			setOnce(group, &c.Duplicates, base, idx, s)
		}
	}

	errs = append(errs, compileControl(c, control)...)
	errs = append(errs, compileStructure(c, structure)...)
	c.structLines = structure.lines

	for _, idx := range c.JDtset {
		merged := c.Defaults.clone()
		overrides, ok := c.Overrides[idx]
		if !ok {
			overrides = newParams()
		}
		for _, name := range overrides.Names() {
			merged.set(name, overrides.Values(name), overrides.Line(name))
		}
		c.Datasets = append(c.Datasets, Dataset{Index: idx, Params: merged, Overrides: overrides})
	}

	return c, errs
}

// setOnce records a statement's values, keeping the first occurrence
// of a variable and noting repeats.
func setOnce(p Params, dups *[]Duplicate, name string, datasetIdx int, s *deck.Statement) {
	if p.Has(name) {
		*dups = append(*dups, Duplicate{Name: name, DatasetIndex: datasetIdx, Line: s.Line, FirstLine: p.Line(name)})
		return
	}
	p.set(name, s.Expanded(), s.Line)
}

func compileControl(c *Calculation, control Params) []CompileError {
	var errs []CompileError

	c.NDataset = 1
	if control.Has("ndtset") {
		n, ok := control.Int("ndtset")
		if !ok || n < 1 {
			errs = append(errs, CompileError{"ndtset", "must be a single positive integer", control.Line("ndtset")})
		} else {
			c.NDataset = int(n)
		}
	}

	if control.Has("jdtset") {
		order, ok := control.Ints("jdtset")
		if !ok {
			errs = append(errs, CompileError{"jdtset", "must be a list of dataset indexes", control.Line("jdtset")})
		} else {
			for _, idx := range order {
				if idx < 1 {
					errs = append(errs, CompileError{"jdtset", fmt.Sprintf("dataset index %d is not positive", idx), control.Line("jdtset")})
					continue
				}
				c.JDtset = append(c.JDtset, int(idx))
			}
		}
	}
	if c.JDtset == nil {
		for i := 1; i <= c.NDataset; i++ {
			c.JDtset = append(c.JDtset, i)
		}
	}
	return errs
}

func compileStructure(c *Calculation, structure Params) []CompileError {
	var errs []CompileError
	fail := func(field, msg string) {
		errs = append(errs, CompileError{field, msg, structure.Line(field)})
	}

	for _, name := range []string{"angdeg", "xcart", "xangst"} {
		if structure.Has(name) {
			fail(name, fmt.Sprintf("%s is not supported; give rprim and xred", name))
		}
	}

	// Solver-documented defaults: unit scaling factors and a unit
	// primitive matrix. Atom lists are never defaulted; validation
	// owns the counts.
	c.Structure.ACell = [3]float64{1, 1, 1}
	c.Structure.RPrim = [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	c.Structure.NTypAt = 1
	c.Structure.NAtom = 1

	if structure.Has("acell") {
		values, unit, ok := splitUnit(structure.Values("acell"))
		scale := 1.0
		switch unit {
		case "", "bohr":
		case "angstrom":
			scale = 1.0 / crystal.BohrToAngstrom
		default:
			fail("acell", fmt.Sprintf("unsupported unit %q", unit))
			ok = false
		}
		if ok {
			if floats, fok := asFloats(values); fok && len(floats) == 3 {
				for i, f := range floats {
					c.Structure.ACell[i] = f * scale
				}
			} else {
				fail("acell", "needs exactly three scaling factors")
			}
		}
	}

	if structure.Has("rprim") {
		if floats, ok := asFloats(structure.Values("rprim")); ok && len(floats) == 9 {
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					c.Structure.RPrim[i][j] = floats[3*i+j]
				}
			}
		} else {
			fail("rprim", "needs nine components, three per primitive vector")
		}
	}

	if structure.Has("ntypat") {
		if n, ok := structure.Int("ntypat"); ok && n >= 1 {
			c.Structure.NTypAt = int(n)
		} else {
			fail("ntypat", "must be a single positive integer")
		}
	}

	if structure.Has("znucl") {
		if zs, ok := structure.Ints("znucl"); ok {
			c.Structure.ZNucl = make([]int, len(zs))
			for i, z := range zs {
				c.Structure.ZNucl[i] = int(z)
			}
		} else {
			fail("znucl", "must be a list of atomic numbers")
		}
	}

	if structure.Has("natom") {
		if n, ok := structure.Int("natom"); ok && n >= 1 {
			c.Structure.NAtom = int(n)
		} else {
			fail("natom", "must be a single positive integer")
		}
	}

	if structure.Has("typat") {
		if ts, ok := structure.Ints("typat"); ok {
			c.Structure.TypAt = make([]int, len(ts))
			for i, tp := range ts {
				c.Structure.TypAt[i] = int(tp)
			}
		} else {
			fail("typat", "must be a list of type indexes")
		}
	}

	if structure.Has("xred") {
		if floats, ok := asFloats(structure.Values("xred")); ok && len(floats)%3 == 0 {
			for i := 0; i+2 < len(floats); i += 3 {
				c.Structure.XRed = append(c.Structure.XRed, [3]float64{floats[i], floats[i+1], floats[i+2]})
			}
		} else {
			fail("xred", "needs whole coordinate triples")
		}
	}

	if structure.Has("amu") {
		if floats, ok := asFloats(structure.Values("amu")); ok {
			c.Structure.AMU = floats
		} else {
			fail("amu", "must be a list of masses")
		}
	}

	return errs
}

// splitUnit separates an optional trailing unit word from a value
// list.
func splitUnit(values []deck.Value) ([]deck.Value, string, bool) {
	if len(values) == 0 {
		return values, "", true
	}
	if w, ok := values[len(values)-1].(deck.Word); ok {
		return values[:len(values)-1], strings.ToLower(w.V), true
	}
	return values, "", true
}

func asFloats(values []deck.Value) ([]float64, bool) {
	out := make([]float64, len(values))
	for i, v := range values {
		f, ok := deck.AsFloat(v)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}
