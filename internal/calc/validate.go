package calc

import (
	"fmt"
	"math"
	"sort"

	"github.com/parkerwray/PDielec/internal/crystal"
)

// Validation error codes (E101-E199).
const (
	ErrCoordCount     = "E101" // xred triple count must equal natom
	ErrTypAtCount     = "E102" // typat length must equal natom
	ErrTypAtRange     = "E103" // typat values must index znucl
	ErrRefOrder       = "E104" // cross-reference must not point forward
	ErrRefUnknown     = "E105" // cross-reference to a dataset outside the calculation
	ErrTolerance      = "E106" // SCF tolerance selection per dataset
	ErrResponseFlags  = "E107" // rfdir/rfphon/rfelfd/rfatpol consistency
	ErrNumerics       = "E108" // ecut/nstep/tsmear/diemac/occopt ranges
	ErrDatasetBinding = "E109" // ndtset/jdtset/suffix bookkeeping
	ErrSpecies        = "E110" // znucl/ntypat consistency
	ErrDuplicate      = "E111" // repeated statement for a variable
	ErrCellVolume     = "E112" // lattice vectors must span a cell
	ErrRefTarget      = "E113" // cross-reference to a dataset of the wrong kind
)

// ValidationError is one consistency problem in a compiled
// calculation. Dataset is the dataset index the problem belongs to,
// or 0 for shared parts.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Dataset int    `json:"dataset,omitempty"`
	Line    int    `json:"line,omitempty"`
}

func (e ValidationError) Error() string {
	where := e.Field
	if e.Dataset > 0 {
		where = fmt.Sprintf("dataset %d: %s", e.Dataset, e.Field)
	}
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, where, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, where, e.Message)
}

// tolVars are the SCF stopping criteria; each dataset must use
// exactly one.
var tolVars = []string{"toldfe", "toldff", "tolrff", "tolvrs", "tolwfr"}

// Validate checks a compiled calculation against the solver's
// documented consistency rules. It returns every problem found, in
// deterministic order, and never stops at the first.
func Validate(c *Calculation) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateStructure(c)...)
	errs = append(errs, validateBinding(c)...)
	for pos := range c.Datasets {
		errs = append(errs, validateDataset(c, pos)...)
	}
	for _, dup := range c.Duplicates {
		errs = append(errs, ValidationError{
			Field:   dup.Name,
			Message: fmt.Sprintf("repeated statement; first occurrence on line %d wins", dup.FirstLine),
			Code:    ErrDuplicate,
			Dataset: dup.DatasetIndex,
			Line:    dup.Line,
		})
	}
	return errs
}

func validateStructure(c *Calculation) []ValidationError {
	var errs []ValidationError
	s := &c.Structure

	if len(s.XRed) != s.NAtom {
		errs = append(errs, ValidationError{
			Field:   "xred",
			Message: fmt.Sprintf("%d coordinate triples for natom %d", len(s.XRed), s.NAtom),
			Code:    ErrCoordCount,
			Line:    c.StructureLine("xred"),
		})
	}

	if len(s.TypAt) != s.NAtom {
		errs = append(errs, ValidationError{
			Field:   "typat",
			Message: fmt.Sprintf("%d type assignments for natom %d", len(s.TypAt), s.NAtom),
			Code:    ErrTypAtCount,
			Line:    c.StructureLine("typat"),
		})
	}
	for i, tp := range s.TypAt {
		if tp < 1 || tp > len(s.ZNucl) {
			errs = append(errs, ValidationError{
				Field:   "typat",
				Message: fmt.Sprintf("atom %d has type %d, valid types are 1..%d", i+1, tp, len(s.ZNucl)),
				Code:    ErrTypAtRange,
				Line:    c.StructureLine("typat"),
			})
		}
	}

	if len(s.ZNucl) == 0 {
		errs = append(errs, ValidationError{
			Field:   "znucl",
			Message: "znucl is required",
			Code:    ErrSpecies,
		})
	} else {
		if len(s.ZNucl) != s.NTypAt {
			errs = append(errs, ValidationError{
				Field:   "znucl",
				Message: fmt.Sprintf("%d species for ntypat %d", len(s.ZNucl), s.NTypAt),
				Code:    ErrSpecies,
				Line:    c.StructureLine("znucl"),
			})
		}
		for i, z := range s.ZNucl {
			if !crystal.KnownZ(z) {
				errs = append(errs, ValidationError{
					Field:   "znucl",
					Message: fmt.Sprintf("species %d has unknown atomic number %d", i+1, z),
					Code:    ErrSpecies,
					Line:    c.StructureLine("znucl"),
				})
			}
		}
	}

	if math.Abs(det3(s.RPrim)) < 1e-12 {
		errs = append(errs, ValidationError{
			Field:   "rprim",
			Message: "primitive vectors are linearly dependent",
			Code:    ErrCellVolume,
			Line:    c.StructureLine("rprim"),
		})
	}
	for i, a := range s.ACell {
		if a <= 0 {
			errs = append(errs, ValidationError{
				Field:   "acell",
				Message: fmt.Sprintf("component %d must be positive, got %g", i+1, a),
				Code:    ErrCellVolume,
				Line:    c.StructureLine("acell"),
			})
		}
	}

	return errs
}

func validateBinding(c *Calculation) []ValidationError {
	var errs []ValidationError

	if len(c.JDtset) != c.NDataset {
		errs = append(errs, ValidationError{
			Field:   "jdtset",
			Message: fmt.Sprintf("lists %d datasets for ndtset %d", len(c.JDtset), c.NDataset),
			Code:    ErrDatasetBinding,
		})
	}
	seen := make(map[int]bool)
	for _, idx := range c.JDtset {
		if seen[idx] {
			errs = append(errs, ValidationError{
				Field:   "jdtset",
				Message: fmt.Sprintf("dataset %d listed more than once", idx),
				Code:    ErrDatasetBinding,
			})
		}
		seen[idx] = true
	}

	orphans := make([]int, 0, len(c.Overrides))
	for idx := range c.Overrides {
		if !seen[idx] {
			orphans = append(orphans, idx)
		}
	}
	sort.Ints(orphans)
	for _, idx := range orphans {
		group := c.Overrides[idx]
		names := group.Names()
		errs = append(errs, ValidationError{
			Field:   names[0],
			Message: fmt.Sprintf("bound to dataset %d, which is not part of the calculation", idx),
			Code:    ErrDatasetBinding,
			Dataset: idx,
			Line:    group.Line(names[0]),
		})
	}

	return errs
}

func validateDataset(c *Calculation, pos int) []ValidationError {
	var errs []ValidationError
	d := &c.Datasets[pos]
	report := func(field, msg, code string) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: msg,
			Code:    code,
			Dataset: d.Index,
			Line:    d.Params.Line(field),
		})
	}

	// Inherited defaults are shared by every dataset; report their
	// range problems only once, on the first dataset that sees them.
	fresh := func(field string) bool {
		return pos == 0 || d.Overrides.Has(field)
	}

	if ecut, ok := d.Params.Float("ecut"); !ok {
		if fresh("ecut") {
			report("ecut", "a plane-wave cutoff is required", ErrNumerics)
		}
	} else if ecut <= 0 && fresh("ecut") {
		report("ecut", fmt.Sprintf("must be positive, got %g", ecut), ErrNumerics)
	}
	if nstep, ok := d.Params.Int("nstep"); ok && nstep <= 0 && fresh("nstep") {
		report("nstep", fmt.Sprintf("must be positive, got %d", nstep), ErrNumerics)
	}
	if tsmear, ok := d.Params.Float("tsmear"); ok && tsmear < 0 && fresh("tsmear") {
		report("tsmear", fmt.Sprintf("must not be negative, got %g", tsmear), ErrNumerics)
	}
	if diemac, ok := d.Params.Float("diemac"); ok && diemac < 1 && fresh("diemac") {
		report("diemac", fmt.Sprintf("must be at least 1, got %g", diemac), ErrNumerics)
	}
	if occopt, ok := d.Params.Int("occopt"); ok && (occopt < 0 || occopt > 9) && fresh("occopt") {
		report("occopt", fmt.Sprintf("must be 0..9, got %d", occopt), ErrNumerics)
	}

	errs = append(errs, validateTolerances(c, pos)...)
	errs = append(errs, validateResponseFlags(c, pos)...)
	errs = append(errs, validateRefs(c, pos)...)
	return errs
}

func validateTolerances(c *Calculation, pos int) []ValidationError {
	var errs []ValidationError
	d := &c.Datasets[pos]

	var present []string
	for _, name := range tolVars {
		if d.Params.Has(name) {
			present = append(present, name)
		}
	}
	switch {
	case len(present) == 0:
		errs = append(errs, ValidationError{
			Field:   "tolvrs",
			Message: "dataset needs exactly one SCF tolerance (tolvrs, tolwfr, toldfe, toldff, or tolrff)",
			Code:    ErrTolerance,
			Dataset: d.Index,
		})
	case len(present) > 1:
		errs = append(errs, ValidationError{
			Field:   present[1],
			Message: fmt.Sprintf("dataset sets %d SCF tolerances (%v); exactly one is allowed", len(present), present),
			Code:    ErrTolerance,
			Dataset: d.Index,
			Line:    d.Params.Line(present[1]),
		})
	default:
		if tol, ok := d.Params.Float(present[0]); !ok || tol <= 0 {
			errs = append(errs, ValidationError{
				Field:   present[0],
				Message: "must be a single positive real",
				Code:    ErrTolerance,
				Dataset: d.Index,
				Line:    d.Params.Line(present[0]),
			})
		}
	}

	if d.Purpose() == PurposeDDK && !d.Params.Has("tolwfr") {
		errs = append(errs, ValidationError{
			Field:   "tolwfr",
			Message: "a d/dk dataset must converge on the wavefunction residual (tolwfr)",
			Code:    ErrTolerance,
			Dataset: d.Index,
		})
	}
	return errs
}

func validateResponseFlags(c *Calculation, pos int) []ValidationError {
	var errs []ValidationError
	d := &c.Datasets[pos]
	report := func(field, msg string) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: msg,
			Code:    ErrResponseFlags,
			Dataset: d.Index,
			Line:    d.Params.Line(field),
		})
	}

	if rfphon, ok := d.Params.Int("rfphon"); ok && rfphon != 0 && rfphon != 1 {
		report("rfphon", fmt.Sprintf("must be 0 or 1, got %d", rfphon))
	}
	if rfelfd, ok := d.Params.Int("rfelfd"); ok && (rfelfd < 0 || rfelfd > 3) {
		report("rfelfd", fmt.Sprintf("must be 0..3, got %d", rfelfd))
	}

	driven := false
	if d.Params.Has("rfdir") {
		dirs, ok := d.Params.Ints("rfdir")
		if !ok || len(dirs) != 3 {
			report("rfdir", "needs exactly three 0/1 flags")
		} else {
			for i, v := range dirs {
				if v != 0 && v != 1 {
					report("rfdir", fmt.Sprintf("component %d must be 0 or 1, got %d", i+1, v))
				}
				if v == 1 {
					driven = true
				}
			}
		}
	}

	if d.Params.Has("rfatpol") {
		pol, ok := d.Params.Ints("rfatpol")
		if !ok || len(pol) != 2 {
			report("rfatpol", "needs exactly two atom indexes")
		} else {
			lo, hi := pol[0], pol[1]
			if lo < 1 || hi > int64(c.Structure.NAtom) || lo > hi {
				report("rfatpol", fmt.Sprintf("range %d..%d must lie within 1..natom (%d)", lo, hi, c.Structure.NAtom))
			}
		}
	}

	perturbed := d.Params.IntOr("rfphon", 0) == 1 || d.Params.IntOr("rfelfd", 0) >= 2
	if perturbed && !driven {
		report("rfdir", "response dataset must drive at least one direction")
	}
	return errs
}

func validateRefs(c *Calculation, pos int) []ValidationError {
	var errs []ValidationError
	d := &c.Datasets[pos]

	for _, name := range RefVars {
		raw, ok := d.Params.Int(name)
		if !ok || raw == 0 {
			continue
		}
		report := func(msg, code string) {
			errs = append(errs, ValidationError{
				Field:   name,
				Message: msg,
				Code:    code,
				Dataset: d.Index,
				Line:    d.Params.Line(name),
			})
		}

		target, targetPos, resolved := c.resolveRef(pos, raw)
		if !resolved {
			if raw < 0 {
				report(fmt.Sprintf("relative reference %d reaches before the first dataset", raw), ErrRefOrder)
			} else {
				report(fmt.Sprintf("refers to dataset %d, which is not part of the calculation", raw), ErrRefUnknown)
			}
			continue
		}
		if targetPos >= pos {
			report(fmt.Sprintf("refers to dataset %d, which does not run earlier in the dataset sequence", target), ErrRefOrder)
			continue
		}

		targetDS, ok := c.Dataset(target)
		if !ok {
			continue
		}
		switch name {
		case "getddk":
			if targetDS.Purpose() != PurposeDDK {
				report(fmt.Sprintf("refers to dataset %d, which does not compute d/dk wavefunctions", target), ErrRefTarget)
			}
		case "getwfk":
			if targetDS.Purpose() == PurposeDDK {
				report(fmt.Sprintf("refers to dataset %d, a d/dk dataset, which does not produce ground-state wavefunctions", target), ErrRefTarget)
			}
		}
	}
	return errs
}

func det3(m [3][3]float64) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}
