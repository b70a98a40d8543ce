package qm

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/parkerwray/PDielec/internal/crystal"
	"github.com/parkerwray/PDielec/internal/phonon"
)

const hartreeToEV = 27.211386245988

// AbinitReader reads the text output of an ABINIT response-function
// run (.out/.abo). It picks up the input echo (natom, typat, znucl,
// amu, acell, rprim, xred, ecut, ngkpt), the total energy, and the
// result blocks a phonon calculation prints: the cartesian dynamical
// matrix, Born effective charges, the electronic dielectric tensor and
// the program's own phonon frequencies. When a block appears more than
// once, the last occurrence wins.
type AbinitReader struct{}

// Program returns "abinit".
func (*AbinitReader) Program() string { return "abinit" }

// Read parses one output file.
func (*AbinitReader) Read(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read abinit output: %w", err)
	}
	p := &abinitParser{path: path, lines: strings.Split(string(data), "\n")}
	for p.i < len(p.lines) {
		line := p.lines[p.i]
		p.i++
		for _, rule := range abinitRules {
			if rule.re.MatchString(line) {
				if err := rule.fn(p, line); err != nil {
					return nil, err
				}
				break
			}
		}
	}
	return p.result()
}

// abinitRules maps line patterns to handlers, tried in order; the
// first match wins and its handler may consume the block that follows.
// Unmatched lines are skipped. Suffixed multi-dataset echoes (acell1,
// acell2, ...) deliberately do not match: this reader handles the
// single-dataset output of a response run.
var abinitRules = []struct {
	re *regexp.Regexp
	fn func(p *abinitParser, line string) error
}{
	{regexp.MustCompile(`^ +natom +\d`), (*abinitParser).readNAtom},
	{regexp.MustCompile(`^ +ntypat +\d`), (*abinitParser).readNTypat},
	{regexp.MustCompile(`^ +typat +\d`), (*abinitParser).readTypat},
	{regexp.MustCompile(`^ +znucl +`), (*abinitParser).readZnucl},
	{regexp.MustCompile(`^ +amu +`), (*abinitParser).readAmu},
	{regexp.MustCompile(`^ +acell +`), (*abinitParser).readAcell},
	{regexp.MustCompile(`^ +rprim +`), (*abinitParser).readRprim},
	{regexp.MustCompile(`^ +xred +`), (*abinitParser).readXred},
	{regexp.MustCompile(`^ +ecut +`), (*abinitParser).readEcut},
	{regexp.MustCompile(`^ +ngkpt +\d`), (*abinitParser).readNgkpt},
	{regexp.MustCompile(`^ +etotal +-?\d`), (*abinitParser).readEtotal},
	{regexp.MustCompile(`^ +Dynamical matrix,`), (*abinitParser).readDynamical},
	{regexp.MustCompile(`^ +Effective charges,`), (*abinitParser).readBornCharges},
	{regexp.MustCompile(`^ +Dielectric tensor,`), (*abinitParser).readEpsilon},
	{regexp.MustCompile(`Phonon frequencies in cm-1`), (*abinitParser).readFrequencies},
}

type abinitParser struct {
	path  string
	lines []string
	i     int // index of the next unread line

	natom    int
	ntypat   int
	typat    []int
	znucl    []float64
	amu      []float64
	acell    [3]float64
	hasAcell bool
	rprim    [3][3]float64
	hasRprim bool
	xred     [][3]float64
	ecut     float64
	ngkpt    [3]int
	etotal   float64

	hessian [][]float64 // cartesian force constants, Hartree/Bohr^2
	borns   [][3][3]float64
	eps     [3][3]float64
	freqs   []float64
}

func (p *abinitParser) errorf(line int, format string, args ...any) error {
	return &ReadError{Path: p.path, Line: line, Message: fmt.Sprintf(format, args...)}
}

func (p *abinitParser) readNAtom(line string) error {
	n, err := strconv.Atoi(strings.Fields(line)[1])
	if err != nil || n < 1 {
		return p.errorf(p.i, "bad natom echo %q", strings.TrimSpace(line))
	}
	p.natom = n
	return nil
}

func (p *abinitParser) readNTypat(line string) error {
	n, err := strconv.Atoi(strings.Fields(line)[1])
	if err != nil || n < 1 {
		return p.errorf(p.i, "bad ntypat echo %q", strings.TrimSpace(line))
	}
	p.ntypat = n
	return nil
}

// readTypat collects the per-atom type indices, following the echo
// onto continuation lines for as long as they hold nothing but
// integers.
func (p *abinitParser) readTypat(line string) error {
	vals, ok := intsOf(strings.Fields(line)[1:])
	if !ok {
		return p.errorf(p.i, "bad typat echo %q", strings.TrimSpace(line))
	}
	for p.i < len(p.lines) {
		more, ok := intsOf(strings.Fields(p.lines[p.i]))
		if !ok {
			break
		}
		vals = append(vals, more...)
		p.i++
	}
	p.typat = vals
	return nil
}

func (p *abinitParser) readZnucl(line string) error {
	vals, err := p.floatEcho(line)
	if err != nil {
		return err
	}
	p.znucl = vals
	return nil
}

func (p *abinitParser) readAmu(line string) error {
	vals, err := p.floatEcho(line)
	if err != nil {
		return err
	}
	p.amu = vals
	return nil
}

// floatEcho reads a variable echo whose values are floats, spilling
// onto continuation lines.
func (p *abinitParser) floatEcho(line string) ([]float64, error) {
	vals, ok := floatsOf(strings.Fields(line)[1:])
	if !ok {
		return nil, p.errorf(p.i, "bad echo %q", strings.TrimSpace(line))
	}
	for p.i < len(p.lines) {
		more, ok := floatsOf(strings.Fields(p.lines[p.i]))
		if !ok {
			break
		}
		vals = append(vals, more...)
		p.i++
	}
	return vals, nil
}

func (p *abinitParser) readAcell(line string) error {
	// The echo carries a trailing unit word ("Bohr").
	var vals []float64
	for _, tok := range strings.Fields(line)[1:] {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			break
		}
		vals = append(vals, v)
	}
	if len(vals) != 3 {
		return p.errorf(p.i, "acell echo has %d values, want 3", len(vals))
	}
	copy(p.acell[:], vals)
	p.hasAcell = true
	return nil
}

func (p *abinitParser) readRprim(line string) error {
	start := p.i
	vals, ok := floatsOf(strings.Fields(line)[1:])
	if !ok || len(vals) != 3 {
		return p.errorf(start, "rprim echo does not start with 3 values")
	}
	rows := [][3]float64{{vals[0], vals[1], vals[2]}}
	for len(rows) < 3 {
		if p.i >= len(p.lines) {
			return p.errorf(start, "rprim echo truncated: have %d of 3 rows", len(rows))
		}
		more, ok := floatsOf(strings.Fields(p.lines[p.i]))
		if !ok || len(more) != 3 {
			return p.errorf(p.i+1, "rprim echo truncated: have %d of 3 rows", len(rows))
		}
		rows = append(rows, [3]float64{more[0], more[1], more[2]})
		p.i++
	}
	for i := range rows {
		p.rprim[i] = rows[i]
	}
	p.hasRprim = true
	return nil
}

// readXred collects reduced coordinates, one triple per line. The row
// count is checked against natom once the whole file has been read.
func (p *abinitParser) readXred(line string) error {
	vals, ok := floatsOf(strings.Fields(line)[1:])
	if !ok || len(vals) != 3 {
		return p.errorf(p.i, "xred echo does not start with 3 values")
	}
	rows := [][3]float64{{vals[0], vals[1], vals[2]}}
	for p.i < len(p.lines) {
		more, ok := floatsOf(strings.Fields(p.lines[p.i]))
		if !ok || len(more) != 3 {
			break
		}
		rows = append(rows, [3]float64{more[0], more[1], more[2]})
		p.i++
	}
	p.xred = rows
	return nil
}

func (p *abinitParser) readEcut(line string) error {
	v, err := strconv.ParseFloat(strings.Fields(line)[1], 64)
	if err != nil {
		return p.errorf(p.i, "bad ecut echo %q", strings.TrimSpace(line))
	}
	p.ecut = v
	return nil
}

func (p *abinitParser) readNgkpt(line string) error {
	vals, ok := intsOf(strings.Fields(line)[1:])
	if !ok || len(vals) != 3 {
		return p.errorf(p.i, "ngkpt echo does not have 3 values")
	}
	copy(p.ngkpt[:], vals)
	return nil
}

func (p *abinitParser) readEtotal(line string) error {
	v, err := strconv.ParseFloat(strings.Fields(line)[1], 64)
	if err != nil {
		return p.errorf(p.i, "bad etotal echo %q", strings.TrimSpace(line))
	}
	p.etotal = v
	return nil
}

// headerBudget bounds how many non-row, non-blank lines a
// second-derivative block may open with before the first data row.
const headerBudget = 8

// scanDerivRows walks the "idir1 ipert1 idir2 ipert2 real imag" rows
// of a second-derivative block, handing each to fill until want rows
// have been accepted. Blank lines separate row groups and are skipped;
// any other non-row line ends the block once data has started.
func (p *abinitParser) scanDerivRows(start, want int, name string, fill func(derivRow) bool) error {
	got := 0
	header := headerBudget
	for p.i < len(p.lines) && got < want {
		l := p.lines[p.i]
		if strings.TrimSpace(l) == "" {
			p.i++
			continue
		}
		row, ok := parseDerivRow(l)
		if !ok {
			if header == 0 {
				break
			}
			header--
			p.i++
			continue
		}
		p.i++
		header = 0
		if fill(row) {
			got++
		}
	}
	if got < want {
		return p.errorf(start, "%s block truncated: have %d of %d elements", name, got, want)
	}
	return nil
}

// readDynamical reads the cartesian dynamical matrix block.
// Perturbation indices above natom are field perturbations and are
// skipped; the block is complete once every (3*natom)^2 element has
// been seen.
func (p *abinitParser) readDynamical(line string) error {
	start := p.i
	if p.natom == 0 {
		return p.errorf(start, "dynamical matrix block before natom echo")
	}
	n := 3 * p.natom
	h := make([][]float64, n)
	for i := range h {
		h[i] = make([]float64, n)
	}
	err := p.scanDerivRows(start, n*n, "dynamical matrix", func(row derivRow) bool {
		if row.pert1 > p.natom || row.pert2 > p.natom {
			return false
		}
		h[3*(row.pert1-1)+row.dir1-1][3*(row.pert2-1)+row.dir2-1] = row.re
		return true
	})
	if err != nil {
		return err
	}
	p.hessian = h
	return nil
}

// readBornCharges reads an effective charge block. ABINIT prints the
// tensor twice, from the phonon response and from the electric field
// response, with the roles of the two perturbation columns swapped;
// both orderings are folded into Z[atom][field][displacement] and the
// later block replaces the earlier.
func (p *abinitParser) readBornCharges(line string) error {
	start := p.i
	if p.natom == 0 {
		return p.errorf(start, "effective charge block before natom echo")
	}
	field := p.natom + 2
	z := make([][3][3]float64, p.natom)
	err := p.scanDerivRows(start, 9*p.natom, "effective charge", func(row derivRow) bool {
		switch {
		case row.pert1 == field && row.pert2 <= p.natom:
			z[row.pert2-1][row.dir1-1][row.dir2-1] = row.re
		case row.pert2 == field && row.pert1 <= p.natom:
			z[row.pert1-1][row.dir2-1][row.dir1-1] = row.re
		default:
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	p.borns = z
	return nil
}

// readEpsilon reads the electronic dielectric tensor block, whose rows
// carry the field perturbation index natom+2 on both sides.
func (p *abinitParser) readEpsilon(line string) error {
	start := p.i
	if p.natom == 0 {
		return p.errorf(start, "dielectric tensor block before natom echo")
	}
	field := p.natom + 2
	var eps [3][3]float64
	err := p.scanDerivRows(start, 9, "dielectric tensor", func(row derivRow) bool {
		if row.pert1 != field || row.pert2 != field {
			return false
		}
		eps[row.dir1-1][row.dir2-1] = row.re
		return true
	})
	if err != nil {
		return err
	}
	p.eps = eps
	return nil
}

// readFrequencies reads the program's own report of the phonon
// frequencies. Value lines continue the block with a leading "-".
func (p *abinitParser) readFrequencies(line string) error {
	start := p.i
	var vals []float64
	for p.i < len(p.lines) {
		l := p.lines[p.i]
		if !strings.HasPrefix(l, "-") {
			break
		}
		f, ok := floatsOf(strings.Fields(l[1:]))
		if !ok {
			break
		}
		vals = append(vals, f...)
		p.i++
	}
	if p.natom > 0 && len(vals) != 3*p.natom {
		return p.errorf(start, "phonon frequency block has %d values, want %d", len(vals), 3*p.natom)
	}
	p.freqs = vals
	return nil
}

func (p *abinitParser) result() (*Result, error) {
	if p.natom == 0 {
		return nil, &ReadError{Path: p.path, Message: "no natom echo in output"}
	}
	var missing []string
	if len(p.typat) == 0 {
		missing = append(missing, "typat")
	}
	if len(p.znucl) == 0 {
		missing = append(missing, "znucl")
	}
	if len(p.amu) == 0 {
		missing = append(missing, "amu")
	}
	if !p.hasAcell {
		missing = append(missing, "acell")
	}
	if !p.hasRprim {
		missing = append(missing, "rprim")
	}
	if len(p.xred) == 0 {
		missing = append(missing, "xred")
	}
	if len(missing) > 0 {
		return nil, &ReadError{Path: p.path, Message: "output is missing " + strings.Join(missing, ", ")}
	}
	if len(p.typat) != p.natom {
		return nil, &ReadError{Path: p.path, Message: fmt.Sprintf("typat has %d entries for natom %d", len(p.typat), p.natom)}
	}
	if len(p.xred) != p.natom {
		return nil, &ReadError{Path: p.path, Message: fmt.Sprintf("xred has %d rows for natom %d", len(p.xred), p.natom)}
	}
	if p.ntypat > 0 && (len(p.znucl) != p.ntypat || len(p.amu) != p.ntypat) {
		return nil, &ReadError{Path: p.path, Message: fmt.Sprintf("ntypat %d but %d znucl and %d amu entries", p.ntypat, len(p.znucl), len(p.amu))}
	}

	atomicNumbers := make([]int, p.natom)
	masses := make([]float64, p.natom)
	for a, ty := range p.typat {
		if ty < 1 || ty > len(p.znucl) || ty > len(p.amu) {
			return nil, &ReadError{Path: p.path, Message: fmt.Sprintf("typat entry %d out of range for %d species", ty, len(p.znucl))}
		}
		z := int(p.znucl[ty-1] + 0.5)
		if !crystal.KnownZ(z) {
			return nil, &ReadError{Path: p.path, Message: fmt.Sprintf("znucl %g is not a known element", p.znucl[ty-1])}
		}
		atomicNumbers[a] = z
		masses[a] = p.amu[ty-1]
	}
	cell, err := crystal.NewCellBohr(p.acell, p.rprim, p.xred, atomicNumbers)
	if err != nil {
		return nil, &ReadError{Path: p.path, Message: err.Error()}
	}

	res := &Result{
		Program:     "abinit",
		Cell:        cell,
		Masses:      masses,
		BornCharges: p.borns,
		EpsilonInf:  p.eps,
		Frequencies: p.freqs,
		Energy:      p.etotal * hartreeToEV,
		Ecut:        p.ecut,
		KPointGrid:  p.ngkpt,
	}
	if p.hessian != nil {
		res.Hessian, err = phonon.MassWeight(p.hessian, masses)
		if err != nil {
			return nil, &ReadError{Path: p.path, Message: err.Error()}
		}
	}
	return res, nil
}

// derivRow is one "idir1 ipert1 idir2 ipert2 real imag" line of a
// second-derivative block.
type derivRow struct {
	dir1, pert1, dir2, pert2 int
	re, im                   float64
}

func parseDerivRow(line string) (derivRow, bool) {
	f := strings.Fields(line)
	if len(f) != 6 {
		return derivRow{}, false
	}
	ints, ok := intsOf(f[:4])
	if !ok {
		return derivRow{}, false
	}
	re, err1 := strconv.ParseFloat(f[4], 64)
	im, err2 := strconv.ParseFloat(f[5], 64)
	if err1 != nil || err2 != nil {
		return derivRow{}, false
	}
	if ints[0] < 1 || ints[0] > 3 || ints[2] < 1 || ints[2] > 3 || ints[1] < 1 || ints[3] < 1 {
		return derivRow{}, false
	}
	return derivRow{dir1: ints[0], pert1: ints[1], dir2: ints[2], pert2: ints[3], re: re, im: im}, true
}

func intsOf(fields []string) ([]int, bool) {
	if len(fields) == 0 {
		return nil, false
	}
	out := make([]int, len(fields))
	for i, tok := range fields {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func floatsOf(fields []string) ([]float64, bool) {
	if len(fields) == 0 {
		return nil, false
	}
	out := make([]float64, len(fields))
	for i, tok := range fields {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
