package qm

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/parkerwray/PDielec/internal/crystal"
)

// ExperimentReader reads a hand-written description of a measured
// infrared spectrum, for driving the effective-medium machinery with
// data that never came from a solver. The format is line-oriented with
// '#' comments and five keyword sections:
//
//	species N        N lines of "symbol mass"
//	lattice SCALE    3 lattice vector rows, scaled to Angstrom
//	unitcell N       N lines of "symbol fx fy fz"
//	epsinf           3 rows of the optical permittivity tensor
//	frequencies N    N lines of "frequency intensity sigma"
//
// Frequencies and sigmas are in cm-1, intensities in (D/A)^2/amu. The
// epsinf section is optional; everything else is required.
type ExperimentReader struct{}

// Program returns "experiment".
func (*ExperimentReader) Program() string { return "experiment" }

// Read parses one experiment file.
func (*ExperimentReader) Read(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read experiment file: %w", err)
	}
	p := &experimentParser{path: path, lines: strings.Split(string(data), "\n")}
	return p.parse()
}

type experimentParser struct {
	path  string
	lines []string
	i     int

	order   []string // species symbols in declaration order
	mass    map[string]float64
	lattice [3][3]float64
	hasCell bool
	symbols []string
	frac    [][3]float64
	eps     [3][3]float64
	freqs   []float64
	intens  []float64
	sigmas  []float64
}

func (p *experimentParser) errorf(line int, format string, args ...any) error {
	return &ReadError{Path: p.path, Line: line, Message: fmt.Sprintf(format, args...)}
}

// next returns the next content-bearing line with comments stripped,
// and its 1-based number.
func (p *experimentParser) next() (string, int, bool) {
	for p.i < len(p.lines) {
		line := p.lines[p.i]
		p.i++
		if j := strings.IndexByte(line, '#'); j >= 0 {
			line = line[:j]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		return line, p.i, true
	}
	return "", 0, false
}

func (p *experimentParser) parse() (*Result, error) {
	for {
		line, n, ok := p.next()
		if !ok {
			break
		}
		fields := strings.Fields(line)
		var err error
		switch fields[0] {
		case "species":
			err = p.readSpecies(fields, n)
		case "lattice":
			err = p.readLattice(fields, n)
		case "unitcell":
			err = p.readUnitCell(fields, n)
		case "epsinf":
			err = p.readEpsInf(n)
		case "frequencies":
			err = p.readFrequencies(fields, n)
		default:
			err = p.errorf(n, "unknown section %q", fields[0])
		}
		if err != nil {
			return nil, err
		}
	}
	return p.result()
}

// sectionCount reads the entry count that follows a section keyword.
func (p *experimentParser) sectionCount(fields []string, n int) (int, error) {
	if len(fields) != 2 {
		return 0, p.errorf(n, "%s section wants one count, got %q", fields[0], strings.Join(fields, " "))
	}
	count, err := strconv.Atoi(fields[1])
	if err != nil || count < 1 {
		return 0, p.errorf(n, "bad %s count %q", fields[0], fields[1])
	}
	return count, nil
}

func (p *experimentParser) readSpecies(fields []string, n int) error {
	count, err := p.sectionCount(fields, n)
	if err != nil {
		return err
	}
	p.mass = make(map[string]float64, count)
	for k := 0; k < count; k++ {
		line, ln, ok := p.next()
		if !ok {
			return p.errorf(n, "species table truncated: have %d of %d rows", k, count)
		}
		f := strings.Fields(line)
		if len(f) != 2 {
			return p.errorf(ln, "species row wants \"symbol mass\", got %q", strings.TrimSpace(line))
		}
		if _, err := crystal.AtomicNumber(f[0]); err != nil {
			return p.errorf(ln, "%v", err)
		}
		m, err := strconv.ParseFloat(f[1], 64)
		if err != nil || m <= 0 {
			return p.errorf(ln, "bad mass %q for species %s", f[1], f[0])
		}
		p.order = append(p.order, f[0])
		p.mass[f[0]] = m
	}
	return nil
}

func (p *experimentParser) readLattice(fields []string, n int) error {
	if len(fields) != 2 {
		return p.errorf(n, "lattice section wants one scale factor")
	}
	scale, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || scale <= 0 {
		return p.errorf(n, "bad lattice scale %q", fields[1])
	}
	for i := 0; i < 3; i++ {
		line, ln, ok := p.next()
		if !ok {
			return p.errorf(n, "lattice truncated: have %d of 3 rows", i)
		}
		vals, ok := floatsOf(strings.Fields(line))
		if !ok || len(vals) != 3 {
			return p.errorf(ln, "lattice row wants 3 values, got %q", strings.TrimSpace(line))
		}
		for j := 0; j < 3; j++ {
			p.lattice[i][j] = scale * vals[j]
		}
	}
	p.hasCell = true
	return nil
}

func (p *experimentParser) readUnitCell(fields []string, n int) error {
	count, err := p.sectionCount(fields, n)
	if err != nil {
		return err
	}
	for k := 0; k < count; k++ {
		line, ln, ok := p.next()
		if !ok {
			return p.errorf(n, "unitcell truncated: have %d of %d rows", k, count)
		}
		f := strings.Fields(line)
		if len(f) != 4 {
			return p.errorf(ln, "unitcell row wants \"symbol fx fy fz\", got %q", strings.TrimSpace(line))
		}
		if _, ok := p.mass[f[0]]; !ok {
			return p.errorf(ln, "atom %q is not declared in species", f[0])
		}
		vals, ok := floatsOf(f[1:])
		if !ok {
			return p.errorf(ln, "bad coordinates in %q", strings.TrimSpace(line))
		}
		p.symbols = append(p.symbols, f[0])
		p.frac = append(p.frac, [3]float64{vals[0], vals[1], vals[2]})
	}
	return nil
}

func (p *experimentParser) readEpsInf(n int) error {
	for i := 0; i < 3; i++ {
		line, ln, ok := p.next()
		if !ok {
			return p.errorf(n, "epsinf truncated: have %d of 3 rows", i)
		}
		vals, ok := floatsOf(strings.Fields(line))
		if !ok || len(vals) != 3 {
			return p.errorf(ln, "epsinf row wants 3 values, got %q", strings.TrimSpace(line))
		}
		copy(p.eps[i][:], vals)
	}
	return nil
}

func (p *experimentParser) readFrequencies(fields []string, n int) error {
	count, err := p.sectionCount(fields, n)
	if err != nil {
		return err
	}
	for k := 0; k < count; k++ {
		line, ln, ok := p.next()
		if !ok {
			return p.errorf(n, "frequencies truncated: have %d of %d rows", k, count)
		}
		vals, ok := floatsOf(strings.Fields(line))
		if !ok || len(vals) != 3 {
			return p.errorf(ln, "frequency row wants \"frequency intensity sigma\", got %q", strings.TrimSpace(line))
		}
		if vals[2] <= 0 {
			return p.errorf(ln, "sigma must be positive, got %g", vals[2])
		}
		p.freqs = append(p.freqs, vals[0])
		p.intens = append(p.intens, vals[1])
		p.sigmas = append(p.sigmas, vals[2])
	}
	return nil
}

func (p *experimentParser) result() (*Result, error) {
	var missing []string
	if len(p.order) == 0 {
		missing = append(missing, "species")
	}
	if !p.hasCell {
		missing = append(missing, "lattice")
	}
	if len(p.symbols) == 0 {
		missing = append(missing, "unitcell")
	}
	if len(p.freqs) == 0 {
		missing = append(missing, "frequencies")
	}
	if len(missing) > 0 {
		return nil, &ReadError{Path: p.path, Message: "file is missing " + strings.Join(missing, ", ")}
	}

	atomicNumbers := make([]int, len(p.symbols))
	masses := make([]float64, len(p.symbols))
	for a, sym := range p.symbols {
		z, err := crystal.AtomicNumber(sym)
		if err != nil {
			return nil, &ReadError{Path: p.path, Message: err.Error()}
		}
		atomicNumbers[a] = z
		masses[a] = p.mass[sym]
	}
	cell := &crystal.Cell{
		Lattice:       p.lattice,
		Fractional:    p.frac,
		AtomicNumbers: atomicNumbers,
	}
	if cell.Volume() <= 0 {
		return nil, &ReadError{Path: p.path, Message: "lattice vectors give non-positive volume"}
	}
	return &Result{
		Program:     "experiment",
		Cell:        cell,
		Masses:      masses,
		EpsilonInf:  p.eps,
		Frequencies: p.freqs,
		Intensities: p.intens,
		Sigmas:      p.sigmas,
	}, nil
}
