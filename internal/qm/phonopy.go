package qm

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/parkerwray/PDielec/internal/crystal"
	"github.com/parkerwray/PDielec/internal/phonon"
)

// thzToCM1 converts phonopy's THz frequencies to wavenumbers.
const thzToCM1 = 1.0e12 / 2.99792458e10

// PhonopyReader reads the YAML files a phonopy post-processing run
// leaves behind. path names a directory holding phonopy.yaml plus
// either qpoints.yaml or band.yaml; the gamma point must be in the
// sampled q list. Born charges and the dielectric tensor are picked up
// from the nac section when phonopy.yaml was written with
// --include-all.
//
// Gamma-point eigenvectors of the real symmetric dynamical matrix are
// real; the imaginary components phonopy prints are dropped. When
// every band carries an eigenvector the dynamical matrix is
// reassembled from the eigenpairs, so the same hessian pipeline serves
// phonopy output.
type PhonopyReader struct{}

// Program returns "phonopy".
func (*PhonopyReader) Program() string { return "phonopy" }

// Read parses one phonopy output directory.
func (*PhonopyReader) Read(path string) (*Result, error) {
	meta, err := readPhonopyMain(filepath.Join(path, "phonopy.yaml"))
	if err != nil {
		return nil, err
	}

	var ph *phonopyPhonon
	for _, name := range []string{"qpoints.yaml", "band.yaml"} {
		file := filepath.Join(path, name)
		if _, err := os.Stat(file); err != nil {
			continue
		}
		ph, err = readPhonopyPhonon(file)
		if err != nil {
			return nil, err
		}
		break
	}
	if ph == nil {
		return nil, fmt.Errorf("no qpoints.yaml or band.yaml under %s", path)
	}

	cell, masses, err := meta.cell()
	if err != nil {
		return nil, fmt.Errorf("phonopy.yaml: %w", err)
	}

	gamma, err := ph.gammaPoint()
	if err != nil {
		return nil, err
	}

	res := &Result{
		Program: "phonopy",
		Cell:    cell,
		Masses:  masses,
	}
	natoms := cell.NAtoms()
	shapes := make([][][3]float64, 0, len(gamma.Band))
	for k, band := range gamma.Band {
		res.Frequencies = append(res.Frequencies, band.Frequency*thzToCM1)
		if k == 0 && len(band.Eigenvector) == 0 {
			// Eigenvectors were not requested for this run.
			shapes = nil
			continue
		}
		if shapes == nil {
			continue
		}
		if len(band.Eigenvector) != natoms {
			return nil, fmt.Errorf("band %d eigenvector spans %d atoms, want %d", k+1, len(band.Eigenvector), natoms)
		}
		mode := make([][3]float64, natoms)
		row := make([]float64, 0, 3*natoms)
		for a, comps := range band.Eigenvector {
			if len(comps) != 3 {
				return nil, fmt.Errorf("band %d atom %d has %d components, want 3", k+1, a+1, len(comps))
			}
			for i, pair := range comps {
				if len(pair) == 0 {
					return nil, fmt.Errorf("band %d atom %d has an empty component", k+1, a+1)
				}
				mode[a][i] = pair[0]
				row = append(row, pair[0])
			}
		}
		shapes = append(shapes, mode)
		res.Eigenvectors = append(res.Eigenvectors, row)
	}

	if shapes != nil && len(shapes) == 3*natoms {
		res.Hessian, err = phonon.Rebuild(res.Frequencies, shapes)
		if err != nil {
			return nil, fmt.Errorf("rebuild dynamical matrix: %w", err)
		}
	}

	if len(meta.NAC.BornEffectiveCharge) > 0 {
		res.BornCharges, err = meta.bornCharges(natoms)
		if err != nil {
			return nil, fmt.Errorf("phonopy.yaml: %w", err)
		}
	}
	if len(meta.NAC.DielectricConstant) > 0 {
		res.EpsilonInf, err = meta.dielectric()
		if err != nil {
			return nil, fmt.Errorf("phonopy.yaml: %w", err)
		}
	}
	return res, nil
}

type phonopyMain struct {
	PrimitiveCell phonopyCell `yaml:"primitive_cell"`
	UnitCell      phonopyCell `yaml:"unit_cell"`
	NAC           struct {
		BornEffectiveCharge [][][]float64 `yaml:"born_effective_charge"`
		DielectricConstant  [][]float64   `yaml:"dielectric_constant"`
	} `yaml:"nac"`
}

type phonopyCell struct {
	Lattice [][]float64    `yaml:"lattice"`
	Points  []phonopyPoint `yaml:"points"`
}

type phonopyPoint struct {
	Symbol      string    `yaml:"symbol"`
	Coordinates []float64 `yaml:"coordinates"`
	Mass        float64   `yaml:"mass"`
}

type phonopyPhonon struct {
	NAtom  int             `yaml:"natom"`
	Phonon []phonopyQPoint `yaml:"phonon"`
}

type phonopyQPoint struct {
	QPosition []float64     `yaml:"q-position"`
	Band      []phonopyBand `yaml:"band"`
}

type phonopyBand struct {
	Frequency   float64       `yaml:"frequency"`
	Eigenvector [][][]float64 `yaml:"eigenvector"`
}

func readPhonopyMain(path string) (*phonopyMain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read phonopy output: %w", err)
	}
	var meta phonopyMain
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &meta, nil
}

func readPhonopyPhonon(path string) (*phonopyPhonon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read phonopy output: %w", err)
	}
	var ph phonopyPhonon
	if err := yaml.Unmarshal(data, &ph); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &ph, nil
}

// cell builds the crystal cell from the primitive cell when phonopy
// reports one, falling back to the unit cell.
func (m *phonopyMain) cell() (*crystal.Cell, []float64, error) {
	src := m.PrimitiveCell
	if len(src.Points) == 0 {
		src = m.UnitCell
	}
	if len(src.Points) == 0 {
		return nil, nil, fmt.Errorf("no primitive_cell or unit_cell")
	}
	if len(src.Lattice) != 3 {
		return nil, nil, fmt.Errorf("lattice has %d rows, want 3", len(src.Lattice))
	}
	cell := &crystal.Cell{}
	for i, row := range src.Lattice {
		if len(row) != 3 {
			return nil, nil, fmt.Errorf("lattice row %d has %d components, want 3", i+1, len(row))
		}
		copy(cell.Lattice[i][:], row)
	}
	masses := make([]float64, len(src.Points))
	for a, pt := range src.Points {
		z, err := crystal.AtomicNumber(pt.Symbol)
		if err != nil {
			return nil, nil, fmt.Errorf("atom %d: %w", a+1, err)
		}
		if len(pt.Coordinates) != 3 {
			return nil, nil, fmt.Errorf("atom %d has %d coordinates, want 3", a+1, len(pt.Coordinates))
		}
		cell.AtomicNumbers = append(cell.AtomicNumbers, z)
		cell.Fractional = append(cell.Fractional, [3]float64{pt.Coordinates[0], pt.Coordinates[1], pt.Coordinates[2]})
		masses[a] = pt.Mass
	}
	return cell, masses, nil
}

// gammaPoint finds the q = (0,0,0) entry of the phonon list.
func (ph *phonopyPhonon) gammaPoint() (*phonopyQPoint, error) {
	for i := range ph.Phonon {
		entry := &ph.Phonon[i]
		atGamma := len(entry.QPosition) == 3
		for _, q := range entry.QPosition {
			if math.Abs(q) > 1e-8 {
				atGamma = false
			}
		}
		if atGamma {
			return entry, nil
		}
	}
	return nil, fmt.Errorf("no gamma point among %d q-points", len(ph.Phonon))
}

func (m *phonopyMain) bornCharges(natoms int) ([][3][3]float64, error) {
	raw := m.NAC.BornEffectiveCharge
	if len(raw) != natoms {
		return nil, fmt.Errorf("nac has %d Born tensors for %d atoms", len(raw), natoms)
	}
	out := make([][3][3]float64, natoms)
	for a, tensor := range raw {
		if len(tensor) != 3 {
			return nil, fmt.Errorf("Born tensor %d has %d rows, want 3", a+1, len(tensor))
		}
		for i, row := range tensor {
			if len(row) != 3 {
				return nil, fmt.Errorf("Born tensor %d row %d has %d components, want 3", a+1, i+1, len(row))
			}
			copy(out[a][i][:], row)
		}
	}
	return out, nil
}

func (m *phonopyMain) dielectric() ([3][3]float64, error) {
	var out [3][3]float64
	raw := m.NAC.DielectricConstant
	if len(raw) != 3 {
		return out, fmt.Errorf("dielectric_constant has %d rows, want 3", len(raw))
	}
	for i, row := range raw {
		if len(row) != 3 {
			return out, fmt.Errorf("dielectric_constant row %d has %d components, want 3", i+1, len(row))
		}
		copy(out[i][:], row)
	}
	return out, nil
}
