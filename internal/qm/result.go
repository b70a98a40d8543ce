package qm

import (
	"fmt"

	"github.com/parkerwray/PDielec/internal/crystal"
)

// Result is what a solver output reduces to. Units follow the rest of
// the tooling: masses in amu, frequencies in cm-1, the cell in
// Angstrom, energies in eV. The hessian is the mass-weighted dynamical
// matrix in atomic units, ready for phonon.Modes.
//
// Fields a program does not provide stay zero: a ground-state ABINIT
// run has no hessian, an experiment file has frequencies and
// intensities but no eigenvectors. Callers check for what they need.
type Result struct {
	Program string
	Cell    *crystal.Cell
	Masses  []float64

	Hessian      [][]float64
	BornCharges  [][3][3]float64
	EpsilonInf   [3][3]float64
	Frequencies  []float64
	Eigenvectors [][]float64

	// Intensities and Sigmas come from experiment files only, in
	// (D/A)^2/amu and cm-1.
	Intensities []float64
	Sigmas      []float64

	Energy     float64
	Ecut       float64
	KPointGrid [3]int
}

// ModeVectors reshapes the flat eigenvector rows into one [x y z]
// displacement per atom per mode.
func (r *Result) ModeVectors() ([][][3]float64, error) {
	out := make([][][3]float64, len(r.Eigenvectors))
	for k, row := range r.Eigenvectors {
		if len(row)%3 != 0 {
			return nil, fmt.Errorf("eigenvector %d has %d components, want a multiple of 3", k, len(row))
		}
		mode := make([][3]float64, len(row)/3)
		for a := range mode {
			mode[a] = [3]float64{row[3*a], row[3*a+1], row[3*a+2]}
		}
		out[k] = mode
	}
	return out, nil
}

// Reader reads one program's output into a Result. The meaning of path
// is per program: a file for ABINIT and experiment readers, a
// directory for phonopy.
type Reader interface {
	Program() string
	Read(path string) (*Result, error)
}

// New picks a reader by program name.
func New(program string) (Reader, error) {
	switch program {
	case "abinit":
		return &AbinitReader{}, nil
	case "phonopy":
		return &PhonopyReader{}, nil
	case "experiment":
		return &ExperimentReader{}, nil
	}
	return nil, fmt.Errorf("unknown program %q (want abinit, phonopy, or experiment)", program)
}

// ReadError locates a problem in a solver output file. Line is
// 1-based; 0 means the error concerns the file as a whole.
type ReadError struct {
	Path    string
	Line    int
	Message string
}

func (e *ReadError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
}
