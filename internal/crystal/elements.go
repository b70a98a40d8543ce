package crystal

import (
	"fmt"
	"strings"
)

// element carries the per-species reference data. Average masses are
// standard atomic weights; isotope masses are the most abundant
// isotope; covalent radii are in Angstrom.
type element struct {
	Symbol   string
	Average  float64
	Isotope  float64
	Covalent float64
}

// elements is indexed by atomic number; index 0 is unused.
var elements = [...]element{
	{},
	{"H", 1.008, 1.00783, 0.31},
	{"He", 4.0026, 4.00260, 0.28},
	{"Li", 6.94, 7.01600, 1.28},
	{"Be", 9.0122, 9.01218, 0.96},
	{"B", 10.81, 11.00931, 0.84},
	{"C", 12.011, 12.00000, 0.76},
	{"N", 14.007, 14.00307, 0.71},
	{"O", 15.999, 15.99491, 0.66},
	{"F", 18.998, 18.99840, 0.57},
	{"Ne", 20.180, 19.99244, 0.58},
	{"Na", 22.990, 22.98977, 1.66},
	{"Mg", 24.305, 23.98504, 1.41},
	{"Al", 26.982, 26.98154, 1.21},
	{"Si", 28.085, 27.97693, 1.11},
	{"P", 30.974, 30.97376, 1.07},
	{"S", 32.06, 31.97207, 1.05},
	{"Cl", 35.45, 34.96885, 1.02},
	{"Ar", 39.948, 39.96238, 1.06},
	{"K", 39.098, 38.96371, 2.03},
	{"Ca", 40.078, 39.96259, 1.76},
	{"Sc", 44.956, 44.95591, 1.70},
	{"Ti", 47.867, 47.94794, 1.60},
	{"V", 50.942, 50.94396, 1.53},
	{"Cr", 51.996, 51.94051, 1.39},
	{"Mn", 54.938, 54.93804, 1.39},
	{"Fe", 55.845, 55.93494, 1.32},
	{"Co", 58.933, 58.93319, 1.26},
	{"Ni", 58.693, 57.93534, 1.24},
	{"Cu", 63.546, 62.92960, 1.32},
	{"Zn", 65.38, 63.92914, 1.22},
	{"Ga", 69.723, 68.92557, 1.22},
	{"Ge", 72.630, 73.92118, 1.20},
	{"As", 74.922, 74.92159, 1.19},
	{"Se", 78.971, 79.91652, 1.20},
	{"Br", 79.904, 78.91834, 1.20},
	{"Kr", 83.798, 83.91150, 1.16},
	{"Rb", 85.468, 84.91179, 2.20},
	{"Sr", 87.62, 87.90561, 1.95},
	{"Y", 88.906, 88.90584, 1.90},
	{"Zr", 91.224, 89.90470, 1.75},
	{"Nb", 92.906, 92.90637, 1.64},
	{"Mo", 95.95, 97.90540, 1.54},
	{"Tc", 97.0, 97.90721, 1.47},
	{"Ru", 101.07, 101.90434, 1.46},
	{"Rh", 102.91, 102.90550, 1.42},
	{"Pd", 106.42, 105.90348, 1.39},
	{"Ag", 107.87, 106.90509, 1.45},
	{"Cd", 112.41, 113.90337, 1.44},
	{"In", 114.82, 114.90388, 1.42},
	{"Sn", 118.71, 119.90220, 1.39},
	{"Sb", 121.76, 120.90381, 1.39},
	{"Te", 127.60, 129.90622, 1.38},
	{"I", 126.90, 126.90447, 1.39},
	{"Xe", 131.29, 131.90416, 1.40},
	{"Cs", 132.91, 132.90545, 2.44},
	{"Ba", 137.327, 137.90525, 2.15},
	{"La", 138.91, 138.90636, 2.07},
	{"Ce", 140.12, 139.90544, 2.04},
	{"Pr", 140.91, 140.90766, 2.03},
	{"Nd", 144.24, 141.90773, 2.01},
	{"Pm", 145.0, 144.91276, 1.99},
	{"Sm", 150.36, 151.91974, 1.98},
	{"Eu", 151.96, 152.92124, 1.98},
	{"Gd", 157.25, 157.92411, 1.96},
	{"Tb", 158.93, 158.92535, 1.94},
	{"Dy", 162.50, 163.92918, 1.92},
	{"Ho", 164.93, 164.93033, 1.92},
	{"Er", 167.26, 165.93030, 1.89},
	{"Tm", 168.93, 168.93422, 1.90},
	{"Yb", 173.05, 173.93887, 1.87},
	{"Lu", 174.97, 174.94078, 1.87},
	{"Hf", 178.49, 179.94656, 1.75},
	{"Ta", 180.95, 180.94800, 1.70},
	{"W", 183.84, 183.95093, 1.62},
	{"Re", 186.21, 186.95575, 1.51},
	{"Os", 190.23, 191.96148, 1.44},
	{"Ir", 192.22, 192.96292, 1.41},
	{"Pt", 195.08, 194.96479, 1.36},
	{"Au", 196.97, 196.96657, 1.36},
	{"Hg", 200.59, 201.97064, 1.32},
	{"Tl", 204.38, 204.97443, 1.45},
	{"Pb", 207.2, 207.97665, 1.46},
	{"Bi", 208.98, 208.98040, 1.48},
	{"Po", 209.0, 208.98243, 1.40},
	{"At", 210.0, 209.98715, 1.50},
	{"Rn", 222.0, 222.01758, 1.50},
	{"Fr", 223.0, 223.01974, 2.60},
	{"Ra", 226.0, 226.02541, 2.21},
	{"Ac", 227.0, 227.02775, 2.15},
	{"Th", 232.04, 232.03806, 2.06},
	{"Pa", 231.04, 231.03588, 2.00},
	{"U", 238.03, 238.05079, 1.96},
	{"Np", 237.0, 237.04817, 1.90},
	{"Pu", 244.0, 244.06420, 1.87},
	{"Am", 243.0, 243.06138, 1.80},
	{"Cm", 247.0, 247.07035, 1.69},
}

// MaxZ is the largest atomic number with tabulated element data.
const MaxZ = len(elements) - 1

// KnownZ reports whether z has tabulated element data.
func KnownZ(z int) bool {
	return z >= 1 && z <= MaxZ
}

// Symbol returns the element symbol for an atomic number.
func Symbol(z int) (string, error) {
	if !KnownZ(z) {
		return "", fmt.Errorf("unknown atomic number %d", z)
	}
	return elements[z].Symbol, nil
}

// AtomicNumber returns the atomic number for a symbol, matched
// case-insensitively.
func AtomicNumber(symbol string) (int, error) {
	for z := 1; z <= MaxZ; z++ {
		if strings.EqualFold(elements[z].Symbol, symbol) {
			return z, nil
		}
	}
	return 0, fmt.Errorf("unknown element symbol %q", symbol)
}

// CovalentRadius returns the covalent radius in Angstrom.
func CovalentRadius(z int) (float64, error) {
	if !KnownZ(z) {
		return 0, fmt.Errorf("unknown atomic number %d", z)
	}
	return elements[z].Covalent, nil
}
