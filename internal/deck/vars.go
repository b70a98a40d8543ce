package deck

import "strconv"

// VarType is the declared numeric type of an input variable.
type VarType int

const (
	TypeInt VarType = iota
	TypeReal
)

// VarClass places a variable in the calculation model.
type VarClass int

const (
	// ClassControl variables steer dataset bookkeeping (ndtset,
	// jdtset) and never take a dataset suffix.
	ClassControl VarClass = iota
	// ClassStructure variables describe the shared crystal structure.
	ClassStructure
	// ClassParam variables follow the inheritance rule: an unsuffixed
	// occurrence is the default for every dataset, a suffixed one
	// overrides for that dataset.
	ClassParam
)

// VarSpec describes one known input variable.
type VarSpec struct {
	Name  string
	Type  VarType
	Class VarClass
}

// registry holds the variable vocabulary this toolkit understands.
// Unknown variables still parse; they are carried verbatim and never
// split into a dataset suffix.
var registry = map[string]VarSpec{
	// Dataset bookkeeping.
	"ndtset": {"ndtset", TypeInt, ClassControl},
	"jdtset": {"jdtset", TypeInt, ClassControl},

	// Crystal structure, shared by all datasets.
	"acell":  {"acell", TypeReal, ClassStructure},
	"angdeg": {"angdeg", TypeReal, ClassStructure},
	"rprim":  {"rprim", TypeReal, ClassStructure},
	"ntypat": {"ntypat", TypeInt, ClassStructure},
	"znucl":  {"znucl", TypeReal, ClassStructure},
	"natom":  {"natom", TypeInt, ClassStructure},
	"typat":  {"typat", TypeInt, ClassStructure},
	"xred":   {"xred", TypeReal, ClassStructure},
	"xcart":  {"xcart", TypeReal, ClassStructure},
	"xangst": {"xangst", TypeReal, ClassStructure},
	"amu":    {"amu", TypeReal, ClassStructure},

	// Plane-wave basis and SCF numerics.
	"ecut":    {"ecut", TypeReal, ClassParam},
	"ecutsm":  {"ecutsm", TypeReal, ClassParam},
	"dilatmx": {"dilatmx", TypeReal, ClassParam},
	"nstep":   {"nstep", TypeInt, ClassParam},
	"nline":   {"nline", TypeInt, ClassParam},
	"nnsclo":  {"nnsclo", TypeInt, ClassParam},
	"iscf":    {"iscf", TypeInt, ClassParam},
	"ixc":     {"ixc", TypeInt, ClassParam},
	"nband":   {"nband", TypeInt, ClassParam},
	"nbdbuf":  {"nbdbuf", TypeInt, ClassParam},
	"occopt":  {"occopt", TypeInt, ClassParam},
	"tsmear":  {"tsmear", TypeReal, ClassParam},
	"diemac":  {"diemac", TypeReal, ClassParam},
	"diemix":  {"diemix", TypeReal, ClassParam},

	// SCF stopping criteria, mutually exclusive per dataset.
	"tolvrs": {"tolvrs", TypeReal, ClassParam},
	"tolwfr": {"tolwfr", TypeReal, ClassParam},
	"toldfe": {"toldfe", TypeReal, ClassParam},
	"toldff": {"toldff", TypeReal, ClassParam},
	"tolrff": {"tolrff", TypeReal, ClassParam},

	// Brillouin-zone sampling.
	"kptopt":  {"kptopt", TypeInt, ClassParam},
	"ngkpt":   {"ngkpt", TypeInt, ClassParam},
	"nshiftk": {"nshiftk", TypeInt, ClassParam},
	"shiftk":  {"shiftk", TypeReal, ClassParam},
	"nkpt":    {"nkpt", TypeInt, ClassParam},
	"istwfk":  {"istwfk", TypeInt, ClassParam},
	"nqpt":    {"nqpt", TypeInt, ClassParam},
	"qpt":     {"qpt", TypeReal, ClassParam},

	// Response-function controls.
	"rfphon":  {"rfphon", TypeInt, ClassParam},
	"rfatpol": {"rfatpol", TypeInt, ClassParam},
	"rfdir":   {"rfdir", TypeInt, ClassParam},
	"rfelfd":  {"rfelfd", TypeInt, ClassParam},
	"rfddk":   {"rfddk", TypeInt, ClassParam},
	"rfstrs":  {"rfstrs", TypeInt, ClassParam},
	"prepanl": {"prepanl", TypeInt, ClassParam},

	// Dataset cross-references.
	"getwfk":  {"getwfk", TypeInt, ClassParam},
	"getddk":  {"getddk", TypeInt, ClassParam},
	"getden":  {"getden", TypeInt, ClassParam},
	"getwfq":  {"getwfq", TypeInt, ClassParam},
	"get1wf":  {"get1wf", TypeInt, ClassParam},
	"get1den": {"get1den", TypeInt, ClassParam},

	// Output and bookkeeping toggles.
	"prtden":      {"prtden", TypeInt, ClassParam},
	"prtwf":       {"prtwf", TypeInt, ClassParam},
	"prteig":      {"prteig", TypeInt, ClassParam},
	"enunit":      {"enunit", TypeInt, ClassParam},
	"timopt":      {"timopt", TypeInt, ClassParam},
	"chksymbreak": {"chksymbreak", TypeInt, ClassParam},
	"chkprim":     {"chkprim", TypeInt, ClassParam},
	"autoparal":   {"autoparal", TypeInt, ClassParam},
}

// Lookup returns the VarSpec for a base variable name.
func Lookup(name string) (VarSpec, bool) {
	spec, ok := registry[name]
	return spec, ok
}

// SplitIndex splits a trailing dataset index off a variable name:
// "tolvrs3" yields ("tolvrs", 3, true). A name splits only when the
// remaining base is a known variable, so unknown names and names that
// merely end in a digit pass through unchanged. Indexes have at most
// two digits; index 0 never splits.
func SplitIndex(name string) (string, int, bool) {
	if _, ok := registry[name]; ok {
		return name, 0, false
	}
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) || len(name)-i > 2 {
		return name, 0, false
	}
	base := name[:i]
	if _, ok := registry[base]; !ok {
		return name, 0, false
	}
	idx, err := strconv.Atoi(name[i:])
	if err != nil || idx < 1 {
		return name, 0, false
	}
	return base, idx, true
}
