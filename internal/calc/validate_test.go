package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// base is a minimal consistent single-dataset deck; cases below break
// one rule at a time.
const base = `acell 3*10.0 bohr ntypat 1 znucl 8 natom 1 typat 1
xred 0.0 0.0 0.0
ecut 20.0 tolvrs 1.0d-10
`

func validateSrc(t *testing.T, src string) []ValidationError {
	t.Helper()
	c, errs := compileSrc(t, src)
	require.Empty(t, errs)
	return Validate(c)
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_ResponseDeckClean(t *testing.T) {
	c := compileFixture(t)
	assert.Empty(t, Validate(c))
}

func TestValidate_MinimalDeckClean(t *testing.T) {
	assert.Empty(t, validateSrc(t, base))
}

func TestValidate_Findings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			"coordinate_count",
			"acell 3*10.0 bohr ntypat 1 znucl 8 natom 2 typat 1 1\n" +
				"xred 0.0 0.0 0.0\necut 20.0 tolvrs 1.0d-10\n",
			[]string{ErrCoordCount},
		},
		{
			"type_count",
			"acell 3*10.0 bohr ntypat 1 znucl 8 natom 2 typat 1\n" +
				"xred 0.0 0.0 0.0\nxred 0.5 0.5 0.5\necut 20.0 tolvrs 1.0d-10\n",
			// The second xred is a repeated statement, so the first
			// (one triple) wins and the count is wrong too.
			[]string{ErrCoordCount, ErrTypAtCount, ErrDuplicate},
		},
		{
			"type_out_of_range",
			"acell 3*10.0 bohr ntypat 1 znucl 8 natom 1 typat 2\n" +
				"xred 0.0 0.0 0.0\necut 20.0 tolvrs 1.0d-10\n",
			[]string{ErrTypAtRange},
		},
		{
			"species_missing",
			"acell 3*10.0 bohr ntypat 1 natom 1 typat 1\n" +
				"xred 0.0 0.0 0.0\necut 20.0 tolvrs 1.0d-10\n",
			[]string{ErrTypAtRange, ErrSpecies},
		},
		{
			"species_count",
			"acell 3*10.0 bohr ntypat 1 znucl 8 22 natom 1 typat 1\n" +
				"xred 0.0 0.0 0.0\necut 20.0 tolvrs 1.0d-10\n",
			[]string{ErrSpecies},
		},
		{
			"species_unknown",
			"acell 3*10.0 bohr ntypat 2 znucl 8 199 natom 1 typat 1\n" +
				"xred 0.0 0.0 0.0\necut 20.0 tolvrs 1.0d-10\n",
			[]string{ErrSpecies},
		},
		{
			"flat_cell",
			"acell 3*10.0 bohr ntypat 1 znucl 8 natom 1 typat 1\n" +
				"rprim 1.0 0.0 0.0 1.0 0.0 0.0 0.0 0.0 1.0\n" +
				"xred 0.0 0.0 0.0\necut 20.0 tolvrs 1.0d-10\n",
			[]string{ErrCellVolume},
		},
		{
			"negative_acell",
			"acell -10.0 10.0 10.0 bohr ntypat 1 znucl 8 natom 1 typat 1\n" +
				"xred 0.0 0.0 0.0\necut 20.0 tolvrs 1.0d-10\n",
			[]string{ErrCellVolume},
		},
		{
			"missing_ecut",
			"acell 3*10.0 bohr ntypat 1 znucl 8 natom 1 typat 1\n" +
				"xred 0.0 0.0 0.0\ntolvrs 1.0d-10\n",
			[]string{ErrNumerics},
		},
		{
			"negative_ecut",
			"acell 3*10.0 bohr ntypat 1 znucl 8 natom 1 typat 1\n" +
				"xred 0.0 0.0 0.0\necut -5.0 tolvrs 1.0d-10\n",
			[]string{ErrNumerics},
		},
		{
			"occopt_range",
			base + "occopt 12\n",
			[]string{ErrNumerics},
		},
		{
			"no_tolerance",
			"acell 3*10.0 bohr ntypat 1 znucl 8 natom 1 typat 1\n" +
				"xred 0.0 0.0 0.0\necut 20.0\n",
			[]string{ErrTolerance},
		},
		{
			"two_tolerances",
			base + "tolwfr 1.0d-20\n",
			[]string{ErrTolerance},
		},
		{
			"negative_tolerance",
			"acell 3*10.0 bohr ntypat 1 znucl 8 natom 1 typat 1\n" +
				"xred 0.0 0.0 0.0\necut 20.0 tolvrs -1.0d-10\n",
			[]string{ErrTolerance},
		},
		{
			"ddk_needs_tolwfr",
			base + "iscf -3\n",
			[]string{ErrTolerance},
		},
		{
			"rfphon_range",
			base + "rfphon 2\n",
			[]string{ErrResponseFlags},
		},
		{
			"rfelfd_range",
			base + "rfelfd 5\n",
			[]string{ErrResponseFlags},
		},
		{
			"undriven_response",
			base + "rfphon 1\n",
			[]string{ErrResponseFlags},
		},
		{
			"rfdir_short",
			base + "rfphon 1 rfdir 1 1\n",
			[]string{ErrResponseFlags, ErrResponseFlags},
		},
		{
			"rfdir_flag_value",
			base + "rfphon 1 rfdir 2 0 0\n",
			[]string{ErrResponseFlags, ErrResponseFlags},
		},
		{
			"rfatpol_range",
			base + "rfphon 1 rfdir 1 1 1 rfatpol 1 2\n",
			[]string{ErrResponseFlags},
		},
		{
			"jdtset_count",
			"ndtset 2 jdtset 1\n" + base,
			[]string{ErrDatasetBinding},
		},
		{
			"jdtset_repeat",
			"ndtset 2 jdtset 1 1\n" + base,
			[]string{ErrDatasetBinding},
		},
		{
			"orphan_override",
			base + "ecut2 30.0\n",
			[]string{ErrDatasetBinding},
		},
		{
			"forward_reference",
			"ndtset 2\n" + base + "getwfk1 2\n",
			[]string{ErrRefOrder},
		},
		{
			"self_reference",
			base + "getwfk 1\n",
			[]string{ErrRefOrder},
		},
		{
			"relative_underflow",
			base + "getwfk -1\n",
			[]string{ErrRefOrder},
		},
		{
			"unknown_reference",
			base + "getwfk 5\n",
			[]string{ErrRefUnknown},
		},
		{
			"ddk_from_ground_state",
			"ndtset 2\n" + base + "getddk2 1\n",
			[]string{ErrRefTarget},
		},
		{
			"wavefunctions_from_ddk",
			"ndtset 2 acell 3*10.0 bohr ntypat 1 znucl 8 natom 1 typat 1\n" +
				"xred 0.0 0.0 0.0\necut 20.0\n" +
				"iscf1 -3 tolwfr1 1.0d-20\n" +
				"tolvrs2 1.0d-10 getwfk2 1\n",
			[]string{ErrRefTarget},
		},
		{
			"duplicate_statement",
			base + "ecut 30.0\n",
			[]string{ErrDuplicate},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(validateSrc(t, tt.src)))
		})
	}
}

func TestValidate_FindingDetail(t *testing.T) {
	errs := validateSrc(t, "ndtset 2\n"+base+"tolwfr2 1.0d-20\n")
	require.Len(t, errs, 1)

	e := errs[0]
	assert.Equal(t, ErrTolerance, e.Code)
	assert.Equal(t, 2, e.Dataset)
	assert.Equal(t, "tolwfr", e.Field)
	assert.Contains(t, e.Message, "exactly one")
	assert.Contains(t, e.Error(), "[E106]")
	assert.Contains(t, e.Error(), "dataset 2")
}

func TestValidate_CollectsEverything(t *testing.T) {
	// Structure, numerics, tolerance, and reference problems in one
	// deck; every one is reported.
	errs := validateSrc(t, `acell 3*10.0 bohr ntypat 1 znucl 8 natom 2 typat 1
xred 0.0 0.0 0.0
getwfk 5
`)
	got := codes(errs)
	assert.Contains(t, got, ErrCoordCount)
	assert.Contains(t, got, ErrTypAtCount)
	assert.Contains(t, got, ErrNumerics)
	assert.Contains(t, got, ErrTolerance)
	assert.Contains(t, got, ErrRefUnknown)
}
