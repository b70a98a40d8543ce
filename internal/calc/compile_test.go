package calc

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkerwray/PDielec/internal/deck"
)

func compileSrc(t *testing.T, src string) (*Calculation, []CompileError) {
	t.Helper()
	d, perrs := deck.Parse(strings.NewReader(src))
	require.Empty(t, perrs)
	return Compile(d)
}

func mustCompile(t *testing.T, src string) *Calculation {
	t.Helper()
	c, errs := compileSrc(t, src)
	require.Empty(t, errs)
	return c
}

func compileFixture(t *testing.T) *Calculation {
	t.Helper()
	f, err := os.Open("testdata/batio3.in")
	require.NoError(t, err)
	defer f.Close()

	d, perrs := deck.Parse(f)
	require.Empty(t, perrs)
	c, errs := Compile(d)
	require.Empty(t, errs)
	return c
}

func TestCompile_ResponseDeck(t *testing.T) {
	c := compileFixture(t)

	assert.Equal(t, 3, c.NDataset)
	assert.Equal(t, []int{1, 2, 3}, c.JDtset)

	s := c.Structure
	assert.InDelta(t, 7.5589, s.ACell[0], 1e-12)
	assert.Equal(t, [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, s.RPrim)
	assert.Equal(t, 3, s.NTypAt)
	assert.Equal(t, []int{56, 22, 8}, s.ZNucl)
	assert.Equal(t, 5, s.NAtom)
	assert.Equal(t, []int{1, 2, 3, 3, 3}, s.TypAt)
	require.Len(t, s.XRed, 5)
	assert.Equal(t, [3]float64{0.5, 0.5, 0.5}, s.XRed[1])

	// Unsuffixed numerics land in the shared defaults.
	ecut, ok := c.Defaults.Float("ecut")
	require.True(t, ok)
	assert.InDelta(t, 42.0, ecut, 1e-12)
	assert.False(t, c.Defaults.Has("tolvrs"))

	require.Len(t, c.Datasets, 3)

	ds1, ok := c.Dataset(1)
	require.True(t, ok)
	assert.Equal(t, PurposeGroundState, ds1.Purpose())
	assert.True(t, ds1.Overrides.Has("tolvrs"))

	ds2, ok := c.Dataset(2)
	require.True(t, ok)
	assert.Equal(t, PurposeDDK, ds2.Purpose())
	assert.Equal(t, int64(-3), ds2.Params.IntOr("iscf", 0))
	assert.Equal(t, int64(1), ds2.GetWfk())
	// Defaults reach suffixed datasets untouched.
	inherited, ok := ds2.Params.Float("ecut")
	require.True(t, ok)
	assert.InDelta(t, 42.0, inherited, 1e-12)

	ds3, ok := c.Dataset(3)
	require.True(t, ok)
	assert.Equal(t, PurposeResponse, ds3.Purpose())
	assert.Equal(t, int64(2), ds3.GetDdk())
	assert.Equal(t, [3]int64{1, 1, 1}, ds3.RFDir())

	assert.Empty(t, c.Extra)
	assert.Empty(t, c.Duplicates)
}

func TestCompile_InheritanceOverride(t *testing.T) {
	c := mustCompile(t, `ndtset 2
natom 1 ntypat 1 znucl 8 typat 1
xred 0.0 0.0 0.0
ecut 20.0
ecut2 35.0
tolvrs 1.0d-10
`)
	ds1, _ := c.Dataset(1)
	ds2, _ := c.Dataset(2)

	e1, _ := ds1.Params.Float("ecut")
	e2, _ := ds2.Params.Float("ecut")
	assert.InDelta(t, 20.0, e1, 1e-12)
	assert.InDelta(t, 35.0, e2, 1e-12)

	assert.False(t, ds1.Overrides.Has("ecut"))
	assert.True(t, ds2.Overrides.Has("ecut"))

	// The override line is remembered for diagnostics.
	assert.Equal(t, 5, ds2.Params.Line("ecut"))
}

func TestCompile_JdtsetSelection(t *testing.T) {
	c := mustCompile(t, `ndtset 2
jdtset 1 3
natom 1 ntypat 1 znucl 8 typat 1
xred 0.0 0.0 0.0
ecut 20.0
tolvrs1 1.0d-10
tolvrs3 1.0d-8
`)
	assert.Equal(t, []int{1, 3}, c.JDtset)
	require.Len(t, c.Datasets, 2)
	assert.Equal(t, 1, c.Datasets[0].Index)
	assert.Equal(t, 3, c.Datasets[1].Index)

	_, ok := c.Dataset(2)
	assert.False(t, ok)
}

func TestCompile_DefaultSingleDataset(t *testing.T) {
	c := mustCompile(t, `natom 1 ntypat 1 znucl 8 typat 1
xred 0.0 0.0 0.0
ecut 20.0 tolvrs 1.0d-10
`)
	assert.Equal(t, 1, c.NDataset)
	assert.Equal(t, []int{1}, c.JDtset)
	require.Len(t, c.Datasets, 1)
}

func TestCompile_AngstromCell(t *testing.T) {
	c := mustCompile(t, `acell 3*4.0 angstrom
natom 1 ntypat 1 znucl 8 typat 1
xred 0.0 0.0 0.0
ecut 20.0 tolvrs 1.0d-10
`)
	assert.InDelta(t, 4.0/0.529177210903, c.Structure.ACell[0], 1e-9)
}

func TestCompile_UnknownVariablesCarried(t *testing.T) {
	c := mustCompile(t, `natom 1 ntypat 1 znucl 8 typat 1
xred 0.0 0.0 0.0
ecut 20.0 tolvrs 1.0d-10
pp_dirpath 1
`)
	require.Contains(t, c.Extra, "pp_dirpath")
}

func TestCompile_DuplicateKeepsFirst(t *testing.T) {
	c, errs := compileSrc(t, `natom 1 ntypat 1 znucl 8 typat 1
xred 0.0 0.0 0.0
ecut 20.0
ecut 30.0
tolvrs 1.0d-10
`)
	require.Empty(t, errs)

	e, _ := c.Defaults.Float("ecut")
	assert.InDelta(t, 20.0, e, 1e-12)

	require.Len(t, c.Duplicates, 1)
	assert.Equal(t, "ecut", c.Duplicates[0].Name)
	assert.Equal(t, 3, c.Duplicates[0].FirstLine)
	assert.Equal(t, 4, c.Duplicates[0].Line)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"suffixed_structure", "acell2 3*10.0\n", "acell2"},
		{"suffixed_control", "ndtset2 1\n", "ndtset2"},
		{"cartesian_coords", "xcart 0.0 0.0 0.0\n", "xcart"},
		{"angle_cell", "angdeg 90.0 90.0 90.0\n", "angdeg"},
		{"bad_unit", "acell 3*10.0 ev\n", "acell"},
		{"short_acell", "acell 10.0 10.0\n", "acell"},
		{"bad_ndtset", "ndtset 0\n", "ndtset"},
		{"bad_jdtset", "ndtset 1 jdtset 0\n", "jdtset"},
		{"short_rprim", "rprim 1.0 0.0 0.0\n", "rprim"},
		{"ragged_xred", "xred 0.0 0.0\n", "xred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := compileSrc(t, tt.src)
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.NotEmpty(t, errs[0].Error())
		})
	}
}

func TestCompile_CollectsAcrossSections(t *testing.T) {
	// One structural and one control problem in the same deck; both
	// are reported and the clean parts still compile.
	c, errs := compileSrc(t, `ndtset 0
xcart 0.0 0.0 0.0
natom 1 ntypat 1 znucl 8 typat 1
xred 0.0 0.0 0.0
ecut 20.0 tolvrs 1.0d-10
`)
	require.Len(t, errs, 2)
	assert.Equal(t, 1, c.NDataset)
	e, _ := c.Defaults.Float("ecut")
	assert.InDelta(t, 20.0, e, 1e-12)
}
