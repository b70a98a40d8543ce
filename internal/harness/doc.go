// Package harness provides shared test support for the repository.
//
// It standardises the things several packages' tests need: golden file
// comparison through goldie, with fixtures under testdata/golden and a
// .golden suffix, and tolerance-based assertions for 3x3 tensors and
// frequency grids built on go-cmp.
//
// # Golden Files
//
// Every package stores golden fixtures the same way:
//
//	g := harness.Golden(t)
//	g.Assert(t, "spectrum_csv", got)
//
// compares got against testdata/golden/spectrum_csv.golden relative to
// the test's package directory. Regenerate fixtures with:
//
//	go test ./... -update
//
// # Tolerance Assertions
//
// Dielectric tensors, oscillator strengths and frequency grids come out
// of floating-point pipelines, so equality is always approximate:
//
//	harness.AssertTensorApprox(t, harness.Diagonal(2.32), res.EpsilonInf, 1e-12)
//	harness.AssertMonotonicGrid(t, grid)
package harness
