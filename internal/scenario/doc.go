// Package scenario loads effective-medium run descriptions from CUE
// files. A scenario names the mixing method, the particle geometry,
// the support matrix, the crystal loading and the frequency grid, and
// carries the normal-mode options applied before the permittivity
// sum. Files are unified with an embedded schema so that every field
// is typed, bounded and defaulted before a Scenario reaches a run.
package scenario
