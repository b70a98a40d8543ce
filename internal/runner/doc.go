// Package runner turns archived calculations and scenarios into
// recorded spectrum runs.
//
// Run loads a calculation from the archive, sweeps the scenario's
// frequency grid and writes the run with its points in one
// transaction. Replay renders a recorded run's report again without
// recomputing anything, which keeps its output byte-stable.
//
// The wall clock and the run ID source are interfaces so tests can
// pin timestamps and IDs; production code uses SystemClock and
// UUIDv7 IDs.
package runner
