// Package deck reads and writes ABINIT multi-dataset input files.
//
// The format is a whitespace/newline-delimited key-value text format:
// a token starting with a letter names an input variable and every
// following numeric token belongs to it, until the next variable name.
// Comments run from '#' or '!' to end of line. Numeric literals accept
// Fortran exponent markers ('1.0d-14') alongside 'e'/'E', and 'N*value'
// repeats a value N times. A trailing digit on a known variable name
// ('tolvrs3') binds that occurrence to a specific dataset.
//
// This package is the foundational layer: it knows the textual format
// and the variable vocabulary, nothing else. Typing, dataset
// resolution, and physics live in internal/calc and above.
package deck
