// Package query implements the filter language for listing archived
// runs. A filter is a comma-separated conjunction of "field op value"
// clauses over the run and calculation columns, e.g.
//
//	method = bruggeman, natom >= 5, created = 2026-08
//
// Parse reads the text, Validate checks every clause against the
// field table and reports all problems at once, and SQL compiles a
// valid filter to a parameterised WHERE fragment. Values are never
// interpolated into SQL.
package query
