package query

import (
	"fmt"
	"strings"
)

// Op is a comparison operator in a filter clause.
type Op string

const (
	OpEq   Op = "="
	OpNe   Op = "!="
	OpLt   Op = "<"
	OpGt   Op = ">"
	OpLe   Op = "<="
	OpGe   Op = ">="
	OpLike Op = "~"
)

// Clause is one field comparison. Value is kept as the raw text the
// user wrote; Validate checks it against the field's type.
type Clause struct {
	Field string
	Op    Op
	Value string
}

// Filter is a conjunction of clauses over archived runs. The zero
// value matches every run.
type Filter struct {
	Clauses []Clause
}

// fieldKind selects the value type and the operator set of a field.
type fieldKind int

const (
	kindText fieldKind = iota
	kindInt
	kindTime
)

// fieldSpec maps a filter field to its run-listing column. Columns
// are qualified because the listing query joins runs against
// calculations.
type fieldSpec struct {
	column string
	kind   fieldKind
}

var fields = map[string]fieldSpec{
	"program": {column: "c.program", kind: kindText},
	"natom":   {column: "c.natom", kind: kindInt},
	"method":  {column: "r.method", kind: kindText},
	"shape":   {column: "r.shape", kind: kindText},
	"created": {column: "r.created_at", kind: kindTime},
	"hash":    {column: "r.calc_hash", kind: kindText},
}

// fieldNames is the sorted list used in error messages.
var fieldNames = "created, hash, method, natom, program, shape"

// ops holds every operator, two-character forms first so that
// splitClause never reads "!=" as "!" followed by "=".
var ops = []Op{OpNe, OpLe, OpGe, OpEq, OpLt, OpGt, OpLike}

// Parse reads a comma-separated list of "field op value" clauses,
// e.g. "method = bruggeman, natom >= 5, created = 2026-08". It checks
// syntax only; Validate checks fields, operators and literals.
// Values cannot contain commas. An empty string yields the match-all
// filter.
func Parse(s string) (Filter, error) {
	var f Filter
	if strings.TrimSpace(s) == "" {
		return f, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Filter{}, fmt.Errorf("empty clause in %q", s)
		}
		cl, err := parseClause(part)
		if err != nil {
			return Filter{}, err
		}
		f.Clauses = append(f.Clauses, cl)
	}
	return f, nil
}

// parseClause splits one clause at its leftmost operator.
func parseClause(s string) (Clause, error) {
	for i := 0; i < len(s); i++ {
		for _, op := range ops {
			if !strings.HasPrefix(s[i:], string(op)) {
				continue
			}
			field := strings.TrimSpace(s[:i])
			value := strings.TrimSpace(s[i+len(op):])
			if field == "" {
				return Clause{}, fmt.Errorf("clause %q: missing field before %q", s, op)
			}
			if value == "" {
				return Clause{}, fmt.Errorf("clause %q: missing value after %q", s, op)
			}
			return Clause{Field: field, Op: op, Value: value}, nil
		}
	}
	return Clause{}, fmt.Errorf("clause %q: no comparison operator, expected \"field op value\"", s)
}
