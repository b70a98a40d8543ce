package query

import (
	"fmt"
	"strconv"
	"strings"
)

// SQL compiles a filter to a parameterised SQLite WHERE fragment for
// the run-listing join (runs r JOIN calculations c). Values are never
// interpolated into the SQL text; every literal travels as a
// placeholder argument. An empty filter compiles to the vacuous
// "1 = 1" so callers can always write WHERE.
//
// SQL validates the filter first and returns the first finding as
// the error, so an unvalidated filter cannot reach the database.
func SQL(f Filter) (string, []any, error) {
	if errs := Validate(f); len(errs) > 0 {
		return "", nil, errs[0]
	}
	if len(f.Clauses) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(f.Clauses))
	args := make([]any, 0, len(f.Clauses))
	for _, cl := range f.Clauses {
		sql, arg := clauseSQL(cl)
		parts = append(parts, sql)
		args = append(args, arg)
	}
	return strings.Join(parts, " AND "), args, nil
}

// clauseSQL emits one comparison. Only validated clauses reach here,
// so the field lookup and the integer parse cannot fail.
func clauseSQL(cl Clause) (string, any) {
	spec := fields[cl.Field]
	switch spec.kind {
	case kindInt:
		n, _ := strconv.ParseInt(cl.Value, 10, 64)
		return fmt.Sprintf("%s %s ?", spec.column, cl.Op), n

	case kindTime:
		// Equality on a timestamp field is prefix match: the stored
		// text is fixed-width RFC 3339 UTC, so "2026-08" selects the
		// month and "<" orders correctly against any prefix. Validated
		// literals contain no LIKE metacharacters.
		switch cl.Op {
		case OpEq:
			return spec.column + " LIKE ?", cl.Value + "%"
		case OpNe:
			return spec.column + " NOT LIKE ?", cl.Value + "%"
		default:
			return fmt.Sprintf("%s %s ?", spec.column, cl.Op), cl.Value
		}

	default:
		switch cl.Op {
		case OpLike:
			return spec.column + ` LIKE ? ESCAPE '\'`, likeArg(cl.Value)
		case OpNe:
			return spec.column + " != ?", cl.Value
		default:
			return spec.column + " = ?", cl.Value
		}
	}
}

// likeEscaper makes a value match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likeArg(v string) string {
	return "%" + likeEscaper.Replace(v) + "%"
}
