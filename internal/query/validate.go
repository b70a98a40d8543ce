package query

import (
	"fmt"
	"strconv"
	"time"
)

// Validation error codes (E201-E299).
const (
	ErrUnknownField = "E201" // field is not part of the filter vocabulary
	ErrBadOp        = "E202" // operator not valid for the field's type
	ErrBadLiteral   = "E203" // value does not parse as the field's type
)

// ValidationError is one problem with a filter clause. Clause is the
// 1-based position of the clause in the filter.
type ValidationError struct {
	Clause  int    `json:"clause"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] clause %d: %s: %s", e.Code, e.Clause, e.Field, e.Message)
}

// createdLayouts are the accepted shapes for created literals: an
// RFC 3339 timestamp or any calendar prefix of one. Prefixes compare
// against the stored timestamp text, so "2026-08" selects a month.
var createdLayouts = []string{
	"2006",
	"2006-01",
	"2006-01-02",
	"2006-01-02T15",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Validate checks every clause against the field table. It returns
// every problem found, in clause order, and never stops at the
// first.
func Validate(f Filter) []ValidationError {
	var errs []ValidationError
	for i, cl := range f.Clauses {
		errs = append(errs, validateClause(i+1, cl)...)
	}
	return errs
}

func validateClause(n int, cl Clause) []ValidationError {
	spec, ok := fields[cl.Field]
	if !ok {
		return []ValidationError{{
			Clause:  n,
			Field:   cl.Field,
			Message: fmt.Sprintf("unknown field, valid fields are %s", fieldNames),
			Code:    ErrUnknownField,
		}}
	}

	var errs []ValidationError
	if !spec.kind.allows(cl.Op) {
		errs = append(errs, ValidationError{
			Clause:  n,
			Field:   cl.Field,
			Message: fmt.Sprintf("operator %s does not apply, valid operators are %s", cl.Op, spec.kind.opList()),
			Code:    ErrBadOp,
		})
	}
	if msg := spec.kind.checkValue(cl.Value); msg != "" {
		errs = append(errs, ValidationError{
			Clause:  n,
			Field:   cl.Field,
			Message: msg,
			Code:    ErrBadLiteral,
		})
	}
	return errs
}

// allows reports whether op is defined for values of this kind.
// Substring match is a text operation; ordering needs an ordered
// type, which text fields are not.
func (k fieldKind) allows(op Op) bool {
	switch k {
	case kindText:
		return op == OpEq || op == OpNe || op == OpLike
	default:
		return op != OpLike
	}
}

func (k fieldKind) opList() string {
	if k == kindText {
		return "=, !=, ~"
	}
	return "=, !=, <, >, <=, >="
}

func (k fieldKind) checkValue(v string) string {
	switch k {
	case kindInt:
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Sprintf("%q is not an integer", v)
		}
	case kindTime:
		for _, layout := range createdLayouts {
			if _, err := time.Parse(layout, v); err == nil {
				return ""
			}
		}
		return fmt.Sprintf("%q is not an RFC 3339 timestamp or a prefix of one", v)
	}
	return ""
}
