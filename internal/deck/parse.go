package deck

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Parse error codes. Stable across releases; tests and callers match
// on these, not on message text.
const (
	CodeRead        = "E010" // reader failed mid-file
	CodeBadToken    = "E011" // token is neither a variable name nor a number
	CodeBadNumber   = "E012" // malformed numeric literal
	CodeOrphanValue = "E013" // value before any variable name
	CodeBadRepeat   = "E014" // malformed N*value repeat
	CodeSeries      = "E015" // ecut: / ecut+ series syntax, unsupported
)

// ParseError is one problem found while reading a deck. Line is
// 1-based; 0 means the error is not tied to a line.
type ParseError struct {
	Line    int
	Code    string
	Message string
}

func (e ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Code, e.Message)
}

// Item is a sealed interface over deck file content in source order.
// Only *Statement and Comment implement it.
type Item interface {
	deckItem()
}

// Statement is one input variable together with the values that
// follow it, possibly across several lines. Line is where the name
// token appeared.
type Statement struct {
	Name   string
	Values []Value
	Line   int
}

func (*Statement) deckItem() {}

// Expanded returns the statement's values with repeats flattened.
func (s *Statement) Expanded() []Value {
	return Expanded(s.Values)
}

// Comment is one comment, without its leading '#' or '!'.
type Comment struct {
	Text string
	Line int
}

func (Comment) deckItem() {}

// Deck is a parsed input file: statements and comments in source
// order. Duplicate statements for the same variable are preserved so
// validation can flag them.
type Deck struct {
	Items []Item
}

// Statements returns the deck's statements in source order.
func (d *Deck) Statements() []*Statement {
	out := make([]*Statement, 0, len(d.Items))
	for _, it := range d.Items {
		if s, ok := it.(*Statement); ok {
			out = append(out, s)
		}
	}
	return out
}

var nameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Parse reads an ABINIT input file. It collects every problem it can
// find instead of stopping at the first; the returned deck holds
// whatever parsed cleanly.
func Parse(r io.Reader) (*Deck, []ParseError) {
	d := &Deck{}
	var errs []ParseError
	var cur *Statement

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		text := sc.Text()

		text, comment, hasComment := splitComment(text)
		for _, tok := range strings.Fields(text) {
			if isNameStart(tok[0]) {
				if isUnitWord(tok) {
					if cur == nil {
						errs = append(errs, ParseError{lineNo, CodeOrphanValue, fmt.Sprintf("unit %q before any variable name", tok)})
						continue
					}
					cur.Values = append(cur.Values, Word{V: tok})
					continue
				}
				if nameRe.MatchString(tok) {
					cur = &Statement{Name: tok, Line: lineNo}
					d.Items = append(d.Items, cur)
					continue
				}
				if pe, ok := seriesError(tok, lineNo); ok {
					errs = append(errs, pe)
					continue
				}
				errs = append(errs, ParseError{lineNo, CodeBadToken, fmt.Sprintf("invalid token %q", tok)})
				continue
			}
			val, pe := parseValueToken(tok, lineNo)
			if pe != nil {
				errs = append(errs, *pe)
				continue
			}
			if cur == nil {
				errs = append(errs, ParseError{lineNo, CodeOrphanValue, fmt.Sprintf("value %q before any variable name", tok)})
				continue
			}
			cur.Values = append(cur.Values, val)
		}
		if hasComment {
			d.Items = append(d.Items, Comment{Text: comment, Line: lineNo})
		}
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, ParseError{0, CodeRead, err.Error()})
	}
	return d, errs
}

// splitComment cuts a line at the first '#' or '!'. The comment text
// is returned trimmed, without the marker.
func splitComment(line string) (rest, comment string, ok bool) {
	i := strings.IndexAny(line, "#!")
	if i < 0 {
		return line, "", false
	}
	return line[:i], strings.TrimSpace(line[i+1:]), true
}

func isNameStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// unitWords are the length/energy unit keywords that may trail a
// numeric list, as in "acell 3*7.54 bohr". They parse as Word values
// attached to the current statement, never as variable names.
var unitWords = map[string]bool{
	"angstrom": true,
	"bohr":     true,
	"hartree":  true,
	"ha":       true,
	"ev":       true,
	"ry":       true,
	"thz":      true,
}

func isUnitWord(tok string) bool {
	return unitWords[strings.ToLower(tok)]
}

// seriesError recognizes the ecut: / ecut+ / ecut? dataset-series
// forms so they fail with a specific message rather than a generic
// bad-token one.
func seriesError(tok string, line int) (ParseError, bool) {
	last := tok[len(tok)-1]
	if last != ':' && last != '+' && last != '?' && last != '*' {
		return ParseError{}, false
	}
	base := tok[:len(tok)-1]
	if !nameRe.MatchString(base) {
		return ParseError{}, false
	}
	if _, ok := Lookup(base); !ok {
		if _, _, ok := SplitIndex(base); !ok {
			return ParseError{}, false
		}
	}
	return ParseError{line, CodeSeries, fmt.Sprintf("series syntax %q is not supported", tok)}, true
}

var intRe = regexp.MustCompile(`^[+-]?[0-9]+$`)

// parseValueToken parses one numeric token, including the N*value
// repeat form.
func parseValueToken(tok string, line int) (Value, *ParseError) {
	if i := strings.IndexByte(tok, '*'); i >= 0 {
		if i == 0 {
			return nil, &ParseError{line, CodeSeries, fmt.Sprintf("fill syntax %q is not supported", tok)}
		}
		countStr, valStr := tok[:i], tok[i+1:]
		count, err := strconv.Atoi(countStr)
		if err != nil || count < 1 {
			return nil, &ParseError{line, CodeBadRepeat, fmt.Sprintf("malformed repeat count in %q", tok)}
		}
		if valStr == "" {
			return nil, &ParseError{line, CodeBadRepeat, fmt.Sprintf("repeat %q has no value", tok)}
		}
		inner, pe := parseValueToken(valStr, line)
		if pe != nil {
			return nil, pe
		}
		if _, nested := inner.(Repeat); nested {
			return nil, &ParseError{line, CodeBadRepeat, fmt.Sprintf("nested repeat in %q", tok)}
		}
		return Repeat{Count: count, Val: inner}, nil
	}
	if intRe.MatchString(tok) {
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, &ParseError{line, CodeBadNumber, fmt.Sprintf("integer %q out of range", tok)}
		}
		return Int{V: n}, nil
	}
	f, err := parseRealToken(tok)
	if err != nil {
		return nil, &ParseError{line, CodeBadNumber, err.Error()}
	}
	return Real{V: f, Raw: tok}, nil
}
