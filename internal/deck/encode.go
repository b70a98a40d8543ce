package deck

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const nameWidth = 12

// tripleVars render three values per line with aligned continuation
// rows, matching how structural matrices are conventionally laid out.
var tripleVars = map[string]bool{
	"rprim":  true,
	"xred":   true,
	"xcart":  true,
	"xangst": true,
	"shiftk": true,
}

// Encode writes the deck in a fixed layout: one statement per line,
// names left-aligned, matrix variables wrapped three values per line,
// comments on their own line with a blank line opening each comment
// block. The layout is deterministic, so encoded output is stable
// input for golden comparisons.
func Encode(w io.Writer, d *Deck) error {
	bw := bufio.NewWriter(w)
	prevComment := false
	for i, it := range d.Items {
		switch item := it.(type) {
		case Comment:
			if i > 0 && !prevComment {
				if _, err := bw.WriteString("\n"); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(bw, "# %s\n", item.Text); err != nil {
				return err
			}
			prevComment = true
		case *Statement:
			if err := encodeStatement(bw, item); err != nil {
				return err
			}
			prevComment = false
		default:
			return fmt.Errorf("unknown deck item %T", it)
		}
	}
	return bw.Flush()
}

func encodeStatement(w *bufio.Writer, s *Statement) error {
	base := s.Name
	if b, _, ok := SplitIndex(s.Name); ok {
		base = b
	}
	perLine := len(s.Values)
	if tripleVars[base] {
		perLine = 3
	}
	if perLine == 0 {
		perLine = 1
	}

	name := fmt.Sprintf("%-*s", nameWidth, s.Name)
	indent := strings.Repeat(" ", nameWidth)
	for start := 0; start == 0 || start < len(s.Values); start += perLine {
		if start == 0 {
			if _, err := w.WriteString(name); err != nil {
				return err
			}
		} else {
			if _, err := w.WriteString(indent); err != nil {
				return err
			}
		}
		end := start + perLine
		if end > len(s.Values) {
			end = len(s.Values)
		}
		for _, v := range s.Values[start:end] {
			if _, err := w.WriteString(" " + v.String()); err != nil {
				return err
			}
		}
		if _, err := w.WriteString("\n"); err != nil {
			return err
		}
	}
	return nil
}
