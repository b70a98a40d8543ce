package deck

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a sealed interface over the token values a statement can
// carry. Only Int, Real, Word, and Repeat implement it.
type Value interface {
	deckValue()
	String() string
}

// Int is an integer value.
type Int struct {
	V int64
}

func (Int) deckValue() {}

func (v Int) String() string {
	return strconv.FormatInt(v.V, 10)
}

// Real is a floating-point value. Raw preserves the source spelling
// (including Fortran 'd' exponents) so Encode round-trips style; an
// empty Raw renders in shortest Go form.
type Real struct {
	V   float64
	Raw string
}

func (Real) deckValue() {}

func (v Real) String() string {
	if v.Raw != "" {
		return v.Raw
	}
	return strconv.FormatFloat(v.V, 'g', -1, 64)
}

// Word is a bare word among values, such as a unit ("angstrom") or an
// asterisk-free keyword. The parser does not interpret it.
type Word struct {
	V string
}

func (Word) deckValue() {}

func (v Word) String() string {
	return v.V
}

// Repeat is the 'N*value' repeat form. It stands for Count copies of
// Val; Expanded flattens it.
type Repeat struct {
	Count int
	Val   Value
}

func (Repeat) deckValue() {}

func (v Repeat) String() string {
	return fmt.Sprintf("%d*%s", v.Count, v.Val.String())
}

// NewReal builds a Real with default formatting.
func NewReal(f float64) Real {
	return Real{V: f}
}

// RealRaw builds a Real that renders exactly as written.
func RealRaw(raw string) (Real, error) {
	f, err := parseRealToken(raw)
	if err != nil {
		return Real{}, err
	}
	return Real{V: f, Raw: raw}, nil
}

// parseRealToken parses a numeric literal accepting Fortran 'd'/'D'
// exponent markers as well as 'e'/'E'.
func parseRealToken(tok string) (float64, error) {
	s := tok
	if i := strings.IndexAny(s, "dD"); i >= 0 {
		s = s[:i] + "e" + s[i+1:]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed numeric literal %q", tok)
	}
	return f, nil
}

// Expanded returns the values with every Repeat flattened into
// explicit copies, in order.
func Expanded(values []Value) []Value {
	out := make([]Value, 0, len(values))
	for _, v := range values {
		if r, ok := v.(Repeat); ok {
			for i := 0; i < r.Count; i++ {
				out = append(out, r.Val)
			}
			continue
		}
		out = append(out, v)
	}
	return out
}

// AsFloat returns the numeric value of an Int or Real.
func AsFloat(v Value) (float64, bool) {
	switch val := v.(type) {
	case Int:
		return float64(val.V), true
	case Real:
		return val.V, true
	default:
		return 0, false
	}
}

// AsInt returns the value of an Int, or of a Real that is exactly
// integral (ABINIT accepts '1.0' where an integer is expected).
func AsInt(v Value) (int64, bool) {
	switch val := v.(type) {
	case Int:
		return val.V, true
	case Real:
		n := int64(val.V)
		if float64(n) == val.V {
			return n, true
		}
		return 0, false
	default:
		return 0, false
	}
}
