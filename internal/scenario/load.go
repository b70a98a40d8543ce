package scenario

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/parkerwray/PDielec/internal/crystal"
)

//go:embed schema.cue
var schemaSource string

// Error codes for scenario loading.
const (
	ErrCodeNotFound = "E001" // scenario file missing
	ErrCodeSyntax   = "E002" // CUE parse or build failure
	ErrCodeSchema   = "E003" // schema violation
	ErrCodeValue    = "E004" // value fails a cross-field rule
)

// LoadError is a scenario loading failure with source position.
type LoadError struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.detail())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.detail())
}

// Detail renders the position, field and message without the code, for
// reports that label errors with their codes separately.
func (e *LoadError) Detail() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.detail())
	}
	return e.detail()
}

func (e *LoadError) detail() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// Load reads one scenario file, unifies it with the schema, and
// applies the defaults and cross-field rules the schema cannot
// express. Errors carry a code and, where known, a file position.
func Load(path string) (*Scenario, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("scenario file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing scenario file: %v", err)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: filepath.Dir(path)}
	instances := load.Instances([]string{filepath.Base(path)}, cfg)
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeSyntax, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, cueError(ErrCodeSyntax, inst.Err)
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, cueError(ErrCodeSyntax, err)
	}

	schema := ctx.CompileString(schemaSource, cue.Filename("scenario-schema.cue"))
	def := schema.LookupPath(cue.ParsePath("#Scenario"))
	if err := def.Err(); err != nil {
		return nil, cueError(ErrCodeSchema, err)
	}

	unified := def.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(ErrCodeSchema, err)
	}

	var s Scenario
	if err := unified.Decode(&s); err != nil {
		return nil, cueError(ErrCodeSchema, err)
	}
	if err := finish(&s, value); err != nil {
		return nil, err
	}
	return &s, nil
}

// finish applies the defaults the schema cannot express and checks
// the cross-field rules. The file value supplies error positions.
func finish(s *Scenario, v cue.Value) error {
	fail := func(field, msg string) *LoadError {
		e := &LoadError{Code: ErrCodeValue, Field: field, Message: msg}
		if fv := v.LookupPath(cue.ParsePath(field)); fv.Exists() {
			e.Pos = fv.Pos()
		} else {
			e.Pos = v.Pos()
		}
		return e
	}

	if s.Matrix != "" && s.Permittivity != 0 {
		return fail("matrix", "set a matrix name or an explicit permittivity, not both")
	}
	if s.Density != 0 && s.Permittivity == 0 {
		return fail("density", "density needs an explicit permittivity")
	}
	if s.Matrix == "" && s.Permittivity == 0 {
		s.Matrix = "ptfe"
	}
	if _, err := s.Material(); err != nil {
		return fail("matrix", err.Error())
	}

	if s.VolumeFraction != 0 && s.MassFraction != 0 {
		return fail("volumeFraction", "set a volume fraction or a mass fraction, not both")
	}
	if s.VolumeFraction == 0 && s.MassFraction == 0 {
		s.VolumeFraction = 0.1
	}
	if s.MassFraction != 0 {
		m, err := s.Material()
		if err != nil {
			return fail("matrix", err.Error())
		}
		if m.Density <= 0 {
			return fail("massFraction", fmt.Sprintf("mass fractions need a support matrix with a density, %s has none", m.Name))
		}
	}

	if _, err := s.Depolarisation(); err != nil {
		return fail("direction", err.Error())
	}

	for key := range s.Sigma.Modes {
		if i, err := strconv.Atoi(key); err != nil || i < 0 {
			return fail("sigma.modes", fmt.Sprintf("mode index %q is not a non-negative integer", key))
		}
	}

	for symbol := range s.Masses.Overrides {
		if _, err := crystal.AtomicNumber(symbol); err != nil {
			return fail("masses.overrides", err.Error())
		}
	}

	return nil
}

// cueError converts a CUE error list to a LoadError, keeping the
// first reported position and field path.
func cueError(code string, err error) *LoadError {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}
	first := errs[0]
	e := &LoadError{Code: code, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	if path := first.Path(); len(path) > 0 {
		e.Field = strings.Join(path, ".")
	}
	return e
}
