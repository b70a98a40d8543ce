package calc

// RefVars lists the dataset cross-reference variables in reporting
// order. A positive value names a dataset index, 0 means none, and a
// negative value counts back from the referring dataset's position in
// execution order.
var RefVars = []string{"getwfk", "getddk", "getden", "getwfq", "get1wf", "get1den"}

// Dependency is one resolved cross-reference: the dataset at Dataset
// consumes output of the dataset at Target through Variable.
type Dependency struct {
	Dataset  int
	Variable string
	Target   int
}

// resolveRef resolves a raw get* value for the dataset at execution
// position pos. It returns the target dataset index and position;
// ok is false when the reference leaves the calculation entirely.
func (c *Calculation) resolveRef(pos int, raw int64) (target, targetPos int, ok bool) {
	switch {
	case raw == 0:
		return 0, -1, false
	case raw > 0:
		target = int(raw)
		targetPos = c.position(target)
		return target, targetPos, targetPos >= 0
	default:
		targetPos = pos + int(raw)
		if targetPos < 0 || targetPos >= len(c.JDtset) {
			return 0, targetPos, false
		}
		return c.JDtset[targetPos], targetPos, true
	}
}

// Dependencies returns every resolvable cross-reference in execution
// order. Unresolvable references are skipped; Validate reports those.
func (c *Calculation) Dependencies() []Dependency {
	var out []Dependency
	for pos := range c.Datasets {
		d := &c.Datasets[pos]
		for _, name := range RefVars {
			raw, ok := d.Params.Int(name)
			if !ok || raw == 0 {
				continue
			}
			target, _, ok := c.resolveRef(pos, raw)
			if !ok {
				continue
			}
			out = append(out, Dependency{Dataset: d.Index, Variable: name, Target: target})
		}
	}
	return out
}
