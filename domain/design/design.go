package design

import (
	"fmt"
	"strings"

	"github.com/axekar/Demodigi/domain/core"
)

// Level is one discrete value a factor can take.
type Level string

// Factor is an independent variable with at least two discrete levels.
// The first declared level is the reference level, against which the
// effects of the remaining levels are estimated.
type Factor struct {
	Name   string
	Levels []Level
}

// NewFactor builds a factor. Validation happens in NewDesign, where the
// factor is seen in context.
func NewFactor(name string, levels ...Level) Factor {
	return Factor{Name: name, Levels: levels}
}

// Reference returns the factor's reference level.
func (f Factor) Reference() Level {
	if len(f.Levels) == 0 {
		return ""
	}
	return f.Levels[0]
}

// Condition is one cell of the factorial design: one level per factor,
// in design declaration order. Conditions are immutable once derived.
type Condition struct {
	levels []Level
	key    string
}

// Level returns the condition's level for the factor at index i.
func (c Condition) Level(i int) Level {
	return c.levels[i]
}

// Levels returns a copy of the condition's level tuple.
func (c Condition) Levels() []Level {
	out := make([]Level, len(c.levels))
	copy(out, c.levels)
	return out
}

// Key returns the stable "f1=l1|f2=l2" identity of the condition.
func (c Condition) Key() string {
	return c.key
}

func (c Condition) String() string {
	return c.key
}

// Design is an ordered collection of factors together with the full
// Cartesian product of their levels. It is a pure value object: once
// constructed it is never mutated.
type Design struct {
	factors    []Factor
	conditions []Condition
	index      map[string]int
}

// NewDesign validates the factors and enumerates every condition. It
// fails with a configuration error if any factor has fewer than two
// levels, a duplicate name, or duplicate levels.
func NewDesign(factors ...Factor) (*Design, error) {
	if len(factors) == 0 {
		return nil, core.NewConfigurationError("design needs at least one factor")
	}
	seen := make(map[string]struct{}, len(factors))
	for _, f := range factors {
		if strings.TrimSpace(f.Name) == "" {
			return nil, core.NewConfigurationError("factor name cannot be empty")
		}
		if _, dup := seen[f.Name]; dup {
			return nil, core.NewConfigurationError("duplicate factor name %q", f.Name)
		}
		seen[f.Name] = struct{}{}
		if len(f.Levels) < 2 {
			return nil, core.NewConfigurationError("factor %q needs at least two levels, has %d", f.Name, len(f.Levels))
		}
		levels := make(map[Level]struct{}, len(f.Levels))
		for _, l := range f.Levels {
			if _, dup := levels[l]; dup {
				return nil, core.NewConfigurationError("factor %q declares level %q twice", f.Name, l)
			}
			levels[l] = struct{}{}
		}
	}

	d := &Design{factors: make([]Factor, len(factors))}
	for i, f := range factors {
		d.factors[i] = Factor{Name: f.Name, Levels: append([]Level(nil), f.Levels...)}
	}
	d.conditions = enumerate(d.factors)
	d.index = make(map[string]int, len(d.conditions))
	for i, c := range d.conditions {
		d.index[c.key] = i
	}
	return d, nil
}

// enumerate walks the Cartesian product in row-major order: the last
// declared factor varies fastest.
func enumerate(factors []Factor) []Condition {
	total := 1
	for _, f := range factors {
		total *= len(f.Levels)
	}
	conditions := make([]Condition, 0, total)
	tuple := make([]Level, len(factors))

	var walk func(i int)
	walk = func(i int) {
		if i == len(factors) {
			levels := append([]Level(nil), tuple...)
			conditions = append(conditions, Condition{
				levels: levels,
				key:    conditionKey(factors, levels),
			})
			return
		}
		for _, l := range factors[i].Levels {
			tuple[i] = l
			walk(i + 1)
		}
	}
	walk(0)
	return conditions
}

func conditionKey(factors []Factor, levels []Level) string {
	var b strings.Builder
	for i, f := range factors {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(string(levels[i]))
	}
	return b.String()
}

// FactorCount returns the number of factors.
func (d *Design) FactorCount() int {
	return len(d.factors)
}

// Factor returns the factor at index i with its levels copied.
func (d *Design) Factor(i int) Factor {
	f := d.factors[i]
	return Factor{Name: f.Name, Levels: append([]Level(nil), f.Levels...)}
}

// Factors returns the design's factors in declaration order.
func (d *Design) Factors() []Factor {
	out := make([]Factor, len(d.factors))
	for i := range d.factors {
		out[i] = d.Factor(i)
	}
	return out
}

// FactorIndex returns the position of the named factor.
func (d *Design) FactorIndex(name string) (int, bool) {
	for i, f := range d.factors {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}

// LevelCount returns the number of levels of the named factor, or zero
// if the factor is unknown.
func (d *Design) LevelCount(name string) int {
	if i, ok := d.FactorIndex(name); ok {
		return len(d.factors[i].Levels)
	}
	return 0
}

// ConditionCount returns the size of the full Cartesian product.
func (d *Design) ConditionCount() int {
	return len(d.conditions)
}

// ConditionAt returns the i-th enumerated condition.
func (d *Design) ConditionAt(i int) Condition {
	return d.conditions[i]
}

// Conditions returns every condition in enumeration order.
func (d *Design) Conditions() []Condition {
	return append([]Condition(nil), d.conditions...)
}

// Contains reports whether the condition belongs to this design.
func (d *Design) Contains(c Condition) bool {
	if c.key == "" {
		return false
	}
	_, ok := d.index[c.key]
	return ok
}

// Lookup resolves a condition from one level per factor, keyed by
// factor name. A missing or unknown factor, or a level outside the
// factor's domain, is a schema mismatch; this is the same check record
// ingestion relies on.
func (d *Design) Lookup(levels map[string]Level) (Condition, error) {
	if len(levels) != len(d.factors) {
		for name := range levels {
			if _, ok := d.FactorIndex(name); !ok {
				return Condition{}, core.NewSchemaMismatchError("unknown factor %q", name)
			}
		}
		return Condition{}, core.NewSchemaMismatchError("expected %d factor levels, got %d", len(d.factors), len(levels))
	}
	tuple := make([]Level, len(d.factors))
	for i, f := range d.factors {
		l, ok := levels[f.Name]
		if !ok {
			return Condition{}, core.NewSchemaMismatchError("missing level for factor %q", f.Name)
		}
		tuple[i] = l
	}
	key := conditionKey(d.factors, tuple)
	i, ok := d.index[key]
	if !ok {
		for fi, f := range d.factors {
			if !f.hasLevel(tuple[fi]) {
				return Condition{}, core.NewSchemaMismatchError("level %q is outside the domain of factor %q", tuple[fi], f.Name)
			}
		}
		return Condition{}, core.NewSchemaMismatchError("no condition matches %s", key)
	}
	return d.conditions[i], nil
}

func (f Factor) hasLevel(l Level) bool {
	for _, have := range f.Levels {
		if have == l {
			return true
		}
	}
	return false
}

// String gives a terse human summary, e.g. "2x3 design, 6 conditions".
func (d *Design) String() string {
	var b strings.Builder
	for i, f := range d.factors {
		if i > 0 {
			b.WriteByte('x')
		}
		fmt.Fprintf(&b, "%d", len(f.Levels))
	}
	return fmt.Sprintf("%s design, %d conditions", b.String(), len(d.conditions))
}
