package jc

import (
	"fmt"
	"reflect"
)

// PatternKind enumerates the InputPatternType variants from the spec's data
// model: Wildcard, SimpleVar (with an optional guard), Const, and Other (an
// arbitrary matcher function, flagged refutable or irrefutable).
type PatternKind int

const (
	PatternWildcard PatternKind = iota
	PatternSimpleVar
	PatternConst
	PatternOther
)

// InputPattern describes how one reaction input constrains the values it
// will accept. Grounded on the condition-function-over-payload style of
// internal/achem/matching.go's matchWhere/resolveValueRef, generalized into
// the spec's four-variant set.
type InputPattern struct {
	Kind PatternKind

	// SimpleVar: the bound variable's name, used only for pretty-printing
	// (String, and in turn the literal error/warning text the spec's tests
	// match on). Empty is fine; it prints as "_".
	Name string

	// SimpleVar: Guard is nil for a trivial bind, non-nil for a guarded bind.
	Guard func(any) bool

	// Const: the exact value required (compared with reflect.DeepEqual).
	ConstValue any

	// Other: an arbitrary matcher. Irrefutable marks it as always admitting,
	// which the spec treats the same as a trivial pattern for shadow/livelock
	// purposes.
	Matcher     func(any) bool
	Irrefutable bool
}

// Wildcard matches any value and binds nothing.
func Wildcard() InputPattern { return InputPattern{Kind: PatternWildcard} }

// SimpleVar binds the payload to a name with no further restriction.
func SimpleVar() InputPattern { return InputPattern{Kind: PatternSimpleVar} }

// SimpleVarGuarded binds the payload to a name, admitting it only when guard
// returns true.
func SimpleVarGuarded(guard func(any) bool) InputPattern {
	return InputPattern{Kind: PatternSimpleVar, Guard: guard}
}

// SimpleVarNamed is SimpleVar with a name attached for pretty-printing.
func SimpleVarNamed(name string) InputPattern {
	return InputPattern{Kind: PatternSimpleVar, Name: name}
}

// SimpleVarGuardedNamed is SimpleVarGuarded with a name attached for
// pretty-printing.
func SimpleVarGuardedNamed(name string, guard func(any) bool) InputPattern {
	return InputPattern{Kind: PatternSimpleVar, Name: name, Guard: guard}
}

// Const admits only values deep-equal to v.
func Const(v any) InputPattern { return InputPattern{Kind: PatternConst, ConstValue: v} }

// Other admits values for which matcher returns true. irrefutable should be
// true only when matcher always returns true (e.g. a destructuring pattern
// with no further constraint) — it changes how the static analyzer treats
// this input for shadowing and livelock detection.
func Other(matcher func(any) bool, irrefutable bool) InputPattern {
	return InputPattern{Kind: PatternOther, Matcher: matcher, Irrefutable: irrefutable}
}

// IsTrivial reports whether this pattern admits every value with no
// restriction: a Wildcard, an unguarded SimpleVar, or an irrefutable Other.
func (p InputPattern) IsTrivial() bool {
	switch p.Kind {
	case PatternWildcard:
		return true
	case PatternSimpleVar:
		return p.Guard == nil
	case PatternOther:
		return p.Irrefutable
	default:
		return false
	}
}

// Admits reports whether v satisfies this pattern.
func (p InputPattern) Admits(v any) bool {
	switch p.Kind {
	case PatternWildcard:
		return true
	case PatternSimpleVar:
		if p.Guard == nil {
			return true
		}
		return p.Guard(v)
	case PatternConst:
		return reflect.DeepEqual(v, p.ConstValue)
	case PatternOther:
		return p.Matcher(v)
	default:
		return false
	}
}

// String renders a pattern the way the spec's literal error/warning text
// does: "_" for a wildcard, the bound name (optionally "if ?" for a guard)
// for a SimpleVar, the value for a Const, and "?" for an opaque Other.
func (p InputPattern) String() string {
	switch p.Kind {
	case PatternWildcard:
		return "_"
	case PatternSimpleVar:
		name := p.Name
		if name == "" {
			name = "_"
		}
		if p.Guard != nil {
			return name + " if ?"
		}
		return name
	case PatternConst:
		return fmt.Sprintf("%v", p.ConstValue)
	case PatternOther:
		return "?"
	default:
		return "?"
	}
}

// WeakerThan implements the spec's partial preorder over input patterns: p1
// is weaker than p2 when p1 admits every value p2 could admit, i.e. a
// reaction guarded only by p1 would always be willing to fire wherever one
// guarded by p2 would. Used by the shadowing and livelock checks.
func WeakerThan(p1, p2 InputPattern) bool {
	switch {
	case p1.IsTrivial():
		return true
	case p1.Kind == PatternSimpleVar && p1.Guard != nil && p2.Kind == PatternConst:
		return p1.Guard(p2.ConstValue)
	case p1.Kind == PatternConst && p2.Kind == PatternConst:
		return reflect.DeepEqual(p1.ConstValue, p2.ConstValue)
	case p1.Kind == PatternOther && !p1.Irrefutable && p2.Kind == PatternConst:
		return p1.Matcher(p2.ConstValue)
	default:
		return false
	}
}

// OutputPatternKind enumerates the two output-side variants the spec allows:
// a known Const value, or an Other value whose contents are opaque to static
// analysis (e.g. computed from a bound variable).
type OutputPatternKind int

const (
	OutputConst OutputPatternKind = iota
	OutputOther
)

// OutputPattern describes a molecule a reaction promises to (re-)emit. Only
// Const carries a known value usable by the livelock/shadowing checks; Other
// is treated conservatively (its value is unknown until the reaction runs).
type OutputPattern struct {
	Kind  OutputPatternKind
	Value any
}

func ConstOutput(v any) OutputPattern { return OutputPattern{Kind: OutputConst, Value: v} }
func OtherOutput() OutputPattern      { return OutputPattern{Kind: OutputOther} }

// String renders an output's value the way the spec's literal text does: the
// value for a Const, empty for an Other (its value is unknown until the
// reaction runs, so "a()" rather than "a(<something>)").
func (p OutputPattern) String() string {
	if p.Kind == OutputConst {
		return fmt.Sprintf("%v", p.Value)
	}
	return ""
}

// CrossGuard is a condition over two or more bound input variables jointly,
// identified by their position in the reaction's Inputs slice.
type CrossGuard struct {
	Indices   []int
	Condition func(vals []any) bool
}

// GuardKind classifies a reaction's overall guard shape.
type GuardKind int

const (
	// GuardAllTrivial: every input pattern is trivial and there is no
	// static or cross guard.
	GuardAllTrivial GuardKind = iota
	// GuardAbsent: at least one input pattern is non-trivial (a guarded
	// SimpleVar, a Const, or a refutable Other), but there is no separate
	// static or cross guard beyond the per-pattern ones.
	GuardAbsent
	// GuardPresent: the reaction additionally carries a static guard
	// and/or one or more cross guards.
	GuardPresent
)

// GuardPresence records a reaction's guard shape, matching the spec's
// GuardPresenceFlag.
type GuardPresence struct {
	Kind        GuardKind
	StaticGuard func() bool
	CrossGuards []CrossGuard
}
