package join

import "github.com/winitzki/chymyst-go/internal/jc"

// Any matches any value of T with no restriction and binds nothing.
func Any[T any]() jc.InputPattern { return jc.Wildcard() }

// Val binds the payload to a variable with no further restriction.
func Val[T any]() jc.InputPattern { return jc.SimpleVar() }

// ValWhere binds the payload, admitting it only when guard(value) is true.
func ValWhere[T any](guard func(T) bool) jc.InputPattern {
	return jc.SimpleVarGuarded(func(v any) bool { return guard(v.(T)) })
}

// Eq admits only values equal to want.
func Eq[T comparable](want T) jc.InputPattern { return jc.Const(want) }

// Match admits values for which fn returns true, under an arbitrary
// destructuring condition rather than a single equality or guard check.
// irrefutable should be true only when fn always returns true.
func Match[T any](fn func(T) bool, irrefutable bool) jc.InputPattern {
	return jc.Other(func(v any) bool { return fn(v.(T)) }, irrefutable)
}

// Produces describes a guaranteed output of value v (known at reaction
// build time, usable by the static shadowing/livelock checks).
func Produces[T any](v T) jc.OutputPattern { return jc.ConstOutput(v) }

// ProducesComputed describes a guaranteed output whose value is only known
// once the reaction body runs (e.g. derived from a bound variable), opaque
// to static analysis.
func ProducesComputed[T any]() jc.OutputPattern { return jc.OtherOutput() }
