package jc

import "testing"

func TestPatternAdmits(t *testing.T) {
	cases := []struct {
		name    string
		pattern InputPattern
		value   any
		want    bool
	}{
		{"wildcard admits anything", Wildcard(), 42, true},
		{"unguarded var admits anything", SimpleVar(), "hi", true},
		{"guarded var admits passing value", SimpleVarGuarded(func(v any) bool { return v.(int) > 0 }), 5, true},
		{"guarded var rejects failing value", SimpleVarGuarded(func(v any) bool { return v.(int) > 0 }), -1, false},
		{"const admits equal value", Const(3), 3, true},
		{"const rejects unequal value", Const(3), 4, false},
		{"other admits per matcher", Other(func(v any) bool { return v.(string) == "ok" }, false), "ok", true},
		{"other rejects per matcher", Other(func(v any) bool { return v.(string) == "ok" }, false), "no", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.pattern.Admits(tc.value); got != tc.want {
				t.Fatalf("Admits(%v) = %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}

func TestPatternIsTrivial(t *testing.T) {
	cases := []struct {
		name    string
		pattern InputPattern
		want    bool
	}{
		{"wildcard", Wildcard(), true},
		{"unguarded var", SimpleVar(), true},
		{"guarded var", SimpleVarGuarded(func(any) bool { return true }), false},
		{"const", Const(1), false},
		{"irrefutable other", Other(func(any) bool { return true }, true), true},
		{"refutable other", Other(func(any) bool { return true }, false), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.pattern.IsTrivial(); got != tc.want {
				t.Fatalf("IsTrivial() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWeakerThan(t *testing.T) {
	positive := SimpleVarGuarded(func(v any) bool { return v.(int) > 0 })

	cases := []struct {
		name string
		p1   InputPattern
		p2   InputPattern
		want bool
	}{
		{"wildcard weaker than anything", Wildcard(), Const(5), true},
		{"unguarded var weaker than anything", SimpleVar(), Const(5), true},
		{"guarded var weaker than admitted const", positive, Const(1), true},
		{"guarded var not weaker than rejected const", positive, Const(-1), false},
		{"equal consts are mutually weaker", Const(5), Const(5), true},
		{"different consts are not weaker", Const(5), Const(6), false},
		{"const not weaker than wildcard", Const(5), Wildcard(), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := WeakerThan(tc.p1, tc.p2); got != tc.want {
				t.Fatalf("WeakerThan() = %v, want %v", got, tc.want)
			}
		})
	}
}
