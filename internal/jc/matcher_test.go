package jc

import "testing"

func TestMatchGreedySimple(t *testing.T) {
	a := NewMolecule("a")
	b := NewMolecule("b")
	info := NewReactionInfo("a+b",
		[]InputMoleculeInfo{
			{Emitter: a, Pattern: Wildcard()},
			{Emitter: b, Pattern: Wildcard()},
		},
		nil,
		GuardPresence{Kind: GuardAllTrivial},
	)

	bag := NewMolBag()
	va := &MolValue{Emitter: a, Payload: 1}
	bag.Add(a, va)

	if _, ok := Match(info, bag); ok {
		t.Fatalf("Match() succeeded with b missing from the bag")
	}

	vb := &MolValue{Emitter: b, Payload: 2}
	bag.Add(b, vb)

	assignment, ok := Match(info, bag)
	if !ok {
		t.Fatalf("Match() failed once both inputs are present")
	}
	if assignment[0] != va || assignment[1] != vb {
		t.Fatalf("Match() assignment = %v, want [va, vb]", assignment)
	}
}

func TestMatchGreedySkipsNonAdmittedValue(t *testing.T) {
	a := NewMolecule("a")
	info := NewReactionInfo("a-positive",
		[]InputMoleculeInfo{
			{Emitter: a, Pattern: SimpleVarGuarded(func(v any) bool { return v.(int) > 0 })},
		},
		nil,
		GuardPresence{Kind: GuardAbsent},
	)

	bag := NewMolBag()
	bad := &MolValue{Emitter: a, Payload: -1}
	good := &MolValue{Emitter: a, Payload: 1}
	bag.Add(a, bad)
	bag.Add(a, good)

	assignment, ok := Match(info, bag)
	if !ok {
		t.Fatalf("Match() failed even though a positive instance is present")
	}
	if assignment[0] != good {
		t.Fatalf("Match() picked %v, want the positive instance", assignment[0].Payload)
	}
}

func TestMatchBacktrackCrossGuard(t *testing.T) {
	a := NewMolecule("a")
	c := NewMolecule("c")
	info := NewReactionInfo("a+c-sum-positive",
		[]InputMoleculeInfo{
			{Emitter: a, Pattern: SimpleVar()},
			{Emitter: c, Pattern: SimpleVar()},
		},
		nil,
		GuardPresence{
			Kind: GuardPresent,
			CrossGuards: []CrossGuard{
				{Indices: []int{0, 1}, Condition: func(vals []any) bool {
					return vals[0].(int)+vals[1].(int) > 10
				}},
			},
		},
	)

	bag := NewMolBag()
	aSmall := &MolValue{Emitter: a, Payload: 1}
	aBig := &MolValue{Emitter: a, Payload: 9}
	cVal := &MolValue{Emitter: c, Payload: 2}
	bag.Add(a, aSmall)
	bag.Add(a, aBig)
	bag.Add(c, cVal)

	assignment, ok := Match(info, bag)
	if !ok {
		t.Fatalf("Match() failed even though a satisfying combination exists")
	}
	if assignment[0] != aBig {
		t.Fatalf("Match() picked a=%v, want the instance satisfying the cross-guard", assignment[0].Payload)
	}
}

func TestMatchBacktrackNoSatisfyingCombination(t *testing.T) {
	a := NewMolecule("a")
	c := NewMolecule("c")
	info := NewReactionInfo("a+c-sum-positive",
		[]InputMoleculeInfo{
			{Emitter: a, Pattern: SimpleVar()},
			{Emitter: c, Pattern: SimpleVar()},
		},
		nil,
		GuardPresence{
			Kind: GuardPresent,
			CrossGuards: []CrossGuard{
				{Indices: []int{0, 1}, Condition: func(vals []any) bool {
					return vals[0].(int)+vals[1].(int) > 100
				}},
			},
		},
	)

	bag := NewMolBag()
	bag.Add(a, &MolValue{Emitter: a, Payload: 1})
	bag.Add(c, &MolValue{Emitter: c, Payload: 2})

	if _, ok := Match(info, bag); ok {
		t.Fatalf("Match() succeeded despite no combination satisfying the cross-guard")
	}
}

func TestMatchRepeatedEmitterNeedsDistinctInstances(t *testing.T) {
	a := NewMolecule("a")
	info := NewReactionInfo("a+a",
		[]InputMoleculeInfo{
			{Emitter: a, Pattern: SimpleVarGuarded(func(v any) bool { return v.(int) > 0 })},
			{Emitter: a, Pattern: SimpleVarGuarded(func(v any) bool { return v.(int) < 0 })},
		},
		nil,
		GuardPresence{Kind: GuardAbsent},
	)

	bag := NewMolBag()
	pos := &MolValue{Emitter: a, Payload: 1}
	bag.Add(a, pos)

	if _, ok := Match(info, bag); ok {
		t.Fatalf("Match() succeeded with only one instance available for two distinct input positions")
	}

	neg := &MolValue{Emitter: a, Payload: -1}
	bag.Add(a, neg)

	assignment, ok := Match(info, bag)
	if !ok {
		t.Fatalf("Match() failed once a second, negative instance is present")
	}
	if assignment[0] == assignment[1] {
		t.Fatalf("Match() assigned the same instance to both positions")
	}
}
