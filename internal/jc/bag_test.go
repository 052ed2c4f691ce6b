package jc

import "testing"

func TestMolBagAddCountRemove(t *testing.T) {
	e := NewMolecule("a")
	bag := NewMolBag()

	if bag.HasAny(e) {
		t.Fatalf("expected empty bag to have no instances of %s", e.Name())
	}

	v1 := &MolValue{Emitter: e, Payload: 1}
	v2 := &MolValue{Emitter: e, Payload: 2}
	bag.Add(e, v1)
	bag.Add(e, v2)

	if got := bag.Count(e); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}

	if !bag.Remove(e, v1) {
		t.Fatalf("Remove(v1) reported not found")
	}
	if got := bag.Count(e); got != 1 {
		t.Fatalf("Count() after remove = %d, want 1", got)
	}
	if bag.Remove(e, v1) {
		t.Fatalf("Remove(v1) twice should report not found")
	}

	values := bag.ValuesOf(e)
	if len(values) != 1 || values[0] != v2 {
		t.Fatalf("ValuesOf() = %v, want [v2]", values)
	}
}

func TestMolBagDistinguishesEqualPayloads(t *testing.T) {
	e := NewMolecule("a")
	bag := NewMolBag()

	v1 := &MolValue{Emitter: e, Payload: "x"}
	v2 := &MolValue{Emitter: e, Payload: "x"}
	bag.Add(e, v1)
	bag.Add(e, v2)

	if got := bag.Count(e); got != 2 {
		t.Fatalf("Count() = %d, want 2 (distinct instances with equal payloads)", got)
	}
	if !bag.Remove(e, v2) {
		t.Fatalf("Remove(v2) reported not found")
	}
	if got := bag.Count(e); got != 1 {
		t.Fatalf("Count() after removing one instance = %d, want 1", got)
	}
}

func TestMolBagSnapshotIsDefensiveCopy(t *testing.T) {
	e := NewMolecule("a")
	bag := NewMolBag()
	bag.Add(e, &MolValue{Emitter: e, Payload: 1})

	snap := bag.Snapshot()
	bag.Add(e, &MolValue{Emitter: e, Payload: 2})

	if len(snap[e]) != 1 {
		t.Fatalf("Snapshot() mutated by later Add: len = %d, want 1", len(snap[e]))
	}
}
