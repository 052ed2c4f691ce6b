package jc

// MolValue is one emitted instance of a molecule sitting in a bag: the
// emitter it belongs to, its payload, and — for a blocking emission — the
// reply slot the emitting caller is waiting on. Each MolValue is a distinct
// instance even if two emissions carry equal payloads, so bags and matchers
// identify values by pointer, never by payload equality.
type MolValue struct {
	id      uint64
	Emitter *Molecule
	Payload any
	Reply   *ReplySlot
}

func (v *MolValue) IsBlocking() bool { return v.Reply != nil }
