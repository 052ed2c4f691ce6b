package jc

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// InputMoleculeInfo is one entry of a reaction's static input descriptor:
// which emitter, at which position, under which pattern.
type InputMoleculeInfo struct {
	Emitter *Molecule
	Pattern InputPattern
}

// OutputMoleculeInfo is one entry of a reaction's static output descriptor.
// Guaranteed marks an output the reaction always emits once it fires
// (regardless of any internal branching in the body); a non-guaranteed
// output is conditional and excluded from ShrunkOutputs.
type OutputMoleculeInfo struct {
	Emitter    *Molecule
	Pattern    OutputPattern
	Guaranteed bool
}

// ReactionInfo is the static descriptor of a reaction: its declared inputs,
// outputs, and guard shape, plus the derived fields the matcher and analyzer
// need (most-specific-first ordering, cross-conditional positions, and a
// content-addressed sha1 used to detect duplicate/identical reaction
// declarations). It does not record which inputs are static molecules; the
// site tracks that on each *Molecule.
//
// Grounded on the Reaction interface shape of internal/achem/reaction.go and
// the field-validation style of internal/achem/validation.go.
type ReactionInfo struct {
	Name          string
	Inputs        []InputMoleculeInfo
	Outputs       []OutputMoleculeInfo
	ShrunkOutputs []OutputMoleculeInfo
	Guard         GuardPresence
	Sha1          string

	inputsSorted      []int
	crossConditionals map[int]bool
}

// NewReactionInfo builds a descriptor and computes its derived fields. The
// guard's Kind should already reflect whether a static/cross guard was
// supplied; per-pattern guards (SimpleVarGuarded, Const, refutable Other) do
// not by themselves promote a reaction to GuardPresent.
func NewReactionInfo(name string, inputs []InputMoleculeInfo, outputs []OutputMoleculeInfo, guard GuardPresence) *ReactionInfo {
	info := &ReactionInfo{
		Name:   name,
		Inputs: inputs,
		Guard:  guard,
	}
	info.Outputs = outputs
	for _, o := range outputs {
		if o.Guaranteed {
			info.ShrunkOutputs = append(info.ShrunkOutputs, o)
		}
	}
	info.inputsSorted = sortBySpecificity(inputs)
	info.crossConditionals = crossConditionalPositions(inputs, guard)
	info.Sha1 = computeSha1(name, inputs, guard)
	return info
}

// specificityRank orders patterns most-constraining first, so the matcher
// tries the inputs most likely to fail fast before the ones that always
// succeed.
func specificityRank(p InputPattern) int {
	switch p.Kind {
	case PatternConst:
		return 0
	case PatternOther:
		if !p.Irrefutable {
			return 1
		}
		return 2
	case PatternSimpleVar:
		if p.Guard != nil {
			return 1
		}
		return 2
	default: // Wildcard
		return 2
	}
}

func sortBySpecificity(inputs []InputMoleculeInfo) []int {
	idx := make([]int, len(inputs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return specificityRank(inputs[idx[a]].Pattern) < specificityRank(inputs[idx[b]].Pattern)
	})
	return idx
}

// crossConditionalPositions is the set of input indices that cannot be
// matched independently of the others: those named by a cross guard, and
// any input sharing an emitter with another non-trivially-patterned input
// of the same emitter (since picking the wrong instance for one forces a
// retry of the other).
func crossConditionalPositions(inputs []InputMoleculeInfo, guard GuardPresence) map[int]bool {
	out := map[int]bool{}
	if guard.Kind == GuardPresent {
		for _, cg := range guard.CrossGuards {
			for _, i := range cg.Indices {
				out[i] = true
			}
		}
	}
	byEmitter := map[*Molecule][]int{}
	for i, in := range inputs {
		byEmitter[in.Emitter] = append(byEmitter[in.Emitter], i)
	}
	for _, positions := range byEmitter {
		if len(positions) < 2 {
			continue
		}
		anyNonTrivial := false
		for _, i := range positions {
			if !inputs[i].Pattern.IsTrivial() {
				anyNonTrivial = true
				break
			}
		}
		if anyNonTrivial {
			for _, i := range positions {
				out[i] = true
			}
		}
	}
	return out
}

func computeSha1(name string, inputs []InputMoleculeInfo, guard GuardPresence) string {
	h := sha1.New()
	fmt.Fprintf(h, "guard=%d;", guard.Kind)
	for _, in := range inputs {
		fmt.Fprintf(h, "%s:%d:%v;", in.Emitter.Name(), in.Pattern.Kind, in.Pattern.ConstValue)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ReactionBody is the executable behavior of a reaction. It receives a
// context carrying the reaction's execution record (so emits made from
// within the body can be recognized as coming from a running reaction, not
// from arbitrary user code) and the matched assignment, in the same order
// as ReactionInfo.Inputs.
type ReactionBody func(ctx context.Context, inputs MatchAssignment, site *ReactionSite) error

// Reaction pairs a static descriptor with its executable body and the pool
// it should run on (nil meaning "use the site's default pool").
type Reaction struct {
	Info  *ReactionInfo
	Body  ReactionBody
	Pool  Pool
	Retry bool
}

func (r *Reaction) isStaticReaction() bool { return len(r.Info.Inputs) == 0 }

// String renders a reaction the way the spec's literal error text does:
// "a(_) + c(x if ?) => c(1) + a()". Used by the livelock and static-emission
// diagnostics, whose exact wording is part of the contract the tests match
// on (spec.md §6).
func (info *ReactionInfo) String() string {
	inputs := make([]string, len(info.Inputs))
	for i, in := range info.Inputs {
		inputs[i] = fmt.Sprintf("%s(%s)", in.Emitter.Name(), in.Pattern)
	}
	outputs := make([]string, len(info.Outputs))
	for i, out := range info.Outputs {
		outputs[i] = fmt.Sprintf("%s(%s)", out.Emitter.Name(), out.Pattern)
	}
	return strings.Join(inputs, " + ") + " => " + strings.Join(outputs, " + ")
}
