package join

import (
	"context"

	"github.com/winitzki/chymyst-go/internal/jc"
)

// Input is handed to a reaction body: the matched values, in the order they
// were declared with When, plus the context to pass to any nested Emit
// calls the body makes (required for the static-molecule re-emission
// protocol to recognize the call as coming from a running reaction).
type Input struct {
	Ctx        context.Context
	assignment jc.MatchAssignment
	site       *jc.ReactionSite
}

// Get reads the payload bound at input position idx as T. idx is the
// zero-based position among the When(...) calls used to build the reaction.
func Get[T any](in *Input, idx int) T {
	return in.assignment[idx].Payload.(T)
}

// GetReply returns a typed handle for replying to the blocking molecule
// bound at input position idx.
func GetReply[R any](in *Input, idx int) *ReplyHandle[R] {
	return &ReplyHandle[R]{slot: in.assignment[idx].Reply}
}

// EmitSelf emits value through m on the same site this reaction is running
// on. Reaction bodies should prefer this over the package-level Emit: a
// static (input-less) reaction runs during site construction, before a
// *Site wrapper even exists to call Emit on, and EmitSelf works in both
// cases since it goes straight to the underlying *jc.ReactionSite.
func EmitSelf[T any](in *Input, m *Molecule[T], value T) error {
	return in.site.Emit(in.Ctx, m.m, value)
}

// EmitBlockingSelf is EmitSelf for a blocking molecule.
func EmitBlockingSelf[T, R any](in *Input, m *BlockingMolecule[T, R], value T) (R, error) {
	v, ok, err := in.site.EmitBlocking(in.Ctx, m.m, value, 0, false)
	if err != nil {
		var zero R
		return zero, err
	}
	if !ok {
		var zero R
		return zero, jc.ErrTimedOut
	}
	return v.(R), nil
}

// ReplyHandle is the typed counterpart of a blocking input's reply slot.
type ReplyHandle[R any] struct {
	slot *jc.ReplySlot
}

// Reply performs an unconditional reply, matching jc.ReplySlot.Reply.
func (h *ReplyHandle[R]) Reply(v R) error { return h.slot.Reply(v) }

// ReplyChecked replies and reports whether a waiter was still present.
func (h *ReplyHandle[R]) ReplyChecked(v R) (bool, error) { return h.slot.ReplyChecked(v) }

// ReactionBuilder accumulates a reaction's input patterns, promised outputs,
// and guard before Do() turns it into a *jc.Reaction ready to hand to
// NewSite.
type ReactionBuilder struct {
	name     string
	inputs   []jc.InputMoleculeInfo
	outputs  []jc.OutputMoleculeInfo
	guard    jc.GuardPresence
	guardSet bool
	retry    bool
	pool     jc.Pool
}

func NewReaction(name string) *ReactionBuilder {
	return &ReactionBuilder{name: name}
}

// When declares one input: consume a value from e admitted by pattern.
func (b *ReactionBuilder) When(e emitterHandle, pattern jc.InputPattern) *ReactionBuilder {
	b.inputs = append(b.inputs, jc.InputMoleculeInfo{Emitter: e.raw(), Pattern: pattern})
	return b
}

// Emits declares one promised output. guaranteed should be false only for an
// output the body might skip depending on internal branching — guaranteed
// outputs are what the static-molecule and livelock checks reason about.
func (b *ReactionBuilder) Emits(e emitterHandle, pattern jc.OutputPattern, guaranteed bool) *ReactionBuilder {
	b.outputs = append(b.outputs, jc.OutputMoleculeInfo{Emitter: e.raw(), Pattern: pattern, Guaranteed: guaranteed})
	return b
}

// GuardedBy attaches a static guard (no input dependency) and/or cross
// guards (conditions over two or more bound inputs jointly). Calling this at
// all — even with no cross guards — marks the reaction GuardPresent, opting
// it out of the livelock check and of ever being reported as the shadowing
// (weaker) side, per the spec's guard-asymmetry resolution; it can still be
// the reaction another one shadows.
func (b *ReactionBuilder) GuardedBy(static func() bool, cross ...jc.CrossGuard) *ReactionBuilder {
	b.guard = jc.GuardPresence{Kind: jc.GuardPresent, StaticGuard: static, CrossGuards: cross}
	b.guardSet = true
	return b
}

// Retry marks this reaction for automatic input restoration (rather than
// replying with failure) when its body returns an error.
func (b *ReactionBuilder) Retry() *ReactionBuilder {
	b.retry = true
	return b
}

// OnPool overrides the dispatch pool this reaction's body runs on, instead
// of the site's default.
func (b *ReactionBuilder) OnPool(pool jc.Pool) *ReactionBuilder {
	b.pool = pool
	return b
}

// Do finalizes the reaction with its executable body.
func (b *ReactionBuilder) Do(body func(in *Input) error) *jc.Reaction {
	guard := b.guard
	if !b.guardSet {
		allTrivial := true
		for _, in := range b.inputs {
			if !in.Pattern.IsTrivial() {
				allTrivial = false
				break
			}
		}
		if allTrivial {
			guard = jc.GuardPresence{Kind: jc.GuardAllTrivial}
		} else {
			guard = jc.GuardPresence{Kind: jc.GuardAbsent}
		}
	}

	info := jc.NewReactionInfo(b.name, b.inputs, b.outputs, guard)
	return &jc.Reaction{
		Info:  info,
		Pool:  b.pool,
		Retry: b.retry,
		Body: func(ctx context.Context, assignment jc.MatchAssignment, site *jc.ReactionSite) error {
			return body(&Input{Ctx: ctx, assignment: assignment, site: site})
		},
	}
}
