package jc

import "fmt"

// AnalysisResult separates hard errors (refuse to build the site) from
// warnings (log and continue), mirroring the errors-vs-warnings split in the
// spec's §4.4 check table.
type AnalysisResult struct {
	Errors   []string
	Warnings []string
}

func (r *AnalysisResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *AnalysisResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *AnalysisResult) HasErrors() bool { return len(r.Errors) > 0 }

// Analyze runs every static check from §4.4 over a candidate reaction set
// before a site is allowed to start. The accumulate-everything-then-report
// style is carried over verbatim from internal/achem/validation.go's
// ValidationError{Issues []string}.
func Analyze(reactions []*Reaction) AnalysisResult {
	var result AnalysisResult

	checkIdenticalReactions(reactions, &result)
	checkShadowing(reactions, &result)
	checkLivelock(reactions, &result)
	checkStaticMolecules(reactions, &result)
	checkPossibleDeadlocks(reactions, &result)

	return result
}

// checkPossibleDeadlocks is a heuristic, warning-only pass: it cannot prove
// a deadlock will occur, only that the shape of a reaction makes one
// possible. Input-side: a reaction that blocks on one molecule while also
// emitting any further output can leave a caller waiting behind work queued
// on the same site. Output-side: a reaction that itself makes a nested
// blocking call (a blocking output) followed by further outputs that some
// reaction of the set (itself included) needs jointly with it can deadlock two sites against
// each other.
func checkPossibleDeadlocks(reactions []*Reaction, result *AnalysisResult) {
	for _, r := range reactions {
		blockingInputs := 0
		for _, in := range r.Info.Inputs {
			if in.Emitter.IsBlocking() {
				blockingInputs++
			}
		}
		if blockingInputs > 0 && len(r.Info.Outputs) > 0 {
			result.addWarning("reaction %q consumes a blocking molecule and also emits further output; a slow downstream consumer can leave the blocking caller waiting", r.Info.Name)
		}

		for i, out := range r.Info.Outputs {
			if !out.Emitter.IsBlocking() {
				continue
			}
			for _, later := range r.Info.Outputs[i+1:] {
				if jointlyConsumed(reactions, out.Emitter, later.Emitter) {
					result.addWarning("reaction %q emits blocking molecule %s followed by %s, and another reaction consumes both jointly: a nested blocking call can deadlock", r.Info.Name, out.Emitter.Name(), later.Emitter.Name())
				}
			}
		}
	}
}

func jointlyConsumed(reactions []*Reaction, a, b *Molecule) bool {
	for _, r := range reactions {
		hasA, hasB := false, false
		for _, in := range r.Info.Inputs {
			if in.Emitter == a {
				hasA = true
			}
			if in.Emitter == b {
				hasB = true
			}
		}
		if hasA && hasB {
			return true
		}
	}
	return false
}

func isGuardless(r *Reaction) bool {
	return r.Info.Guard.Kind != GuardPresent
}

// checkIdenticalReactions warns when two reactions share a static
// descriptor (same sha1): almost certainly a copy-paste duplicate.
func checkIdenticalReactions(reactions []*Reaction, result *AnalysisResult) {
	seen := map[string]string{}
	for _, r := range reactions {
		if prior, ok := seen[r.Info.Sha1]; ok {
			result.addWarning("reaction %q is identical to reaction %q", r.Info.Name, prior)
			continue
		}
		seen[r.Info.Sha1] = r.Info.Name
	}
}

// checkShadowing flags a guardless reaction every input of which is
// weaker-than a distinct input of another reaction: the weaker reaction would
// always be willing to fire wherever the stronger one could, starving it.
// Per the spec's open-question resolution (DESIGN.md), a reaction carrying a
// static or cross guard never participates as the weaker side. Static
// (input-less) reactions and pairs reported as identical are skipped.
func checkShadowing(reactions []*Reaction, result *AnalysisResult) {
	for i, a := range reactions {
		if !isGuardless(a) || a.isStaticReaction() {
			continue
		}
		for j, b := range reactions {
			if i == j || a.Info.Sha1 == b.Info.Sha1 {
				continue
			}
			if weakerReaction(a, b) {
				result.addError("reaction %q shadows reaction %q: every input of %q is weaker than a corresponding input of %q",
					a.Info.Name, b.Info.Name, a.Info.Name, b.Info.Name)
			}
		}
	}
}

// weakerReaction reports whether a's inputs are, emitter-by-emitter,
// weaker-than an injective assignment of b's inputs of the same emitter
// (i.e. a would fire in every situation where b could).
func weakerReaction(a, b *Reaction) bool {
	aByEmitter := groupByEmitter(a.Info.Inputs)
	bByEmitter := groupByEmitter(b.Info.Inputs)

	for e, aPatterns := range aByEmitter {
		bPatterns, ok := bByEmitter[e]
		if !ok || len(aPatterns) > len(bPatterns) {
			return false
		}
		if !injectiveWeakerAssignment(aPatterns, bPatterns) {
			return false
		}
	}
	return true
}

func groupByEmitter(inputs []InputMoleculeInfo) map[*Molecule][]InputPattern {
	out := map[*Molecule][]InputPattern{}
	for _, in := range inputs {
		out[in.Emitter] = append(out[in.Emitter], in.Pattern)
	}
	return out
}

// injectiveWeakerAssignment reports whether every pattern in aPatterns can
// be matched to a distinct, not-yet-used pattern in bPatterns such that the
// a-side is WeakerThan the b-side. Small brute-force backtracking; reaction
// arities in practice are tiny.
func injectiveWeakerAssignment(aPatterns, bPatterns []InputPattern) bool {
	used := make([]bool, len(bPatterns))
	var rec func(i int) bool
	rec = func(i int) bool {
		if i == len(aPatterns) {
			return true
		}
		for j, bp := range bPatterns {
			if used[j] {
				continue
			}
			if WeakerThan(aPatterns[i], bp) {
				used[j] = true
				if rec(i + 1) {
					return true
				}
				used[j] = false
			}
		}
		return false
	}
	return rec(0)
}

// checkLivelock flags a guardless reaction whose inputs are weaker-than a
// sub-multiset of its own guaranteed outputs: once it fires, it immediately
// re-satisfies its own firing condition, forming an unavoidable self-loop.
//
// Multi-reaction livelock (a cycle across several reactions' inputs and
// outputs) is not detected here — the spec's source material declares the
// check but never implements it either (see DESIGN.md).
func checkLivelock(reactions []*Reaction, result *AnalysisResult) {
	for _, r := range reactions {
		if !isGuardless(r) || r.isStaticReaction() {
			continue
		}
		aPatterns := groupByEmitter(r.Info.Inputs)
		outByEmitter := map[*Molecule][]OutputPattern{}
		for _, o := range r.Info.ShrunkOutputs {
			outByEmitter[o.Emitter] = append(outByEmitter[o.Emitter], o.Pattern)
		}

		reproduces := true
		for e, patterns := range aPatterns {
			outs, ok := outByEmitter[e]
			if !ok || len(patterns) > len(outs) {
				reproduces = false
				break
			}
			if !injectiveWeakerThanOutputs(patterns, outs) {
				reproduces = false
				break
			}
		}
		if reproduces {
			result.addError("Unavoidable livelock: reaction {%s}", r.Info)
			continue
		}

		// Looser heuristic: warn when every input emitter also appears
		// among the reaction's outputs, even without a confirmed
		// value-level match (e.g. an Other output whose value is opaque).
		possible := len(aPatterns) > 0
		for e := range aPatterns {
			if _, ok := outByEmitterAny(r.Info.Outputs, e); !ok {
				possible = false
				break
			}
		}
		if possible {
			result.addWarning("reaction %q may livelock: every input molecule it consumes is also among its outputs", r.Info.Name)
		}
	}
}

func outByEmitterAny(outputs []OutputMoleculeInfo, e *Molecule) (OutputMoleculeInfo, bool) {
	for _, o := range outputs {
		if o.Emitter == e {
			return o, true
		}
	}
	return OutputMoleculeInfo{}, false
}

func injectiveWeakerThanOutputs(patterns []InputPattern, outs []OutputPattern) bool {
	used := make([]bool, len(outs))
	var rec func(i int) bool
	rec = func(i int) bool {
		if i == len(patterns) {
			return true
		}
		for j, o := range outs {
			if used[j] {
				continue
			}
			// A trivial input pattern admits any value, including one an
			// opaque (Other) output might produce, so it is always
			// reproduced regardless of the output's kind.
			admits := patterns[i].IsTrivial() || (o.Kind == OutputConst && patterns[i].Admits(o.Value))
			if !admits {
				continue
			}
			used[j] = true
			if rec(i + 1) {
				return true
			}
			used[j] = false
		}
		return false
	}
	return rec(0)
}

// checkStaticMolecules enforces the static-molecule discipline: a static
// molecule (one seeded by a guardless, input-less reaction) must be consumed
// by at least one other reaction, never consumed more than once per
// reaction, and every reaction that consumes it must also declare it among
// its guaranteed outputs — and a static reaction itself must carry no
// guard, and a blocking molecule may never be declared static.
func checkStaticMolecules(reactions []*Reaction, result *AnalysisResult) {
	statics := map[*Molecule]bool{}
	for _, r := range reactions {
		if !r.isStaticReaction() {
			continue
		}
		if r.Info.Guard.Kind == GuardPresent {
			result.addError("static reaction %q must not carry a guard", r.Info.Name)
		}
		for _, o := range r.Info.Outputs {
			if !o.Guaranteed {
				continue
			}
			statics[o.Emitter] = true
			if o.Emitter.IsBlocking() {
				result.addError("blocking molecule %s cannot be declared static", o.Emitter.Name())
			}
		}
	}

	for e := range statics {
		consumedAnywhere := false
		for _, r := range reactions {
			if r.isStaticReaction() {
				continue
			}
			count := 0
			for _, in := range r.Info.Inputs {
				if in.Emitter == e {
					count++
				}
			}
			if count == 0 {
				continue
			}
			consumedAnywhere = true
			if count > 1 {
				result.addError("reaction %q consumes static molecule %s more than once", r.Info.Name, e.Name())
			}
			emitted := false
			for _, o := range r.Info.Outputs {
				if o.Emitter == e && o.Guaranteed {
					emitted = true
					break
				}
			}
			if !emitted {
				result.addError("reaction %q consumes static molecule %s but never re-emits it", r.Info.Name, e.Name())
			}
		}
		if !consumedAnywhere {
			result.addError("static molecule %s is never consumed by any reaction", e.Name())
		}
	}

	for _, r := range reactions {
		if r.isStaticReaction() {
			continue
		}
		for _, o := range r.Info.Outputs {
			if !statics[o.Emitter] {
				continue
			}
			consumed := false
			for _, in := range r.Info.Inputs {
				if in.Emitter == o.Emitter {
					consumed = true
					break
				}
			}
			if !consumed {
				result.addError("reaction %q emits static molecule %s without consuming it", r.Info.Name, o.Emitter.Name())
			}
		}
	}
}
