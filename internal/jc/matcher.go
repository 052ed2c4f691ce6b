package jc

// MatchAssignment maps each reaction input position to the MolValue chosen
// for it, in the same order as ReactionInfo.Inputs.
type MatchAssignment []*MolValue

// Match is a pure function: it neither mutates bag nor has side effects. It
// looks for one assignment of bag contents to info's inputs that satisfies
// every pattern and every guard. The caller (ReactionSite.schedule) is
// responsible for removing the chosen values from the bag under its
// scheduling lock once a match is found.
//
// Two strategies are used, matching the spec's §4.2 split: a reaction with
// no cross guards and no repeated-emitter cross-conditional inputs is
// matched with a single left-to-right greedy fold (grounded on the
// snapshot-then-fold-over-candidates shape of internal/achem/environment.go's
// Step loop); anything else falls back to backtracking search, enriched from
// gitrdm-gokando/pkg/minikanren's substitution-threading walk.
func Match(info *ReactionInfo, bag *MolBag) (MatchAssignment, bool) {
	need := map[*Molecule]int{}
	for _, in := range info.Inputs {
		need[in.Emitter]++
	}
	for e, n := range need {
		if bag.Count(e) < n {
			return nil, false
		}
	}

	if needsBacktracking(info) {
		return matchBacktrack(info, bag)
	}
	return matchGreedy(info, bag)
}

func needsBacktracking(info *ReactionInfo) bool {
	if info.Guard.Kind == GuardPresent && len(info.Guard.CrossGuards) > 0 {
		return true
	}
	return len(info.crossConditionals) > 0
}

func matchGreedy(info *ReactionInfo, bag *MolBag) (MatchAssignment, bool) {
	assignment := make(MatchAssignment, len(info.Inputs))
	taken := map[*Molecule]map[*MolValue]bool{}

	for _, idx := range info.inputsSorted {
		in := info.Inputs[idx]
		candidates := bag.ValuesOf(in.Emitter)
		used := taken[in.Emitter]
		found := false
		for _, v := range candidates {
			if used != nil && used[v] {
				continue
			}
			if in.Pattern.Admits(v.Payload) {
				assignment[idx] = v
				if taken[in.Emitter] == nil {
					taken[in.Emitter] = map[*MolValue]bool{}
				}
				taken[in.Emitter][v] = true
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}

	if info.Guard.Kind == GuardPresent && info.Guard.StaticGuard != nil && !info.Guard.StaticGuard() {
		return nil, false
	}
	return assignment, true
}

func matchBacktrack(info *ReactionInfo, bag *MolBag) (MatchAssignment, bool) {
	assignment := make(MatchAssignment, len(info.Inputs))
	avail := map[*Molecule][]*MolValue{}
	for _, in := range info.Inputs {
		if _, ok := avail[in.Emitter]; !ok {
			avail[in.Emitter] = bag.ValuesOf(in.Emitter)
		}
	}

	order := info.inputsSorted
	var rec func(pos int) bool
	rec = func(pos int) bool {
		if pos == len(order) {
			return evalGuards(info, assignment)
		}
		idx := order[pos]
		in := info.Inputs[idx]
		cands := avail[in.Emitter]

		if in.Pattern.IsTrivial() && !info.crossConditionals[idx] {
			if len(cands) == 0 {
				return false
			}
			v := cands[0]
			assignment[idx] = v
			avail[in.Emitter] = cands[1:]
			if rec(pos + 1) {
				return true
			}
			avail[in.Emitter] = cands
			assignment[idx] = nil
			return false
		}

		for i, v := range cands {
			if !in.Pattern.Admits(v.Payload) {
				continue
			}
			assignment[idx] = v
			avail[in.Emitter] = removeAt(cands, i)
			if rec(pos + 1) {
				return true
			}
			avail[in.Emitter] = cands
			assignment[idx] = nil
		}
		return false
	}

	if rec(0) {
		return assignment, true
	}
	return nil, false
}

func evalGuards(info *ReactionInfo, assignment MatchAssignment) bool {
	if info.Guard.Kind != GuardPresent {
		return true
	}
	if info.Guard.StaticGuard != nil && !info.Guard.StaticGuard() {
		return false
	}
	for _, cg := range info.Guard.CrossGuards {
		vals := make([]any, len(cg.Indices))
		for i, idx := range cg.Indices {
			vals[i] = assignment[idx].Payload
		}
		if !cg.Condition(vals) {
			return false
		}
	}
	return true
}

func removeAt(s []*MolValue, i int) []*MolValue {
	out := make([]*MolValue, 0, len(s)-1)
	out = append(out, s[:i]...)
	out = append(out, s[i+1:]...)
	return out
}
