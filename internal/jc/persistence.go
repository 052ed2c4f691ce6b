package jc

import (
	"context"
	"encoding/json"
	"fmt"
)

// Snapshot is a JSON-friendly dump of a site's bag, keyed by emitter name.
// Blocking molecules are never included: a reply slot mid-wait has no
// meaningful serialized form, and a snapshot is a diagnostic/restore tool,
// not a way to rehydrate suspended callers.
//
// Grounded on internal/achem/persistence.go's Snapshot/ValidateSnapshot/
// EncodeSnapshotJSON/DecodeSnapshotJSON, repointed at bag contents instead of
// an Environment's molecule map.
type Snapshot struct {
	Site      string           `json:"site"`
	Molecules map[string][]any `json:"molecules"`
}

// Snapshot captures the site's current non-blocking bag contents.
func (s *ReactionSite) Snapshot() Snapshot {
	s.mu.Lock()
	bagSnap := s.bag.Snapshot()
	s.mu.Unlock()

	out := Snapshot{Site: s.name, Molecules: map[string][]any{}}
	for e, values := range bagSnap {
		payloads := make([]any, 0, len(values))
		for _, v := range values {
			if v.Reply != nil {
				continue
			}
			payloads = append(payloads, v.Payload)
		}
		if len(payloads) > 0 {
			out.Molecules[e.Name()] = payloads
		}
	}
	return out
}

// Restore re-emits every molecule recorded in snap through the matching
// entry of emittersByName, which must map each molecule name used in the
// snapshot to the live, already-bound *Molecule of the same name on this
// site. Every failure (unknown name, emit error) is accumulated rather than
// aborting on the first one, in the style of internal/achem/validation.go.
func (s *ReactionSite) Restore(snap Snapshot, emittersByName map[string]*Molecule) error {
	var verr ValidationError
	for name, payloads := range snap.Molecules {
		e, ok := emittersByName[name]
		if !ok {
			verr.Add(fmt.Sprintf("snapshot references unknown molecule %q", name))
			continue
		}
		for _, p := range payloads {
			if err := s.Emit(context.Background(), e, p); err != nil {
				verr.Add(fmt.Sprintf("restoring %s: %v", name, err))
			}
		}
	}
	if verr.HasIssues() {
		return &verr
	}
	return nil
}

func EncodeSnapshotJSON(snap Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}

func DecodeSnapshotJSON(data []byte) (Snapshot, error) {
	var snap Snapshot
	err := json.Unmarshal(data, &snap)
	return snap, err
}
