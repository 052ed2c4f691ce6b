package jc

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestPool() Pool { return NewDispatchPool(4) }

// TestCounterScenario mirrors the spec's Counter scenario: a static counter
// molecule consumed and re-emitted by an increment reaction, observable
// through VolatileValue without blocking.
func TestCounterScenario(t *testing.T) {
	counter := NewMolecule("counter")
	incr := NewMolecule("incr")

	seed := &Reaction{
		Info: NewReactionInfo("seed-counter", nil,
			[]OutputMoleculeInfo{{Emitter: counter, Pattern: ConstOutput(0), Guaranteed: true}},
			GuardPresence{Kind: GuardAllTrivial}),
		Body: func(ctx context.Context, _ MatchAssignment, site *ReactionSite) error {
			return site.Emit(ctx, counter, 0)
		},
	}
	increment := &Reaction{
		Info: NewReactionInfo("increment",
			[]InputMoleculeInfo{
				{Emitter: incr, Pattern: Wildcard()},
				{Emitter: counter, Pattern: SimpleVar()},
			},
			[]OutputMoleculeInfo{{Emitter: counter, Pattern: OtherOutput(), Guaranteed: true}},
			GuardPresence{Kind: GuardAbsent}),
		Body: func(ctx context.Context, in MatchAssignment, site *ReactionSite) error {
			n := in[1].Payload.(int)
			return site.Emit(ctx, counter, n+1)
		},
	}

	site, err := NewSite("counter", []*Reaction{seed, increment}, newTestPool())
	if err != nil {
		t.Fatalf("NewSite() = %v, want nil", err)
	}
	defer site.Shutdown()

	for i := 0; i < 5; i++ {
		if err := site.Emit(context.Background(), incr, nil); err != nil {
			t.Fatalf("Emit(incr) = %v, want nil", err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if v, err := site.VolatileValue(counter); err == nil && v.(int) == 5 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("counter did not reach 5 within the deadline")
}

// TestSingleAccessVariableScenario mirrors the spec's blocking get/set
// scenario: a blocking "get" reaction replies with the current value.
func TestSingleAccessVariableScenario(t *testing.T) {
	value := NewMolecule("value")
	get := NewBlockingMolecule("get")

	seed := &Reaction{
		Info: NewReactionInfo("seed-value", nil,
			[]OutputMoleculeInfo{{Emitter: value, Pattern: ConstOutput("initial"), Guaranteed: true}},
			GuardPresence{Kind: GuardAllTrivial}),
		Body: func(ctx context.Context, _ MatchAssignment, site *ReactionSite) error {
			return site.Emit(ctx, value, "initial")
		},
	}
	reader := &Reaction{
		Info: NewReactionInfo("read-value",
			[]InputMoleculeInfo{
				{Emitter: get, Pattern: Wildcard()},
				{Emitter: value, Pattern: SimpleVar()},
			},
			[]OutputMoleculeInfo{{Emitter: value, Pattern: OtherOutput(), Guaranteed: true}},
			GuardPresence{Kind: GuardAbsent}),
		Body: func(ctx context.Context, in MatchAssignment, site *ReactionSite) error {
			current := in[1].Payload.(string)
			if err := site.Emit(ctx, value, current); err != nil {
				return err
			}
			return in[0].Reply.Reply(current)
		},
	}

	site, err := NewSite("single-access", []*Reaction{seed, reader}, newTestPool())
	if err != nil {
		t.Fatalf("NewSite() = %v, want nil", err)
	}
	defer site.Shutdown()

	got, ok, err := site.EmitBlocking(context.Background(), get, nil, 0, false)
	if err != nil || !ok {
		t.Fatalf("EmitBlocking() = (%v, %v, %v), want (initial, true, nil)", got, ok, err)
	}
	if got != "initial" {
		t.Fatalf("EmitBlocking() = %v, want %q", got, "initial")
	}
}

// TestBlockingTimeoutRemovesMolecule mirrors the spec's scenario 6: a
// blocking emission with no matching reaction times out and withdraws its
// molecule from the bag, rather than leaving it to be matched later.
func TestBlockingTimeoutRemovesMolecule(t *testing.T) {
	request := NewBlockingMolecule("request")
	never := NewMolecule("never-fires")

	r := &Reaction{
		Info: NewReactionInfo("never",
			[]InputMoleculeInfo{
				{Emitter: request, Pattern: Wildcard()},
				{Emitter: never, Pattern: Wildcard()},
			},
			nil,
			GuardPresence{Kind: GuardAllTrivial}),
		Body: func(ctx context.Context, in MatchAssignment, site *ReactionSite) error {
			return in[0].Reply.Reply("too late")
		},
	}

	site, err := NewSite("timeout-site", []*Reaction{r}, newTestPool())
	if err != nil {
		t.Fatalf("NewSite() = %v, want nil", err)
	}
	defer site.Shutdown()

	_, ok, err := site.EmitBlocking(context.Background(), request, nil, 20*time.Millisecond, true)
	if err != nil {
		t.Fatalf("EmitBlocking() err = %v, want nil", err)
	}
	if ok {
		t.Fatalf("EmitBlocking() ok = true, want false (no partner ever arrives)")
	}
	if site.bag.Count(request) != 0 {
		t.Fatalf("timed-out molecule should be withdrawn from the bag, found %d instances", site.bag.Count(request))
	}
}

func TestStaticProtocolViolationFromUserCode(t *testing.T) {
	counter := NewMolecule("counter")
	incr := NewMolecule("incr")

	seed := &Reaction{
		Info: NewReactionInfo("seed-counter", nil,
			[]OutputMoleculeInfo{{Emitter: counter, Pattern: ConstOutput(0), Guaranteed: true}},
			GuardPresence{Kind: GuardAllTrivial}),
		Body: func(ctx context.Context, _ MatchAssignment, site *ReactionSite) error {
			return site.Emit(ctx, counter, 0)
		},
	}
	noop := &Reaction{
		Info: NewReactionInfo("noop",
			[]InputMoleculeInfo{
				{Emitter: incr, Pattern: Wildcard()},
				{Emitter: counter, Pattern: SimpleVar()},
			},
			[]OutputMoleculeInfo{{Emitter: counter, Pattern: OtherOutput(), Guaranteed: true}},
			GuardPresence{Kind: GuardAbsent}),
		Body: func(ctx context.Context, in MatchAssignment, site *ReactionSite) error {
			return site.Emit(ctx, counter, in[1].Payload)
		},
	}

	site, err := NewSite("protocol", []*Reaction{seed, noop}, newTestPool())
	if err != nil {
		t.Fatalf("NewSite() = %v, want nil", err)
	}
	defer site.Shutdown()

	err = site.Emit(context.Background(), counter, 99)
	if err == nil {
		t.Fatalf("Emit() of a static molecule from user code should fail")
	}
	if !errors.Is(err, ErrStaticProtocolViolation) {
		t.Fatalf("Emit() err = %v, want ErrStaticProtocolViolation", err)
	}
	wantMsg := "In Site{protocol}: Refusing to emit static molecule counter(99) because this thread does not run a chemical reaction"
	if err.Error() != wantMsg {
		t.Fatalf("Emit() err = %q, want %q", err.Error(), wantMsg)
	}
}

// TestStaticMoleculeNotReemittedIsLoggedAtRuntime covers the runtime half of
// the static-molecule discipline: the analyzer can only see that a reaction
// *declares* a guaranteed output re-emitting the static molecule it
// consumes (checkStaticMolecules); it cannot see that a body's code path
// actually calls Emit. A body that skips the re-emission must still surface
// as a protocol violation in the site's error log once it "succeeds".
func TestStaticMoleculeNotReemittedIsLoggedAtRuntime(t *testing.T) {
	flag := NewMolecule("flag")
	trigger := NewMolecule("trigger")

	seed := &Reaction{
		Info: NewReactionInfo("seed-flag", nil,
			[]OutputMoleculeInfo{{Emitter: flag, Pattern: ConstOutput("set"), Guaranteed: true}},
			GuardPresence{Kind: GuardAllTrivial}),
		Body: func(ctx context.Context, _ MatchAssignment, site *ReactionSite) error {
			return site.Emit(ctx, flag, "set")
		},
	}
	buggy := &Reaction{
		Info: NewReactionInfo("buggy",
			[]InputMoleculeInfo{
				{Emitter: trigger, Pattern: Wildcard()},
				{Emitter: flag, Pattern: SimpleVar()},
			},
			[]OutputMoleculeInfo{{Emitter: flag, Pattern: OtherOutput(), Guaranteed: true}},
			GuardPresence{Kind: GuardAbsent}),
		Body: func(ctx context.Context, in MatchAssignment, site *ReactionSite) error {
			// Consumes flag but has a path that forgets to re-emit it.
			return nil
		},
	}

	site, err := NewSite("reemit", []*Reaction{seed, buggy}, newTestPool())
	if err != nil {
		t.Fatalf("NewSite() = %v, want nil", err)
	}
	defer site.Shutdown()

	if err := site.Emit(context.Background(), trigger, struct{}{}); err != nil {
		t.Fatalf("Emit(trigger) = %v, want nil", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		for _, entry := range site.ErrorLog().All() {
			if entry.Message == "In Site{reemit}: static molecule protocol violation: reaction \"buggy\" consumed static molecule flag but finished without re-emitting it" {
				return
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected a logged violation for the un-reemitted static molecule, got: %v", site.ErrorLog().All())
}
