package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/winitzki/chymyst-go/pkg/join"
)

// runCounter mirrors the spec's Counter scenario: a static counter molecule,
// incremented by a stream of non-blocking "incr" emissions.
func runCounter(iterations int) error {
	counter := join.NewMolecule[int]("counter")
	incr := join.NewMolecule[struct{}]("incr")

	seed := join.NewReaction("seed-counter").
		Emits(counter, join.Produces(0), true).
		Do(func(in *join.Input) error {
			return join.EmitSelf(in, counter, 0)
		})

	increment := join.NewReaction("increment").
		When(incr, join.Any[struct{}]()).
		When(counter, join.Val[int]()).
		Emits(counter, join.ProducesComputed[int](), true).
		Do(func(in *join.Input) error {
			n := join.Get[int](in, 1)
			return join.EmitSelf(in, counter, n+1)
		})

	site, err := join.NewSite("counter", reactionsOf(seed, increment), nil)
	if err != nil {
		return fmt.Errorf("building counter site: %w", err)
	}
	defer site.Shutdown()

	ctx := context.Background()
	for i := 0; i < iterations; i++ {
		if err := join.Emit(ctx, site, incr, struct{}{}); err != nil {
			return fmt.Errorf("emitting incr: %w", err)
		}
	}

	waitForSettle(func() bool {
		v, err := join.VolatileValue(site, counter)
		return err == nil && v == iterations
	})

	fmt.Printf("counter scenario: %d increments\n", iterations)
	fmt.Println(site.LogSoup())
	return nil
}

// runSingleAccess mirrors the spec's single-access variable scenario: a
// blocking "get" call always returns the current value, and "set" replaces
// it, with no two accesses ever interleaved since both consume the same
// static molecule.
func runSingleAccess(iterations int) error {
	value := join.NewMolecule[int]("value")
	get := join.NewBlockingMolecule[struct{}, int]("get")
	set := join.NewMolecule[int]("set")

	seed := join.NewReaction("seed-value").
		Emits(value, join.Produces(0), true).
		Do(func(in *join.Input) error {
			return join.EmitSelf(in, value, 0)
		})

	getReaction := join.NewReaction("get").
		When(get, join.Any[struct{}]()).
		When(value, join.Val[int]()).
		Emits(value, join.ProducesComputed[int](), true).
		Do(func(in *join.Input) error {
			current := join.Get[int](in, 1)
			if err := join.EmitSelf(in, value, current); err != nil {
				return err
			}
			return join.GetReply[int](in, 0).Reply(current)
		})

	setReaction := join.NewReaction("set").
		When(set, join.Val[int]()).
		When(value, join.Val[int]()).
		Emits(value, join.ProducesComputed[int](), true).
		Do(func(in *join.Input) error {
			next := join.Get[int](in, 0)
			return join.EmitSelf(in, value, next)
		})

	site, err := join.NewSite("single-access", reactionsOf(seed, getReaction, setReaction), nil)
	if err != nil {
		return fmt.Errorf("building single-access site: %w", err)
	}
	defer site.Shutdown()

	ctx := context.Background()
	var last int
	for i := 0; i < iterations; i++ {
		if err := join.Emit(ctx, site, set, i); err != nil {
			return fmt.Errorf("emitting set: %w", err)
		}
		v, err := join.EmitBlocking[struct{}, int](ctx, site, get, struct{}{})
		if err != nil {
			return fmt.Errorf("emitting get: %w", err)
		}
		last = v
	}

	fmt.Printf("single-access scenario: last observed value %d after %d set/get rounds\n", last, iterations)
	fmt.Println(site.LogSoup())
	return nil
}

// rwShared is the payload of the "shared" molecule in the readers/writer
// lock below: how many readers currently hold it, and the value they read.
type rwShared struct {
	Count int
	Value int
}

// rwEvent is one observed acquire or release, tagged with the actor that
// performed it, so the simulation can check the spec's readers/writer
// properties after the run: acquisitions/releases balance, the writer's
// acquisitions/releases alternate strictly, each named reader's
// acquisitions/releases alternate strictly, and no reader acquisition falls
// between a writer acquisition and its release.
type rwEvent struct {
	actor  string // "writer" or "reader-<n>"
	action string // "acquire" or "release"
}

// runReadersWriter builds a real readers/writer lock (not the
// single-access-variable scenario's one-at-a-time access): any number of
// concurrent acquire-read calls are admitted at once via the "shared"
// molecule, while acquire-write requires exclusive "idle" possession. After
// the run it checks the spec's four properties against the recorded event
// log.
func runReadersWriter(iterations int) error {
	idle := join.NewMolecule[int]("idle")
	shared := join.NewMolecule[rwShared]("shared")
	writing := join.NewMolecule[int]("writing")
	acquireRead := join.NewBlockingMolecule[struct{}, int]("acquire-read")
	releaseRead := join.NewMolecule[struct{}]("release-read")
	acquireWrite := join.NewBlockingMolecule[struct{}, int]("acquire-write")
	releaseWrite := join.NewMolecule[int]("release-write")

	seed := join.NewReaction("seed-idle").
		Emits(idle, join.ProducesComputed[int](), false).
		Do(func(in *join.Input) error {
			return join.EmitSelf(in, idle, 0)
		})

	acquireReadFromIdle := join.NewReaction("acquire-read-from-idle").
		When(acquireRead, join.Any[struct{}]()).
		When(idle, join.Val[int]()).
		Emits(shared, join.ProducesComputed[rwShared](), true).
		Do(func(in *join.Input) error {
			v := join.Get[int](in, 1)
			if err := join.EmitSelf(in, shared, rwShared{Count: 1, Value: v}); err != nil {
				return err
			}
			return join.GetReply[int](in, 0).Reply(v)
		})

	acquireReadFromShared := join.NewReaction("acquire-read-from-shared").
		When(acquireRead, join.Any[struct{}]()).
		When(shared, join.Val[rwShared]()).
		Emits(shared, join.ProducesComputed[rwShared](), true).
		Do(func(in *join.Input) error {
			s := join.Get[rwShared](in, 1)
			if err := join.EmitSelf(in, shared, rwShared{Count: s.Count + 1, Value: s.Value}); err != nil {
				return err
			}
			return join.GetReply[int](in, 0).Reply(s.Value)
		})

	releaseReadLast := join.NewReaction("release-read-last").
		When(shared, join.ValWhere(func(s rwShared) bool { return s.Count == 1 })).
		When(releaseRead, join.Any[struct{}]()).
		Emits(idle, join.ProducesComputed[int](), true).
		Do(func(in *join.Input) error {
			s := join.Get[rwShared](in, 0)
			return join.EmitSelf(in, idle, s.Value)
		})

	releaseReadMore := join.NewReaction("release-read-more").
		When(shared, join.ValWhere(func(s rwShared) bool { return s.Count > 1 })).
		When(releaseRead, join.Any[struct{}]()).
		Emits(shared, join.ProducesComputed[rwShared](), true).
		Do(func(in *join.Input) error {
			s := join.Get[rwShared](in, 0)
			return join.EmitSelf(in, shared, rwShared{Count: s.Count - 1, Value: s.Value})
		})

	acquireWriteReaction := join.NewReaction("acquire-write").
		When(acquireWrite, join.Any[struct{}]()).
		When(idle, join.Val[int]()).
		Emits(writing, join.ProducesComputed[int](), true).
		Do(func(in *join.Input) error {
			v := join.Get[int](in, 1)
			if err := join.EmitSelf(in, writing, v); err != nil {
				return err
			}
			return join.GetReply[int](in, 0).Reply(v)
		})

	releaseWriteReaction := join.NewReaction("release-write").
		When(writing, join.Val[int]()).
		When(releaseWrite, join.Val[int]()).
		Emits(idle, join.ProducesComputed[int](), true).
		Do(func(in *join.Input) error {
			next := join.Get[int](in, 1)
			return join.EmitSelf(in, idle, next)
		})

	site, err := join.NewSite("readers-writer", reactionsOf(
		seed, acquireReadFromIdle, acquireReadFromShared, releaseReadLast, releaseReadMore,
		acquireWriteReaction, releaseWriteReaction), nil)
	if err != nil {
		return fmt.Errorf("building readers-writer site: %w", err)
	}
	defer site.Shutdown()

	ctx := context.Background()
	var mu sync.Mutex
	var log []rwEvent
	record := func(actor, action string) {
		mu.Lock()
		log = append(log, rwEvent{actor: actor, action: action})
		mu.Unlock()
	}

	const readers = 3
	var wg sync.WaitGroup
	wg.Add(readers + 1)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			v, err := join.EmitBlocking[struct{}, int](ctx, site, acquireWrite, struct{}{})
			if err != nil {
				continue
			}
			record("writer", "acquire")
			if err := join.Emit(ctx, site, releaseWrite, v+1); err != nil {
				continue
			}
			record("writer", "release")
		}
	}()
	for r := 0; r < readers; r++ {
		go func(name string) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				if _, err := join.EmitBlocking[struct{}, int](ctx, site, acquireRead, struct{}{}); err != nil {
					continue
				}
				record(name, "acquire")
				if err := join.Emit(ctx, site, releaseRead, struct{}{}); err != nil {
					continue
				}
				record(name, "release")
			}
		}(fmt.Sprintf("reader-%d", r))
	}
	wg.Wait()

	ok := checkReadersWriterProperties(log)
	fmt.Printf("readers-writer scenario: %d iterations, %d readers, properties hold: %v\n", iterations, readers, ok)
	fmt.Println(site.LogSoup())
	return nil
}

// checkReadersWriterProperties verifies the four properties spec.md §8
// requires of the readers/writer scenario against a recorded event log.
func checkReadersWriterProperties(log []rwEvent) bool {
	perActor := map[string][]string{}
	for _, e := range log {
		perActor[e.actor] = append(perActor[e.actor], e.action)
	}
	for actor, actions := range perActor {
		if len(actions)%2 != 0 {
			fmt.Printf("property violated: %s has unbalanced acquire/release count %d\n", actor, len(actions))
			return false
		}
		for i, a := range actions {
			want := "acquire"
			if i%2 == 1 {
				want = "release"
			}
			if a != want {
				fmt.Printf("property violated: %s's event %d is %q, want %q (acquire/release must alternate)\n", actor, i, a, want)
				return false
			}
		}
	}

	inWriterWindow := false
	for _, e := range log {
		if e.actor == "writer" {
			if e.action == "acquire" {
				inWriterWindow = true
			} else {
				inWriterWindow = false
			}
			continue
		}
		if inWriterWindow && e.action == "acquire" {
			fmt.Println("property violated: a reader acquired while the writer held the lock")
			return false
		}
	}
	return true
}

func waitForSettle(done func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if done() {
			return
		}
		time.Sleep(time.Millisecond)
	}
}
