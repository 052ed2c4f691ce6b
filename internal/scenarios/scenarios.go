// Package scenarios wires up the join-calculus reference scenarios from the
// specification (counter, single-access variable, readers/writer) behind a
// uniform, JSON-friendly handle so that cmd/jc-server can create and drive
// them by name over HTTP, the way achemdb-server applies a SchemaConfig to
// create an environment by ID.
package scenarios

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/winitzki/chymyst-go/internal/jc"
	"github.com/winitzki/chymyst-go/pkg/join"
)

// Kind names one of the built-in scenarios.
type Kind string

const (
	Counter       Kind = "counter"
	SingleAccess  Kind = "single-access"
	ReadersWriter Kind = "readers-writer"
)

// Handle lets a caller drive a running scenario site purely by molecule name
// and raw JSON payloads, without knowing the Go types behind each molecule.
type Handle interface {
	Name() string
	Kind() Kind
	Emit(ctx context.Context, molecule string, payload json.RawMessage) error
	EmitBlocking(ctx context.Context, molecule string, payload json.RawMessage, timeout time.Duration) (any, error)
	VolatileValue(molecule string) (any, error)
	LogSoup() string
	Shutdown()

	// SetNotificationManager attaches a fan-out sink notified of every
	// reaction this site fires, so a caller can register notifiers (e.g. a
	// WebSocketNotifier) without reaching into the scenario's internals.
	SetNotificationManager(m *jc.NotificationManager)

	// Raw exposes the underlying reaction site so a Manager can register it
	// with a jc.SiteManager alongside the JSON-friendly Handle registry.
	Raw() *jc.ReactionSite
}

// New builds and starts the named site for the given scenario kind.
func New(name string, kind Kind) (Handle, error) {
	switch kind {
	case Counter:
		return newCounter(name)
	case SingleAccess:
		return newSingleAccess(name)
	case ReadersWriter:
		return newReadersWriter(name)
	default:
		return nil, fmt.Errorf("unknown scenario kind %q", kind)
	}
}

func decodeInt(payload json.RawMessage) (int, error) {
	var v int
	if len(payload) == 0 {
		return 0, nil
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return 0, fmt.Errorf("decoding int payload: %w", err)
	}
	return v, nil
}

type counterHandle struct {
	site    *join.Site
	counter *join.Molecule[int]
	incr    *join.Molecule[struct{}]
}

func newCounter(name string) (Handle, error) {
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

	site, err := join.NewSite(name, []*jc.Reaction{seed, increment}, nil)
	if err != nil {
		return nil, fmt.Errorf("building counter site %q: %w", name, err)
	}
	return &counterHandle{site: site, counter: counter, incr: incr}, nil
}

func (h *counterHandle) Name() string { return h.site.Name() }
func (h *counterHandle) Kind() Kind   { return Counter }

func (h *counterHandle) Emit(ctx context.Context, molecule string, payload json.RawMessage) error {
	if molecule != "incr" {
		return fmt.Errorf("counter scenario has no non-blocking molecule %q", molecule)
	}
	return join.Emit(ctx, h.site, h.incr, struct{}{})
}

func (h *counterHandle) EmitBlocking(ctx context.Context, molecule string, payload json.RawMessage, timeout time.Duration) (any, error) {
	return nil, fmt.Errorf("counter scenario has no blocking molecule %q", molecule)
}

func (h *counterHandle) VolatileValue(molecule string) (any, error) {
	if molecule != "counter" {
		return nil, fmt.Errorf("counter scenario has no volatile molecule %q", molecule)
	}
	return join.VolatileValue(h.site, h.counter)
}

func (h *counterHandle) LogSoup() string { return h.site.LogSoup() }
func (h *counterHandle) Shutdown()       { h.site.Shutdown() }
func (h *counterHandle) SetNotificationManager(m *jc.NotificationManager) { h.site.SetNotificationManager(m) }
func (h *counterHandle) Raw() *jc.ReactionSite { return h.site.Raw() }

type singleAccessHandle struct {
	site  *join.Site
	value *join.Molecule[int]
	get   *join.BlockingMolecule[struct{}, int]
	set   *join.Molecule[int]
}

func newSingleAccess(name string) (Handle, error) {
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

	site, err := join.NewSite(name, []*jc.Reaction{seed, getReaction, setReaction}, nil)
	if err != nil {
		return nil, fmt.Errorf("building single-access site %q: %w", name, err)
	}
	return &singleAccessHandle{site: site, value: value, get: get, set: set}, nil
}

func (h *singleAccessHandle) Name() string { return h.site.Name() }
func (h *singleAccessHandle) Kind() Kind   { return SingleAccess }

func (h *singleAccessHandle) Emit(ctx context.Context, molecule string, payload json.RawMessage) error {
	if molecule != "set" {
		return fmt.Errorf("single-access scenario has no non-blocking molecule %q", molecule)
	}
	v, err := decodeInt(payload)
	if err != nil {
		return err
	}
	return join.Emit(ctx, h.site, h.set, v)
}

func (h *singleAccessHandle) EmitBlocking(ctx context.Context, molecule string, payload json.RawMessage, timeout time.Duration) (any, error) {
	if molecule != "get" {
		return nil, fmt.Errorf("single-access scenario has no blocking molecule %q", molecule)
	}
	v, timedOut, err := join.EmitBlockingTimeout[struct{}, int](ctx, h.site, h.get, struct{}{}, timeout)
	if err != nil {
		return nil, err
	}
	if timedOut {
		return nil, jc.ErrTimedOut
	}
	return v, nil
}

func (h *singleAccessHandle) VolatileValue(molecule string) (any, error) {
	if molecule != "value" {
		return nil, fmt.Errorf("single-access scenario has no volatile molecule %q", molecule)
	}
	return join.VolatileValue(h.site, h.value)
}

func (h *singleAccessHandle) LogSoup() string { return h.site.LogSoup() }
func (h *singleAccessHandle) Shutdown()       { h.site.Shutdown() }
func (h *singleAccessHandle) SetNotificationManager(m *jc.NotificationManager) { h.site.SetNotificationManager(m) }
func (h *singleAccessHandle) Raw() *jc.ReactionSite { return h.site.Raw() }

// sharedReaders is the payload of the "shared" molecule: how many readers
// currently hold the lock, and the value they are reading. It only ever
// changes while the site holds the lock in shared-read mode.
type sharedReaders struct {
	Count int
	Value int
}

// readersWriterHandle implements the classic join-calculus readers/writer
// lock: "idle" and "writing" are mutually exclusive with any reader, and
// "shared" admits any number of concurrent readers. Unlike singleAccessHandle
// (single-access-variable, one blocking accessor at a time with no
// concurrent readers), acquire-read never waits behind another read — only
// behind a write — which is the property distinguishing this scenario.
type readersWriterHandle struct {
	site         *join.Site
	idle         *join.Molecule[int]
	shared       *join.Molecule[sharedReaders]
	writing      *join.Molecule[int]
	acquireRead  *join.BlockingMolecule[struct{}, int]
	releaseRead  *join.Molecule[struct{}]
	acquireWrite *join.BlockingMolecule[struct{}, int]
	releaseWrite *join.Molecule[int]
}

func newReadersWriter(name string) (Handle, error) {
	idle := join.NewMolecule[int]("idle")
	shared := join.NewMolecule[sharedReaders]("shared")
	writing := join.NewMolecule[int]("writing")
	acquireRead := join.NewBlockingMolecule[struct{}, int]("acquire-read")
	releaseRead := join.NewMolecule[struct{}]("release-read")
	acquireWrite := join.NewBlockingMolecule[struct{}, int]("acquire-write")
	releaseWrite := join.NewMolecule[int]("release-write")

	// idle carries the current value but is not declared a guaranteed
	// output of this seed reaction: unlike the counter/single-access
	// scenarios' static molecules, idle does not come back every time it is
	// consumed (acquiring the lock replaces it with shared/writing), so it
	// must not be subject to the static-molecule re-emission discipline.
	seed := join.NewReaction("seed-idle").
		Emits(idle, join.ProducesComputed[int](), false).
		Do(func(in *join.Input) error {
			return join.EmitSelf(in, idle, 0)
		})

	acquireReadFromIdle := join.NewReaction("acquire-read-from-idle").
		When(acquireRead, join.Any[struct{}]()).
		When(idle, join.Val[int]()).
		Emits(shared, join.ProducesComputed[sharedReaders](), true).
		Do(func(in *join.Input) error {
			v := join.Get[int](in, 1)
			if err := join.EmitSelf(in, shared, sharedReaders{Count: 1, Value: v}); err != nil {
				return err
			}
			return join.GetReply[int](in, 0).Reply(v)
		})

	acquireReadFromShared := join.NewReaction("acquire-read-from-shared").
		When(acquireRead, join.Any[struct{}]()).
		When(shared, join.Val[sharedReaders]()).
		Emits(shared, join.ProducesComputed[sharedReaders](), true).
		Do(func(in *join.Input) error {
			s := join.Get[sharedReaders](in, 1)
			if err := join.EmitSelf(in, shared, sharedReaders{Count: s.Count + 1, Value: s.Value}); err != nil {
				return err
			}
			return join.GetReply[int](in, 0).Reply(s.Value)
		})

	releaseReadLast := join.NewReaction("release-read-last").
		When(shared, join.ValWhere(func(s sharedReaders) bool { return s.Count == 1 })).
		When(releaseRead, join.Any[struct{}]()).
		Emits(idle, join.ProducesComputed[int](), true).
		Do(func(in *join.Input) error {
			s := join.Get[sharedReaders](in, 0)
			return join.EmitSelf(in, idle, s.Value)
		})

	releaseReadMore := join.NewReaction("release-read-more").
		When(shared, join.ValWhere(func(s sharedReaders) bool { return s.Count > 1 })).
		When(releaseRead, join.Any[struct{}]()).
		Emits(shared, join.ProducesComputed[sharedReaders](), true).
		Do(func(in *join.Input) error {
			s := join.Get[sharedReaders](in, 0)
			return join.EmitSelf(in, shared, sharedReaders{Count: s.Count - 1, Value: s.Value})
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

	reactions := []*jc.Reaction{
		seed,
		acquireReadFromIdle, acquireReadFromShared, releaseReadLast, releaseReadMore,
		acquireWriteReaction, releaseWriteReaction,
	}
	site, err := join.NewSite(name, reactions, nil)
	if err != nil {
		return nil, fmt.Errorf("building readers-writer site %q: %w", name, err)
	}
	return &readersWriterHandle{
		site: site, idle: idle, shared: shared, writing: writing,
		acquireRead: acquireRead, releaseRead: releaseRead,
		acquireWrite: acquireWrite, releaseWrite: releaseWrite,
	}, nil
}

func (h *readersWriterHandle) Name() string { return h.site.Name() }
func (h *readersWriterHandle) Kind() Kind   { return ReadersWriter }

func (h *readersWriterHandle) Emit(ctx context.Context, molecule string, payload json.RawMessage) error {
	switch molecule {
	case "release-read":
		return join.Emit(ctx, h.site, h.releaseRead, struct{}{})
	case "release-write":
		v, err := decodeInt(payload)
		if err != nil {
			return err
		}
		return join.Emit(ctx, h.site, h.releaseWrite, v)
	default:
		return fmt.Errorf("readers-writer scenario has no non-blocking molecule %q", molecule)
	}
}

func (h *readersWriterHandle) EmitBlocking(ctx context.Context, molecule string, payload json.RawMessage, timeout time.Duration) (any, error) {
	var m *join.BlockingMolecule[struct{}, int]
	switch molecule {
	case "acquire-read":
		m = h.acquireRead
	case "acquire-write":
		m = h.acquireWrite
	default:
		return nil, fmt.Errorf("readers-writer scenario has no blocking molecule %q", molecule)
	}
	v, timedOut, err := join.EmitBlockingTimeout[struct{}, int](ctx, h.site, m, struct{}{}, timeout)
	if err != nil {
		return nil, err
	}
	if timedOut {
		return nil, jc.ErrTimedOut
	}
	return v, nil
}

func (h *readersWriterHandle) VolatileValue(molecule string) (any, error) {
	return nil, fmt.Errorf("readers-writer scenario has no volatile molecule %q: its value is guarded by the lock, not published for lock-free reads", molecule)
}

func (h *readersWriterHandle) LogSoup() string { return h.site.LogSoup() }
func (h *readersWriterHandle) Shutdown()       { h.site.Shutdown() }
func (h *readersWriterHandle) SetNotificationManager(m *jc.NotificationManager) { h.site.SetNotificationManager(m) }
func (h *readersWriterHandle) Raw() *jc.ReactionSite { return h.site.Raw() }
