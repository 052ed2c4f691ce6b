package jc

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type execKey struct{}

// reactionExec is the per-invocation execution record threaded through a
// reaction body's context. It lets Emit distinguish a static-molecule
// re-emission coming from inside a running reaction (allowed, once) from one
// coming from arbitrary user code (a static protocol violation), without any
// goroutine-local-storage hack — idiomatic Go passes this kind of ambient,
// call-scoped state through context.Context.
type reactionExec struct {
	site           *ReactionSite
	reaction       *Reaction
	mu             sync.Mutex
	emittedStatics map[*Molecule]bool
}

func withReactionExec(ctx context.Context, ex *reactionExec) context.Context {
	return context.WithValue(ctx, execKey{}, ex)
}

func reactionExecFrom(ctx context.Context) (*reactionExec, bool) {
	ex, ok := ctx.Value(execKey{}).(*reactionExec)
	return ex, ok
}

// SiteOption configures a ReactionSite at construction time.
type SiteOption func(*ReactionSite)

func WithLogger(l Logger) SiteOption {
	return func(s *ReactionSite) { s.logger = l }
}

func WithErrorLog(log *ErrorLog) SiteOption {
	return func(s *ReactionSite) { s.errorLog = log }
}

// ReactionSite owns one bag and the reaction set that consumes it. All
// scheduling decisions — matching, picking a reaction, removing its inputs
// from the bag — happen under a single mutex; reaction bodies run outside
// that lock, in parallel, on the site's dispatch pool.
//
// Grounded on internal/achem/environment.go's Environment: a mutex-guarded
// map of molecules plus a Step-like scheduling pass, generalized from one
// stochastic tick to continuous event-driven matching. Unlike the teacher,
// which locks directly on Environment, the bag itself (MolBag) carries no
// lock of its own — the site is the sole lock owner, so the matcher can walk
// bag contents as a pure function once handed a reference under lock, per
// the spec's §4.2 split between scheduling and execution.
type ReactionSite struct {
	name string

	mu        sync.Mutex
	bag       *MolBag
	reactions []*Reaction

	dispatch Pool
	logger   Logger
	errorLog *ErrorLog

	outputsChecked bool
	outputsErr     error

	staticMolecules map[*Molecule]bool
	volatileVals    map[*Molecule]*volatileBox

	nextValueID uint64

	notifier *NotificationManager
}

type volatileBox struct {
	mu  sync.Mutex
	set bool
	val any
}

func (b *volatileBox) store(v any) {
	b.mu.Lock()
	b.set = true
	b.val = v
	b.mu.Unlock()
}

func (b *volatileBox) load() (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.val, b.set
}

// NewSite analyzes reactions, refuses to build the site if any error-level
// check fails, logs any warnings, binds every input molecule to this site,
// marks static molecules, and finally runs every static (input-less)
// reaction once, in declaration order, to seed the bag.
func NewSite(name string, reactions []*Reaction, dispatch Pool, opts ...SiteOption) (*ReactionSite, error) {
	s := &ReactionSite{
		name:            name,
		bag:             NewMolBag(),
		reactions:       reactions,
		dispatch:        dispatch,
		logger:          NewNoOpLogger(),
		errorLog:        NewErrorLog(),
		staticMolecules: map[*Molecule]bool{},
		volatileVals:    map[*Molecule]*volatileBox{},
	}
	for _, opt := range opts {
		opt(s)
	}

	result := Analyze(reactions)
	if result.HasErrors() {
		return nil, &ConfigError{Site: s.header(), Issues: result.Errors}
	}
	for _, w := range result.Warnings {
		s.logger.Warnf("In %s: %s", s.header(), w)
	}

	for _, r := range reactions {
		for i, in := range r.Info.Inputs {
			if err := in.Emitter.bind(s, i); err != nil {
				return nil, fmt.Errorf("In %s: %w", s.header(), err)
			}
		}
	}

	for _, r := range reactions {
		if !r.isStaticReaction() {
			continue
		}
		for _, o := range r.Info.Outputs {
			if o.Guaranteed {
				s.staticMolecules[o.Emitter] = true
			}
		}
	}
	for e := range s.staticMolecules {
		e.markStatic()
		s.volatileVals[e] = &volatileBox{}
	}

	for _, r := range reactions {
		if !r.isStaticReaction() {
			continue
		}
		ex := &reactionExec{site: s, reaction: r, emittedStatics: map[*Molecule]bool{}}
		ctx := withReactionExec(context.Background(), ex)
		if err := r.Body(ctx, nil, s); err != nil {
			return nil, fmt.Errorf("In %s: static reaction %q failed: %w", s.header(), r.Info.Name, err)
		}
	}

	return s, nil
}

func (s *ReactionSite) Name() string { return s.name }

func (s *ReactionSite) ErrorLog() *ErrorLog { return s.errorLog }

func (s *ReactionSite) header() string {
	if s.name != "" {
		return fmt.Sprintf("Site{%s}", s.name)
	}
	return "Site{anonymous}"
}

func (s *ReactionSite) nextID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextValueID++
	return s.nextValueID
}

// ensureOutputsBound runs once, on the first emission into this site: every
// molecule named as an output of any reaction must already be bound to some
// site before the site starts accepting input, or a reaction could fire and
// have nowhere to deliver its output.
func (s *ReactionSite) ensureOutputsBound() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outputsChecked {
		return s.outputsErr
	}
	s.outputsChecked = true

	var unbound []string
	seen := map[*Molecule]bool{}
	for _, r := range s.reactions {
		for _, o := range r.Info.Outputs {
			if seen[o.Emitter] {
				continue
			}
			seen[o.Emitter] = true
			if _, bound := o.Emitter.boundSite(); !bound {
				unbound = append(unbound, o.Emitter.Name())
			}
		}
	}
	if len(unbound) > 0 {
		sort.Strings(unbound)
		s.outputsErr = fmt.Errorf("In %s: %w: %s", s.header(), ErrUnboundOutputs, strings.Join(unbound, ", "))
	}
	return s.outputsErr
}

// Emit performs a non-blocking emission of payload through e. ctx should be
// context.Background() for user code, or the context passed into a
// ReactionBody when emitting from within a running reaction.
func (s *ReactionSite) Emit(ctx context.Context, e *Molecule, payload any) error {
	if e.IsBlocking() {
		return fmt.Errorf("In %s: molecule %s is blocking; use EmitBlocking", s.header(), e.Name())
	}
	site, bound := e.boundSite()
	if !bound || site != s {
		return fmt.Errorf("In %s: %w: %s", s.header(), ErrUnboundEmitter, e.Name())
	}

	if e.isStatic() {
		if err := s.checkStaticEmission(ctx, e, payload); err != nil {
			return err
		}
	}

	if err := s.ensureOutputsBound(); err != nil {
		return err
	}

	v := &MolValue{id: s.nextID(), Emitter: e, Payload: payload}

	if e.isStatic() {
		s.volatileVals[e].store(payload)
	}

	s.mu.Lock()
	s.bag.Add(e, v)
	s.mu.Unlock()

	s.schedule()
	return nil
}

func (s *ReactionSite) checkStaticEmission(ctx context.Context, e *Molecule, payload any) error {
	ex, ok := reactionExecFrom(ctx)
	if !ok || ex.site != s {
		return &LiteralError{
			Sentinel: ErrStaticProtocolViolation,
			Text: fmt.Sprintf("In %s: Refusing to emit static molecule %s(%v) because this thread does not run a chemical reaction",
				s.header(), e.Name(), payload),
		}
	}
	ex.mu.Lock()
	defer ex.mu.Unlock()
	if ex.emittedStatics[e] {
		return fmt.Errorf("In %s: %w: reaction %q already emitted static molecule %s once", s.header(), ErrStaticProtocolViolation, ex.reaction.Info.Name, e.Name())
	}
	ex.emittedStatics[e] = true
	return nil
}

// EmitBlocking performs a blocking emission: it suspends until some
// reaction consumes e's value and replies, or until timeout elapses (when
// hasTimeout is true). ok is false exactly when the wait timed out, in
// which case the emitted value has already been removed from the bag if it
// was still unconsumed.
func (s *ReactionSite) EmitBlocking(ctx context.Context, e *Molecule, payload any, timeout time.Duration, hasTimeout bool) (value any, ok bool, err error) {
	if !e.IsBlocking() {
		return nil, false, fmt.Errorf("In %s: molecule %s is not blocking", s.header(), e.Name())
	}
	site, bound := e.boundSite()
	if !bound || site != s {
		return nil, false, fmt.Errorf("In %s: %w: %s", s.header(), ErrUnboundEmitter, e.Name())
	}
	if err := s.ensureOutputsBound(); err != nil {
		return nil, false, err
	}

	slot := newReplySlot()
	v := &MolValue{id: s.nextID(), Emitter: e, Payload: payload, Reply: slot}

	s.mu.Lock()
	s.bag.Add(e, v)
	s.mu.Unlock()

	s.schedule()

	value, ok, err = slot.wait(timeout, hasTimeout)
	if !ok && err == nil {
		s.mu.Lock()
		s.bag.Remove(e, v)
		s.mu.Unlock()
	}
	return value, ok, err
}

// schedule repeatedly looks for a reaction whose inputs are satisfied by the
// current bag contents, removes the chosen molecules, and launches the
// reaction body, until no further reaction can fire. It is the single
// scheduling critical section: every call runs fully serialized under s.mu.
func (s *ReactionSite) schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		r, assignment := s.pickReactionLocked()
		if r == nil {
			return
		}
		for idx, v := range assignment {
			s.bag.Remove(r.Info.Inputs[idx].Emitter, v)
		}
		s.launchLocked(r, assignment)
	}
}

// pickReactionLocked tries reactions in declaration order and returns the
// first that matches. The spec leaves tie-breaking among simultaneously
// satisfiable reactions unspecified; declaration order is a valid choice.
func (s *ReactionSite) pickReactionLocked() (*Reaction, MatchAssignment) {
	for _, r := range s.reactions {
		if r.isStaticReaction() {
			continue
		}
		if assignment, ok := Match(r.Info, s.bag); ok {
			return r, assignment
		}
	}
	return nil, nil
}

func (s *ReactionSite) launchLocked(r *Reaction, assignment MatchAssignment) {
	pool := r.Pool
	if pool == nil {
		pool = s.dispatch
	}
	ex := &reactionExec{site: s, reaction: r, emittedStatics: map[*Molecule]bool{}}
	ctx := withReactionExec(context.Background(), ex)
	pool.Submit(func() {
		s.runReaction(ctx, r, assignment)
	})
}

func (s *ReactionSite) runReaction(ctx context.Context, r *Reaction, assignment MatchAssignment) {
	defer s.schedule()
	defer func() {
		if rec := recover(); rec != nil {
			s.handleBodyFailure(r, assignment, fmt.Errorf("panic: %v", rec))
		}
	}()

	if err := r.Body(ctx, assignment, s); err != nil {
		s.handleBodyFailure(r, assignment, err)
		return
	}
	s.handleBodySuccess(ctx, r, assignment)

	if notifier := s.getNotifier(); notifier != nil {
		notifier.Notify(s, r, assignment)
	}
}

func (s *ReactionSite) getNotifier() *NotificationManager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifier
}

func (s *ReactionSite) handleBodyFailure(r *Reaction, assignment MatchAssignment, cause error) {
	if r.Retry {
		s.mu.Lock()
		for idx, v := range assignment {
			s.bag.Add(r.Info.Inputs[idx].Emitter, v)
		}
		s.mu.Unlock()
		return
	}

	msg := fmt.Sprintf("In %s: reaction %q failed: %v", s.header(), r.Info.Name, cause)
	s.errorLog.Append(msg)
	s.logger.Errorf("%s", msg)
	for _, v := range assignment {
		if v.Reply != nil {
			v.Reply.fail(fmt.Errorf("%s: %w", msg, cause))
		}
	}
}

// handleBodySuccess enforces two protocol invariants a successful body run
// must not violate: it must have replied to every blocking molecule it
// consumed (§4.5), and it must have re-emitted every static molecule it
// consumed at least once (§4.5 step 3; checkStaticEmission at site.go:250
// already enforces the "at most once" half of the same rule, at emit time).
func (s *ReactionSite) handleBodySuccess(ctx context.Context, r *Reaction, assignment MatchAssignment) {
	s.checkStaticReemission(ctx, r, assignment)

	for idx, v := range assignment {
		if v.Reply == nil {
			continue
		}
		if v.Reply.isResolved() {
			continue
		}
		msg := fmt.Sprintf("In %s: %v: reaction %q with inputs %s finished without replying to %s",
			s.header(), ErrNoReply, r.Info.Name, describeAssignment(r.Info, assignment), r.Info.Inputs[idx].Emitter.Name())
		s.errorLog.Append(msg)
		s.logger.Errorf("%s", msg)
		v.Reply.fail(fmt.Errorf("%s", msg))
	}
}

// checkStaticReemission reports a protocol violation for every static
// molecule the reaction consumed but never re-emitted from within its body:
// left unaddressed, the site would stabilize with that static molecule's
// count at 0, breaking the invariant that a static molecule's count stays
// >=1 whenever the site is quiescent.
func (s *ReactionSite) checkStaticReemission(ctx context.Context, r *Reaction, assignment MatchAssignment) {
	ex, ok := reactionExecFrom(ctx)
	if !ok {
		return
	}
	ex.mu.Lock()
	defer ex.mu.Unlock()
	for idx := range assignment {
		e := r.Info.Inputs[idx].Emitter
		if !e.isStatic() || ex.emittedStatics[e] {
			continue
		}
		msg := fmt.Sprintf("In %s: %v: reaction %q consumed static molecule %s but finished without re-emitting it",
			s.header(), ErrStaticProtocolViolation, r.Info.Name, e.Name())
		s.errorLog.Append(msg)
		s.logger.Errorf("%s", msg)
	}
}

func describeAssignment(info *ReactionInfo, assignment MatchAssignment) string {
	parts := make([]string, len(assignment))
	for i, v := range assignment {
		name := "?"
		if i < len(info.Inputs) {
			name = info.Inputs[i].Emitter.Name()
		}
		parts[i] = fmt.Sprintf("%s(%v)", name, v.Payload)
	}
	return strings.Join(parts, ", ")
}

// VolatileValue returns the most recently observed value of a static
// molecule without consuming it. Per the spec's contract, this may briefly
// return the previous value while an update reaction is mid-flight between
// consuming the old instance and re-emitting the new one — that overlap is
// intentional, not a bug: the volatile slot is updated at the moment of
// emission, not at reaction completion.
func (s *ReactionSite) VolatileValue(e *Molecule) (any, error) {
	if !e.isStatic() {
		return nil, fmt.Errorf("In %s: molecule %s is not a static molecule", s.header(), e.Name())
	}
	site, bound := e.boundSite()
	if !bound || site != s {
		return nil, fmt.Errorf("In %s: %w: %s", s.header(), ErrUnboundEmitter, e.Name())
	}
	val, ok := s.volatileVals[e].load()
	if !ok {
		return nil, fmt.Errorf("In %s: no volatile value observed yet for %s", s.header(), e.Name())
	}
	return val, nil
}

// LogSoup renders the current bag contents for diagnostics, in the style of
// Chymyst's log_soup: a header naming the site, followed on the same line by
// the distinct (emitter, payload) pairs, comma-separated, each with " * n"
// appended when more than one copy is present.
func (s *ReactionSite) LogSoup() string {
	s.mu.Lock()
	snap := s.bag.Snapshot()
	s.mu.Unlock()

	var b strings.Builder
	b.WriteString(s.header())
	if len(snap) == 0 {
		b.WriteString(": No molecules")
		return b.String()
	}

	type line struct {
		emitter string
		payload string
		count   int
	}
	counts := map[string]*line{}
	var order []string
	for e, values := range snap {
		for _, v := range values {
			key := fmt.Sprintf("%s(%v)", e.Name(), v.Payload)
			if l, ok := counts[key]; ok {
				l.count++
			} else {
				counts[key] = &line{emitter: e.Name(), payload: fmt.Sprintf("%v", v.Payload), count: 1}
				order = append(order, key)
			}
		}
	}
	sort.Strings(order)

	b.WriteString(": Molecules: ")
	parts := make([]string, 0, len(order))
	for _, key := range order {
		l := counts[key]
		if l.count > 1 {
			parts = append(parts, fmt.Sprintf("%s(%s) * %d", l.emitter, l.payload, l.count))
		} else {
			parts = append(parts, fmt.Sprintf("%s(%s)", l.emitter, l.payload))
		}
	}
	b.WriteString(strings.Join(parts, ", "))
	return b.String()
}

// Shutdown stops accepting new scheduling work from this site's dispatch
// pool. In-flight reactions are allowed to finish.
func (s *ReactionSite) Shutdown() {
	s.dispatch.Shutdown()
}

// SetNotificationManager attaches a fan-out sink that is told about every
// reaction this site fires. Optional; nil (the default) disables telemetry
// entirely.
func (s *ReactionSite) SetNotificationManager(m *NotificationManager) {
	s.mu.Lock()
	s.notifier = m
	s.mu.Unlock()
}
