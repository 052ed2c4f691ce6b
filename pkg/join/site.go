package join

import (
	"context"
	"time"

	"github.com/winitzki/chymyst-go/internal/jc"
)

// Site is the typed wrapper over *jc.ReactionSite. Construct it with
// reactions produced by ReactionBuilder.Do, then use the package-level
// Emit/EmitBlocking/VolatileValue functions, which recover static typing at
// the call boundary via the Molecule[T]/BlockingMolecule[T,R] handles.
type Site struct {
	s *jc.ReactionSite
}

// NewSite analyzes and constructs a reaction site. pool may be nil, in
// which case a default-sized jc.DispatchPool is created and owned by the
// site (and shut down by Site.Shutdown).
func NewSite(name string, reactions []*jc.Reaction, pool jc.Pool, opts ...jc.SiteOption) (*Site, error) {
	if pool == nil {
		pool = jc.NewDispatchPool(0)
	}
	s, err := jc.NewSite(name, reactions, pool, opts...)
	if err != nil {
		return nil, err
	}
	return &Site{s: s}, nil
}

func (s *Site) Name() string                { return s.s.Name() }
func (s *Site) LogSoup() string             { return s.s.LogSoup() }
func (s *Site) Shutdown()                   { s.s.Shutdown() }
func (s *Site) ErrorLog() *jc.ErrorLog      { return s.s.ErrorLog() }
func (s *Site) Raw() *jc.ReactionSite       { return s.s }
func (s *Site) Snapshot() jc.Snapshot       { return s.s.Snapshot() }

// SetNotificationManager attaches a fan-out sink notified of every reaction
// this site fires.
func (s *Site) SetNotificationManager(m *jc.NotificationManager) {
	s.s.SetNotificationManager(m)
}

// Emit performs a non-blocking emission of value through m.
func Emit[T any](ctx context.Context, site *Site, m *Molecule[T], value T) error {
	return site.s.Emit(ctx, m.m, value)
}

// EmitBlocking emits value through m and blocks until some reaction
// consumes it and replies.
func EmitBlocking[T, R any](ctx context.Context, site *Site, m *BlockingMolecule[T, R], value T) (R, error) {
	v, ok, err := site.s.EmitBlocking(ctx, m.m, value, 0, false)
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

// EmitBlockingTimeout is EmitBlocking with a bound wait. timedOut is true
// exactly when no reaction consumed the value before timeout elapsed, in
// which case the value has already been withdrawn from the site's bag.
func EmitBlockingTimeout[T, R any](ctx context.Context, site *Site, m *BlockingMolecule[T, R], value T, timeout time.Duration) (result R, timedOut bool, err error) {
	v, ok, err := site.s.EmitBlocking(ctx, m.m, value, timeout, true)
	if err != nil {
		var zero R
		return zero, false, err
	}
	if !ok {
		var zero R
		return zero, true, nil
	}
	return v.(R), false, nil
}

// VolatileValue returns the most recently observed value of a static
// molecule without consuming it.
func VolatileValue[T any](site *Site, m *Molecule[T]) (T, error) {
	v, err := site.s.VolatileValue(m.m)
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
