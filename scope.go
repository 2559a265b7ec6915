package inject

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/junioryono/inject/internal/lifetime"
	"go.uber.org/zap"
)

// Scope is a resolution context. The root scope owns Singleton values; each
// scope entered below it owns its Scoped values. Values a scope owns are
// released in reverse acquisition order when the scope closes.
//
// Scopes are safe for concurrent use.
type Scope struct {
	id       uuid.UUID
	registry *Registry
	parent   *Scope
	root     *Scope
	ctx      context.Context
	options  *scopeOptions
	obs      *observer
	values   map[TypeKey]any

	cache    *instanceCache
	releases lifetime.Stack

	mu        sync.Mutex
	children  []*Scope
	overrides []*Override

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewRoot freezes the registry and creates a root scope. ctx is the scope's
// context; releases run with it detached from its cancellation. Lifespans
// given with WithLifespan run before NewRoot returns.
func (r *Registry) NewRoot(ctx context.Context, opts ...ScopeOption) (*Scope, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	options := &scopeOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyScope(options)
		}
	}

	r.Freeze()

	if options.validate {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	s := newScope(ctx, r, nil, options)
	s.root = s

	for i, fn := range options.lifespans {
		release, err := fn(s.ctx, s)
		if err == nil {
			err = s.pushRelease(s.ctx, "lifespan", release)
		}
		if err != nil {
			s.obs.logger.Warn("lifespan failed", zap.Stringer("scope", s.id), zap.Int("index", i), zap.Error(err))
			return nil, errors.Join(err, s.Close())
		}
	}

	return s, nil
}

func newScope(ctx context.Context, r *Registry, parent *Scope, options *scopeOptions) *Scope {
	s := &Scope{
		id:       uuid.New(),
		registry: r,
		parent:   parent,
		options:  options,
		obs:      newObserver(options),
		values:   options.values,
		cache:    newInstanceCache(),
	}

	if parent != nil {
		s.root = parent.root
	}

	s.ctx = WithScope(ctx, s)
	s.obs.metrics.scopeOpened()
	s.obs.logger.Debug("scope opened", zap.Stringer("scope", s.id), zap.Bool("root", parent == nil))

	return s
}

// Enter creates a child scope. The child sees its parent's overrides and
// scope values, shares its Singletons, and has its own Scoped values.
func (s *Scope) Enter(ctx context.Context, opts ...ScopeOption) (*Scope, error) {
	if ctx == nil {
		ctx = s.ctx
	}

	options := s.options.inherit()
	for _, opt := range opts {
		if opt != nil {
			opt.applyScope(options)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.IsClosed() {
		return nil, ErrScopeClosed
	}

	child := newScope(ctx, s.registry, s, options)
	s.children = append(s.children, child)

	return child, nil
}

// ID returns the scope's unique identifier.
func (s *Scope) ID() uuid.UUID { return s.id }

// Parent returns the parent scope, or nil for the root.
func (s *Scope) Parent() *Scope { return s.parent }

// Root returns the root scope.
func (s *Scope) Root() *Scope { return s.root }

// IsRoot reports whether s is a root scope.
func (s *Scope) IsRoot() bool { return s.parent == nil }

// Registry returns the registry the scope resolves from.
func (s *Scope) Registry() *Registry { return s.registry }

// Context returns the scope's context. It carries the scope.
func (s *Scope) Context() context.Context { return s.ctx }

// IsClosed reports whether s or any of its ancestors has been closed.
func (s *Scope) IsClosed() bool {
	for p := s; p != nil; p = p.parent {
		if p.closed.Load() {
			return true
		}
	}
	return false
}

// Close closes every live child scope, newest first, then releases the
// scope's resources in reverse acquisition order. A failing release does not
// stop the others; all failures are returned as a *ReleaseError. Close is
// idempotent; calls after the first return nil.
func (s *Scope) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.close()
	})
	return err
}

func (s *Scope) close() error {
	s.mu.Lock()
	s.closed.Store(true)
	children := s.children
	s.children = nil
	s.mu.Unlock()

	var errs []error
	for i := len(children) - 1; i >= 0; i-- {
		if err := children[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}

	released := s.releases.Drain(context.WithoutCancel(s.ctx))
	s.obs.released(s, released)
	errs = append(errs, released...)

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	s.obs.metrics.scopeClosed()
	s.obs.logger.Debug("scope closed",
		zap.Stringer("scope", s.id),
		zap.Int("cached", s.cache.len()),
		zap.Int("failures", len(errs)),
	)

	if len(errs) == 0 {
		return nil
	}
	return &ReleaseError{Scope: s.id, Errors: errs}
}

func (s *Scope) removeChild(child *Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = slices.DeleteFunc(s.children, func(c *Scope) bool { return c == child })
}

// pushRelease registers fn on the scope's release stack. When the scope has
// already closed, fn runs immediately and ErrScopeClosed is returned together
// with any error fn returned.
func (s *Scope) pushRelease(ctx context.Context, name string, fn ReleaseFunc) error {
	if fn == nil {
		return nil
	}

	if s.releases.Push(name, fn) {
		return nil
	}

	if err := lifetime.Release(context.WithoutCancel(ctx), name, fn); err != nil {
		s.obs.released(s, []error{err})
		return errors.Join(ErrScopeClosed, err)
	}
	return ErrScopeClosed
}

// value returns the scope value for key from the nearest scope holding one.
func (s *Scope) value(key TypeKey) (any, bool) {
	for p := s; p != nil; p = p.parent {
		if v, ok := p.values[key]; ok {
			return v, true
		}
	}
	return nil, false
}
