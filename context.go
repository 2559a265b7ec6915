package inject

import (
	"context"
)

type scopeContextKey struct{}

type buildContextKey struct{}

// WithScope returns a copy of ctx carrying s.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, s)
}

// FromContext returns the scope carried by ctx. Build functions receive a
// context carrying the scope the value is being resolved from.
func FromContext(ctx context.Context) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return s, ok && s != nil
}

// MustFromContext is like FromContext but panics when ctx carries no scope.
func MustFromContext(ctx context.Context) *Scope {
	s, ok := FromContext(ctx)
	if !ok {
		panic("inject: no scope in context")
	}
	return s
}

// build identifies the provider being built and where its releases go.
type build struct {
	name  string
	owner *Scope
}

// OnRelease registers fn to run when the value being built is released.
// It must be called from a build function with the context it received.
// Registered functions run after the build's own ReleaseFunc, in reverse
// registration order.
func OnRelease(ctx context.Context, fn ReleaseFunc) error {
	b, ok := ctx.Value(buildContextKey{}).(*build)
	if !ok {
		return ErrNotBuilding
	}
	return b.owner.pushRelease(ctx, b.name, fn)
}
