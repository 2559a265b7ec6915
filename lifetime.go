package inject

import (
	"github.com/junioryono/inject/internal/lifetime"
)

// Lifetime specifies how long a constructed value is cached.
//
// Lifetime rules:
//   - Singleton values are built once per root scope and shared by every
//     scope entered from it
//   - Scoped values are built once per non-root scope
//   - Transient values are built for every resolution call, at most once per call
//   - A Singleton must not depend, directly or through Transient providers,
//     on a Scoped provider
type Lifetime = lifetime.Lifetime

const (
	Singleton = lifetime.Singleton
	Scoped    = lifetime.Scoped
	Transient = lifetime.Transient
)

// LifetimeError indicates an invalid lifetime value.
type LifetimeError = lifetime.Error

// ReleaseFunc releases a resource. Release functions run in reverse
// acquisition order when the scope owning the resource closes.
type ReleaseFunc = lifetime.ReleaseFunc
