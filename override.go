package inject

import (
	"github.com/google/uuid"
	"github.com/junioryono/inject/internal/graph"
	"go.uber.org/zap"
)

// Override is a one-provider layer pushed onto a scope. While it is active,
// lookups of its key from that scope and its descendants see the override
// provider instead of the registry's. The registry is never modified.
//
// Values built from an override, directly or through their dependencies, are
// cached apart from those built from the registry and are owned by the
// overriding scope.
type Override struct {
	id       uuid.UUID
	scope    *Scope
	provider *Provider
}

var _ graph.Source[*Provider] = (*Override)(nil)

// Providers returns the override provider when key matches its key.
func (o *Override) Providers(key TypeKey) []*Provider {
	if key.Base() != o.provider.key {
		return nil
	}
	return []*Provider{o.provider}
}

// Provider returns the override provider.
func (o *Override) Provider() *Provider { return o.provider }

// Scope returns the scope the override was pushed onto.
func (o *Override) Scope() *Scope { return o.scope }

// Release pops the override. Overrides must be released in reverse push
// order: releasing one that is not the most recent returns ErrOverrideOrder.
// Releasing an override twice is a no-op.
func (o *Override) Release() error {
	s := o.scope

	s.mu.Lock()
	defer s.mu.Unlock()

	i := len(s.overrides) - 1
	if i < 0 || s.overrides[i] != o {
		for _, active := range s.overrides {
			if active == o {
				return ErrOverrideOrder
			}
		}
		return nil
	}

	s.overrides = s.overrides[:i]
	s.obs.logger.Debug("override released", zap.Stringer("scope", s.id), zap.Stringer("key", o.provider.key))

	return nil
}

// Override pushes p as an override layer on s.
//
// A Singleton override value is owned by s: it is built at most once while
// the override is active and released when s closes.
func (s *Scope) Override(p *Provider) (*Override, error) {
	if p == nil {
		return nil, ErrProviderNil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.IsClosed() {
		return nil, ErrScopeClosed
	}

	o := &Override{id: uuid.New(), scope: s, provider: p}
	s.overrides = append(s.overrides, o)

	s.obs.logger.Debug("override pushed", zap.Stringer("scope", s.id), zap.Stringer("key", p.key))

	return o, nil
}

// PopOverride releases the most recent override pushed onto s.
func (s *Scope) PopOverride() error {
	s.mu.Lock()
	n := len(s.overrides)
	if n == 0 {
		s.mu.Unlock()
		return ErrNoOverride
	}
	top := s.overrides[n-1]
	s.mu.Unlock()

	return top.Release()
}

// sources returns the lookup sources of s, nearest first: the override
// layers of s top-down, then those of each ancestor, then the registry.
// layers[i] is the override behind sources[i], or nil for the registry.
func (s *Scope) sources() (sources []graph.Source[*Provider], layers []*Override) {
	for p := s; p != nil; p = p.parent {
		p.mu.Lock()
		for i := len(p.overrides) - 1; i >= 0; i-- {
			sources = append(sources, p.overrides[i])
			layers = append(layers, p.overrides[i])
		}
		p.mu.Unlock()
	}

	sources = append(sources, s.registry)
	layers = append(layers, nil)

	return sources, layers
}
