package inject

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/junioryono/inject/internal/graph"
)

// Registry holds providers by key. Registering a key more than once keeps
// every provider: Lookup returns the last one registered, LookupAll all of
// them in registration order.
//
// A registry is frozen when its first root scope is created. A frozen
// registry rejects registrations and serves reads without locking.
type Registry struct {
	mu        sync.RWMutex
	providers map[TypeKey][]*Provider
	keys      []TypeKey
	count     int
	frozen    atomic.Bool

	strict bool

	// plans memoizes plans built from the registry alone, once frozen.
	plans sync.Map
}

var _ graph.Source[*Provider] = (*Registry)(nil)

// NewRegistry creates a registry. It is empty unless an OnInit callback
// registers providers.
func NewRegistry(opts ...RegistryOption) *Registry {
	options := &registryOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyRegistry(options)
		}
	}

	r := &Registry{
		providers: make(map[TypeKey][]*Provider),
		strict:    options.strict,
	}

	for _, fn := range options.onInit {
		fn(r)
	}

	return r
}

// Register adds providers. Either all of them are registered or none.
func (r *Registry) Register(providers ...*Provider) error {
	for _, p := range providers {
		if p == nil {
			return &RegistrationError{Cause: ErrProviderNil}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return &RegistrationError{Key: firstKey(providers), Cause: ErrRegistryFrozen}
	}

	for _, p := range providers {
		if _, ok := r.providers[p.key]; !ok {
			r.keys = append(r.keys, p.key)
		}
		r.providers[p.key] = append(r.providers[p.key], p)
		r.count++
	}

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(providers ...*Provider) {
	if err := r.Register(providers...); err != nil {
		panic(err)
	}
}

func firstKey(providers []*Provider) TypeKey {
	if len(providers) == 0 {
		return TypeKey{}
	}
	return providers[0].key
}

// Providers returns the providers registered under the single-value form of
// key, in registration order. The returned slice must not be modified.
func (r *Registry) Providers(key TypeKey) []*Provider {
	key = key.Base()

	if r.frozen.Load() {
		return r.providers[key]
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := r.providers[key]
	return providers[:len(providers):len(providers)]
}

// Lookup returns the provider for key. When several providers are registered
// the last one wins, unless the registry is strict.
func (r *Registry) Lookup(key TypeKey) (*Provider, error) {
	p, _, err := graph.Lookup(key, []graph.Source[*Provider]{r}, r.planOptions())
	return p, err
}

// LookupAll returns every provider registered for key, in registration order.
func (r *Registry) LookupAll(key TypeKey) []*Provider {
	providers := r.Providers(key)
	out := make([]*Provider, len(providers))
	copy(out, providers)
	return out
}

// Contains reports whether any provider is registered for key.
func (r *Registry) Contains(key TypeKey) bool {
	return len(r.Providers(key)) > 0
}

// Keys returns the registered keys in first-registration order.
func (r *Registry) Keys() []TypeKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]TypeKey, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Freeze stops further registration.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen.Store(true)
}

// Frozen reports whether the registry is frozen.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Describe writes the dependency tree of key.
func (r *Registry) Describe(w io.Writer, key TypeKey) error {
	plan, err := r.plan(key)
	if err != nil {
		return err
	}
	return plan.WriteText(w)
}

// DescribeDOT writes the dependency graph of key in Graphviz DOT format.
func (r *Registry) DescribeDOT(w io.Writer, key TypeKey) error {
	plan, err := r.plan(key)
	if err != nil {
		return err
	}
	return plan.WriteDOT(w)
}

func (r *Registry) planOptions() graph.Options {
	return graph.Options{Strict: r.strict}
}

// plan builds the plan for key from the registry alone. Plans are memoized
// once the registry is frozen.
func (r *Registry) plan(key TypeKey) (*graph.Plan[*Provider], error) {
	frozen := r.frozen.Load()
	if frozen {
		if cached, ok := r.plans.Load(key); ok {
			return cached.(*graph.Plan[*Provider]), nil
		}
	}

	plan, err := graph.Build(key, []graph.Source[*Provider]{r}, r.planOptions())
	if err != nil {
		return nil, err
	}

	if frozen {
		r.plans.Store(key, plan)
	}

	return plan, nil
}
