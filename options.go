package inject

import (
	"context"
	"reflect"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ProviderOption configures a provider.
type ProviderOption interface {
	applyProvider(*providerOptions)
}

type providerOptions struct {
	qualifier *string
	deps      []TypeKey
	as        reflect.Type
	inspector Inspector
}

type providerOptionFunc func(*providerOptions)

func (f providerOptionFunc) applyProvider(opts *providerOptions) {
	f(opts)
}

func newProviderOptions(opts []ProviderOption) *providerOptions {
	options := &providerOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyProvider(options)
		}
	}
	return options
}

// WithQualifier registers the provider under a qualified key.
func WithQualifier(qualifier string) ProviderOption {
	return providerOptionFunc(func(opts *providerOptions) {
		opts.qualifier = &qualifier
	})
}

// DependsOn declares dependencies. Their values are passed to the build
// function in declaration order.
func DependsOn(keys ...TypeKey) ProviderOption {
	return providerOptionFunc(func(opts *providerOptions) {
		opts.deps = append(opts.deps, keys...)
	})
}

// As registers the provider under the interface I instead of its concrete
// type. Registration fails if the concrete type does not implement I.
func As[I any]() ProviderOption {
	return providerOptionFunc(func(opts *providerOptions) {
		opts.as = typeOf[I]()
	})
}

// WithInspector sets the inspector used by Constructor to derive
// dependencies from the function's parameters.
func WithInspector(inspector Inspector) ProviderOption {
	return providerOptionFunc(func(opts *providerOptions) {
		opts.inspector = inspector
	})
}

// RegistryOption configures a Registry.
type RegistryOption interface {
	applyRegistry(*registryOptions)
}

type registryOptions struct {
	strict bool
	onInit []func(*Registry)
}

type registryOptionFunc func(*registryOptions)

func (f registryOptionFunc) applyRegistry(opts *registryOptions) {
	f(opts)
}

// Strict makes lookups of a single-value key with more than one provider
// fail with AmbiguousProviderError instead of picking the last registered.
// Collection lookups are unaffected.
func Strict() RegistryOption {
	return registryOptionFunc(func(opts *registryOptions) {
		opts.strict = true
	})
}

// OnInit runs fn on the new registry once the other options are applied.
// Several OnInit callbacks run in the order given.
func OnInit(fn func(*Registry)) RegistryOption {
	return registryOptionFunc(func(opts *registryOptions) {
		if fn != nil {
			opts.onInit = append(opts.onInit, fn)
		}
	})
}

// ScopeOption configures a scope. Options other than WithValue, WithValidation
// and WithLifespan are inherited by child scopes unless overridden.
type ScopeOption interface {
	applyScope(*scopeOptions)
}

type scopeOptions struct {
	logger    *zap.Logger
	metrics   *Metrics
	tracer    trace.TracerProvider
	hooks     []Hooks
	values    map[TypeKey]any
	validate  bool
	lifespans []Lifespan
}

// Lifespan runs when a root scope opens. The release it returns is pushed
// onto the root's release stack and runs when the root closes.
type Lifespan func(ctx context.Context, root *Scope) (ReleaseFunc, error)

type scopeOptionFunc func(*scopeOptions)

func (f scopeOptionFunc) applyScope(opts *scopeOptions) {
	f(opts)
}

// WithLogger sets the logger. Scopes log at debug level; release failures are
// logged as warnings. The default logger discards everything.
func WithLogger(logger *zap.Logger) ScopeOption {
	return scopeOptionFunc(func(opts *scopeOptions) {
		if logger != nil {
			opts.logger = logger
		}
	})
}

// WithMetrics records constructions, resolutions, cache hits, release
// failures and open scopes.
func WithMetrics(metrics *Metrics) ScopeOption {
	return scopeOptionFunc(func(opts *scopeOptions) {
		opts.metrics = metrics
	})
}

// WithTracerProvider records a span per resolution and per construction.
func WithTracerProvider(tp trace.TracerProvider) ScopeOption {
	return scopeOptionFunc(func(opts *scopeOptions) {
		if tp != nil {
			opts.tracer = tp
		}
	})
}

// WithHooks adds lifecycle callbacks. Hooks of a child scope run after those
// inherited from its parent.
func WithHooks(hooks Hooks) ScopeOption {
	return scopeOptionFunc(func(opts *scopeOptions) {
		opts.hooks = append(opts.hooks, hooks)
	})
}

// WithValue supplies the value FromScope providers return for key in the new
// scope and its descendants.
func WithValue(key TypeKey, value any) ScopeOption {
	return scopeOptionFunc(func(opts *scopeOptions) {
		if opts.values == nil {
			opts.values = make(map[TypeKey]any)
		}
		opts.values[key] = value
	})
}

// WithValidation makes NewRoot validate every registered key first.
func WithValidation() ScopeOption {
	return scopeOptionFunc(func(opts *scopeOptions) {
		opts.validate = true
	})
}

// WithLifespan adds a callback NewRoot runs once the root scope exists.
// Lifespans run in the order given; their releases run in reverse order
// after every value the root acquired later. A failing lifespan closes the
// root and fails NewRoot. Child scopes ignore this option.
func WithLifespan(fn Lifespan) ScopeOption {
	return scopeOptionFunc(func(opts *scopeOptions) {
		if fn != nil {
			opts.lifespans = append(opts.lifespans, fn)
		}
	})
}

func (o *scopeOptions) inherit() *scopeOptions {
	return &scopeOptions{
		logger:  o.logger,
		metrics: o.metrics,
		tracer:  o.tracer,
		hooks:   o.hooks[:len(o.hooks):len(o.hooks)],
	}
}
