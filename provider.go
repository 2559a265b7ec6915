package inject

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/junioryono/inject/internal/reflection"
)

// Args holds the resolved dependencies of a provider, one entry per declared
// dependency in declaration order. A collection dependency is a []any.
type Args []any

// BuildFunc builds a value from its resolved dependencies. A non-nil
// ReleaseFunc is registered for teardown even when an error is returned.
type BuildFunc func(ctx context.Context, args Args) (any, ReleaseFunc, error)

type providerKind int

const (
	kindFactory providerKind = iota
	kindValue
	kindScopeValue
)

func (k providerKind) String() string {
	switch k {
	case kindFactory:
		return "factory"
	case kindValue:
		return "value"
	case kindScopeValue:
		return "scope value"
	default:
		return fmt.Sprintf("providerKind(%d)", int(k))
	}
}

// Provider describes how to build a value for a key. Providers are immutable
// once created.
type Provider struct {
	id       uuid.UUID
	key      TypeKey
	lifetime Lifetime
	deps     []TypeKey
	build    BuildFunc
	kind     providerKind
}

// ID returns the provider's unique identity. Cached values are keyed by it.
func (p *Provider) ID() uuid.UUID { return p.id }

// Key returns the key the provider is registered under.
func (p *Provider) Key() TypeKey { return p.key }

// Lifetime returns the provider's lifetime.
func (p *Provider) Lifetime() Lifetime { return p.lifetime }

// Dependencies returns the keys the provider depends on. The returned slice
// must not be modified.
func (p *Provider) Dependencies() []TypeKey { return p.deps }

func (p *Provider) String() string {
	return fmt.Sprintf("%s (%s %s)", p.key, p.lifetime, p.kind)
}

// NewProvider creates a provider from a build function.
func NewProvider(key TypeKey, lifetime Lifetime, deps []TypeKey, build BuildFunc, opts ...ProviderOption) (*Provider, error) {
	if build == nil {
		return nil, &RegistrationError{Key: key, Cause: ErrBuildFuncNil}
	}

	options := newProviderOptions(opts)
	return newProvider(key, nil, lifetime, append(deps[:len(deps):len(deps)], options.deps...), build, kindFactory, options)
}

func newProvider(key TypeKey, impl reflect.Type, l Lifetime, deps []TypeKey, build BuildFunc, kind providerKind, options *providerOptions) (*Provider, error) {
	if options.as != nil {
		if impl != nil && !impl.AssignableTo(options.as) {
			return nil, &RegistrationError{Key: key, Cause: &TypeMismatchError{
				Key:      KeyOf(options.as),
				Expected: options.as,
				Actual:   impl,
				Context:  "interface implementation",
			}}
		}
		key.Type = options.as
	}

	if options.qualifier != nil {
		key.Qualifier = *options.qualifier
	}

	if key.IsZero() || key.Collection {
		return nil, &RegistrationError{Key: key, Cause: ErrInvalidKey}
	}

	if !l.IsValid() {
		return nil, &RegistrationError{Key: key, Cause: &LifetimeError{Value: l}}
	}

	for _, dep := range deps {
		if dep.IsZero() {
			return nil, &RegistrationError{Key: key, Cause: fmt.Errorf("dependency: %w", ErrInvalidKey)}
		}
	}

	return &Provider{
		id:       uuid.New(),
		key:      key,
		lifetime: l,
		deps:     deps,
		build:    build,
		kind:     kind,
	}, nil
}

// Factory creates a provider for T from a build function. Dependencies are
// declared with DependsOn and read with Arg and ArgAll.
//
// A value implementing Disposable or DisposableWithContext is released
// automatically when its owning scope closes.
func Factory[T any](lifetime Lifetime, fn func(ctx context.Context, args Args) (T, error), opts ...ProviderOption) (*Provider, error) {
	if fn == nil {
		return nil, &RegistrationError{Key: Key[T](), Cause: ErrBuildFuncNil}
	}

	options := newProviderOptions(opts)
	build := func(ctx context.Context, args Args) (any, ReleaseFunc, error) {
		v, err := fn(ctx, args)
		return v, nil, err
	}

	return newProvider(Key[T](), typeOf[T](), lifetime, options.deps, build, kindFactory, options)
}

// Resource creates a provider for T whose build function also returns the
// function that releases it.
func Resource[T any](lifetime Lifetime, fn func(ctx context.Context, args Args) (T, ReleaseFunc, error), opts ...ProviderOption) (*Provider, error) {
	if fn == nil {
		return nil, &RegistrationError{Key: Key[T](), Cause: ErrBuildFuncNil}
	}

	options := newProviderOptions(opts)
	build := func(ctx context.Context, args Args) (any, ReleaseFunc, error) {
		return fn(ctx, args)
	}

	return newProvider(Key[T](), typeOf[T](), lifetime, options.deps, build, kindFactory, options)
}

// Value creates a Singleton provider returning v. The value is never released
// by the container.
func Value[T any](v T, opts ...ProviderOption) (*Provider, error) {
	options := newProviderOptions(opts)
	if len(options.deps) > 0 {
		return nil, &RegistrationError{Key: Key[T](), Cause: fmt.Errorf("value providers cannot have dependencies")}
	}

	build := func(context.Context, Args) (any, ReleaseFunc, error) {
		return v, nil, nil
	}

	return newProvider(Key[T](), typeOf[T](), Singleton, nil, build, kindValue, options)
}

// FromScope creates a provider for a value supplied with WithValue when a
// scope is created. The nearest scope holding a value for the key wins.
func FromScope[T any](lifetime Lifetime, opts ...ProviderOption) (*Provider, error) {
	options := newProviderOptions(opts)
	if len(options.deps) > 0 {
		return nil, &RegistrationError{Key: Key[T](), Cause: fmt.Errorf("scope values cannot have dependencies")}
	}

	var key TypeKey
	build := func(ctx context.Context, _ Args) (any, ReleaseFunc, error) {
		s, ok := FromContext(ctx)
		if !ok {
			return nil, nil, ErrScopeValueMissing
		}

		v, ok := s.value(key)
		if !ok {
			return nil, nil, ErrScopeValueMissing
		}

		return v, nil, nil
	}

	p, err := newProvider(Key[T](), typeOf[T](), lifetime, nil, build, kindScopeValue, options)
	if err != nil {
		return nil, err
	}
	key = p.key

	return p, nil
}

// Constructor creates a provider from an ordinary Go function. Each parameter
// becomes a dependency; context.Context parameters receive the build context.
// Supported signatures return the value, optionally followed by a
// func(context.Context) error release function, optionally followed by an error:
//
//	func(db *sql.DB, log *zap.Logger) *UserStore
//	func(cfg Config) (*sql.DB, error)
//	func(ctx context.Context, db *sql.DB) (*Tx, func(context.Context) error, error)
func Constructor(lifetime Lifetime, fn any, opts ...ProviderOption) (*Provider, error) {
	options := newProviderOptions(opts)

	info, err := defaultAnalyzer.Analyze(fn)
	if err != nil {
		return nil, &RegistrationError{Cause: err}
	}

	if len(info.Results) == 0 || len(info.Results) > 2 {
		return nil, &RegistrationError{Cause: fmt.Errorf("%s must return a value, an optional release function and an optional error", info.Type)}
	}

	hasRelease := len(info.Results) == 2
	if hasRelease && !info.Results[1].ConvertibleTo(releaseFuncType) {
		return nil, &RegistrationError{Cause: fmt.Errorf("%s: second result must be func(context.Context) error", info.Type)}
	}

	inspector := options.inspector
	if inspector == nil {
		inspector = ReflectInspector{}
	}

	params, err := inspector.Inspect(fn)
	if err != nil {
		return nil, &RegistrationError{Key: KeyOf(info.Results[0]), Cause: err}
	}
	if len(params) != len(info.Params) {
		return nil, &RegistrationError{
			Key:   KeyOf(info.Results[0]),
			Cause: fmt.Errorf("inspector returned %d parameters for %s, want %d", len(params), info.Type, len(info.Params)),
		}
	}

	deps := dependencyKeys(params)
	deps = append(deps, options.deps...)

	build := func(ctx context.Context, args Args) (any, ReleaseFunc, error) {
		out, err := info.Call(callArgs(ctx, params, args))
		if len(out) == 0 {
			return nil, nil, err
		}

		var release ReleaseFunc
		if hasRelease {
			if rv := reflect.ValueOf(out[1]); rv.IsValid() && !rv.IsNil() {
				release = rv.Convert(releaseFuncType).Interface().(ReleaseFunc)
			}
		}

		return out[0], release, err
	}

	return newProvider(KeyOf(info.Results[0]), info.Results[0], lifetime, deps, build, kindFactory, options)
}

var (
	defaultAnalyzer = reflection.New()
	releaseFuncType = reflect.TypeOf(ReleaseFunc(nil))
	contextType     = typeOf[context.Context]()
)

// MustProvider panics if err is non-nil. It is intended for package-level
// provider declarations.
func MustProvider(p *Provider, err error) *Provider {
	if err != nil {
		panic(err)
	}
	return p
}

// Arg returns dependency i as a T. A nil dependency yields the zero value.
// It panics if i is out of range or the value is not a T.
func Arg[T any](args Args, i int) T {
	if i < 0 || i >= len(args) {
		panic(fmt.Errorf("dependency index %d out of range [0, %d)", i, len(args)))
	}

	return as[T](args[i], Key[T](), "dependency")
}

// ArgAll returns collection dependency i as a []T.
func ArgAll[T any](args Args, i int) []T {
	if i < 0 || i >= len(args) {
		panic(fmt.Errorf("dependency index %d out of range [0, %d)", i, len(args)))
	}

	items, ok := args[i].([]any)
	if !ok && args[i] != nil {
		panic(&TypeMismatchError{
			Key:      Key[T]().All(),
			Expected: reflect.TypeOf([]any(nil)),
			Actual:   reflect.TypeOf(args[i]),
			Context:  "collection dependency",
		})
	}

	out := make([]T, len(items))
	for j, item := range items {
		out[j] = as[T](item, Key[T](), "collection element")
	}
	return out
}

func as[T any](v any, key TypeKey, what string) T {
	var zero T
	if v == nil {
		return zero
	}

	t, ok := v.(T)
	if !ok {
		panic(&TypeMismatchError{
			Key:      key,
			Expected: typeOf[T](),
			Actual:   reflect.TypeOf(v),
			Context:  what,
		})
	}
	return t
}
