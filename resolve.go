package inject

import (
	"context"
	"errors"
	"reflect"
	"runtime/debug"
	"strings"
	"time"

	"github.com/junioryono/inject/internal/graph"
)

// Resolve returns the value for key, building whatever is missing.
//
// Structural problems (missing providers, cycles, lifetime violations) are
// reported before anything is built. A build failure stops the resolution;
// resources already acquired stay registered with their scopes.
func (s *Scope) Resolve(ctx context.Context, key TypeKey) (any, error) {
	if ctx == nil {
		ctx = s.ctx
	}

	ctx, span := s.obs.startResolve(ctx, key)
	v, err := s.resolve(ctx, key)
	s.obs.endResolve(ctx, span, key, v, err)

	return v, err
}

// ResolveAll returns one value per provider registered for key, in
// registration order. It returns an empty slice when there are none.
func (s *Scope) ResolveAll(ctx context.Context, key TypeKey) ([]any, error) {
	v, err := s.Resolve(ctx, key.All())
	if err != nil {
		return nil, err
	}
	return v.([]any), nil
}

func (s *Scope) resolve(ctx context.Context, key TypeKey) (any, error) {
	values, err := s.resolveKeys(ctx, []TypeKey{key})
	if err != nil {
		return nil, err
	}
	return values[0], nil
}

// resolveKeys resolves several keys as one resolution call: every key is
// planned against the same override snapshot before anything is built, and a
// Transient provider reached from more than one key is built once per owner.
func (s *Scope) resolveKeys(ctx context.Context, keys []TypeKey) ([]any, error) {
	if s.IsClosed() {
		return nil, ErrScopeClosed
	}

	sources, layers := s.sources()

	plans := make([]*graph.Plan[*Provider], len(keys))
	for i, key := range keys {
		plan, err := s.plan(key, sources)
		if err != nil {
			return nil, err
		}

		if s.IsRoot() {
			if j := plan.FirstScoped(); j >= 0 {
				return nil, &ScopeMismatchError{Scoped: plan.Steps[j].Key, Path: plan.PathTo(j)}
			}
		}

		plans[i] = plan
	}

	memo := make(map[memoKey]any)
	values := make([]any, len(keys))
	for i, plan := range plans {
		r := &resolution{scope: s, plan: plan, layers: layers, memo: memo}

		v, err := r.arg(ctx, plan.Root, s)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	return values, nil
}

// Describe returns the dependency tree of key as seen from s, overrides
// included.
func (s *Scope) Describe(key TypeKey) (string, error) {
	sources, _ := s.sources()
	plan, err := s.plan(key, sources)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if err := plan.WriteText(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Scope) plan(key TypeKey, sources []graph.Source[*Provider]) (*graph.Plan[*Provider], error) {
	if len(sources) == 1 {
		return s.registry.plan(key)
	}
	return graph.Build(key, sources, s.registry.planOptions())
}

// resolution executes one plan. layers[i] is the override behind source i of
// the plan, nil for the registry.
type resolution struct {
	scope  *Scope
	plan   *graph.Plan[*Provider]
	layers []*Override
	memo   map[memoKey]any
}

// memoKey identifies a value within one resolution call. Transient values
// are shared only between dependents whose releases go to the same scope.
type memoKey struct {
	provider *Provider
	owner    *Scope
}

// arg resolves a plan argument. Transient values built for it release with
// releaseTo, the owner of the nearest cached dependent.
func (r *resolution) arg(ctx context.Context, a graph.Arg, releaseTo *Scope) (any, error) {
	if !a.Collection {
		return r.value(ctx, a.Steps[0], releaseTo)
	}

	out := make([]any, 0, len(a.Steps))
	for _, i := range a.Steps {
		v, err := r.value(ctx, i, releaseTo)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *resolution) value(ctx context.Context, i int, releaseTo *Scope) (any, error) {
	step := r.plan.Steps[i]
	p := step.Provider

	owner := releaseTo
	if p.lifetime != Transient {
		owner = r.owner(step)
	}

	mk := memoKey{provider: p, owner: owner}
	if v, ok := r.memo[mk]; ok {
		return v, nil
	}

	var (
		v   any
		err error
	)

	if p.lifetime == Transient {
		v, err = r.build(ctx, step, owner)
	} else {
		var hit bool
		v, hit, err = owner.cache.getOrBuild(ctx, r.cacheKey(step), func(bctx context.Context) (any, error) {
			return r.build(bctx, step, owner)
		})
		if hit {
			r.scope.obs.cacheHit(p)
		}
	}

	if err != nil {
		return nil, err
	}

	r.memo[mk] = v

	return v, nil
}

// overridesReached returns the overrides in a step's subgraph, nearest first.
func (r *resolution) overridesReached(step graph.Step[*Provider]) []*Override {
	var out []*Override
	for _, i := range step.Reach {
		if i >= 0 && i < len(r.layers) && r.layers[i] != nil {
			out = append(out, r.layers[i])
		}
	}
	return out
}

// cacheKey identifies a cached step: its provider, plus every override its
// value was built from. Popping one of those overrides changes the key, so a
// stale value is never returned.
func (r *resolution) cacheKey(step graph.Step[*Provider]) string {
	key := step.Provider.id.String()
	for _, o := range r.overridesReached(step) {
		key += "+" + o.id.String()
	}
	return key
}

// owner returns the scope caching a step's value. Scoped values belong to
// the resolving scope. A Singleton belongs to the root, unless it was built
// from an override; then it belongs to the deepest scope that pushed one.
func (r *resolution) owner(step graph.Step[*Provider]) *Scope {
	if step.Provider.lifetime == Scoped {
		return r.scope
	}
	if reached := r.overridesReached(step); len(reached) > 0 {
		return reached[0].scope
	}
	return r.scope.root
}

func (r *resolution) build(ctx context.Context, step graph.Step[*Provider], releaseTo *Scope) (any, error) {
	args := make(Args, len(step.Args))
	for j, a := range step.Args {
		v, err := r.arg(ctx, a, releaseTo)
		if err != nil {
			return nil, err
		}
		args[j] = v
	}

	return r.scope.construct(ctx, step.Provider, releaseTo, args)
}

// construct runs a provider's build function and registers its release with
// releaseTo.
func (s *Scope) construct(ctx context.Context, p *Provider, releaseTo *Scope, args Args) (v any, err error) {
	ctx, span := s.obs.startBuild(ctx, p)
	start := time.Now()
	defer func() {
		s.obs.endBuild(ctx, span, p, v, time.Since(start), err)
	}()

	name := p.key.String()
	bctx := WithScope(ctx, s)
	bctx = context.WithValue(bctx, buildContextKey{}, &build{name: name, owner: releaseTo})

	value, release, buildErr := invokeBuild(bctx, p, args)
	if buildErr == nil && release == nil && p.kind == kindFactory {
		release = releaseFor(value)
	}

	pushErr := releaseTo.pushRelease(bctx, name, release)

	if buildErr == nil && pushErr == nil {
		return value, nil
	}

	var panicErr *ConstructorPanicError
	if errors.As(buildErr, &panicErr) {
		return nil, buildErr
	}

	cause := buildErr
	switch {
	case cause == nil:
		cause = pushErr
	case pushErr != nil:
		cause = errors.Join(buildErr, pushErr)
	}

	return nil, &ConstructionError{Key: p.key, Lifetime: p.lifetime, Cause: cause}
}

func invokeBuild(ctx context.Context, p *Provider, args Args) (v any, release ReleaseFunc, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, release = nil, nil
			err = &ConstructorPanicError{Key: p.key, Panic: r, Stack: debug.Stack()}
		}
	}()

	return p.build(ctx, args)
}

// Resolve resolves T from s.
func Resolve[T any](ctx context.Context, s *Scope) (T, error) {
	return ResolveKey[T](ctx, s, Key[T]())
}

// ResolveNamed resolves T registered under qualifier.
func ResolveNamed[T any](ctx context.Context, s *Scope, qualifier string) (T, error) {
	return ResolveKey[T](ctx, s, Named[T](qualifier))
}

// ResolveKey resolves key and asserts the value is a T.
func ResolveKey[T any](ctx context.Context, s *Scope, key TypeKey) (T, error) {
	var zero T
	if s == nil {
		return zero, ErrScopeClosed
	}

	v, err := s.Resolve(ctx, key)
	if err != nil {
		return zero, err
	}

	return cast[T](key, v)
}

// ResolveAll resolves every provider of T from s.
func ResolveAll[T any](ctx context.Context, s *Scope) ([]T, error) {
	if s == nil {
		return nil, ErrScopeClosed
	}

	key := Key[T]()
	values, err := s.ResolveAll(ctx, key)
	if err != nil {
		return nil, err
	}

	out := make([]T, len(values))
	for i, v := range values {
		if out[i], err = cast[T](key, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](ctx context.Context, s *Scope) T {
	v, err := Resolve[T](ctx, s)
	if err != nil {
		panic(err)
	}
	return v
}

func cast[T any](key TypeKey, v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}

	t, ok := v.(T)
	if !ok {
		return zero, &TypeMismatchError{
			Key:      key,
			Expected: typeOf[T](),
			Actual:   reflect.TypeOf(v),
			Context:  "type assertion",
		}
	}
	return t, nil
}
