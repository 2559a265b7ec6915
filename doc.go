// Package inject is a scoped dependency-injection runtime for Go.
//
// A Registry holds providers, each describing how to build a value for a
// key. A Scope resolves keys: it plans the dependency graph, builds what is
// missing, caches values by lifetime and releases acquired resources in
// reverse order when it closes.
//
// # Overview
//
//   - Three lifetimes: Singleton, Scoped and Transient
//   - Qualified keys and collections of every provider of a type
//   - Cycle, missing-binding and lifetime checks before anything is built
//   - At-most-once construction of cached values under concurrent resolution
//   - Ordered teardown that keeps going past failing releases
//   - Per-scope overrides that never touch the registry
//   - Auto-wiring of ordinary constructors
//   - zap logging, Prometheus metrics and OpenTelemetry tracing
//
// # Basic Usage
//
//	registry := inject.NewRegistry()
//	registry.MustRegister(
//	    inject.MustProvider(inject.Constructor(inject.Singleton, NewDatabase)),
//	    inject.MustProvider(inject.Constructor(inject.Scoped, NewUserService)),
//	)
//
//	root, err := registry.NewRoot(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer root.Close()
//
//	request, err := root.Enter(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer request.Close()
//
//	users, err := inject.Resolve[*UserService](ctx, request)
//
// # Lifetimes
//
//   - Singleton: built once and cached by the root scope
//   - Scoped: built once per non-root scope; resolving one from the root fails
//   - Transient: never cached, but built at most once per resolution call
//
// A Singleton may not depend on a Scoped provider, directly or through
// Transient providers. The check runs while planning, so it fails even for
// graphs that were never built.
//
// # Providers
//
// Factory, Resource and NewProvider take explicit build functions whose
// dependencies are declared with DependsOn and read with Arg and ArgAll:
//
//	p, err := inject.Resource(inject.Singleton,
//	    func(ctx context.Context, args inject.Args) (*sql.DB, inject.ReleaseFunc, error) {
//	        db, err := sql.Open("postgres", inject.Arg[Config](args, 0).DSN)
//	        if err != nil {
//	            return nil, nil, err
//	        }
//	        return db, func(context.Context) error { return db.Close() }, nil
//	    },
//	    inject.DependsOn(inject.Key[Config]()),
//	)
//
// Constructor derives the dependencies from a function's parameters. Value
// registers an existing instance, and FromScope a value supplied with
// WithValue when a scope is created.
//
// # Resource Release
//
// Resources are released when the scope owning them closes: Singleton
// resources with the root, Scoped ones with the scope that resolved them.
// A Transient is released with the owner of the value depending on it, or
// with the resolving scope when resolved directly. Values implementing Disposable or DisposableWithContext are released
// automatically. Build functions can register extra releases with OnRelease.
//
// # Modules
//
// NewModule groups registrations so related providers can be installed
// together:
//
//	var StorageModule = inject.NewModule("storage",
//	    inject.AddValue(Config{DSN: dsn}),
//	    inject.AddSingleton(NewDatabase),
//	)
//
//	if err := registry.Install(StorageModule); err != nil {
//	    log.Fatal(err)
//	}
//
// # Overrides
//
// Override pushes a provider that shadows the registry for a scope and its
// descendants until it is released:
//
//	o, err := scope.Override(fakeClock)
//	defer o.Release()
//
// Cached values built from an override, directly or through a dependency,
// belong to the overriding scope. Once the override is released they are
// rebuilt from the registry.
//
// # Startup
//
// OnInit callbacks run when a registry is created. Lifespans given with
// WithLifespan run when a root scope opens; the releases they return run
// when it closes, after everything else the root owns.
//
// # Errors
//
// Failures are typed and match sentinel errors with errors.Is:
//
//   - UnresolvedDependencyError (ErrNotFound)
//   - CircularDependencyError (ErrCircularDependency)
//   - ScopeMismatchError (ErrScopeMismatch)
//   - AmbiguousProviderError (ErrAmbiguous), strict registries only
//   - ConstructionError and ConstructorPanicError for failing builds
//   - ReleaseError for failing releases
//   - ErrScopeClosed for operations on closed scopes
package inject
