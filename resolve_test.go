package inject_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/junioryono/inject"
	"github.com/junioryono/inject/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Plugin interface {
	Name() string
}

type namedPlugin struct{ name string }

func (p *namedPlugin) Name() string { return p.name }

func pluginProvider(name string) *inject.Provider {
	return inject.MustProvider(inject.Value[Plugin](&namedPlugin{name: name}))
}

func TestResolve_Collections(t *testing.T) {
	ctx := context.Background()

	t.Run("resolve all keeps registration order", func(t *testing.T) {
		t.Parallel()

		r := inject.NewRegistry()
		r.MustRegister(pluginProvider("auth"), pluginProvider("cache"), pluginProvider("metrics"))
		root := newRoot(t, r)

		plugins, err := inject.ResolveAll[Plugin](ctx, root)
		require.NoError(t, err)
		require.Len(t, plugins, 3)
		assert.Equal(t, "auth", plugins[0].Name())
		assert.Equal(t, "cache", plugins[1].Name())
		assert.Equal(t, "metrics", plugins[2].Name())

		last, err := inject.Resolve[Plugin](ctx, root)
		require.NoError(t, err)
		assert.Equal(t, "metrics", last.Name())
	})

	t.Run("empty collection", func(t *testing.T) {
		t.Parallel()

		root := newRoot(t, inject.NewRegistry())

		plugins, err := inject.ResolveAll[Plugin](ctx, root)
		require.NoError(t, err)
		assert.Empty(t, plugins)
	})

	t.Run("collection dependency", func(t *testing.T) {
		t.Parallel()

		type host struct{ plugins []Plugin }

		r := inject.NewRegistry()
		r.MustRegister(
			pluginProvider("a"),
			pluginProvider("b"),
			inject.MustProvider(inject.Factory(inject.Singleton, func(_ context.Context, args inject.Args) (*host, error) {
				return &host{plugins: inject.ArgAll[Plugin](args, 0)}, nil
			}, inject.DependsOn(inject.Key[Plugin]().All()))),
		)
		root := newRoot(t, r)

		h := inject.MustResolve[*host](ctx, root)
		require.Len(t, h.plugins, 2)
		assert.Equal(t, "a", h.plugins[0].Name())
		assert.Equal(t, "b", h.plugins[1].Name())
	})

	t.Run("strict registry still resolves collections", func(t *testing.T) {
		t.Parallel()

		r := inject.NewRegistry(inject.Strict())
		r.MustRegister(pluginProvider("a"), pluginProvider("b"))
		root := newRoot(t, r)

		_, err := inject.Resolve[Plugin](ctx, root)
		require.ErrorIs(t, err, inject.ErrAmbiguous)

		plugins, err := inject.ResolveAll[Plugin](ctx, root)
		require.NoError(t, err)
		assert.Len(t, plugins, 2)
	})
}

func TestResolve_Qualifiers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	r := inject.NewRegistry()
	r.MustRegister(
		inject.MustProvider(inject.Value("postgres://primary", inject.WithQualifier("primary"))),
		inject.MustProvider(inject.Value("postgres://replica", inject.WithQualifier("replica"))),
	)
	root := newRoot(t, r)

	primary, err := inject.ResolveNamed[string](ctx, root, "primary")
	require.NoError(t, err)
	assert.Equal(t, "postgres://primary", primary)

	replica, err := inject.ResolveNamed[string](ctx, root, "replica")
	require.NoError(t, err)
	assert.Equal(t, "postgres://replica", replica)

	_, err = inject.Resolve[string](ctx, root)
	assert.ErrorIs(t, err, inject.ErrNotFound)
}

func TestResolve_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing dependency names the path", func(t *testing.T) {
		t.Parallel()

		r := inject.NewRegistry()
		r.MustRegister(inject.MustProvider(inject.Constructor(inject.Singleton, testutil.NewTestDatabase)))
		root := newRoot(t, r)

		_, err := inject.Resolve[*testutil.TestDatabaseImpl](ctx, root)
		require.ErrorIs(t, err, inject.ErrNotFound)

		unresolved := testutil.AssertErrorType[*inject.UnresolvedDependencyError](t, err)
		assert.Equal(t, inject.Key[testutil.TestLogger](), unresolved.Key)
		assert.Equal(t, []inject.TypeKey{inject.Key[*testutil.TestDatabaseImpl](), inject.Key[testutil.TestLogger]()}, unresolved.Path)
		assert.Contains(t, err.Error(), "required by")
	})

	t.Run("cycle is reported before anything is built", func(t *testing.T) {
		t.Parallel()

		var counter testutil.Counter
		r := inject.NewRegistry()
		r.MustRegister(
			inject.MustProvider(inject.Constructor(inject.Singleton, func(b *testutil.CircularServiceB) *testutil.CircularServiceA {
				counter.Inc()
				return testutil.NewCircularServiceA(b)
			})),
			inject.MustProvider(inject.Constructor(inject.Singleton, func(a *testutil.CircularServiceA) *testutil.CircularServiceB {
				counter.Inc()
				return testutil.NewCircularServiceB(a)
			})),
		)
		root := newRoot(t, r)

		_, err := inject.Resolve[*testutil.CircularServiceA](ctx, root)
		require.ErrorIs(t, err, inject.ErrCircularDependency)

		cycle := testutil.AssertErrorType[*inject.CircularDependencyError](t, err)
		assert.Equal(t, []inject.TypeKey{
			inject.Key[*testutil.CircularServiceA](),
			inject.Key[*testutil.CircularServiceB](),
			inject.Key[*testutil.CircularServiceA](),
		}, cycle.Cycle)
		assert.Zero(t, counter.Load())
	})

	t.Run("build failure stops the resolution", func(t *testing.T) {
		t.Parallel()

		type dependent struct{}

		var counter testutil.Counter
		r := inject.NewRegistry()
		r.MustRegister(
			inject.MustProvider(inject.Constructor(inject.Singleton, func() (*testutil.TestService, error) {
				return nil, testutil.ErrConstructor
			})),
			inject.MustProvider(inject.Constructor(inject.Singleton, func(*testutil.TestService) *dependent {
				counter.Inc()
				return &dependent{}
			})),
		)
		root := newRoot(t, r)

		_, err := inject.Resolve[*dependent](ctx, root)
		require.ErrorIs(t, err, testutil.ErrConstructor)

		construction := testutil.AssertErrorType[*inject.ConstructionError](t, err)
		assert.Equal(t, inject.Key[*testutil.TestService](), construction.Key)
		assert.Zero(t, counter.Load())
	})

	t.Run("failed singleton is retried", func(t *testing.T) {
		t.Parallel()

		var counter testutil.Counter
		r := inject.NewRegistry()
		r.MustRegister(inject.MustProvider(inject.Factory(inject.Singleton, func(context.Context, inject.Args) (*testutil.TestService, error) {
			if counter.Inc() == 1 {
				return nil, testutil.ErrConstructor
			}
			return testutil.NewTestService(), nil
		})))
		root := newRoot(t, r)

		_, err := inject.Resolve[*testutil.TestService](ctx, root)
		require.ErrorIs(t, err, testutil.ErrConstructor)

		svc, err := inject.Resolve[*testutil.TestService](ctx, root)
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("panics are recovered", func(t *testing.T) {
		t.Parallel()

		r := inject.NewRegistry()
		r.MustRegister(inject.MustProvider(inject.Factory(inject.Transient, func(context.Context, inject.Args) (*testutil.TestService, error) {
			panic(testutil.ErrTest)
		})))
		root := newRoot(t, r)

		_, err := inject.Resolve[*testutil.TestService](ctx, root)
		require.Error(t, err)

		panicErr := testutil.AssertErrorType[*inject.ConstructorPanicError](t, err)
		assert.Equal(t, inject.Key[*testutil.TestService](), panicErr.Key)
		assert.NotEmpty(t, panicErr.Stack)
		assert.ErrorIs(t, err, testutil.ErrTest)
	})

	t.Run("wrong argument type panics inside the build", func(t *testing.T) {
		t.Parallel()

		r := inject.NewRegistry()
		r.MustRegister(
			inject.MustProvider(inject.Value(42)),
			inject.MustProvider(inject.Factory(inject.Transient, func(_ context.Context, args inject.Args) (*testutil.TestService, error) {
				_ = inject.Arg[string](args, 0)
				return testutil.NewTestService(), nil
			}, inject.DependsOn(inject.Key[int]()))),
		)
		root := newRoot(t, r)

		_, err := inject.Resolve[*testutil.TestService](ctx, root)
		testutil.AssertErrorType[*inject.ConstructorPanicError](t, err)
		testutil.AssertErrorType[*inject.TypeMismatchError](t, err)
	})

	t.Run("type mismatch on resolve", func(t *testing.T) {
		t.Parallel()

		r := inject.NewRegistry()
		r.MustRegister(inject.MustProvider(inject.Value(42)))
		root := newRoot(t, r)

		_, err := inject.ResolveKey[string](ctx, root, inject.Key[int]())
		mismatch := testutil.AssertErrorType[*inject.TypeMismatchError](t, err)
		assert.Equal(t, inject.Key[int](), mismatch.Key)
	})

	t.Run("must resolve panics", func(t *testing.T) {
		t.Parallel()

		root := newRoot(t, inject.NewRegistry())

		testutil.AssertPanicsWithError(t, inject.ErrNotFound, func() {
			inject.MustResolve[*testutil.TestService](ctx, root)
		})
	})
}

func TestResolve_Concurrent(t *testing.T) {
	t.Run("singleton is built once", func(t *testing.T) {
		t.Parallel()

		var counter testutil.Counter
		release := make(chan struct{})

		r := inject.NewRegistry()
		r.MustRegister(inject.MustProvider(inject.Factory(inject.Singleton, func(context.Context, inject.Args) (*testutil.TestService, error) {
			counter.Inc()
			<-release
			return testutil.NewTestService(), nil
		})))
		root := newRoot(t, r)

		const goroutines = 50
		results := make([]*testutil.TestService, goroutines)
		errs := make([]error, goroutines)

		var wg sync.WaitGroup
		for i := range goroutines {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = inject.Resolve[*testutil.TestService](context.Background(), root)
			}()
		}

		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int64(1), counter.Load())
		for i := range goroutines {
			require.NoError(t, errs[i])
			assert.Same(t, results[0], results[i])
		}
	})

	t.Run("waiters share the error", func(t *testing.T) {
		t.Parallel()

		var counter testutil.Counter
		release := make(chan struct{})

		r := inject.NewRegistry()
		r.MustRegister(inject.MustProvider(inject.Factory(inject.Scoped, func(context.Context, inject.Args) (*testutil.TestService, error) {
			counter.Inc()
			<-release
			return nil, testutil.ErrConstructor
		})))
		root := newRoot(t, r)
		scope := enter(t, root)

		const goroutines = 10
		errs := make([]error, goroutines)

		var wg sync.WaitGroup
		for i := range goroutines {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = inject.Resolve[*testutil.TestService](context.Background(), scope)
			}()
		}

		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int64(1), counter.Load())
		for _, err := range errs {
			assert.ErrorIs(t, err, testutil.ErrConstructor)
		}
	})

	t.Run("waiter honors its context", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{})
		release := make(chan struct{})

		r := inject.NewRegistry()
		r.MustRegister(inject.MustProvider(inject.Factory(inject.Singleton, func(context.Context, inject.Args) (*testutil.TestService, error) {
			close(started)
			<-release
			return testutil.NewTestService(), nil
		})))
		root := newRoot(t, r)

		done := make(chan error, 1)
		go func() {
			_, err := inject.Resolve[*testutil.TestService](context.Background(), root)
			done <- err
		}()
		<-started

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := inject.Resolve[*testutil.TestService](ctx, root)
		assert.True(t, errors.Is(err, context.Canceled))

		close(release)
		require.NoError(t, <-done)

		svc, err := inject.Resolve[*testutil.TestService](context.Background(), root)
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("sibling scopes resolve independently", func(t *testing.T) {
		t.Parallel()

		var counter testutil.Counter
		r := inject.NewRegistry()
		r.MustRegister(countingService(&counter, inject.Scoped))
		root := newRoot(t, r)

		const scopes = 20
		var wg sync.WaitGroup
		for range scopes {
			wg.Add(1)
			go func() {
				defer wg.Done()

				s, err := root.Enter(context.Background())
				if !assert.NoError(t, err) {
					return
				}
				defer s.Close()

				first, err := inject.Resolve[*testutil.TestService](context.Background(), s)
				assert.NoError(t, err)
				second, err := inject.Resolve[*testutil.TestService](context.Background(), s)
				assert.NoError(t, err)
				assert.Same(t, first, second)
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(scopes), counter.Load())
	})
}

func TestScope_Describe(t *testing.T) {
	t.Parallel()

	r := inject.NewRegistry()
	r.MustRegister(
		inject.MustProvider(inject.Constructor(inject.Singleton, testutil.NewTestLogger, inject.As[testutil.TestLogger]())),
		inject.MustProvider(inject.Constructor(inject.Singleton, testutil.NewTestDatabase)),
	)
	root := newRoot(t, r)

	text, err := root.Describe(inject.Key[*testutil.TestDatabaseImpl]())
	require.NoError(t, err)
	assert.Contains(t, text, "*testutil.TestDatabaseImpl")
	assert.Contains(t, text, "Singleton")
}
