package inject_test

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/junioryono/inject"
)

type Config struct {
	DSN string
}

type Database struct {
	dsn string
}

func NewDatabase(cfg Config) (*Database, func(context.Context) error) {
	fmt.Println("open", cfg.DSN)
	db := &Database{dsn: cfg.DSN}
	return db, func(context.Context) error {
		fmt.Println("close", db.dsn)
		return nil
	}
}

type UserRepository struct {
	db *Database
}

func NewUserRepository(db *Database) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Find(id int) string {
	return fmt.Sprintf("user %d from %s", id, r.db.dsn)
}

// Example demonstrates registration, scoped resolution and teardown.
func Example() {
	registry := inject.NewRegistry()
	registry.MustRegister(
		inject.MustProvider(inject.Value(Config{DSN: "postgres://app"})),
		inject.MustProvider(inject.Constructor(inject.Singleton, NewDatabase)),
		inject.MustProvider(inject.Constructor(inject.Scoped, NewUserRepository)),
	)

	ctx := context.Background()
	root, err := registry.NewRoot(ctx, inject.WithValidation())
	if err != nil {
		log.Fatal(err)
	}

	request, err := root.Enter(ctx)
	if err != nil {
		log.Fatal(err)
	}

	users, err := inject.Resolve[*UserRepository](ctx, request)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(users.Find(1))

	if err := request.Close(); err != nil {
		log.Fatal(err)
	}
	if err := root.Close(); err != nil {
		log.Fatal(err)
	}
	// Output:
	// open postgres://app
	// user 1 from postgres://app
	// close postgres://app
}

// ExampleScope_Override demonstrates replacing a provider for one scope.
func ExampleScope_Override() {
	registry := inject.NewRegistry()
	registry.MustRegister(inject.MustProvider(inject.Value(Config{DSN: "postgres://prod"})))

	ctx := context.Background()
	root, err := registry.NewRoot(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer root.Close()

	o, err := root.Override(inject.MustProvider(inject.Value(Config{DSN: "postgres://test"})))
	if err != nil {
		log.Fatal(err)
	}

	cfg := inject.MustResolve[Config](ctx, root)
	fmt.Println(cfg.DSN)

	if err := o.Release(); err != nil {
		log.Fatal(err)
	}

	cfg = inject.MustResolve[Config](ctx, root)
	fmt.Println(cfg.DSN)
	// Output:
	// postgres://test
	// postgres://prod
}

// ExampleInvoke demonstrates calling a function with resolved arguments.
func ExampleInvoke() {
	registry := inject.NewRegistry()
	registry.MustRegister(inject.MustProvider(inject.Value(Config{DSN: "postgres://app"})))

	ctx := context.Background()
	root, err := registry.NewRoot(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer root.Close()

	_, err = inject.Invoke(ctx, root, func(ctx context.Context, cfg Config) error {
		fmt.Println("migrating", cfg.DSN)
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
	// Output: migrating postgres://app
}

// ExampleNewModule demonstrates grouping registrations.
func ExampleNewModule() {
	storage := inject.NewModule("storage",
		inject.AddValue(Config{DSN: "postgres://app"}),
		inject.AddSingleton(NewDatabase),
	)
	app := inject.NewModule("app",
		storage,
		inject.AddScoped(NewUserRepository),
	)

	registry := inject.NewRegistry()
	if err := registry.Install(app); err != nil {
		log.Fatal(err)
	}

	fmt.Println(registry.Len())
	// Output: 3
}

// ExampleCircularDependencyError demonstrates inspecting a cycle.
func ExampleCircularDependencyError() {
	type A struct{}
	type B struct{}

	registry := inject.NewRegistry()
	registry.MustRegister(
		inject.MustProvider(inject.Factory(inject.Singleton, func(context.Context, inject.Args) (*A, error) {
			return &A{}, nil
		}, inject.DependsOn(inject.Key[*B]()))),
		inject.MustProvider(inject.Factory(inject.Singleton, func(context.Context, inject.Args) (*B, error) {
			return &B{}, nil
		}, inject.DependsOn(inject.Key[*A]()))),
	)

	ctx := context.Background()
	root, err := registry.NewRoot(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer root.Close()

	_, err = inject.Resolve[*A](ctx, root)

	var cycle *inject.CircularDependencyError
	if errors.As(err, &cycle) {
		fmt.Println(len(cycle.Cycle))
	}
	// Output: 3
}
