package inject

import (
	"fmt"
)

// ModuleOption represents a registration action within a module.
type ModuleOption func(*Registry) error

// NewModule groups related registrations under a name. Modules nest; errors
// are reported as ModuleError naming the innermost failing module.
//
// Example:
//
//	var DatabaseModule = inject.NewModule("database",
//	    inject.AddSingleton(NewDatabaseConnection),
//	    inject.AddScoped(NewUserRepository),
//	)
//
//	var AppModule = inject.NewModule("app",
//	    DatabaseModule,
//	    inject.AddScoped(NewUserService),
//	    inject.AddValue(Config{Port: 8080}),
//	)
func NewModule(name string, items ...ModuleOption) ModuleOption {
	return func(r *Registry) error {
		for _, item := range items {
			if item == nil {
				continue
			}

			if err := item(r); err != nil {
				if _, ok := err.(*ModuleError); ok {
					return err
				}
				return &ModuleError{Module: name, Cause: err}
			}
		}
		return nil
	}
}

// Install runs modules against the registry in order, stopping at the first
// error.
func (r *Registry) Install(modules ...ModuleOption) error {
	for _, m := range modules {
		if m == nil {
			continue
		}
		if err := m(r); err != nil {
			return err
		}
	}
	return nil
}

// Add registers an already created provider. Its signature matches the
// provider constructors, so their results can be passed directly:
//
//	inject.Add(inject.Value(cfg))
func Add(p *Provider, err error) ModuleOption {
	return func(r *Registry) error {
		if err != nil {
			return err
		}
		return r.Register(p)
	}
}

// AddSingleton registers fn as a Singleton Constructor.
func AddSingleton(fn any, opts ...ProviderOption) ModuleOption {
	return addConstructor(Singleton, fn, opts)
}

// AddScoped registers fn as a Scoped Constructor.
func AddScoped(fn any, opts ...ProviderOption) ModuleOption {
	return addConstructor(Scoped, fn, opts)
}

// AddTransient registers fn as a Transient Constructor.
func AddTransient(fn any, opts ...ProviderOption) ModuleOption {
	return addConstructor(Transient, fn, opts)
}

// AddValue registers v as a Singleton Value.
func AddValue[T any](v T, opts ...ProviderOption) ModuleOption {
	return func(r *Registry) error {
		p, err := Value(v, opts...)
		if err != nil {
			return err
		}
		return r.Register(p)
	}
}

func addConstructor(l Lifetime, fn any, opts []ProviderOption) ModuleOption {
	return func(r *Registry) error {
		p, err := Constructor(l, fn, opts...)
		if err != nil {
			return err
		}
		return r.Register(p)
	}
}

// ModuleError wraps errors from module registration.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}
