package inject

import (
	"context"
	"fmt"

	"github.com/junioryono/inject/internal/reflection"
)

// In marks a parameter object. A constructor or invoked function whose only
// parameter is a struct embedding In receives each exported field as a
// separate dependency.
//
//	type HandlerParams struct {
//	    inject.In
//
//	    DB      *sql.DB  `name:"primary"`
//	    Plugins []Plugin `all:"true"`
//	}
type In = reflection.In

// Parameter is one dependency of a function, as reported by an Inspector.
// A parameter whose key type is context.Context receives the call's context
// instead of a resolved value.
type Parameter struct {
	Name string
	Key  TypeKey
}

// Inspector derives the dependencies of a function from its signature. It
// must report one Parameter per value the function receives, in order.
type Inspector interface {
	Inspect(fn any) ([]Parameter, error)
}

// InspectorFunc adapts a function to Inspector.
type InspectorFunc func(fn any) ([]Parameter, error)

// Inspect calls f.
func (f InspectorFunc) Inspect(fn any) ([]Parameter, error) {
	return f(fn)
}

// ReflectInspector is the default Inspector. It reports one parameter per
// function argument, keyed by the argument's type, or one per field of a
// parameter object.
type ReflectInspector struct{}

// Inspect implements Inspector.
func (ReflectInspector) Inspect(fn any) ([]Parameter, error) {
	info, err := defaultAnalyzer.Analyze(fn)
	if err != nil {
		return nil, err
	}

	params := make([]Parameter, len(info.Params))
	for i, p := range info.Params {
		params[i] = Parameter{
			Name: p.Name,
			Key: TypeKey{
				Type:       p.Type,
				Qualifier:  p.Qualifier,
				Collection: p.Collection,
			},
		}
	}
	return params, nil
}

// InvokeOption configures Invoke.
type InvokeOption interface {
	applyInvoke(*invokeOptions)
}

type invokeOptions struct {
	inspector Inspector
}

type invokeOptionFunc func(*invokeOptions)

func (f invokeOptionFunc) applyInvoke(opts *invokeOptions) {
	f(opts)
}

// UsingInspector sets the inspector Invoke uses.
func UsingInspector(inspector Inspector) InvokeOption {
	return invokeOptionFunc(func(opts *invokeOptions) {
		opts.inspector = inspector
	})
}

// Invoke resolves every parameter of fn from s and calls it. It returns fn's
// results; a trailing error result is returned as the error.
//
//	_, err := inject.Invoke(ctx, scope, func(db *sql.DB, log *zap.Logger) error {
//	    return migrate(db, log)
//	})
func Invoke(ctx context.Context, s *Scope, fn any, opts ...InvokeOption) ([]any, error) {
	if s == nil {
		return nil, ErrScopeClosed
	}
	if ctx == nil {
		ctx = s.ctx
	}

	options := &invokeOptions{inspector: ReflectInspector{}}
	for _, opt := range opts {
		if opt != nil {
			opt.applyInvoke(options)
		}
	}

	info, err := defaultAnalyzer.Analyze(fn)
	if err != nil {
		return nil, err
	}

	params, err := options.inspector.Inspect(fn)
	if err != nil {
		return nil, err
	}
	if len(params) != len(info.Params) {
		return nil, fmt.Errorf("inspector returned %d parameters for %s, want %d", len(params), info.Type, len(info.Params))
	}

	args, err := s.resolveKeys(ctx, dependencyKeys(params))
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", info.Type, err)
	}

	return info.Call(callArgs(ctx, params, args))
}

// dependencyKeys returns the keys to resolve for params, skipping context
// parameters.
func dependencyKeys(params []Parameter) []TypeKey {
	keys := make([]TypeKey, 0, len(params))
	for _, p := range params {
		if p.Key.Type == contextType {
			continue
		}
		keys = append(keys, p.Key)
	}
	return keys
}

// callArgs interleaves ctx into resolved args at the context parameters.
func callArgs(ctx context.Context, params []Parameter, args Args) []any {
	out := make([]any, len(params))
	j := 0
	for i, p := range params {
		if p.Key.Type == contextType {
			out[i] = ctx
			continue
		}
		if j < len(args) {
			out[i] = args[j]
		}
		j++
	}
	return out
}
