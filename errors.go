package inject

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/junioryono/inject/internal/graph"
)

// ========================================
// Sentinel Errors
// ========================================

var (
	// Resolution errors.
	ErrNotFound           = graph.ErrNotFound
	ErrCircularDependency = graph.ErrCircularDependency
	ErrScopeMismatch      = graph.ErrScopeMismatch
	ErrAmbiguous          = graph.ErrAmbiguous
	ErrScopeValueMissing  = errors.New("no scope value supplied")

	// Lifecycle errors.
	ErrScopeClosed    = errors.New("scope has been closed")
	ErrRegistryFrozen = errors.New("registry is frozen")
	ErrNotBuilding    = errors.New("not called from a provider build")

	// Registration errors.
	ErrProviderNil  = errors.New("provider cannot be nil")
	ErrBuildFuncNil = errors.New("build function cannot be nil")
	ErrInvalidKey   = errors.New("invalid provider key")

	// Override errors.
	ErrOverrideOrder = errors.New("override is not the most recent one")
	ErrNoOverride    = errors.New("no override to pop")
)

var (
	_ error = UnresolvedDependencyError{}
	_ error = CircularDependencyError{}
	_ error = ScopeMismatchError{}
	_ error = AmbiguousProviderError{}
	_ error = ConstructionError{}
	_ error = ConstructorPanicError{}
	_ error = TypeMismatchError{}
	_ error = RegistrationError{}
	_ error = ReleaseError{}
	_ error = ModuleError{}
)

// ========================================
// Typed Errors
// ========================================

// UnresolvedDependencyError reports a key with no provider, with the path
// from the requested key to the missing one.
type UnresolvedDependencyError = graph.UnresolvedDependencyError

// CircularDependencyError reports a dependency cycle such as [A, B, A].
type CircularDependencyError = graph.CircularDependencyError

// ScopeMismatchError reports a Singleton that would capture a Scoped value,
// or a Scoped value requested from the root scope.
type ScopeMismatchError = graph.ScopeMismatchError

// AmbiguousProviderError reports several providers for a single-value key in
// a strict registry.
type AmbiguousProviderError = graph.AmbiguousProviderError

// ConstructionError wraps an error returned by a provider's build function.
type ConstructionError struct {
	Key      TypeKey
	Lifetime Lifetime
	Cause    error
}

func (e ConstructionError) Error() string {
	return fmt.Sprintf("failed to build %s (%s): %v", e.Key, e.Lifetime, e.Cause)
}

func (e ConstructionError) Unwrap() error {
	return e.Cause
}

// ConstructorPanicError indicates a build function panicked.
// It captures the panic value and stack trace for debugging.
type ConstructorPanicError struct {
	Key   TypeKey
	Panic any
	Stack []byte
}

func (e ConstructorPanicError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "provider %s panicked: %v\n", e.Key, e.Panic)

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Check for nil pointer dereferences in the build function\n")
	b.WriteString("  • Check that Arg and ArgAll indexes match the declared dependencies\n")

	if len(e.Stack) > 0 {
		b.WriteString("\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

// Unwrap returns the panic value when it is an error.
func (e ConstructorPanicError) Unwrap() error {
	if err, ok := e.Panic.(error); ok {
		return err
	}
	return nil
}

// TypeMismatchError indicates a resolved value does not have the expected type.
type TypeMismatchError struct {
	Key      TypeKey
	Expected reflect.Type
	Actual   reflect.Type
	Context  string
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: %s: expected %s, got %s", e.Context, e.Key, formatType(e.Expected), formatType(e.Actual))
}

// RegistrationError wraps errors found while creating or registering a provider.
type RegistrationError struct {
	Key   TypeKey
	Cause error
}

func (e RegistrationError) Error() string {
	if e.Key.IsZero() {
		return fmt.Sprintf("failed to register provider: %v", e.Cause)
	}
	return fmt.Sprintf("failed to register %s: %v", e.Key, e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}

// ReleaseError aggregates every release failure of a scope, in release order.
type ReleaseError struct {
	Scope  uuid.UUID
	Errors []error
}

func (e ReleaseError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("scope %s release failed: %v", e.Scope, e.Errors[0])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "scope %s release failed with %d errors:", e.Scope, len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "\n  %d. %v", i+1, err)
	}
	return b.String()
}

func (e ReleaseError) Unwrap() []error {
	return e.Errors
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
