package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is matched by UnresolvedDependencyError.
	ErrNotFound = errors.New("no provider registered")

	// ErrCircularDependency is matched by CircularDependencyError.
	ErrCircularDependency = errors.New("circular dependency")

	// ErrScopeMismatch is matched by ScopeMismatchError.
	ErrScopeMismatch = errors.New("scope mismatch")

	// ErrAmbiguous is matched by AmbiguousProviderError.
	ErrAmbiguous = errors.New("ambiguous provider")
)

// UnresolvedDependencyError reports a key with no provider. Path runs from
// the requested key to the missing one.
type UnresolvedDependencyError struct {
	Key  NodeKey
	Path []NodeKey
}

func (e UnresolvedDependencyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no provider registered for %s", e.Key)
	if len(e.Path) > 1 {
		fmt.Fprintf(&b, "\n  required by: %s", joinPath(e.Path, " -> "))
	}
	return b.String()
}

func (e UnresolvedDependencyError) Is(target error) bool {
	return target == ErrNotFound
}

// CircularDependencyError reports a dependency cycle. The first key of Cycle
// is repeated at its end.
type CircularDependencyError struct {
	Cycle []NodeKey
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected:\n\n")

	for i, key := range e.Cycle {
		if i > 0 {
			b.WriteString("      ↓\n")
		}
		b.WriteString("    ")
		b.WriteString(key.String())
		if i == len(e.Cycle)-1 {
			b.WriteString(" (cycle)")
		}
		b.WriteString("\n")
	}

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Depend on an interface and bind it elsewhere\n")
	b.WriteString("  • Restructure to remove the circular relationship\n")

	return b.String()
}

func (e CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}

// ScopeMismatchError reports a Singleton that would capture a Scoped value.
// A zero Singleton means the Scoped value was requested from the root scope.
type ScopeMismatchError struct {
	Singleton NodeKey
	Scoped    NodeKey
	Path      []NodeKey
}

func (e ScopeMismatchError) Error() string {
	var b strings.Builder
	if e.Singleton.IsZero() {
		fmt.Fprintf(&b, "scoped %s cannot be resolved from the root scope", e.Scoped)
		if len(e.Path) > 1 {
			fmt.Fprintf(&b, "\n  via: %s", joinPath(e.Path, " -> "))
		}
		b.WriteString("\n  enter a scope first")
		return b.String()
	}

	fmt.Fprintf(&b, "singleton %s depends on scoped %s", e.Singleton, e.Scoped)
	if len(e.Path) > 2 {
		fmt.Fprintf(&b, "\n  via: %s", joinPath(e.Path, " -> "))
	}
	b.WriteString("\n  make the dependency Singleton or the dependent Scoped")
	return b.String()
}

func (e ScopeMismatchError) Is(target error) bool {
	return target == ErrScopeMismatch
}

// AmbiguousProviderError reports more than one provider for a single-value
// key under strict planning.
type AmbiguousProviderError struct {
	Key   NodeKey
	Count int
	Path  []NodeKey
}

func (e AmbiguousProviderError) Error() string {
	msg := fmt.Sprintf("%d providers registered for %s", e.Count, e.Key)
	if len(e.Path) > 1 {
		msg += fmt.Sprintf("\n  required by: %s", joinPath(e.Path, " -> "))
	}
	return msg + "\n  use a qualifier or resolve the collection " + e.Key.All().String()
}

func (e AmbiguousProviderError) Is(target error) bool {
	return target == ErrAmbiguous
}

func joinPath(path []NodeKey, sep string) string {
	parts := make([]string, len(path))
	for i, key := range path {
		parts[i] = key.String()
	}
	return strings.Join(parts, sep)
}
