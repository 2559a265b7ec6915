package inject

import (
	"reflect"

	"github.com/junioryono/inject/internal/graph"
)

// TypeKey identifies a binding: a type, an optional qualifier, and whether
// the collection of every provider of that type is meant.
//
// TypeKey is comparable and can be used as a map key. Keys with different
// qualifiers are distinct; there is no fallback to the unqualified key.
type TypeKey = graph.NodeKey

// Key returns the key for T.
func Key[T any]() TypeKey {
	return TypeKey{Type: typeOf[T]()}
}

// Named returns the key for T qualified by name.
func Named[T any](qualifier string) TypeKey {
	return TypeKey{Type: typeOf[T](), Qualifier: qualifier}
}

// KeyOf returns the key for a reflected type.
func KeyOf(t reflect.Type) TypeKey {
	return TypeKey{Type: t}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
