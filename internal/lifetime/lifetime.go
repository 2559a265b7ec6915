// Package lifetime defines provider lifetimes and the release stack every
// scope drains when it closes.
package lifetime

import (
	"encoding/json"
	"fmt"
)

// Lifetime specifies how long a constructed value is cached.
type Lifetime int

const (
	// Singleton values are built once and cached by the root scope.
	// Singleton providers must not depend on Scoped providers.
	Singleton Lifetime = iota

	// Scoped values are built once per non-root scope and released when
	// that scope closes.
	Scoped

	// Transient values are never cached. A transient provider still runs
	// only once per resolution call, however many dependents reach it.
	Transient
)

// Error indicates an invalid lifetime value.
type Error struct {
	Value any
}

func (e Error) Error() string {
	return fmt.Sprintf("invalid lifetime: %v", e.Value)
}

// String returns the string representation of the Lifetime.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "Singleton"
	case Scoped:
		return "Scoped"
	case Transient:
		return "Transient"
	default:
		return fmt.Sprintf("Unknown(%d)", int(l))
	}
}

// IsValid checks if the lifetime is one of the known values.
func (l Lifetime) IsValid() bool {
	return l >= Singleton && l <= Transient
}

// Cached reports whether values of this lifetime are kept in a scope cache.
func (l Lifetime) Cached() bool {
	return l == Singleton || l == Scoped
}

// MarshalText implements encoding.TextMarshaler.
func (l Lifetime) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, &Error{Value: int(l)}
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lifetime) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Singleton", "singleton":
		*l = Singleton
	case "Scoped", "scoped":
		*l = Scoped
	case "Transient", "transient":
		*l = Transient
	default:
		return &Error{Value: string(text)}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l Lifetime) MarshalJSON() ([]byte, error) {
	text, err := l.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Lifetime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	return l.UnmarshalText([]byte(s))
}
