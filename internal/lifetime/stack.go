package lifetime

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// ReleaseFunc releases a resource acquired while building a value.
type ReleaseFunc func(ctx context.Context) error

// Stack holds release functions in acquisition order. Drain runs them in
// reverse order exactly once.
type Stack struct {
	mu      sync.Mutex
	entries []entry
	drained bool
}

type entry struct {
	name    string
	release ReleaseFunc
}

// Push registers fn under name. It returns false, without registering, when
// the stack has already been drained; the caller then owns the release.
func (s *Stack) Push(name string, fn ReleaseFunc) bool {
	if fn == nil {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drained {
		return false
	}

	s.entries = append(s.entries, entry{name: name, release: fn})
	return true
}

// Len returns the number of pending releases.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Drained reports whether Drain has been called.
func (s *Stack) Drained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drained
}

// Drain releases every entry LIFO. A failing or panicking release does not
// stop the remaining ones; every failure is returned in release order.
// Subsequent calls return nil.
func (s *Stack) Drain(ctx context.Context) []error {
	s.mu.Lock()
	if s.drained {
		s.mu.Unlock()
		return nil
	}
	s.drained = true
	entries := s.entries
	s.entries = nil
	s.mu.Unlock()

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		if err := Release(ctx, entries[i].name, entries[i].release); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

// Release runs a single release function, converting a panic into an error.
func Release(ctx context.Context, name string, fn ReleaseFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Name: name, Panic: r, Stack: debug.Stack()}
		}
	}()

	if err := fn(ctx); err != nil {
		return fmt.Errorf("release %s: %w", name, err)
	}

	return nil
}

// PanicError is returned when a release function panics.
type PanicError struct {
	Name  string
	Panic any
	Stack []byte
}

func (e PanicError) Error() string {
	return fmt.Sprintf("release %s panicked: %v", e.Name, e.Panic)
}
