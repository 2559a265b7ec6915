package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorType asserts that err wraps an error of type T and returns it.
func AssertErrorType[T error](t *testing.T, err error, msgAndArgs ...any) T {
	t.Helper()

	var target T
	require.True(t, errors.As(err, &target), msgAndArgs...)
	return target
}

// AssertPanicsWithError asserts that f panics with a value wrapping expected.
func AssertPanicsWithError(t *testing.T, expected error, f func(), msgAndArgs ...any) {
	t.Helper()

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")

		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		assert.ErrorIs(t, err, expected, msgAndArgs...)
	}()

	f()
}

// AssertSameInstance asserts that both pointers refer to the same object.
func AssertSameInstance(t *testing.T, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	assert.Same(t, expected, actual, msgAndArgs...)
}

// AssertDifferentInstances asserts that the pointers refer to different objects.
func AssertDifferentInstances(t *testing.T, first, second any, msgAndArgs ...any) {
	t.Helper()
	assert.NotSame(t, first, second, msgAndArgs...)
}
