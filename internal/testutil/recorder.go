package testutil

import (
	"context"
	"sync"
)

// ReleaseRecorder records the order in which release functions run.
type ReleaseRecorder struct {
	mu    sync.Mutex
	order []string
}

// Release returns a release function that records name and returns err.
func (r *ReleaseRecorder) Release(name string, err error) func(context.Context) error {
	return func(context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.order = append(r.order, name)
		return err
	}
}

// Order returns the recorded release order.
func (r *ReleaseRecorder) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}
