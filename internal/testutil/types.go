// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Common test errors
var (
	ErrTest            = errors.New("test error")
	ErrConstructor     = errors.New("constructor error")
	ErrRelease         = errors.New("release error")
	ErrAlreadyReleased = errors.New("already released")
)

// TestService is a basic test service
type TestService struct {
	ID        string
	CreatedAt time.Time
}

// NewTestService creates a new test service
func NewTestService() *TestService {
	return &TestService{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
}

// TestLogger is a test logger interface
type TestLogger interface {
	Log(msg string)
	Logs() []string
}

// TestLoggerImpl implements TestLogger
type TestLoggerImpl struct {
	mu   sync.Mutex
	logs []string
}

func NewTestLogger() *TestLoggerImpl {
	return &TestLoggerImpl{}
}

func (l *TestLoggerImpl) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, msg)
}

func (l *TestLoggerImpl) Logs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.logs...)
}

// TestDatabase is a test database interface
type TestDatabase interface {
	Query(sql string) string
	Close() error
}

// TestDatabaseImpl implements TestDatabase
type TestDatabaseImpl struct {
	Name string

	mu     sync.Mutex
	closed bool
}

func NewTestDatabase(logger TestLogger) *TestDatabaseImpl {
	logger.Log("database opened")
	return &TestDatabaseImpl{Name: "testdb"}
}

func (d *TestDatabaseImpl) Query(sql string) string {
	return fmt.Sprintf("%s: %s", d.Name, sql)
}

func (d *TestDatabaseImpl) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrAlreadyReleased
	}
	d.closed = true
	return nil
}

func (d *TestDatabaseImpl) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// TestHandler is a test handler interface
type TestHandler interface {
	Handle() string
}

// TestHandlerImpl implements TestHandler
type TestHandlerImpl struct {
	Name string
}

func (h *TestHandlerImpl) Handle() string {
	return h.Name
}

// TestDisposable implements Close() error and records the call.
type TestDisposable struct {
	ID  string
	Err error

	mu       sync.Mutex
	released bool
}

func NewTestDisposable() *TestDisposable {
	return &TestDisposable{ID: uuid.NewString()}
}

func (d *TestDisposable) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return ErrAlreadyReleased
	}
	d.released = true
	return d.Err
}

func (d *TestDisposable) IsReleased() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

// TestContextDisposable implements Close(context.Context) error.
type TestContextDisposable struct {
	ID string

	mu       sync.Mutex
	ctx      context.Context
	released bool
}

func NewTestContextDisposable() *TestContextDisposable {
	return &TestContextDisposable{ID: uuid.NewString()}
}

func (d *TestContextDisposable) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return ErrAlreadyReleased
	}
	d.ctx = ctx
	d.released = true
	return nil
}

func (d *TestContextDisposable) IsReleased() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

// ReleaseContext returns the context Close was called with.
func (d *TestContextDisposable) ReleaseContext() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctx
}

// CircularServiceA and CircularServiceB depend on each other.
type CircularServiceA struct {
	B *CircularServiceB
}

type CircularServiceB struct {
	A *CircularServiceA
}

func NewCircularServiceA(b *CircularServiceB) *CircularServiceA {
	return &CircularServiceA{B: b}
}

func NewCircularServiceB(a *CircularServiceA) *CircularServiceB {
	return &CircularServiceB{A: a}
}

// Counter counts calls from concurrent goroutines.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Inc() int64 { return c.n.Add(1) }

func (c *Counter) Load() int64 { return c.n.Load() }
