// Package collection keeps a client-side copy of a server-owned list. The server is the
// only source of truth: every change goes through Mutate, which always re-fetches.
package collection

import (
	"context"
	"sync"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// LoadFunc fetches the whole list from the server.
type LoadFunc[T any] func(ctx context.Context) ([]T, error)

type Collection[T any] struct {
	name string
	load LoadFunc[T]
	log  Logger

	mu     sync.RWMutex
	items  []T
	loaded bool
}

// New returns an empty collection. log may be nil.
func New[T any](name string, load LoadFunc[T], log Logger) *Collection[T] {
	if log == nil {
		log = nopLogger{}
	}
	return &Collection[T]{name: name, load: load, log: log}
}

// Items returns a copy of the last successfully loaded list.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T(nil), c.items...)
}

// Loaded reports whether any load has succeeded yet.
func (c *Collection[T]) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Load replaces the list with the server's. On failure the previous list is kept as is.
func (c *Collection[T]) Load(ctx context.Context) error {
	items, err := c.load(ctx)
	if err != nil {
		c.log.Debugf("Loading %s failed: %v", c.name, err)
		return err
	}
	c.Replace(items)
	c.log.Debugf("Loaded %d %s", len(items), c.name)
	return nil
}

// Replace installs items fetched elsewhere as if Load had returned them.
func (c *Collection[T]) Replace(items []T) {
	c.mu.Lock()
	c.items = items
	c.loaded = true
	c.mu.Unlock()
}

// Mutate runs a server-side change and then reloads. A failed change skips the reload, so
// the list is untouched. A failed reload after a successful change is returned as is.
func (c *Collection[T]) Mutate(ctx context.Context, change func(ctx context.Context) error) error {
	if err := change(ctx); err != nil {
		c.log.Debugf("Change to %s rejected: %v", c.name, err)
		return err
	}
	return c.Load(ctx)
}

// Status is the single error slot of a page-level workflow. It holds the last failure
// until the next successful operation.
type Status struct {
	mu  sync.Mutex
	err error
}

// Record stores err, or clears the slot when err is nil, and returns err.
func (s *Status) Record(err error) error {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	return err
}

func (s *Status) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Status) Clear() { s.Record(nil) }
