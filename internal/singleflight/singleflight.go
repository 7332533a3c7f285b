// Package singleflight coalesces concurrent calls that share a key so the
// underlying work runs once and every caller observes the same result.
package singleflight

import (
	"context"
	"sync"
)

// Group manages the in-flight calls for one kind of work.
// The zero value is ready to use.
type Group[T any] struct {
	mu sync.Mutex
	m  map[string]*call[T]
}

type call[T any] struct {
	done chan struct{}
	val  T
	err  error
	dups int
}

// New creates an empty Group.
func New[T any]() *Group[T] {
	return &Group[T]{m: make(map[string]*call[T])}
}

// Do runs fn once per key at a time. Callers arriving while fn is running
// block and receive the owner's result; shared reports whether the result
// was handed to more than one caller.
func (g *Group[T]) Do(key string, fn func() (T, error)) (val T, err error, shared bool) {
	return g.DoContext(context.Background(), key, fn)
}

// DoContext is Do with a bounded wait: a caller whose ctx ends stops
// waiting and gets ctx.Err(), while fn keeps running for the others.
// fn runs on its own goroutine and should not depend on any one
// caller's ctx.
func (g *Group[T]) DoContext(ctx context.Context, key string, fn func() (T, error)) (val T, err error, shared bool) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[string]*call[T])
	}
	c, joined := g.m[key]
	if joined {
		c.dups++
	} else {
		c = &call[T]{done: make(chan struct{})}
		g.m[key] = c
		go g.run(key, c, fn)
	}
	g.mu.Unlock()

	select {
	case <-c.done:
		g.mu.Lock()
		shared = c.dups > 0
		g.mu.Unlock()
		return c.val, c.err, shared
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err(), joined
	}
}

func (g *Group[T]) run(key string, c *call[T], fn func() (T, error)) {
	defer func() {
		g.mu.Lock()
		if g.m[key] == c {
			delete(g.m, key)
		}
		g.mu.Unlock()
		close(c.done)
	}()

	c.val, c.err = fn()
}

// Forget drops the in-flight entry for key so the next Do starts fresh
// instead of joining the running call.
func (g *Group[T]) Forget(key string) {
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
}

// InFlight reports how many keys currently have a running call.
func (g *Group[T]) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.m)
}
