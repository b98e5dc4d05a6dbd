package util

import (
	"bytes"
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// Group collapses concurrent calls that share a key into one execution.
// The zero value is ready to use.
type Group[T any] struct {
	mu sync.Mutex
	m  map[string]*call[T]
}

type call[T any] struct {
	wg   sync.WaitGroup
	val  T
	err  error
	dups int
}

// Do runs fn once per key at a time. Callers arriving while fn runs wait and
// receive the same result; shared reports whether that happened. A panic in
// fn is re-raised in every caller.
func (g *Group[T]) Do(key string, fn func() (T, error)) (v T, err error, shared bool) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[string]*call[T])
	}
	if c, ok := g.m[key]; ok {
		c.dups++
		g.mu.Unlock()
		c.wg.Wait()

		if p, ok := c.err.(*PanicError); ok {
			panic(p)
		}
		return c.val, c.err, true
	}
	c := new(call[T])
	c.wg.Add(1)
	g.m[key] = c
	g.mu.Unlock()

	g.doCall(c, key, fn)
	return c.val, c.err, c.dups > 0
}

func (g *Group[T]) doCall(c *call[T], key string, fn func() (T, error)) {
	defer func() {
		if r := recover(); r != nil {
			c.err = newPanicError(r)
		}

		g.mu.Lock()
		if g.m[key] == c {
			delete(g.m, key)
		}
		g.mu.Unlock()
		c.wg.Done()

		if p, ok := c.err.(*PanicError); ok {
			panic(p)
		}
	}()

	c.val, c.err = fn()
}

// DoWithContext is Do that stops waiting when ctx is done. The shared call
// keeps running for the other callers.
func (g *Group[T]) DoWithContext(ctx context.Context, key string, fn func() (T, error)) (T, error, bool) {
	type result struct {
		val    T
		err    error
		shared bool
	}

	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: newPanicError(r)}
			}
		}()
		val, err, shared := g.Do(key, fn)
		ch <- result{val, err, shared}
	}()

	select {
	case r := <-ch:
		return r.val, r.err, r.shared
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err(), false
	}
}

// Forget makes the next Do for key run fn instead of joining an in-flight call.
func (g *Group[T]) Forget(key string) {
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
}

// PanicError carries a value recovered from fn together with its stack.
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(v any) error {
	if p, ok := v.(*PanicError); ok {
		return p
	}
	stack := debug.Stack()
	// Drop the "goroutine N [running]:" header; it describes a goroutine
	// that may be gone by the time the error is read.
	if line := bytes.IndexByte(stack, '\n'); line >= 0 {
		stack = stack[line+1:]
	}
	return &PanicError{Value: v, Stack: stack}
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("%v\n\n%s", p.Value, p.Stack)
}

func (p *PanicError) Unwrap() error {
	err, _ := p.Value.(error)
	return err
}
