package choices

import (
	"context"
	"sync"
)

// Future is a Deferred settled exactly once, either by Resolve or by the
// function handed to Go. The zero value is an unsettled Future.
type Future struct {
	init  sync.Once
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

// NewFuture returns an unsettled Future.
func NewFuture() *Future {
	return &Future{}
}

func (f *Future) doneChan() chan struct{} {
	f.init.Do(func() {
		f.done = make(chan struct{})
	})
	return f.done
}

// Go runs fn in its own goroutine and settles the Future with its result.
func Go(ctx context.Context, fn func(context.Context) (any, error)) *Future {
	f := NewFuture()
	go func() {
		f.Resolve(fn(ctx))
	}()
	return f
}

// Resolved returns a Future already settled with value.
func Resolved(value any) *Future {
	f := NewFuture()
	f.Resolve(value, nil)
	return f
}

// Resolve settles the Future. Calls after the first are ignored.
func (f *Future) Resolve(value any, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.doneChan())
	})
}

// Done is closed once the Future settles.
func (f *Future) Done() <-chan struct{} {
	return f.doneChan()
}

// Await blocks until the Future settles or ctx is done.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.doneChan():
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DeferredFunc adapts a function to Deferred. The function runs on each Await.
type DeferredFunc func(ctx context.Context) (any, error)

// Await implements Deferred.
func (fn DeferredFunc) Await(ctx context.Context) (any, error) {
	if fn == nil {
		return nil, nil
	}
	return fn(ctx)
}
