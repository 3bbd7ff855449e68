package sdk

import (
	"context"
	"sync"
)

// Future is the deferred result of an asynchronous call. It is resolved
// exactly once, by the goroutine running the call.
//
// Example:
//
//	fut := client.ExecuteAsync(ctx, req)
//	// ... do other work ...
//	payload, err := fut.Await(ctx)
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// goFuture runs fn on a new goroutine and resolves the returned future with
// its result. A panic in fn resolves the future with a KindUnknown error.
func goFuture[T any](fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.resolve(zero, newErrorf(KindUnknown, nil, "call panicked: %v", r))
			}
		}()
		v, err := fn()
		f.resolve(v, err)
	}()
	return f
}

func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
	})
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the call completes and returns its outcome.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.val, f.err
}

// Await waits for the result or for ctx to end, whichever comes first. When
// ctx ends first, ctx.Err() is returned and the call keeps running to
// completion in the background.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then registers fn to run with the result once it is available. fn runs on
// its own goroutine; callbacks registered after resolution still run. A
// panic in fn is recovered and dropped.
func (f *Future[T]) Then(fn func(T, error)) {
	go func() {
		defer func() { _ = recover() }()
		<-f.done
		fn(f.val, f.err)
	}()
}

// Map derives a future whose value is fn applied to src's value. Errors from
// src pass through untouched.
func Map[S, T any](src *Future[S], fn func(S) (T, error)) *Future[T] {
	return goFuture(func() (T, error) {
		v, err := src.Result()
		if err != nil {
			var zero T
			return zero, err
		}
		return fn(v)
	})
}
