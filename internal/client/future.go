package client

import (
	"context"
	"sync"
)

// Future is the handle of a call running in the background.
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu        sync.Mutex
	settled   bool
	callbacks []func(T, error)

	// Written once before done is closed.
	val T
	err error
}

// Go runs fn on a new goroutine and returns its handle. The context passed
// to fn is cancelled by Future.Cancel, by the parent, or once fn returns.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future[T]{
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go f.run(ctx, fn)
	return f
}

func (f *Future[T]) run(ctx context.Context, fn func(ctx context.Context) (T, error)) {
	v, err := fn(ctx)
	f.cancel()

	f.mu.Lock()
	f.val, f.err = v, err
	f.settled = true
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(v, err)
	}
}

// Done is closed when the call completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the call completes or ctx ends. In the latter case it
// returns ctx.Err() and the call keeps running.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking. ok is false while the call
// is still running.
func (f *Future[T]) Result() (v T, err error, ok bool) {
	select {
	case <-f.done:
		return f.val, f.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Then registers fn to receive the outcome. It never runs on the calling
// goroutine. Callbacks registered before completion run in registration
// order on the goroutine of the call; later ones each get a new goroutine.
func (f *Future[T]) Then(fn func(T, error)) {
	f.mu.Lock()
	if !f.settled {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	go fn(f.val, f.err)
}

// Cancel aborts the call if it is still running. The outcome becomes an
// error of KindUnknown.
func (f *Future[T]) Cancel() {
	f.cancel()
}
