package hoot

import (
	"context"
	"sync"

	"github.com/casualjim/hoot/api"
)

// Future is the pending outcome of a background turn.
type Future[T any] interface {
	// Get blocks until the value is available.
	Get() (T, error)
	// Wait is Get bounded by ctx.
	Wait(ctx context.Context) (T, error)
	// Done is closed once the value is available.
	Done() <-chan struct{}
}

type future[T any] struct {
	done   chan struct{}
	once   sync.Once
	result api.Outcome[T]
}

func newFuture[T any]() *future[T] {
	return &future[T]{done: make(chan struct{})}
}

func (f *future[T]) complete(value T, err error) {
	f.once.Do(func() {
		f.result = api.Settle(value, err)
		close(f.done)
	})
}

func (f *future[T]) Done() <-chan struct{} { return f.done }

func (f *future[T]) Get() (T, error) {
	<-f.done
	return f.result.Unpack()
}

func (f *future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.result.Unpack()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
