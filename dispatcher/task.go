package dispatcher

import (
	"context"
)

// Task is a single dispatch running on its own goroutine.
type Task[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	resp   *Response[T]
	err    error
}

// Go starts Dispatch(ctx, d, r) in the background and returns its handle.
func Go[T, E any](ctx context.Context, d *Dispatcher, r Resource[T, E]) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task[T]{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(t.done)
		defer cancel()
		t.resp, t.err = Dispatch(ctx, d, r)
	}()
	return t
}

// Done is closed once the task has a result.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Cancel cancels the in-flight transport call. The task then completes with
// a transport failure unless it already finished.
func (t *Task[T]) Cancel() {
	t.cancel()
}

// Await blocks until the task finishes or ctx is done. If ctx ends first the
// task is cancelled, Await waits for the transport call to unwind and
// returns a transport failure carrying ctx.Err().
func (t *Task[T]) Await(ctx context.Context) (*Response[T], error) {
	select {
	case <-t.done:
		return t.resp, t.err
	case <-ctx.Done():
		t.cancel()
		<-t.done
		return nil, newTransportFailure(ctx.Err())
	}
}

// Wait blocks until the task finishes.
func (t *Task[T]) Wait() (*Response[T], error) {
	<-t.done
	return t.resp, t.err
}
