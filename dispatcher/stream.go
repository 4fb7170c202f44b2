package dispatcher

import (
	"context"
	"sync"
)

// EventKind identifies a stream event.
type EventKind int

const (
	// EventNext carries the dispatched value.
	EventNext EventKind = iota
	// EventCompleted follows EventNext and ends the stream normally.
	EventCompleted
	// EventFailed ends the stream with Err.
	EventFailed
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventNext:
		return "next"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one stream emission.
type Event[T any] struct {
	Kind  EventKind
	Value *Response[T]
	Err   error
}

type streamState int

const (
	streamIdle streamState = iota
	streamRunning
	streamFinished
	streamCanceled
)

// Stream exposes one dispatch to any number of subscribers. The dispatch
// starts on the first Subscribe and runs at most once. Every subscriber
// sees either EventNext followed by EventCompleted, or a single EventFailed.
type Stream[T any] struct {
	ctx   context.Context
	start func(ctx context.Context) *Task[T]

	mu    sync.Mutex
	state streamState
	task  *Task[T]
	subs  map[*Subscription[T]]struct{}
	resp  *Response[T]
	err   error
}

// Publish returns a lazy stream over Dispatch(ctx, d, r). No call is made
// until the first Subscribe.
func Publish[T, E any](ctx context.Context, d *Dispatcher, r Resource[T, E]) *Stream[T] {
	return &Stream[T]{
		ctx: ctx,
		start: func(ctx context.Context) *Task[T] {
			return Go(ctx, d, r)
		},
		subs: make(map[*Subscription[T]]struct{}),
	}
}

// Subscription is one subscriber's view of a Stream.
type Subscription[T any] struct {
	stream *Stream[T]
	events chan Event[T]
}

// Events returns the subscriber's event channel. It is closed after the
// terminal event, or without any event once the subscription is cancelled.
func (s *Subscription[T]) Events() <-chan Event[T] {
	return s.events
}

// Cancel stops delivery to this subscriber. When the last active subscriber
// cancels before the dispatch finished, the dispatch itself is cancelled.
func (s *Subscription[T]) Cancel() {
	st := s.stream
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.subs[s]; !ok {
		return
	}
	delete(st.subs, s)
	close(s.events)

	if len(st.subs) == 0 && st.state == streamRunning {
		st.state = streamCanceled
		st.task.Cancel()
	}
}

// Subscribe registers a subscriber, activating the dispatch if this is the
// first one. Subscribers arriving after completion receive the stored
// outcome; subscribers of a cancelled stream receive a transport failure.
func (st *Stream[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{stream: st, events: make(chan Event[T], 2)}

	st.mu.Lock()
	defer st.mu.Unlock()

	switch st.state {
	case streamFinished:
		sub.deliver(st.resp, st.err)
		return sub
	case streamCanceled:
		sub.deliver(nil, newTransportFailure(context.Canceled))
		return sub
	case streamIdle:
		st.task = st.start(st.ctx)
		st.state = streamRunning
		go st.wait(st.task)
	}

	st.subs[sub] = struct{}{}
	return sub
}

// Cancel cancels the dispatch and closes every subscription without further
// emissions. It is a no-op once the stream has finished.
func (st *Stream[T]) Cancel() {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.state == streamFinished || st.state == streamCanceled {
		return
	}
	if st.task != nil {
		st.task.Cancel()
	}
	st.state = streamCanceled
	for sub := range st.subs {
		close(sub.events)
	}
	st.subs = nil
}

// Started reports whether the dispatch has been activated.
func (st *Stream[T]) Started() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state != streamIdle && st.task != nil
}

func (st *Stream[T]) wait(task *Task[T]) {
	resp, err := task.Wait()

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.state != streamRunning {
		return
	}
	st.state = streamFinished
	st.resp, st.err = resp, err
	for sub := range st.subs {
		sub.deliver(resp, err)
	}
	st.subs = nil
}

// deliver sends the terminal events and closes the channel. The buffer holds
// both events so it never blocks.
func (s *Subscription[T]) deliver(resp *Response[T], err error) {
	if err != nil {
		s.events <- Event[T]{Kind: EventFailed, Err: err}
	} else {
		s.events <- Event[T]{Kind: EventNext, Value: resp}
		s.events <- Event[T]{Kind: EventCompleted}
	}
	close(s.events)
}
