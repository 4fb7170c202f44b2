// Package dispatcher executes typed HTTP resources and classifies the
// outcome.
//
// A Resource describes one operation: how to build the request, how to parse
// a 2xx body into T and how to parse any other body into E. The dispatcher
// runs the request through a transport.Transport exactly once and returns
// either a Response[T] or a *Error of one of four kinds: transport failure,
// parse failure, invalid response or server error.
//
// Three consumption shapes share the same algorithm:
//
//	// blocking
//	resp, err := dispatcher.Dispatch(ctx, d, res)
//
//	// single-value task
//	task := dispatcher.Go(ctx, d, res)
//	resp, err := task.Await(ctx)
//
//	// lazy multi-subscriber stream; one call no matter how many subscribers
//	stream := dispatcher.Publish(ctx, d, res)
//	for ev := range stream.Subscribe().Events() {
//	    ...
//	}
//
// Cancelling the context, the task, or every subscription of a stream
// cancels the in-flight transport call.
package dispatcher
