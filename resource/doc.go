// Package resource provides ready-made dispatcher.Resource implementations.
//
// Funcs bundles three plain functions. JSON encodes an optional request body
// and decodes both the success and the error body as JSON. Raw hands back
// the body bytes unchanged. MessageError is a general-purpose error type
// that extracts a message from the common JSON error shapes.
//
//	res, err := resource.JSON[User, resource.MessageError](http.MethodGet, "/users/1")
//	resp, err := dispatcher.Dispatch(ctx, d, res)
package resource
