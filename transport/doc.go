// Package transport performs single HTTP exchanges for the dispatcher.
//
// A Transport takes a Request description and returns the raw Response
// (status code, headers, body, final URL) or an error when no response was
// received. HTTP is the net/http implementation; it owns connection reuse,
// TLS, authentication and optional resilience policies (rate limiting,
// concurrency limiting, circuit breaking, retry).
//
// # Basic Usage
//
//	t, err := transport.NewHTTP(transport.HTTPConfig{
//	    BaseURL: "https://api.example.com",
//	    Timeout: 10 * time.Second,
//	    Auth:    transport.BearerAuth("token"),
//	})
//
//	resp, err := t.Execute(ctx, &transport.Request{Method: http.MethodGet, URL: "/users/1"})
//
// # Middleware
//
//	wrapped := transport.Chain(
//	    transport.WithRequestID(""),
//	    transport.WithLogging(log),
//	    transport.WithTracing("billing"),
//	)(t)
package transport
