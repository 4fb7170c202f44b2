package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/kbukum/httpdispatch/version"
)

// HTTP is a Transport backed by net/http with optional resilience policies.
// Policies run in the order: rate limiter, concurrency limit, circuit
// breaker, retry, attempt.
type HTTP struct {
	client  *http.Client
	config  HTTPConfig
	base    *url.URL
	breaker *gobreaker.CircuitBreaker[*Response]
	limiter *rate.Limiter
	slots   chan struct{}
}

// compile-time assertion
var _ Transport = (*HTTP)(nil)

// Option configures an HTTP transport.
type Option func(*HTTP)

// WithRoundTripper replaces the underlying http.RoundTripper.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(h *HTTP) {
		h.client.Transport = rt
	}
}

// WithCheckRedirect sets the redirect policy of the underlying client.
func WithCheckRedirect(fn func(req *http.Request, via []*http.Request) error) Option {
	return func(h *HTTP) {
		h.client.CheckRedirect = fn
	}
}

// NewHTTP creates a new HTTP transport with the given configuration.
func NewHTTP(cfg HTTPConfig, opts ...Option) (*HTTP, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var tlsCfg *tls.Config
	if cfg.TLS != nil {
		built, err := cfg.TLS.Build()
		if err != nil {
			return nil, err
		}
		tlsCfg = built
	}

	h := &HTTP{
		client: &http.Client{
			Transport: roundTripper(cfg, tlsCfg),
			Timeout:   cfg.Timeout,
		},
		config: cfg,
	}

	if cfg.BaseURL != "" {
		base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("transport: parse base_url: %w", err)
		}
		h.base = base
	}
	if cfg.CircuitBreaker != nil {
		h.breaker = newBreaker(cfg.CircuitBreaker)
	}
	if cfg.RateLimit != nil {
		h.limiter = newLimiter(cfg.RateLimit)
	}
	if cfg.MaxConcurrent > 0 {
		h.slots = make(chan struct{}, cfg.MaxConcurrent)
	}

	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

// Execute performs one exchange. Any status code is a successful exchange;
// only failures to obtain a response are returned as errors.
func (h *HTTP) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, classifyError(ctx, err)
			}
			return nil, NewRateLimitedError(err)
		}
	}

	if h.slots != nil {
		release, err := acquireSlot(ctx, h.slots)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	attempt := func() (*Response, error) {
		return h.doOnce(ctx, req)
	}
	if h.config.Retry != nil {
		inner := attempt
		attempt = func() (*Response, error) {
			return retry(ctx, h.config.Retry, inner)
		}
	}
	if h.breaker != nil {
		return throughBreaker(h.breaker, attempt)
	}
	return attempt()
}

// doOnce builds and sends the HTTP request and reads the whole body.
func (h *HTTP) doOnce(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := h.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyError(ctx, fmt.Errorf("read response body: %w", err))
	}

	finalURL := httpReq.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		URL:        finalURL,
	}, nil
}

// buildRequest constructs an *http.Request from the transport config and request.
func (h *HTTP) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	target, err := h.resolveURL(req.URL)
	if err != nil {
		return nil, NewValidationError("resolve url", err)
	}

	if len(req.Query) > 0 {
		q := target.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, NewValidationError("create request", err)
	}

	for k, v := range h.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", version.UserAgent())
	}
	h.config.Auth.apply(httpReq)

	return httpReq, nil
}

// resolveURL resolves raw against BaseURL unless raw is already absolute.
func (h *HTTP) resolveURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.IsAbs() {
		return u, nil
	}
	if h.base == nil {
		return nil, fmt.Errorf("relative url %q without base_url", raw)
	}
	return h.base.ResolveReference(&url.URL{
		Path:     strings.TrimLeft(u.Path, "/"),
		RawQuery: u.RawQuery,
	}), nil
}

// Name returns the configured transport name.
func (h *HTTP) Name() string {
	return h.config.Name
}

// IsAvailable reports false while the circuit breaker is open.
func (h *HTTP) IsAvailable(_ context.Context) bool {
	if h.breaker == nil {
		return true
	}
	return h.breaker.State() != gobreaker.StateOpen
}

// BreakerState returns the circuit breaker state name, or "disabled".
func (h *HTTP) BreakerState() string {
	if h.breaker == nil {
		return "disabled"
	}
	return h.breaker.State().String()
}

// Close releases idle connections.
func (h *HTTP) Close(_ context.Context) error {
	h.client.CloseIdleConnections()
	return nil
}

// Config returns the transport's effective configuration.
func (h *HTTP) Config() HTTPConfig {
	return h.config
}

func httpStatusText(code int) string {
	return strconv.Itoa(code) + " " + http.StatusText(code)
}
