package transport

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// statusFailure carries a response whose status counts as a failure for the
// breaker and the retry loop. It never leaves this package: callers get the
// response back.
type statusFailure struct {
	resp *Response
}

func (e *statusFailure) Error() string {
	return "transport: failure status " + httpStatusText(e.resp.StatusCode)
}

func newBreaker(cfg *CircuitBreakerConfig) *gobreaker.CircuitBreaker[*Response] {
	return gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenMaxCalls,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: cfg.OnStateChange,
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about the remote's health.
			return err == nil || IsCanceled(err)
		},
	})
}

func newLimiter(cfg *RateLimitConfig) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)
}

// throughBreaker runs fn through the breaker, counting 5xx responses as
// failures while still handing them back to the caller.
func throughBreaker(cb *gobreaker.CircuitBreaker[*Response], fn func() (*Response, error)) (*Response, error) {
	resp, err := cb.Execute(func() (*Response, error) {
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		if isServerStatus(resp.StatusCode) {
			return nil, &statusFailure{resp: resp}
		}
		return resp, nil
	})
	var sf *statusFailure
	if errors.As(err, &sf) {
		return sf.resp, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, NewCircuitOpenError(err)
	}
	return resp, err
}

// retry runs fn up to cfg.MaxAttempts times. Retryable transport errors and
// retryable statuses are retried with exponential backoff. When attempts are
// exhausted on a status, the last response is returned without an error.
func retry(ctx context.Context, cfg *RetryConfig, fn func() (*Response, error)) (*Response, error) {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, classifyError(ctx, err)
		}

		resp, err := fn()
		switch {
		case err == nil && !cfg.RetryOnStatus(resp.StatusCode):
			return resp, nil
		case err == nil:
			lastErr = &statusFailure{resp: resp}
		case !cfg.RetryIf(err):
			return nil, err
		default:
			lastErr = err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		backoff := calculateBackoff(attempt, cfg)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, classifyError(ctx, ctx.Err())
		case <-timer.C:
		}
	}

	var sf *statusFailure
	if errors.As(lastErr, &sf) {
		return sf.resp, nil
	}
	return nil, lastErr
}

// calculateBackoff returns initial * factor^(attempt-1) with jitter, capped
// at MaxBackoff.
func calculateBackoff(attempt int, cfg *RetryConfig) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(attempt-1))

	if cfg.Jitter > 0 {
		jitterRange := backoff * cfg.Jitter
		backoff += (rand.Float64()*2 - 1) * jitterRange
	}
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	if backoff < 0 {
		backoff = float64(cfg.InitialBackoff)
	}
	return time.Duration(backoff)
}

// acquireSlot blocks until a concurrency slot is free or ctx is done.
func acquireSlot(ctx context.Context, slots chan struct{}) (func(), error) {
	select {
	case slots <- struct{}{}:
		return func() { <-slots }, nil
	case <-ctx.Done():
		return nil, classifyError(ctx, ctx.Err())
	}
}
