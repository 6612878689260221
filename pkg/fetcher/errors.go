package fetcher

import (
	"errors"
	"fmt"
)

// Common errors returned by the fetcher.
var (
	// ErrRateLimitRetriesExhausted is returned when a configured 429
	// retry cap is exceeded for a single page.
	ErrRateLimitRetriesExhausted = errors.New("rate limit retries exhausted")

	// ErrCancelled is returned when the context is cancelled during a
	// sleep or backoff.
	ErrCancelled = errors.New("fetch cancelled")
)

// ErrorClass classifies fetch failures for metrics and logging.
type ErrorClass string

const (
	// ErrorClassTransport represents connection, DNS and timeout errors.
	ErrorClassTransport ErrorClass = "transport"

	// ErrorClassHTTP represents non-429 4xx/5xx responses.
	ErrorClassHTTP ErrorClass = "http"

	// ErrorClassRateLimit represents HTTP 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassDecode represents undecodable response bodies.
	ErrorClassDecode ErrorClass = "decode"
)

// TransportError wraps a network-level failure. Transport errors are
// never retried.
type TransportError struct {
	Page int
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request failed on page %d: %v", e.Page, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError wraps a non-2xx response. A 429 never surfaces as an
// HTTPError unless the configured retry cap is exceeded.
type HTTPError struct {
	Page       int
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http error on page %d: status %d", e.Page, e.StatusCode)
	}
	return fmt.Sprintf("http error on page %d: status %d: %s", e.Page, e.StatusCode, e.Body)
}
