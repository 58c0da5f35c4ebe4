// Package errors provides error classification and bounded retry for the
// candle exporter. Transient failures (network errors, rate limiting, server
// errors) are retried with a fixed delay; permanent failures (client errors,
// malformed data) stop immediately.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Type represents the classification of an error.
type Type string

const (
	// Retryable error types
	TypeNetwork     Type = "network"      // Network connectivity issues
	TypeTimeout     Type = "timeout"      // Request or context timeout
	TypeRateLimit   Type = "rate_limit"   // HTTP 429 from the exchange
	TypeServerError Type = "server_error" // HTTP 5xx from the exchange

	// Non-retryable error types
	TypeBadRequest Type = "bad_request" // HTTP 4xx other than 429
	TypeValidation Type = "validation"  // Malformed response data
	TypeConfig     Type = "config"      // Configuration errors, fatal before fetching

	TypeUnknown Type = "unknown" // Unclassified, treated as retryable
)

// HTTPError wraps a non-2xx exchange response with its status code so the
// retry layer can distinguish transient from permanent failures.
type HTTPError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http error: status %d", e.Status)
	}
	return fmt.Sprintf("http error: status %d: %s", e.Status, e.Body)
}

// ValidationError marks a response that came back 2xx but could not be
// decoded. Retrying will not help.
type ValidationError struct {
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ClassifyHTTPStatus maps an HTTP status code to an error type.
func ClassifyHTTPStatus(status int) Type {
	switch {
	case status == http.StatusTooManyRequests:
		return TypeRateLimit
	case status >= 500:
		return TypeServerError
	case status >= 400:
		return TypeBadRequest
	default:
		return TypeUnknown
	}
}

// Classify determines the error type from the error content.
func Classify(err error) Type {
	if err == nil {
		return TypeUnknown
	}

	var httpErr *HTTPError
	if stderrors.As(err, &httpErr) {
		return ClassifyHTTPStatus(httpErr.Status)
	}

	var validationErr *ValidationError
	if stderrors.As(err, &validationErr) {
		return TypeValidation
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return TypeTimeout
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		if netErr.Timeout() {
			return TypeTimeout
		}
		return TypeNetwork
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded"):
		return TypeTimeout
	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no route to host") ||
		strings.Contains(errStr, "network unreachable"):
		return TypeNetwork
	case strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "too many requests"):
		return TypeRateLimit
	}

	return TypeUnknown
}

// IsRetryable reports whether a failed operation is worth retrying.
// Unclassified errors are treated as retryable so that unrecognized transport
// failures still get their bounded attempts.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	switch Classify(err) {
	case TypeNetwork, TypeTimeout, TypeRateLimit, TypeServerError, TypeUnknown:
		return true
	default:
		return false
	}
}

// RetryPolicy is a bounded fixed-delay retry: an operation is attempted up to
// MaxAttempts times total, waiting Delay between attempts. Loaded once from
// configuration and shared read-only by all fetch operations.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Execute runs op under the policy. Non-retryable errors and context
// cancellation stop immediately; otherwise op is retried with the fixed
// delay until it succeeds or attempts are exhausted. The returned error is
// the last error op produced.
func (p RetryPolicy) Execute(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	wrapped := func() error {
		err := op()
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1))
	return backoff.Retry(wrapped, backoff.WithContext(policy, ctx))
}
