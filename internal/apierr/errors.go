// Package apierr provides shared error sentinels, HTTP status classification,
// and retry infrastructure for the generation backends. Provider-specific
// failures are mapped onto these sentinels at the adapter boundary so the
// rest of the pipeline only ever checks errors.Is(err, apierr.ErrTimeout) etc.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for backend interaction failures.
var (
	// ErrRateLimit indicates the backend rate limit was exceeded (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the backend quota was exceeded (billing issue, not retryable).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a request timed out, either at the backend or at the call site.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates authentication failed (invalid key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")

	// ErrModelNotFound indicates the requested model is unknown to the backend.
	ErrModelNotFound = errors.New("model not found")

	// ErrServer indicates a 5xx response (transient, retryable).
	ErrServer = errors.New("server error")

	// ErrEmptyResponse indicates the backend answered without any content.
	ErrEmptyResponse = errors.New("empty response")
)

// ClassifyStatus maps an HTTP status code and backend message to a sentinel.
// Returns nil for 2xx codes.
func ClassifyStatus(status int, msg string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", msg, ErrRateLimit)
	case status == http.StatusPaymentRequired:
		return fmt.Errorf("%s: %w", msg, ErrQuotaExceeded)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%s: %w", msg, ErrAuthFailed)
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, ErrModelNotFound)
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w", msg, ErrTimeout)
	case status >= 500:
		return fmt.Errorf("%s (HTTP %d): %w", msg, status, ErrServer)
	default:
		return fmt.Errorf("%s (HTTP %d): %w", msg, status, ErrBadRequest)
	}
}

// IsRetryable reports whether err is transient.
// Rate limits, timeouts and 5xx responses are retried; everything else,
// including caller cancellation, is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServer)
}
