// Package srcom provides an HTTP client for the speedrun.com v1 API with
// automatic retry, rate limiting, and failure classification.
package srcom

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure kinds. The engine branches on kinds, never on message text.
type Kind int

const (
	// KindTransient covers timeouts, connection failures, 5xx responses, and
	// rate limiting. The client retries these internally; callers only see
	// them wrapped in a retries-exhausted error.
	KindTransient Kind = iota
	// KindNotFound is a 404/410-class response. Not an error for engine
	// purposes; it drives obsolescence of tracked runs.
	KindNotFound
	// KindPermanent is any other 4xx status. Not retried.
	KindPermanent
	// KindMalformed is a response body that failed to decode. Not retried.
	KindMalformed
	// KindRetriesExhausted is a transient failure that outlived all retries.
	KindRetriesExhausted
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not_found"
	case KindPermanent:
		return "permanent"
	case KindMalformed:
		return "malformed"
	case KindRetriesExhausted:
		return "retries_exhausted"
	default:
		return "unknown"
	}
}

// Sentinel errors for failure classification.
// Use errors.Is(err, srcom.ErrNotFound) to check.
var (
	ErrNotFound         = errors.New("srcom: not found")
	ErrRateLimited      = errors.New("srcom: rate limited")
	ErrServerError      = errors.New("srcom: server error")
	ErrBadRequest       = errors.New("srcom: bad request")
	ErrMalformed        = errors.New("srcom: malformed response")
	ErrRetriesExhausted = errors.New("srcom: retries exhausted")
)

// APIError wraps a sentinel error with the HTTP status code, the requested
// URL, and the failure kind for diagnostics.
type APIError struct {
	StatusCode int
	URL        string
	Kind       Kind
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("srcom: HTTP %d (%s): %s", e.StatusCode, e.Kind, e.URL)
	}

	return fmt.Sprintf("srcom: %s (%s): %s", e.Err, e.Kind, e.URL)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Classify returns the failure kind of any error produced by this package.
// Unrecognized errors classify as transient so callers treat them as
// one-off failures rather than data problems.
func Classify(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrMalformed):
		return KindMalformed
	case errors.Is(err, ErrRetriesExhausted):
		return KindRetriesExhausted
	case errors.Is(err, ErrBadRequest):
		return KindPermanent
	default:
		return KindTransient
	}
}

// statusRateLimited reports whether the status is a rate-limit response.
// 420 is the legacy "Enhance Your Calm" code speedrun.com used before 429.
func statusRateLimited(code int) bool {
	const statusEnhanceYourCalm = 420
	return code == http.StatusTooManyRequests || code == statusEnhanceYourCalm
}

// statusRetryable reports whether the status should be retried.
func statusRetryable(code int) bool {
	if statusRateLimited(code) {
		return true
	}

	switch code {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// classifyStatus maps a non-2xx HTTP status to a sentinel error.
func classifyStatus(code int) error {
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return ErrNotFound
	case statusRateLimited(code):
		return ErrRateLimited
	case code >= http.StatusInternalServerError:
		return ErrServerError
	default:
		return ErrBadRequest
	}
}

// kindForStatus maps a terminal (non-retried) HTTP status to a failure kind.
func kindForStatus(code int) Kind {
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return KindNotFound
	case statusRetryable(code):
		return KindTransient
	default:
		return KindPermanent
	}
}
