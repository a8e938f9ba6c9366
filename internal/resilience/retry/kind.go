package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
)

// Kind classifies a provider failure for retry and fallback decisions.
type Kind int

const (
	// KindUnknown is any failure the adapter could not classify. Not retried.
	KindUnknown Kind = iota
	// KindNetwork covers timeouts, connection failures and 5xx responses. Retried.
	KindNetwork
	// KindRateLimit is a transient per-window throttle (HTTP 429). Retried with backoff.
	KindRateLimit
	// KindQuota means the provider account is exhausted. Terminal for that provider.
	KindQuota
	// KindAuth is a rejected or missing credential. Terminal for that provider.
	KindAuth
)

// String returns the snake_case label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRateLimit:
		return "rate_limit"
	case KindQuota:
		return "quota"
	case KindAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// Classified is implemented by errors that know their own Kind.
type Classified interface {
	ErrorKind() Kind
}

// KindOf classifies err. Errors implementing Classified anywhere in the chain
// win; otherwise timeouts and connection-level failures are Network and
// everything else is Unknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var classified Classified
	if errors.As(err, &classified) {
		return classified.ErrorKind()
	}

	// A per-attempt timeout is a transient failure. Cancellation is not.
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	if errors.Is(err, context.Canceled) {
		return KindUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindNetwork
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return KindNetwork
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindNetwork
	}

	return KindUnknown
}

// KindFromStatus maps an HTTP status code to a Kind.
//
//	429         -> RateLimit
//	401, 403    -> Auth
//	402         -> Quota
//	408, 5xx    -> Network (529 "overloaded" included)
//	anything else -> Unknown
func KindFromStatus(code int) Kind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusPaymentRequired:
		return KindQuota
	case code == http.StatusRequestTimeout:
		return KindNetwork
	case code >= 500 && code < 600:
		return KindNetwork
	default:
		return KindUnknown
	}
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// ErrorKind classifies the error by its status code.
func (e *HTTPError) ErrorKind() Kind {
	return KindFromStatus(e.StatusCode)
}
