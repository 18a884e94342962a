package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// APIError is a provider-side rejection: the request reached Razorpay and
// was answered with an error envelope. Code carries the provider's own
// error code when the envelope included one.
type APIError struct {
	Code        string
	Description string
	Status      int
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("razorpay: %s (%s)", e.Description, e.Code)
	}
	return "razorpay: " + e.Description
}

// NotFound reports whether the provider answered with a missing-resource
// error. Used to redact identifying detail in production responses.
func (e *APIError) NotFound() bool {
	if e.Status == 404 {
		return true
	}
	return strings.Contains(strings.ToLower(e.Description), "does not exist") ||
		strings.Contains(strings.ToLower(e.Description), "not found")
}

// NetworkError is a transport-level failure: the request never produced a
// provider response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "razorpay: network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError is a deadline or cancellation failure.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string { return "razorpay: timeout: " + e.Err.Error() }
func (e *TimeoutError) Unwrap() error { return e.Err }

// errorEnvelope matches the provider's error response body:
// {"error":{"code":"BAD_REQUEST_ERROR","description":"..."}}.
type errorEnvelope struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Field       string `json:"field"`
	} `json:"error"`
}

// translateError maps raw SDK failures into the closed set of tagged error
// variants at the client boundary, so callers classify with errors.As
// instead of structural sniffing.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TimeoutError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &NetworkError{Err: err}
	}

	// The SDK surfaces non-2xx responses as errors carrying the raw
	// response body. Recover the provider's error envelope when present.
	if env, ok := parseErrorEnvelope(err.Error()); ok {
		return &APIError{Code: env.Error.Code, Description: env.Error.Description}
	}

	return &APIError{Description: err.Error()}
}

func parseErrorEnvelope(msg string) (*errorEnvelope, bool) {
	start := strings.Index(msg, "{")
	if start < 0 {
		return nil, false
	}
	var env errorEnvelope
	if err := json.Unmarshal([]byte(msg[start:]), &env); err != nil {
		return nil, false
	}
	if env.Error.Code == "" && env.Error.Description == "" {
		return nil, false
	}
	return &env, true
}
