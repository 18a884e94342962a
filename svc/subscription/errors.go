package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/billingkit/pkg/razorpay"
)

// Code identifies a stable, machine-readable error category surfaced to
// API consumers.
type Code string

const (
	CodeInvalidRequest              Code = "INVALID_REQUEST"
	CodeUnauthorized                Code = "UNAUTHORIZED"
	CodeForbidden                   Code = "FORBIDDEN"
	CodeUserNotFound                Code = "USER_NOT_FOUND"
	CodePlanNotFound                Code = "PLAN_NOT_FOUND"
	CodeSubscriptionNotFound        Code = "SUBSCRIPTION_NOT_FOUND"
	CodeSubscriptionDisabled        Code = "SUBSCRIPTION_DISABLED"
	CodeAlreadySubscribed           Code = "ALREADY_SUBSCRIBED"
	CodeInvalidState                Code = "INVALID_STATE"
	CodeSignatureVerificationFailed Code = "SIGNATURE_VERIFICATION_FAILED"
	CodeNetworkError                Code = "NETWORK_ERROR"
	CodeTimeoutError                Code = "TIMEOUT_ERROR"
	CodeRazorpayError               Code = "RAZORPAY_ERROR"
	CodeUnknownError                Code = "UNKNOWN_ERROR"
)

// Error is the tagged failure shape every orchestrator entry point returns.
// Meta carries debugging context which is stripped from production
// responses.
type Error struct {
	Code        Code
	Description string
	Meta        map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// E creates a typed error.
func E(code Code, description string) *Error {
	return &Error{Code: code, Description: description}
}

// WithMeta attaches a debugging detail and returns the error for chaining.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

// Classify maps any failure to a typed *Error. Matching runs in priority
// order: already-typed errors pass through, then the tagged provider
// variants produced at the client boundary, then context failures, then an
// unconditional fallback. Every endpoint therefore answers with the tagged
// error envelope instead of leaking a raw failure.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	var netErr *razorpay.NetworkError
	if errors.As(err, &netErr) {
		return E(CodeNetworkError, "could not reach the payment provider").
			WithMeta("cause", netErr.Err.Error())
	}

	var timeoutErr *razorpay.TimeoutError
	if errors.As(err, &timeoutErr) {
		return E(CodeTimeoutError, "the payment provider did not respond in time").
			WithMeta("cause", timeoutErr.Err.Error())
	}

	var apiErr *razorpay.APIError
	if errors.As(err, &apiErr) {
		e := E(CodeRazorpayError, apiErr.Description)
		if apiErr.Code != "" {
			e.WithMeta("providerCode", apiErr.Code)
		}
		if apiErr.NotFound() {
			e.WithMeta("providerNotFound", true)
		}
		return e
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return E(CodeTimeoutError, "operation timed out").WithMeta("cause", err.Error())
	}

	return E(CodeUnknownError, err.Error())
}
