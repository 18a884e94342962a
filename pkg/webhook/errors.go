package webhook

import "errors"

var (
	ErrInvalidConfiguration = errors.New("invalid webhook configuration")
	ErrInvalidPayload       = errors.New("invalid webhook payload")
	ErrMissingSignature     = errors.New("webhook signature is missing")
	ErrSignatureMismatch    = errors.New("webhook signature mismatch")
)
