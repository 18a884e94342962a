package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SignatureHeader is the HTTP header Razorpay uses to deliver the
// hex-encoded HMAC-SHA256 signature of the raw webhook body.
const SignatureHeader = "X-Razorpay-Signature"

// Sign computes the hex-encoded HMAC-SHA256 signature of payload.
// The payload must be the exact raw request body; signing a re-serialized
// form of the body produces a different signature.
func Sign(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify validates a webhook signature against the raw request body.
// Uses constant-time comparison to prevent timing-based attacks.
func Verify(secret string, payload []byte, signature string) error {
	if secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	if signature == "" {
		return fmt.Errorf("%w: signature header is missing", ErrMissingSignature)
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}

	expected := Sign(secret, payload)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

// SignPayment computes the signature Razorpay expects for subscription
// payment verification: HMAC-SHA256 over "{payment_id}|{subscription_id}"
// keyed by the API secret, hex-encoded.
func SignPayment(secret, paymentID, subscriptionID string) string {
	return Sign(secret, []byte(paymentID+"|"+subscriptionID))
}

// VerifyPayment validates a client-supplied payment signature.
func VerifyPayment(secret, paymentID, subscriptionID, signature string) error {
	if secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	if paymentID == "" || subscriptionID == "" {
		return fmt.Errorf("%w: payment and subscription IDs are required", ErrInvalidPayload)
	}
	if signature == "" {
		return fmt.Errorf("%w: signature is missing", ErrMissingSignature)
	}

	expected := SignPayment(secret, paymentID, subscriptionID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}
