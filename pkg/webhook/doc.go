// Package webhook implements the signature schemes used by Razorpay for
// webhook deliveries and client-side payment verification.
//
// Webhook deliveries carry a hex-encoded HMAC-SHA256 of the raw request
// body in the X-Razorpay-Signature header. Verification must run over the
// exact bytes received on the wire: parsing and re-serializing the body
// before verification opens a parser-divergence bypass.
//
//	body, _ := io.ReadAll(r.Body)
//	if err := webhook.Verify(secret, body, r.Header.Get(webhook.SignatureHeader)); err != nil {
//		// reject before touching the payload
//	}
//
// Payment verification signs the string "{payment_id}|{subscription_id}"
// with the API key secret.
package webhook
