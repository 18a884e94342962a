// Package billing mounts the subscription service as a chi router: public
// plan listing and the Razorpay webhook receiver, plus session-scoped
// endpoints for creating, listing, cancelling, and restoring subscriptions
// and for client-side payment verification. Responses use a tagged
// success/error envelope with stable machine-readable error codes.
package billing
