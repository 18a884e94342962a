// Package razorpay wraps the official Razorpay Go SDK behind a narrow,
// typed API surface.
//
// The SDK exchanges map[string]any payloads; this package decodes them into
// typed entities and translates raw SDK failures into a closed set of
// tagged error variants (*APIError, *NetworkError, *TimeoutError) at the
// boundary, so downstream error handling is an exhaustive match instead of
// structural sniffing.
package razorpay
