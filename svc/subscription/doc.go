// Package subscription is the billing core: it orchestrates the
// subscription lifecycle against Razorpay while keeping a locally-owned
// record of every subscription in the host application's store.
//
// The local record is the application's view; the provider's view arrives
// asynchronously through signed webhooks and is reconciled onto the record
// with last-write-wins semantics. Host applications integrate through
// Hooks (authorization, request shaping, lifecycle notifications) and a
// PlanSource describing the plan catalog.
package subscription
