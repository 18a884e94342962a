package subscription

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/billingkit/pkg/razorpay"
)

// Event is the normalized webhook notification handed to callbacks after
// reconciliation. Record carries the post-reconciliation state; Entity is
// the raw provider subscription from the webhook payload.
type Event struct {
	Type   string
	Record *Record
	Entity *razorpay.Subscription
}

// Hooks are the host application's extension points. Every field is
// optional. Authorization and parameter hooks run inline and can veto or
// shape an operation; notification hooks run after persistence and are
// isolated: a panicking or failing notification hook never fails the
// operation that triggered it.
type Hooks struct {
	// AuthorizeReference decides whether the caller may act on behalf of
	// the given reference (user, team, workspace). A nil hook allows only
	// referenceID == principal.ID. Errors deny the request.
	AuthorizeReference func(ctx context.Context, principal Principal, referenceID string) error

	// SubscriptionParams may amend the provider create request, e.g. to
	// add addons or offer IDs. Returned entries merge into params.Extra.
	SubscriptionParams func(ctx context.Context, principal Principal, plan PlanConfig) (map[string]any, error)

	// CustomerParams may amend the provider customer create request.
	CustomerParams func(ctx context.Context, user *User) (map[string]any, error)

	// OnSubscriptionCreated fires after a provider subscription has been
	// created and the local record persisted.
	OnSubscriptionCreated func(ctx context.Context, rec *Record)

	// OnEvent fires for every reconciled webhook event, before the
	// per-type callbacks.
	OnEvent func(ctx context.Context, ev Event)

	// Per-type webhook callbacks.
	OnSubscriptionActivated func(ctx context.Context, ev Event)
	OnSubscriptionCancelled func(ctx context.Context, ev Event)
	OnSubscriptionUpdated   func(ctx context.Context, ev Event)

	// LegacyWebhook receives the raw event name and entity for hosts still
	// migrating off their own webhook plumbing. Runs last.
	LegacyWebhook func(ctx context.Context, eventType string, entity *razorpay.Subscription)
}

// safeHook runs a notification callback with panic isolation. Billing state
// is already persisted by the time callbacks fire, so a broken callback is
// logged and swallowed.
func safeHook(ctx context.Context, log *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "billing hook panicked",
				slog.String("hook", name),
				slog.Any("panic", r),
			)
		}
	}()
	fn()
}
