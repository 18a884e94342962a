package subscription

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/dmitrymomot/billingkit/pkg/razorpay"
	"github.com/dmitrymomot/billingkit/pkg/webhook"
)

// WebhookResult tells the HTTP layer how to answer the provider. Success
// maps to 200, failure to 400; the provider retries failed deliveries.
type WebhookResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// webhookEnvelope is the provider's delivery shape. Only subscription
// events carry the nested entity this service reconciles against.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Subscription struct {
			Entity *razorpay.Subscription `json:"entity"`
		} `json:"subscription"`
	} `json:"payload"`
}

// webhookTransitions maps handled provider events to the local status they
// produce. Events outside this table are rejected as unhandled so gaps in
// coverage show up in the provider's delivery log instead of vanishing.
var webhookTransitions = map[string]Status{
	"subscription.authenticated": StatusPending,
	"subscription.activated":     StatusActive,
	"subscription.charged":       StatusActive,
	"subscription.paused":        StatusHalted,
	"subscription.resumed":       StatusActive,
	"subscription.pending":       StatusPending,
	"subscription.halted":        StatusHalted,
	"subscription.cancelled":     StatusCancelled,
	"subscription.expired":       StatusExpired,
}

// HandleWebhook verifies and reconciles a provider webhook delivery. The
// signature is checked over the raw body before anything is parsed; a
// delivery that fails verification never touches stored state.
//
// The transition applied is a pure function of the event name and the
// entity in the delivery, not a delta, so replaying a delivery is
// idempotent.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) *WebhookResult {
	if s.cfg.WebhookSecret == "" {
		s.log.ErrorContext(ctx, "webhook received but no webhook secret is configured")
		return s.webhookFailure("webhook processing is not configured")
	}

	if err := webhook.Verify(s.cfg.WebhookSecret, body, signature); err != nil {
		s.log.WarnContext(ctx, "webhook signature verification failed",
			slog.Any("error", err),
		)
		return s.webhookFailure("signature verification failed")
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		s.log.WarnContext(ctx, "webhook body is not valid JSON", slog.Any("error", err))
		return s.webhookFailure("malformed webhook payload")
	}
	if env.Event == "" || env.Payload.Subscription.Entity == nil {
		return s.webhookFailure("payload carries no subscription entity")
	}

	status, handled := webhookTransitions[env.Event]
	if !handled {
		s.log.WarnContext(ctx, "unhandled webhook event", slog.String("event", env.Event))
		return s.webhookFailure("unhandled event: " + env.Event)
	}

	entity := env.Payload.Subscription.Entity
	rec, err := s.store.FindByProviderSubscriptionID(ctx, entity.ID)
	if err != nil {
		s.log.WarnContext(ctx, "webhook for unknown subscription",
			slog.String("event", env.Event),
			slog.String("razorpaySubscriptionId", entity.ID),
		)
		return s.webhookFailure("subscription record not found")
	}

	applyTransition(rec, env.Event, status, entity)
	rec.UpdatedAt = s.now().UTC()
	if rec, err = s.store.Save(ctx, rec); err != nil {
		s.log.ErrorContext(ctx, "webhook reconciliation write failed",
			slog.String("event", env.Event),
			slog.String("subscriptionId", rec.ID),
			slog.Any("error", err),
		)
		return s.webhookFailure("failed to persist subscription state")
	}

	s.log.InfoContext(ctx, "webhook reconciled",
		slog.String("event", env.Event),
		slog.String("subscriptionId", rec.ID),
		slog.String("status", string(rec.Status)),
	)

	s.dispatchEvent(ctx, env.Event, rec, entity)
	return &WebhookResult{Success: true, Message: "processed " + env.Event}
}

// applyTransition writes the event's status onto the record plus the extra
// fields each event carries. Billing period fields only move on the events
// that report a (new) cycle.
func applyTransition(rec *Record, event string, status Status, entity *razorpay.Subscription) {
	rec.Status = status
	switch event {
	case "subscription.authenticated", "subscription.activated":
		rec.PeriodStart = entity.CurrentStartTime()
		rec.PeriodEnd = entity.CurrentEndTime()
	case "subscription.charged":
		rec.PeriodEnd = entity.CurrentEndTime()
	case "subscription.cancelled":
		// The scheduled cancellation is spent.
		rec.CancelAtPeriodEnd = false
	}
}

// dispatchEvent fans a reconciled event out to the host callbacks. Order is
// fixed: the catch-all first, then the per-type callback, then the legacy
// passthrough. Each runs isolated; billing state is already persisted.
func (s *Service) dispatchEvent(ctx context.Context, event string, rec *Record, entity *razorpay.Subscription) {
	ev := Event{Type: event, Record: rec, Entity: entity}

	if s.hooks.OnEvent != nil {
		safeHook(ctx, s.log, "OnEvent", func() { s.hooks.OnEvent(ctx, ev) })
	}

	switch event {
	case "subscription.activated":
		if s.hooks.OnSubscriptionActivated != nil {
			safeHook(ctx, s.log, "OnSubscriptionActivated", func() {
				s.hooks.OnSubscriptionActivated(ctx, ev)
			})
		}
	case "subscription.cancelled":
		if s.hooks.OnSubscriptionCancelled != nil {
			safeHook(ctx, s.log, "OnSubscriptionCancelled", func() {
				s.hooks.OnSubscriptionCancelled(ctx, ev)
			})
		}
	default:
		if s.hooks.OnSubscriptionUpdated != nil {
			safeHook(ctx, s.log, "OnSubscriptionUpdated", func() {
				s.hooks.OnSubscriptionUpdated(ctx, ev)
			})
		}
	}

	if s.hooks.LegacyWebhook != nil {
		safeHook(ctx, s.log, "LegacyWebhook", func() {
			s.hooks.LegacyWebhook(ctx, event, entity)
		})
	}
}

func (s *Service) webhookFailure(message string) *WebhookResult {
	if s.production() {
		message = "webhook rejected"
	}
	return &WebhookResult{Success: false, Message: message}
}
