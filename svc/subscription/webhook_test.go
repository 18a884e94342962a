package subscription_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/razorpay"
	"github.com/dmitrymomot/billingkit/pkg/webhook"
	"github.com/dmitrymomot/billingkit/svc/subscription"
)

func webhookBody(t *testing.T, event, subID, status string, currentEnd int64) []byte {
	t.Helper()
	entity := map[string]any{
		"id":     subID,
		"status": status,
	}
	if currentEnd > 0 {
		entity["current_start"] = currentEnd - 30*24*3600
		entity["current_end"] = currentEnd
	}
	body, err := json.Marshal(map[string]any{
		"event": event,
		"payload": map[string]any{
			"subscription": map[string]any{"entity": entity},
		},
	})
	require.NoError(t, err)
	return body
}

func deliver(env *testEnv, body []byte) *subscription.WebhookResult {
	sig := webhook.Sign(testConfig().WebhookSecret, body)
	return env.svc.HandleWebhook(context.Background(), body, sig)
}

func TestHandleWebhook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("activates subscription and fires callbacks", func(t *testing.T) {
		t.Parallel()
		var gotEvent, gotActivated bool
		env := newTestEnv(t, testConfig(), subscription.WithHooks(subscription.Hooks{
			OnEvent: func(_ context.Context, ev subscription.Event) {
				gotEvent = true
				assert.Equal(t, "subscription.activated", ev.Type)
			},
			OnSubscriptionActivated: func(_ context.Context, ev subscription.Event) {
				gotActivated = true
				assert.Equal(t, subscription.StatusActive, ev.Record.Status)
			},
		}))
		id := subscribe(t, env)
		rec, err := env.store.FindByID(ctx, id)
		require.NoError(t, err)

		res := deliver(env, webhookBody(t, "subscription.activated", rec.RazorpaySubscriptionID, "active", 1770000000))
		assert.True(t, res.Success)

		rec, err = env.store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, rec.Status)
		require.NotNil(t, rec.PeriodEnd)
		assert.Equal(t, int64(1770000000), rec.PeriodEnd.Unix())
		assert.True(t, gotEvent)
		assert.True(t, gotActivated)
	})

	t.Run("invalid signature mutates nothing", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		id := subscribe(t, env)
		rec, err := env.store.FindByID(ctx, id)
		require.NoError(t, err)

		body := webhookBody(t, "subscription.activated", rec.RazorpaySubscriptionID, "active", 0)
		res := env.svc.HandleWebhook(ctx, body, "deadbeef")
		assert.False(t, res.Success)

		rec, err = env.store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCreated, rec.Status)
	})

	t.Run("missing webhook secret rejects delivery", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.WebhookSecret = ""
		env := newTestEnv(t, cfg)

		body := webhookBody(t, "subscription.activated", "sub_x", "active", 0)
		res := env.svc.HandleWebhook(ctx, body, webhook.Sign("whatever", body))
		assert.False(t, res.Success)
	})

	t.Run("replay is idempotent", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		id := subscribe(t, env)
		rec, err := env.store.FindByID(ctx, id)
		require.NoError(t, err)

		body := webhookBody(t, "subscription.charged", rec.RazorpaySubscriptionID, "active", 1770000000)
		require.True(t, deliver(env, body).Success)
		first, err := env.store.FindByID(ctx, id)
		require.NoError(t, err)

		require.True(t, deliver(env, body).Success)
		second, err := env.store.FindByID(ctx, id)
		require.NoError(t, err)

		assert.Equal(t, first.Status, second.Status)
		assert.Equal(t, first.PeriodEnd, second.PeriodEnd)

		recs, err := env.store.ListByReference(ctx, "user-1")
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("cancellation clears the scheduled flag", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		id := subscribe(t, env)
		_, err := env.svc.Cancel(ctx, testPrincipal(), subscription.CancelParams{SubscriptionID: id})
		require.NoError(t, err)

		rec, err := env.store.FindByID(ctx, id)
		require.NoError(t, err)
		require.True(t, rec.CancelAtPeriodEnd)

		res := deliver(env, webhookBody(t, "subscription.cancelled", rec.RazorpaySubscriptionID, "cancelled", 0))
		assert.True(t, res.Success)

		rec, err = env.store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCancelled, rec.Status)
		assert.False(t, rec.CancelAtPeriodEnd)
	})

	t.Run("event without a subscription entity is rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())

		body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1"}}}}`)
		res := env.svc.HandleWebhook(ctx, body, webhook.Sign(testConfig().WebhookSecret, body))
		assert.False(t, res.Success)
	})

	t.Run("untracked subscription is rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())

		res := deliver(env, webhookBody(t, "subscription.activated", "sub_untracked", "active", 0))
		assert.False(t, res.Success)
	})

	t.Run("unhandled event is rejected without mutation", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		id := subscribe(t, env)
		rec, err := env.store.FindByID(ctx, id)
		require.NoError(t, err)

		res := deliver(env, webhookBody(t, "subscription.updated", rec.RazorpaySubscriptionID, "active", 0))
		assert.False(t, res.Success)

		rec, err = env.store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCreated, rec.Status)
	})

	t.Run("pause and resume transitions", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		id := subscribe(t, env)
		rec, err := env.store.FindByID(ctx, id)
		require.NoError(t, err)

		require.True(t, deliver(env, webhookBody(t, "subscription.paused", rec.RazorpaySubscriptionID, "paused", 0)).Success)
		rec, err = env.store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusHalted, rec.Status)

		require.True(t, deliver(env, webhookBody(t, "subscription.resumed", rec.RazorpaySubscriptionID, "active", 0)).Success)
		rec, err = env.store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, rec.Status)
	})

	t.Run("panicking callback does not fail delivery", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig(), subscription.WithHooks(subscription.Hooks{
			OnEvent: func(context.Context, subscription.Event) {
				panic("broken host callback")
			},
		}))
		id := subscribe(t, env)
		rec, err := env.store.FindByID(ctx, id)
		require.NoError(t, err)

		res := deliver(env, webhookBody(t, "subscription.activated", rec.RazorpaySubscriptionID, "active", 0))
		assert.True(t, res.Success)

		rec, err = env.store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, rec.Status)
	})

	t.Run("legacy passthrough receives the raw entity", func(t *testing.T) {
		t.Parallel()
		var gotEvent, gotID string
		env := newTestEnv(t, testConfig(), subscription.WithHooks(subscription.Hooks{
			LegacyWebhook: func(_ context.Context, event string, entity *razorpay.Subscription) {
				gotEvent = event
				gotID = entity.ID
			},
		}))
		id := subscribe(t, env)
		rec, err := env.store.FindByID(ctx, id)
		require.NoError(t, err)

		res := deliver(env, webhookBody(t, "subscription.charged", rec.RazorpaySubscriptionID, "active", 0))
		assert.True(t, res.Success)
		assert.Equal(t, "subscription.charged", gotEvent)
		assert.Equal(t, rec.RazorpaySubscriptionID, gotID)
	})
}

func TestVerifyPayment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("valid signature returns the payment snapshot and refreshes the record", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		id := subscribe(t, env)
		rec, err := env.store.FindByID(ctx, id)
		require.NoError(t, err)

		env.api.fetchFn = func(subID string) (*razorpay.Subscription, error) {
			return &razorpay.Subscription{ID: subID, Status: "active"}, nil
		}
		env.api.paymentFn = func(paymentID string) (*razorpay.Payment, error) {
			return &razorpay.Payment{ID: paymentID, Status: "captured", Amount: 99900, Currency: "INR"}, nil
		}

		sig := webhook.SignPayment(testConfig().KeySecret, "pay_1", rec.RazorpaySubscriptionID)
		res, err := env.svc.VerifyPayment(ctx, subscription.VerifyPaymentParams{
			PaymentID:      "pay_1",
			SubscriptionID: rec.RazorpaySubscriptionID,
			Signature:      sig,
		})
		require.NoError(t, err)
		assert.Equal(t, "pay_1", res.PaymentID)
		assert.Equal(t, rec.RazorpaySubscriptionID, res.SubscriptionID)
		assert.Equal(t, int64(99900), res.Amount)
		assert.Equal(t, "INR", res.Currency)

		rec, err = env.store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, rec.Status)
	})

	t.Run("invalid signature is rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		id := subscribe(t, env)
		rec, err := env.store.FindByID(ctx, id)
		require.NoError(t, err)

		_, err = env.svc.VerifyPayment(ctx, subscription.VerifyPaymentParams{
			PaymentID:      "pay_1",
			SubscriptionID: rec.RazorpaySubscriptionID,
			Signature:      "deadbeef",
		})
		assert.Equal(t, subscription.CodeSignatureVerificationFailed, codeOf(t, err))
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())

		_, err := env.svc.VerifyPayment(ctx, subscription.VerifyPaymentParams{PaymentID: "pay_1"})
		assert.Equal(t, subscription.CodeInvalidRequest, codeOf(t, err))
	})

	t.Run("verified payment for untracked subscription still succeeds", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())

		sig := webhook.SignPayment(testConfig().KeySecret, "pay_1", "sub_untracked")
		res, err := env.svc.VerifyPayment(ctx, subscription.VerifyPaymentParams{
			PaymentID:      "pay_1",
			SubscriptionID: "sub_untracked",
			Signature:      sig,
		})
		require.NoError(t, err)
		assert.Equal(t, "sub_untracked", res.SubscriptionID)
	})
}
