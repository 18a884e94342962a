package subscription_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/billingkit/svc/subscription"
)

func TestStatusFromProvider(t *testing.T) {
	t.Parallel()

	cases := map[string]subscription.Status{
		"created":       subscription.StatusCreated,
		"authenticated": subscription.StatusPending,
		"active":        subscription.StatusActive,
		"pending":       subscription.StatusPending,
		"halted":        subscription.StatusHalted,
		"paused":        subscription.StatusHalted,
		"resumed":       subscription.StatusActive,
		"cancelled":     subscription.StatusCancelled,
		"completed":     subscription.StatusCompleted,
		"expired":       subscription.StatusExpired,
		"brand_new":     subscription.StatusPending,
		"":              subscription.StatusPending,
	}
	for provider, want := range cases {
		assert.Equal(t, want, subscription.StatusFromProvider(provider), "provider status %q", provider)
	}
}

func TestStatusLive(t *testing.T) {
	t.Parallel()

	live := []subscription.Status{
		subscription.StatusActive,
		subscription.StatusTrialing,
		subscription.StatusPending,
		subscription.StatusCreated,
		subscription.StatusHalted,
	}
	for _, s := range live {
		assert.True(t, s.Live(), "%s should be live", s)
	}

	dead := []subscription.Status{
		subscription.StatusCancelled,
		subscription.StatusCompleted,
		subscription.StatusExpired,
	}
	for _, s := range dead {
		assert.False(t, s.Live(), "%s should not be live", s)
	}
}

func TestRecordPredicates(t *testing.T) {
	t.Parallel()

	t.Run("live paid requires a provider link", func(t *testing.T) {
		t.Parallel()
		rec := &subscription.Record{Status: subscription.StatusActive}
		assert.False(t, rec.IsLivePaid())

		rec.RazorpaySubscriptionID = "sub_1"
		assert.True(t, rec.IsLivePaid())

		rec.Status = subscription.StatusCancelled
		assert.False(t, rec.IsLivePaid())
	})

	t.Run("local trial has no provider link", func(t *testing.T) {
		t.Parallel()
		rec := &subscription.Record{Status: subscription.StatusTrialing}
		assert.True(t, rec.IsLocalTrial())

		rec.RazorpaySubscriptionID = "sub_1"
		assert.False(t, rec.IsLocalTrial())
	})

	t.Run("trial expiry", func(t *testing.T) {
		t.Parallel()
		now := time.Now().UTC()
		past := now.Add(-time.Hour)
		future := now.Add(time.Hour)

		assert.False(t, (&subscription.Record{}).IsTrialExpired(now))
		assert.False(t, (&subscription.Record{TrialEnd: &future}).IsTrialExpired(now))
		assert.True(t, (&subscription.Record{TrialEnd: &past}).IsTrialExpired(now))
	})
}
