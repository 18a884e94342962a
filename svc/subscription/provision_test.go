package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/razorpay"
	"github.com/dmitrymomot/billingkit/svc/subscription"
)

func TestOnSignUp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	signUpUser := func() *subscription.User {
		return &subscription.User{ID: "user-1", Name: "Ada Lovelace", Email: "ada@example.com"}
	}

	t.Run("provisions customer and trial", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.CreateCustomerOnSignUp = true
		cfg.TrialPlan = "Starter"
		env := newTestEnv(t, cfg)

		env.svc.OnSignUp(ctx, signUpUser())
		assert.Equal(t, 1, env.api.customerCreates)

		recs, err := env.store.ListByReference(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, recs, 1)
		rec := recs[0]
		assert.Equal(t, subscription.StatusTrialing, rec.Status)
		assert.Equal(t, "Starter", rec.Plan)
		assert.Empty(t, rec.RazorpaySubscriptionID)
		require.NotNil(t, rec.TrialEnd)
		assert.WithinDuration(t, time.Now().Add(14*24*time.Hour), *rec.TrialEnd, time.Minute)
	})

	t.Run("no trial plan configured", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())

		env.svc.OnSignUp(ctx, signUpUser())
		assert.Equal(t, 0, env.api.customerCreates)

		recs, err := env.store.ListByReference(ctx, "user-1")
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("trial plan without trial days", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.CreateCustomerOnSignUp = true
		cfg.TrialPlan = "Pro"
		env := newTestEnv(t, cfg)

		env.svc.OnSignUp(ctx, signUpUser())

		recs, err := env.store.ListByReference(ctx, "user-1")
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("no second trial for a user with billing history", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.CreateCustomerOnSignUp = true
		cfg.TrialPlan = "Starter"
		env := newTestEnv(t, cfg)

		_, err := env.store.Create(ctx, &subscription.Record{
			ID:          "old-1",
			Plan:        "Starter",
			ReferenceID: "user-1",
			Status:      subscription.StatusCancelled,
		})
		require.NoError(t, err)

		env.svc.OnSignUp(ctx, signUpUser())

		recs, err := env.store.ListByReference(ctx, "user-1")
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("provider failure never breaks sign up", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.CreateCustomerOnSignUp = true
		cfg.TrialPlan = "Starter"
		env := newTestEnv(t, cfg)
		env.api.customerFn = func(razorpay.CustomerCreateParams) (*razorpay.Customer, error) {
			return nil, &razorpay.NetworkError{Err: errors.New("connection refused")}
		}

		assert.NotPanics(t, func() { env.svc.OnSignUp(ctx, signUpUser()) })

		// The trial is still provisioned even when the customer call failed.
		recs, err := env.store.ListByReference(ctx, "user-1")
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("nil user is a no-op", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		assert.NotPanics(t, func() { env.svc.OnSignUp(ctx, nil) })
	})
}
