package subscription_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/razorpay"
	"github.com/dmitrymomot/billingkit/svc/subscription"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	t.Run("nil", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, subscription.Classify(nil))
	})

	t.Run("typed errors pass through", func(t *testing.T) {
		t.Parallel()
		orig := subscription.E(subscription.CodePlanNotFound, "no such plan")
		got := subscription.Classify(fmt.Errorf("wrapped: %w", orig))
		assert.Same(t, orig, got)
	})

	t.Run("network error", func(t *testing.T) {
		t.Parallel()
		got := subscription.Classify(&razorpay.NetworkError{Err: errors.New("connection refused")})
		assert.Equal(t, subscription.CodeNetworkError, got.Code)
		assert.Equal(t, "connection refused", got.Meta["cause"])
	})

	t.Run("timeout error", func(t *testing.T) {
		t.Parallel()
		got := subscription.Classify(&razorpay.TimeoutError{Err: errors.New("deadline exceeded")})
		assert.Equal(t, subscription.CodeTimeoutError, got.Code)
	})

	t.Run("provider api error", func(t *testing.T) {
		t.Parallel()
		got := subscription.Classify(&razorpay.APIError{
			Code:        "BAD_REQUEST_ERROR",
			Description: "The id provided does not exist",
			Status:      400,
		})
		assert.Equal(t, subscription.CodeRazorpayError, got.Code)
		assert.Equal(t, "BAD_REQUEST_ERROR", got.Meta["providerCode"])
		assert.Equal(t, true, got.Meta["providerNotFound"])
	})

	t.Run("context deadline", func(t *testing.T) {
		t.Parallel()
		got := subscription.Classify(fmt.Errorf("op: %w", context.DeadlineExceeded))
		assert.Equal(t, subscription.CodeTimeoutError, got.Code)
	})

	t.Run("anything else is unknown", func(t *testing.T) {
		t.Parallel()
		got := subscription.Classify(errors.New("boom"))
		assert.Equal(t, subscription.CodeUnknownError, got.Code)
		assert.Equal(t, "boom", got.Description)
	})
}

func TestErrorWithMeta(t *testing.T) {
	t.Parallel()

	err := subscription.E(subscription.CodeInvalidState, "bad state").
		WithMeta("subscriptionId", "sub-1").
		WithMeta("status", "halted")
	require.NotNil(t, err.Meta)
	assert.Equal(t, "sub-1", err.Meta["subscriptionId"])
	assert.Equal(t, "halted", err.Meta["status"])
	assert.Equal(t, "INVALID_STATE: bad state", err.Error())
}
