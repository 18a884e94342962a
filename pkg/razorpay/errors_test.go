package razorpay

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateError(t *testing.T) {
	t.Parallel()

	t.Run("nil passes through", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, translateError(nil))
	})

	t.Run("deadline exceeded becomes timeout", func(t *testing.T) {
		t.Parallel()
		err := translateError(context.DeadlineExceeded)
		var te *TimeoutError
		require.ErrorAs(t, err, &te)
	})

	t.Run("url error becomes network error", func(t *testing.T) {
		t.Parallel()
		src := &url.Error{Op: "Post", URL: "https://api.razorpay.com/v1/subscriptions", Err: errors.New("connection refused")}
		err := translateError(src)
		var ne *NetworkError
		require.ErrorAs(t, err, &ne)
		assert.ErrorIs(t, ne.Err, src)
	})

	t.Run("provider envelope becomes api error with code", func(t *testing.T) {
		t.Parallel()
		src := errors.New(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`)
		err := translateError(src)
		var ae *APIError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "BAD_REQUEST_ERROR", ae.Code)
		assert.Equal(t, "The id provided does not exist", ae.Description)
		assert.True(t, ae.NotFound())
	})

	t.Run("envelope with leading text is still recovered", func(t *testing.T) {
		t.Parallel()
		src := errors.New(`request failed: {"error":{"code":"SERVER_ERROR","description":"internal error"}}`)
		err := translateError(src)
		var ae *APIError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "SERVER_ERROR", ae.Code)
		assert.False(t, ae.NotFound())
	})

	t.Run("opaque message falls back to api error without code", func(t *testing.T) {
		t.Parallel()
		err := translateError(errors.New("something odd happened"))
		var ae *APIError
		require.ErrorAs(t, err, &ae)
		assert.Empty(t, ae.Code)
		assert.Equal(t, "something odd happened", ae.Description)
	})
}

func TestDecodeEntity(t *testing.T) {
	t.Parallel()

	t.Run("subscription with unix timestamps", func(t *testing.T) {
		t.Parallel()
		sub, err := decodeEntity[Subscription](map[string]any{
			"id":            "sub_00000000000001",
			"plan_id":       "plan_00000000000001",
			"status":        "active",
			"quantity":      2,
			"total_count":   12,
			"current_start": int64(1700000000),
			"current_end":   int64(1702592000),
			"short_url":     "https://rzp.io/i/abc",
			"notes":         map[string]any{"referenceId": "user_1"},
		})
		require.NoError(t, err)
		assert.Equal(t, "sub_00000000000001", sub.ID)
		assert.Equal(t, 2, sub.Quantity)
		require.NotNil(t, sub.CurrentEndTime())
		assert.Equal(t, int64(1702592000), sub.CurrentEndTime().Unix())
		assert.Equal(t, "user_1", sub.Notes["referenceId"])
	})

	t.Run("empty notes serialized as array", func(t *testing.T) {
		t.Parallel()
		sub, err := decodeEntity[Subscription](map[string]any{
			"id":    "sub_00000000000002",
			"notes": []any{},
		})
		require.NoError(t, err)
		assert.Empty(t, sub.Notes)
	})

	t.Run("missing cycle boundaries decode to nil", func(t *testing.T) {
		t.Parallel()
		sub, err := decodeEntity[Subscription](map[string]any{
			"id":     "sub_00000000000003",
			"status": "created",
		})
		require.NoError(t, err)
		assert.Nil(t, sub.CurrentStartTime())
		assert.Nil(t, sub.CurrentEndTime())
	})
}
