package razorpay

import (
	"context"

	rzpsdk "github.com/razorpay/razorpay-go"
)

// API is the narrow provider surface the billing core consumes. It exists
// so orchestrators can be tested against fakes and so the SDK's map-based
// payloads stay contained in this package.
//
// The underlying SDK performs blocking HTTP calls without context support;
// ctx is accepted for interface stability and honored where possible.
type API interface {
	SubscriptionCreate(ctx context.Context, params SubscriptionCreateParams) (*Subscription, error)
	SubscriptionFetch(ctx context.Context, id string) (*Subscription, error)
	SubscriptionCancel(ctx context.Context, id string, atCycleEnd bool) (*Subscription, error)
	SubscriptionResume(ctx context.Context, id string) (*Subscription, error)
	SubscriptionCancelScheduledChanges(ctx context.Context, id string) (*Subscription, error)
	CustomerCreate(ctx context.Context, params CustomerCreateParams) (*Customer, error)
	PlanFetch(ctx context.Context, id string) (*Plan, error)
	PaymentFetch(ctx context.Context, id string) (*Payment, error)
}

// Client implements API on top of the official Razorpay Go SDK.
type Client struct {
	sdk *rzpsdk.Client
}

// NewClient creates a provider client authenticated with the given API key
// pair. Panics if either credential is empty to fail fast during
// initialization.
func NewClient(keyID, keySecret string) *Client {
	if keyID == "" || keySecret == "" {
		panic("razorpay: API key ID and secret are required")
	}
	return &Client{sdk: rzpsdk.NewClient(keyID, keySecret)}
}

func (c *Client) SubscriptionCreate(_ context.Context, params SubscriptionCreateParams) (*Subscription, error) {
	data := map[string]any{
		"plan_id":         params.PlanID,
		"total_count":     params.TotalCount,
		"customer_notify": boolToInt(params.CustomerNotify),
	}
	if params.Quantity > 0 {
		data["quantity"] = params.Quantity
	}
	if len(params.Notes) > 0 {
		data["notes"] = params.Notes
	}
	for k, v := range params.Extra {
		data[k] = v
	}

	res, err := c.sdk.Subscription.Create(data, nil)
	if err != nil {
		return nil, translateError(err)
	}
	return decodeEntity[Subscription](res)
}

func (c *Client) SubscriptionFetch(_ context.Context, id string) (*Subscription, error) {
	res, err := c.sdk.Subscription.Fetch(id, nil, nil)
	if err != nil {
		return nil, translateError(err)
	}
	return decodeEntity[Subscription](res)
}

func (c *Client) SubscriptionCancel(_ context.Context, id string, atCycleEnd bool) (*Subscription, error) {
	data := map[string]any{
		"cancel_at_cycle_end": boolToInt(atCycleEnd),
	}
	res, err := c.sdk.Subscription.Cancel(id, data, nil)
	if err != nil {
		return nil, translateError(err)
	}
	return decodeEntity[Subscription](res)
}

// SubscriptionResume resumes a paused subscription. It is not a substitute
// for SubscriptionCancelScheduledChanges: the provider rejects resume calls
// against subscriptions that are not paused.
func (c *Client) SubscriptionResume(_ context.Context, id string) (*Subscription, error) {
	data := map[string]any{
		"resume_at": "now",
	}
	res, err := c.sdk.Subscription.Resume(id, data, nil)
	if err != nil {
		return nil, translateError(err)
	}
	return decodeEntity[Subscription](res)
}

// SubscriptionCancelScheduledChanges undoes a pending scheduled change,
// including a cancel-at-cycle-end request.
func (c *Client) SubscriptionCancelScheduledChanges(_ context.Context, id string) (*Subscription, error) {
	res, err := c.sdk.Subscription.CancelScheduledChanges(id, nil, nil)
	if err != nil {
		return nil, translateError(err)
	}
	return decodeEntity[Subscription](res)
}

func (c *Client) CustomerCreate(_ context.Context, params CustomerCreateParams) (*Customer, error) {
	data := map[string]any{
		"name":          params.Name,
		"email":         params.Email,
		"fail_existing": boolToInt(params.FailExisting),
	}
	if params.Contact != "" {
		data["contact"] = params.Contact
	}
	if len(params.Notes) > 0 {
		data["notes"] = params.Notes
	}
	for k, v := range params.Extra {
		data[k] = v
	}

	res, err := c.sdk.Customer.Create(data, nil)
	if err != nil {
		return nil, translateError(err)
	}
	return decodeEntity[Customer](res)
}

func (c *Client) PlanFetch(_ context.Context, id string) (*Plan, error) {
	res, err := c.sdk.Plan.Fetch(id, nil, nil)
	if err != nil {
		return nil, translateError(err)
	}
	return decodeEntity[Plan](res)
}

func (c *Client) PaymentFetch(_ context.Context, id string) (*Payment, error) {
	res, err := c.sdk.Payment.Fetch(id, nil, nil)
	if err != nil {
		return nil, translateError(err)
	}
	return decodeEntity[Payment](res)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
