package razorpay

import (
	"encoding/json"
	"time"
)

// Subscription mirrors the provider's subscription entity. Timestamps are
// unix seconds; pointer fields are absent for subscriptions that have not
// reached the corresponding lifecycle stage yet.
type Subscription struct {
	ID             string `json:"id"`
	PlanID         string `json:"plan_id"`
	CustomerID     string `json:"customer_id"`
	Status         string `json:"status"`
	Quantity       int    `json:"quantity"`
	TotalCount     int    `json:"total_count"`
	PaidCount      int    `json:"paid_count"`
	CurrentStart   *int64 `json:"current_start"`
	CurrentEnd     *int64 `json:"current_end"`
	EndedAt        *int64 `json:"ended_at"`
	ChargeAt       int64  `json:"charge_at"`
	StartAt        int64  `json:"start_at"`
	EndAt          int64  `json:"end_at"`
	ShortURL       string `json:"short_url"`
	CustomerNotify any    `json:"customer_notify,omitempty"`
	Notes          Notes  `json:"notes,omitempty"`
}

// CurrentStartTime returns the current billing cycle start, if reported.
func (s *Subscription) CurrentStartTime() *time.Time {
	return unixPtr(s.CurrentStart)
}

// CurrentEndTime returns the current billing cycle end, if reported.
func (s *Subscription) CurrentEndTime() *time.Time {
	return unixPtr(s.CurrentEnd)
}

func unixPtr(sec *int64) *time.Time {
	if sec == nil || *sec == 0 {
		return nil
	}
	t := time.Unix(*sec, 0).UTC()
	return &t
}

// Notes tolerates the provider's habit of serializing an empty notes object
// as a JSON array. Any non-object value decodes to an empty map.
type Notes map[string]any

func (n *Notes) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		*n = Notes{}
		return nil
	}
	*n = m
	return nil
}

// Customer mirrors the provider's customer entity.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// Plan mirrors the provider's plan entity.
type Plan struct {
	ID       string   `json:"id"`
	Period   string   `json:"period"`
	Interval int      `json:"interval"`
	Item     PlanItem `json:"item"`
}

// PlanItem carries the billable line item attached to a plan.
type PlanItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Payment mirrors the provider's payment entity.
type Payment struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	OrderID   string `json:"order_id"`
	Method    string `json:"method"`
	Email     string `json:"email"`
	Contact   any    `json:"contact"`
	CreatedAt int64  `json:"created_at"`
}

// SubscriptionCreateParams holds the fields sent when creating a provider
// subscription. Extra entries are merged into the request verbatim, which
// lets callers pass provider options this package does not model.
type SubscriptionCreateParams struct {
	PlanID         string
	TotalCount     int
	Quantity       int
	CustomerNotify bool
	Notes          map[string]any
	Extra          map[string]any
}

// CustomerCreateParams holds the fields sent when creating a provider
// customer record.
type CustomerCreateParams struct {
	Name         string
	Email        string
	Contact      string
	FailExisting bool
	Notes        map[string]any
	Extra        map[string]any
}

// decodeEntity converts the SDK's loosely-typed map payloads into typed
// structs via a JSON round-trip.
func decodeEntity[T any](data map[string]any) (*T, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, &APIError{Description: "failed to encode provider response: " + err.Error()}
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &APIError{Description: "unexpected provider response shape: " + err.Error()}
	}
	return &v, nil
}
