package subscription

import (
	"slices"
	"time"
)

// Model names under which records live in the persistence adapter.
const (
	ModelSubscription = "subscription"
	ModelUser         = "user"
)

// Status is the local subscription status vocabulary. It is distinct from
// the provider's own vocabulary; StatusFromProvider translates between the
// two.
type Status string

const (
	StatusCreated   Status = "created"
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusHalted    Status = "halted"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
	StatusTrialing  Status = "trialing"
)

// liveStatuses are the states in which a subscription still occupies the
// one-live-subscription-per-reference slot.
var liveStatuses = []Status{
	StatusActive, StatusTrialing, StatusPending, StatusCreated, StatusHalted,
}

// Live reports whether the status belongs to the live set.
func (s Status) Live() bool {
	return slices.Contains(liveStatuses, s)
}

// StatusFromProvider translates the provider's subscription status into the
// local vocabulary. Unknown provider statuses map to pending: a state the
// system treats as "in flight", which is the conservative choice for a
// status it cannot interpret.
func StatusFromProvider(providerStatus string) Status {
	switch providerStatus {
	case "created":
		return StatusCreated
	case "authenticated":
		return StatusPending
	case "active":
		return StatusActive
	case "pending":
		return StatusPending
	case "halted":
		return StatusHalted
	case "paused":
		return StatusHalted
	case "resumed":
		return StatusActive
	case "cancelled":
		return StatusCancelled
	case "completed":
		return StatusCompleted
	case "expired":
		return StatusExpired
	default:
		return StatusPending
	}
}

// Record is the locally-owned subscription document: the application's view
// of the billing state. The provider's view arrives asynchronously through
// webhooks and is reconciled onto this record.
type Record struct {
	ID                     string     `json:"id"`
	Plan                   string     `json:"plan"`
	PlanID                 string     `json:"planId,omitempty"`
	ReferenceID            string     `json:"referenceId"`
	RazorpayCustomerID     string     `json:"razorpayCustomerId,omitempty"`
	RazorpaySubscriptionID string     `json:"razorpaySubscriptionId,omitempty"`
	Status                 Status     `json:"status"`
	TrialStart             *time.Time `json:"trialStart,omitempty"`
	TrialEnd               *time.Time `json:"trialEnd,omitempty"`
	PeriodStart            *time.Time `json:"periodStart,omitempty"`
	PeriodEnd              *time.Time `json:"periodEnd,omitempty"`
	CancelAtPeriodEnd      bool       `json:"cancelAtPeriodEnd"`
	Seats                  int        `json:"seats,omitempty"`
	GroupID                string     `json:"groupId,omitempty"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

// IsLivePaid reports whether the record occupies the single live paid
// subscription slot for its reference.
func (r *Record) IsLivePaid() bool {
	return r.RazorpaySubscriptionID != "" && r.Status.Live()
}

// IsLocalTrial reports whether the record is the app-level sign-up trial:
// trialing with no provider-side counterpart. This is the only record
// eligible to be upgraded in place into a paid subscription.
func (r *Record) IsLocalTrial() bool {
	return r.Status == StatusTrialing && r.RazorpaySubscriptionID == ""
}

// IsTrialExpired reports whether the app-level trial window has closed.
func (r *Record) IsTrialExpired(now time.Time) bool {
	return r.TrialEnd != nil && now.After(*r.TrialEnd)
}

// User is the principal document the billing core reads and annotates with
// the provider customer identifier. User lifecycle itself is owned by the
// host application.
type User struct {
	ID                 string `json:"id"`
	Name               string `json:"name,omitempty"`
	Email              string `json:"email,omitempty"`
	RazorpayCustomerID string `json:"razorpayCustomerId,omitempty"`
}

// Principal is the caller identity resolved by the host application's
// session layer before a request reaches the orchestrators.
type Principal struct {
	ID    string
	Name  string
	Email string
}
